package tui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/sim"
)

// SSHServerConfig holds configuration for the SSH watch server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23235").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.towerd/host_key.
	HostKeyPath string

	// LevelsDir is the directory holding level definitions.
	LevelsDir string

	// LevelID selects the level every session watches. Empty means the
	// first level in the directory.
	LevelID string

	// Sim tunes the battle each session runs. The seed is re-derived per
	// session so every viewer gets their own battle.
	Sim core.SimConfig

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23235",
		Sim:         core.DefaultSimConfig(),
		IdleTimeout: 30 * time.Minute,
	}
}

// SSHServer wraps a Wish SSH server that serves the watch TUI.
type SSHServer struct {
	config SSHServerConfig
	server *ssh.Server
	loader *level.Loader
	logger *log.Logger
}

// NewSSHServer creates a new SSH server with the given configuration.
func NewSSHServer(cfg SSHServerConfig) (*SSHServer, error) {
	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "towerd-ssh",
	})

	levelsDir := cfg.LevelsDir
	if levelsDir == "" {
		levelsDir = level.DefaultRoot()
	}
	loader := level.NewLoader(levelsDir)
	if _, err := loader.ListIDs(); err != nil {
		return nil, fmt.Errorf("cannot read levels directory: %w", err)
	}

	srv := &SSHServer{
		config: cfg,
		loader: loader,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".towerd", "host_key")
	}

	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler creates a fresh battle and watch model for each SSH session.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	_, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		return nil, nil
	}

	lvl, err := s.pickLevel()
	if err != nil {
		s.logger.Error("cannot load level for session", "user", sshSession.User(), "error", err)
		return nil, nil
	}

	simCfg := s.config.Sim
	simCfg.Seed = time.Now().UnixNano()

	runner, err := sim.New(lvl, sim.Options{Cfg: simCfg, Logger: s.logger})
	if err != nil {
		s.logger.Error("cannot start battle", "level", lvl.ID, "error", err)
		return nil, nil
	}

	model := NewWatchModel(runner, lvl, simCfg.TickRate)
	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// pickLevel loads the configured level, or the first one in the directory.
func (s *SSHServer) pickLevel() (level.Level, error) {
	if s.config.LevelID != "" {
		return s.loader.LoadByID(s.config.LevelID)
	}

	ids, err := s.loader.ListIDs()
	if err != nil {
		return level.Level{}, err
	}
	if len(ids) == 0 {
		return level.Level{}, fmt.Errorf("no levels in %s", s.loader.Root)
	}
	return s.loader.LoadByID(ids[0])
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// ListenAndServe starts the SSH server and blocks until shutdown.
func (s *SSHServer) ListenAndServe() error {
	s.logger.Info("starting SSH server", "address", s.config.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	<-done
	s.logger.Info("shutting down...")
	return s.Shutdown()
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the server's listen address string.
func (s *SSHServer) Addr() string {
	return s.config.Address
}
