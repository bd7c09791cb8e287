package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/velmoren/towerd/internal/director"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/sim"
)

// Watch layout constants
const (
	feedLines    = 8  // Event feed lines shown
	minBarWidth  = 20 // Progress bar never narrower than this
	statsPadding = 2
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("229")).
			Background(lipgloss.Color("57")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("229"))

	victoryStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	defeatStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))

	feedStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	pausedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))
)

// WatchModel is the Bubble Tea model showing a live battle.
type WatchModel struct {
	runner   *sim.Runner
	lvl      level.Level
	tickRate int

	bar  progress.Model
	help help.Model
	keys WatchKeyMap

	width    int
	height   int
	paused   bool
	quitting bool
	result   *sim.Result
}

// NewWatchModel creates a watch model over a prepared runner.
func NewWatchModel(runner *sim.Runner, lvl level.Level, tickRate int) WatchModel {
	if tickRate <= 0 {
		tickRate = 30
	}
	bar := progress.New(progress.WithDefaultGradient())
	h := help.New()
	h.ShowAll = false

	return WatchModel{
		runner:   runner,
		lvl:      lvl,
		tickRate: tickRate,
		bar:      bar,
		help:     h,
		keys:     DefaultWatchKeyMap(),
	}
}

// Result returns the battle summary once the run has resolved, nil before.
func (m WatchModel) Result() *sim.Result {
	return m.result
}

// Init starts the tick loop.
func (m WatchModel) Init() tea.Cmd {
	return tickCmd(m.tickRate)
}

// Update handles messages.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		barWidth := msg.Width - 2*statsPadding
		if barWidth < minBarWidth {
			barWidth = minBarWidth
		}
		m.bar.Width = barWidth
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.result == nil {
			m.runner.Abort()
		}
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Pause):
		if m.result == nil {
			m.paused = !m.paused
		}
		return m, nil

	case key.Matches(msg, m.keys.Abort):
		if m.result == nil {
			m.runner.Abort()
		}
		return m, nil
	}

	return m, nil
}

// handleTick advances the battle by one tick unless paused or finished.
func (m WatchModel) handleTick() (tea.Model, tea.Cmd) {
	if m.result != nil {
		return m, nil
	}

	if !m.paused {
		m.runner.Step()
	}
	if m.runner.Done() {
		res := m.runner.Result()
		m.result = &res
		return m, nil
	}

	return m, tickCmd(m.tickRate)
}

// View renders the watch screen.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	p := m.runner.Progress()

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf(" %s ", m.lvl.ID)))
	if m.paused {
		b.WriteString("  " + pausedStyle.Render("PAUSED"))
	}
	b.WriteString("\n\n")

	b.WriteString(m.renderStats(p))
	b.WriteString("\n")

	total := m.lvl.TotalEnemies()
	frac := 0.0
	if total > 0 {
		frac = float64(p.TotalSpawned+p.TotalSkipped) / float64(total)
	}
	b.WriteString(m.bar.ViewAs(frac))
	b.WriteString("\n\n")

	b.WriteString(m.renderFeed())
	b.WriteString("\n")

	if m.result != nil {
		b.WriteString(m.renderResult())
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m WatchModel) renderStats(p director.Progress) string {
	wave := "-"
	if p.WaveIndex >= 0 {
		wave = fmt.Sprintf("%d/%d", p.WaveIndex+1, p.TotalWaves)
	}

	row := func(label, value string) string {
		return labelStyle.Render(label+": ") + valueStyle.Render(value)
	}

	return strings.Join([]string{
		row("state", p.State.String()),
		row("wave", wave),
		row("live", fmt.Sprintf("%d", p.Live)),
		row("queued", fmt.Sprintf("%d", p.Remaining)),
		row("spawned", fmt.Sprintf("%d", p.TotalSpawned)),
		row("skipped", fmt.Sprintf("%d", p.TotalSkipped)),
	}, "   ") + "\n"
}

// renderFeed shows the most recent lifecycle events.
func (m WatchModel) renderFeed() string {
	entries := m.runner.Events()
	start := 0
	if len(entries) > feedLines {
		start = len(entries) - feedLines
	}

	var lines []string
	for _, le := range entries[start:] {
		lines = append(lines, fmt.Sprintf("[%6d] %s", le.Tick, describeEvent(le.Event)))
	}
	if len(lines) == 0 {
		lines = []string{labelStyle.Render("waiting for first wave...")}
	}

	return feedStyle.Render(strings.Join(lines, "\n"))
}

func (m WatchModel) renderResult() string {
	res := *m.result
	line := fmt.Sprintf("%s — %d/%d waves, %d spawned, %d skipped, %s",
		strings.ToUpper(string(res.Outcome)),
		res.WavesCompleted, res.TotalWaves,
		res.Spawned, res.Skipped,
		res.Duration.Round(100*time.Millisecond))

	switch res.Outcome {
	case sim.OutcomeVictory:
		return victoryStyle.Render(line)
	case sim.OutcomeDefeat:
		return defeatStyle.Render(line)
	default:
		return valueStyle.Render(line)
	}
}

func describeEvent(e director.Event) string {
	switch ev := e.(type) {
	case director.WaveStarted:
		return fmt.Sprintf("wave %d/%d started", ev.Index+1, ev.Total)
	case director.WaveCompleted:
		return fmt.Sprintf("wave %d cleared", ev.Index+1)
	case director.Victory:
		return "level complete"
	case director.Defeat:
		return "base destroyed"
	default:
		return fmt.Sprintf("%T", e)
	}
}

// Watch runs the watch TUI in the local terminal and returns the battle
// result, if the run resolved before the user quit.
func Watch(runner *sim.Runner, lvl level.Level, tickRate int) (*sim.Result, error) {
	model := NewWatchModel(runner, lvl, tickRate)

	p := tea.NewProgram(model, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}

	if wm, ok := final.(WatchModel); ok {
		return wm.Result(), nil
	}
	return nil, nil
}
