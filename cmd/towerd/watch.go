package main

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/velmoren/towerd/internal/platform/tui"
	"github.com/velmoren/towerd/internal/sim"
)

var (
	flagWatchSave         bool
	flagWatchBaseHP       int
	flagWatchBreachChance float64
)

var watchCmd = &cobra.Command{
	Use:   "watch <level>",
	Short: "Watch a battle live in the terminal",
	Long: `Run a battle for the given level with a live terminal view: wave
progress, population counters, and the lifecycle event feed.

Controls:
  Space/P    - Pause
  A          - Abort the level
  Q/Ctrl+C   - Quit

Examples:
  towerd watch training-grounds
  towerd watch gauntlet --seed 42 --base-hp 5 --breach-chance 0.3`,
	Args: cobra.ExactArgs(1),
	Run:  runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&flagWatchSave, "save", false, "Record the result in the results database")
	watchCmd.Flags().IntVar(&flagWatchBaseHP, "base-hp", 0, "Breaches the base survives (0 = invulnerable)")
	watchCmd.Flags().Float64Var(&flagWatchBreachChance, "breach-chance", 0, "Per-enemy probability of reaching the base")
}

func runWatch(cmd *cobra.Command, args []string) {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		fmt.Fprintln(os.Stderr, "Error: watch needs an interactive terminal (use 'towerd run' instead)")
		os.Exit(1)
	}

	lvl := mustLoadLevel(args[0])

	cfg := simConfig()
	runner, err := sim.New(lvl, sim.Options{
		Cfg:          cfg,
		BaseHP:       flagWatchBaseHP,
		BreachChance: flagWatchBreachChance,
		Logger:       log.New(io.Discard), // The TUI owns the screen
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting battle: %v\n", err)
		os.Exit(1)
	}

	res, err := tui.Watch(runner, lvl, cfg.TickRate)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if res == nil {
		// User quit before the battle resolved
		return
	}

	printResult(*res, cfg.Seed)
	if flagWatchSave {
		saveResult(*res, cfg.Seed)
	}
}
