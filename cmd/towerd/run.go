package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/level"
	"github.com/velmoren/towerd/internal/sim"
	"github.com/velmoren/towerd/internal/storage"
)

var (
	flagRunSave         bool
	flagRunQuiet        bool
	flagRunBaseHP       int
	flagRunBreachChance float64
	flagRunMaxTicks     uint64
)

var runCmd = &cobra.Command{
	Use:   "run <level>",
	Short: "Run a level headlessly and print the result",
	Long: `Simulate a full battle for the given level without a UI.

Enemies spawn through the real pool pipeline and live for a seeded random
lifetime; with --breach-chance some of them reach the base instead of dying
in the field. The final outcome, wave progress, and spawn accounting are
printed when the battle resolves.

Examples:
  towerd run training-grounds
  towerd run training-grounds --seed 42 --save
  towerd run gauntlet --base-hp 10 --breach-chance 0.2`,
	Args: cobra.ExactArgs(1),
	Run:  runRun,
}

func init() {
	runCmd.Flags().BoolVar(&flagRunSave, "save", false, "Record the result in the results database")
	runCmd.Flags().BoolVar(&flagRunQuiet, "quiet", false, "Suppress per-event logging")
	runCmd.Flags().IntVar(&flagRunBaseHP, "base-hp", 0, "Breaches the base survives (0 = invulnerable)")
	runCmd.Flags().Float64Var(&flagRunBreachChance, "breach-chance", 0, "Per-enemy probability of reaching the base")
	runCmd.Flags().Uint64Var(&flagRunMaxTicks, "max-ticks", 0, "Abort the run after this many ticks (0 = default)")
}

func runRun(cmd *cobra.Command, args []string) {
	lvl := mustLoadLevel(args[0])

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "towerd",
	})
	if flagRunQuiet {
		logger.SetLevel(log.ErrorLevel)
	}

	cfg := simConfig()
	runner, err := sim.New(lvl, sim.Options{
		Cfg:          cfg,
		BaseHP:       flagRunBaseHP,
		BreachChance: flagRunBreachChance,
		MaxTicks:     core.Tick(flagRunMaxTicks),
		Logger:       logger,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting battle: %v\n", err)
		os.Exit(1)
	}

	res := runner.Run()
	printResult(res, cfg.Seed)

	if flagRunSave {
		saveResult(res, cfg.Seed)
	}
}

func printResult(res sim.Result, seed int64) {
	fmt.Println()
	fmt.Printf("Level:    %s\n", res.LevelID)
	fmt.Printf("Outcome:  %s\n", res.Outcome)
	fmt.Printf("Waves:    %d/%d\n", res.WavesCompleted, res.TotalWaves)
	fmt.Printf("Spawned:  %d (skipped %d)\n", res.Spawned, res.Skipped)
	if res.Breaches > 0 {
		fmt.Printf("Breaches: %d\n", res.Breaches)
	}
	fmt.Printf("Duration: %s (%d ticks, seed %d)\n",
		res.Duration.Round(100*time.Millisecond), res.Ticks, seed)
}

func saveResult(res sim.Result, seed int64) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	_, err = store.SaveResult(storage.RunResult{
		LevelID:        res.LevelID,
		Outcome:        string(res.Outcome),
		WavesCompleted: res.WavesCompleted,
		TotalWaves:     res.TotalWaves,
		Spawned:        res.Spawned,
		Skipped:        res.Skipped,
		Breaches:       res.Breaches,
		Seed:           seed,
		DurationSecs:   res.Duration.Seconds(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error saving result: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Result saved.")
}

// mustLoadLevel loads a level by id or exits with a helpful message.
func mustLoadLevel(id string) level.Level {
	loader := levelLoader()
	lvl, err := loader.LoadByID(id)
	if err != nil {
		if errors.Is(err, level.ErrNotFound) {
			fmt.Fprintf(os.Stderr, "Error: unknown level %q\n", id)
			fmt.Fprintln(os.Stderr, "Run 'towerd levels' to see available levels.")
		} else {
			fmt.Fprintf(os.Stderr, "Error loading level: %v\n", err)
		}
		os.Exit(1)
	}
	return lvl
}
