package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/velmoren/towerd/internal/storage"
)

var (
	flagResultsLimit int
	flagResultsClear bool
)

var resultsCmd = &cobra.Command{
	Use:   "results [level]",
	Short: "Show recorded results",
	Long: `Display recent battle results from the results database.

With a level argument, shows results and aggregate stats for that level.
Without arguments, shows the most recent results across all levels.

Examples:
  towerd results
  towerd results training-grounds
  towerd results training-grounds --limit 5
  towerd results training-grounds --clear`,
	Args: cobra.MaximumNArgs(1),
	Run:  runResults,
}

func init() {
	resultsCmd.Flags().IntVar(&flagResultsLimit, "limit", 20, "Maximum results to show")
	resultsCmd.Flags().BoolVar(&flagResultsClear, "clear", false, "Delete recorded results for the given level")
}

func runResults(cmd *cobra.Command, args []string) {
	store, err := storage.Open(flagDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening results database: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if flagResultsClear {
		if len(args) == 0 {
			fmt.Fprintln(os.Stderr, "Error: --clear requires a level argument")
			os.Exit(1)
		}
		if err := store.ClearResults(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Error clearing results: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Cleared results for %s.\n", args[0])
		return
	}

	var results []storage.RunResult
	if len(args) == 1 {
		results, err = store.RecentResults(args[0], flagResultsLimit)
	} else {
		results, err = store.AllResults(flagResultsLimit)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error retrieving results: %v\n", err)
		os.Exit(1)
	}

	if len(results) == 0 {
		fmt.Println("No results recorded yet.")
		fmt.Println()
		fmt.Println("Run 'towerd run <level> --save' to record one.")
		return
	}

	fmt.Printf("  %-20s  %-8s  %-7s  %-8s  %-8s  %s\n",
		"Level", "Outcome", "Waves", "Spawned", "Skipped", "Date")
	fmt.Printf("  %-20s  %-8s  %-7s  %-8s  %-8s  %s\n",
		"-----", "-------", "-----", "-------", "-------", "----")
	for _, r := range results {
		fmt.Printf("  %-20s  %-8s  %2d/%-4d  %-8d  %-8d  %s\n",
			r.LevelID, r.Outcome, r.WavesCompleted, r.TotalWaves,
			r.Spawned, r.Skipped, r.CreatedAt.Format("2006-01-02 15:04"))
	}

	if len(args) == 1 {
		stats, err := store.Stats(args[0])
		if err == nil && stats.Runs > 0 {
			fmt.Println()
			fmt.Printf("Runs: %d   Victories: %d", stats.Runs, stats.Victories)
			if stats.BestSecs > 0 {
				fmt.Printf("   Best: %.1fs", stats.BestSecs)
			}
			fmt.Println()
		}
	}
}
