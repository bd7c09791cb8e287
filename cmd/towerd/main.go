// towerd is a headless tower-defense wave engine for the terminal.
//
// Usage:
//
//	towerd levels            - List available levels
//	towerd validate [file]   - Validate level definitions
//	towerd run <level>       - Run a level headlessly and print the result
//	towerd watch <level>     - Watch a battle live in the terminal
//	towerd serve             - Start SSH server for remote watching
//	towerd results <level>   - Show recorded results for a level
//
// Global flags:
//
//	--fps <rate>     - Set tick rate (default: 30)
//	--seed <value>   - Set RNG seed for reproducible battles
//	--levels <dir>   - Set levels directory (default: ~/.towerd/levels or ./configs/levels)
//	--db <path>      - Set database path (default: ~/.towerd/results.db)
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/velmoren/towerd/internal/core"
	"github.com/velmoren/towerd/internal/level"
)

var (
	// Global flags
	flagFPS       int
	flagSeed      int64
	flagLevelsDir string
	flagDBPath    string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "towerd",
	Short: "towerd - Tower-defense wave engine in your terminal",
	Long: `towerd runs tower-defense levels: waves of enemies are spawned from
reusable object pools and driven by a tick-based director.

Available commands:
  levels    - Show all available levels
  validate  - Validate level definition files
  run       - Run a level headlessly, print the outcome
  watch     - Watch a battle live in the terminal
  serve     - Start SSH server for remote watching
  results   - View recorded results

Examples:
  towerd levels
  towerd run training-grounds --seed 42
  towerd watch training-grounds
  towerd serve --ssh :2222
  towerd results training-grounds`,
}

func init() {
	// Global persistent flags
	rootCmd.PersistentFlags().IntVar(&flagFPS, "fps", 30, "Tick rate (ticks per second)")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 0, "RNG seed (0 = random based on time)")
	rootCmd.PersistentFlags().StringVar(&flagLevelsDir, "levels", "", "Levels directory (default: ~/.towerd/levels or ./configs/levels)")
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "~/.towerd/results.db", "Path to results database")

	rootCmd.AddCommand(levelsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(resultsCmd)
}

// levelLoader builds a loader rooted at the configured levels directory.
func levelLoader() *level.Loader {
	dir := flagLevelsDir
	if dir == "" {
		dir = level.DefaultRoot()
	}
	return level.NewLoader(dir)
}

// simConfig builds the simulation config from the global flags.
func simConfig() core.SimConfig {
	seed := flagSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return core.SimConfig{TickRate: flagFPS, Seed: seed}
}
