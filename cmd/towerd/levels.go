package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var levelsCmd = &cobra.Command{
	Use:   "levels",
	Short: "List all available levels",
	Long:  `Shows every valid level definition found in the levels directory.`,
	Run:   runLevels,
}

func runLevels(cmd *cobra.Command, args []string) {
	loader := levelLoader()

	levels, err := loader.LoadAll()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading levels: %v\n", err)
		os.Exit(1)
	}

	if len(levels) == 0 {
		fmt.Printf("No levels found in %s.\n", loader.Root)
		return
	}

	fmt.Println("Available levels:")
	fmt.Println()

	maxIDLen := 2 // "ID" header
	for _, l := range levels {
		if len(l.ID) > maxIDLen {
			maxIDLen = len(l.ID)
		}
	}

	fmt.Printf("  %-*s  %-6s  %-8s  %s\n", maxIDLen, "ID", "Waves", "Enemies", "Name")
	fmt.Printf("  %-*s  %-6s  %-8s  %s\n", maxIDLen, "--", "-----", "-------", "----")

	for _, l := range levels {
		fmt.Printf("  %-*s  %-6d  %-8d  %s\n", maxIDLen, l.ID, len(l.Waves), l.TotalEnemies(), l.Name)
	}

	fmt.Println()
	fmt.Println("Run 'towerd run <id>' or 'towerd watch <id>' to play a level.")
}
