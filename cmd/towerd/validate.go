package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [file...]",
	Short: "Validate level definition files",
	Long: `Check level YAML files for schema and consistency errors.

With no arguments, validates every .yaml/.yml file in the levels directory.
With file arguments, validates only those files.

Examples:
  towerd validate
  towerd validate configs/levels/training-grounds.yaml`,
	Run: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) {
	loader := levelLoader()

	files := args
	if len(files) == 0 {
		var err error
		files, err = listLevelFiles(loader.Root)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error scanning %s: %v\n", loader.Root, err)
			os.Exit(1)
		}
		if len(files) == 0 {
			fmt.Printf("No level files found in %s.\n", loader.Root)
			return
		}
	}

	failed := 0
	for _, path := range files {
		lvl, err := loader.LoadFile(path)
		if err != nil {
			failed++
			fmt.Printf("  FAIL  %s\n        %v\n", path, err)
			continue
		}
		fmt.Printf("  ok    %s (%s: %d waves, %d enemies)\n",
			path, lvl.ID, len(lvl.Waves), lvl.TotalEnemies())
	}

	fmt.Println()
	if failed > 0 {
		fmt.Printf("%d of %d file(s) failed validation.\n", failed, len(files))
		os.Exit(1)
	}
	fmt.Printf("All %d file(s) valid.\n", len(files))
}

func listLevelFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
