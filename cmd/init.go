package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a new, empty card project",
	Long: `Init writes a minimal valid card project: a config directory holding
metadata.yaml with a fresh card id and an empty structure.yaml, plus an
empty content directory. The directory defaults to the current one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		name, _ := cmd.Flags().GetString("name")
		if name == "" {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			name = filepath.Base(abs)
		}

		metadata, err := project.Scaffold(fsys.NewOS(), dir, name, time.Now())
		if err != nil {
			return err
		}

		if jsonOutput {
			return printJSON(map[string]any{"success": true, "path": dir, "metadata": metadata})
		}
		fmt.Printf("✅ Created card project %s in %s\n", colorize.HiWhiteString("%s", metadata.Name), dir)
		fmt.Printf("   card id %s\n", metadata.CardID)
		return nil
	},
}

func init() {
	initCmd.Flags().StringP("name", "n", "", "Card name (defaults to the directory name)")
}
