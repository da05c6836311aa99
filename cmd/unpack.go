package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/packer"
)

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive> [target-dir]",
	Short: "Extract a card archive into a project directory",
	Long: `Unpack extracts a card archive into a directory. Entries that would land
outside the target directory are skipped and reported as warnings. The
extracted project is validated afterwards unless --no-validate is given.

Examples:
  cardpack unpack my-card.card
  cardpack unpack my-card.card ./work --overwrite`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath := args[0]
		target := strings.TrimSuffix(filepath.Base(archivePath), ArchiveExt)
		if len(args) == 2 {
			target = args[1]
		}

		opts := packer.UnpackOptions{
			Overwrite: cfg.Unpack.Overwrite,
			Validate:  cfg.Unpack.Validate,
		}
		if cmd.Flags().Changed("overwrite") {
			opts.Overwrite, _ = cmd.Flags().GetBool("overwrite")
		}
		if cmd.Flags().Changed("no-validate") {
			noValidate, _ := cmd.Flags().GetBool("no-validate")
			opts.Validate = !noValidate
		}

		result, err := newPacker(packer.WithProgress(logProgress)).Unpack(archivePath, target, opts)
		if err != nil {
			return fail(err)
		}

		if jsonOutput {
			return printJSON(result)
		}
		fmt.Printf("✅ Unpacked %s -> %s (%d files)\n", archivePath,
			colorize.HiWhiteString("%s", result.OutputDir), result.FileCount)
		for _, w := range result.Warnings {
			fmt.Printf("%s %s: %s\n", colorize.YellowString("⚠️  skipped"), w.Path, w.Message)
		}
		if result.Validation != nil {
			fmt.Println()
			printReport(*result.Validation)
		}
		return nil
	},
}

func init() {
	unpackCmd.Flags().Bool("overwrite", false, "Replace the target directory if it exists")
	unpackCmd.Flags().Bool("no-validate", false, "Skip validating the extracted project")
}
