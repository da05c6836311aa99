package cmd

import (
	"fmt"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/packer"
)

var compatCmd = &cobra.Command{
	Use:   "compat <card-version|archive> [system-version]",
	Short: "Check whether a card's standards version is supported",
	Long: `Compat compares a card standards version with the version this tool
implements (or the one given as second argument). The first argument may be
a version string or a card archive, whose metadata supplies the version.

Examples:
  cardpack compat 1.2.0
  cardpack compat my-card.card 1.5.0`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cardVersion := args[0]
		systemVersion := card.StandardsVersion
		if len(args) == 2 {
			systemVersion = args[1]
		}

		if isFile(cardVersion) {
			metadata, err := newPacker().GetMetadata(cardVersion)
			if err != nil {
				return fail(err)
			}
			if metadata.StandardsVersion == "" {
				return fmt.Errorf("%s has no standards_version", cardVersion)
			}
			cardVersion = metadata.StandardsVersion
		}

		result := packer.CheckCompatibility(cardVersion, systemVersion)
		if jsonOutput {
			if err := printJSON(result); err != nil {
				return err
			}
			if !result.Compatible {
				return errReported
			}
			return nil
		}

		if !result.Compatible {
			fmt.Printf("❌ card %s is not compatible with %s: %s\n", cardVersion, systemVersion,
				colorize.RedString("%s", result.Reason))
			return fmt.Errorf("incompatible standards version")
		}
		fmt.Printf("✅ card %s is compatible with %s\n", cardVersion, systemVersion)
		if result.Reason != "" {
			fmt.Println(colorize.YellowString("   %s", result.Reason))
		}
		return nil
	},
}

func isFile(path string) bool {
	fs := fsys.NewOS()
	if ok, err := fs.Exists(path); err != nil || !ok {
		return false
	}
	dir, err := fs.IsDir(path)
	return err == nil && !dir
}
