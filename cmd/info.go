package cmd

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/card"
	"github.com/arcanaland/cardpack/internal/packer"
)

var infoCmd = &cobra.Command{
	Use:   "info <archive>",
	Short: "Print the metadata of a card archive",
	Long: `Info reads only the metadata document of a card archive and prints it.
With --verify the recorded checksum is recomputed and compared.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		archivePath := args[0]
		verify, _ := cmd.Flags().GetBool("verify")

		p := newPacker()
		metadata, err := p.GetMetadata(archivePath)
		if err != nil {
			return fail(err)
		}

		var sum *packer.ChecksumResult
		if verify {
			if sum, err = p.VerifyChecksum(archivePath); err != nil {
				return fail(err)
			}
		}

		if jsonOutput {
			out := map[string]any{"success": true, "metadata": metadata}
			if sum != nil {
				out["checksum"] = sum
			}
			if err := printJSON(out); err != nil {
				return err
			}
			if sum != nil && !sum.Match {
				return errReported
			}
			return nil
		}

		printMetadata(metadata)
		if sum != nil {
			if !sum.Match {
				fmt.Println(colorize.RedString("❌ checksum mismatch"))
				fmt.Printf("   recorded %s\n   actual   %s\n", sum.Recorded, sum.Actual)
				return fmt.Errorf("checksum mismatch")
			}
			fmt.Println(colorize.GreenString("✅ checksum verified"))
		}
		return nil
	},
}

func init() {
	infoCmd.Flags().Bool("verify", false, "Recompute and compare the recorded checksum")
}

func printMetadata(m *card.Metadata) {
	field := func(key, value string) {
		if value != "" {
			fmt.Println(colorize.CyanString("%-18s", key+":") + colorize.HiWhiteString("%s", value))
		}
	}

	field("Name", m.Name)
	field("Card ID", m.CardID)
	field("Standards version", m.StandardsVersion)
	field("Description", m.Description)
	field("Created", m.CreatedAt)
	field("Modified", m.ModifiedAt)
	field("Theme", m.Theme)
	field("Visibility", m.Visibility)
	field("License", m.License)
	field("Age rating", m.AgeRating)
	field("Tags", strings.Join(m.Tags, ", "))
	if fi := m.FileInfo; fi != nil {
		field("Files", fmt.Sprintf("%d (%s)", fi.FileCount, humanize.Bytes(uint64(fi.TotalSize))))
		field("Generated", fi.GeneratedAt)
		field("Checksum", fi.Checksum)
	}
}
