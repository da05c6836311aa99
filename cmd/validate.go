package cmd

import (
	"fmt"

	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/validator"
)

// validateCmd represents the validate command
var validateCmd = &cobra.Command{
	Use:   "validate <project-dir|archive>",
	Short: "Validate a card project directory or card archive",
	Long: `Validate checks a card project directory or a card archive. It verifies the
directory layout, the required config documents, their formats and every base
card referenced from the structure document.

Use --level to run a single group of checks: directory, file, reference or full.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		levelFlag, _ := cmd.Flags().GetString("level")
		level, err := validator.ParseLevel(levelFlag)
		if err != nil {
			return err
		}

		report := newPacker().Validate(args[0], validator.Options{Level: level})

		if jsonOutput {
			if err := printJSON(report); err != nil {
				return err
			}
			if !report.Valid {
				return errReported
			}
			return nil
		}

		fmt.Println("Validation Results:")
		fmt.Println("-------------------")
		printReport(report)
		if !report.Valid {
			return fmt.Errorf("validation failed")
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().StringP("level", "l", string(validator.LevelFull), "Validation level: directory, file, reference or full")
}

// printReport prints errors first, then warnings and notes.
func printReport(report validator.Report) {
	errs := report.Failures(validator.SeverityError)
	if len(errs) == 0 {
		fmt.Printf("✅ '%s' is valid (%s checks).\n", report.Source, report.Level)
	} else {
		fmt.Printf("❌ '%s' has %d validation errors:\n", report.Source, len(errs))
		for i, msg := range validator.Messages(errs) {
			fmt.Printf("%d. %s\n", i+1, colorize.RedString("%s", msg))
		}
	}

	if warnings := report.Failures(validator.SeverityWarning); len(warnings) > 0 {
		fmt.Println("\nWarnings:")
		for i, msg := range validator.Messages(warnings) {
			fmt.Printf("%d. %s\n", i+1, colorize.YellowString("%s", msg))
		}
	}

	if notes := report.Failures(validator.SeverityInfo); len(notes) > 0 && verbose {
		fmt.Println("\nNotes:")
		for _, msg := range validator.Messages(notes) {
			fmt.Printf("- %s\n", msg)
		}
	}
}
