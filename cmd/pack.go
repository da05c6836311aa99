package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	colorize "github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/packer"
)

// ArchiveExt is appended to the project name when no output path is given.
const ArchiveExt = ".card"

var packCmd = &cobra.Command{
	Use:   "pack <project-dir> [output]",
	Short: "Pack a card project directory into a card archive",
	Long: `Pack validates a card project and writes it as a single uncompressed archive.
The metadata document inside the archive gets a fresh modified_at and file_info;
the project directory itself is left untouched.

Defaults come from the [pack] section of the config file; flags override them.

Examples:
  cardpack pack ./my-card
  cardpack pack ./my-card dist/my-card.card --checksum
  cardpack pack ./my-card --exclude "**/*.psd" --exclude "drafts/**"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := defaultArchivePath(source)
		if len(args) == 2 {
			output = args[1]
		}

		opts := packOptions(cmd)
		p := newPacker(packer.WithProgress(logProgress))
		result, err := p.Pack(source, output, opts)
		if err != nil {
			return fail(err)
		}

		if jsonOutput {
			return printJSON(result)
		}
		fmt.Printf("✅ Packed %s -> %s\n", source, colorize.HiWhiteString("%s", result.OutputPath))
		fmt.Printf("   %d files, %s in %s\n", result.FileCount,
			humanize.Bytes(uint64(result.FileSize)), result.Duration.Round(1e6))
		if result.Checksum != "" {
			fmt.Printf("   checksum %s\n", result.Checksum)
		}
		return nil
	},
}

func init() {
	addPackFlags(packCmd)
}

func addPackFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("no-validate", false, "Skip validating the project before packing")
	cmd.Flags().Bool("checksum", false, "Record a content checksum in file_info")
	cmd.Flags().Bool("include-hidden", false, "Include dot files and dot directories")
	cmd.Flags().StringSlice("exclude", nil, "Glob of project paths to leave out (repeatable)")
	cmd.Flags().Int64("max-size", 0, "Largest allowed resource in bytes (0 disables the limit)")
}

// packOptions starts from the config file and applies explicitly set flags.
func packOptions(cmd *cobra.Command) packer.PackOptions {
	opts := packer.PackOptions{
		Validate:        cfg.Pack.Validate,
		Checksum:        cfg.Pack.Checksum,
		IncludeHidden:   cfg.Pack.IncludeHidden,
		Exclude:         append([]string(nil), cfg.Pack.Exclude...),
		MaxResourceSize: cfg.Pack.MaxResourceSize,
	}

	flags := cmd.Flags()
	if flags.Changed("no-validate") {
		noValidate, _ := flags.GetBool("no-validate")
		opts.Validate = !noValidate
	}
	if flags.Changed("checksum") {
		opts.Checksum, _ = flags.GetBool("checksum")
	}
	if flags.Changed("include-hidden") {
		opts.IncludeHidden, _ = flags.GetBool("include-hidden")
	}
	if flags.Changed("exclude") {
		extra, _ := flags.GetStringSlice("exclude")
		opts.Exclude = append(opts.Exclude, extra...)
	}
	if flags.Changed("max-size") {
		opts.MaxResourceSize, _ = flags.GetInt64("max-size")
	}
	return opts
}

func defaultArchivePath(source string) string {
	name := filepath.Base(filepath.Clean(source))
	if name == "." || name == string(filepath.Separator) {
		name = "card"
	}
	return strings.TrimSuffix(name, ArchiveExt) + ArchiveExt
}

func logProgress(p packer.Progress) error {
	if p.Total > 0 {
		logger.Debug(string(p.Stage), "file", p.Path, "current", p.Current, "total", p.Total)
	} else {
		logger.Debug(string(p.Stage), "path", p.Path)
	}
	return nil
}
