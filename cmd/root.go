package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/archive"
	"github.com/arcanaland/cardpack/internal/config"
	"github.com/arcanaland/cardpack/internal/fsys"
	"github.com/arcanaland/cardpack/internal/packer"
)

var (
	verbose    bool
	jsonOutput bool

	cfg    = config.Default()
	logger = log.NewWithOptions(os.Stderr, log.Options{Prefix: "cardpack"})
)

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "cardpack",
	Short: "Tool for packing, unpacking and validating card projects",
	Long: `Cardpack is a command-line tool for turning card project directories into
single-file card archives and back. It validates projects and archives against
the card format and reports what is wrong with them.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}
		cfg = loaded

		level, err := log.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = log.InfoLevel
			logger.Warn("unknown log level in config", "level", cfg.Log.Level)
		}
		if verbose {
			level = log.DebugLevel
		}
		logger.SetLevel(level)
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	RootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print results as JSON")

	RootCmd.AddCommand(packCmd)
	RootCmd.AddCommand(unpackCmd)
	RootCmd.AddCommand(validateCmd)
	RootCmd.AddCommand(infoCmd)
	RootCmd.AddCommand(compatCmd)
	RootCmd.AddCommand(initCmd)
	RootCmd.AddCommand(showCmd)
	RootCmd.AddCommand(configCmd)
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// errReported marks a failure whose details were already printed.
var errReported = errors.New("failure already reported")

// Reported reports whether err was already shown to the user.
func Reported(err error) bool {
	return errors.Is(err, errReported)
}

func newPacker(opts ...packer.Option) *packer.Packer {
	return packer.New(fsys.NewOS(), archive.NewZip(), append([]packer.Option{packer.WithLogger(logger)}, opts...)...)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// fail renders err as a failure result in JSON mode, otherwise returns it
// unchanged for main to print.
func fail(err error) error {
	if !jsonOutput {
		if details := packer.Describe(err).Details; len(details) > 0 {
			return fmt.Errorf("%w\n  %s", err, strings.Join(details, "\n  "))
		}
		return err
	}
	if perr := printJSON(map[string]any{
		"success": false,
		"error":   packer.Describe(err),
	}); perr != nil {
		return perr
	}
	return fmt.Errorf("%w: %w", errReported, err)
}
