package cmd

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/arcanaland/cardpack/internal/config"
)

// configCmd represents the config command group
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change the cardpack configuration",
	Long: `Commands for the configuration file that supplies the defaults of pack,
unpack and logging. The file lives at $XDG_CONFIG_HOME/cardpack/config.toml
and is created with default values on first use.`,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the location of the config file",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(config.GetConfigFilePath())
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if jsonOutput {
			return printJSON(cfg)
		}
		return toml.NewEncoder(os.Stdout).Encode(cfg)
	},
}

// configSetCmd represents the config set command
var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Change a single setting",
	Long: `Set changes one setting and writes the config file.

Examples:
  cardpack config set pack.checksum true
  cardpack config set pack.exclude "**/*.psd,drafts/**"`,
	Args:      cobra.ExactArgs(2),
	ValidArgs: config.Keys,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}

		configPath := config.GetConfigFilePath()
		if err := config.Save(configPath, cfg); err != nil {
			return err
		}

		fmt.Printf("%s set to %s in %s\n", args[0], args[1], configPath)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configPathCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
