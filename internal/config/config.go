package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultMaxResourceSize is the default per-file limit for pack (100 MiB).
const DefaultMaxResourceSize int64 = 100 * 1024 * 1024

// Config represents the application configuration
type Config struct {
	Pack   PackConfig   `toml:"pack"`
	Unpack UnpackConfig `toml:"unpack"`
	Log    LogConfig    `toml:"log"`
}

// PackConfig holds the defaults for `cardpack pack`.
type PackConfig struct {
	Validate        bool     `toml:"validate"`
	Checksum        bool     `toml:"checksum"`
	IncludeHidden   bool     `toml:"include_hidden"`
	MaxResourceSize int64    `toml:"max_resource_size"`
	Exclude         []string `toml:"exclude"`
}

// UnpackConfig holds the defaults for `cardpack unpack`.
type UnpackConfig struct {
	Overwrite bool `toml:"overwrite"`
	Validate  bool `toml:"validate"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Pack: PackConfig{
			Validate:        true,
			MaxResourceSize: DefaultMaxResourceSize,
			Exclude:         []string{},
		},
		Unpack: UnpackConfig{
			Validate: true,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// GetXDGConfigHome returns XDG_CONFIG_HOME or default path
func GetXDGConfigHome() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return xdgConfig
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".config")
}

// GetConfigFilePath returns the path to the config file
func GetConfigFilePath() string {
	return filepath.Join(GetXDGConfigHome(), "cardpack", "config.toml")
}

// LoadConfig loads the config file, creating a default one on first use.
func LoadConfig() (*Config, error) {
	return LoadConfigFrom(GetConfigFilePath())
}

// LoadConfigFrom loads the config file at configPath. Keys missing from the
// file keep their default values.
func LoadConfigFrom(configPath string) (*Config, error) {
	// Create default config if it doesn't exist
	if _, err := os.Stat(configPath); errors.Is(err, fs.ErrNotExist) {
		return createDefaultConfig(configPath)
	}

	config := Default()
	if _, err := toml.DecodeFile(configPath, config); err != nil {
		return nil, fmt.Errorf("error decoding config file: %w", err)
	}
	if config.Pack.MaxResourceSize < 0 {
		return nil, fmt.Errorf("pack.max_resource_size must not be negative, got %d", config.Pack.MaxResourceSize)
	}

	return config, nil
}

// createDefaultConfig creates a default config file
func createDefaultConfig(configPath string) (*Config, error) {
	config := Default()
	if err := Save(configPath, config); err != nil {
		return nil, err
	}
	return config, nil
}

// Save writes config to configPath as TOML.
func Save(configPath string, config *Config) error {
	// Ensure the config directory exists
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	file, err := os.Create(configPath)
	if err != nil {
		return fmt.Errorf("error creating config file: %w", err)
	}
	defer file.Close()

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return nil
}

// Keys lists the settings accepted by Set.
var Keys = []string{
	"pack.validate",
	"pack.checksum",
	"pack.include_hidden",
	"pack.max_resource_size",
	"pack.exclude",
	"unpack.overwrite",
	"unpack.validate",
	"log.level",
}

// Set assigns a single setting from its string form. pack.exclude takes a
// comma-separated list.
func (c *Config) Set(key, value string) error {
	parseBool := func(dst *bool) error {
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%s expects true or false, got %q", key, value)
		}
		*dst = b
		return nil
	}

	switch key {
	case "pack.validate":
		return parseBool(&c.Pack.Validate)
	case "pack.checksum":
		return parseBool(&c.Pack.Checksum)
	case "pack.include_hidden":
		return parseBool(&c.Pack.IncludeHidden)
	case "pack.max_resource_size":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil || n < 0 {
			return fmt.Errorf("%s expects a non-negative byte count, got %q", key, value)
		}
		c.Pack.MaxResourceSize = n
	case "pack.exclude":
		c.Pack.Exclude = []string{}
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				c.Pack.Exclude = append(c.Pack.Exclude, p)
			}
		}
	case "unpack.overwrite":
		return parseBool(&c.Unpack.Overwrite)
	case "unpack.validate":
		return parseBool(&c.Unpack.Validate)
	case "log.level":
		switch value {
		case "debug", "info", "warn", "error":
			c.Log.Level = value
		default:
			return fmt.Errorf("%s expects debug, info, warn or error, got %q", key, value)
		}
	default:
		return fmt.Errorf("unknown setting %q (known: %s)", key, strings.Join(Keys, ", "))
	}
	return nil
}
