package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigCreatesDefault(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	_, err = os.Stat(GetConfigFilePath())
	require.NoError(t, err)

	again, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg.Pack.MaxResourceSize, again.Pack.MaxResourceSize)
	assert.True(t, again.Pack.Validate)
	assert.True(t, again.Unpack.Validate)
	assert.Equal(t, "info", again.Log.Level)
}

func TestGetConfigFilePath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	assert.Equal(t, filepath.Join("/xdg", "cardpack", "config.toml"), GetConfigFilePath())
}

func TestLoadConfigFromPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[pack]
checksum = true
exclude = ["**/*.psd", "drafts/**"]

[log]
level = "debug"
`), 0644))

	cfg, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.True(t, cfg.Pack.Checksum)
	assert.True(t, cfg.Pack.Validate, "unset keys keep defaults")
	assert.Equal(t, DefaultMaxResourceSize, cfg.Pack.MaxResourceSize)
	assert.Equal(t, []string{"**/*.psd", "drafts/**"}, cfg.Pack.Exclude)
	assert.False(t, cfg.Unpack.Overwrite)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadConfigFromInvalid(t *testing.T) {
	dir := t.TempDir()

	broken := filepath.Join(dir, "broken.toml")
	require.NoError(t, os.WriteFile(broken, []byte("[pack\n"), 0644))
	_, err := LoadConfigFrom(broken)
	assert.ErrorContains(t, err, "error decoding config file")

	negative := filepath.Join(dir, "negative.toml")
	require.NoError(t, os.WriteFile(negative, []byte("[pack]\nmax_resource_size = -1\n"), 0644))
	_, err = LoadConfigFrom(negative)
	assert.ErrorContains(t, err, "max_resource_size")
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := Default()
	cfg.Unpack.Overwrite = true
	cfg.Pack.Exclude = []string{"*.tmp"}
	require.NoError(t, Save(path, cfg))

	loaded, err := LoadConfigFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSet(t *testing.T) {
	tests := []struct {
		key, value string
		check      func(t *testing.T, c *Config)
		wantErr    bool
	}{
		{key: "pack.checksum", value: "true", check: func(t *testing.T, c *Config) { assert.True(t, c.Pack.Checksum) }},
		{key: "pack.validate", value: "false", check: func(t *testing.T, c *Config) { assert.False(t, c.Pack.Validate) }},
		{key: "pack.max_resource_size", value: "2048", check: func(t *testing.T, c *Config) {
			assert.Equal(t, int64(2048), c.Pack.MaxResourceSize)
		}},
		{key: "pack.exclude", value: "*.psd, drafts/** ,", check: func(t *testing.T, c *Config) {
			assert.Equal(t, []string{"*.psd", "drafts/**"}, c.Pack.Exclude)
		}},
		{key: "unpack.overwrite", value: "1", check: func(t *testing.T, c *Config) { assert.True(t, c.Unpack.Overwrite) }},
		{key: "log.level", value: "debug", check: func(t *testing.T, c *Config) { assert.Equal(t, "debug", c.Log.Level) }},
		{key: "pack.checksum", value: "maybe", wantErr: true},
		{key: "pack.max_resource_size", value: "-5", wantErr: true},
		{key: "log.level", value: "loud", wantErr: true},
		{key: "default_deck", value: "x", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			c := Default()
			err := c.Set(tt.key, tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, Default(), c)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}
