package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	require.Equal(t, 300*time.Millisecond, cfg.Client.Debounce())
	require.Equal(t, 10*time.Second, cfg.Client.FetchTimeout())
	require.Equal(t, 30*time.Second, cfg.Client.OverallTimeout())
	require.Equal(t, time.Hour, cfg.Cache.Expiry())
	require.Equal(t, 3, cfg.Client.MaxRetries)
	require.Equal(t, 50, cfg.Cache.MaxSize)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[client]
backend = "local"
max_retries = 5

[cache]
backend = "sqlite"
max_size = 10
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "local", cfg.Client.Backend)
	require.Equal(t, 5, cfg.Client.MaxRetries)
	require.Equal(t, "sqlite", cfg.Cache.Backend)
	require.Equal(t, 10, cfg.Cache.MaxSize)
	// untouched keys keep their defaults
	require.Equal(t, 300, cfg.Client.DebounceMS)
	require.Equal(t, ":3000", cfg.Server.Addr)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("KAEXTRACT_CLIENT_API_URL", "http://api.test:8080")
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://api.test:8080", cfg.Client.APIURL)
}

func TestExampleConfigLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kaextract", "config.toml")
	require.NoError(t, Default().CreateExampleConfig(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	require.Equal(t, *Default(), *cfg)
}

func TestValidateRejects(t *testing.T) {
	cfg := Default()
	cfg.Client.MaxRetries = 0
	cfg.Cache.Backend = "redis"
	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "max_retries")
	require.Contains(t, err.Error(), "cache.backend")
}
