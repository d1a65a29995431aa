package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
bind = "0.0.0.0:9000"
difficulty = 6
auth_cache_ttl = "30s"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "0.0.0.0:9000", cfg.Server.Bind)
	require.Equal(t, 6, cfg.Server.Difficulty)
	require.Equal(t, Duration(30*time.Second), cfg.Server.AuthCacheTTL)
	// Unset fields keep their defaults.
	require.Equal(t, "./chaindata", cfg.Server.ChainDir)
	require.Equal(t, uint64(200_000), cfg.Server.NonceRangeSize)
}

func TestLoadRejectsUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[server]
bind = "0.0.0.0:9000"
nonexistent_field = true
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestDurationUnmarshalText(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("500ms")))
	require.Equal(t, Duration(500*time.Millisecond), d)

	require.Error(t, d.UnmarshalText([]byte("not-a-duration")))
}

func TestDefaultsMatchSampleConfig(t *testing.T) {
	cfg := Defaults()
	require.Equal(t, "127.0.0.1:65432", cfg.Server.Bind)
	require.Equal(t, 4, cfg.Server.Difficulty)
	require.Equal(t, "info", cfg.Server.LogLevel)
}
