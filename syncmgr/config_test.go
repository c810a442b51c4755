// ABOUTME: Tests for sync configuration management
// ABOUTME: Covers XDG path handling, config persistence, env overrides, and device ID generation
package syncmgr

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigPath(t *testing.T) {
	path := ConfigPath()

	expectedBase := filepath.Join(xdg.DataHome, "tradehand")
	assert.True(t, strings.HasPrefix(path, expectedBase), "path should be under XDG data home")
	assert.Equal(t, "sync-config.json", filepath.Base(path))
}

func TestLoadConfig_NotFound(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	cfg, err := LoadConfig()
	require.NoError(t, err, "LoadConfig should not error when file not found")
	require.NotNil(t, cfg)

	assert.Empty(t, cfg.Server)
	assert.Empty(t, cfg.Token)
	assert.Equal(t, ConfigDir(), cfg.DataDir, "should default DataDir to the XDG dir")
	assert.Equal(t, DefaultMaxRetries, cfg.MaxRetries)
	assert.True(t, cfg.AutoSync, "auto-sync is on unless explicitly disabled")
	assert.False(t, cfg.IsConfigured())
}

func TestSaveAndLoadConfig(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	original := &Config{
		Server:     "https://api.tradehand.example",
		Token:      "token456",
		DeviceID:   GenerateDeviceID(),
		DataDir:    "/tmp/tradehand-test",
		AutoSync:   true,
		MaxRetries: 3,
	}

	require.NoError(t, SaveConfig(original))

	info, err := os.Stat(ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm(), "config carries the token, keep it private")

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, original, loaded)
	assert.True(t, loaded.IsConfigured())
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	t.Setenv("TRADEHAND_SERVER", "https://override.example")
	t.Setenv("TRADEHAND_TOKEN", "env-token")
	t.Setenv("TRADEHAND_AUTO_SYNC", "1")
	t.Setenv("TRADEHAND_MAX_RETRIES", "9")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://override.example", cfg.Server)
	assert.Equal(t, "env-token", cfg.Token)
	assert.True(t, cfg.AutoSync)
	assert.Equal(t, 9, cfg.MaxRetries)
}

func TestLoadConfigAutoSyncDisabledByEnv(t *testing.T) {
	origHome := xdg.DataHome
	xdg.DataHome = t.TempDir()
	defer func() { xdg.DataHome = origHome }()

	t.Setenv("TRADEHAND_AUTO_SYNC", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, cfg.AutoSync)
}

func TestConfigDerivedPaths(t *testing.T) {
	cfg := &Config{DataDir: "/data/tradehand"}
	assert.Equal(t, "/data/tradehand/queue", cfg.QueuePath())
	assert.Equal(t, "/data/tradehand/tradehand.db", cfg.DatabasePath())
}

func TestGenerateDeviceID(t *testing.T) {
	id := GenerateDeviceID()

	parsed, err := ulid.Parse(id)
	require.NoError(t, err, "device ID should be a valid ULID")
	assert.NotEqual(t, ulid.ULID{}, parsed)

	assert.NotEqual(t, id, GenerateDeviceID(), "device IDs should be unique")
}
