// ABOUTME: Sync configuration and device identity for the TradeHand client
// ABOUTME: Handles config storage at XDG paths, environment overrides, and device ID generation
package syncmgr

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
)

// DefaultMaxRetries bounds transient retries per operation before the entry
// is surfaced as failed. 0 disables the ceiling.
const DefaultMaxRetries = 5

// Config stores API server credentials and synchronization settings.
type Config struct {
	Server     string `json:"server"`
	Token      string `json:"token,omitempty"`
	DeviceID   string `json:"device_id"`
	DataDir    string `json:"data_dir,omitempty"`
	AutoSync   bool   `json:"auto_sync"`
	MaxRetries int    `json:"max_retries"`
}

// ConfigDir returns the XDG-compliant directory for TradeHand data.
func ConfigDir() string {
	return filepath.Join(xdg.DataHome, "tradehand")
}

// ConfigPath returns the XDG-compliant path for the sync configuration.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "sync-config.json")
}

// LoadConfig loads sync configuration from the XDG data directory.
// Returns a default config if the file is not found. Environment variables
// override file values:
// - TRADEHAND_SERVER
// - TRADEHAND_TOKEN
// - TRADEHAND_DEVICE_ID
// - TRADEHAND_DATA_DIR
// - TRADEHAND_AUTO_SYNC
// - TRADEHAND_MAX_RETRIES.
func LoadConfig() (*Config, error) {
	path := ConfigPath()

	// Auto-sync defaults on: queued changes should drain as soon as
	// connectivity returns, without the user opting in.
	cfg := &Config{
		DataDir:    ConfigDir(),
		AutoSync:   true,
		MaxRetries: DefaultMaxRetries,
	}

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open sync config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode sync config: %w", err)
	}
	if cfg.DataDir == "" {
		cfg.DataDir = ConfigDir()
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if server := os.Getenv("TRADEHAND_SERVER"); server != "" {
		cfg.Server = server
	}
	if token := os.Getenv("TRADEHAND_TOKEN"); token != "" {
		cfg.Token = token
	}
	if deviceID := os.Getenv("TRADEHAND_DEVICE_ID"); deviceID != "" {
		cfg.DeviceID = deviceID
	}
	if dataDir := os.Getenv("TRADEHAND_DATA_DIR"); dataDir != "" {
		cfg.DataDir = dataDir
	}
	if autoSync := os.Getenv("TRADEHAND_AUTO_SYNC"); autoSync != "" {
		cfg.AutoSync = autoSync == "true" || autoSync == "1"
	}
	if maxRetries := os.Getenv("TRADEHAND_MAX_RETRIES"); maxRetries != "" {
		if n, err := strconv.Atoi(maxRetries); err == nil && n >= 0 {
			cfg.MaxRetries = n
		}
	}
}

// SaveConfig saves sync configuration to the XDG data directory.
func SaveConfig(cfg *Config) error {
	path := ConfigPath()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Restricted permissions: the file carries the API token
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode sync config: %w", err)
	}

	return nil
}

// IsConfigured checks whether a sync server has been set up.
func (c *Config) IsConfigured() bool {
	return c.Server != ""
}

// QueuePath returns the directory for the offline queue's BadgerDB.
func (c *Config) QueuePath() string {
	return filepath.Join(c.DataDir, "queue")
}

// DatabasePath returns the path of the local SQLite mirror.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "tradehand.db")
}

// GenerateDeviceID generates a new ULID for device identification.
func GenerateDeviceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
