package models

import (
	"os"
	"strconv"
	"time"

	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Sync Configuration
//
// Loads sync settings from environment variables. When SQLCODEX_SYNC_ENABLED
// is true, the spoke instance runs a background goroutine that periodically
// reconciles the local store with the hub.
// ============================================================================

// SyncConfig holds the configuration for the sync runner. All values come
// from environment variables to keep deployment configuration external to
// the binary.
type SyncConfig struct {
	Enabled  bool          // Whether sync is active (SQLCODEX_SYNC_ENABLED)
	HubURL   string        // Base URL of the hub instance (SQLCODEX_SYNC_HUB_URL)
	Username string        // Authentication username (SQLCODEX_SYNC_USERNAME)
	Password string        // Authentication password (SQLCODEX_SYNC_PASSWORD)
	Interval time.Duration // Polling interval between sync passes (SQLCODEX_SYNC_INTERVAL)
}

// defaultSyncInterval is used when SQLCODEX_SYNC_INTERVAL is not set.
const defaultSyncInterval = 5 * time.Minute

// LoadSyncConfig reads sync configuration from environment variables.
// Returns a config even when sync is disabled so callers can inspect the
// state without nil checks.
func LoadSyncConfig() (*SyncConfig, error) {
	cfg := &SyncConfig{
		Interval: defaultSyncInterval,
	}

	if enabledStr := os.Getenv("SQLCODEX_SYNC_ENABLED"); enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid SQLCODEX_SYNC_ENABLED value, expected true/false")
		}
		cfg.Enabled = enabled
	}

	cfg.HubURL = os.Getenv("SQLCODEX_SYNC_HUB_URL")
	cfg.Username = os.Getenv("SQLCODEX_SYNC_USERNAME")
	cfg.Password = os.Getenv("SQLCODEX_SYNC_PASSWORD")

	if intervalStr := os.Getenv("SQLCODEX_SYNC_INTERVAL"); intervalStr != "" {
		interval, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, serr.Wrap(err, "invalid SQLCODEX_SYNC_INTERVAL value, expected duration like '5m' or '30s'")
		}
		cfg.Interval = interval
	}

	return cfg, nil
}

// Validate checks that all required fields are present when sync is enabled.
// Called before starting the sync runner to fail fast on misconfiguration
// rather than discovering missing credentials mid-pass.
func (c *SyncConfig) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.HubURL == "" {
		return serr.New("SQLCODEX_SYNC_HUB_URL is required when sync is enabled")
	}
	if c.Username == "" {
		return serr.New("SQLCODEX_SYNC_USERNAME is required when sync is enabled")
	}
	if c.Password == "" {
		return serr.New("SQLCODEX_SYNC_PASSWORD is required when sync is enabled")
	}
	if c.Interval < 10*time.Second {
		return serr.New("SQLCODEX_SYNC_INTERVAL must be at least 10s to avoid overwhelming the hub")
	}

	return nil
}
