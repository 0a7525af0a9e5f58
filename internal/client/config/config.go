// Package config loads the messaging client's runtime settings.
// Sources are layered: built-in defaults, then an optional JSON file
// (-c/-config), then command-line flags. Later sources win.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the messaging client.
//
// RelayURL is the session relay the client talks through; when empty the
// client calls ServerURL directly and manages the session cookie itself.
type Config struct {
	RelayURL             string
	ServerURL            string
	Database             string
	DBPath               string
	NotificationsURL     string
	ReconnectBase        time.Duration
	MaxReconnectAttempts int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.RelayURL = ""
	c.ServerURL = ""
	c.Database = ""
	c.DBPath = defaultDBPath()
	c.NotificationsURL = ""
	c.ReconnectBase = time.Second
	c.MaxReconnectAttempts = 5
}

func defaultDBPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "discuss.db"
	}
	return filepath.Join(dir, "godiscuss", "discuss.db")
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJSON(cfg)
	parseFlags(cfg)
	return cfg
}
