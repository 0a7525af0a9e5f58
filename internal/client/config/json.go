package config

import (
	"encoding/json"
	"os"

	"github.com/godiscuss/godiscuss/internal/flagx"
	"github.com/godiscuss/godiscuss/internal/timex"
)

// jsonConfig is the file-format DTO. Durations accept either strings like
// "2s" or integer nanoseconds.
type jsonConfig struct {
	RelayURL             string         `json:"relay_url"`
	ServerURL            string         `json:"server_url"`
	Database             string         `json:"database"`
	DBPath               string         `json:"db_path"`
	NotificationsURL     string         `json:"notifications_url"`
	ReconnectBase        timex.Duration `json:"reconnect_base"`
	MaxReconnectAttempts int            `json:"max_reconnect_attempts"`
}

// parseJSON overlays cfg with values from the JSON file named by -c/-config.
// Absent flags mean no file is read; read or unmarshal errors panic, since
// a misnamed config file should not silently fall back to defaults.
func parseJSON(cfg *Config) {
	path := flagx.JSONConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}
	var jc jsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}
	applyJSON(cfg, jc)
}

// applyJSON copies set fields from the DTO onto cfg; zero values mean the
// field was absent and the existing value stands.
func applyJSON(cfg *Config, jc jsonConfig) {
	if jc.RelayURL != "" {
		cfg.RelayURL = jc.RelayURL
	}
	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.Database != "" {
		cfg.Database = jc.Database
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.NotificationsURL != "" {
		cfg.NotificationsURL = jc.NotificationsURL
	}
	if jc.ReconnectBase.Duration != 0 {
		cfg.ReconnectBase = jc.ReconnectBase.Duration
	}
	if jc.MaxReconnectAttempts != 0 {
		cfg.MaxReconnectAttempts = jc.MaxReconnectAttempts
	}
}
