package config

import (
	"encoding/json"
	"os"

	"github.com/godiscuss/godiscuss/internal/flagx"
	"github.com/godiscuss/godiscuss/internal/timex"
)

type jsonConfig struct {
	ListenAddr     string         `json:"listen_addr"`
	CookieSecret   string         `json:"cookie_secret"`
	CookieMode     string         `json:"cookie_mode"`
	SessionTTL     timex.Duration `json:"session_ttl"`
	StoreBackend   string         `json:"store_backend"`
	RedisAddr      string         `json:"redis_addr"`
	AllowedOrigins []string       `json:"allowed_origins"`
}

// parseJSON overlays cfg with values from the JSON file named by -c/-config.
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

func applyJSON(cfg *Config, jc jsonConfig) {
	if jc.ListenAddr != "" {
		cfg.ListenAddr = jc.ListenAddr
	}
	if jc.CookieSecret != "" {
		cfg.CookieSecret = jc.CookieSecret
	}
	if jc.CookieMode != "" {
		cfg.CookieMode = jc.CookieMode
	}
	if jc.SessionTTL.Duration != 0 {
		cfg.SessionTTL = jc.SessionTTL.Duration
	}
	if jc.StoreBackend != "" {
		cfg.StoreBackend = jc.StoreBackend
	}
	if jc.RedisAddr != "" {
		cfg.RedisAddr = jc.RedisAddr
	}
	if len(jc.AllowedOrigins) > 0 {
		cfg.AllowedOrigins = jc.AllowedOrigins
	}
}
