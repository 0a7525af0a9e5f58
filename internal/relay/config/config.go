// Package config loads the session relay's runtime settings with the same
// layering as the client: defaults, optional JSON file, command-line flags.
package config

import "time"

// Config holds runtime settings for the session relay.
//
// CookieMode selects how upstream sessions survive between requests:
//   - "store": the cookie carries a signed opaque id; the upstream value
//     lives in the session store (memory or redis).
//   - "sealed": the upstream value is encrypted into the cookie itself and
//     the relay keeps no state.
type Config struct {
	ListenAddr     string
	CookieSecret   string
	CookieMode     string
	SessionTTL     time.Duration
	StoreBackend   string
	RedisAddr      string
	AllowedOrigins []string
}

const (
	CookieModeStore  = "store"
	CookieModeSealed = "sealed"

	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ListenAddr = ":8080"
	c.CookieSecret = ""
	c.CookieMode = CookieModeStore
	c.SessionTTL = 24 * time.Hour
	c.StoreBackend = StoreBackendMemory
	c.RedisAddr = ""
	c.AllowedOrigins = []string{"*"}
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
