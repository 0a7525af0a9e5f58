package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.ListenAddr)
	assert.Equal(t, CookieModeStore, c.CookieMode)
	assert.Equal(t, StoreBackendMemory, c.StoreBackend)
	assert.Equal(t, 24*time.Hour, c.SessionTTL)
	assert.Equal(t, []string{"*"}, c.AllowedOrigins)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, CookieModeStore, cfg.CookieMode)
}

func TestParseJSONOverlaysOnlyProvidedFields(t *testing.T) {
	var c Config
	c.LoadDefaults()

	applyJSON(&c, jsonConfig{CookieMode: CookieModeSealed, RedisAddr: "127.0.0.1:6379"})

	assert.Equal(t, CookieModeSealed, c.CookieMode)
	assert.Equal(t, "127.0.0.1:6379", c.RedisAddr)
	assert.Equal(t, ":8080", c.ListenAddr, "absent JSON fields keep defaults")
}
