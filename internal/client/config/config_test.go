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

	assert.Empty(t, c.RelayURL)
	assert.Empty(t, c.ServerURL)
	assert.NotEmpty(t, c.DBPath)
	assert.Equal(t, time.Second, c.ReconnectBase)
	assert.Equal(t, 5, c.MaxReconnectAttempts)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	cfg := LoadConfig()

	require.NotNil(t, cfg, "LoadConfig must not return nil")
	assert.Equal(t, time.Second, cfg.ReconnectBase)
	assert.Equal(t, 5, cfg.MaxReconnectAttempts)
}

func TestParseJSONOverlaysOnlyProvidedFields(t *testing.T) {
	var c Config
	c.LoadDefaults()

	jc := jsonConfig{RelayURL: "http://relay.test", MaxReconnectAttempts: 8}
	applyJSON(&c, jc)

	assert.Equal(t, "http://relay.test", c.RelayURL)
	assert.Equal(t, 8, c.MaxReconnectAttempts)
	assert.Equal(t, time.Second, c.ReconnectBase, "absent JSON fields keep defaults")
}
