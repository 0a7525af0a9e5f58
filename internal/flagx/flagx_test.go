package flagx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilterArgsSeparateValue(t *testing.T) {
	got := FilterArgs([]string{"-a", "localhost:8080", "-x", "ignored"}, []string{"-a"})
	require.Equal(t, []string{"-a", "localhost:8080"}, got)
}

func TestFilterArgsEqualsForm(t *testing.T) {
	got := FilterArgs([]string{"--config=conf.json", "-other=1"}, []string{"--config"})
	require.Equal(t, []string{"--config=conf.json"}, got)
}

func TestFilterArgsBoolFlagFollowedByFlag(t *testing.T) {
	got := FilterArgs([]string{"-v", "-a", "addr"}, []string{"-v", "-a"})
	require.Equal(t, []string{"-v", "-a", "addr"}, got)
}

func TestFilterArgsEmpty(t *testing.T) {
	got := FilterArgs(nil, []string{"-a"})
	require.Empty(t, got)
}
