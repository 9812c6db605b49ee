package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCommandDefaults(t *testing.T) {
	var captured *Config
	cmd := NewCommand(func(cfg *Config) error {
		captured = cfg
		return nil
	})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, captured)

	assert.Equal(t, "/tmp/trl.sock", captured.SocketPath)
	assert.Equal(t, 64, captured.MaxSessions)
	assert.Equal(t, uint64(60), captured.DefaultTimeoutS)
	assert.Equal(t, 4*1024*1024, captured.MaxOutputBytes)
	assert.Equal(t, uint64(300), captured.ChildCPUSec)
	assert.False(t, captured.AllowRoot)
}

func TestNewCommandFlagOverride(t *testing.T) {
	var captured *Config
	cmd := NewCommand(func(cfg *Config) error {
		captured = cfg
		return nil
	})
	cmd.SetArgs([]string{"--max-sessions", "8", "--allow-root"})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, captured)

	assert.Equal(t, 8, captured.MaxSessions)
	assert.True(t, captured.AllowRoot)
}

func TestNewCommandEnvOverride(t *testing.T) {
	t.Setenv("TRL_MAX_SESSIONS", "12")

	var captured *Config
	cmd := NewCommand(func(cfg *Config) error {
		captured = cfg
		return nil
	})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.NotNil(t, captured)
	assert.Equal(t, 12, captured.MaxSessions)
}
