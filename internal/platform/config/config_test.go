package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ADMIN_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Empty(t, cfg.AdminKey)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.SweepInterval)
	assert.Equal(t, 5*time.Minute, cfg.StaleAfter)
	assert.Equal(t, 30*time.Second, cfg.PublishInterval)
	assert.False(t, cfg.BroadcastOnUpdate)
	assert.Equal(t, 10000, cfg.MaxWebSocketConnections)
	assert.Equal(t, 100, cfg.MaxConnectionsPerIP)
	assert.InDelta(t, 10.0, cfg.ConnectionsPerSecond, 0.001)
	assert.Equal(t, 20, cfg.ConnectionBurst)
	assert.Equal(t, int64(4096), cfg.MaxMessageBytes)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("PORT", "9000")
	t.Setenv("ADMIN_KEY", "hunter2")
	t.Setenv("APP_URL", "https://relay.example.com")
	t.Setenv("SWEEP_INTERVAL", "10s")
	t.Setenv("STALE_AFTER", "2m")
	t.Setenv("PUBLISH_INTERVAL", "1s")
	t.Setenv("BROADCAST_ON_UPDATE", "true")
	t.Setenv("MAX_MESSAGE_BYTES", "65536")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "hunter2", cfg.AdminKey)
	assert.Equal(t, "https://relay.example.com", cfg.AppURL)
	assert.Equal(t, 10*time.Second, cfg.SweepInterval)
	assert.Equal(t, 2*time.Minute, cfg.StaleAfter)
	assert.Equal(t, time.Second, cfg.PublishInterval)
	assert.True(t, cfg.BroadcastOnUpdate)
	assert.Equal(t, int64(65536), cfg.MaxMessageBytes)
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"zero sweep interval", "SWEEP_INTERVAL", "0s", "SWEEP_INTERVAL must be positive, got 0s"},
		{"negative stale threshold", "STALE_AFTER", "-1m", "STALE_AFTER must be positive, got -1m0s"},
		{"zero publish interval", "PUBLISH_INTERVAL", "0s", "PUBLISH_INTERVAL must be positive, got 0s"},
		{"zero global limit", "MAX_WEBSOCKET_CONNECTIONS", "0", "MAX_WEBSOCKET_CONNECTIONS must be at least 1, got 0"},
		{"zero per-ip limit", "MAX_CONNECTIONS_PER_IP", "0", "MAX_CONNECTIONS_PER_IP must be at least 1, got 0"},
		{"zero connect rate", "CONNECTIONS_PER_SECOND", "0", "CONNECTIONS_PER_SECOND must be positive, got 0"},
		{"zero burst", "CONNECTION_BURST", "0", "CONNECTION_BURST must be at least 1, got 0"},
		{"tiny read limit", "MAX_MESSAGE_BYTES", "16", "MAX_MESSAGE_BYTES must be at least 64, got 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestLoad_MalformedDuration(t *testing.T) {
	t.Setenv("STALE_AFTER", "five minutes")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load environment variables")
}
