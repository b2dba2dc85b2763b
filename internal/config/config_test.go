package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, 31523, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.Equal(t, 5*time.Second, cfg.WriteTimeoutDuration())
	assert.Zero(t, cfg.ReadIdleTimeoutDuration())
	assert.True(t, cfg.StatusAPI.Enabled)
	assert.Equal(t, 31524, cfg.StatusAPI.Port)
	assert.True(t, cfg.FloodProtection.Enabled)
	assert.Equal(t, 16, cfg.FloodProtection.MaxConnectionsPerIP)
}

func TestLoad_MissingFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lobbyserver.yaml")
	data := `
port: 40000
log_level: debug
read_idle_timeout: 90
status_api:
  enabled: false
flood_protection:
  max_connections_per_ip: 4
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 40000, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 90*time.Second, cfg.ReadIdleTimeoutDuration())
	assert.False(t, cfg.StatusAPI.Enabled)
	assert.Equal(t, 4, cfg.FloodProtection.MaxConnectionsPerIP)

	// untouched fields keep their defaults
	assert.Equal(t, "0.0.0.0", cfg.BindAddress)
	assert.Equal(t, 256, cfg.SendQueueSize)
	assert.True(t, cfg.FloodProtection.Enabled)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("port: [oops"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestPath_HonorsEnv(t *testing.T) {
	t.Setenv("C3GO_CONFIG", "/tmp/custom.yaml")
	assert.Equal(t, "/tmp/custom.yaml", Path())

	t.Setenv("C3GO_CONFIG", "")
	assert.Equal(t, DefaultPath, Path())
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"verbose", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		cfg := Config{LogLevel: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}
