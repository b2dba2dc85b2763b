// Package config loads the lobby server configuration. The process
// takes no arguments: settings come from a YAML file next to the
// binary, or from the path in the C3GO_CONFIG environment variable,
// with every field defaulting to a working LAN setup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is the config file looked up when C3GO_CONFIG is unset.
const DefaultPath = "config/lobbyserver.yaml"

// Config holds all configuration for the lobby server.
type Config struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`

	// Logging: debug | info | warn | error
	LogLevel string `yaml:"log_level"`

	// Per-session outbound queue length; a client that falls this many
	// packets behind is disconnected.
	SendQueueSize int `yaml:"send_queue_size"`
	// Seconds allowed per socket write.
	WriteTimeout int `yaml:"write_timeout"`
	// Seconds a session may stay silent; 0 disables the idle check.
	ReadIdleTimeout int `yaml:"read_idle_timeout"`

	StatusAPI       StatusAPI       `yaml:"status_api"`
	FloodProtection FloodProtection `yaml:"flood_protection"`
}

// StatusAPI configures the HTTP status endpoint.
type StatusAPI struct {
	Enabled     bool   `yaml:"enabled"`
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
}

// FloodProtection configures the accept-loop limits. Established
// sessions are never throttled.
type FloodProtection struct {
	Enabled             bool    `yaml:"enabled"`
	AcceptRate          float64 `yaml:"accept_rate"`
	AcceptBurst         int     `yaml:"accept_burst"`
	MaxConnectionsPerIP int     `yaml:"max_connections_per_ip"`
}

// Default returns a complete config for a stock LAN setup: the game
// client looks for the lobby on port 31523.
func Default() Config {
	return Config{
		BindAddress:     "0.0.0.0",
		Port:            31523,
		LogLevel:        "info",
		SendQueueSize:   256,
		WriteTimeout:    5,
		ReadIdleTimeout: 0,
		StatusAPI: StatusAPI{
			Enabled:     true,
			BindAddress: "0.0.0.0",
			Port:        31524,
		},
		FloodProtection: FloodProtection{
			Enabled:             true,
			AcceptRate:          64,
			AcceptBurst:         128,
			MaxConnectionsPerIP: 16,
		},
	}
}

// Load overlays the YAML file at path onto the defaults. A missing file
// is not an error: the defaults describe a complete server.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// Path returns the config file location, honoring C3GO_CONFIG.
func Path() string {
	if p := os.Getenv("C3GO_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// WriteTimeoutDuration returns the per-write deadline.
func (c Config) WriteTimeoutDuration() time.Duration {
	return time.Duration(c.WriteTimeout) * time.Second
}

// ReadIdleTimeoutDuration returns the idle deadline, zero when disabled.
func (c Config) ReadIdleTimeoutDuration() time.Duration {
	return time.Duration(c.ReadIdleTimeout) * time.Second
}

// SlogLevel maps the configured log level onto slog, defaulting to
// Info for unknown values.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
