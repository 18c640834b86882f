package config

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	AdminKey  string `env:"ADMIN_KEY"`
	AppURL    string `env:"APP_URL"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	SweepInterval     time.Duration `env:"SWEEP_INTERVAL" default:"30s"`
	StaleAfter        time.Duration `env:"STALE_AFTER" default:"5m"`
	PublishInterval   time.Duration `env:"PUBLISH_INTERVAL" default:"30s"`
	BroadcastOnUpdate bool          `env:"BROADCAST_ON_UPDATE" default:"false"`

	MaxWebSocketConnections int     `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxConnectionsPerIP     int     `env:"MAX_CONNECTIONS_PER_IP" default:"100"`
	ConnectionsPerSecond    float64 `env:"CONNECTIONS_PER_SECOND" default:"10"`
	ConnectionBurst         int     `env:"CONNECTION_BURST" default:"20"`
	MaxMessageBytes         int64   `env:"MAX_MESSAGE_BYTES" default:"4096"`
}

// IsDevelopment reports whether localhost origins should be accepted.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Port == "" {
		return errors.New("PORT is required")
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"SWEEP_INTERVAL", cfg.SweepInterval},
		{"STALE_AFTER", cfg.StaleAfter},
		{"PUBLISH_INTERVAL", cfg.PublishInterval},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", d.name, d.value)
		}
	}

	if cfg.MaxWebSocketConnections < 1 {
		return fmt.Errorf("MAX_WEBSOCKET_CONNECTIONS must be at least 1, got %d", cfg.MaxWebSocketConnections)
	}
	if cfg.MaxConnectionsPerIP < 1 {
		return fmt.Errorf("MAX_CONNECTIONS_PER_IP must be at least 1, got %d", cfg.MaxConnectionsPerIP)
	}
	if cfg.ConnectionsPerSecond <= 0 {
		return fmt.Errorf("CONNECTIONS_PER_SECOND must be positive, got %g", cfg.ConnectionsPerSecond)
	}
	if cfg.ConnectionBurst < 1 {
		return fmt.Errorf("CONNECTION_BURST must be at least 1, got %d", cfg.ConnectionBurst)
	}
	if cfg.MaxMessageBytes < 64 {
		return fmt.Errorf("MAX_MESSAGE_BYTES must be at least 64, got %d", cfg.MaxMessageBytes)
	}

	if cfg.AdminKey == "" {
		slog.Warn("ADMIN_KEY is empty, admin commands are disabled")
	}

	return nil
}
