// Package config provides configuration loading for plannerd.
//
// Configuration is loaded from a YAML file and overridden by environment
// variables, with hardcoded defaults underneath.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/fyrsmithlabs/plannerd/internal/breaks"
	"github.com/fyrsmithlabs/plannerd/internal/logging"
	"github.com/fyrsmithlabs/plannerd/internal/suggest"
	"github.com/fyrsmithlabs/plannerd/internal/telemetry"
)

// Config holds the complete plannerd configuration.
type Config struct {
	Server        ServerConfig        `koanf:"server"`
	Logging       logging.Config      `koanf:"logging"`
	Observability telemetry.Config    `koanf:"observability"`
	NATS          NATSConfig          `koanf:"nats"`
	Storage       StorageConfig       `koanf:"storage"`
	Auth          AuthConfig          `koanf:"auth"`
	Breaks        breaks.Preferences  `koanf:"breaks"`
	Suggest       suggest.Config      `koanf:"suggest"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// RateLimit is requests per second per client; RateBurst the burst
	// allowance. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// NATSConfig holds the optional event-bus connection.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// StorageConfig holds the SQLite database location.
type StorageConfig struct {
	Path string `koanf:"path"`
}

// AuthConfig holds the API bearer token. An empty token resolves every
// request to the local user; any other value must be presented by clients.
type AuthConfig struct {
	Token string `koanf:"token"`
}

// Default returns config with production-ready defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            9180,
			ShutdownTimeout: 10 * time.Second,
			RateLimit:       20,
			RateBurst:       40,
		},
		Logging: logging.DefaultConfig(),
		Observability: telemetry.DefaultConfig(),
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
		},
		Storage: StorageConfig{Path: "plannerd.db"},
		Breaks:  breaks.DefaultPreferences(),
		Suggest: suggest.DefaultConfig(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}
	if c.Server.RateLimit < 0 || c.Server.RateBurst < 0 {
		return errors.New("rate limit and burst must be >= 0")
	}
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if err := c.Observability.Validate(); err != nil {
		return fmt.Errorf("observability: %w", err)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return errors.New("nats url is required when nats is enabled")
	}
	if c.Storage.Path == "" {
		return errors.New("storage path is required")
	}
	if err := c.Breaks.Validate(); err != nil {
		return err
	}
	return nil
}
