// Package config loads the service configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the process configuration. OpenTelemetry settings are read
// separately by the otel adapter.
type Config struct {
	Port            string        `env:"PORT"                       envDefault:"8080"`
	DatabasePath    string        `env:"DATABASE_PATH"              envDefault:"listingiq.db"`
	JWTSecret       string        `env:"LISTINGIQ_JWT_SECRET"`
	BulkConcurrency int           `env:"LISTINGIQ_BULK_CONCURRENCY" envDefault:"4"`
	BulkTimeout     time.Duration `env:"LISTINGIQ_BULK_TIMEOUT"     envDefault:"30s"`
	LogLevel        string        `env:"LOG_LEVEL"                  envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"                 envDefault:"text"` // "text" or "json"
}

// ErrMissingJWTSecret is returned when no token signing secret is configured.
var ErrMissingJWTSecret = errors.New("LISTINGIQ_JWT_SECRET is required")

// Load parses and validates the configuration.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if c.BulkConcurrency < 1 {
		return fmt.Errorf("LISTINGIQ_BULK_CONCURRENCY must be at least 1, got %d", c.BulkConcurrency)
	}
	if c.BulkTimeout <= 0 {
		return fmt.Errorf("LISTINGIQ_BULK_TIMEOUT must be positive, got %s", c.BulkTimeout)
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported LOG_FORMAT %q (use \"text\" or \"json\")", c.LogFormat)
	}
	return nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", c.LogLevel, err)
	}
	return level, nil
}
