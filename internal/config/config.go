package config

import (
	"fmt"
	"strings"

	pkgconfig "github.com/utafrali/storefront/pkg/config"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"STOREFRONT_HTTP_PORT" envDefault:"8080"`

	// Backend shop API
	BackendBaseURL string `env:"BACKEND_BASE_URL" envDefault:"http://localhost:8000"`

	// Circuit breaker in front of the backend
	CircuitBreakerEnabled bool `env:"BACKEND_CIRCUIT_BREAKER" envDefault:"true"`

	// Redis (visitor cart snapshots and session tokens)
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Snapshot TTL in hours (default: 30 days)
	SnapshotTTL int `env:"SNAPSHOT_TTL_HOURS" envDefault:"720"`

	// Kafka (optional; empty disables event publishing)
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"" envSeparator:","`

	// CORS
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !strings.HasPrefix(c.BackendBaseURL, "http://") && !strings.HasPrefix(c.BackendBaseURL, "https://") {
		return fmt.Errorf("invalid backend base URL: %q", c.BackendBaseURL)
	}
	if c.SnapshotTTL < 1 {
		return fmt.Errorf("invalid snapshot TTL: %d", c.SnapshotTTL)
	}
	return nil
}

// EventsEnabled reports whether Kafka event publishing is configured.
func (c *Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0 && c.KafkaBrokers[0] != ""
}
