// Package config loads engine configuration from environment variables.
package config

import (
	"errors"
	"fmt"

	"github.com/caarlos0/env/v11"
)

var (
	ErrNoWorkers    = errors.New("worker count must be positive")
	ErrNoQueueSpace = errors.New("queue size must be positive")
)

// Config holds all engine settings. Every field has a VOXMATH_ prefixed
// environment variable and a default suitable for local development.
type Config struct {
	// Arrow TCP service
	ListenAddress string `env:"VOXMATH_LISTEN_ADDRESS" envDefault:"127.0.0.1:9820"`

	// Prometheus metrics endpoint
	MetricsAddress string `env:"VOXMATH_METRICS_ADDRESS" envDefault:"127.0.0.1:9821"`

	// Pipeline execution
	Workers   int `env:"VOXMATH_WORKERS"    envDefault:"4"`
	QueueSize int `env:"VOXMATH_QUEUE_SIZE" envDefault:"1024"`

	// Run header store (SQLite)
	BrokerPath string `env:"VOXMATH_BROKER_PATH" envDefault:"voxmath.db"`

	// Step event broadcasting (empty disables the publisher)
	PubEndpoint string `env:"VOXMATH_PUB_ENDPOINT" envDefault:""`

	// Authentication
	AuthEnabled bool   `env:"VOXMATH_AUTH_ENABLED" envDefault:"false"`
	AuthToken   string `env:"VOXMATH_AUTH_TOKEN"`

	// Optional module import list (YAML); empty loads the built-in set
	ModulesPath string `env:"VOXMATH_MODULES_PATH"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks fields that env tags cannot express.
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return ErrNoWorkers
	}
	if c.QueueSize <= 0 {
		return ErrNoQueueSpace
	}
	return nil
}
