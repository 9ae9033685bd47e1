// Package config loads process configuration from the environment and
// enforces the deployment allow-list gate.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full process configuration, parsed from STEWARD_* variables.
type Config struct {
	ListenAddr   string `env:"STEWARD_LISTEN_ADDR" envDefault:":8870"`
	StorePath    string `env:"STEWARD_STORE_PATH" envDefault:"steward.db"`
	DialPack     string `env:"STEWARD_DIAL_PACK"`
	RingCapacity int    `env:"STEWARD_RING_CAPACITY" envDefault:"5000"`

	Environment         string   `env:"STEWARD_ENVIRONMENT"`
	AllowedEnvironments []string `env:"STEWARD_ALLOWED_ENVIRONMENTS" envSeparator:","`

	ProposalSourceURL     string        `env:"STEWARD_PROPOSAL_SOURCE_URL"`
	ProposalSourceTimeout time.Duration `env:"STEWARD_PROPOSAL_SOURCE_TIMEOUT" envDefault:"2s"`
}

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.RingCapacity <= 0 {
		return Config{}, fmt.Errorf("ring capacity must be positive, got %d", cfg.RingCapacity)
	}
	return cfg, nil
}

// EnvGate returns the allow-list gate for this configuration.
func (c Config) EnvGate() Gate {
	return Gate{Current: c.Environment, Allowed: c.AllowedEnvironments}
}
