// Package config loads the service configuration from AIRTYPE_* environment variables.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"github.com/ryanhyunminbae/airtype/internal/gesture"
	"github.com/ryanhyunminbae/airtype/internal/model"
	"github.com/ryanhyunminbae/airtype/internal/plugin"
	"github.com/ryanhyunminbae/airtype/internal/server"
	"github.com/ryanhyunminbae/airtype/internal/source"
	"github.com/ryanhyunminbae/airtype/internal/stabilizer"
	"github.com/ryanhyunminbae/airtype/internal/store"
)

// Log configures the logger.
type Log struct {
	Level       string `envconfig:"AIRTYPE_LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"AIRTYPE_LOG_DEV"`
}

// Config aggregates the configuration of every component.
type Config struct {
	Log        Log
	Server     server.Config
	Store      store.Config
	Source     source.Config
	Stabilizer stabilizer.Config
	Gesture    gesture.Config
	Model      model.Config
	Plugins    plugin.Config
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config

	// Each section is processed on its own so its variables keep their
	// unprefixed AIRTYPE_* names.
	sections := []struct {
		name   string
		target interface{}
	}{
		{"log", &cfg.Log},
		{"server", &cfg.Server},
		{"store", &cfg.Store},
		{"source", &cfg.Source},
		{"stabilizer", &cfg.Stabilizer},
		{"gesture", &cfg.Gesture},
		{"model", &cfg.Model},
		{"plugins", &cfg.Plugins},
	}
	for _, s := range sections {
		if err := envconfig.Process("", s.target); err != nil {
			return nil, fmt.Errorf("load %s config: %w", s.name, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that have no usable fallback.
func (c *Config) Validate() error {
	if err := c.Source.Validate(); err != nil {
		return fmt.Errorf("source config: %w", err)
	}
	if err := c.Stabilizer.Validate(); err != nil {
		return fmt.Errorf("stabilizer config: %w", err)
	}
	if c.Plugins.Timeout <= 0 {
		return fmt.Errorf("plugin timeout must be positive, got %s", c.Plugins.Timeout)
	}
	return nil
}
