// Package config loads sampler and optimizer settings from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/improbable-research/keanu-sub009/internal/mcmc"
	"github.com/improbable-research/keanu-sub009/internal/optim"
)

// Config is the top-level layout of an algorithm configuration file. Unset
// fields keep their zero values, which each algorithm replaces with its own
// defaults.
type Config struct {
	Sampler     mcmc.Config             `yaml:"sampler"`
	Gradient    optim.GradientConfig    `yaml:"gradient"`
	NonGradient optim.NonGradientConfig `yaml:"non_gradient"`
}

// Load reads the YAML file at path. Unknown keys are rejected so that typos
// do not silently fall back to defaults. An empty path yields a zero Config.
func Load(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	file, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to open algorithm config: %w", err)
	}
	defer file.Close()

	return Parse(file)
}

// Parse decodes a configuration document from r.
func Parse(r io.Reader) (Config, error) {
	var cfg Config
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("invalid algorithm config: %w", err)
	}
	return cfg, nil
}
