package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a YAML configuration file and unmarshals it into the specified type.
// T must be a struct type that can be unmarshaled from YAML.
func LoadConfig[T any](path string) (*T, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg T
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

// LoadEndpointConfig reads a YAML file into an Endpoint and validates it.
// Parsing and validation live here, in the CLI-facing config package, never
// in the library itself (spec.md §6's "the core does not parse
// configuration" boundary).
func LoadEndpointConfig(path string) (*Endpoint, error) {
	cfg, err := LoadConfig[Endpoint](path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate endpoint config: %w", err)
	}
	return cfg, nil
}
