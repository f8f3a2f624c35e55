// Copyright 2025 UMH Systems GmbH
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads the treesync YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/treesync/pkg/logger"
	"github.com/united-manufacturing-hub/treesync/pkg/sync"
)

// Config is the full application configuration.
type Config struct {
	// Sync is the layer mapping driven by the pipelines.
	Sync sync.SyncSpec `yaml:"sync"`

	// Store configures the store decorators.
	Store StoreConfig `yaml:"store,omitempty"`

	// MetricsAddr is the listen address of the metrics endpoint. Empty
	// disables the endpoint.
	MetricsAddr string `yaml:"metrics-addr,omitempty"`
}

// StoreConfig configures retry behavior at the store boundary.
type StoreConfig struct {
	// RetryMaxElapsed bounds the total time spent retrying one store
	// operation. Zero disables retries entirely.
	RetryMaxElapsed Duration `yaml:"retry-max-elapsed,omitempty"`
}

// Duration is a time.Duration that decodes from YAML strings like "5s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("duration must be a string: %w", err)
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}

	*d = Duration(parsed)

	return nil
}

// AsDuration returns the native time.Duration.
func (d Duration) AsDuration() time.Duration {
	return time.Duration(d)
}

// Parse decodes and validates a configuration from YAML bytes.
func Parse(data []byte) (*Config, error) {
	var cfg Config

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Sync.Validate(); err != nil {
		return nil, fmt.Errorf("invalid sync spec: %w", err)
	}

	return &cfg, nil
}

// LoadFile reads and parses the configuration file at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	logger.For(logger.ComponentConfig).Debugw("config_loaded",
		"path", path,
		"layers", len(cfg.Sync.Layers))

	return cfg, nil
}
