// Package config loads the runtime configuration for a simulation run
// from YAML or JSON, with PS_-prefixed environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/voltmesh/prodsim/core/factory"
	"github.com/voltmesh/prodsim/core/metrics"
	"github.com/voltmesh/prodsim/core/solver"
	"github.com/voltmesh/prodsim/infra/mqtt"
)

type Config struct {
	Simulation SimulationConfig `json:"simulation"`
	System     SystemConfig     `json:"system"`
	Stages     []StageConfig    `json:"stages"`
	Solver     solver.Config    `json:"solver"`
	// Backend selects the solver implementation; empty uses the
	// bundled simplex.
	Backend factory.ModuleConfig `json:"backend"`
	Storage StorageConfig        `json:"storage"`
	Metrics metrics.Config       `json:"metrics"`
	MQTT    mqtt.Config          `json:"mqtt"`
	API     APIConfig            `json:"api"`
	Logging LoggingConfig        `json:"logging"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("PS_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "ps_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Simulation.SetDefaults()
	cfg.Storage.SetDefaults()
	cfg.Logging.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the loaded configuration as a whole.
func (c *Config) Validate() error {
	if err := c.Simulation.Validate(); err != nil {
		return err
	}
	if err := c.System.Validate(); err != nil {
		return err
	}
	if len(c.Stages) == 0 {
		return fmt.Errorf("at least one stage is required")
	}
	for _, s := range c.Stages {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}
