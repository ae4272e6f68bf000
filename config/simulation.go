package config

import (
	"fmt"
	"time"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/system"
)

// SimulationConfig names the run and its step count.
type SimulationConfig struct {
	Name  string `json:"name"`
	Steps int    `json:"steps"`
	// ContinueOnFailure records failed steps and keeps going instead
	// of aborting the run.
	ContinueOnFailure bool `json:"continue_on_failure"`
}

// SetDefaults applies sane defaults.
func (c *SimulationConfig) SetDefaults() {
	if c.Name == "" {
		c.Name = "prodsim"
	}
	if c.Steps == 0 {
		c.Steps = 1
	}
}

// Validate checks mandatory fields.
func (c SimulationConfig) Validate() error {
	if c.Steps <= 0 {
		return fmt.Errorf("simulation steps must be positive, got %d", c.Steps)
	}
	return nil
}

// SystemConfig points at the system data: a YAML/JSON file, or a
// synthetic generator when no path is given.
type SystemConfig struct {
	Path      string                  `json:"path"`
	Synthetic *system.SyntheticConfig `json:"synthetic"`
}

// Validate checks that exactly one source is configured.
func (c SystemConfig) Validate() error {
	if c.Path != "" && c.Synthetic != nil {
		return fmt.Errorf("system: path and synthetic are mutually exclusive")
	}
	return nil
}

// Build loads or generates the configured system.
func (c SystemConfig) Build() (*system.System, error) {
	if c.Path != "" {
		return system.Load(c.Path)
	}
	var gen system.SyntheticConfig
	if c.Synthetic != nil {
		gen = *c.Synthetic
	}
	return system.Synthetic(gen), nil
}

// StageConfig describes one decision stage of the sequence.
type StageConfig struct {
	Name string `json:"name"`
	// Kind selects the thermal formulation: "unit_commitment" or
	// "economic_dispatch".
	Kind              string `json:"kind"`
	Periods           int    `json:"periods"`
	Advance           int    `json:"advance"`
	ResolutionMinutes int    `json:"resolution_minutes"`
}

// Validate checks mandatory fields.
func (c StageConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("stage name is required")
	}
	if _, err := c.Formulation(); err != nil {
		return err
	}
	if c.Periods <= 0 || c.Advance <= 0 || c.Advance > c.Periods {
		return fmt.Errorf("stage %s: invalid window %d periods advancing %d", c.Name, c.Periods, c.Advance)
	}
	if c.ResolutionMinutes <= 0 {
		return fmt.Errorf("stage %s: resolution_minutes must be positive", c.Name)
	}
	return nil
}

// Formulation maps the stage kind onto the thermal formulation.
func (c StageConfig) Formulation() (model.Formulation, error) {
	switch c.Kind {
	case "unit_commitment":
		return model.ThermalUnitCommitment, nil
	case "economic_dispatch":
		return model.ThermalDispatch, nil
	default:
		return "", fmt.Errorf("stage %s: unknown kind %q", c.Name, c.Kind)
	}
}

// Horizon returns the stage's rolling window geometry.
func (c StageConfig) Horizon() model.Horizon {
	return model.Horizon{
		Periods:    c.Periods,
		Advance:    c.Advance,
		Resolution: time.Duration(c.ResolutionMinutes) * time.Minute,
	}
}
