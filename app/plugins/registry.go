// Package plugins registers the pluggable solver backends a run can
// select by configuration.
package plugins

import (
	"github.com/voltmesh/prodsim/core/factory"
	"github.com/voltmesh/prodsim/core/solver"
)

// Solvers maps backend type names to solver factories.
var Solvers = factory.NewRegistry[solver.Solver]()

// RegisterSolver adds a solver backend factory. Registration errors
// surface at Create time through the registry.
func RegisterSolver(name string, f factory.Factory[solver.Solver]) error {
	return Solvers.Register(name, f)
}

// NewSolver instantiates the configured backend. An empty type selects
// the bundled simplex solver.
func NewSolver(cfg factory.ModuleConfig) (solver.Solver, error) {
	if cfg.Type == "" {
		cfg.Type = "simplex"
	}
	return Solvers.Create(cfg)
}
