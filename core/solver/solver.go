// Package solver defines the boundary to the external optimization
// capability. The engine only depends on this interface; concrete
// backends live under infra/solver.
package solver

import (
	"context"
	"fmt"

	"github.com/voltmesh/prodsim/core/program"
)

// Status is the solver-reported termination status.
type Status string

const (
	StatusOptimal    Status = "optimal"
	StatusInfeasible Status = "infeasible"
	StatusUnbounded  Status = "unbounded"
	StatusTimeout    Status = "timeout"
	StatusError      Status = "error"
)

// Config carries per-solve settings.
type Config struct {
	// GapTolerance is the relative optimality gap passed to the backend.
	GapTolerance float64 `json:"gap_tolerance"`
	// Verbosity controls backend log output (0 silent).
	Verbosity int `json:"verbosity"`
	// TimeoutSeconds converts a hung solve into a SolverError.
	// Zero means no timeout.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.GapTolerance <= 0 {
		c.GapTolerance = 1e-7
	}
	if c.TimeoutSeconds < 0 {
		c.TimeoutSeconds = 0
	}
}

// Result is the typed snapshot a successful solve returns.
type Result struct {
	Status    Status
	Objective float64
	// VariableValues is indexed by program column.
	VariableValues []float64
	// DualValues is indexed by constraint row. Backends that do not
	// report duals leave it empty.
	DualValues []float64
}

// Solver is the external solve capability.
type Solver interface {
	Solve(ctx context.Context, p *program.LinearProgram, cfg Config) (Result, error)
}

// InfeasibleError reports a provably infeasible program.
type InfeasibleError struct {
	Detail string
}

func (e *InfeasibleError) Error() string {
	if e.Detail == "" {
		return "program is infeasible"
	}
	return "program is infeasible: " + e.Detail
}

// SolverError reports a non-optimal termination other than
// infeasibility: unboundedness, numerical failure, or timeout.
type SolverError struct {
	Status Status
	Err    error
}

func (e *SolverError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("solver terminated with status %s: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("solver terminated with status %s", e.Status)
}

func (e *SolverError) Unwrap() error { return e.Err }
