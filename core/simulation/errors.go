package simulation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/voltmesh/prodsim/core/solver"
)

// ValidationError reports every stage that failed build-time
// validation so a misconfigured sequence can be fixed in one pass.
type ValidationError struct {
	Simulation string
	Issues     []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("simulation %q validation failed:\n  - %s",
		e.Simulation, strings.Join(e.Issues, "\n  - "))
}

// isSolveFailure reports whether err is a per-step solver outcome
// rather than an infrastructure failure. Only these are eligible for
// the skip-and-continue policy.
func isSolveFailure(err error) bool {
	var inf *solver.InfeasibleError
	var sol *solver.SolverError
	return errors.As(err, &inf) || errors.As(err, &sol)
}

// failureStatus maps a solve error onto the status recorded in
// metrics.
func failureStatus(err error) solver.Status {
	var inf *solver.InfeasibleError
	if errors.As(err, &inf) {
		return solver.StatusInfeasible
	}
	var sol *solver.SolverError
	if errors.As(err, &sol) {
		return sol.Status
	}
	return solver.StatusError
}
