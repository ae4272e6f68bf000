// Package events defines the simulation events emitted on the event
// bus.
//
// Available event types:
//   - StateEvent: driver state transition
//   - StepEvent: simulation step started or finished
//   - SolveEvent: one stage solved (or failed to solve)
package events

import (
	"time"

	"github.com/voltmesh/prodsim/core/model"
)

// StateEvent is published on every driver state transition.
type StateEvent struct {
	RunID      string
	Simulation string
	From       string
	To         string
	Time       time.Time
}

// StepEvent is published when a simulation step starts.
type StepEvent struct {
	RunID string
	Step  int
	Time  time.Time
}

// SolveEvent is published after each stage solve attempt.
type SolveEvent struct {
	RunID     string
	Stage     string
	Step      int
	Window    model.TimeWindow
	Status    string
	Objective float64
	Duration  time.Duration
	Err       error
}
