// Package store persists per-step solve snapshots and answers
// post-hoc queries. Stores are append-only: a (stage, step) pair is
// written exactly once and never mutated afterwards.
package store

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/voltmesh/prodsim/core/model"
)

// StatusFailed marks a step that aborted instead of solving.
const StatusFailed = "failed"

// Series is one named value vector over a snapshot's window.
type Series struct {
	Name     string    `json:"name"`
	Category string    `json:"category"`
	Device   string    `json:"device"`
	Values   []float64 `json:"values"`
}

// Snapshot is everything persisted for one stage execution.
type Snapshot struct {
	Stage     string           `json:"stage"`
	Step      int              `json:"step"`
	RunID     string           `json:"run_id"`
	Window    model.TimeWindow `json:"window"`
	Advance   int              `json:"advance"`
	Status    string           `json:"status"`
	Objective float64          `json:"objective"`
	SolveTime time.Time        `json:"solve_time"`
	Duration  time.Duration    `json:"duration"`
	Reason    string           `json:"reason,omitempty"`
	Variables []Series         `json:"variables,omitempty"`
	Params    []Series         `json:"parameters,omitempty"`
	Duals     []Series         `json:"duals,omitempty"`
}

// Variable returns the solved values for (name, device).
func (s *Snapshot) Variable(name, device string) ([]float64, bool) {
	for _, sr := range s.Variables {
		if sr.Name == name && sr.Device == device {
			return sr.Values, true
		}
	}
	return nil, false
}

// StepFrame is a per-step projection returned by ReadVariables.
type StepFrame struct {
	Step   int              `json:"step"`
	Window model.TimeWindow `json:"window"`
	Series []Series         `json:"series"`
}

// RealizedSeries is the look-ahead-trimmed concatenation of one
// variable across all solved steps.
type RealizedSeries struct {
	Name   string      `json:"name"`
	Device string      `json:"device"`
	Times  []time.Time `json:"times"`
	Values []float64   `json:"values"`
}

// Store is the results persistence boundary. Implementations must be
// safe for concurrent reads while the driver appends steps.
type Store interface {
	WriteStep(ctx context.Context, snap Snapshot) error
	MarkStepFailed(ctx context.Context, stage string, step int, reason string) error
	ListVariableNames(ctx context.Context, stage string) ([]string, error)
	ListParameterNames(ctx context.Context, stage string) ([]string, error)
	ReadVariables(ctx context.Context, stage string, names []string, window *model.TimeWindow) ([]StepFrame, error)
	ReadRealizedVariables(ctx context.Context, stage string, names []string) ([]RealizedSeries, error)
	Close() error
}

// ErrDuplicateStep reports a second write for a (stage, step) pair.
type ErrDuplicateStep struct {
	Stage string
	Step  int
}

func (e *ErrDuplicateStep) Error() string {
	return fmt.Sprintf("step %d already written for stage %q", e.Step, e.Stage)
}

// The projection helpers below are shared by every backend: each
// backend loads a stage's snapshots in step order and delegates.

func projectVariableNames(snaps []Snapshot) []string {
	return projectNames(snaps, func(s Snapshot) []Series { return s.Variables })
}

func projectParameterNames(snaps []Snapshot) []string {
	return projectNames(snaps, func(s Snapshot) []Series { return s.Params })
}

func projectNames(snaps []Snapshot, pick func(Snapshot) []Series) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, s := range snaps {
		for _, sr := range pick(s) {
			if _, ok := seen[sr.Name]; !ok {
				seen[sr.Name] = struct{}{}
				names = append(names, sr.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}

func matchName(names []string, name string) bool {
	if len(names) == 0 {
		return true
	}
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

func projectFrames(snaps []Snapshot, names []string, window *model.TimeWindow) []StepFrame {
	var frames []StepFrame
	for _, s := range snaps {
		if s.Status == StatusFailed {
			continue
		}
		if window != nil && !s.Window.Overlaps(*window) {
			continue
		}
		frame := StepFrame{Step: s.Step, Window: s.Window}
		for _, sr := range s.Variables {
			if matchName(names, sr.Name) {
				frame.Series = append(frame.Series, sr)
			}
		}
		frames = append(frames, frame)
	}
	return frames
}

func projectRealized(snaps []Snapshot, names []string) []RealizedSeries {
	byKey := make(map[string]*RealizedSeries)
	var order []string
	for _, s := range snaps {
		if s.Status == StatusFailed {
			continue
		}
		adv := s.Advance
		if adv <= 0 || adv > s.Window.Periods {
			adv = s.Window.Periods
		}
		times := s.Window.Times()[:adv]
		for _, sr := range s.Variables {
			if !matchName(names, sr.Name) {
				continue
			}
			key := sr.Name + "\x00" + sr.Device
			rs, ok := byKey[key]
			if !ok {
				rs = &RealizedSeries{Name: sr.Name, Device: sr.Device}
				byKey[key] = rs
				order = append(order, key)
			}
			n := adv
			if n > len(sr.Values) {
				n = len(sr.Values)
			}
			rs.Times = append(rs.Times, times[:n]...)
			rs.Values = append(rs.Values, sr.Values[:n]...)
		}
	}
	out := make([]RealizedSeries, 0, len(order))
	for _, key := range order {
		out = append(out, *byKey[key])
	}
	return out
}

func sortSnapshots(snaps []Snapshot) {
	sort.Slice(snaps, func(i, j int) bool { return snaps[i].Step < snaps[j].Step })
}

func failedMarker(stage string, step int, reason string) Snapshot {
	return Snapshot{
		Stage:     stage,
		Step:      step,
		Status:    StatusFailed,
		Reason:    reason,
		SolveTime: time.Now().UTC(),
	}
}
