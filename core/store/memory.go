package store

import (
	"context"
	"sync"

	"github.com/voltmesh/prodsim/core/model"
)

// MemoryStore keeps snapshots in memory. It backs tests and the driver's
// same-run feed-forward cache.
type MemoryStore struct {
	mu    sync.RWMutex
	steps map[string][]Snapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{steps: make(map[string][]Snapshot)}
}

func (s *MemoryStore) WriteStep(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.steps[snap.Stage] {
		if existing.Step == snap.Step {
			return &ErrDuplicateStep{Stage: snap.Stage, Step: snap.Step}
		}
	}
	s.steps[snap.Stage] = append(s.steps[snap.Stage], snap)
	return nil
}

func (s *MemoryStore) MarkStepFailed(ctx context.Context, stage string, step int, reason string) error {
	return s.WriteStep(ctx, failedMarker(stage, step, reason))
}

// Snapshot returns the stored snapshot for (stage, step).
func (s *MemoryStore) Snapshot(stage string, step int) (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, snap := range s.steps[stage] {
		if snap.Step == step {
			return snap, true
		}
	}
	return Snapshot{}, false
}

func (s *MemoryStore) load(stage string) []Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := make([]Snapshot, len(s.steps[stage]))
	copy(snaps, s.steps[stage])
	sortSnapshots(snaps)
	return snaps
}

func (s *MemoryStore) ListVariableNames(_ context.Context, stage string) ([]string, error) {
	return projectVariableNames(s.load(stage)), nil
}

func (s *MemoryStore) ListParameterNames(_ context.Context, stage string) ([]string, error) {
	return projectParameterNames(s.load(stage)), nil
}

func (s *MemoryStore) ReadVariables(_ context.Context, stage string, names []string, window *model.TimeWindow) ([]StepFrame, error) {
	return projectFrames(s.load(stage), names, window), nil
}

func (s *MemoryStore) ReadRealizedVariables(_ context.Context, stage string, names []string) ([]RealizedSeries, error) {
	return projectRealized(s.load(stage), names), nil
}

func (s *MemoryStore) Close() error { return nil }
