package store

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/voltmesh/prodsim/core/model"
)

// JSONLStore appends one snapshot per line to a file.
type JSONLStore struct {
	path string
	mu   sync.Mutex
}

// NewJSONLStore creates the file if it does not exist.
func NewJSONLStore(path string) (*JSONLStore, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}
	if cerr := f.Close(); cerr != nil {
		return nil, cerr
	}
	return &JSONLStore{path: path}, nil
}

func (s *JSONLStore) WriteStep(_ context.Context, snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	snaps, err := s.loadLocked(snap.Stage)
	if err != nil {
		return err
	}
	for _, existing := range snaps {
		if existing.Step == snap.Step {
			return &ErrDuplicateStep{Stage: snap.Stage, Step: snap.Step}
		}
	}
	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return json.NewEncoder(f).Encode(snap)
}

func (s *JSONLStore) MarkStepFailed(ctx context.Context, stage string, step int, reason string) error {
	return s.WriteStep(ctx, failedMarker(stage, step, reason))
}

func (s *JSONLStore) loadLocked(stage string) ([]Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	var snaps []Snapshot
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 1<<20), 16<<20)
	line := 0
	for scanner.Scan() {
		line++
		if len(bytes.TrimSpace(scanner.Bytes())) == 0 {
			continue
		}
		var snap Snapshot
		if err := json.Unmarshal(scanner.Bytes(), &snap); err != nil {
			return nil, fmt.Errorf("corrupt snapshot at %s:%d: %w", s.path, line, err)
		}
		if stage == "" || snap.Stage == stage {
			snaps = append(snaps, snap)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	sortSnapshots(snaps)
	return snaps, nil
}

func (s *JSONLStore) load(stage string) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked(stage)
}

func (s *JSONLStore) ListVariableNames(_ context.Context, stage string) ([]string, error) {
	snaps, err := s.load(stage)
	if err != nil {
		return nil, err
	}
	return projectVariableNames(snaps), nil
}

func (s *JSONLStore) ListParameterNames(_ context.Context, stage string) ([]string, error) {
	snaps, err := s.load(stage)
	if err != nil {
		return nil, err
	}
	return projectParameterNames(snaps), nil
}

func (s *JSONLStore) ReadVariables(_ context.Context, stage string, names []string, window *model.TimeWindow) ([]StepFrame, error) {
	snaps, err := s.load(stage)
	if err != nil {
		return nil, err
	}
	return projectFrames(snaps, names, window), nil
}

func (s *JSONLStore) ReadRealizedVariables(_ context.Context, stage string, names []string) ([]RealizedSeries, error) {
	snaps, err := s.load(stage)
	if err != nil {
		return nil, err
	}
	return projectRealized(snaps, names), nil
}

func (s *JSONLStore) Close() error { return nil }
