package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/model"
)

func snap(stage string, step int, advance int, values []float64) Snapshot {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	w := model.NewTimeWindow(start, len(values), time.Hour).Advance(step * advance)
	return Snapshot{
		Stage:     stage,
		Step:      step,
		Window:    w,
		Advance:   advance,
		Status:    "optimal",
		Objective: float64(100 * (step + 1)),
		SolveTime: start,
		Variables: []Series{
			{Name: model.VarActivePower, Category: string(model.ThermalStandard), Device: "g1", Values: values},
		},
		Params: []Series{
			{Name: model.ParamOnStatus, Category: string(model.ThermalStandard), Device: "g1", Values: []float64{1, 1, 1, 1}[:len(values)]},
		},
	}
}

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()
	jsonl, err := NewJSONLStore(filepath.Join(dir, "results.jsonl"))
	require.NoError(t, err)
	sqlite, err := NewSQLiteStore(filepath.Join(dir, "results.db"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"jsonl":  jsonl,
		"sqlite": sqlite,
	}
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, st.Close()) }()
			require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{10, 20, 30, 40})))
			require.NoError(t, st.WriteStep(ctx, snap("uc", 1, 2, []float64{50, 60, 70, 80})))

			names, err := st.ListVariableNames(ctx, "uc")
			require.NoError(t, err)
			assert.Equal(t, []string{model.VarActivePower}, names)

			params, err := st.ListParameterNames(ctx, "uc")
			require.NoError(t, err)
			assert.Equal(t, []string{model.ParamOnStatus}, params)

			frames, err := st.ReadVariables(ctx, "uc", []string{model.VarActivePower}, nil)
			require.NoError(t, err)
			require.Len(t, frames, 2)
			assert.Equal(t, []float64{10, 20, 30, 40}, frames[0].Series[0].Values)
			assert.Equal(t, []float64{50, 60, 70, 80}, frames[1].Series[0].Values)
		})
	}
}

func TestRealizedTrimsLookAhead(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, st.Close()) }()
			// 4-period horizon, 2-period advance: realized keeps the
			// first two values of each step.
			require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{10, 20, 30, 40})))
			require.NoError(t, st.WriteStep(ctx, snap("uc", 1, 2, []float64{50, 60, 70, 80})))
			require.NoError(t, st.WriteStep(ctx, snap("uc", 2, 2, []float64{90, 95, 97, 99})))

			realized, err := st.ReadRealizedVariables(ctx, "uc", nil)
			require.NoError(t, err)
			require.Len(t, realized, 1)
			rs := realized[0]
			assert.Equal(t, []float64{10, 20, 50, 60, 90, 95}, rs.Values)
			require.Len(t, rs.Times, 6)
			for i := 1; i < len(rs.Times); i++ {
				assert.Equal(t, time.Hour, rs.Times[i].Sub(rs.Times[i-1]), "no gaps or duplicates")
			}
		})
	}
}

func TestDuplicateStepRejected(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, st.Close()) }()
			require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{1, 2})))
			err := st.WriteStep(ctx, snap("uc", 0, 2, []float64{3, 4}))
			var dup *ErrDuplicateStep
			require.True(t, errors.As(err, &dup), "got %v", err)
			assert.Equal(t, 0, dup.Step)
		})
	}
}

func TestFailedMarkerExcludedFromProjections(t *testing.T) {
	ctx := context.Background()
	for name, st := range backends(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { require.NoError(t, st.Close()) }()
			require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{1, 2})))
			require.NoError(t, st.MarkStepFailed(ctx, "uc", 1, "infeasible"))

			frames, err := st.ReadVariables(ctx, "uc", nil, nil)
			require.NoError(t, err)
			assert.Len(t, frames, 1, "failed marker must not appear as data")

			realized, err := st.ReadRealizedVariables(ctx, "uc", nil)
			require.NoError(t, err)
			require.Len(t, realized, 1)
			assert.Equal(t, []float64{1, 2}, realized[0].Values)
		})
	}
}

func TestReadVariablesWindowFilter(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 4, []float64{1, 2, 3, 4})))
	require.NoError(t, st.WriteStep(ctx, snap("uc", 1, 4, []float64{5, 6, 7, 8})))

	q := model.NewTimeWindow(time.Date(2025, 3, 1, 4, 0, 0, 0, time.UTC), 4, time.Hour)
	frames, err := st.ReadVariables(ctx, "uc", nil, &q)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 1, frames[0].Step)
}

func TestStagesIsolated(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()
	require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{1, 2})))
	require.NoError(t, st.WriteStep(ctx, snap("ed", 0, 2, []float64{9, 9})))

	frames, err := st.ReadVariables(ctx, "uc", nil, nil)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, []float64{1, 2}, frames[0].Series[0].Values)
}

func TestJSONLCorruptLineSurfaces(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.jsonl")
	st, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{1, 2})))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{\"stage\": truncated\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, err = st.ReadVariables(ctx, "uc", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corrupt snapshot")

	// A corrupt store must refuse further writes too.
	err = st.WriteStep(ctx, snap("uc", 1, 2, []float64{3, 4}))
	assert.Error(t, err)
}

func TestJSONLBlankLinesIgnored(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.jsonl")
	st, err := NewJSONLStore(path)
	require.NoError(t, err)
	require.NoError(t, st.WriteStep(ctx, snap("uc", 0, 2, []float64{1, 2})))

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	frames, err := st.ReadVariables(ctx, "uc", nil, nil)
	require.NoError(t, err)
	assert.Len(t, frames, 1)
}
