package decision

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/solver"
	"github.com/voltmesh/prodsim/core/template"
)

// stubSolver returns a canned result or error.
type stubSolver struct {
	err    error
	status solver.Status
}

func (s stubSolver) Solve(_ context.Context, p *program.LinearProgram, _ solver.Config) (solver.Result, error) {
	if s.err != nil {
		return solver.Result{}, s.err
	}
	values := make([]float64, p.NumVariables())
	for i, v := range p.Variables() {
		values[i] = v.Upper
	}
	return solver.Result{Status: s.status, Objective: 42, VariableValues: values}, nil
}

func newModel(t *testing.T, backend solver.Solver) *DecisionModel {
	t.Helper()
	m, err := New("uc", ucTemplate(), testSystem(), backend, solver.Config{}, model.Horizon{
		Periods: 4, Advance: 2, Resolution: time.Hour,
	})
	require.NoError(t, err)
	return m
}

func TestNewRejectsEmptyName(t *testing.T) {
	_, err := New("", ucTemplate(), testSystem(), stubSolver{status: solver.StatusOptimal}, solver.Config{}, model.Horizon{Periods: 4, Advance: 2, Resolution: time.Hour})
	assert.Error(t, err)
}

func TestNewRejectsIncompleteTemplate(t *testing.T) {
	incomplete := template.New()
	incomplete.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)
	_, err := New("uc", incomplete, testSystem(), stubSolver{status: solver.StatusOptimal}, solver.Config{}, model.Horizon{Periods: 4, Advance: 2, Resolution: time.Hour})
	var missing *template.MissingFormulationError
	assert.True(t, errors.As(err, &missing))
}

func TestLifecycleBindBuildSolveAdvance(t *testing.T) {
	m := newModel(t, stubSolver{status: solver.StatusOptimal})
	sys := m.System()

	m.Bind(sys.Start)
	assert.Equal(t, sys.Start, m.Window().Start)
	assert.False(t, m.Built())

	require.NoError(t, m.Build(program.NewBuildContext()))
	require.True(t, m.Built())

	snap, err := m.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "uc", snap.Stage)
	assert.Equal(t, 42.0, snap.Objective)
	assert.Equal(t, 2, snap.Advance)
	vals, ok := snap.Variable(model.VarActivePower, "g1")
	require.True(t, ok)
	assert.Len(t, vals, 4)

	m.Advance()
	assert.Equal(t, sys.Start.Add(2*time.Hour), m.Window().Start)
	assert.False(t, m.Built(), "advance discards the program handle")
}

func TestSolveWithoutBuildFails(t *testing.T) {
	m := newModel(t, stubSolver{status: solver.StatusOptimal})
	m.Bind(m.System().Start)
	_, err := m.Solve(context.Background())
	var be *BuildError
	assert.True(t, errors.As(err, &be))
}

func TestSolvePropagatesTypedErrors(t *testing.T) {
	m := newModel(t, stubSolver{err: &solver.InfeasibleError{}})
	m.Bind(m.System().Start)
	require.NoError(t, m.Build(nil))
	_, err := m.Solve(context.Background())
	var inf *solver.InfeasibleError
	assert.True(t, errors.As(err, &inf))
}

func TestBuildBeyondAvailableDataFails(t *testing.T) {
	m := newModel(t, stubSolver{status: solver.StatusOptimal})
	m.Bind(m.System().Start)
	m.Advance() // window now ends past the 4 available periods
	err := m.Build(nil)
	var be *BuildError
	require.True(t, errors.As(err, &be))
	assert.Equal(t, "uc", be.Stage)
}

func TestCollectParametersDeterministicOrder(t *testing.T) {
	fill := func() *program.BuildContext {
		bctx := program.NewBuildContext()
		onKey := model.ParameterKey{Name: model.ParamOnStatus, Category: model.ThermalStandard}
		ubKey := model.ParameterKey{Name: model.ParamActivePowerUB, Category: model.ThermalStandard}
		for _, dev := range []string{"g3", "g1", "g2"} {
			bctx.SetParameter(onKey, dev, 0, 1)
			bctx.SetParameter(ubKey, dev, 0, 50)
		}
		return bctx
	}

	first := collectParameters(fill(), 1)
	require.Len(t, first, 6)
	for i := 1; i < len(first); i++ {
		a, b := first[i-1], first[i]
		less := a.Name < b.Name || (a.Name == b.Name && a.Device < b.Device)
		assert.True(t, less, "series %d/%d out of order", i-1, i)
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, first, collectParameters(fill(), 1))
	}
}
