package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	coresolver "github.com/voltmesh/prodsim/core/solver"
)

func key(name string) model.VariableKey {
	return model.VariableKey{Name: name, Category: model.ThermalStandard}
}

func column(name string, lower, upper, cost float64) program.Variable {
	return program.Variable{Key: key(name), Device: "g", Lower: lower, Upper: upper, Cost: cost}
}

func TestSolveMeritOrder(t *testing.T) {
	// min x + 3y subject to x + y = 10, x <= 6: the cheap column fills
	// first.
	p := program.New()
	x := p.AddVariable(column("x", 0, 6, 1))
	y := p.AddVariable(column("y", 0, math.Inf(1), 3))
	p.AddConstraint(program.Constraint{
		Name: "demand", Sense: program.Equal, RHS: 10,
		Terms: []program.Term{{Var: x, Coeff: 1}, {Var: y, Coeff: 1}},
	})

	res, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	require.NoError(t, err)
	assert.Equal(t, coresolver.StatusOptimal, res.Status)
	assert.InDelta(t, 6, res.VariableValues[x], 1e-9)
	assert.InDelta(t, 4, res.VariableValues[y], 1e-9)
	assert.InDelta(t, 18, res.Objective, 1e-9)
}

func TestNonzeroLowerBoundHonored(t *testing.T) {
	// min x with x in [20, 80] must settle on the lower bound.
	p := program.New()
	x := p.AddVariable(column("x", 20, 80, 1))

	res, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	require.NoError(t, err)
	assert.InDelta(t, 20, res.VariableValues[x], 1e-9)
}

func TestInfeasibleProgramTyped(t *testing.T) {
	// x <= 2 by bound but x >= 5 by constraint.
	p := program.New()
	x := p.AddVariable(column("x", 0, 2, 1))
	p.AddConstraint(program.Constraint{
		Name: "floor", Sense: program.GreaterEq, RHS: 5,
		Terms: []program.Term{{Var: x, Coeff: 1}},
	})

	_, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	var inf *coresolver.InfeasibleError
	require.True(t, errors.As(err, &inf), "got %v", err)
}

func TestUnboundedProgramTyped(t *testing.T) {
	p := program.New()
	p.AddVariable(column("x", 0, math.Inf(1), -1))

	_, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	var se *coresolver.SolverError
	require.True(t, errors.As(err, &se), "got %v", err)
	assert.Equal(t, coresolver.StatusUnbounded, se.Status)
}

func TestInvalidBoundsRejected(t *testing.T) {
	p := program.New()
	p.AddVariable(column("x", 5, 2, 1))

	_, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	var se *coresolver.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, coresolver.StatusError, se.Status)
}

func TestIntegralRelaxationRounds(t *testing.T) {
	// p = 40 with p <= 80u forces u to 0.5 in the relaxation; the
	// backend rounds the positive commitment up.
	p := program.New()
	pw := p.AddVariable(column("p", 0, 80, 0))
	u := p.AddVariable(program.Variable{Key: key("u"), Device: "g", Lower: 0, Upper: 1, Integral: true, Cost: 1})
	p.AddConstraint(program.Constraint{
		Name: "fix", Sense: program.Equal, RHS: 40,
		Terms: []program.Term{{Var: pw, Coeff: 1}},
	})
	p.AddConstraint(program.Constraint{
		Name: "cap", Sense: program.LessEq, RHS: 0,
		Terms: []program.Term{{Var: pw, Coeff: 1}, {Var: u, Coeff: -80}},
	})

	res, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.VariableValues[u])
	assert.InDelta(t, 40, res.VariableValues[pw], 1e-9)
}

func TestContextCancellationStopsSolve(t *testing.T) {
	orig := solveFn
	solveFn = func(*program.LinearProgram, float64) (coresolver.Result, error) {
		time.Sleep(5 * time.Second)
		return coresolver.Result{}, nil
	}
	defer func() { solveFn = orig }()

	p := program.New()
	p.AddVariable(column("x", 0, 1, 1))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewSimplex().Solve(ctx, p, coresolver.Config{})
	var se *coresolver.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, coresolver.StatusError, se.Status)
}

func TestTimeoutReported(t *testing.T) {
	orig := solveFn
	solveFn = func(*program.LinearProgram, float64) (coresolver.Result, error) {
		time.Sleep(5 * time.Second)
		return coresolver.Result{}, nil
	}
	defer func() { solveFn = orig }()

	p := program.New()
	p.AddVariable(column("x", 0, 1, 1))

	_, err := NewSimplex().Solve(context.Background(), p, coresolver.Config{TimeoutSeconds: 1})
	var se *coresolver.SolverError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, coresolver.StatusTimeout, se.Status)
}

func TestEmptyProgramOptimal(t *testing.T) {
	res, err := NewSimplex().Solve(context.Background(), program.New(), coresolver.Config{})
	require.NoError(t, err)
	assert.Equal(t, coresolver.StatusOptimal, res.Status)
	assert.Zero(t, res.Objective)
}
