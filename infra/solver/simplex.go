// Package solver provides the bundled LP backend built on gonum's
// simplex implementation.
package solver

import (
	"context"
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/voltmesh/prodsim/core/program"
	coresolver "github.com/voltmesh/prodsim/core/solver"
	"github.com/voltmesh/prodsim/infra/logger"
)

// Simplex solves linear programs with gonum's dense simplex. Integral
// variables are solved as their continuous relaxation; any strictly
// positive relaxed value rounds up to one, so a fractional commitment
// never turns into a spurious off decision. Duals are not reported by
// this backend.
type Simplex struct {
	log  logger.Logger
	opts Options
}

// Options tunes the backend from its plugin configuration. Zero
// values defer to the per-solve configuration.
type Options struct {
	// Tolerance is the simplex pivot tolerance used when the solve
	// configuration leaves the gap tolerance unset.
	Tolerance float64 `json:"tolerance"`
	// Verbosity enables solve logging when positive.
	Verbosity int `json:"verbosity"`
}

// NewSimplex returns the bundled simplex backend.
func NewSimplex() *Simplex {
	return NewSimplexWith(Options{})
}

// NewSimplexWith returns a simplex backend with plugin options.
func NewSimplexWith(opts Options) *Simplex {
	return &Simplex{log: logger.New("simplex"), opts: opts}
}

// solveFn points to the raw solve routine. Tests override it to
// simulate backend failures and hangs.
var solveFn = rawSolve

// Solve implements solver.Solver. A configured timeout converts a
// hung solve into a SolverError instead of stalling the caller.
func (s *Simplex) Solve(ctx context.Context, p *program.LinearProgram, cfg coresolver.Config) (coresolver.Result, error) {
	if cfg.GapTolerance <= 0 {
		cfg.GapTolerance = s.opts.Tolerance
	}
	if cfg.Verbosity == 0 {
		cfg.Verbosity = s.opts.Verbosity
	}
	cfg.SetDefaults()
	if err := p.Validate(); err != nil {
		return coresolver.Result{}, &coresolver.SolverError{Status: coresolver.StatusError, Err: err}
	}

	type outcome struct {
		res coresolver.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := solveFn(p, cfg.GapTolerance)
		done <- outcome{res, err}
	}()

	var timeout <-chan time.Time
	if cfg.TimeoutSeconds > 0 {
		timer := time.NewTimer(time.Duration(cfg.TimeoutSeconds) * time.Second)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case out := <-done:
		if out.err != nil {
			return coresolver.Result{}, out.err
		}
		if cfg.Verbosity > 0 {
			s.log.Debugw("solve finished", map[string]any{
				"columns":   p.NumVariables(),
				"rows":      len(p.Constraints()),
				"objective": out.res.Objective,
			})
		}
		return out.res, nil
	case <-ctx.Done():
		return coresolver.Result{}, &coresolver.SolverError{Status: coresolver.StatusError, Err: ctx.Err()}
	case <-timeout:
		return coresolver.Result{}, &coresolver.SolverError{Status: coresolver.StatusTimeout, Err: context.DeadlineExceeded}
	}
}

// rawSolve converts the program to gonum's general form and runs the
// simplex algorithm.
func rawSolve(p *program.LinearProgram, tol float64) (coresolver.Result, error) {
	vars := p.Variables()
	n := len(vars)
	if n == 0 {
		return coresolver.Result{Status: coresolver.StatusOptimal}, nil
	}

	c := make([]float64, n)
	for i, v := range vars {
		c[i] = v.Cost
	}

	type row struct {
		terms []program.Term
		rhs   float64
	}
	var ineq, eq []row
	for i, v := range vars {
		if !math.IsInf(v.Upper, 1) {
			ineq = append(ineq, row{terms: []program.Term{{Var: i, Coeff: 1}}, rhs: v.Upper})
		}
		// Lower bounds enter as -x <= -lower; zero lowers are implied
		// by the standard-form conversion's slack handling only for
		// nonnegative solutions, so they are emitted explicitly.
		ineq = append(ineq, row{terms: []program.Term{{Var: i, Coeff: -1}}, rhs: -v.Lower})
	}
	for _, con := range p.Constraints() {
		switch con.Sense {
		case program.LessEq:
			ineq = append(ineq, row{terms: con.Terms, rhs: con.RHS})
		case program.GreaterEq:
			neg := make([]program.Term, len(con.Terms))
			for i, t := range con.Terms {
				neg[i] = program.Term{Var: t.Var, Coeff: -t.Coeff}
			}
			ineq = append(ineq, row{terms: neg, rhs: -con.RHS})
		case program.Equal:
			eq = append(eq, row{terms: con.Terms, rhs: con.RHS})
		}
	}

	g := mat.NewDense(len(ineq), n, nil)
	h := make([]float64, len(ineq))
	for i, r := range ineq {
		for _, t := range r.terms {
			g.Set(i, t.Var, t.Coeff)
		}
		h[i] = r.rhs
	}

	var aMat mat.Matrix
	var b []float64
	if len(eq) > 0 {
		a := mat.NewDense(len(eq), n, nil)
		b = make([]float64, len(eq))
		for i, r := range eq {
			for _, t := range r.terms {
				a.Set(i, t.Var, t.Coeff)
			}
			b[i] = r.rhs
		}
		aMat = a
	}

	cStd, aStd, bStd := lp.Convert(c, g, h, aMat, b)
	_, sol, err := lp.Simplex(cStd, aStd, bStd, tol, nil)
	if err != nil {
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return coresolver.Result{}, &coresolver.InfeasibleError{}
		case errors.Is(err, lp.ErrUnbounded):
			return coresolver.Result{}, &coresolver.SolverError{Status: coresolver.StatusUnbounded, Err: err}
		default:
			return coresolver.Result{}, &coresolver.SolverError{Status: coresolver.StatusError, Err: err}
		}
	}

	// Convert splits each free variable into a positive and negative
	// part; recover x from the first two blocks.
	x := make([]float64, n)
	for i := range x {
		x[i] = sol[i] - sol[n+i]
	}
	for i, v := range vars {
		if v.Integral {
			if x[i] > 1e-6 {
				x[i] = 1
			} else {
				x[i] = 0
			}
		}
	}
	obj := 0.0
	for i := range x {
		obj += c[i] * x[i]
	}

	return coresolver.Result{
		Status:         coresolver.StatusOptimal,
		Objective:      obj,
		VariableValues: x,
	}, nil
}
