// Package decision owns a single optimization stage: a template bound
// to a system and a solver, rebuilt and resolved against a rolling
// time window.
package decision

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/solver"
	"github.com/voltmesh/prodsim/core/store"
	"github.com/voltmesh/prodsim/core/system"
	"github.com/voltmesh/prodsim/core/template"
)

// BuildError reports a failed translation of a template + data slice
// into a solvable program.
type BuildError struct {
	Stage string
	Err   error
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("build stage %q: %v", e.Stage, e.Err)
}

func (e *BuildError) Unwrap() error { return e.Err }

// DecisionModel is one recurring stage of a simulation sequence.
type DecisionModel struct {
	name    string
	tpl     *template.Template
	sys     *system.System
	backend solver.Solver
	cfg     solver.Config
	horizon model.Horizon

	window  model.TimeWindow
	bound   bool
	prog    *program.LinearProgram
	lastCtx *program.BuildContext
}

// New validates the configuration and returns an unbound model.
// Name uniqueness is enforced at sequence assembly, not here.
func New(name string, tpl *template.Template, sys *system.System, backend solver.Solver, cfg solver.Config, horizon model.Horizon) (*DecisionModel, error) {
	if name == "" {
		return nil, fmt.Errorf("decision model name must not be empty")
	}
	if tpl == nil || sys == nil || backend == nil {
		return nil, fmt.Errorf("decision model %q: template, system and solver are required", name)
	}
	if err := horizon.Validate(); err != nil {
		return nil, fmt.Errorf("decision model %q: %w", name, err)
	}
	if err := tpl.Instantiate(sys); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	return &DecisionModel{
		name:    name,
		tpl:     tpl,
		sys:     sys,
		backend: backend,
		cfg:     cfg,
		horizon: horizon,
	}, nil
}

// Name returns the addressing key used by feed-forward rules and
// result queries.
func (m *DecisionModel) Name() string { return m.name }

// Template returns the bound template.
func (m *DecisionModel) Template() *template.Template { return m.tpl }

// System returns the bound data source.
func (m *DecisionModel) System() *system.System { return m.sys }

// Horizon returns the stage's rolling-horizon geometry.
func (m *DecisionModel) Horizon() model.Horizon { return m.horizon }

// Bind anchors the stage's window at the simulation start.
func (m *DecisionModel) Bind(start time.Time) {
	m.window = model.NewTimeWindow(start, m.horizon.Periods, m.horizon.Resolution)
	m.bound = true
	m.prog = nil
}

// Window returns the currently bound window.
func (m *DecisionModel) Window() model.TimeWindow { return m.window }

// Advance shifts the bound window forward by the stage's advance
// length. The previous program handle is discarded.
func (m *DecisionModel) Advance() {
	m.window = m.window.Advance(m.horizon.Advance)
	m.prog = nil
}

// Build translates the template and the data slice for the current
// window into a linear program, honoring parameter values in bctx.
func (m *DecisionModel) Build(bctx *program.BuildContext) error {
	if !m.bound {
		return &BuildError{Stage: m.name, Err: fmt.Errorf("window not bound")}
	}
	if bctx == nil {
		bctx = program.NewBuildContext()
	}
	p, err := buildProgram(m.tpl, m.sys, m.window, bctx)
	if err != nil {
		return &BuildError{Stage: m.name, Err: err}
	}
	if err := p.Validate(); err != nil {
		return &BuildError{Stage: m.name, Err: err}
	}
	m.prog = p
	m.lastCtx = bctx
	return nil
}

// Built reports whether a program handle exists for the current window.
func (m *DecisionModel) Built() bool { return m.prog != nil }

// Program returns the current program handle.
func (m *DecisionModel) Program() *program.LinearProgram { return m.prog }

// Solve invokes the solver on the built program and returns a result
// snapshot. Solver failures are returned as typed errors, never
// swallowed.
func (m *DecisionModel) Solve(ctx context.Context) (store.Snapshot, error) {
	if m.prog == nil {
		return store.Snapshot{}, &BuildError{Stage: m.name, Err: fmt.Errorf("not built for window %s", m.window)}
	}
	started := time.Now()
	res, err := m.backend.Solve(ctx, m.prog, m.cfg)
	if err != nil {
		return store.Snapshot{}, err
	}
	snap := store.Snapshot{
		Stage:     m.name,
		Window:    m.window,
		Advance:   m.horizon.Advance,
		Status:    string(res.Status),
		Objective: res.Objective,
		SolveTime: started.UTC(),
		Duration:  time.Since(started),
		Variables: collectVariables(m.prog, res.VariableValues, m.window.Periods),
		Params:    collectParameters(m.lastCtx, m.window.Periods),
		Duals:     collectDuals(m.prog, res.DualValues),
	}
	return snap, nil
}

func collectVariables(p *program.LinearProgram, values []float64, periods int) []store.Series {
	type key struct {
		k      model.VariableKey
		device string
	}
	byKey := make(map[key]*store.Series)
	var order []key
	for i, v := range p.Variables() {
		if i >= len(values) {
			break
		}
		k := key{v.Key, v.Device}
		sr, ok := byKey[k]
		if !ok {
			sr = &store.Series{
				Name:     v.Key.Name,
				Category: string(v.Key.Category),
				Device:   v.Device,
				Values:   make([]float64, periods),
			}
			byKey[k] = sr
			order = append(order, k)
		}
		if v.Period >= 0 && v.Period < periods {
			sr.Values[v.Period] = values[i]
		}
	}
	out := make([]store.Series, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

func collectParameters(bctx *program.BuildContext, periods int) []store.Series {
	if bctx == nil {
		return nil
	}
	type key struct {
		k      model.ParameterKey
		device string
	}
	byKey := make(map[key]*store.Series)
	var order []key
	for slot, v := range bctx.Slots() {
		k := key{slot.Key, slot.Device}
		sr, ok := byKey[k]
		if !ok {
			sr = &store.Series{
				Name:     slot.Key.Name,
				Category: string(slot.Key.Category),
				Device:   slot.Device,
				Values:   make([]float64, periods),
			}
			byKey[k] = sr
			order = append(order, k)
		}
		if slot.Period >= 0 && slot.Period < periods {
			sr.Values[slot.Period] = v
		}
	}
	// Slot map iteration order is random; sort so persisted
	// snapshots are reproducible.
	sort.Slice(order, func(i, j int) bool {
		a, b := order[i], order[j]
		if a.k.Name != b.k.Name {
			return a.k.Name < b.k.Name
		}
		if a.k.Category != b.k.Category {
			return a.k.Category < b.k.Category
		}
		return a.device < b.device
	})
	out := make([]store.Series, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	return out
}

func collectDuals(p *program.LinearProgram, duals []float64) []store.Series {
	if len(duals) == 0 {
		return nil
	}
	var out []store.Series
	for i, c := range p.Constraints() {
		if i >= len(duals) {
			break
		}
		out = append(out, store.Series{Name: c.Name, Values: []float64{duals[i]}})
	}
	return out
}
