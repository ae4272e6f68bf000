// Package simulation drives a sequence across discrete steps: it
// validates time-window compatibility, builds and solves each stage in
// dependency order, feeds results forward, and persists snapshots.
package simulation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/voltmesh/prodsim/core/chronology"
	"github.com/voltmesh/prodsim/core/decision"
	"github.com/voltmesh/prodsim/core/events"
	"github.com/voltmesh/prodsim/core/logger"
	"github.com/voltmesh/prodsim/core/metrics"
	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/sequence"
	"github.com/voltmesh/prodsim/core/store"
	"github.com/voltmesh/prodsim/internal/eventbus"
)

// State is the driver lifecycle state.
type State string

const (
	Created   State = "created"
	Built     State = "built"
	Executing State = "executing"
	Completed State = "completed"
	Failed    State = "failed"
)

// Options controls execution policy.
type Options struct {
	// ContinueOnSolveFailure records a failed-step marker and moves to
	// the next step instead of aborting the run.
	ContinueOnSolveFailure bool
}

// Simulation owns one run: a named sequence, a step count, and a
// results store. Instances are independent; two simulations never
// share state.
type Simulation struct {
	name    string
	steps   int
	seq     *sequence.Sequence
	results store.Store

	log  logger.Logger
	sink metrics.Sink
	bus  eventbus.EventBus
	opts Options

	state      State
	runID      string
	start      time.Time
	lastSolved map[string]int
	snapshots  map[string]map[int]store.Snapshot
}

// New returns a simulation in the Created state.
func New(name string, steps int, seq *sequence.Sequence, results store.Store) (*Simulation, error) {
	if name == "" {
		return nil, fmt.Errorf("simulation name must not be empty")
	}
	if steps <= 0 {
		return nil, fmt.Errorf("simulation %q: steps must be positive, got %d", name, steps)
	}
	if seq == nil || results == nil {
		return nil, fmt.Errorf("simulation %q: sequence and results store are required", name)
	}
	return &Simulation{
		name:       name,
		steps:      steps,
		seq:        seq,
		results:    results,
		log:        nopLogger{},
		sink:       metrics.NopSink{},
		state:      Created,
		lastSolved: make(map[string]int),
		snapshots:  make(map[string]map[int]store.Snapshot),
	}, nil
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...any)         {}
func (nopLogger) Debugw(string, map[string]any) {}
func (nopLogger) Infof(string, ...any)          {}
func (nopLogger) Warnf(string, ...any)          {}
func (nopLogger) Errorf(string, ...any)         {}

// SetLogger configures the driver logger.
func (s *Simulation) SetLogger(log logger.Logger) {
	if log != nil {
		s.log = log
	}
}

// SetMetricsSink configures the sink solve records are written to.
func (s *Simulation) SetMetricsSink(sink metrics.Sink) {
	if sink != nil {
		s.sink = sink
	}
}

// SetEventBus configures the bus driver events are published on.
func (s *Simulation) SetEventBus(bus eventbus.EventBus) { s.bus = bus }

// SetOptions configures the execution policy.
func (s *Simulation) SetOptions(opts Options) { s.opts = opts }

// Name returns the simulation name.
func (s *Simulation) Name() string { return s.name }

// Steps returns the configured step count.
func (s *Simulation) Steps() int { return s.steps }

// State returns the current lifecycle state.
func (s *Simulation) State() State { return s.state }

// RunID returns the identifier of the current or last execution.
func (s *Simulation) RunID() string { return s.runID }

// Results returns the results store for post-hoc queries.
func (s *Simulation) Results() store.Store { return s.results }

func (s *Simulation) transition(to State) {
	from := s.state
	s.state = to
	s.log.Debugw("state transition", map[string]any{"from": string(from), "to": string(to)})
	s.publish(events.StateEvent{
		RunID:      s.runID,
		Simulation: s.name,
		From:       string(from),
		To:         string(to),
		Time:       time.Now().UTC(),
	})
}

func (s *Simulation) publish(e eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

// Build validates every stage's window geometry against its data
// source and pre-builds step-0 programs. Validation collects every
// issue before failing so a misconfigured run surfaces all problems
// at once. Nothing is persisted on failure.
func (s *Simulation) Build() error {
	if s.state != Created {
		return fmt.Errorf("simulation %q: build requires state %s, currently %s", s.name, Created, s.state)
	}
	var issues []string
	models := s.seq.Models()
	s.start = models[0].System().Start
	for _, m := range models {
		sys := m.System()
		if !sys.Start.Equal(s.start) {
			issues = append(issues, fmt.Sprintf("stage %q: data starts at %s, expected %s", m.Name(), sys.Start, s.start))
			continue
		}
		issues = append(issues, s.validateGeometry(m)...)
	}
	if len(issues) == 0 {
		for _, m := range models {
			m.Bind(s.start)
			if err := m.Build(program.NewBuildContext()); err != nil {
				issues = append(issues, err.Error())
			}
		}
	}
	if len(issues) > 0 {
		return &ValidationError{Simulation: s.name, Issues: issues}
	}
	s.transition(Built)
	s.log.Infof("simulation %s built: %d stages, %d steps", s.name, len(models), s.steps)
	return nil
}

// validateGeometry checks one stage's horizon against the available
// data: resolutions must nest evenly and the final step's window must
// fit inside the available series.
func (s *Simulation) validateGeometry(m *decision.DecisionModel) []string {
	var issues []string
	h := m.Horizon()
	sys := m.System()
	native := sys.Resolution()
	if h.Resolution >= native {
		if h.Resolution%native != 0 {
			issues = append(issues, fmt.Sprintf("stage %q: resolution %s does not align with data resolution %s", m.Name(), h.Resolution, native))
		}
	} else if native%h.Resolution != 0 {
		issues = append(issues, fmt.Sprintf("stage %q: resolution %s does not align with data resolution %s", m.Name(), h.Resolution, native))
	}
	available := time.Duration(sys.AvailableHorizon()) * native
	needed := time.Duration((s.steps-1)*h.Advance+h.Periods) * h.Resolution
	if needed > available {
		issues = append(issues, fmt.Sprintf("stage %q: %d steps need %s of data, only %s available", m.Name(), s.steps, needed, available))
	}
	return issues
}

// Execute runs the step loop. Stages solve strictly sequentially in
// execution order; any solve failure aborts the run (or, with
// ContinueOnSolveFailure, skips to the next step) while keeping prior
// steps queryable.
func (s *Simulation) Execute(ctx context.Context) error {
	if s.state != Built {
		return fmt.Errorf("simulation %q: execute requires state %s, currently %s", s.name, Built, s.state)
	}
	s.runID = uuid.NewString()
	s.transition(Executing)
	s.log.Infof("simulation %s executing run %s", s.name, s.runID)

	for step := 0; step < s.steps; step++ {
		if err := ctx.Err(); err != nil {
			s.transition(Failed)
			return fmt.Errorf("simulation %q: canceled at step %d: %w", s.name, step, err)
		}
		s.publish(events.StepEvent{RunID: s.runID, Step: step, Time: time.Now().UTC()})
		if err := s.executeStep(ctx, step); err != nil {
			if s.opts.ContinueOnSolveFailure && isSolveFailure(err) {
				s.log.Warnf("step %d failed, continuing: %v", step, err)
				continue
			}
			s.transition(Failed)
			return err
		}
	}
	s.transition(Completed)
	s.log.Infof("simulation %s completed %d steps", s.name, s.steps)
	return nil
}

func (s *Simulation) executeStep(ctx context.Context, step int) error {
	order := s.seq.ExecutionOrder()
	for i, name := range order {
		m, _ := s.seq.Model(name)
		bctx := program.NewBuildContext()

		s.resolveInitialConditions(m, step, bctx)

		for _, rule := range s.seq.RulesTargeting(name) {
			snap, ok := s.snapshot(rule.SourceStage, step)
			if !ok {
				return fmt.Errorf("stage %q step %d: source stage %q has no snapshot for rule %s", name, step, rule.SourceStage, rule)
			}
			if err := rule.Apply(&snap, bctx, m.Window()); err != nil {
				return fmt.Errorf("stage %q step %d: %w", name, step, err)
			}
		}

		if err := m.Build(bctx); err != nil {
			s.markFailed(ctx, name, step, err)
			return err
		}

		snap, err := m.Solve(ctx)
		if err != nil {
			s.recordSolve(name, step, string(failureStatus(err)), 0, 0)
			s.publish(events.SolveEvent{RunID: s.runID, Stage: name, Step: step, Window: m.Window(), Err: err})
			s.markFailed(ctx, name, step, err)
			// Keep window bookkeeping consistent in case the run
			// continues into the next step.
			s.advanceFrom(order, i)
			return fmt.Errorf("stage %q step %d: %w", name, step, err)
		}
		snap.Step = step
		snap.RunID = s.runID
		if err := s.results.WriteStep(ctx, snap); err != nil {
			return fmt.Errorf("stage %q step %d: persist snapshot: %w", name, step, err)
		}
		s.remember(snap)
		s.lastSolved[name] = step
		s.recordSolve(name, step, snap.Status, snap.Objective, snap.Duration)
		s.publish(events.SolveEvent{
			RunID:     s.runID,
			Stage:     name,
			Step:      step,
			Window:    snap.Window,
			Status:    snap.Status,
			Objective: snap.Objective,
			Duration:  snap.Duration,
		})
		s.log.Debugw("stage solved", map[string]any{
			"stage":     name,
			"step":      step,
			"objective": snap.Objective,
			"status":    snap.Status,
		})
		m.Advance()
	}
	return nil
}

// resolveInitialConditions maps the chronology's source snapshot onto
// initial-condition parameters for the stage's thermal devices. With
// no resolvable source the stage's data defaults apply.
func (s *Simulation) resolveInitialConditions(m *decision.DecisionModel, step int, bctx *program.BuildContext) {
	chrono := s.seq.Chronology()
	if chrono == nil {
		return
	}
	src, ok := chrono.ResolveInitialCondition(m.Name(), step, s.lastSolved)
	if !ok {
		return
	}
	snap, ok := s.snapshot(src.Stage, src.Step)
	if !ok {
		return
	}
	powerKey := model.ParameterKey{Name: model.ParamInitialPower, Category: model.ThermalStandard}
	statusKey := model.ParameterKey{Name: model.ParamInitialOnStatus, Category: model.ThermalStandard}
	for _, g := range m.System().Thermal {
		if values, found := snap.Variable(model.VarActivePower, g.Name); found && len(values) > 0 {
			bctx.SetParameter(powerKey, g.Name, 0, s.pick(snap, values, src, m.Window()))
		}
		if values, found := snap.Variable(model.VarOnStatus, g.Name); found && len(values) > 0 {
			bctx.SetParameter(statusKey, g.Name, 0, s.pick(snap, values, src, m.Window()))
		}
	}
}

// pick selects the terminal value for intra-stage sources and the
// value covering the target window's start for inter-stage sources.
func (s *Simulation) pick(snap store.Snapshot, values []float64, src chronology.Source, target model.TimeWindow) float64 {
	if src.Terminal {
		return values[len(values)-1]
	}
	idx := int(target.Start.Sub(snap.Window.Start) / snap.Window.Resolution)
	if idx < 0 {
		idx = 0
	}
	if idx >= len(values) {
		idx = len(values) - 1
	}
	return values[idx]
}

func (s *Simulation) advanceFrom(order []string, idx int) {
	for _, name := range order[idx:] {
		if m, ok := s.seq.Model(name); ok {
			m.Advance()
		}
	}
}

func (s *Simulation) markFailed(ctx context.Context, stage string, step int, cause error) {
	if err := s.results.MarkStepFailed(ctx, stage, step, cause.Error()); err != nil {
		s.log.Errorf("mark step %d failed for stage %s: %v", step, stage, err)
	}
}

func (s *Simulation) recordSolve(stage string, step int, status string, objective float64, dur time.Duration) {
	err := s.sink.RecordSolve(metrics.SolveRecord{
		RunID:      s.runID,
		Simulation: s.name,
		Stage:      stage,
		Step:       step,
		Status:     status,
		Objective:  objective,
		Duration:   dur,
		Time:       time.Now().UTC(),
	})
	if err != nil {
		s.log.Warnf("record solve metrics: %v", err)
	}
}

func (s *Simulation) remember(snap store.Snapshot) {
	if s.snapshots[snap.Stage] == nil {
		s.snapshots[snap.Stage] = make(map[int]store.Snapshot)
	}
	s.snapshots[snap.Stage][snap.Step] = snap
}

func (s *Simulation) snapshot(stage string, step int) (store.Snapshot, bool) {
	snap, ok := s.snapshots[stage][step]
	return snap, ok
}
