// Package sequence composes decision models, feed-forward rules and a
// chronology into an executable ordering of stages.
package sequence

import (
	"fmt"
	"strings"

	"github.com/voltmesh/prodsim/core/chronology"
	"github.com/voltmesh/prodsim/core/decision"
	"github.com/voltmesh/prodsim/core/feedforward"
)

// DuplicateNameError reports a stage name used more than once.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("stage name %q used more than once", e.Name)
}

// CyclicDependencyError reports a same-step feed-forward cycle.
type CyclicDependencyError struct {
	Stages []string
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic feed-forward dependency among stages: %s", strings.Join(e.Stages, ", "))
}

// Sequence owns the stage set, the attached rules, and the
// initial-condition chronology. Construction validates everything a
// run would need: duplicate names, rule bindings, and acyclicity.
type Sequence struct {
	models  []*decision.DecisionModel
	byName  map[string]*decision.DecisionModel
	rules   []feedforward.Rule
	chrono  chronology.Chronology
	order   []string
}

// New assembles and validates a sequence. The declaration order of
// models breaks execution-order ties.
func New(models []*decision.DecisionModel, rules []feedforward.Rule, chrono chronology.Chronology) (*Sequence, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("sequence requires at least one decision model")
	}
	s := &Sequence{
		models: models,
		byName: make(map[string]*decision.DecisionModel, len(models)),
		rules:  rules,
		chrono: chrono,
	}
	for _, m := range models {
		if _, dup := s.byName[m.Name()]; dup {
			return nil, &DuplicateNameError{Name: m.Name()}
		}
		s.byName[m.Name()] = m
	}
	for _, r := range rules {
		src, ok := s.byName[r.SourceStage]
		if !ok {
			return nil, &feedforward.BindingError{Rule: r, Reason: fmt.Sprintf("unknown source stage %q", r.SourceStage)}
		}
		dst, ok := s.byName[r.TargetStage]
		if !ok {
			return nil, &feedforward.BindingError{Rule: r, Reason: fmt.Sprintf("unknown target stage %q", r.TargetStage)}
		}
		if err := r.Validate(src.Template(), dst.Template()); err != nil {
			return nil, err
		}
	}
	order, err := topoSort(models, rules)
	if err != nil {
		return nil, err
	}
	s.order = order
	return s, nil
}

// Models returns the stages in declaration order.
func (s *Sequence) Models() []*decision.DecisionModel { return s.models }

// Model returns the stage with the given name.
func (s *Sequence) Model(name string) (*decision.DecisionModel, bool) {
	m, ok := s.byName[name]
	return m, ok
}

// Rules returns the attached feed-forward rules.
func (s *Sequence) Rules() []feedforward.Rule { return s.rules }

// RulesTargeting returns the rules whose target is the given stage.
func (s *Sequence) RulesTargeting(stage string) []feedforward.Rule {
	var out []feedforward.Rule
	for _, r := range s.rules {
		if r.TargetStage == stage {
			out = append(out, r)
		}
	}
	return out
}

// Chronology returns the initial-condition chronology. A nil
// chronology means every step uses stage defaults.
func (s *Sequence) Chronology() chronology.Chronology { return s.chrono }

// ExecutionOrder returns a deterministic topological ordering of stage
// names for one simulation step: every rule's source precedes its
// target, ties broken by declaration order.
func (s *Sequence) ExecutionOrder() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// topoSort runs Kahn's algorithm, scanning candidates in declaration
// order so the result is stable.
func topoSort(models []*decision.DecisionModel, rules []feedforward.Rule) ([]string, error) {
	names := make([]string, len(models))
	indeg := make(map[string]int, len(models))
	succ := make(map[string][]string, len(models))
	for i, m := range models {
		names[i] = m.Name()
		indeg[m.Name()] = 0
	}
	seen := make(map[[2]string]bool)
	for _, r := range rules {
		edge := [2]string{r.SourceStage, r.TargetStage}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		succ[r.SourceStage] = append(succ[r.SourceStage], r.TargetStage)
		indeg[r.TargetStage]++
	}

	var order []string
	done := make(map[string]bool, len(names))
	for len(order) < len(names) {
		picked := ""
		for _, n := range names {
			if !done[n] && indeg[n] == 0 {
				picked = n
				break
			}
		}
		if picked == "" {
			var cyclic []string
			for _, n := range names {
				if !done[n] {
					cyclic = append(cyclic, n)
				}
			}
			return nil, &CyclicDependencyError{Stages: cyclic}
		}
		done[picked] = true
		order = append(order, picked)
		for _, next := range succ[picked] {
			indeg[next]--
		}
	}
	return order, nil
}
