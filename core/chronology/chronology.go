// Package chronology selects which prior solution supplies a stage's
// initial conditions. Resolution is a pure function of its arguments:
// the driver owns the last-solved bookkeeping and passes it in.
package chronology

// Source references the snapshot that supplies initial conditions.
type Source struct {
	// Stage whose snapshot is read.
	Stage string
	// Step index of the snapshot.
	Step int
	// Terminal selects the final period of the snapshot instead of a
	// window-aligned slice.
	Terminal bool
}

// Chronology resolves the initial-condition source for a stage at a
// step. ok is false when no prior state exists and stage defaults
// apply (always the case at step 0 for intra-stage chronologies).
type Chronology interface {
	ResolveInitialCondition(stage string, step int, lastSolved map[string]int) (src Source, ok bool)
}

// InterStage feeds the most recent solved snapshot of a paired source
// stage into the target stage's upcoming execution.
type InterStage struct {
	// Pairs maps target stage name to source stage name.
	Pairs map[string]string
}

// NewInterStage returns an inter-stage chronology with the given
// target-to-source pairs.
func NewInterStage(pairs map[string]string) *InterStage {
	cp := make(map[string]string, len(pairs))
	for k, v := range pairs {
		cp[k] = v
	}
	return &InterStage{Pairs: cp}
}

func (c *InterStage) ResolveInitialCondition(stage string, _ int, lastSolved map[string]int) (Source, bool) {
	src, ok := c.Pairs[stage]
	if !ok {
		return Source{}, false
	}
	last, solved := lastSolved[src]
	if !solved {
		return Source{}, false
	}
	return Source{Stage: src, Step: last}, true
}

// IntraStage feeds the terminal state of the stage's own previous
// execution into its next one.
type IntraStage struct{}

// NewIntraStage returns an intra-stage chronology.
func NewIntraStage() *IntraStage { return &IntraStage{} }

func (*IntraStage) ResolveInitialCondition(stage string, step int, lastSolved map[string]int) (Source, bool) {
	if step == 0 {
		return Source{}, false
	}
	last, solved := lastSolved[stage]
	if !solved || last != step-1 {
		return Source{}, false
	}
	return Source{Stage: stage, Step: step - 1, Terminal: true}, true
}
