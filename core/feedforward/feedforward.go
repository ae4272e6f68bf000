// Package feedforward copies solved variable values from one stage
// into another stage's build parameters.
package feedforward

import (
	"fmt"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/store"
	"github.com/voltmesh/prodsim/core/template"
)

// Kind selects the semantics and the time-alignment policy of a rule.
type Kind string

const (
	// SemiContinuous feeds on/off commitment status into limit-scaling
	// parameters, holding the last known status across finer target
	// periods.
	SemiContinuous Kind = "semi_continuous"
	// FixValue pins the target variable to the source value.
	FixValue Kind = "fix_value"
	// UpperBound caps the target variable at the source value.
	UpperBound Kind = "upper_bound"
	// LowerBound floors the target variable at the source value.
	LowerBound Kind = "lower_bound"
)

// Rule is a typed variable-to-parameter copy between two stages.
// Rules are read-only once attached to a sequence.
type Rule struct {
	Kind        Kind
	SourceStage string
	TargetStage string
	// Source is the solved variable read from the source snapshot.
	Source model.VariableKey
	// Affected are the target parameters the values are written to.
	Affected []model.ParameterKey
}

func (r Rule) String() string {
	return fmt.Sprintf("%s: %s[%s] -> %s", r.Kind, r.SourceStage, r.Source, r.TargetStage)
}

// BindingError reports a rule referencing variables or parameters the
// stage templates do not produce or consume.
type BindingError struct {
	Rule   Rule
	Reason string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("feed-forward %s: %s", e.Rule, e.Reason)
}

// Validate resolves the rule against the source and target stage
// templates.
func (r Rule) Validate(source, target *template.Template) error {
	if r.SourceStage == r.TargetStage {
		return &BindingError{Rule: r, Reason: "source and target stage are identical"}
	}
	if len(r.Affected) == 0 {
		return &BindingError{Rule: r, Reason: "no affected parameters"}
	}
	if !source.HasVariable(r.Source) {
		return &BindingError{Rule: r, Reason: fmt.Sprintf("source stage does not produce variable %s", r.Source)}
	}
	for _, k := range r.Affected {
		if !target.HasParameter(k) {
			return &BindingError{Rule: r, Reason: fmt.Sprintf("target stage does not consume parameter %s", k)}
		}
	}
	return nil
}

// Apply copies the rule's source values from a solved snapshot into
// the target build context, resampled onto the target window. Writes
// are plain assignment, so reapplying with the same snapshot is
// idempotent. The snapshot is never mutated.
func (r Rule) Apply(snap *store.Snapshot, bctx *program.BuildContext, target model.TimeWindow) error {
	applied := false
	for _, sr := range snap.Variables {
		if sr.Name != r.Source.Name || sr.Category != string(r.Source.Category) {
			continue
		}
		values := r.resample(sr.Values, snap.Window, target)
		for _, key := range r.Affected {
			for t, v := range values {
				bctx.SetParameter(key, sr.Device, t, v)
			}
		}
		applied = true
	}
	if !applied {
		return fmt.Errorf("feed-forward %s: snapshot of stage %q has no values for %s", r.Kind, snap.Stage, r.Source)
	}
	return nil
}

// resample aligns source values onto the target window. Status-like
// kinds hold the covering source value; value kinds hold when the
// target is finer and average when it is coarser.
func (r Rule) resample(src []float64, from, to model.TimeWindow) []float64 {
	if r.Kind == SemiContinuous || r.Kind == FixValue || to.Resolution <= from.Resolution {
		return resampleHold(src, from, to)
	}
	return resampleAverage(src, from, to)
}
