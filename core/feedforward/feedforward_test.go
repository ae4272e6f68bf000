package feedforward

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/store"
	"github.com/voltmesh/prodsim/core/template"
)

var (
	statusVar   = model.VariableKey{Name: model.VarOnStatus, Category: model.ThermalStandard}
	statusParam = model.ParameterKey{Name: model.ParamOnStatus, Category: model.ThermalStandard}
)

func semiContinuousRule() Rule {
	return Rule{
		Kind:        SemiContinuous,
		SourceStage: "uc",
		TargetStage: "ed",
		Source:      statusVar,
		Affected:    []model.ParameterKey{statusParam},
	}
}

func ucTemplate() *template.Template {
	tpl := template.New()
	tpl.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)
	return tpl
}

func edTemplate() *template.Template {
	tpl := template.New()
	tpl.SetFormulation(model.ThermalStandard, model.ThermalDispatch)
	return tpl
}

func TestValidateAcceptsMatchingTemplates(t *testing.T) {
	assert.NoError(t, semiContinuousRule().Validate(ucTemplate(), edTemplate()))
}

func TestValidateRejectsMissingSourceVariable(t *testing.T) {
	rule := semiContinuousRule()
	err := rule.Validate(edTemplate(), edTemplate())
	var be *BindingError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Reason, "does not produce")
}

func TestValidateRejectsMissingTargetParameter(t *testing.T) {
	rule := semiContinuousRule()
	err := rule.Validate(ucTemplate(), ucTemplate())
	var be *BindingError
	require.True(t, errors.As(err, &be))
	assert.Contains(t, be.Reason, "does not consume")
}

func TestValidateRejectsSelfFeed(t *testing.T) {
	rule := semiContinuousRule()
	rule.TargetStage = "uc"
	assert.Error(t, rule.Validate(ucTemplate(), ucTemplate()))
}

func sourceSnapshot(periods int, res time.Duration, values []float64) store.Snapshot {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	return store.Snapshot{
		Stage:  "uc",
		Window: model.NewTimeWindow(start, periods, res),
		Variables: []store.Series{
			{Name: model.VarOnStatus, Category: string(model.ThermalStandard), Device: "g1", Values: values},
		},
	}
}

func TestApplyHoldsStatusAcrossFinerPeriods(t *testing.T) {
	snap := sourceSnapshot(2, time.Hour, []float64{1, 0})
	target := model.NewTimeWindow(snap.Window.Start, 4, 30*time.Minute)

	bctx := program.NewBuildContext()
	require.NoError(t, semiContinuousRule().Apply(&snap, bctx, target))

	want := []float64{1, 1, 0, 0}
	for i, exp := range want {
		v, ok := bctx.Parameter(statusParam, "g1", i)
		require.True(t, ok, "period %d", i)
		assert.Equal(t, exp, v, "period %d", i)
	}
}

func TestApplyHoldsLastValueBeyondSourceWindow(t *testing.T) {
	snap := sourceSnapshot(2, time.Hour, []float64{1, 0})
	// Target starts at the source's second hour and extends past it.
	target := model.NewTimeWindow(snap.Window.Start.Add(time.Hour), 3, time.Hour)

	bctx := program.NewBuildContext()
	require.NoError(t, semiContinuousRule().Apply(&snap, bctx, target))
	for i := 0; i < 3; i++ {
		v, ok := bctx.Parameter(statusParam, "g1", i)
		require.True(t, ok)
		assert.Equal(t, 0.0, v)
	}
}

func TestApplyAveragesValueFeedsOntoCoarserWindow(t *testing.T) {
	powerVar := model.VariableKey{Name: model.VarActivePower, Category: model.ThermalStandard}
	ubParam := model.ParameterKey{Name: model.ParamActivePowerUB, Category: model.ThermalStandard}
	rule := Rule{
		Kind:        UpperBound,
		SourceStage: "ed",
		TargetStage: "uc",
		Source:      powerVar,
		Affected:    []model.ParameterKey{ubParam},
	}

	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := store.Snapshot{
		Stage:  "ed",
		Window: model.NewTimeWindow(start, 4, 30*time.Minute),
		Variables: []store.Series{
			{Name: model.VarActivePower, Category: string(model.ThermalStandard), Device: "g1", Values: []float64{10, 20, 30, 50}},
		},
	}
	target := model.NewTimeWindow(start, 2, time.Hour)

	bctx := program.NewBuildContext()
	require.NoError(t, rule.Apply(&snap, bctx, target))
	v0, _ := bctx.Parameter(ubParam, "g1", 0)
	v1, _ := bctx.Parameter(ubParam, "g1", 1)
	assert.Equal(t, 15.0, v0)
	assert.Equal(t, 40.0, v1)
}

func TestApplyIsIdempotent(t *testing.T) {
	snap := sourceSnapshot(2, time.Hour, []float64{1, 0})
	target := model.NewTimeWindow(snap.Window.Start, 2, time.Hour)
	rule := semiContinuousRule()

	bctx := program.NewBuildContext()
	require.NoError(t, rule.Apply(&snap, bctx, target))
	first := bctx.Slots()
	require.NoError(t, rule.Apply(&snap, bctx, target))
	assert.Equal(t, first, bctx.Slots(), "no accumulation on reapply")
}

func TestApplyDoesNotMutateSnapshot(t *testing.T) {
	snap := sourceSnapshot(2, time.Hour, []float64{1, 0})
	target := model.NewTimeWindow(snap.Window.Start, 4, 30*time.Minute)
	bctx := program.NewBuildContext()
	require.NoError(t, semiContinuousRule().Apply(&snap, bctx, target))
	assert.Equal(t, []float64{1, 0}, snap.Variables[0].Values)
}

func TestApplyUnknownVariableFails(t *testing.T) {
	snap := sourceSnapshot(2, time.Hour, []float64{1, 0})
	snap.Variables[0].Name = "SomethingElse"
	bctx := program.NewBuildContext()
	err := semiContinuousRule().Apply(&snap, bctx, snap.Window)
	assert.Error(t, err)
}
