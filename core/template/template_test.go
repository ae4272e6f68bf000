package template

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/system"
)

func testSystem() *system.System {
	return &system.System{
		Name:    "t",
		Start:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		Native:  time.Hour,
		Thermal: []system.ThermalGen{{Name: "g1", MaxPowerMW: 10}},
		Loads:   []system.StaticLoad{{Name: "l", DemandMW: []float64{5}}},
	}
}

func TestInstantiateMissingFormulation(t *testing.T) {
	tpl := New()
	tpl.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)

	err := tpl.Instantiate(testSystem())
	require.Error(t, err)
	var missing *MissingFormulationError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, model.PowerLoad, missing.Category)
}

func TestInstantiateComplete(t *testing.T) {
	tpl := New()
	tpl.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)
	tpl.SetFormulation(model.PowerLoad, model.StaticLoad)
	assert.NoError(t, tpl.Instantiate(testSystem()))
}

func TestSetFormulationLastWriteWins(t *testing.T) {
	tpl := New()
	tpl.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)
	tpl.SetFormulation(model.ThermalStandard, model.ThermalDispatch)
	f, ok := tpl.Formulation(model.ThermalStandard)
	require.True(t, ok)
	assert.Equal(t, model.ThermalDispatch, f)
	assert.Equal(t, []model.DeviceCategory{model.ThermalStandard}, tpl.Categories())
}

func TestVariablesAndParameters(t *testing.T) {
	uc := New()
	uc.SetFormulation(model.ThermalStandard, model.ThermalUnitCommitment)
	assert.True(t, uc.HasVariable(model.VariableKey{Name: model.VarOnStatus, Category: model.ThermalStandard}))
	assert.True(t, uc.HasVariable(model.VariableKey{Name: model.VarActivePower, Category: model.ThermalStandard}))
	assert.False(t, uc.HasParameter(model.ParameterKey{Name: model.ParamOnStatus, Category: model.ThermalStandard}))

	ed := New()
	ed.SetFormulation(model.ThermalStandard, model.ThermalDispatch)
	assert.False(t, ed.HasVariable(model.VariableKey{Name: model.VarOnStatus, Category: model.ThermalStandard}))
	assert.True(t, ed.HasParameter(model.ParameterKey{Name: model.ParamOnStatus, Category: model.ThermalStandard}))
}
