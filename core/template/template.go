// Package template maps device and network categories to the
// mathematical formulation a decision model applies to them.
package template

import (
	"fmt"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/system"
)

// MissingFormulationError is returned by Instantiate when a device
// category present in the system has no assigned formulation.
type MissingFormulationError struct {
	Category model.DeviceCategory
}

func (e *MissingFormulationError) Error() string {
	return fmt.Sprintf("no formulation assigned to device category %q", e.Category)
}

// Template is a declarative mapping from device categories to
// formulations plus a network formulation. It carries no runtime
// behavior beyond validation and is immutable once a decision model
// is built from it.
type Template struct {
	devices  map[model.DeviceCategory]model.Formulation
	network  model.Formulation
	declared []model.DeviceCategory
}

// New returns a template with a copper-plate network formulation.
func New() *Template {
	return &Template{
		devices: make(map[model.DeviceCategory]model.Formulation),
		network: model.CopperPlateBalance,
	}
}

// SetFormulation assigns a formulation to a device category. The last
// write wins.
func (t *Template) SetFormulation(cat model.DeviceCategory, f model.Formulation) {
	if _, seen := t.devices[cat]; !seen {
		t.declared = append(t.declared, cat)
	}
	t.devices[cat] = f
}

// SetNetworkFormulation assigns the network formulation.
func (t *Template) SetNetworkFormulation(f model.Formulation) {
	t.network = f
}

// Formulation returns the formulation assigned to a category.
func (t *Template) Formulation(cat model.DeviceCategory) (model.Formulation, bool) {
	f, ok := t.devices[cat]
	return f, ok
}

// NetworkFormulation returns the network formulation.
func (t *Template) NetworkFormulation() model.Formulation { return t.network }

// Categories returns the categories with a formulation, in the order
// they were first assigned.
func (t *Template) Categories() []model.DeviceCategory {
	out := make([]model.DeviceCategory, len(t.declared))
	copy(out, t.declared)
	return out
}

// Instantiate validates the template against a system: every device
// category present in the system must have a formulation.
func (t *Template) Instantiate(sys *system.System) error {
	for _, cat := range sys.Categories() {
		if _, ok := t.devices[cat]; !ok {
			return &MissingFormulationError{Category: cat}
		}
	}
	return nil
}

// Variables returns the variable keys the template's formulations
// produce. Feed-forward binding resolves source variables against
// this set.
func (t *Template) Variables() []model.VariableKey {
	var keys []model.VariableKey
	for _, cat := range t.declared {
		switch t.devices[cat] {
		case model.ThermalUnitCommitment:
			keys = append(keys,
				model.VariableKey{Name: model.VarActivePower, Category: cat},
				model.VariableKey{Name: model.VarOnStatus, Category: cat},
			)
		case model.ThermalDispatch, model.ThermalDispatchNoMin,
			model.RenewableFullDispatch, model.HydroRunOfRiver:
			keys = append(keys, model.VariableKey{Name: model.VarActivePower, Category: cat})
		}
	}
	return keys
}

// Parameters returns the parameter keys the template's formulations
// consume. Feed-forward binding resolves affected parameters against
// this set.
func (t *Template) Parameters() []model.ParameterKey {
	var keys []model.ParameterKey
	for _, cat := range t.declared {
		switch t.devices[cat] {
		case model.ThermalDispatch, model.ThermalDispatchNoMin:
			keys = append(keys,
				model.ParameterKey{Name: model.ParamOnStatus, Category: cat},
				model.ParameterKey{Name: model.ParamActivePowerFix, Category: cat},
				model.ParameterKey{Name: model.ParamActivePowerUB, Category: cat},
				model.ParameterKey{Name: model.ParamActivePowerLB, Category: cat},
				model.ParameterKey{Name: model.ParamInitialPower, Category: cat},
			)
		case model.ThermalUnitCommitment:
			keys = append(keys,
				model.ParameterKey{Name: model.ParamInitialPower, Category: cat},
				model.ParameterKey{Name: model.ParamInitialOnStatus, Category: cat},
			)
		case model.RenewableFullDispatch:
			keys = append(keys,
				model.ParameterKey{Name: model.ParamActivePowerUB, Category: cat},
			)
		}
	}
	return keys
}

// HasVariable reports whether the template produces the given key.
func (t *Template) HasVariable(key model.VariableKey) bool {
	for _, k := range t.Variables() {
		if k == key {
			return true
		}
	}
	return false
}

// HasParameter reports whether the template consumes the given key.
func (t *Template) HasParameter(key model.ParameterKey) bool {
	for _, k := range t.Parameters() {
		if k == key {
			return true
		}
	}
	return false
}
