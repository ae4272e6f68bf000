package model

// DeviceCategory identifies a class of grid devices in a system.
type DeviceCategory string

const (
	ThermalStandard   DeviceCategory = "thermal_standard"
	RenewableDispatch DeviceCategory = "renewable_dispatch"
	HydroDispatch     DeviceCategory = "hydro_dispatch"
	PowerLoad         DeviceCategory = "power_load"
)

// NetworkCategory identifies the network representation of a system.
type NetworkCategory string

const (
	CopperPlate NetworkCategory = "copper_plate"
)

// Formulation tags the mathematical treatment assigned to a device or
// network category by a template.
type Formulation string

const (
	// ThermalUnitCommitment adds binary on/off status variables with
	// semicontinuous power limits and no-load cost.
	ThermalUnitCommitment Formulation = "thermal_unit_commitment"
	// ThermalDispatch treats commitment as a parameter and dispatches
	// power between (possibly scaled) limits.
	ThermalDispatch Formulation = "thermal_dispatch"
	// ThermalDispatchNoMin relaxes the minimum stable level to zero.
	ThermalDispatchNoMin Formulation = "thermal_dispatch_no_min"
	// RenewableFullDispatch allows curtailment between zero and the
	// available forecast.
	RenewableFullDispatch Formulation = "renewable_full_dispatch"
	// HydroRunOfRiver dispatches hydro up to the inflow-driven limit.
	HydroRunOfRiver Formulation = "hydro_run_of_river"
	// StaticLoad injects demand as a fixed withdrawal.
	StaticLoad Formulation = "static_load"
	// CopperPlateBalance enforces a single system-wide power balance
	// per period.
	CopperPlateBalance Formulation = "copper_plate_balance"
)

// Canonical variable names produced by the formulations above.
const (
	VarActivePower = "ActivePower"
	VarOnStatus    = "OnStatus"
)

// Canonical parameter names consumed by the formulations above.
const (
	ParamOnStatus        = "OnStatusParameter"
	ParamActivePowerFix  = "ActivePowerFixed"
	ParamActivePowerUB   = "ActivePowerUpperBound"
	ParamActivePowerLB   = "ActivePowerLowerBound"
	ParamInitialPower    = "InitialActivePower"
	ParamInitialOnStatus = "InitialOnStatus"
)

// VariableKey addresses a decision variable family within a stage.
type VariableKey struct {
	Name     string         `json:"name"`
	Category DeviceCategory `json:"category"`
}

// ParameterKey addresses a parameter family within a stage.
type ParameterKey struct {
	Name     string         `json:"name"`
	Category DeviceCategory `json:"category"`
}

func (k VariableKey) String() string  { return k.Name + "/" + string(k.Category) }
func (k ParameterKey) String() string { return k.Name + "/" + string(k.Category) }
