package decision

import (
	"fmt"
	"math"

	"github.com/voltmesh/prodsim/core/model"
	"github.com/voltmesh/prodsim/core/program"
	"github.com/voltmesh/prodsim/core/system"
	"github.com/voltmesh/prodsim/core/template"
)

// buildProgram translates one window of system data into a linear
// program according to the template's formulations. Parameter values
// in bctx override data-source defaults.
func buildProgram(tpl *template.Template, sys *system.System, w model.TimeWindow, bctx *program.BuildContext) (*program.LinearProgram, error) {
	sl, err := sys.Slice(w)
	if err != nil {
		return nil, err
	}
	p := program.New()
	hours := w.Resolution.Hours()

	// balance[t] accumulates injection terms; loads enter the RHS.
	balance := make([]program.Constraint, w.Periods)
	for t := range balance {
		balance[t] = program.Constraint{
			Name:  fmt.Sprintf("power_balance[%d]", t),
			Sense: program.Equal,
		}
	}

	for _, g := range sys.Thermal {
		f, ok := tpl.Formulation(model.ThermalStandard)
		if !ok {
			return nil, fmt.Errorf("no formulation for %s", model.ThermalStandard)
		}
		switch f {
		case model.ThermalUnitCommitment:
			if err := buildThermalUC(p, g, w, hours, bctx, balance); err != nil {
				return nil, err
			}
		case model.ThermalDispatch, model.ThermalDispatchNoMin:
			if err := buildThermalDispatch(p, g, w, hours, f, bctx, balance); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("unsupported thermal formulation %q", f)
		}
	}

	for _, g := range sys.Renewable {
		limit := sl.RenewableLimit[g.Name]
		for t := 0; t < w.Periods; t++ {
			upper := limit[t]
			key := model.ParameterKey{Name: model.ParamActivePowerUB, Category: model.RenewableDispatch}
			if v, ok := bctx.Parameter(key, g.Name, t); ok {
				upper = math.Min(upper, v)
			}
			idx := p.AddVariable(program.Variable{
				Key:    model.VariableKey{Name: model.VarActivePower, Category: model.RenewableDispatch},
				Device: g.Name,
				Period: t,
				Lower:  0,
				Upper:  upper,
			})
			balance[t].Terms = append(balance[t].Terms, program.Term{Var: idx, Coeff: 1})
		}
	}

	for _, g := range sys.Hydro {
		limit := sl.HydroLimit[g.Name]
		for t := 0; t < w.Periods; t++ {
			idx := p.AddVariable(program.Variable{
				Key:    model.VariableKey{Name: model.VarActivePower, Category: model.HydroDispatch},
				Device: g.Name,
				Period: t,
				Lower:  0,
				Upper:  limit[t],
			})
			balance[t].Terms = append(balance[t].Terms, program.Term{Var: idx, Coeff: 1})
		}
	}

	for t := 0; t < w.Periods; t++ {
		demand := 0.0
		for _, series := range sl.Demand {
			demand += series[t]
		}
		balance[t].RHS = demand
		p.AddConstraint(balance[t])
	}
	return p, nil
}

func buildThermalUC(p *program.LinearProgram, g system.ThermalGen, w model.TimeWindow, hours float64, bctx *program.BuildContext, balance []program.Constraint) error {
	powerKey := model.VariableKey{Name: model.VarActivePower, Category: model.ThermalStandard}
	statusKey := model.VariableKey{Name: model.VarOnStatus, Category: model.ThermalStandard}

	pIdx := make([]int, w.Periods)
	uIdx := make([]int, w.Periods)
	for t := 0; t < w.Periods; t++ {
		uIdx[t] = p.AddVariable(program.Variable{
			Key: statusKey, Device: g.Name, Period: t,
			Lower: 0, Upper: 1, Integral: true,
			Cost: g.NoLoadCost,
		})
		pIdx[t] = p.AddVariable(program.Variable{
			Key: powerKey, Device: g.Name, Period: t,
			Lower: 0, Upper: g.MaxPowerMW,
			Cost: g.VariableCost * hours,
		})
		// Semicontinuous limits: p <= Pmax*u and p >= Pmin*u.
		p.AddConstraint(program.Constraint{
			Name:  fmt.Sprintf("uc_upper[%s][%d]", g.Name, t),
			Sense: program.LessEq,
			Terms: []program.Term{{Var: pIdx[t], Coeff: 1}, {Var: uIdx[t], Coeff: -g.MaxPowerMW}},
		})
		p.AddConstraint(program.Constraint{
			Name:  fmt.Sprintf("uc_lower[%s][%d]", g.Name, t),
			Sense: program.GreaterEq,
			Terms: []program.Term{{Var: pIdx[t], Coeff: 1}, {Var: uIdx[t], Coeff: -g.MinPowerMW}},
		})
		balance[t].Terms = append(balance[t].Terms, program.Term{Var: pIdx[t], Coeff: 1})
	}
	return addRamping(p, g, w, hours, bctx, pIdx)
}

func buildThermalDispatch(p *program.LinearProgram, g system.ThermalGen, w model.TimeWindow, hours float64, f model.Formulation, bctx *program.BuildContext, balance []program.Constraint) error {
	powerKey := model.VariableKey{Name: model.VarActivePower, Category: model.ThermalStandard}
	statusKey := model.ParameterKey{Name: model.ParamOnStatus, Category: model.ThermalStandard}
	fixKey := model.ParameterKey{Name: model.ParamActivePowerFix, Category: model.ThermalStandard}
	ubKey := model.ParameterKey{Name: model.ParamActivePowerUB, Category: model.ThermalStandard}
	lbKey := model.ParameterKey{Name: model.ParamActivePowerLB, Category: model.ThermalStandard}

	hasStatus := bctx.HasAny(statusKey, g.Name)
	minPower := g.MinPowerMW
	if f == model.ThermalDispatchNoMin {
		minPower = 0
	}

	pIdx := make([]int, w.Periods)
	for t := 0; t < w.Periods; t++ {
		on := 1.0
		if hasStatus {
			v, ok := bctx.Parameter(statusKey, g.Name, t)
			if !ok {
				// Partial coverage means a truncated feed-forward,
				// not a stage-default commitment.
				return fmt.Errorf("thermal %s: commitment status missing for period %d", g.Name, t)
			}
			on = v
		}
		lower := minPower * on
		upper := g.MaxPowerMW * on
		if v, ok := bctx.Parameter(ubKey, g.Name, t); ok {
			upper = math.Min(upper, v)
		}
		if v, ok := bctx.Parameter(lbKey, g.Name, t); ok {
			lower = math.Max(lower, v)
		}
		if v, ok := bctx.Parameter(fixKey, g.Name, t); ok {
			lower, upper = v, v
		}
		if lower > upper {
			return fmt.Errorf("thermal %s: conflicting bounds [%v, %v] at period %d", g.Name, lower, upper, t)
		}
		pIdx[t] = p.AddVariable(program.Variable{
			Key: powerKey, Device: g.Name, Period: t,
			Lower: lower, Upper: upper,
			Cost: g.VariableCost * hours,
		})
		balance[t].Terms = append(balance[t].Terms, program.Term{Var: pIdx[t], Coeff: 1})
	}
	return addRamping(p, g, w, hours, bctx, pIdx)
}

// addRamping bounds the output change between consecutive periods and
// against the initial condition. The initial bound only applies when
// the unit enters the window online: a starting unit may jump straight
// to its minimum stable level.
func addRamping(p *program.LinearProgram, g system.ThermalGen, w model.TimeWindow, hours float64, bctx *program.BuildContext, pIdx []int) error {
	if g.RampMWPerHour <= 0 {
		return nil
	}
	ramp := g.RampMWPerHour * hours
	initKey := model.ParameterKey{Name: model.ParamInitialPower, Category: model.ThermalStandard}
	statusKey := model.ParameterKey{Name: model.ParamInitialOnStatus, Category: model.ThermalStandard}
	p0 := g.InitialPowerMW
	if v, ok := bctx.Parameter(initKey, g.Name, 0); ok {
		p0 = v
	}
	on0 := 0.0
	if g.InitialOn {
		on0 = 1
	}
	if v, ok := bctx.Parameter(statusKey, g.Name, 0); ok {
		on0 = v
	}
	if on0 > 0.5 {
		p.AddConstraint(program.Constraint{
			Name:  fmt.Sprintf("ramp_up_init[%s]", g.Name),
			Sense: program.LessEq,
			RHS:   p0 + ramp,
			Terms: []program.Term{{Var: pIdx[0], Coeff: 1}},
		})
	}
	for t := 1; t < w.Periods; t++ {
		p.AddConstraint(program.Constraint{
			Name:  fmt.Sprintf("ramp_up[%s][%d]", g.Name, t),
			Sense: program.LessEq,
			RHS:   ramp,
			Terms: []program.Term{{Var: pIdx[t], Coeff: 1}, {Var: pIdx[t-1], Coeff: -1}},
		})
		p.AddConstraint(program.Constraint{
			Name:  fmt.Sprintf("ramp_down[%s][%d]", g.Name, t),
			Sense: program.LessEq,
			RHS:   ramp,
			Terms: []program.Term{{Var: pIdx[t-1], Coeff: 1}, {Var: pIdx[t], Coeff: -1}},
		})
	}
	return nil
}
