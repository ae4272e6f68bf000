package system

import (
	"fmt"
	"time"

	"github.com/voltmesh/prodsim/core/model"
)

// ThermalGen is a dispatchable thermal unit.
type ThermalGen struct {
	Name string `json:"name"`
	// MaxPowerMW and MinPowerMW bound output when the unit is on.
	MaxPowerMW float64 `json:"max_power_mw"`
	MinPowerMW float64 `json:"min_power_mw"`
	// RampMWPerHour limits the output change between consecutive
	// periods. Zero disables ramping constraints.
	RampMWPerHour float64 `json:"ramp_mw_per_hour"`
	// VariableCost is the marginal cost in currency per MWh.
	VariableCost float64 `json:"variable_cost"`
	// NoLoadCost is charged per period the unit is committed.
	NoLoadCost float64 `json:"no_load_cost"`
	// Initial conditions used at step 0 when no prior solution exists.
	InitialPowerMW float64 `json:"initial_power_mw"`
	InitialOn      bool    `json:"initial_on"`
}

// RenewableGen is a curtailable renewable unit with a per-period
// availability factor in [0, 1] at the system's native resolution.
type RenewableGen struct {
	Name         string    `json:"name"`
	RatingMW     float64   `json:"rating_mw"`
	Availability []float64 `json:"availability"`
}

// HydroGen is a run-of-river hydro unit bounded by inflow.
type HydroGen struct {
	Name     string    `json:"name"`
	RatingMW float64   `json:"rating_mw"`
	Inflow   []float64 `json:"inflow"`
}

// StaticLoad is a fixed demand with a per-period MW series.
type StaticLoad struct {
	Name     string    `json:"name"`
	DemandMW []float64 `json:"demand_mw"`
}

// System is the time-series-backed data source a decision model is
// built against. Series are stored at a single native resolution
// starting at Start.
type System struct {
	Name      string         `json:"name"`
	Start     time.Time      `json:"start"`
	Native    time.Duration  `json:"resolution"`
	Thermal   []ThermalGen   `json:"thermal"`
	Renewable []RenewableGen `json:"renewable"`
	Hydro     []HydroGen     `json:"hydro"`
	Loads     []StaticLoad   `json:"loads"`
}

// Resolution returns the native series resolution.
func (s *System) Resolution() time.Duration { return s.Native }

// AvailableHorizon returns the number of native periods covered by
// every series in the system (the shortest series wins).
func (s *System) AvailableHorizon() int {
	horizon := -1
	take := func(n int) {
		if horizon < 0 || n < horizon {
			horizon = n
		}
	}
	for _, g := range s.Renewable {
		take(len(g.Availability))
	}
	for _, g := range s.Hydro {
		take(len(g.Inflow))
	}
	for _, l := range s.Loads {
		take(len(l.DemandMW))
	}
	if horizon < 0 {
		return 0
	}
	return horizon
}

// Categories returns the device categories present in the system.
func (s *System) Categories() []model.DeviceCategory {
	var cats []model.DeviceCategory
	if len(s.Thermal) > 0 {
		cats = append(cats, model.ThermalStandard)
	}
	if len(s.Renewable) > 0 {
		cats = append(cats, model.RenewableDispatch)
	}
	if len(s.Hydro) > 0 {
		cats = append(cats, model.HydroDispatch)
	}
	if len(s.Loads) > 0 {
		cats = append(cats, model.PowerLoad)
	}
	return cats
}

// Validate checks ratings and series shape.
func (s *System) Validate() error {
	if s.Native <= 0 {
		return fmt.Errorf("system %s: resolution must be positive", s.Name)
	}
	for _, g := range s.Thermal {
		if g.Name == "" {
			return fmt.Errorf("system %s: thermal generator without name", s.Name)
		}
		if g.MaxPowerMW <= 0 || g.MinPowerMW < 0 || g.MinPowerMW > g.MaxPowerMW {
			return fmt.Errorf("thermal %s: invalid power limits [%v, %v]", g.Name, g.MinPowerMW, g.MaxPowerMW)
		}
	}
	horizon := s.AvailableHorizon()
	for _, g := range s.Renewable {
		if len(g.Availability) != horizon {
			return fmt.Errorf("renewable %s: series length %d != %d", g.Name, len(g.Availability), horizon)
		}
	}
	for _, g := range s.Hydro {
		if len(g.Inflow) != horizon {
			return fmt.Errorf("hydro %s: series length %d != %d", g.Name, len(g.Inflow), horizon)
		}
	}
	for _, l := range s.Loads {
		if len(l.DemandMW) != horizon {
			return fmt.Errorf("load %s: series length %d != %d", l.Name, len(l.DemandMW), horizon)
		}
	}
	return nil
}

// Slice holds per-device series resampled to a decision window.
type Slice struct {
	Window         model.TimeWindow
	RenewableLimit map[string][]float64
	HydroLimit     map[string][]float64
	Demand         map[string][]float64
}

// Slice extracts series for the given window, resampling from the
// native resolution: finer windows hold the covering native value,
// coarser windows average the covered native values.
func (s *System) Slice(w model.TimeWindow) (*Slice, error) {
	if w.Start.Before(s.Start) {
		return nil, fmt.Errorf("window starts %s before system data %s", w.Start, s.Start)
	}
	end := s.Start.Add(time.Duration(s.AvailableHorizon()) * s.Native)
	if w.End().After(end) {
		return nil, fmt.Errorf("window ends %s after available data %s", w.End(), end)
	}
	sl := &Slice{
		Window:         w,
		RenewableLimit: make(map[string][]float64, len(s.Renewable)),
		HydroLimit:     make(map[string][]float64, len(s.Hydro)),
		Demand:         make(map[string][]float64, len(s.Loads)),
	}
	for _, g := range s.Renewable {
		vals := s.resample(g.Availability, w)
		limit := make([]float64, len(vals))
		for i, v := range vals {
			limit[i] = v * g.RatingMW
		}
		sl.RenewableLimit[g.Name] = limit
	}
	for _, g := range s.Hydro {
		vals := s.resample(g.Inflow, w)
		limit := make([]float64, len(vals))
		for i, v := range vals {
			limit[i] = v * g.RatingMW
		}
		sl.HydroLimit[g.Name] = limit
	}
	for _, l := range s.Loads {
		sl.Demand[l.Name] = s.resample(l.DemandMW, w)
	}
	return sl, nil
}

// resample maps a native-resolution series onto the window's periods.
func (s *System) resample(series []float64, w model.TimeWindow) []float64 {
	out := make([]float64, w.Periods)
	for i := 0; i < w.Periods; i++ {
		pStart := w.PeriodStart(i)
		pEnd := pStart.Add(w.Resolution)
		first := int(pStart.Sub(s.Start) / s.Native)
		last := int((pEnd.Sub(s.Start) - 1) / s.Native)
		if last >= len(series) {
			last = len(series) - 1
		}
		if first > last {
			first = last
		}
		sum := 0.0
		for j := first; j <= last; j++ {
			sum += series[j]
		}
		out[i] = sum / float64(last-first+1)
	}
	return out
}

// ThermalByName returns the thermal generator with the given name.
func (s *System) ThermalByName(name string) (ThermalGen, bool) {
	for _, g := range s.Thermal {
		if g.Name == name {
			return g, true
		}
	}
	return ThermalGen{}, false
}
