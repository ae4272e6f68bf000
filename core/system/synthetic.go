package system

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// SyntheticConfig controls the synthetic system generator.
type SyntheticConfig struct {
	Seed       int64         `json:"seed"`
	Thermal    int           `json:"thermal"`
	Renewable  int           `json:"renewable"`
	Periods    int           `json:"periods"`
	Resolution time.Duration `json:"resolution"`
	PeakLoadMW float64       `json:"peak_load_mw"`
}

// Synthetic builds a self-consistent test system: thermal capacity
// covers peak load with margin, renewables follow a diurnal profile
// and demand follows a two-peak daily shape.
func Synthetic(cfg SyntheticConfig) *System {
	if cfg.Thermal <= 0 {
		cfg.Thermal = 3
	}
	if cfg.Periods <= 0 {
		cfg.Periods = 48
	}
	if cfg.Resolution <= 0 {
		cfg.Resolution = time.Hour
	}
	if cfg.PeakLoadMW <= 0 {
		cfg.PeakLoadMW = 100
	}
	rng := rand.New(rand.NewSource(cfg.Seed))
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	sys := &System{
		Name:   "synthetic",
		Start:  start,
		Native: cfg.Resolution,
	}

	// Thermal fleet sized to 1.3x peak so dispatch stays feasible.
	capPerUnit := 1.3 * cfg.PeakLoadMW / float64(cfg.Thermal)
	for i := 0; i < cfg.Thermal; i++ {
		sys.Thermal = append(sys.Thermal, ThermalGen{
			Name:           fmt.Sprintf("thermal-%d", i+1),
			MaxPowerMW:     capPerUnit,
			MinPowerMW:     0.2 * capPerUnit,
			RampMWPerHour:  capPerUnit,
			VariableCost:   20 + 15*float64(i) + 5*rng.Float64(),
			NoLoadCost:     50 + 20*rng.Float64(),
			InitialPowerMW: 0.5 * capPerUnit,
			InitialOn:      true,
		})
	}

	periodsPerDay := int(24 * time.Hour / cfg.Resolution)
	for i := 0; i < cfg.Renewable; i++ {
		avail := make([]float64, cfg.Periods)
		for t := range avail {
			hour := float64(t%periodsPerDay) / float64(periodsPerDay) * 24
			solar := math.Max(0, math.Sin((hour-6)/12*math.Pi))
			avail[t] = math.Max(0, math.Min(1, solar+0.1*rng.NormFloat64()))
		}
		sys.Renewable = append(sys.Renewable, RenewableGen{
			Name:         fmt.Sprintf("solar-%d", i+1),
			RatingMW:     0.3 * cfg.PeakLoadMW,
			Availability: avail,
		})
	}

	demand := make([]float64, cfg.Periods)
	for t := range demand {
		hour := float64(t%periodsPerDay) / float64(periodsPerDay) * 24
		shape := 0.6 + 0.25*math.Sin((hour-9)/24*2*math.Pi) + 0.15*math.Sin((hour-19)/12*2*math.Pi)
		demand[t] = cfg.PeakLoadMW * math.Max(0.4, shape)
	}
	sys.Loads = append(sys.Loads, StaticLoad{Name: "system-load", DemandMW: demand})

	return sys
}
