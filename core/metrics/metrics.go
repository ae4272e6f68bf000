// Package metrics defines the observability boundary of the driver.
// Concrete sinks live under infra/metrics.
package metrics

import "time"

// SolveRecord captures one stage solve attempt.
type SolveRecord struct {
	RunID      string
	Simulation string
	Stage      string
	Step       int
	Status     string
	Objective  float64
	Duration   time.Duration
	Time       time.Time
}

// Sink records solve results for observability purposes.
type Sink interface {
	RecordSolve(rec SolveRecord) error
}

// NopSink discards every record.
type NopSink struct{}

func (NopSink) RecordSolve(SolveRecord) error { return nil }

// Config selects and configures the enabled sinks.
type Config struct {
	PrometheusEnabled bool   `json:"prometheus_enabled"`
	PrometheusPort    int    `json:"prometheus_port"`
	InfluxEnabled     bool   `json:"influx_enabled"`
	InfluxURL         string `json:"influx_url"`
	InfluxToken       string `json:"influx_token"`
	InfluxOrg         string `json:"influx_org"`
	InfluxBucket      string `json:"influx_bucket"`
}
