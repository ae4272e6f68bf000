package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/voltmesh/prodsim/core/metrics"
)

// PromSink records solve results in Prometheus metrics.
type PromSink struct {
	solves    *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
}

// NewPromSink registers solve metrics on the default Prometheus
// registerer. The HTTP server is started separately via
// StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided
// registerer. A nil registerer defaults to the global one.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	solves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "simulation_solves_total",
		Help: "Total number of stage solve attempts",
	}, []string{"stage", "status"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "simulation_solve_seconds",
		Help:    "Wall time spent in the solver per stage solve",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
	objective := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "simulation_last_objective",
		Help: "Objective value of the most recent solve per stage",
	}, []string{"stage"})

	if err := reg.Register(solves); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			solves = are.ExistingCollector.(*prometheus.CounterVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			return nil, err
		}
	}
	if err := reg.Register(objective); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			objective = are.ExistingCollector.(*prometheus.GaugeVec)
		} else {
			return nil, err
		}
	}
	return &PromSink{solves: solves, duration: duration, objective: objective}, nil
}

// RecordSolve implements metrics.Sink.
func (s *PromSink) RecordSolve(rec coremetrics.SolveRecord) error {
	s.solves.WithLabelValues(rec.Stage, rec.Status).Inc()
	s.duration.WithLabelValues(rec.Stage).Observe(rec.Duration.Seconds())
	s.objective.WithLabelValues(rec.Stage).Set(rec.Objective)
	return nil
}

// StartPromServer serves /metrics on the given port. Blocks.
func StartPromServer(port int) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
