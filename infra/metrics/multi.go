package metrics

import (
	"errors"

	coremetrics "github.com/voltmesh/prodsim/core/metrics"
)

// MultiSink fans records out to several sinks, collecting errors
// instead of stopping at the first one.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink combines the given sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// RecordSolve forwards to every sink.
func (m *MultiSink) RecordSolve(rec coremetrics.SolveRecord) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordSolve(rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
