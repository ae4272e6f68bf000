package metrics

import (
	coremetrics "github.com/voltmesh/prodsim/core/metrics"
	"github.com/voltmesh/prodsim/infra/logger"
)

// FromConfig assembles the configured sinks. With nothing enabled it
// returns a NopSink. The Prometheus HTTP server is the caller's
// responsibility (StartPromServer).
func FromConfig(cfg coremetrics.Config, log logger.Logger) (coremetrics.Sink, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	var sinks []coremetrics.Sink
	if cfg.PrometheusEnabled {
		sink, err := NewPromSink()
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}
	if cfg.InfluxEnabled {
		sinks = append(sinks, NewInfluxSinkWithFallback(cfg.InfluxURL, cfg.InfluxToken, cfg.InfluxOrg, cfg.InfluxBucket))
	}
	switch len(sinks) {
	case 0:
		return coremetrics.NopSink{}, nil
	case 1:
		return sinks[0], nil
	default:
		log.Debugf("metrics: %d sinks enabled", len(sinks))
		return NewMultiSink(sinks...), nil
	}
}
