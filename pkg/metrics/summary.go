package metrics

import (
	"errors"
	"fmt"

	dto "github.com/prometheus/client_model/go"
)

// ErrGatherFailed wraps registry gather failures.
var ErrGatherFailed = errors.New("metrics gather failed")

// Summary gathers the registry and returns unlabeled counters and gauges by
// fully qualified name. Labeled series are summed.
func Summary() (map[string]float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGatherFailed, err)
	}
	out := make(map[string]float64, len(families))
	for _, f := range families {
		var total float64
		for _, m := range f.GetMetric() {
			switch f.GetType() {
			case dto.MetricType_COUNTER:
				total += m.GetCounter().GetValue()
			case dto.MetricType_GAUGE:
				total += m.GetGauge().GetValue()
			case dto.MetricType_HISTOGRAM:
				total += float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
		}
		out[f.GetName()] = total
	}
	return out, nil
}
