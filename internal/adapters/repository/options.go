package repository

import "time"

// Option applies a configuration option to the ChartStore.
type Option func(*ChartStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *ChartStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}
