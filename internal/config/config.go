// Package config defines service configuration and its loading from
// defaults, an optional YAML file and environment variables.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/tradeval/pkg/logger"
)

// Store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`
	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the revaluation job queue.
	QueueSize int `koanf:"queue_size"`
	// WorkerCount sets the number of revaluation workers.
	WorkerCount int `koanf:"worker_count"`
	// DedupeSize bounds the in-flight job key set.
	DedupeSize int `koanf:"dedupe_size"`
	// MaxChartLimit caps GET /chart?limit.
	MaxChartLimit int `koanf:"max_chart_limit"`

	// Proposal search.
	FairnessBand    float64 `koanf:"fairness_band"`
	MaxSideSize     int     `koanf:"max_side_size"`
	MaxEvaluations  int     `koanf:"max_evaluations"`
	SearchTimeoutMS int     `koanf:"search_timeout_ms"`
	MaxProposals    int     `koanf:"max_proposals"`

	// Calibration.
	MinCalibrationSamples    int     `koanf:"min_calibration_samples"`
	CalibrationMaxIterations int     `koanf:"calibration_max_iterations"`
	CandidateRollout         float64 `koanf:"candidate_rollout"`

	// StoreDriver picks where runs and configs live: memory or sqlite.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	// MCPPath mounts the MCP tool endpoint; empty disables it.
	MCPPath string `koanf:"mcp_path"`

	// SeedDemoLeague loads a generated league at startup.
	SeedDemoLeague bool `koanf:"seed_demo_league"`
}

// New returns a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                 "info",
		LogFormat:                logger.FormatText,
		Addr:                     ":9080",
		QueueSize:                10_000,
		WorkerCount:              runtime.NumCPU(),
		DedupeSize:               50_000,
		MaxChartLimit:            200,
		FairnessBand:             0.10,
		MaxSideSize:              2,
		MaxEvaluations:           50_000,
		SearchTimeoutMS:          2_000,
		MaxProposals:             25,
		MinCalibrationSamples:    20,
		CalibrationMaxIterations: 200,
		CandidateRollout:         10,
		StoreDriver:              DriverMemory,
		SQLitePath:               "tradeval.db",
		MCPPath:                  "/mcp",
		SeedDemoLeague:           true,
	}
}

// SearchTimeout returns the proposal search budget as a duration.
func (c *Config) SearchTimeout() time.Duration {
	return time.Duration(c.SearchTimeoutMS) * time.Millisecond
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.QueueSize < 1:
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidConfig)
	case c.WorkerCount < 1:
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidConfig)
	case c.DedupeSize < 1:
		return fmt.Errorf("%w: dedupe_size must be positive", ErrInvalidConfig)
	case c.MaxChartLimit < 1:
		return fmt.Errorf("%w: max_chart_limit must be positive", ErrInvalidConfig)
	case c.FairnessBand <= 0 || c.FairnessBand >= 1:
		return fmt.Errorf("%w: fairness_band must be in (0,1)", ErrInvalidConfig)
	case c.MaxSideSize < 1 || c.MaxSideSize > 3:
		return fmt.Errorf("%w: max_side_size must be between 1 and 3", ErrInvalidConfig)
	case c.MaxEvaluations < 1:
		return fmt.Errorf("%w: max_evaluations must be positive", ErrInvalidConfig)
	case c.SearchTimeoutMS < 0:
		return fmt.Errorf("%w: search_timeout_ms must not be negative", ErrInvalidConfig)
	case c.MaxProposals < 1:
		return fmt.Errorf("%w: max_proposals must be positive", ErrInvalidConfig)
	case c.MinCalibrationSamples < 2:
		return fmt.Errorf("%w: min_calibration_samples must be at least 2", ErrInvalidConfig)
	case c.CalibrationMaxIterations < 1:
		return fmt.Errorf("%w: calibration_max_iterations must be positive", ErrInvalidConfig)
	case c.CandidateRollout < 0 || c.CandidateRollout > 100:
		return fmt.Errorf("%w: candidate_rollout must be in [0,100]", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite driver", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store_driver %q", ErrInvalidConfig, c.StoreDriver)
	}
	switch strings.ToLower(c.LogFormat) {
	case logger.FormatText, logger.FormatJSON:
	default:
		return fmt.Errorf("%w: unknown log_format %q", ErrInvalidConfig, c.LogFormat)
	}
	if c.MCPPath != "" && !strings.HasPrefix(c.MCPPath, "/") {
		return fmt.Errorf("%w: mcp_path must start with /", ErrInvalidConfig)
	}
	return nil
}
