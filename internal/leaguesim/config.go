// Package leaguesim drives a running valuation server end to end with a
// generated league: it loads the league, revalues it, checks the chart
// against per-asset lookups, exercises the trade tools and calibrates.
package leaguesim

import (
	"time"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/domain/types"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL    string        // Base URL of the service
	Seed       uint64        // League generator seed
	Teams      int           // Teams in the generated league
	RosterSize int           // Players per team
	Objective  string        // Proposal objective
	Band       float64       // Fairness band proposals are checked against
	TopN       int           // Chart rows to fetch
	Workers    int           // Concurrent rank lookups
	Timeout    time.Duration // HTTP request timeout
	ChartWait  time.Duration // How long to wait for the chart to fill
	OutputFile string        // Optional JSON report path
	Verbose    bool          // Log every lookup failure
}

// Report is what a run observed.
type Report struct {
	LeagueID    string                 `json:"league_id"`
	Revaluation RevaluationAck         `json:"revaluation"`
	Chart       []types.ChartEntry     `json:"chart"`
	Opponents   []model.RankedOpponent `json:"opponents"`
	Proposals   proposal.Result        `json:"proposals"`
	Calibration model.CalibrationRun   `json:"calibration"`
	Stats       Stats                  `json:"stats"`
	Problems    []string               `json:"problems,omitempty"`
}

// RevaluationAck mirrors the POST /revaluations response.
type RevaluationAck struct {
	ConfigVersion int `json:"config_version"`
	Enqueued      int `json:"enqueued"`
	Duplicates    int `json:"duplicates"`
}

// Stats holds run statistics.
type Stats struct {
	Assets          int           `json:"assets"`
	ChartEntries    int           `json:"chart_entries"`
	RanksRetrieved  int           `json:"ranks_retrieved"`
	RanksFailed     int           `json:"ranks_failed"`
	ProposalsFound  int           `json:"proposals_found"`
	CalibrationRuns int           `json:"calibration_runs"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	Duration        time.Duration `json:"duration"`
}

// Defaults.
const (
	DefaultBaseURL    = "http://localhost:9080"
	DefaultTeams      = 12
	DefaultRosterSize = 16
	DefaultTopN       = 50
	DefaultTimeout    = 30 * time.Second
	DefaultChartWait  = 30 * time.Second
	DefaultBand       = 0.10
)

func (c *Config) withDefaults() Config {
	out := *c
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.Teams < 2 {
		out.Teams = DefaultTeams
	}
	if out.RosterSize < 1 {
		out.RosterSize = DefaultRosterSize
	}
	if out.TopN < 1 {
		out.TopN = DefaultTopN
	}
	if out.Workers < 1 {
		out.Workers = 1
	}
	if out.Timeout <= 0 {
		out.Timeout = DefaultTimeout
	}
	if out.Band <= 0 {
		out.Band = DefaultBand
	}
	if out.ChartWait <= 0 {
		out.ChartWait = DefaultChartWait
	}
	return out
}
