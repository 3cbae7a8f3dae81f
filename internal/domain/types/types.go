// Package types contains read shapes shared by the service and its surfaces.
package types

import "github.com/okian/tradeval/internal/domain/model"

// ChartEntry represents one ranked row of a league value chart.
type ChartEntry struct {
	Rank          int            `json:"rank"`
	AssetID       model.AssetID  `json:"asset_id"`
	Label         string         `json:"label"`
	Position      model.Position `json:"position"`
	Now           float64        `json:"now_score"`
	Future        float64        `json:"future_score"`
	Composite     float64        `json:"composite"`
	ConfigVersion int            `json:"config_version"`
}

// NewChartEntry builds the row for a scored asset at rank.
func NewChartEntry(rank int, s model.ScoredAsset) ChartEntry {
	return ChartEntry{
		Rank:          rank,
		AssetID:       s.ID(),
		Label:         s.Asset.Label(),
		Position:      s.Position(),
		Now:           s.Now,
		Future:        s.Future,
		Composite:     s.Composite,
		ConfigVersion: s.ConfigVersion,
	}
}

// Stats is the operational snapshot served by /stats.
type Stats struct {
	Leagues          int                `json:"leagues"`
	ChartEntries     int                `json:"chart_entries"`
	QueueSize        int                `json:"queue_size"`
	QueueCapacity    int                `json:"queue_capacity"`
	DedupeSize       int64              `json:"dedupe_size"`
	Workers          int                `json:"workers"`
	ActiveVersion    int                `json:"active_config_version"`
	CandidateVersion int                `json:"candidate_config_version,omitempty"`
	CalibrationRuns  int                `json:"calibration_runs"`
	Metrics          map[string]float64 `json:"metrics,omitempty"`
}
