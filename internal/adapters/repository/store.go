// Package repository holds the in-memory league catalog, per-league value
// charts, and calibration run and configuration stores.
package repository

import (
	"context"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
)

// LeagueStore serves league snapshots handed over by the ingest layer.
type LeagueStore interface {
	PutLeague(ctx context.Context, league model.League) error
	League(ctx context.Context, leagueID string) (model.League, error)
	LeagueIDs(ctx context.Context) []string
	Asset(ctx context.Context, leagueID string, id model.AssetID) (model.Asset, error)
}

// Chart ranks scored assets of one league by composite DESC, id ASC.
type Chart interface {
	Upsert(ctx context.Context, leagueID string, s model.ScoredAsset) error
	Remove(ctx context.Context, leagueID string, id model.AssetID) bool
	// Retain drops rows whose asset is not in keep.
	Retain(ctx context.Context, leagueID string, keep map[model.AssetID]struct{}) int
	// Rank returns the row for id. Missing assets are a *model.NotFoundError.
	Rank(ctx context.Context, leagueID string, id model.AssetID) (types.ChartEntry, error)
	TopN(ctx context.Context, leagueID string, n int) ([]types.ChartEntry, error)
	Count(ctx context.Context, leagueID string) int
	// Total counts rows across leagues.
	Total() int
	Close() error
}

// RunStore persists calibration runs. Begin fails with *model.ConflictError
// while another run is running.
type RunStore interface {
	Begin(ctx context.Context, run model.CalibrationRun) error
	Finish(ctx context.Context, run model.CalibrationRun) error
	Get(ctx context.Context, id string) (model.CalibrationRun, error)
	// List returns up to limit runs, newest first.
	List(ctx context.Context, limit int) ([]model.CalibrationRun, error)
}

// ConfigStore holds the single active configuration and at most one
// candidate.
type ConfigStore interface {
	Active(ctx context.Context) (model.AppConfig, error)
	Candidate(ctx context.Context) (model.AppConfig, error)
	// SaveCandidate replaces any previous candidate.
	SaveCandidate(ctx context.Context, cfg model.AppConfig) error
}
