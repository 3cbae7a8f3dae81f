package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	jobqueue "github.com/okian/tradeval/internal/adapters/mq/queue"
	workerpool "github.com/okian/tradeval/internal/adapters/mq/worker"
	"github.com/okian/tradeval/internal/domain/dedupe"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// RevaluationResult reports how many jobs a revaluation queued.
type RevaluationResult struct {
	LeagueID      string `json:"league_id"`
	ConfigVersion int    `json:"config_version"`
	Enqueued      int    `json:"enqueued"`
	Duplicates    int    `json:"duplicates"`
}

// PutLeague replaces a league snapshot in the catalog. Chart rows for assets
// that left the catalog are dropped.
func (s *Service) PutLeague(ctx context.Context, league model.League) error {
	if err := s.ready(); err != nil {
		return err
	}
	s.chartMu.Lock()
	defer s.chartMu.Unlock()
	if err := s.leagues.PutLeague(ctx, league); err != nil {
		s.logger.Warn(ctx, "league rejected",
			logger.String("league", league.ID),
			logger.Error(err),
		)
		return err
	}
	keep := make(map[model.AssetID]struct{}, len(league.Assets))
	for _, a := range league.Assets {
		keep[a.ID()] = struct{}{}
	}
	dropped := s.chart.Retain(ctx, league.ID, keep)
	s.logger.Info(ctx, "league stored",
		logger.String("league", league.ID),
		logger.Int("teams", len(league.Teams)),
		logger.Int("assets", len(league.Assets)),
		logger.Int("chartRowsDropped", dropped),
	)
	return nil
}

// Leagues lists the catalog's league ids in order.
func (s *Service) Leagues(ctx context.Context) ([]string, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ids := s.leagues.LeagueIDs(ctx)
	sort.Strings(ids)
	return ids, nil
}

// Revalue queues one rescoring job per asset of the league under the active
// configuration. Jobs already in flight are skipped. A full queue stops the
// fan-out and returns ErrBackpressure alongside the partial counts.
func (s *Service) Revalue(ctx context.Context, leagueID string) (RevaluationResult, error) {
	if err := s.ready(); err != nil {
		return RevaluationResult{}, err
	}
	league, err := s.leagues.League(ctx, leagueID)
	if err != nil {
		return RevaluationResult{}, err
	}
	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return RevaluationResult{}, err
	}

	res := RevaluationResult{LeagueID: league.ID, ConfigVersion: cfg.Version}
	for _, a := range league.Assets {
		key := dedupe.JobKey(league.ID, string(a.ID()), cfg.Version)
		if s.deduper.SeenAndRecord(ctx, key) {
			metrics.RecordJobDuplicate()
			res.Duplicates++
			continue
		}
		job := model.RevaluationJob{
			LeagueID:      league.ID,
			AssetID:       a.ID(),
			ConfigVersion: cfg.Version,
			Key:           key,
		}
		if err := s.queue.Enqueue(ctx, job); err != nil {
			s.deduper.Unrecord(ctx, key)
			s.logger.Warn(ctx, "revaluation enqueue failed",
				logger.String("league", league.ID),
				logger.Int("enqueued", res.Enqueued),
				logger.Error(err),
			)
			if errors.Is(err, jobqueue.ErrQueueFull) {
				return res, fmt.Errorf("revalue %s: %w", league.ID, ErrBackpressure)
			}
			return res, fmt.Errorf("revalue %s: %w", league.ID, err)
		}
		res.Enqueued++
	}
	s.logger.Info(ctx, "revaluation queued",
		logger.String("league", league.ID),
		logger.Int("configVersion", cfg.Version),
		logger.Int("enqueued", res.Enqueued),
		logger.Int("duplicates", res.Duplicates),
	)
	return res, nil
}

// ScoreJob resolves the job's asset and scores it under the active
// configuration. Workers call it; it must not take the service lock since
// Stop holds it while draining the pool.
func (s *Service) ScoreJob(ctx context.Context, j workerpool.Job) (model.ScoredAsset, error) {
	league, err := s.leagues.League(ctx, j.LeagueID)
	if err != nil {
		return model.ScoredAsset{}, err
	}
	asset, err := s.leagues.Asset(ctx, j.LeagueID, j.AssetID)
	if err != nil {
		return model.ScoredAsset{}, err
	}
	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return model.ScoredAsset{}, err
	}
	if cfg.Version != j.ConfigVersion {
		s.logger.Debug(ctx, "job scored under newer config",
			logger.String("job", j.Key),
			logger.Int("active", cfg.Version),
		)
	}
	scored, err := s.valuation.Score(asset, league.Settings, cfg)
	if err != nil {
		metrics.RecordScoringError(ErrorKind(err))
		return model.ScoredAsset{}, err
	}
	metrics.RecordAssetsScored(1)
	return scored, nil
}

// Publish writes a scored asset to its league chart. Assets no longer in the
// catalog are skipped.
func (s *Service) Publish(ctx context.Context, leagueID string, scored model.ScoredAsset) error {
	s.chartMu.Lock()
	defer s.chartMu.Unlock()
	if _, err := s.leagues.Asset(ctx, leagueID, scored.ID()); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Debug(ctx, "skipping removed asset",
				logger.String("league", leagueID),
				logger.String("asset", string(scored.ID())),
			)
			return nil
		}
		return err
	}
	return s.chart.Upsert(ctx, leagueID, scored)
}

// Chart returns the top rows of a league's value chart.
func (s *Service) Chart(ctx context.Context, leagueID string, limit int) ([]types.ChartEntry, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit < 1 || limit > s.maxChartLimit {
		return nil, model.NewValidationError("limit", fmt.Sprintf("must be between 1 and %d", s.maxChartLimit))
	}
	if _, err := s.leagues.League(ctx, leagueID); err != nil {
		return nil, err
	}
	return s.chart.TopN(ctx, leagueID, limit)
}

// ChartRank returns one asset's chart row.
func (s *Service) ChartRank(ctx context.Context, leagueID string, id model.AssetID) (types.ChartEntry, error) {
	if err := s.ready(); err != nil {
		return types.ChartEntry{}, err
	}
	return s.chart.Rank(ctx, leagueID, id)
}
