package service

import (
	"context"
	"fmt"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// RunCalibration refits the active configuration against realized outcomes
// and stores the resulting candidate. A recorded run is returned even when
// err is non-nil; a run that never started is zero-valued. Candidates are
// never activated here.
func (s *Service) RunCalibration(ctx context.Context, outcomes []model.Outcome) (model.CalibrationRun, error) {
	if err := s.ready(); err != nil {
		return model.CalibrationRun{}, err
	}
	active, err := s.configs.Active(ctx)
	if err != nil {
		return model.CalibrationRun{}, err
	}
	s.logger.Info(ctx, "calibration started",
		logger.Int("samples", len(outcomes)),
		logger.Int("baseVersion", active.Version),
	)

	run, err := s.calibration.Run(ctx, outcomes, active)
	var seconds float64
	if run.CompletedAt != nil {
		seconds = run.CompletedAt.Sub(run.StartedAt).Seconds()
	}
	status := string(run.Status)
	if run.ID == "" {
		status = "rejected"
	}
	metrics.RecordCalibrationRun(status, seconds)
	if err != nil {
		s.logger.Warn(ctx, "calibration failed",
			logger.String("run", run.ID),
			logger.String("kind", ErrorKind(err)),
			logger.Error(err),
		)
		return run, err
	}

	if run.Metrics.OverallRho != nil {
		metrics.UpdateCalibrationRho(*run.Metrics.OverallRho)
	}
	if run.Candidate != nil {
		if err := s.configs.SaveCandidate(ctx, *run.Candidate); err != nil {
			return run, fmt.Errorf("save candidate from run %s: %w", run.ID, err)
		}
	}
	s.logger.Info(ctx, "calibration completed",
		logger.String("run", run.ID),
		logger.Int("iterations", run.Metrics.Iterations),
		logger.Duration("took", run.CompletedAt.Sub(run.StartedAt)),
	)
	return run, nil
}

// GetCalibrationRun looks up one run by id.
func (s *Service) GetCalibrationRun(ctx context.Context, id string) (model.CalibrationRun, error) {
	if err := s.ready(); err != nil {
		return model.CalibrationRun{}, err
	}
	return s.runs.Get(ctx, id)
}

// ListCalibrationRuns returns up to limit runs, newest first.
func (s *Service) ListCalibrationRuns(ctx context.Context, limit int) ([]model.CalibrationRun, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = defaultRunListLimit
	}
	return s.runs.List(ctx, limit)
}

// ActiveConfig returns the configuration scoring currently runs under.
func (s *Service) ActiveConfig(ctx context.Context) (model.AppConfig, error) {
	if err := s.ready(); err != nil {
		return model.AppConfig{}, err
	}
	return s.configs.Active(ctx)
}

// CandidateConfig returns the latest calibration candidate.
func (s *Service) CandidateConfig(ctx context.Context) (model.AppConfig, error) {
	if err := s.ready(); err != nil {
		return model.AppConfig{}, err
	}
	return s.configs.Candidate(ctx)
}
