package leaguesim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/leaguegen"
	"github.com/okian/tradeval/pkg/logger"
)

// ErrInconsistent is returned when the server's answers contradict each other.
var ErrInconsistent = errors.New("inconsistent results")

const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

// Run executes a complete simulation against cfg.BaseURL. The report is
// returned even when verification finds problems.
func Run(ctx context.Context, cfg Config) (Report, error) {
	cfg = cfg.withDefaults()
	log := logger.Get().Named("leaguesim")
	c := newClient(cfg.BaseURL, cfg.Timeout)
	report := Report{Stats: Stats{StartTime: time.Now()}}

	log.Info(ctx, "starting league simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("teams", cfg.Teams),
		logger.Int("rosterSize", cfg.RosterSize),
		logger.Int("workers", cfg.Workers),
		logger.String("objective", cfg.Objective),
	)

	// Step 1: health
	if err := c.get(ctx, "/healthz", nil); err != nil {
		return report, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: league
	gen := leaguegen.New(
		leaguegen.WithSeed(cfg.Seed),
		leaguegen.WithTeams(cfg.Teams),
		leaguegen.WithRosterSize(cfg.RosterSize),
	)
	league, err := gen.League()
	if err != nil {
		return report, fmt.Errorf("generate league: %w", err)
	}
	report.LeagueID = league.ID
	report.Stats.Assets = len(league.Assets)
	if err := c.do(ctx, http.MethodPost, "/leagues", league, http.StatusCreated, nil); err != nil {
		return report, fmt.Errorf("store league: %w", err)
	}

	// Step 3: revaluation
	leagueQS := url.QueryEscape(league.ID)
	if err := c.do(ctx, http.MethodPost, "/revaluations?league="+leagueQS, nil, http.StatusAccepted, &report.Revaluation); err != nil {
		return report, fmt.Errorf("revalue league: %w", err)
	}
	log.Info(ctx, "revaluation queued",
		logger.Int("enqueued", report.Revaluation.Enqueued),
		logger.Int("duplicates", report.Revaluation.Duplicates),
	)

	// Step 4: ranks, then the chart page they must agree with
	ids := make([]model.AssetID, len(league.Assets))
	for i, a := range league.Assets {
		ids[i] = a.ID()
	}
	ranks, missing := waitForRanks(ctx, cfg, c, league.ID, ids)
	report.Stats.RanksRetrieved = len(ranks)
	report.Stats.RanksFailed = len(missing)
	if len(missing) > 0 {
		report.Problems = append(report.Problems, fmt.Sprintf("%d assets never reached the chart", len(missing)))
	}
	report.Chart, err = topChart(ctx, c, league.ID, min(cfg.TopN, len(ids)))
	if err != nil {
		return report, fmt.Errorf("fetch chart: %w", err)
	}
	report.Stats.ChartEntries = len(report.Chart)
	// Ranks seen while the chart was filling may have shifted since.
	pageIDs := make([]model.AssetID, len(report.Chart))
	for i, e := range report.Chart {
		pageIDs[i] = e.AssetID
	}
	settled := retrieveRanks(ctx, cfg, c, league.ID, pageIDs)
	report.Problems = append(report.Problems, verifyChart(report.Chart, settled)...)

	// Step 5: trades
	team := league.Teams[0].TeamID
	var mm struct {
		Opponents []model.RankedOpponent `json:"opponents"`
	}
	objQS := url.QueryEscape(cfg.Objective)
	if err := c.get(ctx, fmt.Sprintf("/matchmaking?league=%s&team=%s&objective=%s", leagueQS, url.QueryEscape(team), objQS), &mm); err != nil {
		return report, fmt.Errorf("matchmaking: %w", err)
	}
	report.Opponents = mm.Opponents
	if len(mm.Opponents) != len(league.Teams)-1 {
		report.Problems = append(report.Problems, fmt.Sprintf("matchmaking ranked %d of %d opponents", len(mm.Opponents), len(league.Teams)-1))
	}
	if len(mm.Opponents) > 0 {
		opp := mm.Opponents[0].TeamID
		path := fmt.Sprintf("/proposals?league=%s&team=%s&opponent=%s&objective=%s",
			leagueQS, url.QueryEscape(team), url.QueryEscape(opp), objQS)
		if err := c.get(ctx, path, &report.Proposals); err != nil {
			return report, fmt.Errorf("proposals: %w", err)
		}
		report.Stats.ProposalsFound = len(report.Proposals.Proposals)
		report.Problems = append(report.Problems, verifyProposals(report.Proposals.Proposals, cfg.Band)...)
	}

	// Step 6: calibration against the generator's realized values
	body := map[string]any{"outcomes": gen.Outcomes(league)}
	if err := c.do(ctx, http.MethodPost, "/calibrations", body, http.StatusCreated, &report.Calibration); err != nil {
		report.Problems = append(report.Problems, "calibration: "+err.Error())
	}
	var runs struct {
		Runs []model.CalibrationRun `json:"runs"`
	}
	if err := c.get(ctx, "/calibrations?limit=100", &runs); err == nil {
		report.Stats.CalibrationRuns = len(runs.Runs)
	}

	report.Stats.EndTime = time.Now()
	report.Stats.Duration = report.Stats.EndTime.Sub(report.Stats.StartTime)
	displayFinalStats(ctx, report)

	if cfg.OutputFile != "" {
		if err := saveReport(cfg.OutputFile, report); err != nil {
			log.Warn(ctx, "failed to save report", logger.Error(err))
		}
	}
	if len(report.Problems) > 0 {
		return report, fmt.Errorf("%w: %d problems", ErrInconsistent, len(report.Problems))
	}
	log.Info(ctx, "simulation completed successfully")
	return report, nil
}

// saveReport writes the report as indented JSON.
func saveReport(path string, report Report) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("create directory: %w", err)
		}
	}
	b, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, b, filePermission)
}

func displayFinalStats(ctx context.Context, report Report) {
	fields := []logger.Field{
		logger.String("league", report.LeagueID),
		logger.Int("assets", report.Stats.Assets),
		logger.Int("chartEntries", report.Stats.ChartEntries),
		logger.Int("ranksRetrieved", report.Stats.RanksRetrieved),
		logger.Int("ranksFailed", report.Stats.RanksFailed),
		logger.Int("opponents", len(report.Opponents)),
		logger.Int("proposals", report.Stats.ProposalsFound),
		logger.String("calibrationStatus", string(report.Calibration.Status)),
		logger.Int("problems", len(report.Problems)),
		logger.Duration("duration", report.Stats.Duration),
	}
	if rho := report.Calibration.Metrics.OverallRho; rho != nil {
		fields = append(fields, logger.Float64("rho", *rho))
	}
	logger.Get().Named("leaguesim").Info(ctx, "final statistics", fields...)
	for _, p := range report.Problems {
		logger.Get().Named("leaguesim").Warn(ctx, "problem", logger.String("detail", p))
	}
}
