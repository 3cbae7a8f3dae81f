package service

import (
	"context"
	"time"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/domain/recommend"
	"github.com/okian/tradeval/internal/domain/roster"
	"github.com/okian/tradeval/internal/domain/valuation"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// ImpactRequest names a hypothetical trade by asset ids.
type ImpactRequest struct {
	LeagueID string          `json:"league_id"`
	TeamID   string          `json:"team_id"`
	Outgoing []model.AssetID `json:"outgoing"`
	Incoming []model.AssetID `json:"incoming"`
}

// RecommendationRequest selects the team, the opponent whose roster is mined
// for targets, and whether the team profile steers the ranking.
type RecommendationRequest struct {
	LeagueID   string `json:"league_id"`
	TeamID     string `json:"team_id"`
	OpponentID string `json:"opponent_id"`
	UseProfile bool   `json:"use_profile"`
}

// leagueView is one league scored under one configuration.
type leagueView struct {
	league  model.League
	cfg     model.AppConfig
	scorer  *valuation.Scorer
	catalog map[model.AssetID]model.Asset
	teams   map[string]model.TeamProfile
}

func (s *Service) view(ctx context.Context, leagueID string) (*leagueView, error) {
	league, err := s.leagues.League(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return nil, err
	}
	scorer, err := s.valuation.Prepare(league.Settings, cfg)
	if err != nil {
		return nil, err
	}
	v := &leagueView{
		league:  league,
		cfg:     cfg,
		scorer:  scorer,
		catalog: make(map[model.AssetID]model.Asset, len(league.Assets)),
		teams:   make(map[string]model.TeamProfile, len(league.Teams)),
	}
	for _, a := range league.Assets {
		v.catalog[a.ID()] = a
	}
	for _, t := range league.Teams {
		v.teams[t.TeamID] = t
	}
	return v, nil
}

func (v *leagueView) profile(teamID string) (model.TeamProfile, error) {
	p, ok := v.teams[teamID]
	if !ok {
		return model.TeamProfile{}, &model.NotFoundError{Resource: "team", ID: teamID}
	}
	return p, nil
}

func (v *leagueView) score(ids []model.AssetID) ([]model.ScoredAsset, error) {
	assets := make([]model.Asset, 0, len(ids))
	for _, id := range ids {
		a, ok := v.catalog[id]
		if !ok {
			return nil, &model.NotFoundError{Resource: "asset", ID: string(id)}
		}
		assets = append(assets, a)
	}
	start := time.Now()
	scored, err := v.scorer.ScoreAll(assets)
	if err != nil {
		metrics.RecordScoringError(ErrorKind(err))
		return nil, err
	}
	metrics.RecordAssetsScored(len(scored))
	metrics.RecordValuationLatency(float64(time.Since(start).Microseconds()) / 1000)
	return scored, nil
}

func (v *leagueView) side(teamID string) (proposal.Side, error) {
	p, err := v.profile(teamID)
	if err != nil {
		return proposal.Side{}, err
	}
	scored, err := v.score(p.Holdings())
	if err != nil {
		return proposal.Side{}, err
	}
	return proposal.Side{Profile: p, Assets: scored}, nil
}

// Score values one asset under the given settings and the active config.
func (s *Service) Score(ctx context.Context, asset model.Asset, settings model.LeagueSettings) (model.ScoredAsset, error) {
	if err := s.ready(); err != nil {
		return model.ScoredAsset{}, err
	}
	cfg, err := s.configs.Active(ctx)
	if err != nil {
		return model.ScoredAsset{}, err
	}
	start := time.Now()
	scored, err := s.valuation.Score(asset, settings, cfg)
	if err != nil {
		metrics.RecordScoringError(ErrorKind(err))
		s.logger.Warn(ctx, "score asset failed",
			logger.String("asset", string(asset.ID())),
			logger.Error(err),
		)
		return model.ScoredAsset{}, err
	}
	metrics.RecordAssetsScored(1)
	metrics.RecordValuationLatency(float64(time.Since(start).Microseconds()) / 1000)
	return scored, nil
}

// AnalyzeTradeImpact evaluates a hypothetical trade for one team.
func (s *Service) AnalyzeTradeImpact(ctx context.Context, req ImpactRequest) (roster.Impact, error) {
	if err := s.ready(); err != nil {
		return roster.Impact{}, err
	}
	s.logger.Debug(ctx, "analyze trade impact",
		logger.String("league", req.LeagueID),
		logger.String("team", req.TeamID),
	)
	v, err := s.view(ctx, req.LeagueID)
	if err != nil {
		return roster.Impact{}, err
	}
	mine, err := v.side(req.TeamID)
	if err != nil {
		return roster.Impact{}, err
	}
	outgoing, err := v.score(req.Outgoing)
	if err != nil {
		return roster.Impact{}, err
	}
	incoming, err := v.score(req.Incoming)
	if err != nil {
		return roster.Impact{}, err
	}
	impact, err := s.analyzer.AnalyzeTradeImpact(mine.Profile, mine.Assets, outgoing, incoming)
	if err != nil {
		s.logger.Warn(ctx, "trade impact rejected",
			logger.String("team", req.TeamID),
			logger.Error(err),
		)
		return roster.Impact{}, err
	}
	return impact, nil
}

// GenerateRecommendations ranks targets on the opponent roster and sells on
// the team's own roster.
func (s *Service) GenerateRecommendations(ctx context.Context, req RecommendationRequest) ([]recommend.Recommendation, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if req.TeamID == req.OpponentID {
		return nil, model.NewValidationError("opponent_id", "must differ from team_id")
	}
	v, err := s.view(ctx, req.LeagueID)
	if err != nil {
		return nil, err
	}
	mine, err := v.side(req.TeamID)
	if err != nil {
		return nil, err
	}
	opp, err := v.side(req.OpponentID)
	if err != nil {
		return nil, err
	}
	var profile *model.TeamProfile
	if req.UseProfile {
		profile = &mine.Profile
	}
	recs := s.recommender.Generate(mine.Assets, opp.Assets, v.league.Settings, profile)
	metrics.RecordRecommendations(len(recs))
	s.logger.Debug(ctx, "recommendations generated",
		logger.String("team", req.TeamID),
		logger.String("opponent", req.OpponentID),
		logger.Int("count", len(recs)),
	)
	return recs, nil
}

// ComputeMatchmaking ranks every other team in the league as a trade partner.
func (s *Service) ComputeMatchmaking(ctx context.Context, leagueID, teamID, objective string) ([]model.RankedOpponent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	obj, err := model.ParseObjective(objective)
	if err != nil {
		return nil, err
	}
	v, err := s.view(ctx, leagueID)
	if err != nil {
		return nil, err
	}
	mine, err := v.side(teamID)
	if err != nil {
		return nil, err
	}
	opponents := make([]proposal.Side, 0, len(v.league.Teams)-1)
	for _, t := range v.league.Teams {
		if t.TeamID == teamID {
			continue
		}
		side, err := v.side(t.TeamID)
		if err != nil {
			return nil, err
		}
		opponents = append(opponents, side)
	}

	start := time.Now()
	ranked, err := s.matchmaker.Rank(ctx, mine, opponents, obj)
	metrics.RecordSearchLatency("matchmaking", float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.logger.Error(ctx, "matchmaking failed",
			logger.String("league", leagueID),
			logger.String("team", teamID),
			logger.Error(err),
		)
		return nil, err
	}
	return ranked, nil
}

// GenerateProposals searches fair trades between two teams.
func (s *Service) GenerateProposals(ctx context.Context, leagueID, teamID, opponentID, objective string) (proposal.Result, error) {
	if err := s.ready(); err != nil {
		return proposal.Result{}, err
	}
	obj, err := model.ParseObjective(objective)
	if err != nil {
		return proposal.Result{}, err
	}
	v, err := s.view(ctx, leagueID)
	if err != nil {
		return proposal.Result{}, err
	}
	mine, err := v.side(teamID)
	if err != nil {
		return proposal.Result{}, err
	}
	opp, err := v.side(opponentID)
	if err != nil {
		return proposal.Result{}, err
	}

	start := time.Now()
	res, err := s.proposals.Generate(ctx, mine, opp, obj)
	metrics.RecordSearchLatency("proposals", float64(time.Since(start).Milliseconds()))
	if err != nil {
		s.logger.Error(ctx, "proposal search failed",
			logger.String("team", teamID),
			logger.String("opponent", opponentID),
			logger.Error(err),
		)
		return proposal.Result{}, err
	}
	metrics.RecordProposalSearch(len(res.Proposals), res.Stats.Evaluated, res.Stats.Reason)
	if res.Stats.Truncated {
		s.logger.Warn(ctx, "proposal search truncated",
			logger.String("team", teamID),
			logger.String("opponent", opponentID),
			logger.String("reason", res.Stats.Reason),
			logger.Int("evaluated", res.Stats.Evaluated),
		)
	}
	return res, nil
}
