// Package valuation scores assets into now, future and composite values.
//
// Scoring is deterministic: the same (asset, settings, config) always yields
// a bit-identical ScoredAsset. Nothing here reads ambient state.
package valuation

import (
	"fmt"
	"math"

	"github.com/okian/tradeval/internal/domain/adjust"
	"github.com/okian/tradeval/internal/domain/agecurve"
	"github.com/okian/tradeval/internal/domain/model"
)

// Engine is stateless; it exists to give callers a stable entry point.
type Engine struct{}

// New creates a valuation engine.
func New() *Engine {
	return &Engine{}
}

// Score validates settings and config, then scores one asset.
func (e *Engine) Score(asset model.Asset, settings model.LeagueSettings, cfg model.AppConfig) (model.ScoredAsset, error) {
	s, err := e.Prepare(settings, cfg)
	if err != nil {
		return model.ScoredAsset{}, err
	}
	return s.Score(asset)
}

// ScoreAll scores assets in order and aborts on the first malformed asset.
func (e *Engine) ScoreAll(assets []model.Asset, settings model.LeagueSettings, cfg model.AppConfig) ([]model.ScoredAsset, error) {
	s, err := e.Prepare(settings, cfg)
	if err != nil {
		return nil, err
	}
	return s.ScoreAll(assets)
}

// Prepare validates inputs once and returns a Scorer bound to them.
func (e *Engine) Prepare(settings model.LeagueSettings, cfg model.AppConfig) (*Scorer, error) {
	ls, err := settings.Normalized()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Scorer{
		settings: ls,
		weights:  cfg.Weights,
		picks:    cfg.Picks,
		version:  cfg.Version,
		adjuster: adjust.FromConfig(cfg),
		now:      agecurve.New(cfg.AgeCurves),
		future:   agecurve.New(cfg.FutureCurves),
	}, nil
}

// Scorer scores assets under one validated (settings, config) pair. It is
// immutable and safe for concurrent use.
type Scorer struct {
	settings model.LeagueSettings
	weights  model.Weights
	picks    model.PickModel
	version  int
	adjuster *adjust.Adjuster
	now      *agecurve.Model
	future   *agecurve.Model
}

// Settings returns the normalized league settings.
func (s *Scorer) Settings() model.LeagueSettings { return s.settings }

// Score scores one asset. Malformed assets fail with a ValidationError
// naming the offending field.
func (s *Scorer) Score(asset model.Asset) (model.ScoredAsset, error) {
	if err := asset.Validate(); err != nil {
		return model.ScoredAsset{}, err
	}
	var now, future float64
	switch asset.Kind {
	case model.KindPlayer:
		now, future = s.scorePlayer(asset.Player)
	case model.KindPick:
		v, err := s.pickValue(asset.Pick)
		if err != nil {
			return model.ScoredAsset{}, err
		}
		now, future = v, v
	default:
		return model.ScoredAsset{}, model.NewValidationError("kind", "unknown asset kind")
	}
	return model.ScoredAsset{
		Asset:         asset,
		Now:           now,
		Future:        future,
		Composite:     Composite(s.weights.Alpha, now, future),
		ConfigVersion: s.version,
	}, nil
}

// ScoreAll scores assets in order, wrapping the first failure with the id.
func (s *Scorer) ScoreAll(assets []model.Asset) ([]model.ScoredAsset, error) {
	out := make([]model.ScoredAsset, 0, len(assets))
	for _, a := range assets {
		sa, err := s.Score(a)
		if err != nil {
			return nil, fmt.Errorf("score asset %q: %w", a.ID(), err)
		}
		out = append(out, sa)
	}
	return out, nil
}

func (s *Scorer) scorePlayer(p *model.PlayerAsset) (float64, float64) {
	pos := p.Position.Normalize()
	w := s.weights
	baseNow := w.MarketNow*p.MarketValue + w.ProductionNow*p.Production
	basePotential := w.MarketFuture*p.MarketValue + w.PotentialFuture*p.Potential

	now := s.adjuster.Adjust(baseNow, pos, s.settings) * s.now.MultiplierFor(pos, p.Age)
	future := s.adjuster.Adjust(basePotential, pos, s.settings) * s.future.MultiplierFor(pos, p.Age)
	return now, future
}

// pickValue discounts the round baseline by one factor per year past the
// current season. Scoring format does not apply to picks.
func (s *Scorer) pickValue(p *model.PickAsset) (float64, error) {
	m := s.picks
	if p.Round > len(m.RoundValues) {
		return 0, model.NewValidationError("pick.round", fmt.Sprintf("round %d is beyond the %d valued rounds", p.Round, len(m.RoundValues)))
	}
	yearsOut := p.Year - m.Season
	if yearsOut < 0 || yearsOut > m.HorizonYears {
		return 0, model.NewValidationError("pick.year", fmt.Sprintf("year %d is outside %d-%d", p.Year, m.Season, m.Season+m.HorizonYears))
	}
	return m.RoundValues[p.Round-1] * math.Pow(m.YearDiscount, float64(yearsOut)), nil
}

// Composite blends now and future by alpha and clamps at zero.
func Composite(alpha, now, future float64) float64 {
	return math.Max(0, alpha*now+(1-alpha)*future)
}
