package model

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ConfigStatus tags a configuration version.
type ConfigStatus string

// Configuration statuses.
const (
	ConfigActive    ConfigStatus = "active"
	ConfigCandidate ConfigStatus = "candidate"
)

// weightTolerance bounds rounding error on the paired weight sums.
const weightTolerance = 1e-6

// Weights blends market value with production (now) or potential (future),
// and alpha blends now with future into the composite.
type Weights struct {
	Alpha           float64 `json:"alpha"`
	MarketNow       float64 `json:"wM_now"`
	ProductionNow   float64 `json:"wP_now"`
	MarketFuture    float64 `json:"wM_future"`
	PotentialFuture float64 `json:"wP_future"`
}

// Validate enforces [0,1] bounds and the paired sums.
func (w Weights) Validate() error {
	named := []struct {
		field string
		v     float64
	}{
		{"weights.alpha", w.Alpha},
		{"weights.wM_now", w.MarketNow},
		{"weights.wP_now", w.ProductionNow},
		{"weights.wM_future", w.MarketFuture},
		{"weights.wP_future", w.PotentialFuture},
	}
	for _, n := range named {
		if math.IsNaN(n.v) || n.v < 0 || n.v > 1 {
			return NewValidationError(n.field, "must be within [0,1]")
		}
	}
	if math.Abs(w.MarketNow+w.ProductionNow-1) > weightTolerance {
		return NewValidationError("weights.wM_now+wP_now", "must sum to 1")
	}
	if math.Abs(w.MarketFuture+w.PotentialFuture-1) > weightTolerance {
		return NewValidationError("weights.wM_future+wP_future", "must sum to 1")
	}
	return nil
}

// AgeCurve maps ages to decay multipliers. Multipliers[i] applies to ages
// strictly below Breakpoints[i]; the final multiplier applies past the last
// breakpoint, so len(Multipliers) == len(Breakpoints)+1.
type AgeCurve struct {
	Breakpoints []float64 `json:"breakpoints"`
	Multipliers []float64 `json:"multipliers"`
}

// Validate enforces the curve invariants.
func (c AgeCurve) Validate() error {
	if len(c.Multipliers) != len(c.Breakpoints)+1 {
		return NewValidationError("age_curve.multipliers", "must have one more entry than breakpoints")
	}
	for i := 1; i < len(c.Breakpoints); i++ {
		if !(c.Breakpoints[i] > c.Breakpoints[i-1]) {
			return NewValidationError("age_curve.breakpoints", "must be strictly increasing")
		}
	}
	if c.Multipliers[0] != 1.0 {
		return NewValidationError("age_curve.multipliers", "must start at 1.0")
	}
	for i, m := range c.Multipliers {
		if math.IsNaN(m) || m <= 0 || m > 1 {
			return NewValidationError("age_curve.multipliers", "must be within (0,1]")
		}
		if i > 0 && m > c.Multipliers[i-1] {
			return NewValidationError("age_curve.multipliers", "must be non-increasing")
		}
	}
	return nil
}

func (c AgeCurve) clone() AgeCurve {
	return AgeCurve{
		Breakpoints: append([]float64(nil), c.Breakpoints...),
		Multipliers: append([]float64(nil), c.Multipliers...),
	}
}

// PickModel values rookie picks independently of scoring format.
type PickModel struct {
	Season       int       `json:"season"`
	RoundValues  []float64 `json:"round_values"`
	YearDiscount float64   `json:"year_discount"`
	HorizonYears int       `json:"horizon_years"`
}

// Validate checks the pick model ranges.
func (p PickModel) Validate() error {
	switch {
	case p.Season <= 0:
		return NewValidationError("picks.season", "must be positive")
	case len(p.RoundValues) == 0:
		return NewValidationError("picks.round_values", "must not be empty")
	case math.IsNaN(p.YearDiscount) || p.YearDiscount <= 0 || p.YearDiscount > 1:
		return NewValidationError("picks.year_discount", "must be within (0,1]")
	case p.HorizonYears < 0:
		return NewValidationError("picks.horizon_years", "must not be negative")
	}
	for _, v := range p.RoundValues {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return NewValidationError("picks.round_values", "must be finite and non-negative")
		}
	}
	return nil
}

// Adjustments parameterize the league-setting bonuses.
type Adjustments struct {
	SuperflexBonus float64 `json:"superflex_bonus"`
	TEPremiumScale float64 `json:"te_premium_scale"`
}

// AppConfig is one versioned scoring configuration.
type AppConfig struct {
	Version            int                       `json:"version"`
	Status             ConfigStatus              `json:"status"`
	RolloutPercent     float64                   `json:"rollout_percent"`
	Weights            Weights                   `json:"weights"`
	AgeCurves          map[Position]AgeCurve     `json:"age_curves"`
	FutureCurves       map[Position]AgeCurve     `json:"future_curves"`
	ScoringMultipliers map[ScoringFormat]float64 `json:"scoring_multipliers"`
	Picks              PickModel                 `json:"picks"`
	Adjustments        Adjustments               `json:"adjustments"`
}

// Validate checks every section and reports the first offending field.
func (c AppConfig) Validate() error {
	if c.Status != ConfigActive && c.Status != ConfigCandidate {
		return NewValidationError("config.status", "must be active or candidate")
	}
	if math.IsNaN(c.RolloutPercent) || c.RolloutPercent < 0 || c.RolloutPercent > 100 {
		return NewValidationError("config.rollout_percent", "must be within [0,100]")
	}
	if err := c.Weights.Validate(); err != nil {
		return err
	}
	for _, curves := range []map[Position]AgeCurve{c.AgeCurves, c.FutureCurves} {
		for _, pos := range sortedPositions(curves) {
			if err := curves[pos].Validate(); err != nil {
				var ve *ValidationError
				if errors.As(err, &ve) {
					return NewValidationError(fmt.Sprintf("%s[%s]", ve.Field, pos), ve.Reason)
				}
				return err
			}
		}
	}
	for f, m := range c.ScoringMultipliers {
		if math.IsNaN(m) || math.IsInf(m, 0) || m <= 0 {
			return NewValidationError("scoring_multipliers."+string(f), "must be positive")
		}
	}
	if c.Adjustments.SuperflexBonus < 0 || c.Adjustments.TEPremiumScale < 0 {
		return NewValidationError("adjustments", "bonuses must not be negative")
	}
	return c.Picks.Validate()
}

// Clone returns a deep copy so fitted weights never alias the source.
func (c AppConfig) Clone() AppConfig {
	out := c
	out.AgeCurves = cloneCurves(c.AgeCurves)
	out.FutureCurves = cloneCurves(c.FutureCurves)
	if c.ScoringMultipliers != nil {
		out.ScoringMultipliers = make(map[ScoringFormat]float64, len(c.ScoringMultipliers))
		for k, v := range c.ScoringMultipliers {
			out.ScoringMultipliers[k] = v
		}
	}
	out.Picks.RoundValues = append([]float64(nil), c.Picks.RoundValues...)
	return out
}

func cloneCurves(in map[Position]AgeCurve) map[Position]AgeCurve {
	if in == nil {
		return nil
	}
	out := make(map[Position]AgeCurve, len(in))
	for k, v := range in {
		out[k] = v.clone()
	}
	return out
}

func sortedPositions(m map[Position]AgeCurve) []Position {
	out := make([]Position, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DefaultSeason is the season the default pick model is anchored to.
const DefaultSeason = 2026

// DefaultAppConfig returns the version-1 active configuration.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Version:        1,
		Status:         ConfigActive,
		RolloutPercent: 100,
		Weights: Weights{
			Alpha:           0.5,
			MarketNow:       0.4,
			ProductionNow:   0.6,
			MarketFuture:    0.5,
			PotentialFuture: 0.5,
		},
		AgeCurves: map[Position]AgeCurve{
			PositionQB: {Breakpoints: []float64{28, 32, 35, 38}, Multipliers: []float64{1.0, 0.95, 0.85, 0.7, 0.5}},
			PositionRB: {Breakpoints: []float64{23, 26, 29}, Multipliers: []float64{1.0, 0.9, 0.7, 0.5}},
			PositionWR: {Breakpoints: []float64{25, 28, 31}, Multipliers: []float64{1.0, 0.95, 0.8, 0.6}},
			PositionTE: {Breakpoints: []float64{26, 29, 32}, Multipliers: []float64{1.0, 0.95, 0.8, 0.6}},
		},
		FutureCurves: map[Position]AgeCurve{
			PositionQB: {Breakpoints: []float64{26, 30, 34}, Multipliers: []float64{1.0, 0.9, 0.7, 0.4}},
			PositionRB: {Breakpoints: []float64{22, 24, 26, 28}, Multipliers: []float64{1.0, 0.85, 0.65, 0.45, 0.25}},
			PositionWR: {Breakpoints: []float64{23, 26, 29}, Multipliers: []float64{1.0, 0.9, 0.7, 0.45}},
			PositionTE: {Breakpoints: []float64{24, 27, 30}, Multipliers: []float64{1.0, 0.9, 0.7, 0.45}},
		},
		ScoringMultipliers: map[ScoringFormat]float64{
			FormatPPR:      1.0,
			FormatHalf:     0.95,
			FormatStandard: 0.9,
		},
		Picks: PickModel{
			Season:       DefaultSeason,
			RoundValues:  []float64{45, 20, 8, 3},
			YearDiscount: 0.85,
			HorizonYears: 3,
		},
		Adjustments: Adjustments{
			SuperflexBonus: 15,
			TEPremiumScale: 0.4,
		},
	}
}
