// Package adjust scales raw asset values by league scoring rules.
package adjust

import (
	"math"

	"github.com/okian/tradeval/internal/domain/model"
)

// Default adjustment parameters used when no configuration is supplied.
const (
	defaultSuperflexBonus = 15.0
	defaultTEPremiumScale = 0.4
	neutralMultiplier     = 1.0
)

// Option applies a configuration option to the Adjuster.
type Option func(*Adjuster)

// WithFormatMultipliers sets the per-format multipliers.
func WithFormatMultipliers(m map[model.ScoringFormat]float64) Option {
	return func(a *Adjuster) {
		a.multipliers = make(map[model.ScoringFormat]float64, len(m))
		for f, v := range m {
			if v > 0 {
				a.multipliers[f] = v
			}
		}
	}
}

// WithSuperflexBonus sets the additive quarterback bonus.
func WithSuperflexBonus(bonus float64) Option {
	return func(a *Adjuster) {
		if bonus >= 0 {
			a.superflexBonus = bonus
		}
	}
}

// WithTEPremiumScale sets how strongly the TE premium scales tight ends.
func WithTEPremiumScale(scale float64) Option {
	return func(a *Adjuster) {
		if scale >= 0 {
			a.tePremiumScale = scale
		}
	}
}

// Adjuster is a pure function of (raw value, position, settings) once built.
type Adjuster struct {
	multipliers    map[model.ScoringFormat]float64
	superflexBonus float64
	tePremiumScale float64
}

// New creates an Adjuster with configuration options.
func New(opts ...Option) *Adjuster {
	a := &Adjuster{
		multipliers: map[model.ScoringFormat]float64{
			model.FormatStandard: neutralMultiplier,
		},
		superflexBonus: defaultSuperflexBonus,
		tePremiumScale: defaultTEPremiumScale,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FromConfig builds an Adjuster from an AppConfig.
func FromConfig(cfg model.AppConfig) *Adjuster {
	return New(
		WithFormatMultipliers(cfg.ScoringMultipliers),
		WithSuperflexBonus(cfg.Adjustments.SuperflexBonus),
		WithTEPremiumScale(cfg.Adjustments.TEPremiumScale),
	)
}

// FormatMultiplier returns the multiplier for f, falling back to Standard's
// multiplier and then to 1.0.
func (a *Adjuster) FormatMultiplier(f model.ScoringFormat) float64 {
	if parsed, ok := model.ParseScoringFormat(string(f)); ok {
		f = parsed
	}
	if m, ok := a.multipliers[f]; ok {
		return m
	}
	if m, ok := a.multipliers[model.FormatStandard]; ok {
		return m
	}
	return neutralMultiplier
}

// Adjust applies, in order, the scoring-format multiplier, the superflex
// bonus for quarterbacks and the TE-premium bonus for tight ends. The result
// is never negative.
func (a *Adjuster) Adjust(raw float64, pos model.Position, s model.LeagueSettings) float64 {
	if math.IsNaN(raw) || raw < 0 {
		raw = 0
	}
	v := raw * a.FormatMultiplier(s.ScoringFormat)
	if s.Superflex && pos.IsQuarterback() {
		v += a.superflexBonus
	}
	if s.TEPremium > 0 && pos.IsTightEnd() {
		v *= 1 + s.TEPremium*a.tePremiumScale
	}
	return math.Max(0, v)
}
