// Package recommend ranks give/get suggestions for one team against another.
package recommend

import (
	"fmt"
	"sort"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/roster"
)

// Action says whether the team should acquire or move the asset.
type Action string

// Actions.
const (
	ActionTarget Action = "target"
	ActionSell   Action = "sell"
)

// Default generator parameters.
const (
	defaultLimit      = 10
	youngAge          = 24.0
	veteranAge        = 27.0
	riskBoost         = 0.15
	riskPenalty       = 0.10
	superflexQBStarts = 2
)

// Recommendation is one ranked suggestion.
type Recommendation struct {
	Action    Action         `json:"action"`
	AssetID   model.AssetID  `json:"asset_id"`
	Label     string         `json:"label"`
	Position  model.Position `json:"position"`
	Composite float64        `json:"composite"`
	Marginal  float64        `json:"marginal"`
	FitScore  float64        `json:"fit_score"`
	// TimelineFit labels the asset against the team's timeline; set only
	// when a profile steered the ranking.
	TimelineFit roster.Fit        `json:"timeline_fit,omitempty"`
	Rationale   string            `json:"rationale"`
	Asset       model.ScoredAsset `json:"-"`
}

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithLimit caps the number of recommendations returned.
func WithLimit(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.limit = n
		}
	}
}

// WithStarters overrides the starter count for one position.
func WithStarters(pos model.Position, n int) Option {
	return func(g *Generator) {
		if n >= 0 {
			g.starters[pos.Normalize()] = n
		}
	}
}

// WithAnalyzer sets the analyzer that supplies timeline tilts.
func WithAnalyzer(a *roster.Analyzer) Option {
	return func(g *Generator) {
		if a != nil {
			g.analyzer = a
		}
	}
}

// Generator is immutable after construction.
type Generator struct {
	limit    int
	starters map[model.Position]int
	analyzer *roster.Analyzer
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		limit: defaultLimit,
		starters: map[model.Position]int{
			model.PositionQB: 1,
			model.PositionRB: 2,
			model.PositionWR: 3,
			model.PositionTE: 1,
		},
		analyzer: roster.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate suggests assets team A should target from team B and surplus
// assets team A could sell. Without a profile, entries are ranked by raw
// marginal composite value; with one, by timeline and risk fit.
func (g *Generator) Generate(teamA, teamB []model.ScoredAsset, settings model.LeagueSettings, profile *model.TeamProfile) []Recommendation {
	byPos := groupByPosition(teamA)
	starters := g.startersFor(settings)

	out := make([]Recommendation, 0, len(teamB)+len(teamA))
	for _, b := range teamB {
		marginal := b.Composite
		if b.Asset.Kind == model.KindPlayer {
			marginal = b.Composite - kthBest(byPos[b.Position()], starters[b.Position()])
		}
		if marginal <= 0 {
			continue
		}
		out = append(out, Recommendation{
			Action:    ActionTarget,
			AssetID:   b.ID(),
			Label:     b.Asset.Label(),
			Position:  b.Position(),
			Composite: b.Composite,
			Marginal:  marginal,
			FitScore:  marginal,
			Rationale: fmt.Sprintf("upgrades %s by %.1f over the current starter", b.Position(), marginal),
			Asset:     b,
		})
	}
	for pos, assets := range byPos {
		if pos == model.PositionPick {
			continue
		}
		n := starters[pos]
		for i := n; i < len(assets); i++ {
			a := assets[i]
			out = append(out, Recommendation{
				Action:    ActionSell,
				AssetID:   a.ID(),
				Label:     a.Asset.Label(),
				Position:  pos,
				Composite: a.Composite,
				Marginal:  a.Composite,
				FitScore:  a.Composite,
				Rationale: fmt.Sprintf("depth beyond %d %s starters", n, pos),
				Asset:     a,
			})
		}
	}

	if profile != nil {
		for i := range out {
			out[i].FitScore, out[i].TimelineFit = g.strategicFit(out[i], *profile)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FitScore != out[j].FitScore {
			return out[i].FitScore > out[j].FitScore
		}
		if out[i].Composite != out[j].Composite {
			return out[i].Composite > out[j].Composite
		}
		if out[i].AssetID != out[j].AssetID {
			return out[i].AssetID < out[j].AssetID
		}
		return out[i].Action < out[j].Action
	})
	if len(out) > g.limit {
		out = out[:g.limit]
	}
	return out
}

func (g *Generator) startersFor(s model.LeagueSettings) map[model.Position]int {
	out := make(map[model.Position]int, len(g.starters))
	for p, n := range g.starters {
		out[p] = n
	}
	if s.Superflex && out[model.PositionQB] < superflexQBStarts {
		out[model.PositionQB] = superflexQBStarts
	}
	return out
}

// strategicFit scores an entry by the analyzer's timeline fit of holding the
// asset instead of its composite, then applies the risk modifier. Sells are
// scored as the value the team gives up, so the deltas invert.
func (g *Generator) strategicFit(r Recommendation, p model.TeamProfile) (float64, roster.Fit) {
	sign := 1.0
	if r.Action == ActionSell {
		sign = -1
	}
	s := r.Asset
	fit, label := g.analyzer.Fit(p.Timeline, sign*(s.Now-s.Composite), sign*(s.Future-s.Composite), s.Composite)
	if r.Action == ActionTarget {
		fit += r.Marginal
	}
	mod := riskModifier(p.RiskTolerance, s) * s.Composite
	return fit + sign*mod, label
}

// riskModifier is a relative boost: high tolerance favors young players and
// picks, low tolerance favors proven veterans.
func riskModifier(rt model.RiskTolerance, s model.ScoredAsset) float64 {
	if parsed, ok := model.ParseRiskTolerance(string(rt)); ok {
		rt = parsed
	}
	young := s.Asset.Kind == model.KindPick || (s.Asset.Kind == model.KindPlayer && s.Asset.Age() <= youngAge)
	proven := s.Asset.Kind == model.KindPlayer && s.Asset.Age() >= veteranAge && s.Now > 0 && s.Now >= s.Future
	switch rt {
	case model.RiskHigh:
		if young {
			return riskBoost
		}
	case model.RiskLow:
		if proven {
			return riskBoost
		}
		if young {
			return -riskPenalty
		}
	}
	return 0
}

// groupByPosition buckets assets by position sorted by composite desc.
func groupByPosition(assets []model.ScoredAsset) map[model.Position][]model.ScoredAsset {
	out := make(map[model.Position][]model.ScoredAsset)
	for _, a := range assets {
		out[a.Position()] = append(out[a.Position()], a)
	}
	for _, list := range out {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].Composite != list[j].Composite {
				return list[i].Composite > list[j].Composite
			}
			return list[i].ID() < list[j].ID()
		})
	}
	return out
}

// kthBest returns the composite of the k-th best asset (1-based), or 0 when
// the team has fewer than k.
func kthBest(sorted []model.ScoredAsset, k int) float64 {
	if k <= 0 || len(sorted) < k {
		return 0
	}
	return sorted[k-1].Composite
}
