// Package roster evaluates how a trade shifts a team's strength relative to
// its strategic timeline. Everything here is a pure function of its inputs.
package roster

import (
	"fmt"
	"math"
	"sort"

	"github.com/okian/tradeval/internal/domain/model"
)

// Fit is the qualitative timeline-fit label.
type Fit string

// Fit labels.
const (
	FitPositive Fit = "positive"
	FitNeutral  Fit = "neutral"
	FitNegative Fit = "negative"
)

// Flag codes surfaced in Impact.Flags.
const (
	FlagMissingPosition = "missing_position"
	FlagRosterTooSmall  = "roster_below_minimum"
	FlagConsolidation   = "consolidation"
	FlagNoPicksLeft     = "no_picks_left"
)

// Default analyzer parameters.
const (
	defaultFitThreshold  = 0.02
	defaultMinRosterSize = 0
	minFitScale          = 1.0
)

// Flag is a structural issue with the post-trade roster.
type Flag struct {
	Code   string `json:"code"`
	Detail string `json:"detail"`
}

// Impact is the result of AnalyzeTradeImpact.
type Impact struct {
	DeltaNow       float64 `json:"delta_now"`
	DeltaFuture    float64 `json:"delta_future"`
	DeltaComposite float64 `json:"delta_composite"`
	FitScore       float64 `json:"fit_score"`
	TimelineFit    Fit     `json:"timeline_fit"`
	Flags          []Flag  `json:"flags"`
}

// HasFlag reports whether code was raised.
func (i Impact) HasFlag(code string) bool {
	for _, f := range i.Flags {
		if f.Code == code {
			return true
		}
	}
	return false
}

// Option applies a configuration option to the Analyzer.
type Option func(*Analyzer)

// WithRequiredPositions sets positions a roster must keep at least one of.
func WithRequiredPositions(positions ...model.Position) Option {
	return func(a *Analyzer) {
		a.required = make([]model.Position, 0, len(positions))
		for _, p := range positions {
			a.required = append(a.required, p.Normalize())
		}
	}
}

// WithMinRosterSize flags trades that shrink a roster below n players.
func WithMinRosterSize(n int) Option {
	return func(a *Analyzer) {
		if n >= 0 {
			a.minRosterSize = n
		}
	}
}

// WithFitThreshold sets the relative fit score that separates labels.
func WithFitThreshold(t float64) Option {
	return func(a *Analyzer) {
		if t > 0 {
			a.fitThreshold = t
		}
	}
}

// WithTimelineTilt overrides the weight on now-value for one timeline.
func WithTimelineTilt(t model.Timeline, nowWeight float64) Option {
	return func(a *Analyzer) {
		if nowWeight >= 0 && nowWeight <= 1 {
			a.tilt[t] = nowWeight
		}
	}
}

// Analyzer is immutable after construction.
type Analyzer struct {
	required      []model.Position
	minRosterSize int
	fitThreshold  float64
	tilt          map[model.Timeline]float64
}

// New creates an Analyzer with configuration options.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{
		required:      []model.Position{model.PositionQB, model.PositionRB, model.PositionWR, model.PositionTE},
		minRosterSize: defaultMinRosterSize,
		fitThreshold:  defaultFitThreshold,
		tilt: map[model.Timeline]float64{
			model.TimelineContend: 0.8,
			model.TimelineRetool:  0.5,
			model.TimelineRebuild: 0.2,
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Tilt returns the weight a timeline places on now-value.
func (a *Analyzer) Tilt(t model.Timeline) float64 {
	if parsed, ok := model.ParseTimeline(string(t)); ok {
		t = parsed
	}
	if w, ok := a.tilt[t]; ok {
		return w
	}
	return a.tilt[model.TimelineRetool]
}

// TimelineValue is how much a team on timeline t values an asset.
func (a *Analyzer) TimelineValue(t model.Timeline, s model.ScoredAsset) float64 {
	w := a.Tilt(t)
	return w*s.Now + (1-w)*s.Future
}

// Fit scores a (deltaNow, deltaFuture) shift for timeline t and labels it
// relative to scale, the typical value of the assets involved.
func (a *Analyzer) Fit(t model.Timeline, deltaNow, deltaFuture, scale float64) (float64, Fit) {
	w := a.Tilt(t)
	score := w*deltaNow + (1-w)*deltaFuture
	ratio := score / math.Max(minFitScale, scale)
	switch {
	case ratio > a.fitThreshold:
		return score, FitPositive
	case ratio < -a.fitThreshold:
		return score, FitNegative
	default:
		return score, FitNeutral
	}
}

// AnalyzeTradeImpact computes the net change a team experiences when
// outgoing leaves holdings and incoming arrives. Outgoing assets must be
// held by the team; incoming assets must not be.
func (a *Analyzer) AnalyzeTradeImpact(profile model.TeamProfile, holdings, outgoing, incoming []model.ScoredAsset) (Impact, error) {
	held := make(map[model.AssetID]model.ScoredAsset, len(holdings))
	for _, h := range holdings {
		held[h.ID()] = h
	}
	seen := make(map[model.AssetID]bool, len(outgoing)+len(incoming))
	var outNow, outFuture, outComp float64
	for _, o := range outgoing {
		id := o.ID()
		if _, ok := held[id]; !ok {
			return Impact{}, model.NewValidationError("outgoing", fmt.Sprintf("asset %s is not held by team %s", id, profile.TeamID))
		}
		if seen[id] {
			return Impact{}, model.NewValidationError("outgoing", fmt.Sprintf("asset %s listed twice", id))
		}
		seen[id] = true
		outNow += o.Now
		outFuture += o.Future
		outComp += o.Composite
	}
	var inNow, inFuture, inComp float64
	for _, in := range incoming {
		id := in.ID()
		if _, ok := held[id]; ok {
			return Impact{}, model.NewValidationError("incoming", fmt.Sprintf("asset %s is already held by team %s", id, profile.TeamID))
		}
		if seen[id] {
			return Impact{}, model.NewValidationError("incoming", fmt.Sprintf("asset %s listed twice", id))
		}
		seen[id] = true
		inNow += in.Now
		inFuture += in.Future
		inComp += in.Composite
	}

	imp := Impact{
		DeltaNow:       inNow - outNow,
		DeltaFuture:    inFuture - outFuture,
		DeltaComposite: inComp - outComp,
		Flags:          []Flag{},
	}
	imp.FitScore, imp.TimelineFit = a.Fit(profile.Timeline, imp.DeltaNow, imp.DeltaFuture, (outComp+inComp)/2)
	imp.Flags = a.flags(held, outgoing, incoming)
	return imp, nil
}

func (a *Analyzer) flags(held map[model.AssetID]model.ScoredAsset, outgoing, incoming []model.ScoredAsset) []Flag {
	after := make(map[model.AssetID]model.ScoredAsset, len(held)+len(incoming))
	for id, h := range held {
		after[id] = h
	}
	for _, o := range outgoing {
		delete(after, o.ID())
	}
	for _, in := range incoming {
		after[in.ID()] = in
	}

	counts := make(map[model.Position]int)
	players, picksBefore, picksAfter := 0, 0, 0
	for _, h := range held {
		if h.Asset.Kind == model.KindPick {
			picksBefore++
		}
	}
	for _, s := range after {
		if s.Asset.Kind == model.KindPick {
			picksAfter++
			continue
		}
		players++
		counts[s.Position()]++
	}

	flags := []Flag{}
	for _, pos := range a.required {
		if counts[pos] == 0 {
			flags = append(flags, Flag{Code: FlagMissingPosition, Detail: fmt.Sprintf("no %s remains on the roster", pos)})
		}
	}
	if a.minRosterSize > 0 && players < a.minRosterSize {
		flags = append(flags, Flag{Code: FlagRosterTooSmall, Detail: fmt.Sprintf("%d players remain, minimum is %d", players, a.minRosterSize)})
	}
	if len(outgoing) > len(incoming) && len(incoming) > 0 {
		flags = append(flags, Flag{Code: FlagConsolidation, Detail: fmt.Sprintf("%d-for-%d frees %d roster spots", len(outgoing), len(incoming), len(outgoing)-len(incoming))})
	}
	if picksBefore > 0 && picksAfter == 0 {
		flags = append(flags, Flag{Code: FlagNoPicksLeft, Detail: "every owned pick leaves the team"})
	}
	sort.SliceStable(flags, func(i, j int) bool { return flags[i].Code < flags[j].Code })
	return flags
}
