// Package proposal searches two rosters for trades that are fair under an
// objective and ranks them by mutual benefit.
//
// Search enumerates subsets of bounded size on each side and only evaluates
// pairs whose objective totals fall inside the fairness band. Effort is
// bounded by an evaluation budget, an optional candidate count and the
// caller's context; hitting any of them returns the partial, still
// deterministic, result with Stats.Truncated set.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/roster"
)

// Truncation reasons reported in SearchStats.Reason.
const (
	ReasonBudget     = "max_evaluations"
	ReasonCandidates = "max_candidates"
	ReasonDeadline   = "deadline_exceeded"
	ReasonCanceled   = "canceled"
)

// ctxCheckInterval is how many evaluations run between context checks.
const ctxCheckInterval = 256

// bandEpsilon widens the binary-searched window so float rounding never
// hides a pair the exact check would accept.
const bandEpsilon = 1e-9

// Side is one team's profile and its scored holdings.
type Side struct {
	Profile model.TeamProfile
	Assets  []model.ScoredAsset
}

// SearchStats describes how much of the space was explored.
type SearchStats struct {
	Evaluated int    `json:"evaluated"`
	Pruned    int    `json:"pruned"`
	Truncated bool   `json:"truncated"`
	Reason    string `json:"reason,omitempty"`
}

// Result is the ranked output of one search. An empty Proposals slice with
// Truncated false means no fair trade exists within the size bound.
type Result struct {
	Proposals []model.Proposal `json:"proposals"`
	Stats     SearchStats      `json:"stats"`
}

// Generator is immutable after construction and safe for concurrent use.
type Generator struct {
	band           float64
	maxSide        int
	maxEvaluations int
	maxProposals   int
	maxCandidates  int
	candidateLimit int
	timeout        time.Duration
	analyzer       *roster.Analyzer
	requireMutual  bool
}

// New creates a Generator with configuration options.
func New(opts ...Option) *Generator {
	g := &Generator{
		band:           DefaultFairnessBand,
		maxSide:        DefaultMaxSideSize,
		maxEvaluations: DefaultMaxEvaluations,
		maxProposals:   DefaultMaxProposals,
		candidateLimit: DefaultCandidateLimit,
		analyzer:       roster.New(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Band returns the configured fairness band.
func (g *Generator) Band() float64 { return g.band }

// Analyzer returns the roster analyzer used for mutual benefit.
func (g *Generator) Analyzer() *roster.Analyzer { return g.analyzer }

// FairnessDelta is the relative difference |a-b| / max(a,b).
func FairnessDelta(a, b float64) float64 {
	hi := math.Max(a, b)
	if hi <= 0 {
		return 0
	}
	return math.Abs(a-b) / hi
}

type subset struct {
	assets []model.ScoredAsset
	ids    []model.AssetID
	value  float64
	key    string
}

// Generate searches mine against opp. Panics inside the search surface as a
// ComputationError.
func (g *Generator) Generate(ctx context.Context, mine, opp Side, objective model.Objective) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			err = &model.ComputationError{Op: "proposal search", Err: fmt.Errorf("%v", r)}
		}
	}()

	objective, err = model.ParseObjective(string(objective))
	if err != nil {
		return Result{}, err
	}
	if err := disjoint(mine, opp); err != nil {
		return Result{}, err
	}
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	gives := enumerate(g.candidates(mine.Assets, objective), g.maxSide, objective)
	gets := enumerate(g.candidates(opp.Assets, objective), g.maxSide, objective)
	sort.SliceStable(gets, func(i, j int) bool {
		if gets[i].value != gets[j].value {
			return gets[i].value < gets[j].value
		}
		return gets[i].key < gets[j].key
	})

	var stats SearchStats
	found := make([]model.Proposal, 0)
search:
	for _, give := range gives {
		lo := give.value*(1-g.band) - bandEpsilon
		hi := give.value/(1-g.band) + bandEpsilon
		start := sort.Search(len(gets), func(i int) bool { return gets[i].value >= lo })
		end := sort.Search(len(gets), func(i int) bool { return gets[i].value > hi })
		stats.Pruned += len(gets) - (end - start)

		for _, get := range gets[start:end] {
			if stats.Evaluated >= g.maxEvaluations {
				stats.Truncated, stats.Reason = true, ReasonBudget
				break search
			}
			if stats.Evaluated%ctxCheckInterval == 0 {
				if cerr := ctx.Err(); cerr != nil {
					stats.Truncated, stats.Reason = true, ctxReason(cerr)
					break search
				}
			}
			stats.Evaluated++

			delta := FairnessDelta(give.value, get.value)
			if delta > g.band {
				stats.Pruned++
				continue
			}
			p, ok, perr := g.evaluate(mine, opp, give, get, delta)
			if perr != nil {
				return Result{}, &model.ComputationError{Op: "proposal search", Err: perr}
			}
			if !ok {
				continue
			}
			found = append(found, p)
			if g.maxCandidates > 0 && len(found) >= g.maxCandidates {
				stats.Truncated, stats.Reason = true, ReasonCandidates
				break search
			}
		}
	}

	Rank(found)
	if len(found) > g.maxProposals {
		found = found[:g.maxProposals]
	}
	return Result{Proposals: found, Stats: stats}, nil
}

func (g *Generator) evaluate(mine, opp Side, give, get subset, delta float64) (model.Proposal, bool, error) {
	mineImpact, err := g.analyzer.AnalyzeTradeImpact(mine.Profile, mine.Assets, give.assets, get.assets)
	if err != nil {
		return model.Proposal{}, false, err
	}
	oppImpact, err := g.analyzer.AnalyzeTradeImpact(opp.Profile, opp.Assets, get.assets, give.assets)
	if err != nil {
		return model.Proposal{}, false, err
	}
	if g.requireMutual && (mineImpact.FitScore < 0 || oppImpact.FitScore < 0) {
		return model.Proposal{}, false, nil
	}
	return model.Proposal{
		OpponentID:    opp.Profile.TeamID,
		Give:          give.ids,
		Get:           get.ids,
		GiveValue:     give.value,
		GetValue:      get.value,
		FairnessDelta: delta,
		MutualBenefit: mineImpact.FitScore + oppImpact.FitScore,
		Rationale: fmt.Sprintf("give %s (%.1f) for %s (%.1f), %.1f%% apart; fit %s for %s, %s for %s",
			labels(give.assets), give.value, labels(get.assets), get.value, delta*100,
			mineImpact.TimelineFit, mine.Profile.TeamID, oppImpact.TimelineFit, opp.Profile.TeamID),
	}, true, nil
}

// Rank orders proposals by fairness delta ascending, mutual benefit
// descending, total size ascending and finally by key.
func Rank(ps []model.Proposal) {
	sort.SliceStable(ps, func(i, j int) bool {
		a, b := ps[i], ps[j]
		if a.FairnessDelta != b.FairnessDelta {
			return a.FairnessDelta < b.FairnessDelta
		}
		if a.MutualBenefit != b.MutualBenefit {
			return a.MutualBenefit > b.MutualBenefit
		}
		if a.Size() != b.Size() {
			return a.Size() < b.Size()
		}
		return a.Key() < b.Key()
	})
}

// candidates keeps the most valuable assets under the objective and returns
// them ordered by id.
func (g *Generator) candidates(assets []model.ScoredAsset, objective model.Objective) []model.ScoredAsset {
	out := make([]model.ScoredAsset, 0, len(assets))
	for _, a := range assets {
		if objective.Value(a) > 0 {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		vi, vj := objective.Value(out[i]), objective.Value(out[j])
		if vi != vj {
			return vi > vj
		}
		return out[i].ID() < out[j].ID()
	})
	if len(out) > g.candidateLimit {
		out = out[:g.candidateLimit]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// enumerate lists every non-empty subset of size at most k in lexicographic
// index order.
func enumerate(assets []model.ScoredAsset, k int, objective model.Objective) []subset {
	var out []subset
	idx := make([]int, 0, k)
	var walk func(start int)
	walk = func(start int) {
		if len(idx) > 0 {
			s := subset{
				assets: make([]model.ScoredAsset, len(idx)),
				ids:    make([]model.AssetID, len(idx)),
			}
			keys := make([]string, len(idx))
			for i, j := range idx {
				s.assets[i] = assets[j]
				s.ids[i] = assets[j].ID()
				s.value += objective.Value(assets[j])
				keys[i] = string(s.ids[i])
			}
			s.key = strings.Join(keys, ",")
			out = append(out, s)
		}
		if len(idx) == k {
			return
		}
		for i := start; i < len(assets); i++ {
			idx = append(idx, i)
			walk(i + 1)
			idx = idx[:len(idx)-1]
		}
	}
	walk(0)
	return out
}

func disjoint(mine, opp Side) error {
	ids := make(map[model.AssetID]bool, len(mine.Assets))
	for _, a := range mine.Assets {
		ids[a.ID()] = true
	}
	for _, a := range opp.Assets {
		if ids[a.ID()] {
			return model.NewValidationError("assets", fmt.Sprintf("asset %s appears on both sides", a.ID()))
		}
	}
	if mine.Profile.TeamID != "" && mine.Profile.TeamID == opp.Profile.TeamID {
		return model.NewValidationError("opponent_id", "a team cannot trade with itself")
	}
	return nil
}

func ctxReason(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return ReasonDeadline
	}
	return ReasonCanceled
}

func labels(assets []model.ScoredAsset) string {
	parts := make([]string, len(assets))
	for i, a := range assets {
		parts[i] = a.Asset.Label()
	}
	return strings.Join(parts, " + ")
}
