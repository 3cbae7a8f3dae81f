package proposal

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/okian/tradeval/internal/domain/model"
)

const (
	defaultConcurrency = 4
	scoredProposals    = 3
	// maxTiltGap is the widest now-weight difference between two timelines.
	maxTiltGap = 0.6
)

// MatchOption applies a configuration option to the Matchmaker.
type MatchOption func(*Matchmaker)

// WithConcurrency bounds how many opponents are searched at once.
func WithConcurrency(n int) MatchOption {
	return func(m *Matchmaker) {
		if n > 0 {
			m.concurrency = n
		}
	}
}

// Matchmaker ranks opponents by how many fair, beneficial trades exist with
// them and how complementary their timelines are.
type Matchmaker struct {
	gen         *Generator
	concurrency int
}

// NewMatchmaker creates a Matchmaker that searches with gen.
func NewMatchmaker(gen *Generator, opts ...MatchOption) *Matchmaker {
	if gen == nil {
		gen = New()
	}
	m := &Matchmaker{gen: gen, concurrency: defaultConcurrency}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

type searchOutcome struct {
	res Result
	err error
}

// Rank searches every opponent concurrently and returns them ordered by
// opponents with proposals first, then score descending, then team id.
func (m *Matchmaker) Rank(ctx context.Context, mine Side, opponents []Side, objective model.Objective) ([]model.RankedOpponent, error) {
	objective, err := model.ParseObjective(string(objective))
	if err != nil {
		return nil, err
	}

	outcomes := make([]searchOutcome, len(opponents))
	sem := make(chan struct{}, m.concurrency)
	var wg sync.WaitGroup
	for i := range opponents {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			res, err := m.gen.Generate(ctx, mine, opponents[i], objective)
			outcomes[i] = searchOutcome{res: res, err: err}
		}(i)
	}
	wg.Wait()

	analyzer := m.gen.Analyzer()
	myTilt := analyzer.Tilt(mine.Profile.Timeline)
	ranked := make([]model.RankedOpponent, 0, len(opponents))
	for i, opp := range opponents {
		if outcomes[i].err != nil {
			return nil, fmt.Errorf("search opponent %s: %w", opp.Profile.TeamID, outcomes[i].err)
		}
		res := outcomes[i].res
		complement := math.Abs(myTilt-analyzer.Tilt(opp.Profile.Timeline)) / maxTiltGap

		var fairness float64
		best := 0.0
		for j, p := range res.Proposals {
			if j == 0 {
				best = p.FairnessDelta
			}
			if j < scoredProposals {
				fairness += 1 - p.FairnessDelta/m.gen.Band()
			}
		}
		ro := model.RankedOpponent{
			TeamID:            opp.Profile.TeamID,
			Timeline:          opp.Profile.Timeline,
			Score:             fairness + complement,
			ProposalCount:     len(res.Proposals),
			BestFairnessDelta: best,
			Truncated:         res.Stats.Truncated,
		}
		if ro.ProposalCount == 0 {
			ro.Rationale = fmt.Sprintf("no fair trade within %.0f%%; timeline %s", m.gen.Band()*100, opp.Profile.Timeline)
		} else {
			ro.Rationale = fmt.Sprintf("%d fair proposals, best %.1f%% apart; timeline %s vs %s",
				ro.ProposalCount, best*100, mine.Profile.Timeline, opp.Profile.Timeline)
		}
		ranked = append(ranked, ro)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if (a.ProposalCount > 0) != (b.ProposalCount > 0) {
			return a.ProposalCount > 0
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.TeamID < b.TeamID
	})
	return ranked, nil
}
