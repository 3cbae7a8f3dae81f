package proposal_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	. "github.com/smartystreets/goconvey/convey"
)

func asset(id string, pos model.Position, now, future float64) model.ScoredAsset {
	return model.ScoredAsset{
		Asset:     model.NewPlayer(model.PlayerAsset{ID: model.AssetID(id), Name: id, Position: pos, Age: 25}),
		Now:       now,
		Future:    future,
		Composite: 0.5*now + 0.5*future,
	}
}

func flat(id string, v float64) model.ScoredAsset {
	return asset(id, model.PositionWR, v, v)
}

func side(team string, tl model.Timeline, assets ...model.ScoredAsset) proposal.Side {
	return proposal.Side{Profile: model.TeamProfile{TeamID: team, Timeline: tl, RiskTolerance: model.RiskMedium}, Assets: assets}
}

func bigSide(team, prefix string, tl model.Timeline, n int) proposal.Side {
	positions := []model.Position{model.PositionQB, model.PositionRB, model.PositionWR, model.PositionTE}
	assets := make([]model.ScoredAsset, 0, n)
	for i := 0; i < n; i++ {
		now := float64(10 + (i*37)%60)
		future := float64(10 + (i*53)%70)
		assets = append(assets, asset(fmt.Sprintf("%s-%02d", prefix, i), positions[i%len(positions)], now, future))
	}
	return side(team, tl, assets...)
}

func TestFairnessBand(t *testing.T) {
	Convey("Given an 8% fairness band", t, func() {
		g := proposal.New(proposal.WithFairnessBand(0.08), proposal.WithMaxSideSize(1))
		mine := side("me", model.TimelineRetool, flat("m1", 100))

		Convey("When the opponent offers 108 and 120", func() {
			opp := side("them", model.TimelineRetool, flat("o1", 108), flat("o2", 120))
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then only 100 vs 108 is accepted", func() {
				So(err, ShouldBeNil)
				So(len(res.Proposals), ShouldEqual, 1)
				p := res.Proposals[0]
				So(p.Give, ShouldResemble, []model.AssetID{"m1"})
				So(p.Get, ShouldResemble, []model.AssetID{"o1"})
				So(p.FairnessDelta, ShouldAlmostEqual, 8.0/108.0, 1e-12)
				So(p.OpponentID, ShouldEqual, "them")
				So(res.Stats.Truncated, ShouldBeFalse)
				So(res.Stats.Pruned, ShouldEqual, 1)
			})
		})

		Convey("When no subset lies within the band", func() {
			opp := side("them", model.TimelineRetool, flat("o1", 200))
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then the result is an empty success", func() {
				So(err, ShouldBeNil)
				So(res.Proposals, ShouldBeEmpty)
				So(res.Stats.Truncated, ShouldBeFalse)
			})
		})
	})
}

func TestObjective(t *testing.T) {
	Convey("Given assets whose now and future values disagree", t, func() {
		g := proposal.New(proposal.WithFairnessBand(0.05), proposal.WithMaxSideSize(1))
		mine := side("me", model.TimelineRetool, asset("m1", model.PositionWR, 100, 40))
		opp := side("them", model.TimelineRetool, asset("o1", model.PositionWR, 101, 10), asset("o2", model.PositionWR, 10, 41))

		Convey("When searching win-now", func() {
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveWinNow)

			Convey("Then now totals are compared", func() {
				So(err, ShouldBeNil)
				So(len(res.Proposals), ShouldEqual, 1)
				So(res.Proposals[0].Get, ShouldResemble, []model.AssetID{"o1"})
			})
		})

		Convey("When searching future-lean", func() {
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveFutureLean)

			Convey("Then future totals are compared", func() {
				So(err, ShouldBeNil)
				So(len(res.Proposals), ShouldEqual, 1)
				So(res.Proposals[0].Get, ShouldResemble, []model.AssetID{"o2"})
			})
		})

		Convey("When the objective is unknown", func() {
			_, err := g.Generate(context.Background(), mine, opp, "moonshot")

			Convey("Then a ValidationError is returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestSearchInvariants(t *testing.T) {
	Convey("Given realistic rosters", t, func() {
		g := proposal.New(proposal.WithMaxProposals(500))
		mine := bigSide("me", "m", model.TimelineContend, 18)
		opp := bigSide("them", "o", model.TimelineRebuild, 18)
		res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

		mineIDs := map[model.AssetID]bool{}
		for _, a := range mine.Assets {
			mineIDs[a.ID()] = true
		}
		oppIDs := map[model.AssetID]bool{}
		for _, a := range opp.Assets {
			oppIDs[a.ID()] = true
		}

		Convey("Then proposals exist and respect side bounds", func() {
			So(err, ShouldBeNil)
			So(len(res.Proposals), ShouldBeGreaterThan, 0)
			for _, p := range res.Proposals {
				So(len(p.Give), ShouldBeBetweenOrEqual, 1, proposal.DefaultMaxSideSize)
				So(len(p.Get), ShouldBeBetweenOrEqual, 1, proposal.DefaultMaxSideSize)
				for _, id := range p.Give {
					So(mineIDs[id], ShouldBeTrue)
					So(oppIDs[id], ShouldBeFalse)
				}
				for _, id := range p.Get {
					So(oppIDs[id], ShouldBeTrue)
				}
			}
		})

		Convey("Then every fairness delta is inside the band", func() {
			for _, p := range res.Proposals {
				So(p.FairnessDelta, ShouldBeLessThanOrEqualTo, proposal.DefaultFairnessBand)
				So(p.FairnessDelta, ShouldAlmostEqual, proposal.FairnessDelta(p.GiveValue, p.GetValue), 1e-12)
			}
		})

		Convey("Then the ranking is ordered by delta, benefit, size and key", func() {
			for i := 1; i < len(res.Proposals); i++ {
				a, b := res.Proposals[i-1], res.Proposals[i]
				So(a.FairnessDelta, ShouldBeLessThanOrEqualTo, b.FairnessDelta)
				if a.FairnessDelta == b.FairnessDelta {
					So(a.MutualBenefit, ShouldBeGreaterThanOrEqualTo, b.MutualBenefit)
				}
			}
		})

		Convey("When the search is repeated", func() {
			again, err2 := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then the proposals are returned in the same order", func() {
				So(err2, ShouldBeNil)
				So(len(again.Proposals), ShouldEqual, len(res.Proposals))
				for i := range res.Proposals {
					So(again.Proposals[i].Key(), ShouldEqual, res.Proposals[i].Key())
				}
			})
		})
	})
}

func TestSearchBudget(t *testing.T) {
	Convey("Given realistic rosters", t, func() {
		mine := bigSide("me", "m", model.TimelineContend, 20)
		opp := bigSide("them", "o", model.TimelineRebuild, 20)

		Convey("When the evaluation budget is tiny", func() {
			g := proposal.New(proposal.WithMaxEvaluations(10))
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then partial results are returned as truncated", func() {
				So(err, ShouldBeNil)
				So(res.Stats.Truncated, ShouldBeTrue)
				So(res.Stats.Reason, ShouldEqual, proposal.ReasonBudget)
				So(res.Stats.Evaluated, ShouldEqual, 10)
			})
		})

		Convey("When the candidate cap is reached", func() {
			g := proposal.New(proposal.WithMaxCandidates(3))
			res, err := g.Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then the search stops with three proposals", func() {
				So(err, ShouldBeNil)
				So(res.Stats.Reason, ShouldEqual, proposal.ReasonCandidates)
				So(len(res.Proposals), ShouldEqual, 3)
			})
		})

		Convey("When the context is already canceled", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			res, err := proposal.New().Generate(ctx, mine, opp, model.ObjectiveBalanced)

			Convey("Then the search reports cancellation, not an error", func() {
				So(err, ShouldBeNil)
				So(res.Stats.Truncated, ShouldBeTrue)
				So(res.Stats.Reason, ShouldEqual, proposal.ReasonCanceled)
				So(res.Proposals, ShouldBeEmpty)
			})
		})
	})
}

func TestSideValidation(t *testing.T) {
	Convey("Given sides that share an asset", t, func() {
		mine := side("me", model.TimelineRetool, flat("shared", 50))
		opp := side("them", model.TimelineRetool, flat("shared", 50))

		Convey("When searching", func() {
			_, err := proposal.New().Generate(context.Background(), mine, opp, model.ObjectiveBalanced)

			Convey("Then the overlap is rejected", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func TestMatchmaking(t *testing.T) {
	Convey("Given three opponents", t, func() {
		gen := proposal.New()
		mm := proposal.NewMatchmaker(gen, proposal.WithConcurrency(2))
		mine := bigSide("me", "m", model.TimelineContend, 12)
		opponents := []proposal.Side{
			side("empty", model.TimelineRebuild, flat("e1", 1000)),
			bigSide("rebuilder", "r", model.TimelineRebuild, 12),
			bigSide("contender", "c", model.TimelineContend, 12),
		}

		Convey("When ranking", func() {
			ranked, err := mm.Rank(context.Background(), mine, opponents, model.ObjectiveBalanced)

			Convey("Then opponents with proposals come first", func() {
				So(err, ShouldBeNil)
				So(len(ranked), ShouldEqual, 3)
				So(ranked[2].TeamID, ShouldEqual, "empty")
				So(ranked[2].ProposalCount, ShouldEqual, 0)
				So(ranked[0].ProposalCount, ShouldBeGreaterThan, 0)
			})

			Convey("Then the complementary timeline ranks above the mirror", func() {
				So(ranked[0].TeamID, ShouldEqual, "rebuilder")
				So(ranked[0].Score, ShouldBeGreaterThan, ranked[1].Score)
			})

			Convey("Then the ranking is deterministic", func() {
				again, err2 := mm.Rank(context.Background(), mine, opponents, model.ObjectiveBalanced)
				So(err2, ShouldBeNil)
				for i := range ranked {
					So(again[i].TeamID, ShouldEqual, ranked[i].TeamID)
					So(again[i].Score, ShouldEqual, ranked[i].Score)
				}
			})
		})
	})
}
