package recommend_test

import (
	"testing"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/recommend"
	"github.com/okian/tradeval/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(id string, pos model.Position, age, now, future float64) model.ScoredAsset {
	return model.ScoredAsset{
		Asset:     model.NewPlayer(model.PlayerAsset{ID: model.AssetID(id), Name: id, Position: pos, Age: age}),
		Now:       now,
		Future:    future,
		Composite: 0.5*now + 0.5*future,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given two teams", t, func() {
		g := recommend.New(recommend.WithLimit(20))
		settings := model.DefaultLeagueSettings()

		teamA := []model.ScoredAsset{
			scored("a-qb1", model.PositionQB, 28, 60, 50),
			scored("a-qb2", model.PositionQB, 31, 40, 20),
			scored("a-te1", model.PositionTE, 26, 20, 20),
		}
		teamB := []model.ScoredAsset{
			scored("b-te1", model.PositionTE, 23, 30, 50),
			scored("b-te2", model.PositionTE, 30, 64, 16),
			scored("b-qb1", model.PositionQB, 25, 30, 30),
		}

		Convey("When no profile is given", func() {
			recs := g.Generate(teamA, teamB, settings, nil)

			Convey("Then no timeline fit is labeled", func() {
				for _, r := range recs {
					So(r.TimelineFit, ShouldEqual, roster.Fit(""))
				}
			})

			Convey("Then targets are ranked by marginal value over the current starter", func() {
				So(len(recs), ShouldBeGreaterThanOrEqualTo, 3)
				So(recs[0].AssetID, ShouldEqual, model.AssetID("a-qb2"))
				So(recs[0].Action, ShouldEqual, recommend.ActionSell)
				So(recs[1].AssetID, ShouldEqual, model.AssetID("b-te1"))
				So(recs[1].Marginal, ShouldEqual, 20)
				So(recs[2].AssetID, ShouldEqual, model.AssetID("b-te2"))
			})

			Convey("Then upgrades below the current starter are not targeted", func() {
				for _, r := range recs {
					So(r.AssetID, ShouldNotEqual, model.AssetID("b-qb1"))
				}
			})

			Convey("Then equal fit scores fall back to composite and id", func() {
				// b-te1 and b-te2 have equal marginal 20 and composite 40
				So(recs[1].FitScore, ShouldEqual, recs[2].FitScore)
				So(recs[1].AssetID < recs[2].AssetID, ShouldBeTrue)
			})
		})

		Convey("When superflex doubles the quarterback starters", func() {
			sf := settings
			sf.Superflex = true
			recs := g.Generate(teamA, teamB, sf, nil)

			Convey("Then the backup quarterback is no longer surplus", func() {
				for _, r := range recs {
					So(r.AssetID, ShouldNotEqual, model.AssetID("a-qb2"))
				}
			})
		})

		Convey("When a rebuilding, high-risk profile is given", func() {
			profile := &model.TeamProfile{TeamID: "a", Timeline: model.TimelineRebuild, RiskTolerance: model.RiskHigh}
			recs := g.Generate(teamA, teamB, settings, profile)

			Convey("Then the young future-heavy tight end outranks the veteran", func() {
				idx := map[model.AssetID]int{}
				for i, r := range recs {
					idx[r.AssetID] = i
				}
				So(idx["b-te1"], ShouldBeLessThan, idx["b-te2"])
			})

			Convey("Then each entry carries the analyzer's timeline fit", func() {
				byID := map[model.AssetID]recommend.Recommendation{}
				for _, r := range recs {
					byID[r.AssetID] = r
				}
				So(byID["b-te1"].TimelineFit, ShouldEqual, roster.FitPositive)
				So(byID["b-te2"].TimelineFit, ShouldEqual, roster.FitNegative)
			})
		})

		Convey("When a contending, low-risk profile is given", func() {
			profile := &model.TeamProfile{TeamID: "a", Timeline: model.TimelineContend, RiskTolerance: model.RiskLow}
			recs := g.Generate(teamA, teamB, settings, profile)

			Convey("Then the proven veteran outranks the young tight end", func() {
				idx := map[model.AssetID]int{}
				for i, r := range recs {
					idx[r.AssetID] = i
				}
				So(idx["b-te2"], ShouldBeLessThan, idx["b-te1"])
			})
		})

		Convey("When generated twice", func() {
			profile := &model.TeamProfile{TeamID: "a", Timeline: model.TimelineRetool, RiskTolerance: model.RiskMedium}
			first := g.Generate(teamA, teamB, settings, profile)
			second := g.Generate(teamA, teamB, settings, profile)

			Convey("Then the order is identical", func() {
				So(len(second), ShouldEqual, len(first))
				for i := range first {
					So(second[i].AssetID, ShouldEqual, first[i].AssetID)
				}
			})
		})

		Convey("When the limit is smaller than the candidate set", func() {
			recs := recommend.New(recommend.WithLimit(1)).Generate(teamA, teamB, settings, nil)

			Convey("Then the output is truncated", func() {
				So(len(recs), ShouldEqual, 1)
			})
		})
	})
}
