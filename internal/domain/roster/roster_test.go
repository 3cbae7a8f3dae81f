package roster_test

import (
	"errors"
	"testing"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/roster"
	. "github.com/smartystreets/goconvey/convey"
)

func scored(id string, pos model.Position, now, future float64) model.ScoredAsset {
	return model.ScoredAsset{
		Asset:     model.NewPlayer(model.PlayerAsset{ID: model.AssetID(id), Name: id, Position: pos, Age: 25}),
		Now:       now,
		Future:    future,
		Composite: 0.5*now + 0.5*future,
	}
}

func pick(id string, v float64) model.ScoredAsset {
	return model.ScoredAsset{
		Asset: model.NewPick(model.PickAsset{ID: model.AssetID(id), Year: 2027, Round: 1}),
		Now:   v, Future: v, Composite: v,
	}
}

func TestAnalyzeTradeImpact(t *testing.T) {
	Convey("Given a roster with one player per position and a pick", t, func() {
		a := roster.New()
		qb := scored("qb", model.PositionQB, 60, 40)
		rb := scored("rb", model.PositionRB, 50, 20)
		wr := scored("wr", model.PositionWR, 45, 45)
		te := scored("te", model.PositionTE, 30, 30)
		pk := pick("pk", 35)
		holdings := []model.ScoredAsset{qb, rb, wr, te, pk}
		youngRB := scored("young-rb", model.PositionRB, 20, 60)

		Convey("When a rebuilding team sells near-term value for future value", func() {
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRebuild}
			imp, err := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{rb}, []model.ScoredAsset{youngRB})

			Convey("Then the deltas are net incoming minus outgoing", func() {
				So(err, ShouldBeNil)
				So(imp.DeltaNow, ShouldEqual, -30)
				So(imp.DeltaFuture, ShouldEqual, 40)
				So(imp.DeltaComposite, ShouldEqual, 5)
			})

			Convey("Then the fit is positive", func() {
				So(imp.TimelineFit, ShouldEqual, roster.FitPositive)
				So(imp.FitScore, ShouldBeGreaterThan, 0)
			})
		})

		Convey("When a contending team makes the same trade", func() {
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineContend}
			imp, err := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{rb}, []model.ScoredAsset{youngRB})

			Convey("Then the fit is negative", func() {
				So(err, ShouldBeNil)
				So(imp.TimelineFit, ShouldEqual, roster.FitNegative)
			})
		})

		Convey("When the only tight end leaves", func() {
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRetool}
			imp, err := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{te}, []model.ScoredAsset{scored("wr2", model.PositionWR, 30, 30)})

			Convey("Then a missing position flag is raised", func() {
				So(err, ShouldBeNil)
				So(imp.HasFlag(roster.FlagMissingPosition), ShouldBeTrue)
				So(imp.TimelineFit, ShouldEqual, roster.FitNeutral)
			})
		})

		Convey("When two assets are consolidated into one and the only pick leaves", func() {
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRetool}
			imp, err := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{wr, pk}, []model.ScoredAsset{scored("star", model.PositionWR, 80, 80)})

			Convey("Then consolidation and pick flags are raised", func() {
				So(err, ShouldBeNil)
				So(imp.HasFlag(roster.FlagConsolidation), ShouldBeTrue)
				So(imp.HasFlag(roster.FlagNoPicksLeft), ShouldBeTrue)
				So(imp.HasFlag(roster.FlagMissingPosition), ShouldBeFalse)
			})
		})

		Convey("When a minimum roster size is configured", func() {
			strict := roster.New(roster.WithMinRosterSize(4))
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRetool}
			imp, err := strict.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{wr, rb}, []model.ScoredAsset{scored("x", model.PositionWR, 90, 90)})

			Convey("Then shrinking below it is flagged", func() {
				So(err, ShouldBeNil)
				So(imp.HasFlag(roster.FlagRosterTooSmall), ShouldBeTrue)
			})
		})

		Convey("When an outgoing asset is not on the roster", func() {
			_, err := a.AnalyzeTradeImpact(model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRetool}, holdings, []model.ScoredAsset{youngRB}, nil)

			Convey("Then a ValidationError is returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When an incoming asset is already held", func() {
			_, err := a.AnalyzeTradeImpact(model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRetool}, holdings, []model.ScoredAsset{rb}, []model.ScoredAsset{wr})

			Convey("Then a ValidationError is returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the analysis runs twice", func() {
			profile := model.TeamProfile{TeamID: "t1", Timeline: model.TimelineRebuild}
			first, _ := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{rb}, []model.ScoredAsset{youngRB})
			second, _ := a.AnalyzeTradeImpact(profile, holdings, []model.ScoredAsset{rb}, []model.ScoredAsset{youngRB})

			Convey("Then the result is identical and inputs are untouched", func() {
				So(second, ShouldResemble, first)
				So(len(holdings), ShouldEqual, 5)
			})
		})
	})
}

func TestTilt(t *testing.T) {
	Convey("Given the default analyzer", t, func() {
		a := roster.New()

		Convey("Then contend weighs now more than rebuild", func() {
			So(a.Tilt(model.TimelineContend), ShouldBeGreaterThan, a.Tilt(model.TimelineRebuild))
			So(a.Tilt("unknown"), ShouldEqual, a.Tilt(model.TimelineRetool))
		})

		Convey("When a tilt is overridden", func() {
			b := roster.New(roster.WithTimelineTilt(model.TimelineContend, 1))

			Convey("Then timeline value is pure now-value", func() {
				So(b.TimelineValue(model.TimelineContend, scored("x", model.PositionWR, 70, 10)), ShouldEqual, 70)
			})
		})
	})
}
