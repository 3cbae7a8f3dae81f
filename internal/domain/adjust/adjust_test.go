package adjust_test

import (
	"math"
	"testing"

	"github.com/okian/tradeval/internal/domain/adjust"
	"github.com/okian/tradeval/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestAdjust(t *testing.T) {
	Convey("Given an adjuster built from the default configuration", t, func() {
		a := adjust.FromConfig(model.DefaultAppConfig())
		ppr := model.DefaultLeagueSettings()

		Convey("When superflex is toggled for a quarterback", func() {
			sf := ppr
			sf.Superflex = true

			Convey("Then superflex increases the value", func() {
				So(a.Adjust(50, model.PositionQB, sf), ShouldBeGreaterThan, a.Adjust(50, model.PositionQB, ppr))
			})

			Convey("Then other positions are unaffected", func() {
				So(a.Adjust(50, model.PositionWR, sf), ShouldEqual, a.Adjust(50, model.PositionWR, ppr))
			})
		})

		Convey("When a TE premium is set", func() {
			te := ppr
			te.TEPremium = 0.5

			Convey("Then tight ends scale multiplicatively", func() {
				So(a.Adjust(50, model.PositionTE, te), ShouldAlmostEqual, 50*(1+0.5*0.4), 1e-9)
				So(a.Adjust(50, model.PositionRB, te), ShouldEqual, 50)
			})
		})

		Convey("When the scoring format changes", func() {
			half := ppr
			half.ScoringFormat = model.FormatHalf
			std := ppr
			std.ScoringFormat = model.FormatStandard

			Convey("Then the format multiplier applies", func() {
				So(a.Adjust(100, model.PositionWR, half), ShouldAlmostEqual, 95, 1e-9)
				So(a.Adjust(100, model.PositionWR, std), ShouldAlmostEqual, 90, 1e-9)
			})
		})

		Convey("When the format has no multiplier", func() {
			b := adjust.New(adjust.WithFormatMultipliers(map[model.ScoringFormat]float64{model.FormatStandard: 0.8}))

			Convey("Then Standard's multiplier is used", func() {
				So(b.FormatMultiplier(model.FormatPPR), ShouldEqual, 0.8)
			})
		})

		Convey("When the raw value is negative or NaN", func() {
			Convey("Then the result is never negative", func() {
				So(a.Adjust(-10, model.PositionWR, ppr), ShouldEqual, 0)
				So(a.Adjust(math.NaN(), model.PositionWR, ppr), ShouldEqual, 0)
			})
		})

		Convey("When the raw value grows", func() {
			Convey("Then the adjusted value never decreases", func() {
				sf := ppr
				sf.Superflex = true
				sf.TEPremium = 1
				for _, pos := range []model.Position{model.PositionQB, model.PositionTE, model.PositionWR} {
					prev := -1.0
					for raw := 0.0; raw <= 200; raw += 5 {
						v := a.Adjust(raw, pos, sf)
						So(v, ShouldBeGreaterThanOrEqualTo, prev)
						prev = v
					}
				}
			})
		})
	})
}
