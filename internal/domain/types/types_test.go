package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/tradeval/internal/domain/model"
	types "github.com/okian/tradeval/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestChartEntry(t *testing.T) {
	Convey("Given a scored player", t, func() {
		scored := model.ScoredAsset{
			Asset: model.NewPlayer(model.PlayerAsset{
				ID: "p1", Name: "Ace Runner", Position: "rb", Age: 24,
			}),
			Now: 40, Future: 60, Composite: 50, ConfigVersion: 3,
		}

		Convey("When it becomes a chart row", func() {
			entry := types.NewChartEntry(2, scored)

			Convey("Then the row carries label, position and scores", func() {
				So(entry.Rank, ShouldEqual, 2)
				So(entry.AssetID, ShouldEqual, model.AssetID("p1"))
				So(entry.Label, ShouldEqual, "Ace Runner")
				So(entry.Position, ShouldEqual, model.PositionRB)
				So(entry.Composite, ShouldEqual, 50)
				So(entry.ConfigVersion, ShouldEqual, 3)
			})
		})
	})

	Convey("Given a scored pick", t, func() {
		scored := model.ScoredAsset{
			Asset:     model.NewPick(model.PickAsset{ID: "2026-1-03", Year: 2026, Round: 1}),
			Composite: 45,
		}

		Convey("When it is encoded", func() {
			raw, err := json.Marshal(types.NewChartEntry(1, scored))
			So(err, ShouldBeNil)

			Convey("Then the position is PICK", func() {
				So(string(raw), ShouldContainSubstring, `"position":"PICK"`)
				So(string(raw), ShouldContainSubstring, `"asset_id":"2026-1-03"`)
			})
		})
	})
}
