package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/tradeval/internal/adapters/repository"
	"github.com/okian/tradeval/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func sampleLeague() model.League {
	return model.League{
		ID:       "lg-1",
		Settings: model.LeagueSettings{ScoringFormat: model.FormatPPR, LeagueSize: 2},
		Teams: []model.TeamProfile{
			{TeamID: "t1", Timeline: model.TimelineContend, RiskTolerance: model.RiskLow, Roster: []model.AssetID{"p1"}, OwnedPicks: []model.AssetID{"pk1"}},
			{TeamID: "t2", Timeline: model.TimelineRebuild, RiskTolerance: model.RiskHigh, Roster: []model.AssetID{"p2"}},
		},
		Assets: []model.Asset{
			model.NewPlayer(model.PlayerAsset{ID: "p1", Position: model.PositionWR, Age: 26, MarketValue: 60}),
			model.NewPlayer(model.PlayerAsset{ID: "p2", Position: model.PositionRB, Age: 23, MarketValue: 55}),
			model.NewPick(model.PickAsset{ID: "pk1", Year: 2026, Round: 1}),
		},
	}
}

func TestMemoryLeagueStore(t *testing.T) {
	Convey("Given a league store with one league", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryLeagueStore()
		So(store.PutLeague(ctx, sampleLeague()), ShouldBeNil)

		Convey("Then teams carry the league settings", func() {
			lg, err := store.League(ctx, "lg-1")
			So(err, ShouldBeNil)
			So(lg.Teams[0].LeagueSettings.ScoringFormat, ShouldEqual, model.FormatPPR)
			So(lg.Teams[0].LeagueSettings.LeagueSize, ShouldEqual, 2)
		})

		Convey("Then catalog assets resolve by id", func() {
			a, err := store.Asset(ctx, "lg-1", "pk1")
			So(err, ShouldBeNil)
			So(a.Kind, ShouldEqual, model.KindPick)
		})

		Convey("Then unknown ids are not found", func() {
			_, err := store.League(ctx, "lg-9")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = store.Asset(ctx, "lg-1", "p9")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = store.Asset(ctx, "lg-9", "p1")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			So(store.LeagueIDs(ctx), ShouldResemble, []string{"lg-1"})
		})

		Convey("When a league double-books an asset", func() {
			bad := sampleLeague()
			bad.ID = "lg-2"
			bad.Teams[1].Roster = []model.AssetID{"p1"}

			Convey("Then it is rejected", func() {
				err := store.PutLeague(ctx, bad)
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When a team holds an asset missing from the catalog", func() {
			bad := sampleLeague()
			bad.Teams[0].Roster = append(bad.Teams[0].Roster, "ghost")

			Convey("Then it is rejected", func() {
				So(errors.Is(store.PutLeague(ctx, bad), model.ErrValidation), ShouldBeTrue)
			})
		})
	})
}

func runningRun(id string, at time.Time) model.CalibrationRun {
	run := model.NewCalibrationRun(id, 1)
	_ = run.Start(at)
	return run
}

func TestMemoryRunStore(t *testing.T) {
	Convey("Given a run store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryRunStore()
		t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		Convey("When a run begins", func() {
			first := runningRun("r1", t0)
			So(store.Begin(ctx, first), ShouldBeNil)

			Convey("Then a second begin conflicts with the running id", func() {
				err := store.Begin(ctx, runningRun("r2", t0.Add(time.Minute)))
				var conflict *model.ConflictError
				So(errors.As(err, &conflict), ShouldBeTrue)
				So(conflict.RunID, ShouldEqual, "r1")
			})

			Convey("And it finishes", func() {
				So(first.Fail(t0.Add(time.Second), "boom"), ShouldBeNil)
				So(store.Finish(ctx, first), ShouldBeNil)

				Convey("Then a new run may begin and history is newest first", func() {
					So(store.Begin(ctx, runningRun("r2", t0.Add(time.Minute))), ShouldBeNil)
					runs, err := store.List(ctx, 10)
					So(err, ShouldBeNil)
					So(len(runs), ShouldEqual, 2)
					So(runs[0].ID, ShouldEqual, "r2")

					got, err := store.Get(ctx, "r1")
					So(err, ShouldBeNil)
					So(got.Status, ShouldEqual, model.RunFailed)
				})
			})
		})

		Convey("When finishing a non-terminal run", func() {
			Convey("Then the record is rejected", func() {
				err := store.Finish(ctx, runningRun("r3", t0))
				So(errors.Is(err, repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})

		Convey("When a run is missing", func() {
			_, err := store.Get(ctx, "nope")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryConfigStore(t *testing.T) {
	Convey("Given a config store seeded with the default config", t, func() {
		ctx := context.Background()
		store, err := repository.NewMemoryConfigStore(model.DefaultAppConfig())
		So(err, ShouldBeNil)

		Convey("Then there is no candidate yet", func() {
			_, err := store.Candidate(ctx)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("When a candidate is saved", func() {
			active, err := store.Active(ctx)
			So(err, ShouldBeNil)
			cand := active.Clone()
			cand.Version = active.Version + 1
			cand.Status = model.ConfigCandidate
			So(store.SaveCandidate(ctx, cand), ShouldBeNil)

			Convey("Then it is returned as a copy", func() {
				got, err := store.Candidate(ctx)
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, cand.Version)
				got.Weights.Alpha = -1
				again, _ := store.Candidate(ctx)
				So(again.Weights.Alpha, ShouldNotEqual, -1)
			})
		})

		Convey("When a stale candidate is saved", func() {
			active, _ := store.Active(ctx)
			cand := active.Clone()
			cand.Status = model.ConfigCandidate

			Convey("Then it is rejected", func() {
				So(errors.Is(store.SaveCandidate(ctx, cand), repository.ErrInvalidRecord), ShouldBeTrue)
			})
		})
	})
}
