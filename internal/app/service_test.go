package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/leaguegen"
	"github.com/okian/tradeval/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// smallLeague is four teams of six players and two picks.
func smallLeague() model.League {
	league, err := leaguegen.New(
		leaguegen.WithSeed(11),
		leaguegen.WithTeams(4),
		leaguegen.WithRosterSize(6),
		leaguegen.WithPicks(2, 1),
	).League()
	if err != nil {
		panic(err)
	}
	return league
}

func startedService(ctx context.Context, opts ...service.Option) *service.Service {
	svc := service.New(append([]service.Option{service.WithWorkerCount(2)}, opts...)...)
	So(svc.Start(ctx), ShouldBeNil)
	return svc
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(
			service.WithWorkerCount(3),
			service.WithQueueSize(100),
			service.WithDedupeSize(50),
		)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		Convey("When it has not been started", func() {
			_, err := svc.Chart(ctx, "lg", 10)

			Convey("Then operations fail with ErrNotStarted", func() {
				So(svc.Started(), ShouldBeFalse)
				So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)
			})

			Convey("And stats report the configured shape only", func() {
				stats := svc.GetStats(ctx)
				So(stats.Workers, ShouldEqual, 3)
				So(stats.QueueCapacity, ShouldEqual, 100)
				So(stats.ActiveVersion, ShouldEqual, 0)
			})
		})

		Convey("When it is started and stopped", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			started := svc.Started()
			stats := svc.GetStats(ctx)
			svc.Stop(ctx)

			Convey("Then it reports each state", func() {
				So(started, ShouldBeTrue)
				So(stats.ActiveVersion, ShouldEqual, 1)
				So(svc.Started(), ShouldBeFalse)
			})
		})
	})
}

func TestService_Score(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(ctx)
		defer svc.Stop(ctx)

		Convey("When a valid player is scored", func() {
			asset := model.NewPlayer(model.PlayerAsset{
				ID: "p1", Name: "Young WR", Position: model.PositionWR, Age: 23,
				MarketValue: 80, Production: 70, Potential: 90,
			})
			scored, err := svc.Score(ctx, asset, model.DefaultLeagueSettings())

			Convey("Then scores are positive and tagged with the active version", func() {
				So(err, ShouldBeNil)
				So(scored.Now, ShouldBeGreaterThan, 0)
				So(scored.Future, ShouldBeGreaterThan, 0)
				So(scored.ConfigVersion, ShouldEqual, 1)
			})
		})

		Convey("When the asset is invalid", func() {
			asset := model.NewPlayer(model.PlayerAsset{ID: "p2", Position: model.PositionRB, Age: -1})
			_, err := svc.Score(ctx, asset, model.DefaultLeagueSettings())

			Convey("Then a validation error is returned", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
				So(service.ErrorKind(err), ShouldEqual, "validation")
			})
		})
	})
}

func TestService_TradeOperations(t *testing.T) {
	Convey("Given a started service holding a league", t, func() {
		ctx := context.Background()
		svc := startedService(ctx)
		defer svc.Stop(ctx)
		league := smallLeague()
		So(svc.PutLeague(ctx, league), ShouldBeNil)
		mine, opp := league.Teams[0], league.Teams[1]

		Convey("When a trade impact is analyzed", func() {
			impact, err := svc.AnalyzeTradeImpact(ctx, service.ImpactRequest{
				LeagueID: league.ID,
				TeamID:   mine.TeamID,
				Outgoing: []model.AssetID{mine.Roster[0]},
				Incoming: []model.AssetID{opp.Roster[0]},
			})

			Convey("Then the fit score is bounded", func() {
				So(err, ShouldBeNil)
				So(impact.FitScore, ShouldBeBetweenOrEqual, 0, 1)
			})
		})

		Convey("When the outgoing asset belongs to someone else", func() {
			_, err := svc.AnalyzeTradeImpact(ctx, service.ImpactRequest{
				LeagueID: league.ID,
				TeamID:   mine.TeamID,
				Outgoing: []model.AssetID{opp.Roster[0]},
			})

			Convey("Then it is rejected as invalid", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When an asset id is unknown", func() {
			_, err := svc.AnalyzeTradeImpact(ctx, service.ImpactRequest{
				LeagueID: league.ID,
				TeamID:   mine.TeamID,
				Incoming: []model.AssetID{"ghost"},
			})

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When recommendations are requested", func() {
			recs, err := svc.GenerateRecommendations(ctx, service.RecommendationRequest{
				LeagueID: league.ID, TeamID: mine.TeamID, OpponentID: opp.TeamID, UseProfile: true,
			})

			Convey("Then the call succeeds", func() {
				So(err, ShouldBeNil)
				So(recs, ShouldNotBeNil)
			})
		})

		Convey("When a team is asked to trade with itself", func() {
			_, err := svc.GenerateRecommendations(ctx, service.RecommendationRequest{
				LeagueID: league.ID, TeamID: mine.TeamID, OpponentID: mine.TeamID,
			})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When matchmaking runs", func() {
			ranked, err := svc.ComputeMatchmaking(ctx, league.ID, mine.TeamID, "")

			Convey("Then every other team is ranked once", func() {
				So(err, ShouldBeNil)
				So(ranked, ShouldHaveLength, len(league.Teams)-1)
				seen := map[string]bool{}
				for _, r := range ranked {
					So(r.TeamID, ShouldNotEqual, mine.TeamID)
					So(seen[r.TeamID], ShouldBeFalse)
					seen[r.TeamID] = true
				}
			})
		})

		Convey("When proposals are searched", func() {
			res, err := svc.GenerateProposals(ctx, league.ID, mine.TeamID, opp.TeamID, "win_now")

			Convey("Then every proposal sits within the fairness band", func() {
				So(err, ShouldBeNil)
				So(res.Stats.Evaluated, ShouldBeGreaterThan, 0)
				for _, p := range res.Proposals {
					So(p.FairnessDelta, ShouldBeLessThanOrEqualTo, 0.1+1e-9)
				}
			})
		})

		Convey("When the objective is unknown", func() {
			_, err := svc.GenerateProposals(ctx, league.ID, mine.TeamID, opp.TeamID, "tank")

			Convey("Then it is a validation error", func() {
				So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the league is unknown", func() {
			_, err := svc.ComputeMatchmaking(ctx, "nope", mine.TeamID, "")

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_ChartLimits(t *testing.T) {
	Convey("Given a started service with a chart limit of 5", t, func() {
		ctx := context.Background()
		svc := startedService(ctx, service.WithMaxChartLimit(5))
		defer svc.Stop(ctx)
		league := smallLeague()
		So(svc.PutLeague(ctx, league), ShouldBeNil)

		Convey("When the limit is out of range", func() {
			_, errLow := svc.Chart(ctx, league.ID, 0)
			_, errHigh := svc.Chart(ctx, league.ID, 6)

			Convey("Then both are validation errors", func() {
				So(errors.Is(errLow, model.ErrValidation), ShouldBeTrue)
				So(errors.Is(errHigh, model.ErrValidation), ShouldBeTrue)
			})
		})

		Convey("When the chart has not been built", func() {
			rows, err := svc.Chart(ctx, league.ID, 5)
			_, rankErr := svc.ChartRank(ctx, league.ID, league.Teams[0].Roster[0])

			Convey("Then it is empty and ranks are not found", func() {
				So(err, ShouldBeNil)
				So(rows, ShouldBeEmpty)
				So(errors.Is(rankErr, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestService_Calibration(t *testing.T) {
	Convey("Given a started service", t, func() {
		ctx := context.Background()
		svc := startedService(ctx)
		defer svc.Stop(ctx)

		Convey("When too few outcomes are supplied", func() {
			run, err := svc.RunCalibration(ctx, nil)

			Convey("Then the run fails with insufficient data and is recorded", func() {
				So(errors.Is(err, model.ErrInsufficientData), ShouldBeTrue)
				So(run.Status, ShouldEqual, model.RunFailed)
				got, gerr := svc.GetCalibrationRun(ctx, run.ID)
				So(gerr, ShouldBeNil)
				So(got.Status, ShouldEqual, model.RunFailed)
			})

			Convey("And no candidate is stored", func() {
				_, cerr := svc.CandidateConfig(ctx)
				So(errors.Is(cerr, model.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a run id is unknown", func() {
			_, err := svc.GetCalibrationRun(ctx, "missing")

			Convey("Then it is not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})
}
