package mcp_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	tradevalmcp "github.com/okian/tradeval/internal/adapters/mcp"
	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/leaguegen"
	"github.com/okian/tradeval/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// connect serves svc over in-memory transports and returns a client session.
func connect(ctx context.Context, svc tradevalmcp.Service) *mcp.ClientSession {
	server := tradevalmcp.NewServer(svc, tradevalmcp.WithVersion("test"))
	serverT, clientT := mcp.NewInMemoryTransports()
	go func() { _ = server.Run(ctx, serverT) }()

	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientT, nil)
	So(err, ShouldBeNil)
	return session
}

// asArgs round-trips v through JSON so every field reaches the tool.
func asArgs(v any) map[string]any {
	b, err := json.Marshal(v)
	So(err, ShouldBeNil)
	var out map[string]any
	So(json.Unmarshal(b, &out), ShouldBeNil)
	return out
}

func text(res *mcp.CallToolResult) string {
	So(res.Content, ShouldNotBeEmpty)
	tc, ok := res.Content[0].(*mcp.TextContent)
	So(ok, ShouldBeTrue)
	return tc.Text
}

func TestToolsListed(t *testing.T) {
	Convey("Given a connected client", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		session := connect(ctx, service.New())
		defer session.Close()

		Convey("When tools are listed", func() {
			res, err := session.ListTools(ctx, nil)
			So(err, ShouldBeNil)
			names := make([]string, 0, len(res.Tools))
			for _, tool := range res.Tools {
				names = append(names, tool.Name)
			}

			Convey("Then every valuation tool is advertised", func() {
				So(names, ShouldContain, tradevalmcp.ToolScoreAsset)
				So(names, ShouldContain, tradevalmcp.ToolTradeImpact)
				So(names, ShouldContain, tradevalmcp.ToolRecommendations)
				So(names, ShouldContain, tradevalmcp.ToolMatchmaking)
				So(names, ShouldContain, tradevalmcp.ToolProposals)
				So(names, ShouldContain, tradevalmcp.ToolRunCalibration)
			})
		})
	})
}

func TestToolCalls(t *testing.T) {
	Convey("Given tools over a running service with one league", t, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		svc := service.New(service.WithWorkerCount(1))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop(ctx)

		league, err := leaguegen.New(
			leaguegen.WithSeed(3),
			leaguegen.WithTeams(3),
			leaguegen.WithRosterSize(5),
			leaguegen.WithPicks(1, 1),
		).League()
		So(err, ShouldBeNil)
		So(svc.PutLeague(ctx, league), ShouldBeNil)

		session := connect(ctx, svc)
		defer session.Close()
		team, opp := league.Teams[0].TeamID, league.Teams[1].TeamID

		Convey("When an asset is scored", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      tradevalmcp.ToolScoreAsset,
				Arguments: asArgs(tradevalmcp.ScoreArgs{Asset: league.Assets[0], Settings: league.Settings}),
			})
			So(err, ShouldBeNil)

			Convey("Then the scored asset is returned as JSON", func() {
				So(res.IsError, ShouldBeFalse)
				var scored model.ScoredAsset
				So(json.Unmarshal([]byte(text(res)), &scored), ShouldBeNil)
				So(scored.ID(), ShouldEqual, league.Assets[0].ID())
				So(scored.ConfigVersion, ShouldEqual, 1)
			})
		})

		Convey("When matchmaking runs", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      tradevalmcp.ToolMatchmaking,
				Arguments: map[string]any{"league_id": league.ID, "team_id": team},
			})
			So(err, ShouldBeNil)

			Convey("Then every other team is ranked", func() {
				So(res.IsError, ShouldBeFalse)
				var out struct {
					Opponents []model.RankedOpponent `json:"opponents"`
				}
				So(json.Unmarshal([]byte(text(res)), &out), ShouldBeNil)
				So(out.Opponents, ShouldHaveLength, 2)
			})
		})

		Convey("When proposals are searched", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name: tradevalmcp.ToolProposals,
				Arguments: map[string]any{
					"league_id":   league.ID,
					"team_id":     team,
					"opponent_id": opp,
					"objective":   "balanced",
				},
			})
			So(err, ShouldBeNil)

			Convey("Then the result is not an error", func() {
				So(res.IsError, ShouldBeFalse)
				So(text(res), ShouldContainSubstring, "stats")
			})
		})

		Convey("When a trade targets an unknown league", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      tradevalmcp.ToolTradeImpact,
				Arguments: map[string]any{"league_id": "missing", "team_id": team},
			})

			Convey("Then the failure is a tool error, not a protocol error", func() {
				So(err, ShouldBeNil)
				So(res.IsError, ShouldBeTrue)
				So(strings.HasPrefix(text(res), "error (not_found)"), ShouldBeTrue)
			})
		})

		Convey("When a team is matched with itself", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name: tradevalmcp.ToolRecommendations,
				Arguments: map[string]any{
					"league_id":   league.ID,
					"team_id":     team,
					"opponent_id": team,
				},
			})

			Convey("Then validation fails", func() {
				So(err, ShouldBeNil)
				So(res.IsError, ShouldBeTrue)
				So(text(res), ShouldContainSubstring, "validation")
			})
		})

		Convey("When calibration runs without outcomes", func() {
			res, err := session.CallTool(ctx, &mcp.CallToolParams{
				Name:      tradevalmcp.ToolRunCalibration,
				Arguments: map[string]any{"outcomes": []any{}},
			})

			Convey("Then the failed run is named in the error", func() {
				So(err, ShouldBeNil)
				So(res.IsError, ShouldBeTrue)
				So(text(res), ShouldContainSubstring, "insufficient_data")
				So(text(res), ShouldContainSubstring, "run ")
			})
		})
	})
}
