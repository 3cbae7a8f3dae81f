// Package mcp exposes the valuation service as Model Context Protocol tools
// over the streamable HTTP transport.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/domain/recommend"
	"github.com/okian/tradeval/internal/domain/roster"
	"github.com/okian/tradeval/pkg/logger"
	"github.com/okian/tradeval/pkg/metrics"
)

// Tool names.
const (
	ToolScoreAsset      = "score_asset"
	ToolTradeImpact     = "trade_impact"
	ToolRecommendations = "recommendations"
	ToolMatchmaking     = "matchmaking"
	ToolProposals       = "proposals"
	ToolRunCalibration  = "run_calibration"
)

const serverName = "tradeval"

// Service is the subset of the valuation service the tools call.
type Service interface {
	Score(ctx context.Context, asset model.Asset, settings model.LeagueSettings) (model.ScoredAsset, error)
	AnalyzeTradeImpact(ctx context.Context, req service.ImpactRequest) (roster.Impact, error)
	GenerateRecommendations(ctx context.Context, req service.RecommendationRequest) ([]recommend.Recommendation, error)
	ComputeMatchmaking(ctx context.Context, leagueID, teamID, objective string) ([]model.RankedOpponent, error)
	GenerateProposals(ctx context.Context, leagueID, teamID, opponentID, objective string) (proposal.Result, error)
	RunCalibration(ctx context.Context, outcomes []model.Outcome) (model.CalibrationRun, error)
}

// ScoreArgs are the score_asset arguments.
type ScoreArgs struct {
	Asset    model.Asset          `json:"asset" jsonschema:"Player or pick to score (required)"`
	Settings model.LeagueSettings `json:"settings,omitempty" jsonschema:"League settings; zero fields take defaults"`
}

// ImpactArgs are the trade_impact arguments.
type ImpactArgs struct {
	LeagueID string   `json:"league_id" jsonschema:"League id (required)"`
	TeamID   string   `json:"team_id" jsonschema:"Team evaluating the trade (required)"`
	Outgoing []string `json:"outgoing,omitempty" jsonschema:"Asset ids the team gives"`
	Incoming []string `json:"incoming,omitempty" jsonschema:"Asset ids the team receives"`
}

// RecommendationArgs are the recommendations arguments.
type RecommendationArgs struct {
	LeagueID   string `json:"league_id" jsonschema:"League id (required)"`
	TeamID     string `json:"team_id" jsonschema:"Team asking for advice (required)"`
	OpponentID string `json:"opponent_id" jsonschema:"Team whose roster is mined for targets (required)"`
	UseProfile bool   `json:"use_profile,omitempty" jsonschema:"Weight results by the team's timeline and risk tolerance"`
}

// MatchmakingArgs are the matchmaking arguments.
type MatchmakingArgs struct {
	LeagueID  string `json:"league_id" jsonschema:"League id (required)"`
	TeamID    string `json:"team_id" jsonschema:"Team looking for partners (required)"`
	Objective string `json:"objective,omitempty" jsonschema:"balanced|win-now|future-lean (default balanced)"`
}

// ProposalArgs are the proposals arguments.
type ProposalArgs struct {
	LeagueID   string `json:"league_id" jsonschema:"League id (required)"`
	TeamID     string `json:"team_id" jsonschema:"Proposing team (required)"`
	OpponentID string `json:"opponent_id" jsonschema:"Counterparty team (required)"`
	Objective  string `json:"objective,omitempty" jsonschema:"balanced|win-now|future-lean (default balanced)"`
}

// CalibrationArgs are the run_calibration arguments.
type CalibrationArgs struct {
	Outcomes []model.Outcome `json:"outcomes" jsonschema:"Assets paired with realized values (required)"`
}

// Option configures NewServer.
type Option func(*options)

type options struct {
	version string
	logger  logger.Logger
}

// WithVersion sets the implementation version reported to clients.
func WithVersion(v string) Option {
	return func(o *options) {
		if v != "" {
			o.version = v
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// NewServer registers every tool over svc.
func NewServer(svc Service, opts ...Option) *mcp.Server {
	o := options{version: "dev"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logger.Get().Named("mcp")
	}
	server := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: o.version}, nil)
	t := &tools{svc: svc, logger: o.logger}

	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolScoreAsset,
		Description: "Score one player or pick: now, future and composite values under the active configuration.",
	}, t.score)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolTradeImpact,
		Description: "Net value change, timeline fit and roster flags of a hypothetical trade for one team.",
	}, t.impact)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRecommendations,
		Description: "Ranked assets to target on an opponent roster and to sell from the team's own roster.",
	}, t.recommendations)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolMatchmaking,
		Description: "Rank every other team in the league as a trade partner.",
	}, t.matchmaking)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolProposals,
		Description: "Search fair trades between two teams, ranked by fairness then mutual benefit.",
	}, t.proposals)
	mcp.AddTool(server, &mcp.Tool{
		Name:        ToolRunCalibration,
		Description: "Refit scoring weights against realized outcomes and store a candidate configuration.",
	}, t.calibrate)
	return server
}

// Handler serves server over streamable HTTP with JSON responses.
func Handler(server *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, &mcp.StreamableHTTPOptions{JSONResponse: true})
}

type tools struct {
	svc    Service
	logger logger.Logger
}

func (t *tools) score(ctx context.Context, _ *mcp.CallToolRequest, args ScoreArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.Score(ctx, args.Asset, args.Settings)
	return t.result(ctx, ToolScoreAsset, start, out, err)
}

func (t *tools) impact(ctx context.Context, _ *mcp.CallToolRequest, args ImpactArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.AnalyzeTradeImpact(ctx, service.ImpactRequest{
		LeagueID: args.LeagueID,
		TeamID:   args.TeamID,
		Outgoing: assetIDs(args.Outgoing),
		Incoming: assetIDs(args.Incoming),
	})
	return t.result(ctx, ToolTradeImpact, start, out, err)
}

func (t *tools) recommendations(ctx context.Context, _ *mcp.CallToolRequest, args RecommendationArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.GenerateRecommendations(ctx, service.RecommendationRequest{
		LeagueID:   args.LeagueID,
		TeamID:     args.TeamID,
		OpponentID: args.OpponentID,
		UseProfile: args.UseProfile,
	})
	return t.result(ctx, ToolRecommendations, start, map[string]any{"recommendations": out}, err)
}

func (t *tools) matchmaking(ctx context.Context, _ *mcp.CallToolRequest, args MatchmakingArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.ComputeMatchmaking(ctx, args.LeagueID, args.TeamID, args.Objective)
	return t.result(ctx, ToolMatchmaking, start, map[string]any{"team_id": args.TeamID, "opponents": out}, err)
}

func (t *tools) proposals(ctx context.Context, _ *mcp.CallToolRequest, args ProposalArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.GenerateProposals(ctx, args.LeagueID, args.TeamID, args.OpponentID, args.Objective)
	return t.result(ctx, ToolProposals, start, out, err)
}

func (t *tools) calibrate(ctx context.Context, _ *mcp.CallToolRequest, args CalibrationArgs) (*mcp.CallToolResult, any, error) {
	start := time.Now()
	out, err := t.svc.RunCalibration(ctx, args.Outcomes)
	if err != nil && out.ID != "" {
		err = fmt.Errorf("run %s: %w", out.ID, err)
	}
	return t.result(ctx, ToolRunCalibration, start, out, err)
}

// result renders v as indented JSON text, or err as an error result the
// client can read. Tool failures never surface as protocol errors.
func (t *tools) result(ctx context.Context, tool string, start time.Time, v any, err error) (*mcp.CallToolResult, any, error) {
	status := "ok"
	if err != nil {
		status = service.ErrorKind(err)
	}
	metrics.RecordHTTPRequest("mcp:"+tool, http.MethodPost, status)
	metrics.RecordHTTPRequestDuration("mcp:"+tool, http.MethodPost, status, float64(time.Since(start).Milliseconds()))

	if err != nil {
		t.logger.Warn(ctx, "tool call failed",
			logger.String("tool", tool),
			logger.String("kind", status),
			logger.Error(err),
		)
		return toolError(err), nil, nil
	}
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(fmt.Errorf("encode %s result: %w", tool, err)), nil, nil
	}
	t.logger.Debug(ctx, "tool call", logger.String("tool", tool), logger.Duration("took", time.Since(start)))
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(b)}},
	}, nil, nil
}

func toolError(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{
			&mcp.TextContent{Text: fmt.Sprintf("error (%s): %v", service.ErrorKind(err), err)},
		},
	}
}

func assetIDs(in []string) []model.AssetID {
	out := make([]model.AssetID, len(in))
	for i, id := range in {
		out[i] = model.AssetID(id)
	}
	return out
}
