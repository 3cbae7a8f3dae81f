// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/proposal"
	"github.com/okian/tradeval/internal/domain/recommend"
	"github.com/okian/tradeval/internal/domain/roster"
	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/pkg/logger"
)

// maxBodyBytes bounds request bodies; league snapshots are the largest.
const maxBodyBytes = 8 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	Score(ctx context.Context, asset model.Asset, settings model.LeagueSettings) (model.ScoredAsset, error)
	AnalyzeTradeImpact(ctx context.Context, req service.ImpactRequest) (roster.Impact, error)
	GenerateRecommendations(ctx context.Context, req service.RecommendationRequest) ([]recommend.Recommendation, error)
	ComputeMatchmaking(ctx context.Context, leagueID, teamID, objective string) ([]model.RankedOpponent, error)
	GenerateProposals(ctx context.Context, leagueID, teamID, opponentID, objective string) (proposal.Result, error)

	RunCalibration(ctx context.Context, outcomes []model.Outcome) (model.CalibrationRun, error)
	GetCalibrationRun(ctx context.Context, id string) (model.CalibrationRun, error)
	ListCalibrationRuns(ctx context.Context, limit int) ([]model.CalibrationRun, error)
	ActiveConfig(ctx context.Context) (model.AppConfig, error)
	CandidateConfig(ctx context.Context) (model.AppConfig, error)

	PutLeague(ctx context.Context, league model.League) error
	Leagues(ctx context.Context) ([]string, error)
	Revalue(ctx context.Context, leagueID string) (service.RevaluationResult, error)
	Chart(ctx context.Context, leagueID string, limit int) ([]types.ChartEntry, error)
	ChartRank(ctx context.Context, leagueID string, id model.AssetID) (types.ChartEntry, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps               Dependencies
	opsHandler         *OpsHandler
	valuationHandler   *ValuationHandler
	tradeHandler       *TradeHandler
	calibrationHandler *CalibrationHandler
	chartHandler       *ChartHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		deps:               deps,
		opsHandler:         NewOpsHandler(statsProvider),
		valuationHandler:   NewValuationHandler(deps),
		tradeHandler:       NewTradeHandler(deps),
		calibrationHandler: NewCalibrationHandler(deps),
		chartHandler:       NewChartHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", instrument("healthz", s.opsHandler.HandleHealth))
	mux.HandleFunc("GET /stats", instrument("stats", s.opsHandler.HandleStats))

	mux.HandleFunc("POST /score", instrument("score", s.valuationHandler.HandleScore))
	mux.HandleFunc("POST /impact", instrument("impact", s.valuationHandler.HandleImpact))
	mux.HandleFunc("POST /recommendations", instrument("recommendations", s.valuationHandler.HandleRecommendations))

	mux.HandleFunc("GET /matchmaking", instrument("matchmaking", s.tradeHandler.HandleMatchmaking))
	mux.HandleFunc("GET /proposals", instrument("proposals", s.tradeHandler.HandleProposals))

	mux.HandleFunc("POST /calibrations", instrument("calibrations", s.calibrationHandler.HandleRun))
	mux.HandleFunc("GET /calibrations", instrument("calibrations", s.calibrationHandler.HandleList))
	mux.HandleFunc("GET /calibrations/{id}", instrument("calibration", s.calibrationHandler.HandleGet))
	mux.HandleFunc("GET /configs/{status}", instrument("configs", s.calibrationHandler.HandleConfig))

	mux.HandleFunc("POST /leagues", instrument("leagues", s.chartHandler.HandlePutLeague))
	mux.HandleFunc("GET /leagues", instrument("leagues", s.chartHandler.HandleLeagues))
	mux.HandleFunc("POST /revaluations", instrument("revaluations", s.chartHandler.HandleRevalue))
	mux.HandleFunc("GET /chart", instrument("chart", s.chartHandler.HandleChart))
	mux.HandleFunc("GET /chart/{asset_id}", instrument("chart_rank", s.chartHandler.HandleRank))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeErrorBody(w, err, errorResponse{})
}

func writeErrorBody(w http.ResponseWriter, err error, body errorResponse) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.Get().Named("api").Error(context.Background(), "request failed",
			logger.String("code", code),
			logger.Error(err),
		)
	}
	body.Code = code
	body.Message = err.Error()
	writeJSON(w, status, body)
}

// decodeJSON reads a bounded JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, op string, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return WrapKind(op, ErrBadRequest, err)
	}
	return nil
}

// requireQuery returns the named query parameters, failing on the first
// missing one.
func requireQuery(r *http.Request, op string, names ...string) ([]string, error) {
	q := r.URL.Query()
	out := make([]string, len(names))
	for i, n := range names {
		v := strings.TrimSpace(q.Get(n))
		if v == "" {
			return nil, WrapKind(op, ErrBadRequest, fmt.Errorf("missing query parameter %q", n))
		}
		out[i] = v
	}
	return out, nil
}

// intQuery parses an optional integer query parameter.
func intQuery(r *http.Request, op, name string, def int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, WrapKind(op, ErrBadRequest, fmt.Errorf("invalid %s %q", name, raw))
	}
	return n, nil
}
