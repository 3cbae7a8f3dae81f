package api

import (
	"net/http"

	service "github.com/okian/tradeval/internal/app"
	"github.com/okian/tradeval/internal/domain/model"
)

// ValuationHandler serves scoring, trade impact and recommendations.
type ValuationHandler struct {
	deps Dependencies
}

// NewValuationHandler creates a new valuation handler.
func NewValuationHandler(deps Dependencies) *ValuationHandler {
	return &ValuationHandler{deps: deps}
}

type scoreRequest struct {
	Asset    model.Asset          `json:"asset"`
	Settings model.LeagueSettings `json:"settings"`
}

// HandleScore handles POST /score requests.
func (h *ValuationHandler) HandleScore(w http.ResponseWriter, r *http.Request) {
	const op = "api.score"
	var req scoreRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	scored, err := h.deps.Score(r.Context(), req.Asset, req.Settings)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, scored)
}

// HandleImpact handles POST /impact requests.
func (h *ValuationHandler) HandleImpact(w http.ResponseWriter, r *http.Request) {
	const op = "api.impact"
	var req service.ImpactRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	impact, err := h.deps.AnalyzeTradeImpact(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, impact)
}

type recommendationsResponse struct {
	Recommendations any `json:"recommendations"`
}

// HandleRecommendations handles POST /recommendations requests.
func (h *ValuationHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	const op = "api.recommendations"
	var req service.RecommendationRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, err)
		return
	}
	recs, err := h.deps.GenerateRecommendations(r.Context(), req)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, recommendationsResponse{Recommendations: recs})
}
