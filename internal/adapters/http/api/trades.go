package api

import (
	"net/http"
)

// TradeHandler serves matchmaking and proposal search.
type TradeHandler struct {
	deps Dependencies
}

// NewTradeHandler creates a new trade handler.
func NewTradeHandler(deps Dependencies) *TradeHandler {
	return &TradeHandler{deps: deps}
}

type matchmakingResponse struct {
	TeamID    string `json:"team_id"`
	Objective string `json:"objective,omitempty"`
	Opponents any    `json:"opponents"`
}

// HandleMatchmaking handles GET /matchmaking?league=&team=&objective=.
func (h *TradeHandler) HandleMatchmaking(w http.ResponseWriter, r *http.Request) {
	const op = "api.matchmaking"
	q, err := requireQuery(r, op, "league", "team")
	if err != nil {
		writeError(w, err)
		return
	}
	objective := r.URL.Query().Get("objective")
	ranked, err := h.deps.ComputeMatchmaking(r.Context(), q[0], q[1], objective)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, matchmakingResponse{TeamID: q[1], Objective: objective, Opponents: ranked})
}

// HandleProposals handles GET /proposals?league=&team=&opponent=&objective=.
func (h *TradeHandler) HandleProposals(w http.ResponseWriter, r *http.Request) {
	const op = "api.proposals"
	q, err := requireQuery(r, op, "league", "team", "opponent")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.GenerateProposals(r.Context(), q[0], q[1], q[2], r.URL.Query().Get("objective"))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}
