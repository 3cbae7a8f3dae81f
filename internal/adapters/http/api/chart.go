package api

import (
	"net/http"

	"github.com/okian/tradeval/internal/domain/model"
	"github.com/okian/tradeval/internal/domain/types"
)

const defaultChartLimit = 50

// ChartHandler serves the league catalog, revaluations and value charts.
type ChartHandler struct {
	deps Dependencies
}

// NewChartHandler creates a new chart handler.
func NewChartHandler(deps Dependencies) *ChartHandler {
	return &ChartHandler{deps: deps}
}

type leagueAck struct {
	LeagueID string `json:"league_id"`
	Teams    int    `json:"teams"`
	Assets   int    `json:"assets"`
}

// HandlePutLeague handles POST /leagues; the body replaces any snapshot with
// the same id.
func (h *ChartHandler) HandlePutLeague(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_league"
	var league model.League
	if err := decodeJSON(w, r, op, &league); err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.PutLeague(r.Context(), league); err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusCreated, leagueAck{LeagueID: league.ID, Teams: len(league.Teams), Assets: len(league.Assets)})
}

type leaguesResponse struct {
	Leagues []string `json:"leagues"`
}

// HandleLeagues handles GET /leagues.
func (h *ChartHandler) HandleLeagues(w http.ResponseWriter, r *http.Request) {
	ids, err := h.deps.Leagues(r.Context())
	if err != nil {
		writeError(w, Wrap("api.leagues", err))
		return
	}
	writeJSON(w, http.StatusOK, leaguesResponse{Leagues: ids})
}

// HandleRevalue handles POST /revaluations?league=.
func (h *ChartHandler) HandleRevalue(w http.ResponseWriter, r *http.Request) {
	const op = "api.revalue"
	q, err := requireQuery(r, op, "league")
	if err != nil {
		writeError(w, err)
		return
	}
	res, err := h.deps.Revalue(r.Context(), q[0])
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

type chartResponse struct {
	LeagueID string             `json:"league_id"`
	Entries  []types.ChartEntry `json:"entries"`
}

// HandleChart handles GET /chart?league=&limit=.
func (h *ChartHandler) HandleChart(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart"
	q, err := requireQuery(r, op, "league")
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intQuery(r, op, "limit", defaultChartLimit)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.deps.Chart(r.Context(), q[0], limit)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, chartResponse{LeagueID: q[0], Entries: entries})
}

// HandleRank handles GET /chart/{asset_id}?league=.
func (h *ChartHandler) HandleRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.chart_rank"
	q, err := requireQuery(r, op, "league")
	if err != nil {
		writeError(w, err)
		return
	}
	entry, err := h.deps.ChartRank(r.Context(), q[0], model.AssetID(r.PathValue("asset_id")))
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
