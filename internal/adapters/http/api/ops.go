package api

import (
	"context"
	"net/http"

	"github.com/okian/tradeval/internal/domain/types"
	"github.com/okian/tradeval/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsProvider reports an operational snapshot.
type StatsProvider interface {
	GetStats(ctx context.Context) types.Stats
}

// OpsHandler serves liveness and stats.
type OpsHandler struct {
	scrape http.Handler
	stats  StatsProvider
}

// NewOpsHandler builds the handler over the global metrics registry.
func NewOpsHandler(stats StatsProvider) *OpsHandler {
	return &OpsHandler{
		scrape: promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}),
		stats:  stats,
	}
}

// HandleHealth serves GET /healthz as a Prometheus scrape. A successful
// scrape doubles as the liveness probe.
func (h *OpsHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	h.scrape.ServeHTTP(w, r)
}

// HandleStats serves GET /stats.
func (h *OpsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.stats.GetStats(r.Context()))
}
