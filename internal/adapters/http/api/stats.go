package api

import (
	"maps"
	"net/http"
	"time"
)

// StatsProvider reports engine and pipeline counters.
type StatsProvider interface {
	GetStats() map[string]any
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
	since    time.Time
}

func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider, since: time.Now()}
}

// HandleStats writes the provider snapshot plus the router uptime.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	snapshot := make(map[string]any)
	if h.provider != nil {
		maps.Copy(snapshot, h.provider.GetStats())
	}
	snapshot["uptime_seconds"] = int64(time.Since(h.since).Seconds())
	writeJSON(w, http.StatusOK, snapshot)
}
