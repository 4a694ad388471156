package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/wodboard/internal/domain/types"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// LeaderboardDependencies defines the read operations.
type LeaderboardDependencies interface {
	Standings(ctx context.Context, category string) ([]types.StandingEntry, error)
	EventResults(ctx context.Context, eventID string) ([]types.ResultEntry, error)
	ExportStandings(ctx context.Context, category string, w io.Writer) error
}

// LeaderboardHandler handles leaderboard requests.
type LeaderboardHandler struct {
	deps LeaderboardDependencies
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps LeaderboardDependencies) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps}
}

// HandleGetStandings handles GET /categories/{category}/standings.
func (h *LeaderboardHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Standings(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleGetEventResults handles GET /events/{eventID}/results.
func (h *LeaderboardHandler) HandleGetEventResults(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.EventResults(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleExportStandings handles GET /categories/{category}/standings.xlsx.
func (h *LeaderboardHandler) HandleExportStandings(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	var buf bytes.Buffer
	if err := h.deps.ExportStandings(r.Context(), category, &buf); err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", category+"-standings.xlsx"))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
