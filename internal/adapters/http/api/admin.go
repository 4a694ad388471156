package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/okian/wodboard/internal/domain/types"
)

// AdminDependencies runs the bulk operations.
type AdminDependencies interface {
	DeleteAllResultsForEvent(ctx context.Context, eventID string) (types.Report, error)
	RecalculateCategory(ctx context.Context, category string) (types.Report, error)
}

// AdminHandler handles bulk admin requests.
type AdminHandler struct {
	deps AdminDependencies
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies) *AdminHandler {
	return &AdminHandler{deps: deps}
}

// HandleDeleteEventResults handles DELETE /admin/events/{eventID}/results.
func (h *AdminHandler) HandleDeleteEventResults(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.DeleteAllResultsForEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleRecalculateCategory handles POST /admin/categories/{category}/recalculate.
func (h *AdminHandler) HandleRecalculateCategory(w http.ResponseWriter, r *http.Request) {
	report, err := h.deps.RecalculateCategory(r.Context(), chi.URLParam(r, "category"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
