package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	model "github.com/okian/wodboard/internal/domain/model"
)

// RegistryDependencies stores teams and events.
type RegistryDependencies interface {
	PutTeam(ctx context.Context, t model.Team) error
	PutEvent(ctx context.Context, e model.Event) error
}

// RegistryHandler handles team and event upserts.
type RegistryHandler struct {
	deps RegistryDependencies
}

// NewRegistryHandler creates a new registry handler.
func NewRegistryHandler(deps RegistryDependencies) *RegistryHandler {
	return &RegistryHandler{deps: deps}
}

type teamRequest struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Box      string `json:"box"`
}

type eventRequest struct {
	Name        string `json:"name"`
	ScoringMode string `json:"scoring_mode"`
	Category    string `json:"category"`
	MaxPoints   int    `json:"max_points"`
	Status      string `json:"status"`
	Order       int    `json:"order"`
	Description string `json:"description"`
}

func (e eventRequest) toModel(id string) (model.Event, error) {
	mode, ok := model.ParseScoringMode(e.ScoringMode)
	switch {
	case !ok:
		return model.Event{}, fmt.Errorf("%w: unknown scoring_mode %q", ErrBadRequest, e.ScoringMode)
	case strings.TrimSpace(e.Category) == "":
		return model.Event{}, fmt.Errorf("%w: missing category", ErrBadRequest)
	case e.MaxPoints <= 0:
		return model.Event{}, fmt.Errorf("%w: max_points must be positive", ErrBadRequest)
	}
	status := model.EventStatus(e.Status)
	if status == "" {
		status = model.StatusNotStarted
	}
	return model.Event{
		ID:          id,
		Name:        e.Name,
		ScoringMode: mode,
		Category:    e.Category,
		MaxPoints:   e.MaxPoints,
		Status:      status,
		Order:       e.Order,
		Description: e.Description,
	}, nil
}

// HandlePutTeam handles PUT /teams/{teamID}.
func (h *RegistryHandler) HandlePutTeam(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "teamID")
	var req teamRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	if strings.TrimSpace(req.Category) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: missing category", ErrBadRequest))
		return
	}
	t := model.Team{ID: id, Name: req.Name, Category: req.Category, Box: req.Box}
	if err := h.deps.PutTeam(r.Context(), t); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// HandlePutEvent handles PUT /events/{eventID}.
func (h *RegistryHandler) HandlePutEvent(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, err)
		return
	}
	ev, err := req.toModel(chi.URLParam(r, "eventID"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := h.deps.PutEvent(r.Context(), ev); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}
