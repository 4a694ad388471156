package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
)

// ScoreEntryDependencies accepts result writes and raw mutations.
type ScoreEntryDependencies interface {
	// SubmitResult upserts the result of a team in an event and enqueues
	// its mutation.
	SubmitResult(ctx context.Context, in types.ResultInput) (model.Result, error)
	// DeleteResult removes a result and enqueues its mutation.
	DeleteResult(ctx context.Context, resultID string) error
	// SubmitMutation enqueues an externally produced mutation.
	SubmitMutation(ctx context.Context, m model.Mutation) error
}

// ResultsHandler handles score entry.
type ResultsHandler struct {
	deps ScoreEntryDependencies
}

// NewResultsHandler creates a new results handler.
func NewResultsHandler(deps ScoreEntryDependencies) *ResultsHandler {
	return &ResultsHandler{deps: deps}
}

func validateResult(in types.ResultInput) error {
	switch {
	case strings.TrimSpace(in.EventID) == "":
		return fmt.Errorf("%w: missing event_id", ErrBadRequest)
	case strings.TrimSpace(in.TeamID) == "":
		return fmt.Errorf("%w: missing team_id", ErrBadRequest)
	case in.RepsRemaining < 0:
		return fmt.Errorf("%w: reps_remaining must not be negative", ErrBadRequest)
	}
	return nil
}

// HandlePostResult handles POST /results.
func (h *ResultsHandler) HandlePostResult(w http.ResponseWriter, r *http.Request) {
	var in types.ResultInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, err)
		return
	}
	if err := validateResult(in); err != nil {
		writeFailure(w, err)
		return
	}
	res, err := h.deps.SubmitResult(r.Context(), in)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.Accepted{Status: "accepted", ResultID: res.ID})
}

// HandleDeleteResult handles DELETE /results/{resultID}.
func (h *ResultsHandler) HandleDeleteResult(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "resultID")
	if err := h.deps.DeleteResult(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.Accepted{Status: "accepted", ResultID: id})
}

// HandlePostMutation handles POST /mutations.
func (h *ResultsHandler) HandlePostMutation(w http.ResponseWriter, r *http.Request) {
	var m model.Mutation
	if err := decodeJSON(r, &m); err != nil {
		writeFailure(w, err)
		return
	}
	if m.Kind() == model.MutationNoop {
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: before or after is required", ErrBadRequest))
		return
	}
	if err := h.deps.SubmitMutation(r.Context(), m); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, types.Accepted{Status: "accepted"})
}
