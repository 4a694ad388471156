// Package api exposes score entry, admin and leaderboard endpoints over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/wodboard/internal/adapters/mq/queue"
	"github.com/okian/wodboard/internal/adapters/repository"
	"github.com/okian/wodboard/internal/engine"
	"github.com/okian/wodboard/pkg/logger"
	"golang.org/x/time/rate"
)

const (
	defaultAdminRate  = 2
	defaultAdminBurst = 4
	maxBodyBytes      = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	RegistryDependencies
	ScoreEntryDependencies
	AdminDependencies
	LeaderboardDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	registryHandler    *RegistryHandler
	resultsHandler     *ResultsHandler
	adminHandler       *AdminHandler
	leaderboardHandler *LeaderboardHandler

	adminLimiter *rate.Limiter
	log          logger.Logger
}

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAdminRateLimit bounds admin bulk requests to perSec with burst.
func WithAdminRateLimit(perSec float64, burst int) Option {
	return func(s *Server) {
		if perSec > 0 && burst > 0 {
			s.adminLimiter = rate.NewLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithLogger sets the server logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		registryHandler:    NewRegistryHandler(deps),
		resultsHandler:     NewResultsHandler(deps),
		adminHandler:       NewAdminHandler(deps),
		leaderboardHandler: NewLeaderboardHandler(deps),
		adminLimiter:       rate.NewLimiter(defaultAdminRate, defaultAdminBurst),
		log:                logger.Get().Named("api"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the router with every route attached.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Put("/teams/{teamID}", s.registryHandler.HandlePutTeam)
	r.Put("/events/{eventID}", s.registryHandler.HandlePutEvent)

	r.Post("/results", s.resultsHandler.HandlePostResult)
	r.Delete("/results/{resultID}", s.resultsHandler.HandleDeleteResult)
	r.Post("/mutations", s.resultsHandler.HandlePostMutation)

	r.Get("/categories/{category}/standings", s.leaderboardHandler.HandleGetStandings)
	r.Get("/categories/{category}/standings.xlsx", s.leaderboardHandler.HandleExportStandings)
	r.Get("/events/{eventID}/results", s.leaderboardHandler.HandleGetEventResults)

	r.Route("/admin", func(r chi.Router) {
		r.Use(RateLimitMiddleware(s.adminLimiter))
		r.Delete("/events/{eventID}/results", s.adminHandler.HandleDeleteEventResults)
		r.Post("/categories/{category}/recalculate", s.adminHandler.HandleRecalculateCategory)
	})
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps upstream errors onto status codes.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, engine.ErrInvalidArgument), errors.Is(err, repository.ErrInvalidRecord):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, engine.ErrEventNotFound), errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, queue.ErrFull), errors.Is(err, ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", err)
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
