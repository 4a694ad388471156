// Package service wires the store, the scoring engine, the mutation queue and
// its worker pool into the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/okian/wodboard/internal/adapters/export"
	"github.com/okian/wodboard/internal/adapters/mq/natsub"
	eventqueue "github.com/okian/wodboard/internal/adapters/mq/queue"
	workerpool "github.com/okian/wodboard/internal/adapters/mq/worker"
	"github.com/okian/wodboard/internal/adapters/repository"
	"github.com/okian/wodboard/internal/domain/dedupe"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/okian/wodboard/internal/engine"
	"github.com/okian/wodboard/internal/seed"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
)

const (
	defaultQueueSize  = 10_000
	defaultDedupeSize = 100_000
)

// Service implements the API dependencies for the scoring system.
type Service struct {
	mu sync.RWMutex

	store      repository.Store
	engine     *engine.Engine
	engineOpts []engine.Option
	deduper    dedupe.Deduper
	queue      *eventqueue.InMemoryQueue
	pool       *workerpool.Pool
	nc         *nats.Conn
	subscriber *natsub.Subscriber

	workerCount int
	queueSize   int
	dedupeSize  int
	natsURL     string
	natsSubject string
	natsGroup   string

	started bool
	logger  logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU(),
		queueSize:   defaultQueueSize,
		dedupeSize:  defaultDedupeSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start builds the engine and starts the worker pool and, when configured,
// the NATS subscriber.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore(ctx)
		s.logger.Info(ctx, "using in-memory store")
	}

	s.engine = engine.New(s.store, s.engineOpts...)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, workerpool.WithDeduper(s.deduper))
	s.pool.Start(ctx)

	if s.natsURL != "" {
		nc, err := natsub.Dial(s.natsURL)
		if err != nil {
			s.stopLocked(ctx)
			return fmt.Errorf("service.Start: %w", err)
		}
		sub := natsub.New(s.queue, natsub.WithSubject(s.natsSubject), natsub.WithQueueGroup(s.natsGroup))
		if err := sub.Subscribe(ctx, nc); err != nil {
			nc.Close()
			s.stopLocked(ctx)
			return fmt.Errorf("service.Start: %w", err)
		}
		s.nc, s.subscriber = nc, sub
	}

	s.started = true
	s.logger.Info(ctx, "scoring service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
		logger.Bool("nats", s.nc != nil),
	)
	return nil
}

// Stop drains pending mutations and releases the store.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.started {
		return
	}
	s.stopLocked(ctx)
	s.started = false
	s.logger.Info(ctx, "scoring service stopped")
}

func (s *Service) stopLocked(ctx context.Context) {
	if s.subscriber != nil {
		if err := s.subscriber.Close(); err != nil {
			s.logger.Warn(ctx, "drain subscription", logger.Error(err))
		}
		s.subscriber = nil
	}
	if s.nc != nil {
		s.nc.Close()
		s.nc = nil
	}
	if s.pool != nil {
		if err := s.pool.Shutdown(ctx); err != nil {
			s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.Warn(ctx, "close store", logger.Error(err))
		}
	}
}

func (s *Service) running() (*engine.Engine, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.engine, nil
}

func (s *Service) enqueue(ctx context.Context, m model.Mutation) error {
	if err := s.queue.Enqueue(ctx, m); err != nil {
		s.logger.Warn(ctx, "mutation not queued",
			logger.String("delivery_id", m.DeliveryID),
			logger.String("kind", string(m.Kind())),
			logger.Error(err),
		)
		return fmt.Errorf("service: enqueue: %w", err)
	}
	return nil
}

// PutTeam creates or updates a team.
func (s *Service) PutTeam(ctx context.Context, t model.Team) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.store.PutTeam(ctx, t)
}

// PutEvent creates or updates an event.
func (s *Service) PutEvent(ctx context.Context, e model.Event) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.store.PutEvent(ctx, e)
}

// SubmitResult upserts the result of a team in an event, keyed by the pair,
// and enqueues the write's mutation. The result takes the team's category.
func (s *Service) SubmitResult(ctx context.Context, in types.ResultInput) (model.Result, error) {
	if _, err := s.running(); err != nil {
		return model.Result{}, err
	}

	team, ok, err := s.store.GetTeam(ctx, in.TeamID)
	if err != nil {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %w", err)
	}
	if !ok {
		return model.Result{}, fmt.Errorf("service.SubmitResult: team %q: %w", in.TeamID, repository.ErrNotFound)
	}
	if _, ok, err := s.store.GetEvent(ctx, in.EventID); err != nil {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %w", err)
	} else if !ok {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %s: %w", in.EventID, engine.ErrEventNotFound)
	}

	existing, err := s.store.QueryResults(ctx, repository.ResultFilter{EventID: in.EventID, TeamID: in.TeamID})
	if err != nil {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %w", err)
	}

	var before *model.Result
	r := model.Result{ID: uuid.NewString()}
	if len(existing) > 0 {
		prev := existing[0]
		before = &prev
		r = prev
	}
	r.TeamID = in.TeamID
	r.EventID = in.EventID
	r.Category = team.Category
	r.RawScore = in.RawScore
	r.TimeCapReached = in.TimeCapReached
	r.RepsRemaining = in.RepsRemaining

	if err := s.store.PutResult(ctx, r); err != nil {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %w", err)
	}
	after, _, err := s.store.GetResult(ctx, r.ID)
	if err != nil {
		return model.Result{}, fmt.Errorf("service.SubmitResult: %w", err)
	}

	if err := s.enqueue(ctx, model.Mutation{DeliveryID: uuid.NewString(), Before: before, After: &after}); err != nil {
		return after, err
	}
	return after, nil
}

// DeleteResult removes a result and enqueues the delete mutation.
func (s *Service) DeleteResult(ctx context.Context, resultID string) error {
	if _, err := s.running(); err != nil {
		return err
	}
	before, ok, err := s.store.GetResult(ctx, resultID)
	if err != nil {
		return fmt.Errorf("service.DeleteResult: %w", err)
	}
	if !ok {
		return fmt.Errorf("service.DeleteResult: result %q: %w", resultID, repository.ErrNotFound)
	}
	if err := s.store.BatchWrite(ctx, []repository.Op{repository.DeleteResult(resultID)}); err != nil {
		return fmt.Errorf("service.DeleteResult: %w", err)
	}
	return s.enqueue(ctx, model.Mutation{DeliveryID: uuid.NewString(), Before: &before})
}

// SubmitMutation enqueues an externally produced mutation.
func (s *Service) SubmitMutation(ctx context.Context, m model.Mutation) error {
	if _, err := s.running(); err != nil {
		return err
	}
	return s.enqueue(ctx, m)
}

// DeleteAllResultsForEvent runs the bulk delete synchronously.
func (s *Service) DeleteAllResultsForEvent(ctx context.Context, eventID string) (types.Report, error) {
	eng, err := s.running()
	if err != nil {
		return types.Report{}, err
	}
	return eng.DeleteAllResultsForEvent(ctx, eventID)
}

// RecalculateCategory runs the category recalculation synchronously.
func (s *Service) RecalculateCategory(ctx context.Context, category string) (types.Report, error) {
	eng, err := s.running()
	if err != nil {
		return types.Report{}, err
	}
	return eng.RecalculateCategory(ctx, category)
}

// Standings returns the stored leaderboard of a category.
func (s *Service) Standings(ctx context.Context, category string) ([]types.StandingEntry, error) {
	eng, err := s.running()
	if err != nil {
		return nil, err
	}
	return eng.Standings(ctx, category)
}

// EventResults returns the stored leaderboard of an event.
func (s *Service) EventResults(ctx context.Context, eventID string) ([]types.ResultEntry, error) {
	eng, err := s.running()
	if err != nil {
		return nil, err
	}
	return eng.EventResults(ctx, eventID)
}

// ExportStandings writes the category workbook to w.
func (s *Service) ExportStandings(ctx context.Context, category string, w io.Writer) error {
	eng, err := s.running()
	if err != nil {
		return err
	}
	return WriteWorkbook(ctx, s.store, eng, category, w)
}

// Seed loads a seed document and ranks every event it gave results to.
func (s *Service) Seed(ctx context.Context, f seed.File) (seed.Summary, error) {
	eng, err := s.running()
	if err != nil {
		return seed.Summary{}, err
	}
	return ApplySeed(ctx, s.store, eng, f)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
		"nats":        s.nc != nil,
	}
	if !s.started {
		return stats
	}

	queueLen := s.queue.Len()
	stats["queueLength"] = queueLen
	stats["processed"] = s.pool.Processed()
	stats["dedupeEntries"] = s.deduper.Size()
	if counts, err := s.store.Count(context.Background()); err == nil {
		stats["events"] = counts.Events
		stats["teams"] = counts.Teams
		stats["results"] = counts.Results
		metrics.UpdateTeamCount(counts.Teams)
	}
	metrics.UpdateQueueSize(queueLen)
	return stats
}

// WriteWorkbook renders the standings of category with each of its events.
func WriteWorkbook(ctx context.Context, store repository.Store, eng *engine.Engine, category string, w io.Writer) error {
	if strings.TrimSpace(category) == "" {
		return fmt.Errorf("service.WriteWorkbook: category is required: %w", engine.ErrInvalidArgument)
	}
	board, err := eng.Standings(ctx, category)
	if err != nil {
		return err
	}
	events, err := store.ListEvents(ctx, category)
	if err != nil {
		return fmt.Errorf("service.WriteWorkbook: %w", err)
	}
	results := make(map[string][]types.ResultEntry, len(events))
	for _, ev := range events {
		rows, err := eng.EventResults(ctx, ev.ID)
		if err != nil {
			return err
		}
		results[ev.ID] = rows
	}
	return export.WriteStandings(w, export.Workbook{
		Category:  category,
		Standings: board,
		Events:    events,
		Results:   results,
	})
}

// ApplySeed writes f to store, then ranks every event that received results.
func ApplySeed(ctx context.Context, store repository.Store, eng *engine.Engine, f seed.File) (seed.Summary, error) {
	sum, err := seed.Apply(ctx, store, f)
	if err != nil {
		return sum, err
	}
	for _, id := range sum.EventIDs {
		if err := eng.RankEvent(ctx, id); err != nil {
			return sum, fmt.Errorf("service.ApplySeed: rank %s: %w", id, err)
		}
	}
	return sum, nil
}
