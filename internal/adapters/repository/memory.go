package repository

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
)

// MemoryStore is an in-memory Store. BatchWrite validates every op before
// applying any, so a failed batch leaves no partial writes.
type MemoryStore struct {
	mu      sync.RWMutex
	events  map[string]model.Event
	teams   map[string]model.Team
	results map[string]model.Result

	opts storeOptions
	log  logger.Logger

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty store and starts its metrics updater.
// The updater stops when ctx is done or Close is called.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := newStoreOptions(opts)
	s := &MemoryStore{
		events:   make(map[string]model.Event),
		teams:    make(map[string]model.Team),
		results:  make(map[string]model.Result),
		opts:     o,
		log:      o.log,
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// BatchLimit implements Repository.
func (s *MemoryStore) BatchLimit() int { return s.opts.batchLimit }

// GetEvent implements Repository.
func (s *MemoryStore) GetEvent(_ context.Context, id string) (model.Event, bool, error) {
	defer observe("get_event", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.events[id]
	return e, ok, nil
}

// GetTeam implements Repository.
func (s *MemoryStore) GetTeam(_ context.Context, id string) (model.Team, bool, error) {
	defer observe("get_team", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.teams[id]
	return t, ok, nil
}

// GetResult implements Store.
func (s *MemoryStore) GetResult(_ context.Context, id string) (model.Result, bool, error) {
	defer observe("get_result", time.Now())
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.results[id]
	return r, ok, nil
}

// QueryResults implements Repository.
func (s *MemoryStore) QueryResults(_ context.Context, f ResultFilter) ([]model.Result, error) {
	defer observe("query_results", time.Now())
	s.mu.RLock()
	out := make([]model.Result, 0)
	for _, r := range s.results {
		if f.EventID != "" && r.EventID != f.EventID {
			continue
		}
		if f.Category != "" && r.Category != f.Category {
			continue
		}
		if f.TeamID != "" && r.TeamID != f.TeamID {
			continue
		}
		out = append(out, r)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Result) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// QueryTeams implements Repository.
func (s *MemoryStore) QueryTeams(_ context.Context, f TeamFilter) ([]model.Team, error) {
	defer observe("query_teams", time.Now())
	s.mu.RLock()
	out := make([]model.Team, 0)
	for _, t := range s.teams {
		if f.Category != "" && t.Category != f.Category {
			continue
		}
		out = append(out, t)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b model.Team) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// ListEvents implements Store.
func (s *MemoryStore) ListEvents(_ context.Context, category string) ([]model.Event, error) {
	defer observe("list_events", time.Now())
	s.mu.RLock()
	out := make([]model.Event, 0)
	for _, e := range s.events {
		if category != "" && e.Category != category {
			continue
		}
		out = append(out, e)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, compareEvents)
	return out, nil
}

func compareEvents(a, b model.Event) int {
	if a.Order != b.Order {
		return a.Order - b.Order
	}
	return strings.Compare(a.ID, b.ID)
}

// BatchWrite implements Repository.
func (s *MemoryStore) BatchWrite(ctx context.Context, ops []Op) error {
	defer observe("batch_write", time.Now())
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > s.opts.batchLimit {
		return fmt.Errorf("repository.BatchWrite: %d ops, limit %d: %w", len(ops), s.opts.batchLimit, ErrBatchTooLarge)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, op := range ops {
		if err := s.checkLocked(op); err != nil {
			s.log.Warn(ctx, "batch rejected", logger.String("op", op.Kind.String()), logger.String("id", op.ID), logger.Error(err))
			return fmt.Errorf("repository.BatchWrite: %w: %w", ErrBatchFailed, err)
		}
	}
	for _, op := range ops {
		s.applyLocked(op)
	}
	return nil
}

func (s *MemoryStore) checkLocked(op Op) error {
	switch op.Kind {
	case OpSetResultRanking:
		if _, ok := s.results[op.ID]; !ok {
			return fmt.Errorf("result %q: %w", op.ID, ErrNotFound)
		}
	case OpSetTeamTotal, OpSetTeamRank:
		if _, ok := s.teams[op.ID]; !ok {
			return fmt.Errorf("team %q: %w", op.ID, ErrNotFound)
		}
	case OpDeleteResult:
	default:
		return fmt.Errorf("op kind %d: %w", op.Kind, ErrInvalidRecord)
	}
	return nil
}

func (s *MemoryStore) applyLocked(op Op) {
	switch op.Kind {
	case OpSetResultRanking:
		r := s.results[op.ID]
		r.Rank, r.AwardedPoints = op.Rank, op.Points
		s.results[op.ID] = r
	case OpSetTeamTotal:
		t := s.teams[op.ID]
		t.TotalPoints = op.Points
		s.teams[op.ID] = t
	case OpSetTeamRank:
		t := s.teams[op.ID]
		t.CategoryRank = op.Rank
		s.teams[op.ID] = t
	case OpDeleteResult:
		delete(s.results, op.ID)
	}
}

// PutEvent implements Store.
func (s *MemoryStore) PutEvent(_ context.Context, e model.Event) error {
	defer observe("put_event", time.Now())
	if e.ID == "" {
		return fmt.Errorf("repository.PutEvent: empty id: %w", ErrInvalidRecord)
	}
	s.mu.Lock()
	s.events[e.ID] = e
	s.mu.Unlock()
	return nil
}

// PutTeam implements Store.
func (s *MemoryStore) PutTeam(_ context.Context, t model.Team) error {
	defer observe("put_team", time.Now())
	if t.ID == "" {
		return fmt.Errorf("repository.PutTeam: empty id: %w", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.teams[t.ID]; ok {
		t.TotalPoints, t.CategoryRank = prev.TotalPoints, prev.CategoryRank
	}
	s.teams[t.ID] = t
	return nil
}

// PutResult implements Store.
func (s *MemoryStore) PutResult(_ context.Context, r model.Result) error {
	defer observe("put_result", time.Now())
	if r.ID == "" {
		return fmt.Errorf("repository.PutResult: empty id: %w", ErrInvalidRecord)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.results[r.ID]; ok {
		r.Rank, r.AwardedPoints = prev.Rank, prev.AwardedPoints
	}
	s.results[r.ID] = r
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(_ context.Context) (Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{Events: len(s.events), Teams: len(s.teams), Results: len(s.results)}, nil
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.mu.RLock()
				teams := len(s.teams)
				s.mu.RUnlock()
				metrics.UpdateTeamCount(teams)
			}
		}
	}()
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryLatency(op, metrics.Since(start))
}
