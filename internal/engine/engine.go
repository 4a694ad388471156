// Package engine reacts to result mutations by re-ranking events, rebuilding
// team totals and recomputing category standings.
//
// Every invocation recomputes from a fresh read of the repository and holds no
// locks, so concurrent invocations for the same event converge once the last
// one completes.
package engine

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/wodboard/internal/adapters/repository"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/scoring"
	"github.com/okian/wodboard/internal/domain/standings"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Engine is the scoring orchestrator.
type Engine struct {
	repo              repository.Repository
	ranker            *scoring.Ranker
	log               logger.Logger
	tracer            trace.Tracer
	lookupConcurrency int
}

// New creates an Engine over repo.
func New(repo repository.Repository, opts ...Option) *Engine {
	e := &Engine{
		repo:              repo,
		log:               logger.Get().Named("engine"),
		tracer:            otel.Tracer("wodboard/engine"),
		lookupConcurrency: defaultTeamLookupConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.ranker == nil {
		e.ranker = scoring.NewRanker(scoring.WithLogger(e.log))
	}
	return e
}

func (e *Engine) start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := e.tracer.Start(ctx, "engine."+name, trace.WithAttributes(attrs...))
	began := time.Now()
	return ctx, func(errp *error) {
		if errp != nil && *errp != nil {
			span.RecordError(*errp)
			span.SetStatus(codes.Error, (*errp).Error())
		}
		span.End()
		metrics.RecordInvocationLatency(name, metrics.Since(began))
	}
}

// OnResultMutated reacts to one write of a result. before is the stored
// record prior to the write and after the record once written; either may be
// nil. Missing events, teams or categories end the invocation without error.
func (e *Engine) OnResultMutated(ctx context.Context, before, after *model.Result) (err error) {
	kind := model.Mutation{Before: before, After: after}.Kind()
	metrics.RecordMutation(string(kind))

	ctx, end := e.start(ctx, "OnResultMutated", attribute.String("mutation.kind", string(kind)))
	defer end(&err)

	switch kind {
	case model.MutationCreate, model.MutationUpdate:
		if after.EventID == "" {
			e.log.Info(ctx, "result has no event, skipping", logger.String("result_id", after.ID))
			return nil
		}
		if err := e.RankEvent(ctx, after.EventID); err != nil {
			return err
		}
		if before != nil && before.EventID != "" && before.EventID != after.EventID {
			return e.RankEvent(ctx, before.EventID)
		}
		return nil

	case model.MutationDelete:
		return e.onResultDeleted(ctx, before)

	default:
		return nil
	}
}

func (e *Engine) onResultDeleted(ctx context.Context, before *model.Result) error {
	if before.TeamID == "" {
		e.log.Info(ctx, "deleted result has no team, skipping", logger.String("result_id", before.ID))
		return nil
	}
	if _, err := e.RecomputeTeamTotal(ctx, before.TeamID); err != nil {
		return err
	}

	category := before.Category
	if category == "" && before.EventID != "" {
		ev, ok, err := e.repo.GetEvent(ctx, before.EventID)
		if err != nil {
			return fmt.Errorf("engine.OnResultMutated: load event %s: %w", before.EventID, err)
		}
		if ok {
			category = ev.Category
		}
	}
	if category == "" {
		return nil
	}
	return e.RecomputeStandings(ctx, category)
}

// RankEvent re-ranks every result of an event within the event's category,
// persists ranks with the refreshed totals of the teams involved, then
// recomputes the category standings.
func (e *Engine) RankEvent(ctx context.Context, eventID string) error {
	ev, ok, err := e.repo.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("engine.RankEvent: load event %s: %w", eventID, err)
	}
	if !ok || ev.Category == "" {
		e.log.Info(ctx, "event not found or has no category, skipping", logger.String("event_id", eventID))
		return nil
	}
	log := e.log.With(logger.String("event_id", ev.ID), logger.String("category", ev.Category))

	all, err := e.repo.QueryResults(ctx, repository.ResultFilter{EventID: ev.ID, Category: ev.Category})
	if err != nil {
		return fmt.Errorf("engine.RankEvent: load results: %w", err)
	}

	known, err := e.existingTeams(ctx, all)
	if err != nil {
		return err
	}

	candidates := make([]model.Result, 0, len(all))
	var clearOps []repository.Op
	for _, r := range all {
		if _, ok := known[r.TeamID]; !ok {
			log.Warn(ctx, "result references a missing team, filtered", logger.String("result_id", r.ID), logger.String("team_id", r.TeamID))
			continue
		}
		if r.RawScore.IsEmpty() {
			if r.Rank != 0 || r.AwardedPoints != 0 {
				clearOps = append(clearOps, repository.SetResultRanking(r.ID, 0, 0))
			}
			continue
		}
		candidates = append(candidates, r)
	}

	ranked := e.ranker.Rank(ctx, ev, candidates)
	if len(ranked) == 0 && len(clearOps) == 0 {
		log.Info(ctx, "no rankable results")
		return nil
	}

	rankOps := make([]repository.Op, 0, len(ranked)+len(clearOps))
	fresh := make(map[string]int, len(ranked)+len(clearOps))
	for _, r := range ranked {
		rankOps = append(rankOps, repository.SetResultRanking(r.ID, r.Rank, r.AwardedPoints))
		fresh[r.ID] = r.AwardedPoints
	}
	for _, op := range clearOps {
		rankOps = append(rankOps, op)
		fresh[op.ID] = 0
	}

	teamOps, err := e.teamTotalOps(ctx, affectedTeams(ranked, clearOps, all), fresh)
	if err != nil {
		log.Warn(ctx, "team totals unavailable, writing ranks only", logger.Error(err))
		teamOps = nil
	}

	if err := e.writeRanking(ctx, log, rankOps, teamOps); err != nil {
		return err
	}
	metrics.RecordResultsRanked(len(ranked))
	log.Info(ctx, "event ranked", logger.Int("ranked", len(ranked)), logger.Int("teams", len(teamOps)))

	return e.RecomputeStandings(ctx, ev.Category)
}

// writeRanking commits ranks and totals as one atomic batch. When that fails it
// retries with the ranks alone so event results survive a failing team update.
// Neither batch is chunked; an event larger than the store's batch limit fails
// with ErrBatchTooLarge.
func (e *Engine) writeRanking(ctx context.Context, log logger.Logger, rankOps, teamOps []repository.Op) error {
	combined := append(slices.Clone(rankOps), teamOps...)
	err := e.repo.BatchWrite(ctx, combined)
	if err == nil {
		return nil
	}
	metrics.RecordBatchFailure()
	if len(teamOps) == 0 {
		log.Error(ctx, "ranking batch failed", logger.Error(err))
		return fmt.Errorf("engine: write ranks: %w: %w", ErrPersist, err)
	}

	log.Error(ctx, "ranking batch failed, retrying without team totals", logger.Error(err))
	metrics.RecordDegradedRetry()
	if rerr := e.repo.BatchWrite(ctx, rankOps); rerr != nil {
		metrics.RecordBatchFailure()
		log.Error(ctx, "rank-only batch failed", logger.Error(rerr))
		return fmt.Errorf("engine: write ranks: %w: %w", ErrPersist, rerr)
	}
	return nil
}

// write commits ops in one batch, or in BatchLimit-sized chunks when larger.
func (e *Engine) write(ctx context.Context, ops []repository.Op) error {
	limit := e.repo.BatchLimit()
	if limit <= 0 {
		limit = repository.DefaultBatchLimit
	}
	for chunk := range slices.Chunk(ops, limit) {
		if err := e.repo.BatchWrite(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

func affectedTeams(ranked []model.Result, clearOps []repository.Op, all []model.Result) []string {
	seen := make(map[string]struct{})
	var out []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	for _, r := range ranked {
		add(r.TeamID)
	}
	if len(clearOps) > 0 {
		cleared := make(map[string]struct{}, len(clearOps))
		for _, op := range clearOps {
			cleared[op.ID] = struct{}{}
		}
		for _, r := range all {
			if _, ok := cleared[r.ID]; ok {
				add(r.TeamID)
			}
		}
	}
	return out
}

// teamTotalOps sums every result of each team, preferring the points computed
// in this pass over stored ones.
func (e *Engine) teamTotalOps(ctx context.Context, teamIDs []string, fresh map[string]int) ([]repository.Op, error) {
	ops := make([]repository.Op, 0, len(teamIDs))
	for _, id := range teamIDs {
		results, err := e.repo.QueryResults(ctx, repository.ResultFilter{TeamID: id})
		if err != nil {
			return nil, fmt.Errorf("engine: load results of team %s: %w", id, err)
		}
		for i, r := range results {
			if p, ok := fresh[r.ID]; ok {
				results[i].AwardedPoints = p
			}
		}
		ops = append(ops, repository.SetTeamTotal(id, standings.SumPoints(results)))
	}
	return ops, nil
}

// existingTeams looks up the distinct teams of results concurrently.
func (e *Engine) existingTeams(ctx context.Context, results []model.Result) (map[string]model.Team, error) {
	ids := make(map[string]struct{})
	for _, r := range results {
		if r.TeamID != "" {
			ids[r.TeamID] = struct{}{}
		}
	}

	var mu sync.Mutex
	found := make(map[string]model.Team, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.lookupConcurrency)
	for id := range ids {
		g.Go(func() error {
			t, ok, err := e.repo.GetTeam(gctx, id)
			if err != nil {
				return fmt.Errorf("engine: load team %s: %w", id, err)
			}
			if ok {
				mu.Lock()
				found[id] = t
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return found, nil
}

// RecomputeTeamTotal rebuilds a team's total from all of its results and
// returns it. A missing team is skipped.
func (e *Engine) RecomputeTeamTotal(ctx context.Context, teamID string) (int, error) {
	if _, ok, err := e.repo.GetTeam(ctx, teamID); err != nil {
		return 0, fmt.Errorf("engine.RecomputeTeamTotal: load team %s: %w", teamID, err)
	} else if !ok {
		e.log.Info(ctx, "team not found, total not recomputed", logger.String("team_id", teamID))
		return 0, nil
	}

	results, err := e.repo.QueryResults(ctx, repository.ResultFilter{TeamID: teamID})
	if err != nil {
		return 0, fmt.Errorf("engine.RecomputeTeamTotal: load results: %w", err)
	}
	total := standings.SumPoints(results)
	if err := e.repo.BatchWrite(ctx, []repository.Op{repository.SetTeamTotal(teamID, total)}); err != nil {
		metrics.RecordBatchFailure()
		return 0, fmt.Errorf("engine.RecomputeTeamTotal: %w: %w", ErrPersist, err)
	}
	return total, nil
}

// RecomputeStandings re-resolves category ranks and writes the ones that
// changed.
func (e *Engine) RecomputeStandings(ctx context.Context, category string) error {
	teams, err := e.repo.QueryTeams(ctx, repository.TeamFilter{Category: category})
	if err != nil {
		return fmt.Errorf("engine.RecomputeStandings: load teams: %w", err)
	}
	results, err := e.repo.QueryResults(ctx, repository.ResultFilter{Category: category})
	if err != nil {
		return fmt.Errorf("engine.RecomputeStandings: load results: %w", err)
	}

	resolved := standings.Resolve(teams, standings.GroupRanks(results))
	ops := make([]repository.Op, 0, len(resolved))
	for _, s := range resolved {
		if s.Team.CategoryRank != rankOf(teams, s.Team.ID) {
			ops = append(ops, repository.SetTeamRank(s.Team.ID, s.Team.CategoryRank))
		}
	}
	if err := e.write(ctx, ops); err != nil {
		metrics.RecordBatchFailure()
		return fmt.Errorf("engine.RecomputeStandings: %w: %w", ErrPersist, err)
	}
	metrics.RecordStandingsRecomputed()
	e.log.Debug(ctx, "standings recomputed",
		logger.String("category", category),
		logger.Int("teams", len(resolved)),
		logger.Int("changed", len(ops)),
	)
	return nil
}

func rankOf(teams []model.Team, id string) int {
	i, ok := slices.BinarySearchFunc(teams, id, func(t model.Team, id string) int {
		switch {
		case t.ID < id:
			return -1
		case t.ID > id:
			return 1
		default:
			return 0
		}
	})
	if !ok {
		return 0
	}
	return teams[i].CategoryRank
}
