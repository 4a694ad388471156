package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/okian/wodboard/internal/adapters/repository"
	"github.com/okian/wodboard/internal/domain/standings"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
	"go.opentelemetry.io/otel/attribute"
)

// DeleteAllResultsForEvent removes every result of an event, rebuilds the
// totals of the teams that had one and recomputes the event's category
// standings.
func (e *Engine) DeleteAllResultsForEvent(ctx context.Context, eventID string) (report types.Report, err error) {
	ctx, end := e.start(ctx, "DeleteAllResultsForEvent", attribute.String("event.id", eventID))
	defer end(&err)

	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return types.Report{}, fmt.Errorf("engine.DeleteAllResultsForEvent: event id is required: %w", ErrInvalidArgument)
	}
	ev, ok, err := e.repo.GetEvent(ctx, eventID)
	if err != nil {
		return types.Report{}, fmt.Errorf("engine.DeleteAllResultsForEvent: load event: %w", err)
	}
	if !ok {
		return types.Report{}, fmt.Errorf("engine.DeleteAllResultsForEvent: %s: %w", eventID, ErrEventNotFound)
	}

	results, err := e.repo.QueryResults(ctx, repository.ResultFilter{EventID: eventID})
	if err != nil {
		return types.Report{}, fmt.Errorf("engine.DeleteAllResultsForEvent: load results: %w", err)
	}
	if len(results) == 0 {
		return types.Report{Success: true, Message: fmt.Sprintf("No results found for event %s", ev.Name)}, nil
	}

	ops := make([]repository.Op, 0, len(results))
	teams := make([]string, 0)
	seen := make(map[string]struct{})
	for _, r := range results {
		ops = append(ops, repository.DeleteResult(r.ID))
		if r.TeamID == "" {
			continue
		}
		if _, dup := seen[r.TeamID]; !dup {
			seen[r.TeamID] = struct{}{}
			teams = append(teams, r.TeamID)
		}
	}
	if err := e.write(ctx, ops); err != nil {
		metrics.RecordBatchFailure()
		return types.Report{}, fmt.Errorf("engine.DeleteAllResultsForEvent: %w: %w", ErrPersist, err)
	}
	e.log.Info(ctx, "event results deleted",
		logger.String("event_id", eventID),
		logger.Int("deleted", len(ops)),
		logger.Int("teams", len(teams)),
	)

	for _, id := range teams {
		if _, err := e.RecomputeTeamTotal(ctx, id); err != nil {
			return types.Report{}, err
		}
	}
	if ev.Category != "" {
		if err := e.RecomputeStandings(ctx, ev.Category); err != nil {
			return types.Report{}, err
		}
	}

	return types.Report{
		Success:      true,
		Message:      fmt.Sprintf("Deleted %d results for event %s", len(ops), ev.Name),
		DeletedCount: len(ops),
	}, nil
}

// RecalculateCategory rebuilds the total of every team in a category from its
// full result set, then recomputes the category standings.
func (e *Engine) RecalculateCategory(ctx context.Context, category string) (report types.Report, err error) {
	ctx, end := e.start(ctx, "RecalculateCategory", attribute.String("category", category))
	defer end(&err)

	category = strings.TrimSpace(category)
	if category == "" {
		return types.Report{}, fmt.Errorf("engine.RecalculateCategory: category is required: %w", ErrInvalidArgument)
	}

	teams, err := e.repo.QueryTeams(ctx, repository.TeamFilter{Category: category})
	if err != nil {
		return types.Report{}, fmt.Errorf("engine.RecalculateCategory: load teams: %w", err)
	}
	if len(teams) == 0 {
		return types.Report{Success: true, Message: fmt.Sprintf("No teams found in category %s", category)}, nil
	}

	ops := make([]repository.Op, 0, len(teams))
	for _, t := range teams {
		results, err := e.repo.QueryResults(ctx, repository.ResultFilter{TeamID: t.ID})
		if err != nil {
			return types.Report{}, fmt.Errorf("engine.RecalculateCategory: load results of team %s: %w", t.ID, err)
		}
		ops = append(ops, repository.SetTeamTotal(t.ID, standings.SumPoints(results)))
	}
	if err := e.write(ctx, ops); err != nil {
		metrics.RecordBatchFailure()
		return types.Report{}, fmt.Errorf("engine.RecalculateCategory: %w: %w", ErrPersist, err)
	}
	if err := e.RecomputeStandings(ctx, category); err != nil {
		return types.Report{}, err
	}

	e.log.Info(ctx, "category recalculated", logger.String("category", category), logger.Int("teams", len(ops)))
	return types.Report{
		Success:      true,
		Message:      fmt.Sprintf("Recalculated %d teams in category %s", len(ops), category),
		UpdatedCount: len(ops),
	}, nil
}
