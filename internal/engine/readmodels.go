package engine

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/okian/wodboard/internal/adapters/repository"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/standings"
	"github.com/okian/wodboard/internal/domain/types"
)

// unrankedLast orders ranks ascending with 0 after every real rank.
func unrankedLast(a, b int) int {
	switch {
	case a == b:
		return 0
	case a == 0:
		return 1
	case b == 0:
		return -1
	default:
		return cmp.Compare(a, b)
	}
}

// Standings returns the stored leaderboard of a category.
func (e *Engine) Standings(ctx context.Context, category string) ([]types.StandingEntry, error) {
	if strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("engine.Standings: category is required: %w", ErrInvalidArgument)
	}
	teams, err := e.repo.QueryTeams(ctx, repository.TeamFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("engine.Standings: load teams: %w", err)
	}
	results, err := e.repo.QueryResults(ctx, repository.ResultFilter{Category: category})
	if err != nil {
		return nil, fmt.Errorf("engine.Standings: load results: %w", err)
	}
	ranks := standings.GroupRanks(results)

	slices.SortStableFunc(teams, func(a, b model.Team) int {
		if c := unrankedLast(a.CategoryRank, b.CategoryRank); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	out := make([]types.StandingEntry, 0, len(teams))
	for _, t := range teams {
		eventRanks := ranks[t.ID]
		if eventRanks == nil {
			eventRanks = []int{}
		}
		out = append(out, types.StandingEntry{
			Rank:        t.CategoryRank,
			TeamID:      t.ID,
			TeamName:    t.Name,
			Box:         t.Box,
			TotalPoints: t.TotalPoints,
			EventRanks:  eventRanks,
		})
	}
	return out, nil
}

// EventResults returns the stored leaderboard of an event, unranked results
// last.
func (e *Engine) EventResults(ctx context.Context, eventID string) ([]types.ResultEntry, error) {
	if strings.TrimSpace(eventID) == "" {
		return nil, fmt.Errorf("engine.EventResults: event id is required: %w", ErrInvalidArgument)
	}
	ev, ok, err := e.repo.GetEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("engine.EventResults: load event: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("engine.EventResults: %s: %w", eventID, ErrEventNotFound)
	}

	results, err := e.repo.QueryResults(ctx, repository.ResultFilter{EventID: ev.ID})
	if err != nil {
		return nil, fmt.Errorf("engine.EventResults: load results: %w", err)
	}
	teams, err := e.repo.QueryTeams(ctx, repository.TeamFilter{Category: ev.Category})
	if err != nil {
		return nil, fmt.Errorf("engine.EventResults: load teams: %w", err)
	}
	names := make(map[string]string, len(teams))
	for _, t := range teams {
		names[t.ID] = t.Name
	}

	slices.SortStableFunc(results, func(a, b model.Result) int {
		if c := unrankedLast(a.Rank, b.Rank); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	out := make([]types.ResultEntry, 0, len(results))
	for _, r := range results {
		out = append(out, types.ResultEntry{
			Rank:           r.Rank,
			ResultID:       r.ID,
			TeamID:         r.TeamID,
			TeamName:       names[r.TeamID],
			RawScore:       r.RawScore.Text(),
			TimeCapReached: r.TimeCapReached,
			RepsRemaining:  r.RepsRemaining,
			AwardedPoints:  r.AwardedPoints,
		})
	}
	return out, nil
}
