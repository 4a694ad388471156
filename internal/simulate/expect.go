package simulate

import (
	"context"
	"fmt"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/scoring"
	"github.com/okian/wodboard/internal/domain/standings"
	"github.com/okian/wodboard/internal/domain/types"
)

// Expected recomputes the category standings of plan from scratch, the way
// the service is expected to serve them once every mutation is processed.
func Expected(ctx context.Context, plan Plan) []types.StandingEntry {
	ranker := scoring.NewRanker()

	byEvent := make(map[string][]model.Result, len(plan.Events))
	for i, in := range plan.Results {
		if in.RawScore.IsEmpty() {
			continue
		}
		byEvent[in.EventID] = append(byEvent[in.EventID], model.Result{
			ID:             fmt.Sprintf("r%06d", i),
			TeamID:         in.TeamID,
			EventID:        in.EventID,
			Category:       plan.Category,
			RawScore:       in.RawScore,
			TimeCapReached: in.TimeCapReached,
			RepsRemaining:  in.RepsRemaining,
		})
	}

	var ranked []model.Result
	for _, ev := range plan.Events {
		ranked = append(ranked, ranker.Rank(ctx, ev, byEvent[ev.ID])...)
	}

	totals := make(map[string]int, len(plan.Teams))
	for _, r := range ranked {
		totals[r.TeamID] += r.AwardedPoints
	}
	teams := make([]model.Team, 0, len(plan.Teams))
	for _, t := range plan.Teams {
		t.TotalPoints = totals[t.ID]
		teams = append(teams, t)
	}

	ranks := standings.GroupRanks(ranked)
	out := make([]types.StandingEntry, 0, len(teams))
	for _, s := range standings.Resolve(teams, ranks) {
		eventRanks := s.EventRanks
		if eventRanks == nil {
			eventRanks = []int{}
		}
		out = append(out, types.StandingEntry{
			Rank:        s.Team.CategoryRank,
			TeamID:      s.Team.ID,
			TeamName:    s.Team.Name,
			Box:         s.Team.Box,
			TotalPoints: s.Team.TotalPoints,
			EventRanks:  eventRanks,
		})
	}
	return out
}
