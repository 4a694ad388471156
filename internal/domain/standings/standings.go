// Package standings aggregates team totals and orders a category's teams.
package standings

import (
	"math"
	"slices"
	"strings"

	model "github.com/okian/wodboard/internal/domain/model"
)

// missingRank stands in for an event a team has no rank in.
const missingRank = math.MaxInt

// Standing is a team with its ascending list of per-event ranks.
type Standing struct {
	Team       model.Team
	EventRanks []int
}

// SumPoints adds the awarded points of results. Unranked results count 0.
func SumPoints(results []model.Result) int {
	total := 0
	for _, r := range results {
		total += r.AwardedPoints
	}
	return total
}

// GroupRanks collects the ranks of ranked results by team, ascending.
func GroupRanks(results []model.Result) map[string][]int {
	out := make(map[string][]int)
	for _, r := range results {
		if r.Rank <= 0 || r.TeamID == "" {
			continue
		}
		out[r.TeamID] = append(out[r.TeamID], r.Rank)
	}
	for _, ranks := range out {
		slices.Sort(ranks)
	}
	return out
}

// CompareRanks compares two ascending rank lists position by position. A
// missing position is worse than any rank. It returns -1 when a is better.
func CompareRanks(a, b []int) int {
	n := max(len(a), len(b))
	for i := 0; i < n; i++ {
		ra, rb := at(a, i), at(b, i)
		if ra != rb {
			if ra < rb {
				return -1
			}
			return 1
		}
	}
	return 0
}

func at(ranks []int, i int) int {
	if i < len(ranks) {
		return ranks[i]
	}
	return missingRank
}

func compare(a, b Standing) int {
	if a.Team.TotalPoints != b.Team.TotalPoints {
		if a.Team.TotalPoints > b.Team.TotalPoints {
			return -1
		}
		return 1
	}
	return CompareRanks(a.EventRanks, b.EventRanks)
}

// Resolve orders teams by total points, breaking ties on per-event finishes,
// and sets CategoryRank. Fully tied teams share a rank; the next team takes
// its 1-based position.
func Resolve(teams []model.Team, ranksByTeam map[string][]int) []Standing {
	out := make([]Standing, 0, len(teams))
	for _, t := range teams {
		ranks := slices.Clone(ranksByTeam[t.ID])
		slices.Sort(ranks)
		out = append(out, Standing{Team: t, EventRanks: ranks})
	}

	slices.SortFunc(out, func(a, b Standing) int { return strings.Compare(a.Team.ID, b.Team.ID) })
	slices.SortStableFunc(out, compare)

	for i := range out {
		rank := i + 1
		if i > 0 && compare(out[i-1], out[i]) == 0 {
			rank = out[i-1].Team.CategoryRank
		}
		out[i].Team.CategoryRank = rank
	}
	return out
}
