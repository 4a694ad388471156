// Package repository defines the scoring store contract and its backends.
package repository

import (
	"context"

	model "github.com/okian/wodboard/internal/domain/model"
)

// ResultFilter selects results. Empty fields match everything.
type ResultFilter struct {
	EventID  string
	Category string
	TeamID   string
}

// TeamFilter selects teams. An empty Category matches every team.
type TeamFilter struct {
	Category string
}

// OpKind is the kind of a batched write.
type OpKind uint8

// Batched write kinds.
const (
	OpSetResultRanking OpKind = iota + 1
	OpSetTeamTotal
	OpSetTeamRank
	OpDeleteResult
)

func (k OpKind) String() string {
	switch k {
	case OpSetResultRanking:
		return "set_result_ranking"
	case OpSetTeamTotal:
		return "set_team_total"
	case OpSetTeamRank:
		return "set_team_rank"
	case OpDeleteResult:
		return "delete_result"
	default:
		return "unknown"
	}
}

// Op is one write of a batch. Updates of a missing record fail the whole
// batch; deleting a missing result is a no-op.
type Op struct {
	Kind   OpKind
	ID     string
	Rank   int
	Points int
}

// SetResultRanking writes a result's rank and awarded points.
func SetResultRanking(resultID string, rank, points int) Op {
	return Op{Kind: OpSetResultRanking, ID: resultID, Rank: rank, Points: points}
}

// SetTeamTotal writes a team's total points.
func SetTeamTotal(teamID string, total int) Op {
	return Op{Kind: OpSetTeamTotal, ID: teamID, Points: total}
}

// SetTeamRank writes a team's category rank.
func SetTeamRank(teamID string, rank int) Op {
	return Op{Kind: OpSetTeamRank, ID: teamID, Rank: rank}
}

// DeleteResult removes a result.
func DeleteResult(resultID string) Op {
	return Op{Kind: OpDeleteResult, ID: resultID}
}

// Repository is what the scoring engine reads and writes.
type Repository interface {
	// GetEvent returns the event and whether it exists.
	GetEvent(ctx context.Context, id string) (model.Event, bool, error)
	// GetTeam returns the team and whether it exists.
	GetTeam(ctx context.Context, id string) (model.Team, bool, error)
	// QueryResults returns matching results ordered by id.
	QueryResults(ctx context.Context, f ResultFilter) ([]model.Result, error)
	// QueryTeams returns matching teams ordered by id.
	QueryTeams(ctx context.Context, f TeamFilter) ([]model.Team, error)
	// BatchWrite applies ops all-or-nothing.
	BatchWrite(ctx context.Context, ops []Op) error
	// BatchLimit is the maximum number of ops per BatchWrite call.
	BatchLimit() int
}

// Counts summarizes the stored records.
type Counts struct {
	Events  int `json:"events"`
	Teams   int `json:"teams"`
	Results int `json:"results"`
}

// Store adds the CRUD used by score entry, seeding and the admin layer.
type Store interface {
	Repository

	// PutEvent creates or replaces an event.
	PutEvent(ctx context.Context, e model.Event) error
	// ListEvents returns events of a category (all when empty) by display order.
	ListEvents(ctx context.Context, category string) ([]model.Event, error)
	// PutTeam creates or updates a team. TotalPoints and CategoryRank of an
	// existing team are kept.
	PutTeam(ctx context.Context, t model.Team) error
	// PutResult creates or updates a result. Rank and AwardedPoints of an
	// existing result are kept.
	PutResult(ctx context.Context, r model.Result) error
	// GetResult returns the result and whether it exists.
	GetResult(ctx context.Context, id string) (model.Result, bool, error)
	// Count returns record counts.
	Count(ctx context.Context) (Counts, error)
	// Close releases resources.
	Close() error
}
