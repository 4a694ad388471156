// Package types contains read models and report shapes shared by the engine
// and its adapters.
package types

import model "github.com/okian/wodboard/internal/domain/model"

// StandingEntry is one row of a category leaderboard.
type StandingEntry struct {
	Rank        int    `json:"rank"`
	TeamID      string `json:"team_id"`
	TeamName    string `json:"team_name"`
	Box         string `json:"box,omitempty"`
	TotalPoints int    `json:"total_points"`
	// EventRanks are the team's per-event ranks, ascending.
	EventRanks []int `json:"event_ranks"`
}

// ResultEntry is one row of an event leaderboard.
type ResultEntry struct {
	Rank           int    `json:"rank,omitempty"`
	ResultID       string `json:"result_id"`
	TeamID         string `json:"team_id"`
	TeamName       string `json:"team_name,omitempty"`
	RawScore       string `json:"raw_score"`
	TimeCapReached bool   `json:"time_cap_reached,omitempty"`
	RepsRemaining  int    `json:"reps_remaining,omitempty"`
	AwardedPoints  int    `json:"awarded_points"`
}

// Report is returned by the bulk admin operations.
type Report struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count,omitempty"`
	UpdatedCount int    `json:"updated_count,omitempty"`
}

// ResultInput is a score entry for one team in one event. Rank and points
// are never accepted from callers.
type ResultInput struct {
	EventID        string         `json:"event_id"`
	TeamID         string         `json:"team_id"`
	RawScore       model.RawScore `json:"raw_score"`
	TimeCapReached bool           `json:"time_cap_reached,omitempty"`
	RepsRemaining  int            `json:"reps_remaining,omitempty"`
}

// Accepted acknowledges an asynchronously processed write.
type Accepted struct {
	Status   string `json:"status"`
	ResultID string `json:"result_id,omitempty"`
}
