// Package model contains domain models passed between layers.
package model

import "strings"

// ScoringMode selects how raw scores of an event are compared.
type ScoringMode string

// Scoring modes.
const (
	ScoringTime ScoringMode = "Time" // lower elapsed time wins, with time-cap handling
	ScoringReps ScoringMode = "Reps" // higher repetition count wins
	ScoringLoad ScoringMode = "Load" // higher load wins
)

// Valid reports whether m is one of the known scoring modes.
func (m ScoringMode) Valid() bool {
	switch m {
	case ScoringTime, ScoringReps, ScoringLoad:
		return true
	}
	return false
}

// ParseScoringMode accepts a scoring mode name case-insensitively.
func ParseScoringMode(s string) (ScoringMode, bool) {
	for _, m := range []ScoringMode{ScoringTime, ScoringReps, ScoringLoad} {
		if strings.EqualFold(strings.TrimSpace(s), string(m)) {
			return m, true
		}
	}
	return "", false
}

// EventStatus tracks the lifecycle of an event on the competition floor.
type EventStatus string

// Event statuses.
const (
	StatusNotStarted EventStatus = "not started"
	StatusInProgress EventStatus = "in progress"
	StatusComputing  EventStatus = "computing"
	StatusCompleted  EventStatus = "completed"
)

// Event is one scored workout (WOD) of a category.
// Everything except Status is fixed while results are being scored.
type Event struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	ScoringMode ScoringMode `json:"scoring_mode"`
	Category    string      `json:"category"`
	MaxPoints   int         `json:"max_points"`
	Status      EventStatus `json:"status"`
	Order       int         `json:"order"`
	Description string      `json:"description,omitempty"`
}

// Team is a competing team. TotalPoints and CategoryRank are derived by the
// scoring engine and must not be edited by hand.
type Team struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Box          string `json:"box,omitempty"`
	TotalPoints  int    `json:"total_points"`
	CategoryRank int    `json:"category_rank"`
}
