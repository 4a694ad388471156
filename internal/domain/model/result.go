package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// RawScore is the score as entered on the floor. Score entry may send either a
// string ("10:45", "CAP", "150") or a bare number; both shapes are kept so the
// comparator can normalize them according to the event's scoring mode.
type RawScore struct {
	text    string
	number  float64
	numeric bool
}

// TextScore builds a RawScore from entered text.
func TextScore(s string) RawScore { return RawScore{text: s} }

// NumberScore builds a RawScore from a numeric value.
func NumberScore(v float64) RawScore { return RawScore{number: v, numeric: true} }

// IsEmpty reports whether no score was entered.
func (r RawScore) IsEmpty() bool { return !r.numeric && r.text == "" }

// IsNumber reports whether the score was entered as a number.
func (r RawScore) IsNumber() bool { return r.numeric }

// Number returns the numeric value of a numeric score.
func (r RawScore) Number() float64 { return r.number }

// Text returns the entered text, or the formatted number for numeric scores.
func (r RawScore) Text() string {
	if r.numeric {
		return strconv.FormatFloat(r.number, 'f', -1, 64)
	}
	return r.text
}

// String implements fmt.Stringer.
func (r RawScore) String() string { return r.Text() }

// MarshalJSON keeps the original shape: numbers stay numbers.
func (r RawScore) MarshalJSON() ([]byte, error) {
	if r.numeric {
		return json.Marshal(r.number)
	}
	return json.Marshal(r.text)
}

// UnmarshalJSON accepts a JSON string, a JSON number or null.
func (r *RawScore) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = RawScore{}
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("raw score: %w", err)
		}
		*r = TextScore(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("raw score must be a string or a number: %w", err)
	}
	*r = NumberScore(v)
	return nil
}

// Result is one team's raw result for one event.
// Rank and AwardedPoints are written exclusively by the scoring engine;
// zero means "not ranked".
type Result struct {
	ID             string   `json:"id"`
	TeamID         string   `json:"team_id"`
	EventID        string   `json:"event_id"`
	Category       string   `json:"category"`
	RawScore       RawScore `json:"raw_score"`
	TimeCapReached bool     `json:"time_cap_reached,omitempty"`
	RepsRemaining  int      `json:"reps_remaining,omitempty"`
	Rank           int      `json:"rank,omitempty"`
	AwardedPoints  int      `json:"awarded_points,omitempty"`
}
