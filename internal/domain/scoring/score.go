// Package scoring compares raw results, ranks them within an event and
// converts ranks to points.
package scoring

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind tags the normalized shape of a raw score.
type Kind uint8

// Score kinds.
const (
	KindUnparseable Kind = iota
	KindNumeric
	KindTime
)

func (k Kind) String() string {
	switch k {
	case KindNumeric:
		return "numeric"
	case KindTime:
		return "time"
	default:
		return "unparseable"
	}
}

// capToken marks a capped result entered without an elapsed time.
const capToken = "CAP"

var timePattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)

// Score is a raw score normalized once at the comparator boundary.
// Value holds seconds for KindTime and the numeric value for KindNumeric.
// Unparseable time scores carry +Inf; unparseable numeric scores carry NaN.
type Score struct {
	Kind  Kind
	Value float64
}

// NumericScore builds a KindNumeric score.
func NumericScore(v float64) Score { return Score{Kind: KindNumeric, Value: v} }

// TimeScore builds a KindTime score from seconds.
func TimeScore(seconds float64) Score { return Score{Kind: KindTime, Value: seconds} }

// UnparseableTime is the worst possible time.
func UnparseableTime() Score { return Score{Kind: KindUnparseable, Value: math.Inf(1)} }

// UnparseableNumber never compares better or equal to anything.
func UnparseableNumber() Score { return Score{Kind: KindUnparseable, Value: math.NaN()} }

// Parsed reports whether the score carries a real value.
func (s Score) Parsed() bool { return s.Kind != KindUnparseable }

// ParseTime converts "M:SS" or "MM:SS" to seconds. The literal CAP and any
// malformed text return ok=false.
func ParseTime(s string) (seconds int, ok bool) {
	s = strings.TrimSpace(s)
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	minutes, _ := strconv.Atoi(m[1])
	secs, _ := strconv.Atoi(m[2])
	if secs >= 60 {
		return 0, false
	}
	return minutes*60 + secs, true
}

// IsCapToken reports whether s is the CAP marker, ignoring case and spaces.
func IsCapToken(s string) bool {
	return strings.EqualFold(strings.TrimSpace(s), capToken)
}

// ParseNumber parses a reps or load score.
func ParseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) {
		return math.NaN(), false
	}
	return v, true
}
