package scoring

import (
	"cmp"
	"context"
	"math"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/okian/wodboard/pkg/metrics"
)

// Entry is a result together with its normalized score.
type Entry struct {
	Result model.Result
	Score  Score
}

func (e Entry) capped() bool { return e.Result.TimeCapReached }

func (e Entry) repsRemaining() int { return e.Result.RepsRemaining }

// Comparator orders results of one scoring mode.
type Comparator struct {
	mode model.ScoringMode
	log  logger.Logger
}

// NewComparator returns a comparator for mode. Unknown modes compare as
// Reps, higher is better.
func NewComparator(mode model.ScoringMode, opts ...Option) *Comparator {
	o := newOptions(opts)
	return &Comparator{mode: mode, log: o.log}
}

// Mode returns the scoring mode.
func (c *Comparator) Mode() model.ScoringMode { return c.mode }

// Normalize parses r's raw score once. Parse failures are logged and map to
// the worst value for the mode; they never fail.
func (c *Comparator) Normalize(ctx context.Context, r model.Result) Entry {
	return Entry{Result: r, Score: c.normalize(ctx, r)}
}

func (c *Comparator) normalize(ctx context.Context, r model.Result) Score {
	raw := r.RawScore
	if c.mode == model.ScoringTime {
		if raw.IsNumber() {
			return TimeScore(raw.Number())
		}
		if IsCapToken(raw.Text()) {
			return UnparseableTime()
		}
		secs, ok := ParseTime(raw.Text())
		if !ok {
			c.warnUnparseable(ctx, r)
			return UnparseableTime()
		}
		return TimeScore(float64(secs))
	}

	if raw.IsNumber() {
		return NumericScore(raw.Number())
	}
	v, ok := ParseNumber(raw.Text())
	if !ok {
		c.warnUnparseable(ctx, r)
		return UnparseableNumber()
	}
	return NumericScore(v)
}

func (c *Comparator) warnUnparseable(ctx context.Context, r model.Result) {
	metrics.RecordUnparseableScore(string(c.mode))
	c.log.Warn(ctx, "unparseable raw score",
		logger.String("result_id", r.ID),
		logger.String("team_id", r.TeamID),
		logger.String("mode", string(c.mode)),
		logger.String("raw_score", r.RawScore.Text()),
	)
}

// Better reports whether a is strictly better than b.
func (c *Comparator) Better(a, b Entry) bool {
	if c.mode != model.ScoringTime {
		// NaN compares false both ways.
		return a.Score.Value > b.Score.Value
	}

	switch {
	case !a.capped() && b.capped():
		return true
	case a.capped() && !b.capped():
		return false
	case !a.capped():
		return a.Score.Value < b.Score.Value
	}

	if a.repsRemaining() != b.repsRemaining() {
		return a.repsRemaining() < b.repsRemaining()
	}
	switch {
	case a.Score.Parsed() && b.Score.Parsed():
		return a.Score.Value < b.Score.Value
	case a.Score.Parsed():
		return true
	default:
		return false
	}
}

// Equal reports whether a and b tie.
func (c *Comparator) Equal(a, b Entry) bool {
	if c.mode != model.ScoringTime {
		return a.Score.Value == b.Score.Value
	}

	if a.capped() != b.capped() {
		return false
	}
	bothParsed := a.Score.Parsed() && b.Score.Parsed()
	if !a.capped() {
		return bothParsed && a.Score.Value == b.Score.Value
	}
	if a.repsRemaining() != b.repsRemaining() {
		return false
	}
	if bothParsed {
		return a.Score.Value == b.Score.Value
	}
	return !a.Score.Parsed() && !b.Score.Parsed()
}

// Compare orders a before b when a is better and returns 0 for ties. It is a
// total order: unparseable Reps and Load scores sort after every number.
func (c *Comparator) Compare(a, b Entry) int {
	if c.mode != model.ScoringTime {
		return cmp.Compare(sortKey(b.Score), sortKey(a.Score))
	}
	switch {
	case c.Better(a, b):
		return -1
	case c.Better(b, a):
		return 1
	default:
		return 0
	}
}

func sortKey(s Score) float64 {
	if !s.Parsed() || math.IsNaN(s.Value) {
		return math.Inf(-1)
	}
	return s.Value
}
