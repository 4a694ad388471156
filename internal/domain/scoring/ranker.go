package scoring

import (
	"context"
	"slices"
	"strings"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
)

// Ranker assigns competition ranks and points to the results of one event.
type Ranker struct {
	log logger.Logger
}

// NewRanker creates a Ranker.
func NewRanker(opts ...Option) *Ranker {
	o := newOptions(opts)
	return &Ranker{log: o.log}
}

// Rank orders results best first and sets Rank and AwardedPoints on copies of
// them. Tied results share a rank and the next distinct result takes its
// 1-based position (1, 2, 2, 4). Results must already be filtered to ranked
// candidates; an empty input returns nil.
func (r *Ranker) Rank(ctx context.Context, event model.Event, results []model.Result) []model.Result {
	if len(results) == 0 {
		return nil
	}

	cmp := NewComparator(event.ScoringMode, WithLogger(r.log))

	entries := make([]Entry, 0, len(results))
	for _, res := range results {
		entries = append(entries, cmp.Normalize(ctx, res))
	}
	// Id order first so ties keep a stable, input-independent order.
	slices.SortFunc(entries, func(a, b Entry) int { return strings.Compare(a.Result.ID, b.Result.ID) })
	slices.SortStableFunc(entries, cmp.Compare)

	out := make([]model.Result, len(entries))
	for i, e := range entries {
		rank := i + 1
		if i > 0 && cmp.Equal(entries[i-1], e) {
			rank = out[i-1].Rank
		}
		res := e.Result
		res.Rank = rank
		res.AwardedPoints = Points(rank, event.MaxPoints)
		out[i] = res
	}

	r.log.Debug(ctx, "ranked event",
		logger.String("event_id", event.ID),
		logger.String("mode", string(event.ScoringMode)),
		logger.Int("results", len(out)),
	)
	return out
}
