package scoring_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	model "github.com/okian/wodboard/internal/domain/model"
	scoring "github.com/okian/wodboard/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

type placing struct {
	ID     string
	Rank   int
	Points int
}

func placings(results []model.Result) []placing {
	out := make([]placing, 0, len(results))
	for _, r := range results {
		out = append(out, placing{ID: r.ID, Rank: r.Rank, Points: r.AwardedPoints})
	}
	return out
}

func TestRanker(t *testing.T) {
	Convey("Given a ranker", t, func() {
		ctx := context.Background()
		ranker := scoring.NewRanker()
		timed := model.Event{ID: "wod1", ScoringMode: model.ScoringTime, Category: "rx", MaxPoints: 100}

		Convey("When three teams post 10:00, 10:00 and 9:59", func() {
			ranked := ranker.Rank(ctx, timed, []model.Result{
				{ID: "ra", TeamID: "A", RawScore: model.TextScore("10:00")},
				{ID: "rb", TeamID: "B", RawScore: model.TextScore("10:00")},
				{ID: "rc", TeamID: "C", RawScore: model.TextScore("9:59")},
			})

			Convey("Then C wins and A and B share second", func() {
				want := []placing{{"rc", 1, 100}, {"ra", 2, 95}, {"rb", 2, 95}}
				So(cmp.Diff(want, placings(ranked)), ShouldBeEmpty)
			})
		})

		Convey("When seconds are 100, 100 and 150", func() {
			ranked := ranker.Rank(ctx, timed, []model.Result{
				{ID: "r3", RawScore: model.NumberScore(150)},
				{ID: "r1", RawScore: model.NumberScore(100)},
				{ID: "r2", RawScore: model.NumberScore(100)},
			})

			Convey("Then ranks compact as 1, 1, 3", func() {
				want := []placing{{"r1", 1, 100}, {"r2", 1, 100}, {"r3", 3, 90}}
				So(cmp.Diff(want, placings(ranked)), ShouldBeEmpty)
			})
		})

		Convey("When capped and uncapped results mix", func() {
			ranked := ranker.Rank(ctx, timed, []model.Result{
				{ID: "cap-a", RawScore: model.TextScore("CAP"), TimeCapReached: true, RepsRemaining: 4},
				{ID: "fin", RawScore: model.TextScore("19:59")},
				{ID: "cap-b", RawScore: model.TextScore("CAP"), TimeCapReached: true, RepsRemaining: 4},
				{ID: "cap-c", RawScore: model.TextScore("20:00"), TimeCapReached: true, RepsRemaining: 4},
				{ID: "cap-d", RawScore: model.TextScore("CAP"), TimeCapReached: true, RepsRemaining: 1},
			})

			Convey("Then finishers lead, then fewer reps, then timed caps, then tied caps", func() {
				want := []placing{
					{"fin", 1, 100},
					{"cap-d", 2, 95},
					{"cap-c", 3, 90},
					{"cap-a", 4, 85},
					{"cap-b", 4, 85},
				}
				So(cmp.Diff(want, placings(ranked)), ShouldBeEmpty)
			})
		})

		Convey("When the event is scored by reps", func() {
			reps := model.Event{ID: "wod2", ScoringMode: model.ScoringReps, MaxPoints: 50}
			ranked := ranker.Rank(ctx, reps, []model.Result{
				{ID: "a", RawScore: model.NumberScore(120)},
				{ID: "b", RawScore: model.TextScore("180")},
				{ID: "c", RawScore: model.NumberScore(120)},
				{ID: "d", RawScore: model.NumberScore(90)},
			})

			Convey("Then higher reps rank first with shared ranks for ties", func() {
				want := []placing{{"b", 1, 50}, {"a", 2, 45}, {"c", 2, 45}, {"d", 4, 35}}
				So(cmp.Diff(want, placings(ranked)), ShouldBeEmpty)
			})
		})

		Convey("When malformed reps sit between valid ones", func() {
			reps := model.Event{ID: "wod3", ScoringMode: model.ScoringReps, MaxPoints: 100}
			ranked := ranker.Rank(ctx, reps, []model.Result{
				{ID: "a", RawScore: model.TextScore("5")},
				{ID: "b", RawScore: model.TextScore("abc")},
				{ID: "c", RawScore: model.TextScore("10")},
				{ID: "d", RawScore: model.TextScore("oops")},
			})

			Convey("Then valid scores keep their order and malformed ones go last untied", func() {
				want := []placing{{"c", 1, 100}, {"a", 2, 95}, {"b", 3, 90}, {"d", 4, 85}}
				So(cmp.Diff(want, placings(ranked)), ShouldBeEmpty)
			})
		})

		Convey("When there are no results", func() {
			So(ranker.Rank(ctx, timed, nil), ShouldBeNil)
		})

		Convey("When ranking a random field twice", func() {
			faker := gofakeit.New(7)
			results := make([]model.Result, 0, 40)
			for i := 0; i < 40; i++ {
				raw := fmt.Sprintf("%d:%02d", faker.IntRange(4, 20), faker.IntRange(0, 59))
				results = append(results, model.Result{
					ID:             faker.UUID(),
					TeamID:         faker.UUID(),
					RawScore:       model.TextScore(raw),
					TimeCapReached: faker.Bool(),
					RepsRemaining:  faker.IntRange(0, 5),
				})
			}

			first := ranker.Rank(ctx, timed, results)
			reversed := make([]model.Result, len(results))
			for i, r := range results {
				reversed[len(results)-1-i] = r
			}
			second := ranker.Rank(ctx, timed, reversed)

			Convey("Then the output is identical regardless of input order", func() {
				So(cmp.Diff(placings(first), placings(second)), ShouldBeEmpty)
			})

			Convey("Then every rank is positive and never better than its predecessor", func() {
				for i, r := range first {
					So(r.Rank, ShouldBeGreaterThanOrEqualTo, 1)
					So(r.Rank, ShouldBeLessThanOrEqualTo, i+1)
					if i > 0 {
						So(r.Rank, ShouldBeGreaterThanOrEqualTo, first[i-1].Rank)
						So(r.AwardedPoints, ShouldBeLessThanOrEqualTo, first[i-1].AwardedPoints)
					}
				}
			})
		})
	})
}
