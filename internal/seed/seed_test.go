package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/wodboard/internal/adapters/repository"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

const sample = `
events:
  - id: wod1
    name: Fran
    scoring_mode: time
    category: rx
    max_points: 100
    order: 1
  - id: wod2
    name: Grace
    scoring_mode: Reps
    category: rx
    max_points: 100
    order: 2
teams:
  - id: A
    name: Alpha
    category: rx
    box: North
  - id: B
    name: Bravo
    category: rx
results:
  - id: ra
    team_id: A
    event_id: wod1
    raw_score: "10:00"
  - id: rb
    team_id: B
    event_id: wod1
    raw_score: CAP
    time_cap_reached: true
    reps_remaining: 12
  - id: ra2
    team_id: A
    event_id: wod2
    raw_score: 150
`

func init() {
	_ = logger.Init()
}

func TestLoad(t *testing.T) {
	Convey("Given a seed document", t, func() {
		Convey("When it is valid", func() {
			f, err := Load(strings.NewReader(sample))

			Convey("Then every section is decoded", func() {
				So(err, ShouldBeNil)
				So(f.Events, ShouldHaveLength, 2)
				So(f.Teams, ShouldHaveLength, 2)
				So(f.Results, ShouldHaveLength, 3)
				So(f.Results[2].RawScore, ShouldEqual, 150)
			})
		})

		Convey("When it is read from disk", func() {
			path := filepath.Join(t.TempDir(), "seed.yaml")
			So(os.WriteFile(path, []byte(sample), 0o600), ShouldBeNil)
			f, err := LoadFile(path)

			Convey("Then it matches the in-memory load", func() {
				So(err, ShouldBeNil)
				So(f.Teams[0].Box, ShouldEqual, "North")
			})
		})

		cases := []struct {
			name string
			doc  string
		}{
			{"unknown scoring mode", "events:\n  - {id: e, scoring_mode: Distance, max_points: 1}\n"},
			{"non-positive max points", "events:\n  - {id: e, scoring_mode: Time, max_points: 0}\n"},
			{"duplicate team", "teams:\n  - {id: A}\n  - {id: A}\n"},
			{"dangling event", "teams:\n  - {id: A}\nresults:\n  - {id: r, team_id: A, event_id: nope}\n"},
			{"structured score", "events:\n  - {id: e, scoring_mode: Time, max_points: 1}\nteams:\n  - {id: A}\nresults:\n  - {id: r, team_id: A, event_id: e, raw_score: [1]}\n"},
		}
		for _, tc := range cases {
			Convey("When it has a "+tc.name, func() {
				_, err := Load(strings.NewReader(tc.doc))

				Convey("Then ErrInvalidSeed is returned", func() {
					So(errors.Is(err, ErrInvalidSeed), ShouldBeTrue)
				})
			})
		}

		Convey("When it has an unknown key", func() {
			_, err := Load(strings.NewReader("athletes: []\n"))

			Convey("Then decoding fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestApply(t *testing.T) {
	Convey("Given a loaded seed and an empty store", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		f, err := Load(strings.NewReader(sample))
		So(err, ShouldBeNil)

		Convey("When it is applied", func() {
			sum, err := Apply(ctx, store, f)

			Convey("Then records are stored with derived fields", func() {
				So(err, ShouldBeNil)
				So(sum, ShouldResemble, Summary{Events: 2, Teams: 2, Results: 3, EventIDs: []string{"wod1", "wod2"}})

				ev, ok, err := store.GetEvent(ctx, "wod1")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(ev.ScoringMode, ShouldEqual, model.ScoringTime)
				So(ev.Status, ShouldEqual, model.StatusNotStarted)

				r, ok, err := store.GetResult(ctx, "rb")
				So(err, ShouldBeNil)
				So(ok, ShouldBeTrue)
				So(r.Category, ShouldEqual, "rx")
				So(r.TimeCapReached, ShouldBeTrue)
				So(r.RepsRemaining, ShouldEqual, 12)

				r2, _, _ := store.GetResult(ctx, "ra2")
				So(r2.RawScore.IsNumber(), ShouldBeTrue)
				So(r2.RawScore.Number(), ShouldEqual, 150.0)
			})
		})
	})
}
