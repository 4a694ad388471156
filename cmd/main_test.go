package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	service "github.com/okian/wodboard/internal/app"
	"github.com/okian/wodboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
	"github.com/xuri/excelize/v2"
)

const seedDoc = `
events:
  - id: wod1
    name: Fran
    scoring_mode: time
    category: rx
    max_points: 100
    order: 1
teams:
  - id: A
    name: Alpha
    category: rx
  - id: B
    name: Bravo
    category: rx
results:
  - id: ra
    team_id: A
    event_id: wod1
    raw_score: "4:10"
  - id: rb
    team_id: B
    event_id: wod1
    raw_score: "5:30"
`

// run executes the CLI with args and returns what it printed.
func run(args ...string) (string, error) {
	app := newApp()
	var out bytes.Buffer
	app.Writer = &out
	app.ErrWriter = &out
	err := app.RunContext(context.Background(), append([]string{"wodboard"}, args...))
	return out.String(), err
}

func TestConfigFromEnvironment(t *testing.T) {
	convey.Convey("Given WODBOARD_ environment overrides", t, func() {
		t.Setenv("WODBOARD_ADDR", ":8080")
		t.Setenv("WODBOARD_QUEUE_SIZE", "1000")
		t.Setenv("WODBOARD_WORKER_COUNT", "4")

		convey.Convey("Then the configuration picks them up", func() {
			cfg, err := config.Load(context.Background())
			convey.So(err, convey.ShouldBeNil)
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 1000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 4)
		})

		convey.Convey("When the store driver is unknown", func() {
			t.Setenv("WODBOARD_STORE_DRIVER", "mongo")

			convey.Convey("Then every command fails before touching a store", func() {
				_, err := run("recalculate", "--category", "rx")
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(err.Error(), convey.ShouldContainSubstring, "failed to load config")
			})
		})
	})
}

func TestOneShotCommands(t *testing.T) {
	convey.Convey("Given a sqlite store and a seed file", t, func() {
		dir := t.TempDir()
		t.Setenv("WODBOARD_STORE_DRIVER", "sqlite")
		t.Setenv("WODBOARD_STORE_DSN", "file:"+filepath.Join(dir, "wodboard.db"))
		seedPath := filepath.Join(dir, "seed.yaml")
		convey.So(os.WriteFile(seedPath, []byte(seedDoc), 0o600), convey.ShouldBeNil)

		out, err := run("seed", "--file", seedPath)
		convey.So(err, convey.ShouldBeNil)
		convey.So(out, convey.ShouldContainSubstring, "Seeded 1 events, 2 teams and 2 results")

		convey.Convey("When the category is recalculated", func() {
			out, err := run("recalculate", "--category", "rx")

			convey.Convey("Then every team of the category is rewritten", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Recalculated 2 teams in category rx")
			})
		})

		convey.Convey("When the standings are exported", func() {
			path := filepath.Join(dir, "rx.xlsx")
			_, err := run("export", "--category", "rx", "--out", path)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the workbook holds the category and its event", func() {
				f, err := excelize.OpenFile(path)
				convey.So(err, convey.ShouldBeNil)
				defer f.Close()

				sheets := f.GetSheetList()
				convey.So(sheets, convey.ShouldHaveLength, 2)
				convey.So(sheets[0], convey.ShouldEqual, "rx")

				team, err := f.GetCellValue("rx", "B2")
				convey.So(err, convey.ShouldBeNil)
				convey.So(team, convey.ShouldEqual, "Alpha")
			})
		})

		convey.Convey("When the results of the event are deleted", func() {
			out, err := run("delete-event-results", "--event", "wod1")

			convey.Convey("Then both results are reported", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Deleted 2 results for event Fran")
			})

			convey.Convey("And a second run finds nothing", func() {
				out, err := run("delete-event-results", "--event", "wod1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "No results found for event Fran")
			})
		})

		convey.Convey("When an unknown event is targeted", func() {
			_, err := run("delete-event-results", "--event", "nope")

			convey.Convey("Then the command fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(strings.ToLower(err.Error()), convey.ShouldContainSubstring, "not found")
			})
		})

		convey.Convey("When a required flag is missing", func() {
			_, err := run("export")

			convey.Convey("Then the command is rejected", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestMetricsUpdaters(t *testing.T) {
	convey.Convey("Given the background metrics updaters", t, func() {
		convey.Convey("Then a system refresh does not panic", func() {
			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
		})

		convey.Convey("When the service is not started", func() {
			svc := service.New()

			convey.Convey("Then a service refresh does not panic", func() {
				convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
			})

			convey.Convey("And the updaters return once the context ends", func() {
				ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
				defer cancel()
				done := make(chan struct{})
				go func() {
					startSystemMetricsUpdater(ctx)
					startServiceMetricsUpdater(ctx, svc)
					close(done)
				}()

				returned := false
				select {
				case <-done:
					returned = true
				case <-time.After(time.Second):
				}
				convey.So(returned, convey.ShouldBeTrue)
			})
		})
	})
}
