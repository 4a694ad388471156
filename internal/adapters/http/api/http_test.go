package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/okian/wodboard/internal/adapters/http/api"
	"github.com/okian/wodboard/internal/adapters/mq/queue"
	"github.com/okian/wodboard/internal/adapters/repository"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/okian/wodboard/internal/engine"
	"github.com/okian/wodboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	_ = logger.Init()
}

type mockDependencies struct {
	mu        sync.Mutex
	teams     []model.Team
	events    []model.Event
	inputs    []types.ResultInput
	deleted   []string
	mutations []model.Mutation
	submitErr error
	adminErr  error
}

func (m *mockDependencies) PutTeam(_ context.Context, t model.Team) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teams = append(m.teams, t)
	return nil
}

func (m *mockDependencies) PutEvent(_ context.Context, e model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *mockDependencies) SubmitResult(_ context.Context, in types.ResultInput) (model.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return model.Result{}, m.submitErr
	}
	m.inputs = append(m.inputs, in)
	return model.Result{ID: "res-" + in.TeamID, EventID: in.EventID, TeamID: in.TeamID, RawScore: in.RawScore}, nil
}

func (m *mockDependencies) DeleteResult(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id == "missing" {
		return fmt.Errorf("result %q: %w", id, repository.ErrNotFound)
	}
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockDependencies) SubmitMutation(_ context.Context, mu model.Mutation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.submitErr != nil {
		return m.submitErr
	}
	m.mutations = append(m.mutations, mu)
	return nil
}

func (m *mockDependencies) DeleteAllResultsForEvent(_ context.Context, eventID string) (types.Report, error) {
	if m.adminErr != nil {
		return types.Report{}, m.adminErr
	}
	return types.Report{Success: true, Message: "deleted", DeletedCount: 3}, nil
}

func (m *mockDependencies) RecalculateCategory(_ context.Context, category string) (types.Report, error) {
	if category == "" {
		return types.Report{}, engine.ErrInvalidArgument
	}
	return types.Report{Success: true, Message: "recalculated", UpdatedCount: 2}, nil
}

func (m *mockDependencies) Standings(_ context.Context, category string) ([]types.StandingEntry, error) {
	return []types.StandingEntry{{Rank: 1, TeamID: "C", TeamName: "Team C", TotalPoints: 100, EventRanks: []int{1}}}, nil
}

func (m *mockDependencies) EventResults(_ context.Context, eventID string) ([]types.ResultEntry, error) {
	if eventID == "nope" {
		return nil, fmt.Errorf("event %s: %w", eventID, engine.ErrEventNotFound)
	}
	return []types.ResultEntry{{Rank: 1, ResultID: "rc", TeamID: "C", RawScore: "9:59", AwardedPoints: 100}}, nil
}

func (m *mockDependencies) ExportStandings(_ context.Context, category string, w io.Writer) error {
	_, err := io.WriteString(w, "xlsx:"+category)
	return err
}

type mockStatsProvider struct {
	stats map[string]any
}

func (m *mockStatsProvider) GetStats() map[string]any { return m.stats }

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func errorCode(w *httptest.ResponseRecorder) string {
	var body struct {
		Code string `json:"code"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body.Code
}

func TestServerRoutes(t *testing.T) {
	Convey("Given an API server", t, func() {
		deps := &mockDependencies{}
		h := api.NewServer(deps, &mockStatsProvider{stats: map[string]any{"started": true}}).Handler()

		Convey("When probing health and stats", func() {
			health := do(h, http.MethodGet, "/healthz", "")
			stats := do(h, http.MethodGet, "/stats", "")

			Convey("Then both answer 200", func() {
				So(health.Code, ShouldEqual, http.StatusOK)
				So(stats.Code, ShouldEqual, http.StatusOK)
				So(stats.Body.String(), ShouldContainSubstring, `"started":true`)
				So(stats.Body.String(), ShouldContainSubstring, `"uptime_seconds"`)
			})
		})

		Convey("When registering a team and an event", func() {
			team := do(h, http.MethodPut, "/teams/A", `{"name":"Alpha","category":"rx","box":"North"}`)
			event := do(h, http.MethodPut, "/events/wod1", `{"name":"Fran","scoring_mode":"time","category":"rx","max_points":100}`)

			Convey("Then both are stored", func() {
				So(team.Code, ShouldEqual, http.StatusOK)
				So(event.Code, ShouldEqual, http.StatusOK)
				So(deps.teams[0].ID, ShouldEqual, "A")
				So(deps.events[0].ScoringMode, ShouldEqual, model.ScoringTime)
				So(deps.events[0].Status, ShouldEqual, model.StatusNotStarted)
			})
		})

		Convey("When an event is invalid", func() {
			w := do(h, http.MethodPut, "/events/wod1", `{"name":"Fran","scoring_mode":"distance","category":"rx","max_points":100}`)

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.events, ShouldBeEmpty)
			})
		})

		Convey("When a score is posted", func() {
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod1","team_id":"A","raw_score":"10:00"}`)

			Convey("Then it is accepted", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(w.Body.String(), ShouldContainSubstring, `"result_id":"res-A"`)
				So(deps.inputs[0].RawScore.Text(), ShouldEqual, "10:00")
			})
		})

		Convey("When a numeric score is posted", func() {
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod2","team_id":"B","raw_score":150,"time_cap_reached":false}`)

			Convey("Then the number is kept", func() {
				So(w.Code, ShouldEqual, http.StatusAccepted)
				So(deps.inputs[0].RawScore.IsNumber(), ShouldBeTrue)
			})
		})

		Convey("When a score tries to set its own rank", func() {
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod1","team_id":"A","raw_score":"1:00","rank":1}`)

			Convey("Then the request is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(deps.inputs, ShouldBeEmpty)
			})
		})

		Convey("When a score misses its team", func() {
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod1","raw_score":"1:00"}`)

			Convey("Then it is a bad request", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(errorCode(w), ShouldEqual, "bad_request")
			})
		})

		Convey("When the queue is full", func() {
			deps.submitErr = fmt.Errorf("enqueue: %w", queue.ErrFull)
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod1","team_id":"A","raw_score":"1:00"}`)

			Convey("Then backpressure is reported", func() {
				So(w.Code, ShouldEqual, http.StatusTooManyRequests)
				So(errorCode(w), ShouldEqual, "backpressure")
			})
		})

		Convey("When the team is unknown", func() {
			deps.submitErr = fmt.Errorf("team: %w", repository.ErrNotFound)
			w := do(h, http.MethodPost, "/results", `{"event_id":"wod1","team_id":"Z","raw_score":"1:00"}`)

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When results are deleted", func() {
			ok := do(h, http.MethodDelete, "/results/r1", "")
			missing := do(h, http.MethodDelete, "/results/missing", "")

			Convey("Then known ones are accepted", func() {
				So(ok.Code, ShouldEqual, http.StatusAccepted)
				So(deps.deleted, ShouldResemble, []string{"r1"})
				So(missing.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When a raw mutation is posted", func() {
			ok := do(h, http.MethodPost, "/mutations", `{"delivery_id":"d1","before":{"id":"r1","team_id":"A"}}`)
			empty := do(h, http.MethodPost, "/mutations", `{}`)

			Convey("Then only shaped mutations are accepted", func() {
				So(ok.Code, ShouldEqual, http.StatusAccepted)
				So(deps.mutations[0].Kind(), ShouldEqual, model.MutationDelete)
				So(empty.Code, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When reading leaderboards", func() {
			board := do(h, http.MethodGet, "/categories/rx/standings", "")
			results := do(h, http.MethodGet, "/events/wod1/results", "")
			missing := do(h, http.MethodGet, "/events/nope/results", "")
			xlsx := do(h, http.MethodGet, "/categories/rx/standings.xlsx", "")

			Convey("Then each is served", func() {
				So(board.Code, ShouldEqual, http.StatusOK)
				So(board.Body.String(), ShouldContainSubstring, `"event_ranks":[1]`)
				So(results.Code, ShouldEqual, http.StatusOK)
				So(missing.Code, ShouldEqual, http.StatusNotFound)
				So(xlsx.Code, ShouldEqual, http.StatusOK)
				So(xlsx.Header().Get("Content-Type"), ShouldStartWith, "application/vnd.openxmlformats")
				So(xlsx.Body.String(), ShouldEqual, "xlsx:rx")
			})
		})

		Convey("When running admin operations", func() {
			del := do(h, http.MethodDelete, "/admin/events/wod1/results", "")
			recalc := do(h, http.MethodPost, "/admin/categories/rx/recalculate", "")

			Convey("Then reports are returned", func() {
				So(del.Code, ShouldEqual, http.StatusOK)
				So(del.Body.String(), ShouldContainSubstring, `"deleted_count":3`)
				So(recalc.Code, ShouldEqual, http.StatusOK)
				So(recalc.Body.String(), ShouldContainSubstring, `"updated_count":2`)
			})
		})

		Convey("When an admin operation fails", func() {
			deps.adminErr = fmt.Errorf("write: %w", engine.ErrPersist)
			w := do(h, http.MethodDelete, "/admin/events/wod1/results", "")

			Convey("Then 500 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				So(errorCode(w), ShouldEqual, "internal_error")
			})
		})

		Convey("When the route does not exist", func() {
			w := do(h, http.MethodGet, "/unknown", "")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})
	})
}

func TestAdminRateLimit(t *testing.T) {
	Convey("Given an admin limit of one request", t, func() {
		h := api.NewServer(&mockDependencies{}, &mockStatsProvider{}, api.WithAdminRateLimit(0.001, 1)).Handler()

		first := do(h, http.MethodPost, "/admin/categories/rx/recalculate", "")
		second := do(h, http.MethodPost, "/admin/categories/rx/recalculate", "")
		read := do(h, http.MethodGet, "/categories/rx/standings", "")

		Convey("Then the burst is enforced only on admin routes", func() {
			So(first.Code, ShouldEqual, http.StatusOK)
			So(second.Code, ShouldEqual, http.StatusTooManyRequests)
			So(errorCode(second), ShouldEqual, "rate_limited")
			So(read.Code, ShouldEqual, http.StatusOK)
		})
	})
}
