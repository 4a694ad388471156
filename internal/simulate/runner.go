package simulate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/okian/wodboard/internal/seed"
	"github.com/okian/wodboard/pkg/logger"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

// File permission constants.
const (
	directoryPermission = 0o750
	filePermission      = 0o600
)

const pollInterval = 250 * time.Millisecond

// ErrNotConverged is returned when the served standings never match the
// local recomputation within Config.Settle.
var ErrNotConverged = errors.New("standings did not converge")

// Run executes a complete simulation against cfg.BaseURL.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	stats := &Stats{StartTime: time.Now()}
	log := logger.Get().Named("simulate")
	client := NewClient(cfg.BaseURL, cfg.Timeout)

	log.Info(ctx, "starting simulation",
		logger.String("baseURL", cfg.BaseURL),
		logger.String("category", cfg.Category),
		logger.Int("teams", cfg.Teams),
		logger.Int("events", cfg.Events),
		logger.Int("workers", cfg.Workers),
		logger.Any("seed", cfg.Seed),
	)

	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	plan := Generate(cfg)
	if err := register(ctx, client, plan); err != nil {
		return stats, fmt.Errorf("registration failed: %w", err)
	}

	ids, err := submitAll(ctx, cfg, client, plan, stats, log)
	if err != nil {
		return stats, fmt.Errorf("result submission failed: %w", err)
	}

	if err := mutate(ctx, cfg, client, &plan, ids, stats); err != nil {
		return stats, fmt.Errorf("corrections failed: %w", err)
	}

	if cfg.OutputFile != "" {
		if err := SavePlan(cfg.OutputFile, plan); err != nil {
			log.Warn(ctx, "failed to save plan", logger.Error(err))
		} else {
			log.Info(ctx, "plan saved", logger.String("file", cfg.OutputFile))
		}
	}

	want := Expected(ctx, plan)
	err = awaitStandings(ctx, cfg, client, plan, want, stats, log)

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, log, stats, want)
	return stats, err
}

func register(ctx context.Context, client *Client, plan Plan) error {
	for _, ev := range plan.Events {
		if err := client.PutEvent(ctx, ev); err != nil {
			return err
		}
	}
	for _, t := range plan.Teams {
		if err := client.PutTeam(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// submitAll posts every result of plan concurrently and returns result ids by
// plan index.
func submitAll(ctx context.Context, cfg *Config, client *Client, plan Plan, stats *Stats, log logger.Logger) ([]string, error) {
	ids := make([]string, len(plan.Results))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(cfg.Workers, 1))
	for i, in := range plan.Results {
		g.Go(func() error {
			id, retries, err := client.SubmitResult(gctx, in)
			mu.Lock()
			defer mu.Unlock()
			stats.Retries += retries
			if err != nil {
				stats.ResultsFailed++
				return fmt.Errorf("team %s in %s: %w", in.TeamID, in.EventID, err)
			}
			stats.ResultsSubmitted++
			ids[i] = id
			if cfg.Verbose {
				log.Debug(gctx, "result submitted", logger.String("result_id", id), logger.Int("retries", retries))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Info(ctx, "results submitted",
		logger.Int("submitted", stats.ResultsSubmitted),
		logger.Int("retries", stats.Retries),
	)
	return ids, nil
}

// mutate re-scores the first Corrections results and deletes the next
// Deletions, updating plan to match.
func mutate(ctx context.Context, cfg *Config, client *Client, plan *Plan, ids []string, stats *Stats) error {
	faker := gofakeit.New(uint64(cfg.Seed) + 1)
	modes := make(map[string]model.ScoringMode, len(plan.Events))
	for _, ev := range plan.Events {
		modes[ev.ID] = ev.ScoringMode
	}

	n := min(cfg.Corrections, len(plan.Results))
	for i := 0; i < n; i++ {
		updated := correct(faker, modes[plan.Results[i].EventID], plan.Results[i])
		_, retries, err := client.SubmitResult(ctx, updated)
		stats.Retries += retries
		if err != nil {
			return err
		}
		plan.Results[i] = updated
		stats.Corrected++
	}

	end := min(n+cfg.Deletions, len(plan.Results))
	deleted := make(map[int]bool, end-n)
	for i := n; i < end; i++ {
		retries, err := client.DeleteResult(ctx, ids[i])
		stats.Retries += retries
		if err != nil {
			return err
		}
		deleted[i] = true
		stats.Deleted++
	}
	if len(deleted) == 0 {
		return nil
	}
	touched := make(map[string]bool, len(deleted))
	for i := range deleted {
		touched[plan.Results[i].EventID] = true
	}
	kept := plan.Results[:0:0]
	for i, in := range plan.Results {
		if !deleted[i] {
			kept = append(kept, in)
		}
	}
	plan.Results = kept

	// A delete leaves the other ranks of its event in place until the event
	// is scored again.
	for _, in := range plan.Results {
		if !touched[in.EventID] {
			continue
		}
		delete(touched, in.EventID)
		_, retries, err := client.SubmitResult(ctx, in)
		stats.Retries += retries
		if err != nil {
			return err
		}
	}
	return nil
}

// awaitStandings polls the served standings until they equal want. Halfway
// through Settle it re-submits one result per event so a ranking pass runs
// after every earlier one has finished.
func awaitStandings(ctx context.Context, cfg *Config, client *Client, plan Plan, want []types.StandingEntry, stats *Stats, log logger.Logger) error {
	deadline := time.Now().Add(cfg.Settle)
	nudgeAt := time.Now().Add(cfg.Settle / 2)
	nudged := false

	var diff string
	for {
		got, err := client.Standings(ctx, plan.Category)
		stats.Polls++
		if err == nil {
			diff = cmp.Diff(want, got)
			if diff == "" {
				log.Info(ctx, "standings verified", logger.Int("teams", len(got)), logger.Int("polls", stats.Polls))
				return nil
			}
		}

		now := time.Now()
		if now.After(deadline) {
			if err != nil {
				return fmt.Errorf("%w: %w", ErrNotConverged, err)
			}
			return fmt.Errorf("%w (-want +got):\n%s", ErrNotConverged, diff)
		}
		if !nudged && now.After(nudgeAt) {
			nudged = true
			if err := nudge(ctx, client, plan); err != nil {
				log.Warn(ctx, "failed to re-trigger ranking", logger.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func nudge(ctx context.Context, client *Client, plan Plan) error {
	seen := make(map[string]bool, len(plan.Events))
	for _, in := range plan.Results {
		if seen[in.EventID] {
			continue
		}
		seen[in.EventID] = true
		if _, _, err := client.SubmitResult(ctx, in); err != nil {
			return err
		}
	}
	return nil
}

// SavePlan writes plan as a seed file that reproduces the competition.
func SavePlan(path string, plan Plan) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	var f seed.File
	for _, ev := range plan.Events {
		f.Events = append(f.Events, seed.Event{
			ID:          ev.ID,
			Name:        ev.Name,
			ScoringMode: string(ev.ScoringMode),
			Category:    ev.Category,
			MaxPoints:   ev.MaxPoints,
			Status:      string(ev.Status),
			Order:       ev.Order,
			Description: ev.Description,
		})
	}
	for _, t := range plan.Teams {
		f.Teams = append(f.Teams, seed.Team{ID: t.ID, Name: t.Name, Category: t.Category, Box: t.Box})
	}
	for i, in := range plan.Results {
		var raw any
		switch {
		case in.RawScore.IsNumber():
			raw = in.RawScore.Number()
		case !in.RawScore.IsEmpty():
			raw = in.RawScore.Text()
		}
		f.Results = append(f.Results, seed.Result{
			ID:             fmt.Sprintf("%s-r%05d", plan.Category, i+1),
			TeamID:         in.TeamID,
			EventID:        in.EventID,
			RawScore:       raw,
			TimeCapReached: in.TimeCapReached,
			RepsRemaining:  in.RepsRemaining,
		})
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return fmt.Errorf("failed to write plan: %w", err)
	}
	return nil
}

func displayFinalStats(ctx context.Context, log logger.Logger, stats *Stats, want []types.StandingEntry) {
	var resultsPerSecond float64
	if stats.Duration > 0 {
		resultsPerSecond = float64(stats.ResultsSubmitted) / stats.Duration.Seconds()
	}
	leader := ""
	if len(want) > 0 {
		leader = want[0].TeamName
	}

	log.Info(ctx, "final statistics",
		logger.Int("resultsSubmitted", stats.ResultsSubmitted),
		logger.Int("resultsFailed", stats.ResultsFailed),
		logger.Int("corrected", stats.Corrected),
		logger.Int("deleted", stats.Deleted),
		logger.Int("retries", stats.Retries),
		logger.Int("polls", stats.Polls),
		logger.String("leader", leader),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("resultsPerSecond", resultsPerSecond),
	)
}
