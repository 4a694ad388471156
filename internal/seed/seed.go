// Package seed loads events, teams and optional results from a YAML file
// into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/okian/wodboard/internal/adapters/repository"
	model "github.com/okian/wodboard/internal/domain/model"
	"gopkg.in/yaml.v3"
)

// ErrInvalidSeed is wrapped by every validation failure.
var ErrInvalidSeed = errors.New("invalid seed")

// File is the seed document.
type File struct {
	Events  []Event  `yaml:"events"`
	Teams   []Team   `yaml:"teams"`
	Results []Result `yaml:"results"`
}

// Event is an event entry.
type Event struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	ScoringMode string `yaml:"scoring_mode"`
	Category    string `yaml:"category"`
	MaxPoints   int    `yaml:"max_points"`
	Status      string `yaml:"status"`
	Order       int    `yaml:"order"`
	Description string `yaml:"description"`
}

// Team is a team entry.
type Team struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
	Box      string `yaml:"box"`
}

// Result is a result entry. RawScore may be a string or a number.
type Result struct {
	ID             string `yaml:"id"`
	TeamID         string `yaml:"team_id"`
	EventID        string `yaml:"event_id"`
	RawScore       any    `yaml:"raw_score"`
	TimeCapReached bool   `yaml:"time_cap_reached"`
	RepsRemaining  int    `yaml:"reps_remaining"`
}

// Summary reports what Apply wrote.
type Summary struct {
	Events  int
	Teams   int
	Results int
	// EventIDs are the events that received results, in file order.
	EventIDs []string
}

// LoadFile reads a seed file from disk.
func LoadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("seed.LoadFile: %w", err)
	}
	defer fh.Close()
	return Load(fh)
}

// Load decodes and validates a seed document.
func Load(r io.Reader) (File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return File{}, fmt.Errorf("seed.Load: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate checks ids, scoring modes and references.
func (f File) Validate() error {
	events := make(map[string]struct{}, len(f.Events))
	for i, e := range f.Events {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: events[%d]: id is required", ErrInvalidSeed, i)
		}
		if _, dup := events[e.ID]; dup {
			return fmt.Errorf("%w: events[%d]: duplicate id %q", ErrInvalidSeed, i, e.ID)
		}
		if _, ok := model.ParseScoringMode(e.ScoringMode); !ok {
			return fmt.Errorf("%w: event %q: unknown scoring mode %q", ErrInvalidSeed, e.ID, e.ScoringMode)
		}
		if e.MaxPoints <= 0 {
			return fmt.Errorf("%w: event %q: max_points must be positive", ErrInvalidSeed, e.ID)
		}
		events[e.ID] = struct{}{}
	}

	teams := make(map[string]struct{}, len(f.Teams))
	for i, t := range f.Teams {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("%w: teams[%d]: id is required", ErrInvalidSeed, i)
		}
		if _, dup := teams[t.ID]; dup {
			return fmt.Errorf("%w: teams[%d]: duplicate id %q", ErrInvalidSeed, i, t.ID)
		}
		teams[t.ID] = struct{}{}
	}

	for i, r := range f.Results {
		if strings.TrimSpace(r.ID) == "" {
			return fmt.Errorf("%w: results[%d]: id is required", ErrInvalidSeed, i)
		}
		if _, ok := events[r.EventID]; !ok {
			return fmt.Errorf("%w: result %q: unknown event %q", ErrInvalidSeed, r.ID, r.EventID)
		}
		if _, ok := teams[r.TeamID]; !ok {
			return fmt.Errorf("%w: result %q: unknown team %q", ErrInvalidSeed, r.ID, r.TeamID)
		}
		if _, err := rawScore(r.RawScore); err != nil {
			return fmt.Errorf("%w: result %q: %w", ErrInvalidSeed, r.ID, err)
		}
	}
	return nil
}

// Apply upserts the document into s. Results take the category of their
// team. Ranking is left to the caller.
func Apply(ctx context.Context, s repository.Store, f File) (Summary, error) {
	var sum Summary
	for _, e := range f.Events {
		mode, _ := model.ParseScoringMode(e.ScoringMode)
		status := model.EventStatus(e.Status)
		if status == "" {
			status = model.StatusNotStarted
		}
		ev := model.Event{
			ID:          e.ID,
			Name:        e.Name,
			ScoringMode: mode,
			Category:    e.Category,
			MaxPoints:   e.MaxPoints,
			Status:      status,
			Order:       e.Order,
			Description: e.Description,
		}
		if err := s.PutEvent(ctx, ev); err != nil {
			return sum, fmt.Errorf("seed.Apply: event %q: %w", e.ID, err)
		}
		sum.Events++
	}

	categories := make(map[string]string, len(f.Teams))
	for _, t := range f.Teams {
		if err := s.PutTeam(ctx, model.Team{ID: t.ID, Name: t.Name, Category: t.Category, Box: t.Box}); err != nil {
			return sum, fmt.Errorf("seed.Apply: team %q: %w", t.ID, err)
		}
		categories[t.ID] = t.Category
		sum.Teams++
	}

	seen := make(map[string]struct{})
	for _, r := range f.Results {
		score, _ := rawScore(r.RawScore)
		res := model.Result{
			ID:             r.ID,
			TeamID:         r.TeamID,
			EventID:        r.EventID,
			Category:       categories[r.TeamID],
			RawScore:       score,
			TimeCapReached: r.TimeCapReached,
			RepsRemaining:  r.RepsRemaining,
		}
		if err := s.PutResult(ctx, res); err != nil {
			return sum, fmt.Errorf("seed.Apply: result %q: %w", r.ID, err)
		}
		sum.Results++
		if _, ok := seen[r.EventID]; !ok {
			seen[r.EventID] = struct{}{}
			sum.EventIDs = append(sum.EventIDs, r.EventID)
		}
	}
	return sum, nil
}

func rawScore(v any) (model.RawScore, error) {
	switch x := v.(type) {
	case nil:
		return model.RawScore{}, nil
	case string:
		return model.TextScore(x), nil
	case int:
		return model.NumberScore(float64(x)), nil
	case float64:
		return model.NumberScore(x), nil
	default:
		return model.RawScore{}, fmt.Errorf("raw_score must be a string or a number, got %T", v)
	}
}
