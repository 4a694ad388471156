// Package simulate drives a running wodboard API with a generated competition
// and checks the served standings against a local recomputation.
package simulate

import (
	"time"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/internal/domain/types"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL     string        // Base URL of the service
	Category    string        // Category every generated team and event joins
	Teams       int           // Number of teams to register
	Events      int           // Number of events to register
	Corrections int           // Results re-submitted with a new score
	Deletions   int           // Results deleted after submission
	Workers     int           // Concurrent submitters
	Timeout     time.Duration // HTTP request timeout
	Settle      time.Duration // How long to wait for standings to converge
	Seed        int64         // Faker seed; 0 picks a random one
	OutputFile  string        // Seed YAML of the generated competition
	Verbose     bool          // Log every request
}

// Plan is a generated competition.
type Plan struct {
	Category string
	Events   []model.Event
	Teams    []model.Team
	Results  []types.ResultInput
}

// Stats holds run statistics.
type Stats struct {
	ResultsSubmitted int
	ResultsFailed    int
	Corrected        int
	Deleted          int
	Retries          int
	Polls            int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
