package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/okian/wodboard/internal/simulate"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/urfave/cli/v2"
)

// Default configuration constants.
const (
	defaultTeams       = 40
	defaultEvents      = 6
	defaultCorrections = 10
	defaultDeletions   = 3
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSettle      = time.Minute
	defaultRunTimeout  = 10 * time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app := &cli.App{
		Name:  "simulate",
		Usage: "drive a wodboard service with a generated competition and verify its standings",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service"},
			&cli.StringFlag{Name: "category", Value: "rx", Usage: "category of the generated teams and events"},
			&cli.IntFlag{Name: "teams", Value: defaultTeams, Usage: "number of teams to register"},
			&cli.IntFlag{Name: "events", Value: defaultEvents, Usage: "number of events to register"},
			&cli.IntFlag{Name: "corrections", Value: defaultCorrections, Usage: "results re-submitted with a new score"},
			&cli.IntFlag{Name: "deletions", Value: defaultDeletions, Usage: "results deleted after submission"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "concurrent submitters"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "settle", Value: defaultSettle, Usage: "how long to wait for standings to converge"},
			&cli.Int64Flag{Name: "seed", Usage: "faker seed; 0 picks a random one"},
			&cli.StringFlag{Name: "output", Usage: "write the generated competition as a seed file"},
			&cli.BoolFlag{Name: "verbose", Usage: "log every request"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(); err != nil {
				return err
			}
			if c.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}

			ctx, cancel := context.WithTimeout(c.Context, defaultRunTimeout)
			defer cancel()

			_, err := simulate.Run(ctx, &simulate.Config{
				BaseURL:     c.String("url"),
				Category:    c.String("category"),
				Teams:       c.Int("teams"),
				Events:      c.Int("events"),
				Corrections: c.Int("corrections"),
				Deletions:   c.Int("deletions"),
				Workers:     c.Int("workers"),
				Timeout:     c.Duration("timeout"),
				Settle:      c.Duration("settle"),
				Seed:        c.Int64("seed"),
				OutputFile:  c.String("output"),
				Verbose:     c.Bool("verbose"),
			})
			return err
		},
	}

	if err := app.RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString("simulation failed: " + err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}
