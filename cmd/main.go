package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
)

func main() {
	// Our own system gauges replace the default Go and process collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:   "wodboard",
		Usage:  "WOD competition scoring and leaderboards",
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the HTTP API and the scoring workers",
				Action: serve,
			},
			{
				Name:  "recalculate",
				Usage: "rebuild team totals and standings of a category",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Required: true},
				},
				Action: recalculate,
			},
			{
				Name:  "delete-event-results",
				Usage: "delete every result of an event and rebuild the standings",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "event", Aliases: []string{"e"}, Required: true},
				},
				Action: deleteEventResults,
			},
			{
				Name:  "seed",
				Usage: "load events, teams and results from a YAML file",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true},
				},
				Action: seedStore,
			},
			{
				Name:  "export",
				Usage: "write the standings of a category to an xlsx workbook",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "category", Aliases: []string{"c"}, Required: true},
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "standings.xlsx"},
				},
				Action: exportStandings,
			},
		},
	}
}
