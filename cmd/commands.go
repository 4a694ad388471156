package main

import (
	"context"
	"fmt"
	"os"

	"github.com/okian/wodboard/internal/adapters/repository"
	service "github.com/okian/wodboard/internal/app"
	"github.com/okian/wodboard/internal/domain/types"
	"github.com/okian/wodboard/internal/engine"
	"github.com/okian/wodboard/internal/seed"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/urfave/cli/v2"
)

// withEngine runs fn against the configured store without starting workers.
func withEngine(c *cli.Context, fn func(ctx context.Context, store repository.Store, eng *engine.Engine, log logger.Logger) error) error {
	ctx := c.Context
	cfg, log, err := setup(ctx)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error(ctx, "failed to close store", logger.Error(err))
		}
	}()
	return fn(ctx, store, engine.New(store, engineOptions(cfg, log)...), log)
}

func printReport(c *cli.Context, r types.Report) {
	fmt.Fprintln(c.App.Writer, r.Message)
}

func recalculate(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, _ repository.Store, eng *engine.Engine, _ logger.Logger) error {
		report, err := eng.RecalculateCategory(ctx, c.String("category"))
		if err != nil {
			return err
		}
		printReport(c, report)
		return nil
	})
}

func deleteEventResults(c *cli.Context) error {
	return withEngine(c, func(ctx context.Context, _ repository.Store, eng *engine.Engine, _ logger.Logger) error {
		report, err := eng.DeleteAllResultsForEvent(ctx, c.String("event"))
		if err != nil {
			return err
		}
		printReport(c, report)
		return nil
	})
}

func seedStore(c *cli.Context) error {
	f, err := seed.LoadFile(c.String("file"))
	if err != nil {
		return err
	}
	return withEngine(c, func(ctx context.Context, store repository.Store, eng *engine.Engine, _ logger.Logger) error {
		sum, err := service.ApplySeed(ctx, store, eng, f)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Seeded %d events, %d teams and %d results\n", sum.Events, sum.Teams, sum.Results)
		return nil
	})
}

func exportStandings(c *cli.Context) error {
	out := c.String("out")
	return withEngine(c, func(ctx context.Context, store repository.Store, eng *engine.Engine, log logger.Logger) error {
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", out, err)
		}
		if err := service.WriteWorkbook(ctx, store, eng, c.String("category"), f); err != nil {
			_ = f.Close()
			_ = os.Remove(out)
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close %s: %w", out, err)
		}
		log.Info(ctx, "standings exported", logger.String("category", c.String("category")), logger.String("file", out))
		return nil
	})
}
