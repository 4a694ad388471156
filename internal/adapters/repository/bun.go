package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	model "github.com/okian/wodboard/internal/domain/model"
	"github.com/okian/wodboard/pkg/logger"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

// Supported SQL drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type eventRow struct {
	bun.BaseModel `bun:"table:events,alias:e"`

	ID          string `bun:"id,pk"`
	Name        string `bun:"name,notnull"`
	ScoringMode string `bun:"scoring_mode,notnull"`
	Category    string `bun:"category,notnull"`
	MaxPoints   int    `bun:"max_points,notnull"`
	Status      string `bun:"status,notnull"`
	SortOrder   int    `bun:"sort_order,notnull"`
	Description string `bun:"description,notnull"`
}

type teamRow struct {
	bun.BaseModel `bun:"table:teams,alias:t"`

	ID           string `bun:"id,pk"`
	Name         string `bun:"name,notnull"`
	Category     string `bun:"category,notnull"`
	Box          string `bun:"box,notnull"`
	TotalPoints  int    `bun:"total_points,notnull"`
	CategoryRank int    `bun:"category_rank,notnull"`
}

type resultRow struct {
	bun.BaseModel `bun:"table:results,alias:r"`

	ID             string `bun:"id,pk"`
	TeamID         string `bun:"team_id,notnull"`
	EventID        string `bun:"event_id,notnull"`
	Category       string `bun:"category,notnull"`
	RawScore       string `bun:"raw_score,notnull"`
	RawNumeric     bool   `bun:"raw_numeric,notnull"`
	TimeCapReached bool   `bun:"time_cap_reached,notnull"`
	RepsRemaining  int    `bun:"reps_remaining,notnull"`
	EventRank      int    `bun:"event_rank,notnull"`
	AwardedPoints  int    `bun:"awarded_points,notnull"`
}

func toEventRow(e model.Event) *eventRow {
	return &eventRow{
		ID: e.ID, Name: e.Name, ScoringMode: string(e.ScoringMode), Category: e.Category,
		MaxPoints: e.MaxPoints, Status: string(e.Status), SortOrder: e.Order, Description: e.Description,
	}
}

func (r *eventRow) model() model.Event {
	return model.Event{
		ID: r.ID, Name: r.Name, ScoringMode: model.ScoringMode(r.ScoringMode), Category: r.Category,
		MaxPoints: r.MaxPoints, Status: model.EventStatus(r.Status), Order: r.SortOrder, Description: r.Description,
	}
}

func toTeamRow(t model.Team) *teamRow {
	return &teamRow{
		ID: t.ID, Name: t.Name, Category: t.Category, Box: t.Box,
		TotalPoints: t.TotalPoints, CategoryRank: t.CategoryRank,
	}
}

func (r *teamRow) model() model.Team {
	return model.Team{
		ID: r.ID, Name: r.Name, Category: r.Category, Box: r.Box,
		TotalPoints: r.TotalPoints, CategoryRank: r.CategoryRank,
	}
}

func toResultRow(res model.Result) *resultRow {
	return &resultRow{
		ID: res.ID, TeamID: res.TeamID, EventID: res.EventID, Category: res.Category,
		RawScore: res.RawScore.Text(), RawNumeric: res.RawScore.IsNumber(),
		TimeCapReached: res.TimeCapReached, RepsRemaining: res.RepsRemaining,
		EventRank: res.Rank, AwardedPoints: res.AwardedPoints,
	}
}

func (r *resultRow) model() model.Result {
	raw := model.TextScore(r.RawScore)
	if r.RawNumeric {
		if v, ok := parseStoredNumber(r.RawScore); ok {
			raw = model.NumberScore(v)
		}
	}
	return model.Result{
		ID: r.ID, TeamID: r.TeamID, EventID: r.EventID, Category: r.Category,
		RawScore: raw, TimeCapReached: r.TimeCapReached, RepsRemaining: r.RepsRemaining,
		Rank: r.EventRank, AwardedPoints: r.AwardedPoints,
	}
}

// BunStore is a Store backed by SQLite or Postgres through bun.
type BunStore struct {
	db     *bun.DB
	driver string
	opts   storeOptions
	log    logger.Logger
}

// OpenBunStore connects to driver/dsn and creates the schema if missing.
func OpenBunStore(ctx context.Context, driver, dsn string, opts ...Option) (*BunStore, error) {
	var db *bun.DB
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite", dsn)
		if err != nil {
			return nil, fmt.Errorf("repository.OpenBunStore: open sqlite: %w", err)
		}
		// One connection keeps shared in-memory databases and write ordering sane.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, fmt.Errorf("repository.OpenBunStore: %q: %w", driver, ErrUnknownDriver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("repository.OpenBunStore: ping %s: %w", driver, err)
	}

	o := newStoreOptions(opts)
	s := &BunStore{db: db, driver: driver, opts: o, log: o.log}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	s.log.Info(ctx, "store ready", logger.String("driver", driver))
	return s, nil
}

// Migrate creates tables and indexes if they do not exist.
func (s *BunStore) Migrate(ctx context.Context) error {
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, m := range []any{(*eventRow)(nil), (*teamRow)(nil), (*resultRow)(nil)} {
			if _, err := tx.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("repository.Migrate: create table: %w", err)
			}
		}
		indexes := []struct {
			model   any
			name    string
			columns []string
		}{
			{(*resultRow)(nil), "idx_results_event_category", []string{"event_id", "category"}},
			{(*resultRow)(nil), "idx_results_team", []string{"team_id"}},
			{(*teamRow)(nil), "idx_teams_category", []string{"category"}},
		}
		for _, idx := range indexes {
			if _, err := tx.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists().Exec(ctx); err != nil {
				return fmt.Errorf("repository.Migrate: create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
}

// DB exposes the underlying handle.
func (s *BunStore) DB() *bun.DB { return s.db }

// BatchLimit implements Repository.
func (s *BunStore) BatchLimit() int { return s.opts.batchLimit }

// GetEvent implements Repository.
func (s *BunStore) GetEvent(ctx context.Context, id string) (model.Event, bool, error) {
	defer observe("get_event", time.Now())
	row := new(eventRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Event{}, false, nil
		}
		return model.Event{}, false, fmt.Errorf("repository.GetEvent: %w", err)
	}
	return row.model(), true, nil
}

// GetTeam implements Repository.
func (s *BunStore) GetTeam(ctx context.Context, id string) (model.Team, bool, error) {
	defer observe("get_team", time.Now())
	row := new(teamRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Team{}, false, nil
		}
		return model.Team{}, false, fmt.Errorf("repository.GetTeam: %w", err)
	}
	return row.model(), true, nil
}

// GetResult implements Store.
func (s *BunStore) GetResult(ctx context.Context, id string) (model.Result, bool, error) {
	defer observe("get_result", time.Now())
	row := new(resultRow)
	if err := s.db.NewSelect().Model(row).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Result{}, false, nil
		}
		return model.Result{}, false, fmt.Errorf("repository.GetResult: %w", err)
	}
	return row.model(), true, nil
}

// QueryResults implements Repository.
func (s *BunStore) QueryResults(ctx context.Context, f ResultFilter) ([]model.Result, error) {
	defer observe("query_results", time.Now())
	var rows []resultRow
	q := s.db.NewSelect().Model(&rows).Order("id")
	if f.EventID != "" {
		q = q.Where("event_id = ?", f.EventID)
	}
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if f.TeamID != "" {
		q = q.Where("team_id = ?", f.TeamID)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("repository.QueryResults: %w", err)
	}
	out := make([]model.Result, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out, nil
}

// QueryTeams implements Repository.
func (s *BunStore) QueryTeams(ctx context.Context, f TeamFilter) ([]model.Team, error) {
	defer observe("query_teams", time.Now())
	var rows []teamRow
	q := s.db.NewSelect().Model(&rows).Order("id")
	if f.Category != "" {
		q = q.Where("category = ?", f.Category)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("repository.QueryTeams: %w", err)
	}
	out := make([]model.Team, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out, nil
}

// ListEvents implements Store.
func (s *BunStore) ListEvents(ctx context.Context, category string) ([]model.Event, error) {
	defer observe("list_events", time.Now())
	var rows []eventRow
	q := s.db.NewSelect().Model(&rows).Order("sort_order", "id")
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("repository.ListEvents: %w", err)
	}
	out := make([]model.Event, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].model())
	}
	return out, nil
}

// BatchWrite implements Repository as one transaction.
func (s *BunStore) BatchWrite(ctx context.Context, ops []Op) error {
	defer observe("batch_write", time.Now())
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > s.opts.batchLimit {
		return fmt.Errorf("repository.BatchWrite: %d ops, limit %d: %w", len(ops), s.opts.batchLimit, ErrBatchTooLarge)
	}

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for _, op := range ops {
			if err := applyOp(ctx, tx, op); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log.Warn(ctx, "batch rolled back", logger.Int("ops", len(ops)), logger.Error(err))
		return fmt.Errorf("repository.BatchWrite: %w: %w", ErrBatchFailed, err)
	}
	return nil
}

func applyOp(ctx context.Context, tx bun.Tx, op Op) error {
	var (
		res sql.Result
		err error
	)
	switch op.Kind {
	case OpSetResultRanking:
		res, err = tx.NewUpdate().Model((*resultRow)(nil)).
			Set("event_rank = ?", op.Rank).
			Set("awarded_points = ?", op.Points).
			Where("id = ?", op.ID).
			Exec(ctx)
	case OpSetTeamTotal:
		res, err = tx.NewUpdate().Model((*teamRow)(nil)).
			Set("total_points = ?", op.Points).
			Where("id = ?", op.ID).
			Exec(ctx)
	case OpSetTeamRank:
		res, err = tx.NewUpdate().Model((*teamRow)(nil)).
			Set("category_rank = ?", op.Rank).
			Where("id = ?", op.ID).
			Exec(ctx)
	case OpDeleteResult:
		_, err = tx.NewDelete().Model((*resultRow)(nil)).Where("id = ?", op.ID).Exec(ctx)
		return err
	default:
		return fmt.Errorf("op kind %d: %w", op.Kind, ErrInvalidRecord)
	}
	if err != nil {
		return fmt.Errorf("%s %q: %w", op.Kind, op.ID, err)
	}
	return checkAffected(res, op)
}

// checkAffected reports ErrNotFound when an update matched no row.
func checkAffected(res sql.Result, op Op) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s %q: rows affected: %w", op.Kind, op.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %q: %w", op.Kind, op.ID, ErrNotFound)
	}
	return nil
}

// PutEvent implements Store.
func (s *BunStore) PutEvent(ctx context.Context, e model.Event) error {
	defer observe("put_event", time.Now())
	if e.ID == "" {
		return fmt.Errorf("repository.PutEvent: empty id: %w", ErrInvalidRecord)
	}
	_, err := s.db.NewInsert().Model(toEventRow(e)).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("scoring_mode = EXCLUDED.scoring_mode").
		Set("category = EXCLUDED.category").
		Set("max_points = EXCLUDED.max_points").
		Set("status = EXCLUDED.status").
		Set("sort_order = EXCLUDED.sort_order").
		Set("description = EXCLUDED.description").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.PutEvent: %w", err)
	}
	return nil
}

// PutTeam implements Store.
func (s *BunStore) PutTeam(ctx context.Context, t model.Team) error {
	defer observe("put_team", time.Now())
	if t.ID == "" {
		return fmt.Errorf("repository.PutTeam: empty id: %w", ErrInvalidRecord)
	}
	_, err := s.db.NewInsert().Model(toTeamRow(t)).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("category = EXCLUDED.category").
		Set("box = EXCLUDED.box").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.PutTeam: %w", err)
	}
	return nil
}

// PutResult implements Store.
func (s *BunStore) PutResult(ctx context.Context, r model.Result) error {
	defer observe("put_result", time.Now())
	if r.ID == "" {
		return fmt.Errorf("repository.PutResult: empty id: %w", ErrInvalidRecord)
	}
	_, err := s.db.NewInsert().Model(toResultRow(r)).
		On("CONFLICT (id) DO UPDATE").
		Set("team_id = EXCLUDED.team_id").
		Set("event_id = EXCLUDED.event_id").
		Set("category = EXCLUDED.category").
		Set("raw_score = EXCLUDED.raw_score").
		Set("raw_numeric = EXCLUDED.raw_numeric").
		Set("time_cap_reached = EXCLUDED.time_cap_reached").
		Set("reps_remaining = EXCLUDED.reps_remaining").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("repository.PutResult: %w", err)
	}
	return nil
}

// Count implements Store.
func (s *BunStore) Count(ctx context.Context) (Counts, error) {
	var c Counts
	var err error
	if c.Events, err = s.db.NewSelect().Model((*eventRow)(nil)).Count(ctx); err != nil {
		return Counts{}, fmt.Errorf("repository.Count: events: %w", err)
	}
	if c.Teams, err = s.db.NewSelect().Model((*teamRow)(nil)).Count(ctx); err != nil {
		return Counts{}, fmt.Errorf("repository.Count: teams: %w", err)
	}
	if c.Results, err = s.db.NewSelect().Model((*resultRow)(nil)).Count(ctx); err != nil {
		return Counts{}, fmt.Errorf("repository.Count: results: %w", err)
	}
	return c, nil
}

// Close closes the database handle.
func (s *BunStore) Close() error {
	return s.db.Close()
}
