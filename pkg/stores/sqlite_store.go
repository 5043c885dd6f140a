package stores

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"

	"github.com/milestoner/milestoner/pkg/engine"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db  *sql.DB
	cfg Config
	now func() time.Time
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	// Set defaults
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 25
	}
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 5
	}
	if cfg.ConnMaxLifetime == 0 {
		cfg.ConnMaxLifetime = 5 * time.Minute
	}

	// Every connection to :memory: opens a separate database.
	if isMemory(cfg.Path) {
		cfg.MaxOpenConns = 1
		cfg.MaxIdleConns = 1
		cfg.ConnMaxLifetime = 0
	}

	return &SQLiteStore{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

// Init opens the database connection. File databases use WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	pragmas := []string{"_pragma=foreign_keys(1)", "_pragma=busy_timeout(5000)"}
	if !isMemory(s.cfg.Path) {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)", "_pragma=synchronous(NORMAL)")
	}
	sep := "?"
	if strings.Contains(s.cfg.Path, "?") {
		sep = "&"
	}
	dsn := s.cfg.Path + sep + strings.Join(pragmas, "&")

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(s.cfg.MaxOpenConns)
	db.SetMaxIdleConns(s.cfg.MaxIdleConns)
	db.SetConnMaxLifetime(s.cfg.ConnMaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// CreateRun creates a new run record. An empty ID is replaced by a new UUID.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	now := s.now()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.Status == "" {
		run.Status = RunStatusRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.Summary == "" {
		run.Summary = "{}"
	}
	if run.Config == "" {
		run.Config = "{}"
	}
	run.CreatedAt = now
	run.UpdatedAt = now

	query := `
		INSERT INTO runs (id, timeline, input_path, output_path, format, status, started_at,
			completed_at, error, plan_id, plan_created_at, summary, config, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Timeline,
		run.InputPath,
		run.OutputPath,
		run.Format,
		run.Status,
		run.StartedAt.UTC(),
		run.CompletedAt,
		run.Error,
		run.PlanID,
		run.PlanCreatedAt,
		run.Summary,
		run.Config,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

const runColumns = `id, timeline, input_path, output_path, format, status, started_at, completed_at,
	error, plan_id, plan_created_at, summary, config, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	err := row.Scan(
		&run.ID,
		&run.Timeline,
		&run.InputPath,
		&run.OutputPath,
		&run.Format,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.PlanID,
		&run.PlanCreatedAt,
		&run.Summary,
		&run.Config,
		&run.CreatedAt,
		&run.UpdatedAt,
	)
	return run, err
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// CompleteRun records the final status of a run.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := s.now()
	result, err := s.db.ExecContext(ctx, query, status, errMsg, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	return expectOneRow(result, "run", id)
}

// UpdateRunOutput records where a run's output was written.
func (s *SQLiteStore) UpdateRunOutput(ctx context.Context, id, outputPath, format string) error {
	query := `UPDATE runs SET output_path = ?, format = ?, updated_at = ? WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, outputPath, format, s.now(), id)
	if err != nil {
		return fmt.Errorf("failed to update run output: %w", err)
	}

	return expectOneRow(result, "run", id)
}

// ListRuns lists runs newest first. An empty timeline matches every run.
func (s *SQLiteStore) ListRuns(ctx context.Context, timeline string, limit, offset int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `SELECT ` + runColumns + `
		FROM runs
		WHERE (? = '' OR timeline = ?)
		ORDER BY started_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, timeline, timeline, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run and, through the foreign keys, its plan and events.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := `DELETE FROM runs WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	return expectOneRow(result, "run", id)
}

// SaveDrawPlan stores a plan for a run in one transaction, replacing any
// plan saved for the run before.
func (s *SQLiteStore) SaveDrawPlan(ctx context.Context, runID string, plan *engine.DrawPlan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}

	summary, err := json.Marshal(plan.Summary)
	if err != nil {
		return fmt.Errorf("failed to encode plan summary: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx,
		`UPDATE runs SET plan_id = ?, plan_created_at = ?, summary = ?, updated_at = ? WHERE id = ?`,
		plan.ID, plan.CreatedAt.UTC(), string(summary), s.now(), runID)
	if err != nil {
		return fmt.Errorf("failed to update run plan: %w", err)
	}
	if err := expectOneRow(result, "run", runID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM draw_ops WHERE run_id = ?`, runID); err != nil {
		return fmt.Errorf("failed to clear draw ops: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO draw_ops (run_id, seq, kind, milestone, category, payload)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare draw op insert: %w", err)
	}
	defer stmt.Close()

	for seq, op := range plan.Ops() {
		var (
			payload   []byte
			milestone int
			category  string
		)
		switch op.Kind {
		case engine.OpConnector:
			payload, err = json.Marshal(op.Connector)
			milestone = op.Connector.Milestone
		default:
			payload, err = json.Marshal(op.Shape)
			milestone = op.Shape.Milestone
			category = op.Shape.Category
		}
		if err != nil {
			return fmt.Errorf("failed to encode draw op %d: %w", seq, err)
		}

		if _, err := stmt.ExecContext(ctx, runID, seq, op.Kind, milestone, category, string(payload)); err != nil {
			return fmt.Errorf("failed to insert draw op %d: %w", seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit plan: %w", err)
	}
	return nil
}

// ListDrawOps returns a run's stored operations in draw order.
func (s *SQLiteStore) ListDrawOps(ctx context.Context, runID string) ([]*DrawOpRecord, error) {
	query := `
		SELECT id, run_id, seq, kind, milestone, category, payload
		FROM draw_ops
		WHERE run_id = ?
		ORDER BY seq
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list draw ops: %w", err)
	}
	defer rows.Close()

	ops := []*DrawOpRecord{}
	for rows.Next() {
		op := &DrawOpRecord{}
		if err := rows.Scan(&op.ID, &op.RunID, &op.Seq, &op.Kind, &op.Milestone, &op.Category, &op.Payload); err != nil {
			return nil, fmt.Errorf("failed to scan draw op: %w", err)
		}
		ops = append(ops, op)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating draw ops: %w", err)
	}

	return ops, nil
}

// LoadDrawPlan rebuilds the plan saved for a run.
func (s *SQLiteStore) LoadDrawPlan(ctx context.Context, runID string) (*engine.DrawPlan, error) {
	run, err := s.GetRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	if run.PlanID == nil {
		return nil, fmt.Errorf("plan for run %s: %w", runID, ErrNotFound)
	}

	plan := &engine.DrawPlan{
		ID:         *run.PlanID,
		Timeline:   run.Timeline,
		Connectors: []engine.ConnectorOp{},
		Markers:    []engine.ShapeOp{},
		Labels:     []engine.ShapeOp{},
	}
	if run.PlanCreatedAt != nil {
		plan.CreatedAt = *run.PlanCreatedAt
	}
	if err := json.Unmarshal([]byte(run.Summary), &plan.Summary); err != nil {
		return nil, fmt.Errorf("failed to decode plan summary: %w", err)
	}

	records, err := s.ListDrawOps(ctx, runID)
	if err != nil {
		return nil, err
	}

	for _, rec := range records {
		switch rec.Kind {
		case engine.OpConnector:
			var c engine.ConnectorOp
			if err := json.Unmarshal([]byte(rec.Payload), &c); err != nil {
				return nil, fmt.Errorf("failed to decode draw op %d: %w", rec.Seq, err)
			}
			plan.Connectors = append(plan.Connectors, c)
		case engine.OpMarker, engine.OpLabel:
			var shape engine.ShapeOp
			if err := json.Unmarshal([]byte(rec.Payload), &shape); err != nil {
				return nil, fmt.Errorf("failed to decode draw op %d: %w", rec.Seq, err)
			}
			if rec.Kind == engine.OpMarker {
				plan.Markers = append(plan.Markers, shape)
			} else {
				plan.Labels = append(plan.Labels, shape)
			}
		default:
			return nil, fmt.Errorf("unknown draw op kind %q at %d", rec.Kind, rec.Seq)
		}
	}

	return plan, nil
}

// AppendEvent appends a new event to the log
func (s *SQLiteStore) AppendEvent(ctx context.Context, event *Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	query := `
		INSERT INTO events (run_id, level, message, details, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		event.RunID,
		event.Level,
		event.Message,
		event.Details,
		event.Timestamp.UTC(),
	)

	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get event ID: %w", err)
	}

	event.ID = id
	return nil
}

// GetEvents retrieves events in the order they were appended, with optional
// filters and pagination
func (s *SQLiteStore) GetEvents(ctx context.Context, runID *string, level *EventLevel, limit, offset int) ([]*Event, error) {
	if limit <= 0 {
		limit = -1
	}
	query := `
		SELECT id, run_id, level, message, details, timestamp
		FROM events
		WHERE (? IS NULL OR run_id = ?)
		  AND (? IS NULL OR level = ?)
		ORDER BY id
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, runID, level, level, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []*Event{}
	for rows.Next() {
		event := &Event{}
		err := rows.Scan(
			&event.ID,
			&event.RunID,
			&event.Level,
			&event.Message,
			&event.Details,
			&event.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating events: %w", err)
	}

	return events, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}

func expectOneRow(result sql.Result, what, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("%s %s: %w", what, id, ErrNotFound)
	}

	return nil
}
