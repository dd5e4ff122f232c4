package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// =============================================================================
// SQLiteStore
// =============================================================================

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore creates a new SQLite store and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite3", dsn+"?_foreign_keys=on")
	if err != nil {
		return nil, NewStoreError("NewSQLiteStore", "", "failed to open database", ErrConnectionFailed)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", "failed to ping database", ErrConnectionFailed)
	}

	if err := runMigrations(db.DB); err != nil {
		db.Close()
		return nil, NewStoreError("NewSQLiteStore", "", err.Error(), ErrMigrationFailed)
	}

	return &SQLiteStore{db: db}, nil
}

// runMigrations runs database migrations using embedded SQL files.
func runMigrations(db *sql.DB) error {
	driver, err := sqlite3.WithInstance(db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// =============================================================================
// Row Mapping
// =============================================================================

// timeLayout pads nanoseconds to fixed width so lexicographic TEXT ordering
// in SQLite matches chronological ordering. RFC3339Nano drops trailing
// zeros, which would sort "...05Z" after "...05.5Z" within the same second.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// runRow represents a run row in the database.
type runRow struct {
	ID         string  `db:"id"`
	Command    string  `db:"command"`
	Outcome    string  `db:"outcome"`
	Services   *string `db:"services"`
	StartedAt  string  `db:"started_at"`
	FinishedAt string  `db:"finished_at"`
}

func toRow(run *Run) (*runRow, error) {
	row := &runRow{
		ID:         run.ID,
		Command:    run.Command,
		Outcome:    run.Outcome,
		StartedAt:  run.StartedAt.UTC().Format(timeLayout),
		FinishedAt: run.FinishedAt.UTC().Format(timeLayout),
	}

	if len(run.Services) > 0 {
		data, err := json.Marshal(run.Services)
		if err != nil {
			return nil, NewStoreError("toRow", run.ID, "failed to marshal services", ErrInvalidData)
		}
		s := string(data)
		row.Services = &s
	}

	return row, nil
}

func fromRow(row *runRow) (*Run, error) {
	run := &Run{
		ID:      row.ID,
		Command: row.Command,
		Outcome: row.Outcome,
	}

	var err error
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, row.StartedAt); err != nil {
		return nil, NewStoreError("fromRow", row.ID, "invalid started_at", ErrInvalidData)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, row.FinishedAt); err != nil {
		return nil, NewStoreError("fromRow", row.ID, "invalid finished_at", ErrInvalidData)
	}

	if row.Services != nil && *row.Services != "" {
		if err := json.Unmarshal([]byte(*row.Services), &run.Services); err != nil {
			return nil, NewStoreError("fromRow", row.ID, "failed to unmarshal services", ErrInvalidData)
		}
	}

	return run, nil
}

// =============================================================================
// Run Operations
// =============================================================================

// RecordRun inserts a run record. An empty ID is assigned a fresh UUID.
func (s *SQLiteStore) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	row, err := toRow(run)
	if err != nil {
		return err
	}

	const query = `
		INSERT INTO runs (id, command, outcome, services, started_at, finished_at)
		VALUES (:id, :command, :outcome, :services, :started_at, :finished_at)`

	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return NewStoreError("RecordRun", run.ID, err.Error(), err)
	}
	return nil
}

// GetRun returns the run with the given ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("GetRun", id, "run not found", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("GetRun", id, err.Error(), err)
	}
	return fromRow(&row)
}

// LastRun returns the most recently started run.
func (s *SQLiteStore) LastRun(ctx context.Context) (*Run, error) {
	var row runRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM runs ORDER BY started_at DESC LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewStoreError("LastRun", "", "no runs recorded", ErrNotFound)
	}
	if err != nil {
		return nil, NewStoreError("LastRun", "", err.Error(), err)
	}
	return fromRow(&row)
}

// ListRuns returns up to limit runs, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows []runRow
	err := s.db.SelectContext(ctx, &rows, `SELECT * FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, NewStoreError("ListRuns", "", err.Error(), err)
	}

	runs := make([]Run, 0, len(rows))
	for i := range rows {
		run, err := fromRow(&rows[i])
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, nil
}
