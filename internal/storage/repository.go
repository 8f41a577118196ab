// Package storage keeps the last imported ride snapshot in SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ridesdash/internal/core"
	"ridesdash/internal/records"

	_ "modernc.org/sqlite"
)

// ErrNoImport is returned by LastImport before the first import.
var ErrNoImport = errors.New("no import recorded")

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var (
	_ records.Loader  = (*SQLiteRepository)(nil)
	_ records.Checker = (*SQLiteRepository)(nil)
)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	schema, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	slog.Debug("SQLite schema ready", "version", schema.Version, "path", dbPath)

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ReplaceSnapshot swaps the stored snapshot for snap and records imp, in one
// transaction. Readers see either the old or the new snapshot, never a mix.
func (r *SQLiteRepository) ReplaceSnapshot(ctx context.Context, imp core.Import, snap core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.ClearSnapshot(ctx); err != nil {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	for i, l := range snap.Locations {
		if err := q.InsertLocation(ctx, i, l); err != nil {
			return fmt.Errorf("insert location %d: %w", i, err)
		}
	}
	for i, c := range snap.Categories {
		if err := q.InsertCategory(ctx, i, c); err != nil {
			return fmt.Errorf("insert category %d: %w", i, err)
		}
	}
	for i, ride := range snap.Rides {
		if err := q.InsertRide(ctx, i, ride); err != nil {
			return fmt.Errorf("insert ride %d: %w", i, err)
		}
	}
	if err := q.InsertImport(ctx, imp); err != nil {
		return fmt.Errorf("insert import: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot stored in SQLite",
		"import_id", imp.ID,
		"source", imp.Source,
		"locations", len(snap.Locations),
		"categories", len(snap.Categories),
		"rides", len(snap.Rides))
	return nil
}

// Load implements records.Loader. Rows come back in their source order.
func (r *SQLiteRepository) Load(ctx context.Context) (core.Snapshot, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	locations, err := q.ListLocations(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list locations: %w", err)
	}
	categories, err := q.ListCategories(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list categories: %w", err)
	}
	rides, err := q.ListRides(ctx)
	if err != nil {
		return core.Snapshot{}, fmt.Errorf("list rides: %w", err)
	}
	return core.Snapshot{Locations: locations, Categories: categories, Rides: rides}, nil
}

// Check implements records.Checker: the database answers and no migration
// was left half applied.
func (r *SQLiteRepository) Check(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	var dirty bool
	err := r.db.QueryRowContext(ctx, "SELECT dirty FROM "+migrationsTable+" LIMIT 1").Scan(&dirty)
	if err != nil {
		return fmt.Errorf("read schema state: %w", err)
	}
	if dirty {
		return errors.New("database schema is dirty: a migration did not complete")
	}
	return nil
}

// LastImport returns the most recent import, or ErrNoImport.
func (r *SQLiteRepository) LastImport(ctx context.Context) (core.Import, error) {
	imp, at, err := r.queries.GetLastImport(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Import{}, ErrNoImport
	}
	if err != nil {
		return core.Import{}, fmt.Errorf("get last import: %w", err)
	}
	imp.At, err = time.Parse(timeLayout, at)
	if err != nil {
		return core.Import{}, fmt.Errorf("parse import time %q: %w", at, err)
	}
	return imp, nil
}

// timeLayout is fixed width so that imported_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
