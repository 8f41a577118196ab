package storage

import (
	"context"
	"database/sql"

	"ridesdash/internal/core"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

const clearLocations = `DELETE FROM locations`
const clearCategories = `DELETE FROM categories`
const clearRides = `DELETE FROM rides`

func (q *Queries) ClearSnapshot(ctx context.Context) error {
	for _, stmt := range []string{clearLocations, clearCategories, clearRides} {
		if _, err := q.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

const insertLocation = `INSERT INTO locations (position, location_id, location_name) VALUES (?, ?, ?)`

func (q *Queries) InsertLocation(ctx context.Context, position int, l core.Location) error {
	_, err := q.db.ExecContext(ctx, insertLocation, position, l.ID, l.Name)
	return err
}

const insertCategory = `INSERT INTO categories (position, category_id, category_name) VALUES (?, ?, ?)`

func (q *Queries) InsertCategory(ctx context.Context, position int, c core.Category) error {
	_, err := q.db.ExecContext(ctx, insertCategory, position, c.ID, c.Name)
	return err
}

const insertRide = `INSERT INTO rides (
    position, ride_id, start_location_id, stop_location_id, miles,
    start_date, end_date, purpose, category_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertRide(ctx context.Context, position int, r core.Ride) error {
	_, err := q.db.ExecContext(ctx, insertRide,
		position, r.ID, r.StartLocationID, r.StopLocationID, r.Miles,
		r.StartDate, r.EndDate, r.Purpose, r.CategoryID)
	return err
}

const insertImport = `INSERT INTO imports (id, source, imported_at, locations, categories, rides) VALUES (?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertImport(ctx context.Context, imp core.Import) error {
	_, err := q.db.ExecContext(ctx, insertImport,
		imp.ID, imp.Source, formatTime(imp.At), imp.Locations, imp.Categories, imp.Rides)
	return err
}

const listLocations = `SELECT location_id, location_name FROM locations ORDER BY position`

func (q *Queries) ListLocations(ctx context.Context) ([]core.Location, error) {
	rows, err := q.db.QueryContext(ctx, listLocations)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Location{}
	for rows.Next() {
		var i core.Location
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listCategories = `SELECT category_id, category_name FROM categories ORDER BY position`

func (q *Queries) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, listCategories)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Category{}
	for rows.Next() {
		var i core.Category
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listRides = `SELECT ride_id, start_location_id, stop_location_id, miles, start_date, end_date, purpose, category_id
FROM rides ORDER BY position`

func (q *Queries) ListRides(ctx context.Context) ([]core.Ride, error) {
	rows, err := q.db.QueryContext(ctx, listRides)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []core.Ride{}
	for rows.Next() {
		var i core.Ride
		if err := rows.Scan(
			&i.ID,
			&i.StartLocationID,
			&i.StopLocationID,
			&i.Miles,
			&i.StartDate,
			&i.EndDate,
			&i.Purpose,
			&i.CategoryID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getLastImport = `SELECT id, source, imported_at, locations, categories, rides
FROM imports ORDER BY imported_at DESC, rowid DESC LIMIT 1`

func (q *Queries) GetLastImport(ctx context.Context) (core.Import, string, error) {
	row := q.db.QueryRowContext(ctx, getLastImport)
	var i core.Import
	var at string
	err := row.Scan(&i.ID, &i.Source, &at, &i.Locations, &i.Categories, &i.Rides)
	return i, at, err
}
