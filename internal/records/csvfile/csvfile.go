// Package csvfile loads the ride snapshot from three CSV files on disk.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"ridesdash/internal/core"
	"ridesdash/internal/records"
)

// Files names the three tables inside the data directory.
type Files struct {
	Locations  string
	Categories string
	Rides      string
}

// DefaultFiles are the file names the dashboard ships with.
func DefaultFiles() Files {
	return Files{
		Locations:  "Locations_Table.csv",
		Categories: "Category_Table.csv",
		Rides:      "Corrected_Rides_Table.csv",
	}
}

type Store struct {
	dir   string
	files Files
}

var (
	_ records.Loader  = (*Store)(nil)
	_ records.Checker = (*Store)(nil)
)

func New(dir string, files Files) *Store {
	return &Store{dir: dir, files: files}
}

func (s *Store) paths() [3]string {
	return [3]string{
		filepath.Join(s.dir, s.files.Locations),
		filepath.Join(s.dir, s.files.Categories),
		filepath.Join(s.dir, s.files.Rides),
	}
}

// Load reads the three files concurrently. Any failure fails the whole load.
func (s *Store) Load(ctx context.Context) (core.Snapshot, error) {
	paths := s.paths()
	var tables [3]core.Table

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range paths {
		g.Go(func() error {
			t, err := readTable(gctx, path)
			if err != nil {
				return err
			}
			tables[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Snapshot{}, err
	}
	return core.SnapshotFromTables(tables[0], tables[1], tables[2]), nil
}

// Check verifies that every file exists and is readable.
func (s *Store) Check(_ context.Context) error {
	for _, path := range s.paths() {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("opening %s: %w", path, err)
		}
		f.Close()
	}
	return nil
}

func readTable(ctx context.Context, path string) (core.Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return core.Table{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return core.Table{}, nil
	}
	if err != nil {
		return core.Table{}, fmt.Errorf("reading header of %s: %w", path, err)
	}

	t := core.Table{Header: header}
	for {
		if err := ctx.Err(); err != nil {
			return core.Table{}, err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return core.Table{}, fmt.Errorf("reading %s: %w", path, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}
