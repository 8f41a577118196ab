// Package memory serves a fixed snapshot, for tests and local demos.
package memory

import (
	"context"
	"sync"

	"ridesdash/internal/core"
	"ridesdash/internal/records"
)

type Store struct {
	mu   sync.Mutex
	snap core.Snapshot
	err  error
	hits int
}

var (
	_ records.Loader  = (*Store)(nil)
	_ records.Checker = (*Store)(nil)
)

func New(snap core.Snapshot) *Store {
	return &Store{snap: snap}
}

// Failing returns a store whose every Load fails with err.
func Failing(err error) *Store {
	return &Store{err: err}
}

// Load returns a copy of the snapshot so callers cannot mutate the store.
func (s *Store) Load(ctx context.Context) (core.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return core.Snapshot{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hits++
	if s.err != nil {
		return core.Snapshot{}, s.err
	}
	return core.Snapshot{
		Locations:  append([]core.Location{}, s.snap.Locations...),
		Categories: append([]core.Category{}, s.snap.Categories...),
		Rides:      append([]core.Ride{}, s.snap.Rides...),
	}, nil
}

// Set replaces the snapshot served by subsequent loads.
func (s *Store) Set(snap core.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	s.err = nil
}

// Loads reports how many times Load was called.
func (s *Store) Loads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits
}

// Check reports the configured failure, if any, without counting a load.
func (s *Store) Check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}
