package memory

import (
	"context"
	"errors"
	"testing"

	"ridesdash/internal/core"
	"ridesdash/internal/records"
)

func TestMemoryStoreLoadReturnsCopy(t *testing.T) {
	s := New(core.Snapshot{Rides: []core.Ride{{ID: "1"}}})
	snap, err := s.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	snap.Rides[0].ID = "changed"

	again, _ := s.Load(context.Background())
	if again.Rides[0].ID != "1" {
		t.Fatalf("store was mutated through a loaded snapshot: %+v", again.Rides)
	}
	if again.Locations == nil {
		t.Fatalf("empty collections must be non-nil")
	}
	if s.Loads() != 2 {
		t.Fatalf("Loads() = %d, want 2", s.Loads())
	}
}

func TestFailingStore(t *testing.T) {
	boom := errors.New("boom")
	s := Failing(boom)
	if _, err := s.Load(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Load() error = %v, want boom", err)
	}
	if err := records.Check(context.Background(), s); !errors.Is(err, boom) {
		t.Fatalf("Check() error = %v, want boom", err)
	}
	if s.Loads() != 1 {
		t.Fatalf("Check must not count as a load, Loads() = %d", s.Loads())
	}

	s.Set(core.Snapshot{})
	if _, err := s.Load(context.Background()); err != nil {
		t.Fatalf("Set should clear the failure, got %v", err)
	}
	if err := s.Check(context.Background()); err != nil {
		t.Fatalf("Check() after Set = %v", err)
	}
}
