package services

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"ridesdash/internal/amqp"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/records/memory"
)

type fakeStore struct {
	imports []core.Import
	snaps   []core.Snapshot
	err     error
}

func (f *fakeStore) ReplaceSnapshot(_ context.Context, imp core.Import, snap core.Snapshot) error {
	if f.err != nil {
		return f.err
	}
	f.imports = append(f.imports, imp)
	f.snaps = append(f.snaps, snap)
	return nil
}

type fakePublisher struct {
	msgs []*amqp.DatasetImportedMessage
	err  error
}

func (f *fakePublisher) PublishDatasetImported(_ context.Context, msg *amqp.DatasetImportedMessage) error {
	f.msgs = append(f.msgs, msg)
	return f.err
}

var fixedNow = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func newTestService(store SnapshotStore, pub Publisher, buf *bytes.Buffer) *ImportService {
	logger := applog.New(applog.Config{Level: slog.LevelDebug, Output: buf})
	s := NewImportService(store, pub, WithImportLogger(logger))
	s.now = func() time.Time { return fixedNow }
	s.newID = func() string { return "imp-1" }
	return s
}

func sampleSnapshot() core.Snapshot {
	return core.Snapshot{
		Locations:  []core.Location{{ID: "1", Name: "Cary"}, {ID: "2", Name: "Morrisville"}},
		Categories: []core.Category{{ID: "1", Name: "Business"}},
		Rides: []core.Ride{
			{ID: "1", CategoryID: "1", Purpose: "Meeting", Miles: "5.2", StartDate: "2024-01-02"},
		},
	}
}

func TestImportService_Import(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestService(store, pub, &buf)

	imp, err := s.Import(context.Background(), "csv", memory.New(sampleSnapshot()))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	want := core.Import{ID: "imp-1", Source: "csv", At: fixedNow, Locations: 2, Categories: 1, Rides: 1}
	if imp != want {
		t.Fatalf("Import() = %+v, want %+v", imp, want)
	}
	if len(store.imports) != 1 || store.imports[0] != want {
		t.Fatalf("stored imports = %+v", store.imports)
	}
	if len(store.snaps[0].Rides) != 1 || store.snaps[0].Rides[0].Miles != "5.2" {
		t.Fatalf("stored snapshot = %+v", store.snaps[0])
	}
	if len(pub.msgs) != 1 || pub.msgs[0].Import != want {
		t.Fatalf("published = %+v", pub.msgs)
	}
	if !strings.Contains(buf.String(), "Dataset imported") {
		t.Fatalf("import not logged: %s", buf.String())
	}
}

func TestImportService_LoadFailureStoresNothing(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeStore{}
	pub := &fakePublisher{}
	s := newTestService(store, pub, &buf)

	loadErr := errors.New("open Corrected_Rides_Table.csv: no such file")
	_, err := s.Import(context.Background(), "csv", memory.Failing(loadErr))
	if !errors.Is(err, loadErr) {
		t.Fatalf("Import() error = %v, want wrapped load error", err)
	}
	if len(store.imports) != 0 || len(pub.msgs) != 0 {
		t.Fatalf("nothing may be stored or published: %d %d", len(store.imports), len(pub.msgs))
	}
}

func TestImportService_StoreFailureSkipsPublish(t *testing.T) {
	var buf bytes.Buffer
	storeErr := errors.New("database is locked")
	pub := &fakePublisher{}
	s := newTestService(&fakeStore{err: storeErr}, pub, &buf)

	if _, err := s.Import(context.Background(), "sheets", memory.New(sampleSnapshot())); !errors.Is(err, storeErr) {
		t.Fatalf("Import() error = %v", err)
	}
	if len(pub.msgs) != 0 {
		t.Fatal("a failed store must not be announced")
	}
}

func TestImportService_PublishFailureIsNotFatal(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeStore{}
	s := newTestService(store, &fakePublisher{err: errors.New("circuit breaker is open")}, &buf)

	if _, err := s.Import(context.Background(), "csv", memory.New(sampleSnapshot())); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(store.imports) != 1 {
		t.Fatal("snapshot must be stored even when publishing fails")
	}
	if !strings.Contains(buf.String(), "Failed to publish dataset imported message") {
		t.Fatalf("publish failure not logged: %s", buf.String())
	}
}

func TestImportService_WithoutPublisher(t *testing.T) {
	var buf bytes.Buffer
	store := &fakeStore{}
	s := newTestService(store, nil, &buf)

	if _, err := s.Import(context.Background(), "csv", memory.New(sampleSnapshot())); err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if !strings.Contains(buf.String(), "skipping import notification") {
		t.Fatalf("missing AMQP warning: %s", buf.String())
	}
}

func TestImportService_NoStore(t *testing.T) {
	s := NewImportService(nil, nil)
	if _, err := s.Import(context.Background(), "csv", memory.New(sampleSnapshot())); err == nil {
		t.Fatal("expected error without a store")
	}
}
