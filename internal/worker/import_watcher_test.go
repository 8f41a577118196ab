package worker

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"ridesdash/internal/amqp"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
)

// fakeConsumer delivers queued messages then blocks until ctx ends.
type fakeConsumer struct {
	msgs    []*amqp.DatasetImportedMessage
	handled chan error
}

func (f *fakeConsumer) ConsumeDatasetImported(ctx context.Context, handler func(context.Context, *amqp.DatasetImportedMessage) error) error {
	for _, m := range f.msgs {
		f.handled <- handler(ctx, m)
	}
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Level: slog.LevelDebug, Output: &bytes.Buffer{}})
}

func at(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestImportWatcher_KeepsNewest(t *testing.T) {
	m := metrics.New()
	w := NewImportWatcher(nil, testLogger(), m)

	if _, ok := w.LastImport(); ok {
		t.Fatal("no import expected before any message")
	}

	w.Seed(core.Import{ID: "a", At: at(2)})
	ctx := context.Background()
	if err := w.HandleDatasetImported(ctx, amqp.NewDatasetImportedMessage(core.Import{ID: "old", At: at(1)})); err != nil {
		t.Fatalf("HandleDatasetImported() error = %v", err)
	}
	if imp, _ := w.LastImport(); imp.ID != "a" {
		t.Fatalf("stale import replaced the newer one: %+v", imp)
	}

	if err := w.HandleDatasetImported(ctx, amqp.NewDatasetImportedMessage(core.Import{ID: "b", At: at(3), Rides: 7})); err != nil {
		t.Fatalf("HandleDatasetImported() error = %v", err)
	}
	imp, ok := w.LastImport()
	if !ok || imp.ID != "b" || imp.Rides != 7 {
		t.Fatalf("LastImport() = %+v, %v", imp, ok)
	}
	if got := testutil.ToFloat64(m.LastImport); got != float64(at(3).Unix()) {
		t.Fatalf("last import gauge = %v", got)
	}
}

func TestImportWatcher_RejectsMessageWithoutID(t *testing.T) {
	w := NewImportWatcher(nil, testLogger(), nil)
	for _, msg := range []*amqp.DatasetImportedMessage{nil, {}} {
		err := w.HandleDatasetImported(context.Background(), msg)
		if !errors.Is(err, amqp.ErrInvalidMessage) {
			t.Fatalf("HandleDatasetImported(%v) error = %v, want ErrInvalidMessage", msg, err)
		}
	}
	if _, ok := w.LastImport(); ok {
		t.Fatal("invalid message must not be recorded")
	}
}

func TestImportWatcher_StartStop(t *testing.T) {
	consumer := &fakeConsumer{
		msgs:    []*amqp.DatasetImportedMessage{amqp.NewDatasetImportedMessage(core.Import{ID: "x", At: at(5)})},
		handled: make(chan error, 1),
	}
	w := NewImportWatcher(consumer, testLogger(), nil)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail")
	}

	select {
	case err := <-consumer.handled:
		if err != nil {
			t.Fatalf("handler error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("message not delivered")
	}
	if imp, _ := w.LastImport(); imp.ID != "x" {
		t.Fatalf("LastImport() = %+v", imp)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := w.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if w.IsRunning() {
		t.Fatal("watcher still running after Stop")
	}
}

func TestImportWatcher_StartWithoutConsumer(t *testing.T) {
	w := NewImportWatcher(nil, testLogger(), nil)
	if err := w.Start(context.Background()); err == nil {
		t.Fatal("expected error without consumer")
	}
	if err := w.Stop(context.Background()); err != nil {
		t.Fatalf("Stop() on idle watcher = %v", err)
	}
}

func TestImportWatcher_StopTimesOut(t *testing.T) {
	w := NewImportWatcher(blockingConsumer{}, testLogger(), nil)
	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Stop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("Stop() error = %v, want context.Canceled", err)
	}
}

// blockingConsumer ignores cancellation for a moment.
type blockingConsumer struct{}

func (blockingConsumer) ConsumeDatasetImported(ctx context.Context, _ func(context.Context, *amqp.DatasetImportedMessage) error) error {
	<-ctx.Done()
	time.Sleep(200 * time.Millisecond)
	return ctx.Err()
}
