package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"ridesdash/internal/amqp"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
)

// Consumer delivers dataset imported notifications.
type Consumer interface {
	ConsumeDatasetImported(ctx context.Context, handler func(context.Context, *amqp.DatasetImportedMessage) error) error
}

// ImportWatcher remembers the most recent import announced on AMQP so the
// server can report data freshness.
type ImportWatcher struct {
	consumer Consumer
	logger   *applog.Logger
	metrics  *metrics.Metrics
	last     atomic.Pointer[core.Import]

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	doneCh  chan struct{}
}

// NewImportWatcher creates a watcher. consumer may be nil, in which case
// only Seed updates the last import.
func NewImportWatcher(consumer Consumer, logger *applog.Logger, m *metrics.Metrics) *ImportWatcher {
	return &ImportWatcher{
		consumer: consumer,
		logger:   logger.WithComponent(applog.ComponentWorker),
		metrics:  m,
	}
}

// Seed records an import known from elsewhere, typically the SQLite store.
func (w *ImportWatcher) Seed(imp core.Import) {
	w.observe(imp)
}

// LastImport returns the newest import seen so far.
func (w *ImportWatcher) LastImport() (core.Import, bool) {
	if imp := w.last.Load(); imp != nil {
		return *imp, true
	}
	return core.Import{}, false
}

// HandleDatasetImported processes one notification. Older imports than the
// one already recorded are ignored.
func (w *ImportWatcher) HandleDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error {
	if msg == nil || msg.ID == "" {
		return fmt.Errorf("%w: no import_id", amqp.ErrInvalidMessage)
	}

	if w.observe(msg.Import) {
		w.logger.InfoContext(ctx, "New dataset import",
			applog.NewFields().
				WithOperation(applog.OpConsume).
				WithSnapshot(msg.Locations, msg.Categories, msg.Rides).
				With(applog.FieldImportID, msg.ID).
				With(applog.FieldSource, msg.Source).
				Args()...)
	} else {
		w.logger.DebugContext(ctx, "Ignoring stale dataset import", applog.FieldImportID, msg.ID)
	}
	return nil
}

// observe stores imp when it is newer than the current one.
func (w *ImportWatcher) observe(imp core.Import) bool {
	next := imp
	for {
		cur := w.last.Load()
		if cur != nil && !next.At.After(cur.At) {
			return false
		}
		if w.last.CompareAndSwap(cur, &next) {
			w.metrics.ObserveImport(next.At)
			return true
		}
	}
}

// Start consumes notifications in the background until Stop or ctx ends.
func (w *ImportWatcher) Start(ctx context.Context) error {
	if w.consumer == nil {
		return errors.New("import watcher has no consumer")
	}

	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("import watcher is already running")
	}
	ctx, cancel := context.WithCancel(ctx)
	w.running = true
	w.cancel = cancel
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.run(ctx)

	w.logger.InfoContext(ctx, "Import watcher started")
	return nil
}

func (w *ImportWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	err := w.consumer.ConsumeDatasetImported(ctx, w.HandleDatasetImported)
	if err != nil && !errors.Is(err, context.Canceled) {
		w.logger.ErrorContext(ctx, "Import watcher stopped", applog.FieldError, err)
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()
}

// Stop cancels the consumer and waits for it to return.
func (w *ImportWatcher) Stop(ctx context.Context) error {
	w.mu.Lock()
	if w.cancel == nil {
		w.mu.Unlock()
		return nil
	}
	cancel, done := w.cancel, w.doneCh
	w.cancel = nil
	w.mu.Unlock()

	cancel()
	select {
	case <-done:
		w.logger.InfoContext(ctx, "Import watcher stopped gracefully")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Import watcher stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the consumer goroutine is active.
func (w *ImportWatcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
