package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"ridesdash/internal/amqp"
	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
	"ridesdash/internal/records"
)

// SnapshotStore is the write side of the SQLite backend.
type SnapshotStore interface {
	ReplaceSnapshot(ctx context.Context, imp core.Import, snap core.Snapshot) error
}

// Publisher announces finished imports.
type Publisher interface {
	PublishDatasetImported(ctx context.Context, msg *amqp.DatasetImportedMessage) error
}

// ImportService copies a snapshot from any loader into SQLite and then
// announces it on AMQP.
type ImportService struct {
	store     SnapshotStore
	publisher Publisher
	logger    *applog.Logger
	metrics   *metrics.Metrics

	now   func() time.Time
	newID func() string
}

type ImportOption func(*ImportService)

func WithImportLogger(l *applog.Logger) ImportOption {
	return func(s *ImportService) { s.logger = l.WithComponent(applog.ComponentImport) }
}

func WithImportMetrics(m *metrics.Metrics) ImportOption {
	return func(s *ImportService) { s.metrics = m }
}

// NewImportService builds the service. publisher may be nil when AMQP is not
// configured.
func NewImportService(store SnapshotStore, publisher Publisher, opts ...ImportOption) *ImportService {
	s := &ImportService{
		store:     store,
		publisher: publisher,
		logger:    applog.FromContext(context.Background()).WithComponent(applog.ComponentImport),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Import loads a full snapshot from loader and replaces the stored one.
// A failed load or write leaves the previous snapshot untouched. A failed
// publish is logged only: the data is already stored.
func (s *ImportService) Import(ctx context.Context, source string, loader records.Loader) (core.Import, error) {
	if s.store == nil {
		return core.Import{}, errors.New("import: no snapshot store configured")
	}

	start := s.now()
	snap, err := loader.Load(ctx)
	if err != nil {
		return core.Import{}, fmt.Errorf("load snapshot from %s: %w", source, err)
	}

	imp := core.Import{
		ID:         s.newID(),
		Source:     source,
		At:         s.now().UTC(),
		Locations:  len(snap.Locations),
		Categories: len(snap.Categories),
		Rides:      len(snap.Rides),
	}

	if err := s.store.ReplaceSnapshot(ctx, imp, snap); err != nil {
		return core.Import{}, fmt.Errorf("store snapshot: %w", err)
	}
	s.metrics.ObserveImport(imp.At)

	s.logger.InfoContext(ctx, "Dataset imported",
		applog.NewFields().
			WithOperation(applog.OpImport).
			WithSnapshot(imp.Locations, imp.Categories, imp.Rides).
			With(applog.FieldImportID, imp.ID).
			With(applog.FieldSource, source).
			With(applog.FieldDuration, s.now().Sub(start).Milliseconds()).
			Args()...)

	if err := s.publish(ctx, imp); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish dataset imported message",
			applog.FieldImportID, imp.ID,
			applog.FieldError, err)
	}
	return imp, nil
}

func (s *ImportService) publish(ctx context.Context, imp core.Import) error {
	if s.publisher == nil {
		s.logger.WarnContext(ctx, "AMQP client not available, skipping import notification")
		return nil
	}
	return s.publisher.PublishDatasetImported(ctx, amqp.NewDatasetImportedMessage(imp))
}
