package backend

import (
	"context"
	"errors"
	"time"

	"ridesdash/internal/core"
	applog "ridesdash/internal/log"
	"ridesdash/internal/metrics"
	"ridesdash/internal/records"
)

// instrumented times every load and records its outcome. It is the single
// place a failed load is logged.
type instrumented struct {
	next    Backend
	name    string
	log     *applog.StructuredLogger
	metrics *metrics.Metrics
}

// Instrument wraps b so each Load is logged and counted under name.
func Instrument(b Backend, name string, logger *applog.Logger, m *metrics.Metrics) Backend {
	return &instrumented{
		next:    b,
		name:    name,
		log:     applog.NewStructuredLogger(logger),
		metrics: m,
	}
}

func (i *instrumented) Load(ctx context.Context) (core.Snapshot, error) {
	start := time.Now()
	snap, err := i.next.Load(ctx)
	elapsed := time.Since(start)

	i.metrics.ObserveLoad(i.name, err, elapsed, len(snap.Locations), len(snap.Categories), len(snap.Rides))
	if err != nil {
		fields := applog.NewFields().With(applog.FieldBackend, i.name)
		if errors.Is(err, context.DeadlineExceeded) {
			fields.With(applog.FieldErrorType, applog.ErrorTypeTimeout)
		}
		i.log.LogError(ctx, "Dataset load failed", err, applog.ComponentLoader, applog.OpLoad, fields)
		return core.Snapshot{}, err
	}
	i.log.LogSnapshotLoaded(ctx, i.name, len(snap.Locations), len(snap.Categories), len(snap.Rides), elapsed)
	return snap, nil
}

func (i *instrumented) Check(ctx context.Context) error {
	return records.Check(ctx, i.next)
}
