// Package cache holds rendered chart images between requests.
package cache

import (
	"context"
	"time"

	applog "ridesdash/internal/log"
)

// Cache defines a generic cache interface
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner interface for caches that support cleanup
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically drops expired entries from the registered caches.
type Janitor struct {
	caches   []Cleaner
	interval time.Duration
	logger   *applog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

// NewJanitor creates a janitor sweeping every interval.
func NewJanitor(interval time.Duration, logger *applog.Logger, caches ...Cleaner) *Janitor {
	return &Janitor{
		caches:   caches,
		interval: interval,
		logger:   logger,
	}
}

// Start begins periodic cleanup until ctx is cancelled or Stop is called.
func (j *Janitor) Start(ctx context.Context) {
	ctx, j.cancel = context.WithCancel(ctx)
	j.done = make(chan struct{})

	go func() {
		defer close(j.done)

		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := j.Sweep(); n > 0 && j.logger != nil {
					j.logger.Debug("Expired cache entries removed", "removed", n)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Sweep cleans every cache once and returns the number of entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Stop ends the cleanup goroutine and waits for it. Safe to call without Start.
func (j *Janitor) Stop() {
	if j.cancel == nil {
		return
	}
	j.cancel()
	<-j.done
}
