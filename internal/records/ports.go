// Package records defines the outbound ports used to obtain a ride snapshot.
package records

import (
	"context"

	"ridesdash/internal/core"
)

// Ports for outbound adapters.
type (
	// Loader reads all three collections. Load either returns a complete
	// snapshot or an error; there are no partial results.
	Loader interface {
		Load(ctx context.Context) (core.Snapshot, error)
	}

	// Checker is implemented by loaders that can report whether their
	// source is reachable without reading it in full.
	Checker interface {
		Check(ctx context.Context) error
	}
)

// Check runs l's readiness probe when it has one.
func Check(ctx context.Context, l Loader) error {
	if c, ok := l.(Checker); ok {
		return c.Check(ctx)
	}
	return nil
}
