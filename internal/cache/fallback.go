package cache

import (
	"context"

	"godrive/pkg/metrics"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Fetch wraps an authoritative fetch with the snapshot fallback: on success
// the result is written back as the new last-good snapshot, on failure the
// last-good snapshot of that kind is returned instead. The boolean reports
// whether the value came from the cache. A value from the cache is
// advisory; callers reconcile it against the authoritative source once
// connectivity returns.
func Fetch[T any](ctx context.Context, store Store, driverID primitive.ObjectID, kind Kind, fetch func(ctx context.Context) (T, error)) (T, bool, error) {
	value, err := fetch(ctx)
	if err == nil {
		// A failed snapshot write must not fail the fetch itself.
		_ = store.Write(ctx, driverID, kind, value)
		return value, false, nil
	}

	var cached T
	if readErr := store.Read(ctx, driverID, kind, &cached); readErr != nil {
		var zero T
		return zero, false, err
	}

	metrics.CacheFallbacksTotal.WithLabelValues(string(kind)).Inc()
	return cached, true, nil
}
