package shared

import (
	"context"
	"time"
)

// IdempotencyStore is the cooperative gate for operations that must execute
// at most once per client-supplied key. It memoizes a value (e.g. an order
// reference) under the key so repeated invocations can resolve to the
// original result instead of re-executing.
//
// The store is a cooperative guard only: the database uniqueness constraint
// remains the authoritative duplicate check.
type IdempotencyStore interface {
	// Remember atomically associates value with key unless a value is
	// already stored. It returns the stored value and whether this call
	// created the association.
	Remember(ctx context.Context, key, value string, ttl time.Duration) (stored string, created bool, err error)

	// Forget removes the key so a later attempt may execute again.
	// Used to release the gate when the guarded operation failed.
	Forget(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}
