// Package cache stores copies of successful responses for offline replay.
// It is a best-effort store: losing entries only degrades UX, it never
// loses a queued action.
package cache

import "context"

// Cache is keyed by request identity (method + URL). Implementations must
// be safe for concurrent use.
type Cache interface {
	// Get retrieves a value by key. Returns common.ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value, replacing any previous entry for the key.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes a value by key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Clear removes all entries.
	Clear(ctx context.Context) error
}
