// Package common defines shared constants and sentinel errors used across
// the attendance client. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Local store errors.
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrInvalidRecord      = errors.New("invalid record")
	ErrUnknownCollection  = errors.New("unknown collection")
	ErrNotFound           = errors.New("not found")

	// Reconciliation errors. Both are recoverable: the pending queue stays
	// intact and the next sync signal retries the batch.
	ErrSyncTransportFailure = errors.New("sync transport failure")
	ErrSyncRejected         = errors.New("sync rejected by server")

	// Cache errors.
	ErrCacheMiss = errors.New("cache miss")

	// Auth errors.
	ErrTokenExpired = errors.New("token expired")
)
