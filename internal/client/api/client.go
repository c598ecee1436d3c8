// Package api talks to the attendance server. It covers the two batch sync
// endpoints the reconciler drains into, the live endpoints the page-facing
// services call while online, and the reachability probe the connectivity
// monitor polls.
package api

import (
	"context"
	"encoding/json"

	"github.com/wesigned/wesigned/internal/client/models"
)

// SyncResult is the server's per-batch verdict. HTTPStatus is filled in by
// the client; Success comes from the response body. Both must agree before
// a batch counts as accepted.
type SyncResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	HTTPStatus int    `json:"-"`
}

// Accepted reports whether the server positively confirmed the batch:
// a success HTTP status AND a body-level success flag. An HTTP 200 alone is
// not enough.
func (r *SyncResult) Accepted() bool {
	return r.HTTPStatus >= 200 && r.HTTPStatus < 300 && r.Success
}

// Client is the server-facing surface used by the monitor, the reconciler
// and the page-facing services.
type Client interface {
	// Ping probes server reachability. Any HTTP response counts as
	// reachable; only a transport-level failure is an error.
	Ping(ctx context.Context) error

	// SyncBatch submits a channel's queue snapshot as {items:[...]} to the
	// channel's sync endpoint. A transport-level failure (no response at
	// all) is an error; any received response is returned as a SyncResult
	// for the caller to interpret.
	SyncBatch(ctx context.Context, channel string, items []json.RawMessage) (*SyncResult, error)

	// SignAttendance submits one live sign-in. Any failure is returned to
	// the caller; the user expects synchronous confirmation when online.
	SignAttendance(ctx context.Context, specialID string, signin *models.SignIn) error

	// CreateSession creates an attendance session live and returns the
	// created session, including its server-assigned specialId.
	CreateSession(ctx context.Context, draft *models.SessionDraft) (*models.SessionDraft, error)

	// GetSession fetches a session by its specialId.
	GetSession(ctx context.Context, specialID string) (*models.SessionDraft, error)
}
