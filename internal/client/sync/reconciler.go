// Package sync implements the reconciliation protocol: turn a queue snapshot
// into a confirmed-or-retained server state. Every step is idempotent under
// retry; the queue is only ever touched after an explicit positive verdict.
package sync

import (
	"context"
	"fmt"

	"github.com/wesigned/wesigned/internal/client/api"
	"github.com/wesigned/wesigned/internal/client/queue"
	"github.com/wesigned/wesigned/internal/common"
	"github.com/wesigned/wesigned/internal/logging"
)

type Reconciler struct {
	queue  *queue.Queue
	client api.Client
	log    logging.Logger
}

func New(q *queue.Queue, c api.Client, log logging.Logger) *Reconciler {
	return &Reconciler{queue: q, client: c, log: log}
}

// Reconcile drains one channel: snapshot, submit the whole snapshot as one
// batch, interpret the verdict, and on acceptance clear exactly the
// snapshot. An empty queue is a no-op. On transport failure or rejection
// the queue is left untouched; the caller retries on the next sync signal.
func (r *Reconciler) Reconcile(ctx context.Context, channel string) error {
	snap, err := r.queue.DrainAll(ctx, channel)
	if err != nil {
		return fmt.Errorf("failed to read queue for %s: %w", channel, err)
	}
	if snap.Empty() {
		r.log.Debug(ctx, "nothing to sync", "channel", channel)
		return nil
	}

	result, err := r.client.SyncBatch(ctx, channel, snap.Payloads())
	if err != nil {
		r.log.Warn(ctx, "sync submission failed, queue retained",
			"channel", channel, "items", len(snap.Items), "error", err)
		return err
	}

	if !result.Accepted() {
		r.log.Warn(ctx, "sync rejected by server, queue retained",
			"channel", channel, "status", result.HTTPStatus, "message", result.Message)
		return fmt.Errorf("%w: channel=%s status=%d", common.ErrSyncRejected, channel, result.HTTPStatus)
	}

	if err := r.queue.ClearConfirmed(ctx, snap); err != nil {
		// the server has the batch; a failed clear only means a redundant
		// resubmission later, which the server deduplicates by clientRef
		return fmt.Errorf("failed to clear confirmed entries for %s: %w", channel, err)
	}

	r.log.Info(ctx, "synced pending batch", "channel", channel, "items", len(snap.Items))
	return nil
}
