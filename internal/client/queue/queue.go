// Package queue implements the pending-action queue: a FIFO, durable holding
// area for actions awaiting server confirmation, layered over the local
// store. Entries leave the queue only after the server has explicitly
// acknowledged the batch containing them.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/client/store"
	"github.com/wesigned/wesigned/internal/common"
)

// Item is one queued action together with its store key. The key is what
// ClearConfirmed deletes by, so a snapshot clear can never touch entries
// enqueued after the snapshot was read.
type Item struct {
	ID      int64
	Type    string
	Payload json.RawMessage
}

// Snapshot is the ordered state of one channel at the moment of a drain.
type Snapshot struct {
	Channel string
	Items   []Item
}

// Empty reports whether the snapshot holds no items.
func (s *Snapshot) Empty() bool {
	return len(s.Items) == 0
}

// Payloads returns the raw payloads in queue order, ready to submit as a
// batch body.
func (s *Snapshot) Payloads() []json.RawMessage {
	out := make([]json.RawMessage, 0, len(s.Items))
	for _, item := range s.Items {
		out = append(out, item.Payload)
	}
	return out
}

type Queue struct {
	store *store.Store
}

func New(s *store.Store) *Queue {
	return &Queue{store: s}
}

func collectionFor(channel string) (string, error) {
	switch channel {
	case common.ChannelAttendance:
		return store.CollectionPending, nil
	case common.ChannelSessions:
		return store.CollectionSessions, nil
	default:
		return "", fmt.Errorf("unknown sync channel %q", channel)
	}
}

// Enqueue appends {type, payload} to the pending collection. It needs no
// network and fails only on underlying storage failure.
func (q *Queue) Enqueue(ctx context.Context, actionType string, payload any) (int64, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}

	action := models.PendingAction{Type: actionType, Payload: raw}
	id, err := q.store.Put(ctx, store.CollectionPending, 0, action)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue %s action: %w", actionType, err)
	}
	return id, nil
}

// SaveSignIn records a student sign-in for later replay: the rich record
// goes to the signins collection and a {type:"signin"} entry to the pending
// queue, both in one transaction.
func (q *Queue) SaveSignIn(ctx context.Context, signin *models.SignIn) error {
	raw, err := json.Marshal(signin)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidRecord, err)
	}

	return q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		if _, err := tx.Put(ctx, store.CollectionSignIns, 0, signin); err != nil {
			return fmt.Errorf("failed to save signin: %w", err)
		}
		action := models.PendingAction{Type: common.ActionSignIn, Payload: raw}
		if _, err := tx.Put(ctx, store.CollectionPending, 0, action); err != nil {
			return fmt.Errorf("failed to enqueue signin: %w", err)
		}
		return nil
	})
}

// SaveSession queues a session-creation payload for later sync.
func (q *Queue) SaveSession(ctx context.Context, draft *models.SessionDraft) (int64, error) {
	id, err := q.store.Put(ctx, store.CollectionSessions, 0, draft)
	if err != nil {
		return 0, fmt.Errorf("failed to save session draft: %w", err)
	}
	return id, nil
}

// DrainAll returns the full current ordered sequence of the channel's
// entries without removing them.
func (q *Queue) DrainAll(ctx context.Context, channel string) (*Snapshot, error) {
	collection, err := collectionFor(channel)
	if err != nil {
		return nil, err
	}

	records, err := q.store.GetAll(ctx, collection)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{Channel: channel, Items: make([]Item, 0, len(records))}
	for _, rec := range records {
		item := Item{ID: rec.ID}
		if collection == store.CollectionPending {
			var action models.PendingAction
			if err := rec.Decode(&action); err != nil {
				return nil, fmt.Errorf("corrupt pending entry %d: %w", rec.ID, err)
			}
			item.Type = action.Type
			item.Payload = action.Payload
		} else {
			item.Type = "session"
			item.Payload = rec.Data
		}
		snap.Items = append(snap.Items, item)
	}
	return snap, nil
}

// ClearConfirmed removes exactly the entries present in the snapshot, in one
// transaction. Entries enqueued after the snapshot was read are untouched.
// For the attendance channel the companion signins collection is cleared as
// well; those records exist only to support resubmission.
func (q *Queue) ClearConfirmed(ctx context.Context, snap *Snapshot) error {
	collection, err := collectionFor(snap.Channel)
	if err != nil {
		return err
	}

	return q.store.InTx(ctx, func(ctx context.Context, tx store.Tx) error {
		for _, item := range snap.Items {
			if err := tx.Delete(ctx, collection, item.ID); err != nil {
				return err
			}
		}
		if snap.Channel == common.ChannelAttendance {
			if err := tx.Clear(ctx, store.CollectionSignIns); err != nil {
				return err
			}
		}
		return nil
	})
}
