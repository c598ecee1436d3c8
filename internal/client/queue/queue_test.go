package queue

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesigned/wesigned/internal/client/models"
	"github.com/wesigned/wesigned/internal/client/store"
	"github.com/wesigned/wesigned/internal/common"

	_ "modernc.org/sqlite"
)

func setupQueue(t *testing.T) (*Queue, *store.Store) {
	t.Helper()
	s, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "queue.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return New(s), s
}

func sampleSignIn(regNo string) *models.SignIn {
	return &models.SignIn{
		SessionID:   "ABC123",
		RegNo:       regNo,
		SessionName: "Algorithms",
		FullName:    "Doe Jane",
		StudentID:   "stu-1",
		ClientRef:   "ref-" + regNo,
		SignedAt:    1700000000000,
		Timestamp:   "2023-11-14T22:13:20Z",
	}
}

func TestSaveSignIn_WritesBothCollections(t *testing.T) {
	q, s := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S1")))

	signins, err := s.GetAll(ctx, store.CollectionSignIns)
	require.NoError(t, err)
	require.Len(t, signins, 1)

	pending, err := s.GetAll(ctx, store.CollectionPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	var action models.PendingAction
	require.NoError(t, pending[0].Decode(&action))
	assert.Equal(t, common.ActionSignIn, action.Type)

	var replay models.SignIn
	require.NoError(t, json.Unmarshal(action.Payload, &replay))
	assert.Equal(t, "S1", replay.RegNo)
	assert.Equal(t, "ABC123", replay.SessionID)
}

func TestDrainAll_PreservesInsertionOrder(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S1")))
	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S2")))

	snap, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)
	require.Len(t, snap.Items, 2)

	var first, second models.SignIn
	require.NoError(t, json.Unmarshal(snap.Items[0].Payload, &first))
	require.NoError(t, json.Unmarshal(snap.Items[1].Payload, &second))
	assert.Equal(t, "S1", first.RegNo)
	assert.Equal(t, "S2", second.RegNo)
}

func TestDrainAll_DoesNotRemoveEntries(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	_, err := q.Enqueue(ctx, common.ActionSignIn, sampleSignIn("S1"))
	require.NoError(t, err)

	_, err = q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)

	snap, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
}

func TestClearConfirmed_LeavesLaterEntries(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S1")))
	snap, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)

	// enqueued after the snapshot was read, before the clear runs
	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S2")))

	require.NoError(t, q.ClearConfirmed(ctx, snap))

	after, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)
	require.Len(t, after.Items, 1)

	var kept models.SignIn
	require.NoError(t, json.Unmarshal(after.Items[0].Payload, &kept))
	assert.Equal(t, "S2", kept.RegNo)
}

func TestClearConfirmed_AttendanceClearsSignIns(t *testing.T) {
	q, s := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S1")))
	snap, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)

	require.NoError(t, q.ClearConfirmed(ctx, snap))

	signins, err := s.GetAll(ctx, store.CollectionSignIns)
	require.NoError(t, err)
	assert.Empty(t, signins)
}

func TestSessionsChannel_IndependentOfAttendance(t *testing.T) {
	q, _ := setupQueue(t)
	ctx := context.Background()

	require.NoError(t, q.SaveSignIn(ctx, sampleSignIn("S1")))
	_, err := q.SaveSession(ctx, &models.SessionDraft{Name: "Databases", Duration: 5, Unit: "minutes"})
	require.NoError(t, err)

	sessions, err := q.DrainAll(ctx, common.ChannelSessions)
	require.NoError(t, err)
	require.Len(t, sessions.Items, 1)

	require.NoError(t, q.ClearConfirmed(ctx, sessions))

	attendance, err := q.DrainAll(ctx, common.ChannelAttendance)
	require.NoError(t, err)
	assert.Len(t, attendance.Items, 1)
}

func TestDrainAll_UnknownChannel(t *testing.T) {
	q, _ := setupQueue(t)

	_, err := q.DrainAll(context.Background(), "sync-nonsense")
	require.Error(t, err)
}
