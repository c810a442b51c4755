// ABOUTME: Tests for mutation queue coalescing, ordering, and lifecycle transitions
// ABOUTME: Covers update folding, create+delete cancellation, and crash recovery
package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/store"
)

func newTestQueue(t *testing.T) (*Queue, *store.Store) {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(st), st
}

func TestEnqueueCreateGeneratesLocalID(t *testing.T) {
	q, st := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"title":"Fix tap"}`))
	require.NoError(t, err)
	assert.Len(t, id, 26, "local id should be a ULID")

	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpCreate, ops[0].Kind)
	assert.Equal(t, id, ops[0].LocalID)
	assert.Equal(t, StatusPending, ops[0].Status)

	// The snapshot is persisted alongside the operation.
	snap, err := st.GetSnapshot(models.EntityJob, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Fix tap"}`, string(snap))
}

func TestEnqueueCreateRejectsLocalID(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpCreate, "local-1", []byte(`{}`))
	assert.Error(t, err)
}

func TestEnqueueUpdateRequiresLocalID(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpUpdate, "", []byte(`{}`))
	assert.Error(t, err)
	_, err = q.Enqueue(models.EntityJob, OpDelete, "", nil)
	assert.Error(t, err)
}

func TestUpdateCoalescesIntoPendingUpdate(t *testing.T) {
	q, _ := newTestQueue(t)

	// Record synced previously; offline edits target its known id.
	_, err := q.Enqueue(models.EntityJob, OpUpdate, "srv-7", []byte(`{"payload":"A"}`))
	require.NoError(t, err)
	_, err = q.Enqueue(models.EntityJob, OpUpdate, "srv-7", []byte(`{"payload":"B"}`))
	require.NoError(t, err)

	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1, "second update must replace the first in place")
	assert.Equal(t, OpUpdate, ops[0].Kind)
	assert.JSONEq(t, `{"payload":"B"}`, string(ops[0].Payload))
}

func TestUpdateFoldsIntoPendingCreate(t *testing.T) {
	q, st := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"v":1}`))
	require.NoError(t, err)
	_, err = q.Enqueue(models.EntityJob, OpUpdate, id, []byte(`{"v":2}`))
	require.NoError(t, err)

	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpCreate, ops[0].Kind, "entry must remain a create")
	assert.JSONEq(t, `{"v":2}`, string(ops[0].Payload))

	snap, err := st.GetSnapshot(models.EntityJob, id)
	require.NoError(t, err)
	assert.JSONEq(t, `{"v":2}`, string(snap))
}

func TestDeleteCancelsPendingCreate(t *testing.T) {
	q, st := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"title":"Fix tap"}`))
	require.NoError(t, err)
	_, err = q.Enqueue(models.EntityJob, OpDelete, id, nil)
	require.NoError(t, err)

	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	assert.Empty(t, ops, "create+delete must cancel to nothing")

	_, err = st.GetSnapshot(models.EntityJob, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteSupersedesPendingUpdate(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityClient, OpUpdate, "srv-3", []byte(`{"name":"Dana"}`))
	require.NoError(t, err)
	_, err = q.Enqueue(models.EntityClient, OpDelete, "srv-3", nil)
	require.NoError(t, err)

	ops, err := q.List(models.EntityClient)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OpDelete, ops[0].Kind)
}

func TestUpdateAfterPendingDeleteFails(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpDelete, "srv-9", nil)
	require.NoError(t, err)
	_, err = q.Enqueue(models.EntityJob, OpUpdate, "srv-9", []byte(`{}`))
	assert.Error(t, err)
}

func TestUpdateDoesNotFoldIntoSyncingEntry(t *testing.T) {
	q, _ := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"v":1}`))
	require.NoError(t, err)

	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.NoError(t, q.MarkSyncing(ops[0]))

	// Edit arrives while the create is in flight: it must queue behind it,
	// not mutate the payload being sent.
	_, err = q.Enqueue(models.EntityJob, OpUpdate, id, []byte(`{"v":2}`))
	require.NoError(t, err)

	ops, err = q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, StatusSyncing, ops[0].Status)
	assert.JSONEq(t, `{"v":1}`, string(ops[0].Payload))
	assert.Equal(t, OpUpdate, ops[1].Kind)
	assert.JSONEq(t, `{"v":2}`, string(ops[1].Payload))
}

func TestPerRecordEnqueueOrderPreserved(t *testing.T) {
	q, _ := newTestQueue(t)

	id1, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"n":1}`))
	require.NoError(t, err)
	id2, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"n":2}`))
	require.NoError(t, err)
	id3, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"n":3}`))
	require.NoError(t, err)

	ops, err := q.Pending(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, id1, ops[0].LocalID)
	assert.Equal(t, id2, ops[1].LocalID)
	assert.Equal(t, id3, ops[2].LocalID)
}

func TestMarkSyncingRejectsDuplicateInFlight(t *testing.T) {
	q, _ := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{"v":1}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.NoError(t, q.MarkSyncing(ops[0]))

	_, err = q.Enqueue(models.EntityJob, OpUpdate, id, []byte(`{"v":2}`))
	require.NoError(t, err)
	ops, err = q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	err = q.MarkSyncing(ops[1])
	assert.Error(t, err, "only one in-flight sync per record")
}

func TestMarkSyncedRemovesEntry(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)

	require.NoError(t, q.MarkSyncing(ops[0]))
	require.NoError(t, q.MarkSynced(ops[0], "srv-42"))

	remaining, err := q.List(models.EntityJob)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestMarkRetryReturnsToPending(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)

	require.NoError(t, q.MarkSyncing(ops[0]))
	require.NoError(t, q.MarkRetry(ops[0], assert.AnError))

	ops, err = q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, StatusPending, ops[0].Status)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.NotEmpty(t, ops[0].LastError)
}

func TestMarkFailedKeepsEntryQueued(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)

	require.NoError(t, q.MarkFailed(ops[0], assert.AnError))

	ops, err = q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1, "failed entries stay for manual inspection")
	assert.Equal(t, StatusFailed, ops[0].Status)

	pending, err := q.Pending(models.EntityJob)
	require.NoError(t, err)
	assert.Empty(t, pending, "failed entries are not retried automatically")
}

func TestDiscardRemovesAllEntriesForRecord(t *testing.T) {
	q, st := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.NoError(t, q.MarkFailed(ops[0], assert.AnError))

	removed, err := q.Discard(models.EntityJob, id)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	remaining, err := q.List(models.EntityJob)
	require.NoError(t, err)
	assert.Empty(t, remaining)

	_, err = st.GetSnapshot(models.EntityJob, id)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestRecoverInterrupted(t *testing.T) {
	q, _ := newTestQueue(t)

	_, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)
	ops, err := q.List(models.EntityJob)
	require.NoError(t, err)
	require.NoError(t, q.MarkSyncing(ops[0]))

	// Simulates an app killed mid-drain: the entry was persisted as syncing
	// and the remote call's outcome was never observed.
	recovered, err := q.RecoverInterrupted()
	require.NoError(t, err)
	assert.Equal(t, 1, recovered)

	ops, err = q.List(models.EntityJob)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, StatusPending, ops[0].Status)
}

func TestHasPending(t *testing.T) {
	q, _ := newTestQueue(t)

	id, err := q.Enqueue(models.EntityJob, OpCreate, "", []byte(`{}`))
	require.NoError(t, err)

	has, err := q.HasPending(models.EntityJob, id)
	require.NoError(t, err)
	assert.True(t, has)

	has, err = q.HasPending(models.EntityJob, "other")
	require.NoError(t, err)
	assert.False(t, has)
}
