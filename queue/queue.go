// ABOUTME: Mutation queue holding pending create/update/delete operations per entity
// ABOUTME: Applies coalescing rules and persists every entry through the record store
package queue

import (
	crand "crypto/rand"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/tradehand/tradehand/metrics"
	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/store"
)

// OpKind is the kind of remote mutation a pending operation represents.
type OpKind string

const (
	OpCreate OpKind = "create"
	OpUpdate OpKind = "update"
	OpDelete OpKind = "delete"
)

// SyncStatus tracks a pending operation through its replay lifecycle.
type SyncStatus string

const (
	StatusPending SyncStatus = "pending"
	StatusSyncing SyncStatus = "syncing"
	StatusSynced  SyncStatus = "synced"
	StatusFailed  SyncStatus = "failed"
)

// PendingOperation is a queued local mutation awaiting replay against the
// remote API. OpID doubles as the queue position (ULIDs sort by enqueue
// time). LocalID is never reused; for creates it equals the OpID of the
// originating create.
type PendingOperation struct {
	OpID       string            `json:"op_id"`
	LocalID    string            `json:"local_id"`
	EntityType models.EntityType `json:"entity_type"`
	Kind       OpKind            `json:"kind"`
	Payload    json.RawMessage   `json:"payload,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	Status     SyncStatus        `json:"status"`
	ServerID   string            `json:"server_id,omitempty"`
	RetryCount int               `json:"retry_count"`
	LastError  string            `json:"last_error,omitempty"`
}

// Queue serializes all mutation-queue access behind a single mutex. The app
// is event-loop driven, but API response callbacks can re-enter the queue,
// so every entry point locks.
type Queue struct {
	mu      sync.Mutex
	store   *store.Store
	entropy *ulid.MonotonicEntropy
}

// New creates a mutation queue backed by the given store.
func New(st *store.Store) *Queue {
	return &Queue{
		store:   st,
		entropy: ulid.Monotonic(crand.Reader, 0),
	}
}

// newID generates a monotonic ULID. Callers must hold q.mu.
func (q *Queue) newID() string {
	return ulid.MustNew(ulid.Timestamp(time.Now()), q.entropy).String()
}

func encodeOp(op *PendingOperation) ([]byte, error) {
	data, err := json.Marshal(op)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operation: %w", err)
	}
	return data, nil
}

func decodeOp(rec store.OpRecord) (*PendingOperation, error) {
	var op PendingOperation
	if err := json.Unmarshal(rec.Data, &op); err != nil {
		return nil, fmt.Errorf("failed to decode operation %s: %w", rec.OpID, err)
	}
	return &op, nil
}

// persist writes an operation back to the store. Callers must hold q.mu.
func (q *Queue) persist(op *PendingOperation) error {
	data, err := encodeOp(op)
	if err != nil {
		return err
	}
	return q.store.PutOperation(op.EntityType, op.OpID, data)
}

// list returns decoded operations for an entity in enqueue order. Callers
// must hold q.mu.
func (q *Queue) list(entity models.EntityType) ([]*PendingOperation, error) {
	records, err := q.store.ListOperations(entity)
	if err != nil {
		return nil, err
	}
	ops := make([]*PendingOperation, 0, len(records))
	for _, rec := range records {
		op, err := decodeOp(rec)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, nil
}

// Enqueue records a local mutation for later replay and returns the local id
// identifying the record. For creates the local id is newly generated; for
// updates and deletes the caller must supply the id it already holds.
//
// Coalescing rules:
//   - a new update against an unsynced create or update replaces that
//     entry's payload in place (last write wins offline)
//   - a delete against a local id whose only pending entry is an unsynced
//     create cancels both; nothing is ever sent to the server
func (q *Queue) Enqueue(entity models.EntityType, kind OpKind, localID string, payload []byte) (string, error) {
	if !entity.Valid() {
		return "", fmt.Errorf("unknown entity type: %q", entity)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	switch kind {
	case OpCreate:
		if localID != "" {
			return "", fmt.Errorf("create must not supply a local id")
		}
		return q.enqueueCreate(entity, payload)
	case OpUpdate:
		if localID == "" {
			return "", fmt.Errorf("update requires an existing local id")
		}
		return localID, q.enqueueUpdate(entity, localID, payload)
	case OpDelete:
		if localID == "" {
			return "", fmt.Errorf("delete requires an existing local id")
		}
		return localID, q.enqueueDelete(entity, localID)
	default:
		return "", fmt.Errorf("unknown operation kind: %q", kind)
	}
}

func (q *Queue) enqueueCreate(entity models.EntityType, payload []byte) (string, error) {
	id := q.newID()
	op := &PendingOperation{
		OpID:       id,
		LocalID:    id,
		EntityType: entity,
		Kind:       OpCreate,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusPending,
	}
	if err := q.persist(op); err != nil {
		return "", err
	}
	if err := q.store.PutSnapshot(entity, id, payload); err != nil {
		return "", err
	}
	metrics.OpsEnqueued.Inc()
	q.refreshPendingGauge()
	return id, nil
}

func (q *Queue) enqueueUpdate(entity models.EntityType, localID string, payload []byte) error {
	ops, err := q.list(entity)
	if err != nil {
		return err
	}

	// Fold into the newest unsynced entry for the same record, if any.
	// In-flight (syncing) entries are left alone: their outcome is not yet
	// known, so the edit must queue behind them.
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if op.LocalID != localID || op.Status != StatusPending {
			continue
		}
		switch op.Kind {
		case OpCreate, OpUpdate:
			op.Payload = payload
			op.CreatedAt = time.Now().UTC()
			if err := q.persist(op); err != nil {
				return err
			}
			return q.store.PutSnapshot(entity, localID, payload)
		case OpDelete:
			return fmt.Errorf("record %s has a pending delete", localID)
		}
	}

	op := &PendingOperation{
		OpID:       q.newID(),
		LocalID:    localID,
		EntityType: entity,
		Kind:       OpUpdate,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusPending,
	}
	if err := q.persist(op); err != nil {
		return err
	}
	if err := q.store.PutSnapshot(entity, localID, payload); err != nil {
		return err
	}
	metrics.OpsEnqueued.Inc()
	q.refreshPendingGauge()
	return nil
}

func (q *Queue) enqueueDelete(entity models.EntityType, localID string) error {
	ops, err := q.list(entity)
	if err != nil {
		return err
	}

	// A delete cancels an unsynced create outright, along with any pending
	// updates that were folded behind it. Net effect: nothing to sync.
	var hasPendingCreate bool
	for _, op := range ops {
		if op.LocalID == localID && op.Status == StatusPending && op.Kind == OpCreate {
			hasPendingCreate = true
			break
		}
	}

	if hasPendingCreate {
		for _, op := range ops {
			if op.LocalID != localID || op.Status != StatusPending {
				continue
			}
			if err := q.store.RemoveOperation(entity, op.OpID); err != nil {
				return err
			}
		}
		if err := q.store.RemoveSnapshot(entity, localID); err != nil {
			return err
		}
		q.refreshPendingGauge()
		return nil
	}

	// Pending updates are superseded by the delete.
	for _, op := range ops {
		if op.LocalID == localID && op.Status == StatusPending && op.Kind == OpUpdate {
			if err := q.store.RemoveOperation(entity, op.OpID); err != nil {
				return err
			}
		}
	}

	op := &PendingOperation{
		OpID:       q.newID(),
		LocalID:    localID,
		EntityType: entity,
		Kind:       OpDelete,
		CreatedAt:  time.Now().UTC(),
		Status:     StatusPending,
	}
	if err := q.persist(op); err != nil {
		return err
	}
	if err := q.store.RemoveSnapshot(entity, localID); err != nil {
		return err
	}
	metrics.OpsEnqueued.Inc()
	q.refreshPendingGauge()
	return nil
}

// List returns all queued operations for an entity type, oldest first.
func (q *Queue) List(entity models.EntityType) ([]*PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.list(entity)
}

// ListAll returns queued operations across every entity type.
func (q *Queue) ListAll() ([]*PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var all []*PendingOperation
	for _, entity := range models.EntityTypes {
		ops, err := q.list(entity)
		if err != nil {
			return nil, err
		}
		all = append(all, ops...)
	}
	return all, nil
}

// Pending returns only operations still awaiting replay, oldest first.
func (q *Queue) Pending(entity models.EntityType) ([]*PendingOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.list(entity)
	if err != nil {
		return nil, err
	}
	pending := ops[:0]
	for _, op := range ops {
		if op.Status == StatusPending {
			pending = append(pending, op)
		}
	}
	return pending, nil
}

// HasPending reports whether any entries remain queued for a local id.
func (q *Queue) HasPending(entity models.EntityType, localID string) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.list(entity)
	if err != nil {
		return false, err
	}
	for _, op := range ops {
		if op.LocalID == localID {
			return true, nil
		}
	}
	return false, nil
}

// MarkSyncing transitions an operation to in-flight. At most one operation
// per local id may be syncing at a time.
func (q *Queue) MarkSyncing(op *PendingOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.list(op.EntityType)
	if err != nil {
		return err
	}
	for _, other := range ops {
		if other.LocalID == op.LocalID && other.OpID != op.OpID && other.Status == StatusSyncing {
			return fmt.Errorf("record %s already has an in-flight sync", op.LocalID)
		}
	}
	op.Status = StatusSyncing
	return q.persist(op)
}

// MarkSynced records a successful replay and removes the entry from the
// queue.
func (q *Queue) MarkSynced(op *PendingOperation, serverID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	op.Status = StatusSynced
	op.ServerID = serverID
	if err := q.store.RemoveOperation(op.EntityType, op.OpID); err != nil {
		return err
	}
	metrics.OpsSynced.Inc()
	q.refreshPendingGauge()
	return nil
}

// MarkRetry returns a transiently failed operation to the pending state.
// The next drain, triggered by the next connectivity-restored event or a
// manual sync, will pick it up again.
func (q *Queue) MarkRetry(op *PendingOperation, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	op.Status = StatusPending
	op.RetryCount++
	op.LastError = cause.Error()
	metrics.OpsRetried.Inc()
	return q.persist(op)
}

// MarkFailed records a permanent failure. The entry stays queued for manual
// inspection or discard.
func (q *Queue) MarkFailed(op *PendingOperation, cause error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	op.Status = StatusFailed
	op.LastError = cause.Error()
	metrics.OpsFailed.Inc()
	if err := q.persist(op); err != nil {
		return err
	}
	q.refreshPendingGauge()
	return nil
}

// Discard removes every queued entry and the local snapshot for a record.
// Used when the user gives up on a permanently failed operation.
func (q *Queue) Discard(entity models.EntityType, localID string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	ops, err := q.list(entity)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, op := range ops {
		if op.LocalID != localID {
			continue
		}
		if err := q.store.RemoveOperation(entity, op.OpID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		if err := q.store.RemoveSnapshot(entity, localID); err != nil {
			return removed, err
		}
	}
	q.refreshPendingGauge()
	return removed, nil
}

// RecoverInterrupted resets any operation found in the syncing state back to
// pending. Run at startup: if the process died mid-drain the remote call's
// outcome was never observed locally, and the entry must not stay stuck.
func (q *Queue) RecoverInterrupted() (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	recovered := 0
	for _, entity := range models.EntityTypes {
		ops, err := q.list(entity)
		if err != nil {
			return recovered, err
		}
		for _, op := range ops {
			if op.Status != StatusSyncing {
				continue
			}
			op.Status = StatusPending
			if err := q.persist(op); err != nil {
				return recovered, err
			}
			recovered++
		}
	}
	q.refreshPendingGauge()
	return recovered, nil
}

// refreshPendingGauge recounts queued-but-unsynced entries. Callers must
// hold q.mu.
func (q *Queue) refreshPendingGauge() {
	total := 0
	for _, entity := range models.EntityTypes {
		ops, err := q.list(entity)
		if err != nil {
			return
		}
		for _, op := range ops {
			if op.Status == StatusPending || op.Status == StatusSyncing {
				total++
			}
		}
	}
	metrics.OpsPending.Set(float64(total))
}
