// ABOUTME: Reconciliation engine that drains the mutation queue against the remote API
// ABOUTME: Maps local ids to server ids, classifies failures, and retires synced snapshots
package syncmgr

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	dbpkg "github.com/tradehand/tradehand/db"
	"github.com/tradehand/tradehand/metrics"
	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/notify"
	"github.com/tradehand/tradehand/queue"
	"github.com/tradehand/tradehand/store"
)

// Summary reports the outcome of one drain pass.
type Summary struct {
	Synced  int
	Retried int
	Failed  int
	Skipped int
}

// Engine replays pending operations against the remote API whenever
// connectivity allows. Conflict policy is last-writer-wins at whole-record
// granularity: replayed updates overwrite concurrent server-side edits
// without a version check.
type Engine struct {
	queue      *queue.Queue
	store      *store.Store
	appDB      *sql.DB // SQLite mirror of synced records; nil disables mirroring
	remote     RemoteAPI
	notifier   notify.Notifier
	maxRetries int

	// draining is the single in-flight guard: a second Drain while one is
	// running is a no-op, which prevents duplicate submissions.
	draining atomic.Bool
}

// NewEngine creates a reconciliation engine.
func NewEngine(q *queue.Queue, st *store.Store, appDB *sql.DB, remote RemoteAPI, notifier notify.Notifier, maxRetries int) *Engine {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Engine{
		queue:      q,
		store:      st,
		appDB:      appDB,
		remote:     remote,
		notifier:   notifier,
		maxRetries: maxRetries,
	}
}

// RecoverInterrupted resets operations stranded in the syncing state by a
// crash. Must run once at startup, before the first drain.
func (e *Engine) RecoverInterrupted() (int, error) {
	return e.queue.RecoverInterrupted()
}

// Drain replays every pending operation, oldest first. Operations for the
// same local id are replayed strictly in enqueue order; a failure blocks
// the rest of that record's entries until the next drain. Idempotent: with
// no new enqueues, a second pass issues no duplicate remote calls.
func (e *Engine) Drain(ctx context.Context) (Summary, error) {
	var summary Summary
	if !e.draining.CompareAndSwap(false, true) {
		// Another drain is running; it will observe the current queue
		// state, so this caller has nothing to do.
		return summary, nil
	}
	defer e.draining.Store(false)

	start := time.Now()
	defer func() { metrics.DrainDuration.Observe(time.Since(start).Seconds()) }()

	for _, entity := range models.EntityTypes {
		if err := e.drainEntity(ctx, entity, &summary); err != nil {
			e.recordSyncStatus(entity, "error", err.Error())
			return summary, err
		}
		e.recordSyncStatus(entity, "idle", "")
	}

	log.Printf("drain complete: %d synced, %d retried, %d failed, %d skipped",
		summary.Synced, summary.Retried, summary.Failed, summary.Skipped)
	return summary, nil
}

func (e *Engine) drainEntity(ctx context.Context, entity models.EntityType, summary *Summary) error {
	ops, err := e.queue.Pending(entity)
	if err != nil {
		return fmt.Errorf("failed to list pending operations: %w", err)
	}

	// A failed operation blocks later entries for the same record so the
	// per-record replay order is never violated.
	blocked := make(map[string]bool)

	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		if blocked[op.LocalID] {
			summary.Skipped++
			continue
		}

		if err := e.queue.MarkSyncing(op); err != nil {
			return err
		}

		serverID, replayErr := e.replay(ctx, op)
		if replayErr == nil {
			if err := e.finalize(op, serverID); err != nil {
				return err
			}
			summary.Synced++
			continue
		}

		blocked[op.LocalID] = true

		if IsTransient(replayErr) && !e.retriesExhausted(op) {
			if err := e.queue.MarkRetry(op, replayErr); err != nil {
				return err
			}
			summary.Retried++
			continue
		}

		if err := e.queue.MarkFailed(op, replayErr); err != nil {
			return err
		}
		summary.Failed++
		e.notifier.Notify("Sync failed",
			fmt.Sprintf("Could not sync %s %s: %v", op.EntityType, op.LocalID, replayErr))
	}

	return nil
}

// retriesExhausted reports whether a transient failure should be promoted
// to a permanent one. maxRetries 0 disables the ceiling.
func (e *Engine) retriesExhausted(op *queue.PendingOperation) bool {
	return e.maxRetries > 0 && op.RetryCount+1 >= e.maxRetries
}

// replay issues the remote call for one operation. Returns the server id
// for creates; for updates and deletes the mapped server id (or the local
// id itself, for records that originated on the server) is targeted.
func (e *Engine) replay(ctx context.Context, op *queue.PendingOperation) (string, error) {
	serverID, err := e.store.GetServerID(op.EntityType, op.LocalID)
	if err != nil {
		return "", err
	}

	switch op.Kind {
	case queue.OpCreate:
		// A create whose server id is already mapped was confirmed on a
		// previous run that died before the queue entry was removed.
		// Replaying it as an update avoids a duplicate server record.
		if serverID != "" {
			return serverID, e.remote.UpdateRecord(ctx, op.EntityType, serverID, op.Payload)
		}
		return e.remote.CreateRecord(ctx, op.EntityType, op.Payload)
	case queue.OpUpdate:
		id := serverID
		if id == "" {
			id = op.LocalID
		}
		return id, e.remote.UpdateRecord(ctx, op.EntityType, id, op.Payload)
	case queue.OpDelete:
		id := serverID
		if id == "" {
			id = op.LocalID
		}
		return id, e.remote.DeleteRecord(ctx, op.EntityType, id)
	default:
		return "", &PermanentError{Msg: fmt.Sprintf("unknown operation kind %q", op.Kind)}
	}
}

// finalize records a successful replay: persists the id mapping, updates
// the SQLite mirror, removes the queue entry, and retires the local
// snapshot once nothing else is pending for the record.
func (e *Engine) finalize(op *queue.PendingOperation, serverID string) error {
	if op.Kind == queue.OpCreate {
		if err := e.store.PutServerID(op.EntityType, op.LocalID, serverID); err != nil {
			return err
		}
		if e.appDB != nil {
			if err := dbpkg.CreateSyncLog(e.appDB, op.LocalID, op.EntityType, serverID); err != nil {
				return err
			}
		}
	}

	if err := e.applyMirror(op, serverID); err != nil {
		return err
	}

	if err := e.queue.MarkSynced(op, serverID); err != nil {
		return err
	}

	if op.Kind == queue.OpDelete {
		if err := e.store.RemoveServerID(op.EntityType, op.LocalID); err != nil {
			return err
		}
		return e.store.RemoveSnapshot(op.EntityType, op.LocalID)
	}

	// The snapshot is superseded by the server-confirmed mirror row once no
	// further entries reference the record.
	hasPending, err := e.queue.HasPending(op.EntityType, op.LocalID)
	if err != nil {
		return err
	}
	if !hasPending {
		return e.store.RemoveSnapshot(op.EntityType, op.LocalID)
	}
	return nil
}

// applyMirror writes the server-confirmed state into the SQLite mirror.
func (e *Engine) applyMirror(op *queue.PendingOperation, serverID string) error {
	if e.appDB == nil {
		return nil
	}

	if op.Kind == queue.OpDelete {
		switch op.EntityType {
		case models.EntityJob:
			return dbpkg.DeleteJob(e.appDB, serverID)
		case models.EntityClient:
			return dbpkg.DeleteClient(e.appDB, serverID)
		case models.EntityInvoice:
			return dbpkg.DeleteInvoice(e.appDB, serverID)
		}
		return nil
	}

	switch op.EntityType {
	case models.EntityJob:
		var job models.Job
		if err := json.Unmarshal(op.Payload, &job); err != nil {
			return fmt.Errorf("failed to unmarshal job payload: %w", err)
		}
		job.ID = serverID
		return dbpkg.UpsertJob(e.appDB, &job)
	case models.EntityClient:
		var client models.Client
		if err := json.Unmarshal(op.Payload, &client); err != nil {
			return fmt.Errorf("failed to unmarshal client payload: %w", err)
		}
		client.ID = serverID
		return dbpkg.UpsertClient(e.appDB, &client)
	case models.EntityInvoice:
		var invoice models.Invoice
		if err := json.Unmarshal(op.Payload, &invoice); err != nil {
			return fmt.Errorf("failed to unmarshal invoice payload: %w", err)
		}
		invoice.ID = serverID
		return dbpkg.UpsertInvoice(e.appDB, &invoice)
	}
	return nil
}

func (e *Engine) recordSyncStatus(entity models.EntityType, status, errMsg string) {
	if e.appDB == nil {
		return
	}
	var msg *string
	if errMsg != "" {
		msg = &errMsg
	}
	if err := dbpkg.UpdateSyncStatus(e.appDB, entity, status, msg); err != nil {
		log.Printf("warning: failed to record sync status: %v", err)
	}
}
