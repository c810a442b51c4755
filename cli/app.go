// ABOUTME: Shared CLI application wiring and the online/offline save path
// ABOUTME: Decides between direct API calls and queueing based on connectivity
package cli

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/tradehand/tradehand/connectivity"
	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/queue"
	"github.com/tradehand/tradehand/store"
	"github.com/tradehand/tradehand/syncmgr"
)

// App bundles the long-lived dependencies every command needs. main builds
// one per process and hands it to the command functions.
type App struct {
	Config  *syncmgr.Config
	DB      *sql.DB
	Store   *store.Store
	Queue   *queue.Queue
	Monitor *connectivity.Monitor
	Engine  *syncmgr.Engine
	Remote  syncmgr.RemoteAPI
}

// submitCreate sends a new record straight to the server when online,
// queueing it instead when offline or when the server cannot be reached.
// Returns the record id (server-assigned or local) and whether it was queued.
func (a *App) submitCreate(ctx context.Context, entity models.EntityType, payload []byte) (string, bool, error) {
	if a.Monitor.GetSnapshot() && a.Remote != nil {
		serverID, err := a.Remote.CreateRecord(ctx, entity, payload)
		if err == nil {
			return serverID, false, nil
		}
		if !syncmgr.IsTransient(err) {
			return "", false, fmt.Errorf("server rejected %s: %w", entity, err)
		}
		// Reached for timeouts and 5xx. The save must still succeed locally.
	}

	localID, err := a.Queue.Enqueue(entity, queue.OpCreate, "", payload)
	if err != nil {
		return "", false, fmt.Errorf("failed to queue %s: %w", entity, err)
	}
	return localID, true, nil
}

// submitUpdate edits an existing record. If the record still has queued
// entries the edit must queue behind them to keep per-record ordering, no
// matter the connectivity.
func (a *App) submitUpdate(ctx context.Context, entity models.EntityType, id string, payload []byte) (bool, error) {
	hasPending, err := a.Queue.HasPending(entity, id)
	if err != nil {
		return false, err
	}

	if !hasPending && a.Monitor.GetSnapshot() && a.Remote != nil {
		err := a.Remote.UpdateRecord(ctx, entity, id, payload)
		if err == nil {
			return false, nil
		}
		if !syncmgr.IsTransient(err) {
			return false, fmt.Errorf("server rejected %s update: %w", entity, err)
		}
	}

	if _, err := a.Queue.Enqueue(entity, queue.OpUpdate, id, payload); err != nil {
		return false, fmt.Errorf("failed to queue %s update: %w", entity, err)
	}
	return true, nil
}

// submitDelete removes a record, queueing the delete when it cannot be
// delivered now. A delete of a never-synced record cancels its queued create.
func (a *App) submitDelete(ctx context.Context, entity models.EntityType, id string) (bool, error) {
	hasPending, err := a.Queue.HasPending(entity, id)
	if err != nil {
		return false, err
	}

	if !hasPending && a.Monitor.GetSnapshot() && a.Remote != nil {
		err := a.Remote.DeleteRecord(ctx, entity, id)
		if err == nil {
			return false, nil
		}
		if !syncmgr.IsTransient(err) {
			return false, fmt.Errorf("server rejected %s delete: %w", entity, err)
		}
	}

	if _, err := a.Queue.Enqueue(entity, queue.OpDelete, id, nil); err != nil {
		return false, fmt.Errorf("failed to queue %s delete: %w", entity, err)
	}
	return true, nil
}
