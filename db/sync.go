// ABOUTME: Database operations for sync_state and sync_log tables
// ABOUTME: Manages drain status per entity type and the local-to-server id audit trail
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tradehand/tradehand/models"
)

// SyncState represents the drain state for an entity type.
type SyncState struct {
	EntityType    models.EntityType
	LastDrainTime *time.Time
	Status        string
	ErrorMessage  *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// GetSyncState retrieves the sync state for an entity type.
func GetSyncState(db *sql.DB, entity models.EntityType) (*SyncState, error) {
	var state SyncState
	var lastDrainTime sql.NullTime
	var errorMessage sql.NullString

	err := db.QueryRow(`
		SELECT entity_type, last_drain_time, status, error_message, created_at, updated_at
		FROM sync_state
		WHERE entity_type = ?
	`, string(entity)).Scan(
		&state.EntityType,
		&lastDrainTime,
		&state.Status,
		&errorMessage,
		&state.CreatedAt,
		&state.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}

	if lastDrainTime.Valid {
		state.LastDrainTime = &lastDrainTime.Time
	}
	if errorMessage.Valid {
		state.ErrorMessage = &errorMessage.String
	}

	return &state, nil
}

// UpdateSyncStatus updates the drain status for an entity type.
func UpdateSyncStatus(db *sql.DB, entity models.EntityType, status string, errorMsg *string) error {
	var errorMsgVal sql.NullString
	if errorMsg != nil {
		errorMsgVal = sql.NullString{String: *errorMsg, Valid: true}
	}

	_, err := db.Exec(`
		INSERT INTO sync_state (entity_type, last_drain_time, status, error_message, created_at, updated_at)
		VALUES (?, CURRENT_TIMESTAMP, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
		ON CONFLICT(entity_type) DO UPDATE SET
			last_drain_time = CURRENT_TIMESTAMP,
			status = excluded.status,
			error_message = excluded.error_message,
			updated_at = CURRENT_TIMESTAMP
	`, string(entity), status, errorMsgVal)

	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	return nil
}

// CreateSyncLog records that a locally created record received its durable
// server identifier.
func CreateSyncLog(db *sql.DB, localID string, entity models.EntityType, serverID string) error {
	_, err := db.Exec(`
		INSERT INTO sync_log (id, local_id, entity_type, server_id, synced_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, uuid.New().String(), localID, string(entity), serverID)

	if err != nil {
		return fmt.Errorf("failed to create sync log: %w", err)
	}

	return nil
}

// FindServerID looks up the server id previously recorded for a local id.
// Returns "" when the record has never synced.
func FindServerID(db *sql.DB, entity models.EntityType, localID string) (string, error) {
	var serverID string
	err := db.QueryRow(`
		SELECT server_id FROM sync_log
		WHERE entity_type = ? AND local_id = ?
		ORDER BY synced_at DESC LIMIT 1
	`, string(entity), localID).Scan(&serverID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query sync log: %w", err)
	}

	return serverID, nil
}

// GetAllSyncStates retrieves the sync state for all entity types.
func GetAllSyncStates(db *sql.DB) ([]SyncState, error) {
	rows, err := db.Query(`
		SELECT entity_type, last_drain_time, status, error_message, created_at, updated_at
		FROM sync_state
		ORDER BY entity_type
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync states: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var states []SyncState
	for rows.Next() {
		var state SyncState
		var lastDrainTime sql.NullTime
		var errorMessage sql.NullString

		err := rows.Scan(
			&state.EntityType,
			&lastDrainTime,
			&state.Status,
			&errorMessage,
			&state.CreatedAt,
			&state.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync state: %w", err)
		}

		if lastDrainTime.Valid {
			state.LastDrainTime = &lastDrainTime.Time
		}
		if errorMessage.Valid {
			state.ErrorMessage = &errorMessage.String
		}

		states = append(states, state)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sync states: %w", err)
	}

	return states, nil
}
