// ABOUTME: Tests for database initialization and record CRUD
// ABOUTME: Covers schema creation, WAL mode, upserts, and sync bookkeeping
package db

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehand/tradehand/models"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	database, err := OpenDatabase(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func TestOpenDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	database, err := OpenDatabase(path)
	require.NoError(t, err)
	defer database.Close()

	var count int
	err = database.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table'").Scan(&count)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 5, "expected all tables to be created")

	var mode string
	err = database.QueryRow("PRAGMA journal_mode").Scan(&mode)
	require.NoError(t, err)
	assert.Equal(t, "wal", mode)

	var timeout int
	err = database.QueryRow("PRAGMA busy_timeout").Scan(&timeout)
	require.NoError(t, err)
	assert.Equal(t, 5000, timeout)
}

func TestOpenDatabaseInvalidPath(t *testing.T) {
	_, err := OpenDatabase("/invalid/nonexistent/path/that/cannot/be/created/test.db")
	assert.Error(t, err)
}

func TestJobUpsertAndGet(t *testing.T) {
	database := openTestDB(t)

	scheduled := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	job := &models.Job{
		ID:           "srv-1",
		Title:        "Fix tap",
		Details:      "Kitchen mixer dripping",
		ClientID:     "srv-c1",
		Status:       models.JobStatusScheduled,
		ScheduledAt:  &scheduled,
		QuotedAmount: 12000,
		Currency:     "AUD",
	}
	require.NoError(t, UpsertJob(database, job))

	got, err := GetJob(database, "srv-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Fix tap", got.Title)
	assert.Equal(t, models.JobStatusScheduled, got.Status)
	require.NotNil(t, got.ScheduledAt)
	assert.True(t, scheduled.Equal(*got.ScheduledAt))

	// Upsert overwrites in place.
	job.Title = "Fix tap and replace washer"
	require.NoError(t, UpsertJob(database, job))

	got, err = GetJob(database, "srv-1")
	require.NoError(t, err)
	assert.Equal(t, "Fix tap and replace washer", got.Title)

	jobs, err := ListJobs(database, 0)
	require.NoError(t, err)
	assert.Len(t, jobs, 1)
}

func TestGetJobAbsent(t *testing.T) {
	database := openTestDB(t)

	job, err := GetJob(database, "missing")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestDeleteJobIdempotent(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, UpsertJob(database, &models.Job{ID: "srv-1", Title: "A", Status: models.JobStatusQuoted}))
	require.NoError(t, DeleteJob(database, "srv-1"))
	require.NoError(t, DeleteJob(database, "srv-1"))

	job, err := GetJob(database, "srv-1")
	require.NoError(t, err)
	assert.Nil(t, job)
}

func TestClientCRUD(t *testing.T) {
	database := openTestDB(t)

	client := &models.Client{
		ID:      "srv-c1",
		Name:    "Dana Moreno",
		Email:   "dana@example.com",
		Phone:   "0400 000 000",
		Address: "12 High St",
	}
	require.NoError(t, UpsertClient(database, client))

	got, err := GetClient(database, "srv-c1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dana Moreno", got.Name)

	clients, err := ListClients(database, 0)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	require.NoError(t, DeleteClient(database, "srv-c1"))
	got, err = GetClient(database, "srv-c1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestInvoiceCRUD(t *testing.T) {
	database := openTestDB(t)

	due := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	invoice := &models.Invoice{
		ID:       "srv-i1",
		JobID:    "srv-1",
		ClientID: "srv-c1",
		Amount:   45000,
		Currency: "AUD",
		Status:   models.InvoiceStatusSent,
		DueAt:    &due,
	}
	require.NoError(t, UpsertInvoice(database, invoice))

	got, err := GetInvoice(database, "srv-i1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, int64(45000), got.Amount)
	require.NotNil(t, got.DueAt)

	invoices, err := ListInvoices(database, 0)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	require.NoError(t, DeleteInvoice(database, "srv-i1"))
}

func TestSyncStateLifecycle(t *testing.T) {
	database := openTestDB(t)

	state, err := GetSyncState(database, models.EntityJob)
	require.NoError(t, err)
	assert.Nil(t, state, "no state before the first drain")

	require.NoError(t, UpdateSyncStatus(database, models.EntityJob, "idle", nil))

	state, err = GetSyncState(database, models.EntityJob)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "idle", state.Status)
	assert.Nil(t, state.ErrorMessage)

	msg := "server unreachable"
	require.NoError(t, UpdateSyncStatus(database, models.EntityJob, "error", &msg))

	state, err = GetSyncState(database, models.EntityJob)
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "error", state.Status)
	require.NotNil(t, state.ErrorMessage)
	assert.Equal(t, msg, *state.ErrorMessage)

	states, err := GetAllSyncStates(database)
	require.NoError(t, err)
	assert.Len(t, states, 1)
}

func TestSyncLogMapping(t *testing.T) {
	database := openTestDB(t)

	sid, err := FindServerID(database, models.EntityJob, "local-1")
	require.NoError(t, err)
	assert.Empty(t, sid)

	require.NoError(t, CreateSyncLog(database, "local-1", models.EntityJob, "srv-42"))

	sid, err = FindServerID(database, models.EntityJob, "local-1")
	require.NoError(t, err)
	assert.Equal(t, "srv-42", sid)
}
