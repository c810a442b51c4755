// ABOUTME: CRUD operations for synced job, client, and invoice records
// ABOUTME: The mirror holds server-confirmed state; offline edits live in the queue until drained
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tradehand/tradehand/models"
)

// UpsertJob writes a server-confirmed job record.
func UpsertJob(db *sql.DB, job *models.Job) error {
	now := time.Now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO jobs (id, title, details, client_id, status, scheduled_at, quoted_amount, currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			details = excluded.details,
			client_id = excluded.client_id,
			status = excluded.status,
			scheduled_at = excluded.scheduled_at,
			quoted_amount = excluded.quoted_amount,
			currency = excluded.currency,
			updated_at = excluded.updated_at
	`, job.ID, job.Title, job.Details, job.ClientID, job.Status, job.ScheduledAt, job.QuotedAmount, job.Currency, job.CreatedAt, job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert job: %w", err)
	}
	return nil
}

// GetJob returns a job by id, or nil when absent.
func GetJob(db *sql.DB, id string) (*models.Job, error) {
	job := &models.Job{}
	var scheduledAt sql.NullTime

	err := db.QueryRow(`
		SELECT id, title, details, client_id, status, scheduled_at, quoted_amount, currency, created_at, updated_at
		FROM jobs WHERE id = ?
	`, id).Scan(
		&job.ID,
		&job.Title,
		&job.Details,
		&job.ClientID,
		&job.Status,
		&scheduledAt,
		&job.QuotedAmount,
		&job.Currency,
		&job.CreatedAt,
		&job.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	if scheduledAt.Valid {
		job.ScheduledAt = &scheduledAt.Time
	}

	return job, nil
}

// ListJobs returns jobs ordered by most recently updated.
func ListJobs(db *sql.DB, limit int) ([]models.Job, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, title, details, client_id, status, scheduled_at, quoted_amount, currency, created_at, updated_at
		FROM jobs ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var jobs []models.Job
	for rows.Next() {
		var job models.Job
		var scheduledAt sql.NullTime
		err := rows.Scan(
			&job.ID,
			&job.Title,
			&job.Details,
			&job.ClientID,
			&job.Status,
			&scheduledAt,
			&job.QuotedAmount,
			&job.Currency,
			&job.CreatedAt,
			&job.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		if scheduledAt.Valid {
			job.ScheduledAt = &scheduledAt.Time
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// DeleteJob removes a job row. Deleting an absent row is not an error.
func DeleteJob(db *sql.DB, id string) error {
	_, err := db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete job: %w", err)
	}
	return nil
}

// UpsertClient writes a server-confirmed client record.
func UpsertClient(db *sql.DB, client *models.Client) error {
	now := time.Now()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO clients (id, name, email, phone, address, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			notes = excluded.notes,
			updated_at = excluded.updated_at
	`, client.ID, client.Name, client.Email, client.Phone, client.Address, client.Notes, client.CreatedAt, client.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert client: %w", err)
	}
	return nil
}

// GetClient returns a client by id, or nil when absent.
func GetClient(db *sql.DB, id string) (*models.Client, error) {
	client := &models.Client{}

	err := db.QueryRow(`
		SELECT id, name, email, phone, address, notes, created_at, updated_at
		FROM clients WHERE id = ?
	`, id).Scan(
		&client.ID,
		&client.Name,
		&client.Email,
		&client.Phone,
		&client.Address,
		&client.Notes,
		&client.CreatedAt,
		&client.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	return client, nil
}

// ListClients returns clients ordered by name.
func ListClients(db *sql.DB, limit int) ([]models.Client, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, name, email, phone, address, notes, created_at, updated_at
		FROM clients ORDER BY name LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var clients []models.Client
	for rows.Next() {
		var client models.Client
		err := rows.Scan(
			&client.ID,
			&client.Name,
			&client.Email,
			&client.Phone,
			&client.Address,
			&client.Notes,
			&client.CreatedAt,
			&client.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, client)
	}

	return clients, rows.Err()
}

// DeleteClient removes a client row. Idempotent.
func DeleteClient(db *sql.DB, id string) error {
	_, err := db.Exec(`DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete client: %w", err)
	}
	return nil
}

// UpsertInvoice writes a server-confirmed invoice record.
func UpsertInvoice(db *sql.DB, invoice *models.Invoice) error {
	now := time.Now()
	if invoice.CreatedAt.IsZero() {
		invoice.CreatedAt = now
	}
	invoice.UpdatedAt = now

	_, err := db.Exec(`
		INSERT INTO invoices (id, job_id, client_id, amount, currency, status, issued_at, due_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			job_id = excluded.job_id,
			client_id = excluded.client_id,
			amount = excluded.amount,
			currency = excluded.currency,
			status = excluded.status,
			issued_at = excluded.issued_at,
			due_at = excluded.due_at,
			updated_at = excluded.updated_at
	`, invoice.ID, invoice.JobID, invoice.ClientID, invoice.Amount, invoice.Currency, invoice.Status, invoice.IssuedAt, invoice.DueAt, invoice.CreatedAt, invoice.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert invoice: %w", err)
	}
	return nil
}

// GetInvoice returns an invoice by id, or nil when absent.
func GetInvoice(db *sql.DB, id string) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	var issuedAt, dueAt sql.NullTime

	err := db.QueryRow(`
		SELECT id, job_id, client_id, amount, currency, status, issued_at, due_at, created_at, updated_at
		FROM invoices WHERE id = ?
	`, id).Scan(
		&invoice.ID,
		&invoice.JobID,
		&invoice.ClientID,
		&invoice.Amount,
		&invoice.Currency,
		&invoice.Status,
		&issuedAt,
		&dueAt,
		&invoice.CreatedAt,
		&invoice.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	if issuedAt.Valid {
		invoice.IssuedAt = &issuedAt.Time
	}
	if dueAt.Valid {
		invoice.DueAt = &dueAt.Time
	}

	return invoice, nil
}

// ListInvoices returns invoices ordered by most recently updated.
func ListInvoices(db *sql.DB, limit int) ([]models.Invoice, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := db.Query(`
		SELECT id, job_id, client_id, amount, currency, status, issued_at, due_at, created_at, updated_at
		FROM invoices ORDER BY updated_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var invoices []models.Invoice
	for rows.Next() {
		var invoice models.Invoice
		var issuedAt, dueAt sql.NullTime
		err := rows.Scan(
			&invoice.ID,
			&invoice.JobID,
			&invoice.ClientID,
			&invoice.Amount,
			&invoice.Currency,
			&invoice.Status,
			&issuedAt,
			&dueAt,
			&invoice.CreatedAt,
			&invoice.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		if issuedAt.Valid {
			invoice.IssuedAt = &issuedAt.Time
		}
		if dueAt.Valid {
			invoice.DueAt = &dueAt.Time
		}
		invoices = append(invoices, invoice)
	}

	return invoices, rows.Err()
}

// DeleteInvoice removes an invoice row. Idempotent.
func DeleteInvoice(db *sql.DB, id string) error {
	_, err := db.Exec(`DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	return nil
}
