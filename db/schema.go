// ABOUTME: Database schema definitions and migrations
// ABOUTME: Handles SQLite table creation for synced records and sync bookkeeping
package db

import (
	"database/sql"
)

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	details TEXT,
	client_id TEXT,
	status TEXT NOT NULL,
	scheduled_at DATETIME,
	quoted_amount INTEGER,
	currency TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_jobs_client_id ON jobs(client_id);
CREATE INDEX IF NOT EXISTS idx_jobs_status ON jobs(status);

CREATE TABLE IF NOT EXISTS clients (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT,
	phone TEXT,
	address TEXT,
	notes TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_clients_name ON clients(name);

CREATE TABLE IF NOT EXISTS invoices (
	id TEXT PRIMARY KEY,
	job_id TEXT,
	client_id TEXT,
	amount INTEGER NOT NULL,
	currency TEXT NOT NULL DEFAULT 'AUD',
	status TEXT NOT NULL,
	issued_at DATETIME,
	due_at DATETIME,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_invoices_job_id ON invoices(job_id);
CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);

CREATE TABLE IF NOT EXISTS sync_state (
	entity_type TEXT PRIMARY KEY,
	last_drain_time DATETIME,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS sync_log (
	id TEXT PRIMARY KEY,
	local_id TEXT NOT NULL,
	entity_type TEXT NOT NULL,
	server_id TEXT NOT NULL,
	synced_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sync_log_local_id ON sync_log(local_id);
CREATE INDEX IF NOT EXISTS idx_sync_log_server_id ON sync_log(server_id);
`

// InitSchema creates all tables if they don't exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
