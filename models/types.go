// ABOUTME: Data models for TradeHand entities
// ABOUTME: Defines Job, Client, and Invoice structs plus entity type constants
package models

import (
	"fmt"
	"time"
)

// EntityType identifies a syncable business record kind.
type EntityType string

const (
	EntityJob     EntityType = "job"
	EntityClient  EntityType = "client"
	EntityInvoice EntityType = "invoice"
)

// EntityTypes lists every syncable entity kind, used when scanning the
// whole queue across entities.
var EntityTypes = []EntityType{EntityJob, EntityClient, EntityInvoice}

// APIPath returns the remote REST collection path for the entity type.
func (e EntityType) APIPath() string {
	switch e {
	case EntityJob:
		return "jobs"
	case EntityClient:
		return "clients"
	case EntityInvoice:
		return "invoices"
	}
	return string(e) + "s"
}

// Valid reports whether the entity type is a known kind.
func (e EntityType) Valid() bool {
	switch e {
	case EntityJob, EntityClient, EntityInvoice:
		return true
	}
	return false
}

// ParseEntityType converts a string into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	e := EntityType(s)
	if !e.Valid() {
		return "", fmt.Errorf("unknown entity type: %q", s)
	}
	return e, nil
}

// Job is a unit of work scheduled for a client. ID is a locally generated
// ULID until the first successful sync, after which the server-assigned
// identifier is recorded alongside it.
type Job struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Details      string     `json:"details,omitempty"`
	ClientID     string     `json:"client_id,omitempty"`
	Status       string     `json:"status"`
	ScheduledAt  *time.Time `json:"scheduled_at,omitempty"`
	QuotedAmount int64      `json:"quoted_amount,omitempty"` // in cents
	Currency     string     `json:"currency,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type Client struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Invoice struct {
	ID        string     `json:"id"`
	JobID     string     `json:"job_id,omitempty"`
	ClientID  string     `json:"client_id,omitempty"`
	Amount    int64      `json:"amount"` // in cents
	Currency  string     `json:"currency"`
	Status    string     `json:"status"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	DueAt     *time.Time `json:"due_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

const (
	JobStatusQuoted     = "quoted"
	JobStatusScheduled  = "scheduled"
	JobStatusInProgress = "in_progress"
	JobStatusDone       = "done"
	JobStatusCancelled  = "cancelled"
)

const (
	InvoiceStatusDraft   = "draft"
	InvoiceStatusSent    = "sent"
	InvoiceStatusPaid    = "paid"
	InvoiceStatusOverdue = "overdue"
)
