// ABOUTME: Invoice CLI commands
// ABOUTME: Human-friendly commands for managing invoices online or offline
package cli

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/tradehand/tradehand/db"
	"github.com/tradehand/tradehand/models"
)

// AddInvoiceCommand adds a new invoice, syncing immediately when online.
func AddInvoiceCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-invoice", flag.ExitOnError)
	jobID := fs.String("job", "", "Job ID")
	clientID := fs.String("client", "", "Client ID")
	amount := fs.Int64("amount", 0, "Invoice amount in cents (required)")
	currency := fs.String("currency", "USD", "Currency code")
	due := fs.String("due", "", "Due date (RFC 3339)")
	_ = fs.Parse(args)

	if *amount <= 0 {
		return fmt.Errorf("--amount is required and must be positive")
	}

	now := time.Now().UTC()
	invoice := &models.Invoice{
		JobID:     *jobID,
		ClientID:  *clientID,
		Amount:    *amount,
		Currency:  *currency,
		Status:    models.InvoiceStatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if *due != "" {
		when, err := time.Parse(time.RFC3339, *due)
		if err != nil {
			return fmt.Errorf("invalid --due date: %w", err)
		}
		invoice.DueAt = &when
	}

	data, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("failed to encode invoice: %w", err)
	}

	id, queued, err := app.submitCreate(context.Background(), models.EntityInvoice, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Invoice saved offline (local ID: %s)\n", id)
		fmt.Println("  It will sync automatically when you're back online.")
		return nil
	}

	invoice.ID = id
	if err := db.UpsertInvoice(app.DB, invoice); err != nil {
		return fmt.Errorf("failed to save invoice locally: %w", err)
	}
	fmt.Printf("✓ Invoice created: %s %d (ID: %s)\n", invoice.Currency, invoice.Amount, id)
	return nil
}

// ListInvoicesCommand lists synced invoices plus any still in the queue.
func ListInvoicesCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-invoices", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	invoices, err := db.ListInvoices(app.DB, *limit)
	if err != nil {
		return fmt.Errorf("failed to list invoices: %w", err)
	}

	pending, err := app.Queue.List(models.EntityInvoice)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(invoices) == 0 && len(pending) == 0 {
		fmt.Println("No invoices found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AMOUNT\tSTATUS\tJOB\tSYNC\tID")
	_, _ = fmt.Fprintln(w, "------\t------\t---\t----\t--")

	for _, invoice := range invoices {
		job := invoice.JobID
		if job == "" {
			job = "-"
		}
		_, _ = fmt.Fprintf(w, "%s %d\t%s\t%s\t%s\t%s\n",
			invoice.Currency, invoice.Amount, invoice.Status, job, "synced", shortID(invoice.ID))
	}

	seen := make(map[string]bool)
	for _, op := range pending {
		if seen[op.LocalID] {
			continue
		}
		seen[op.LocalID] = true

		var invoice models.Invoice
		if len(op.Payload) > 0 {
			_ = json.Unmarshal(op.Payload, &invoice)
		}
		_, _ = fmt.Fprintf(w, "%s %d\t%s\t-\t%s\t%s\n",
			invoice.Currency, invoice.Amount, invoice.Status, string(op.Status), shortID(op.LocalID))
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d synced, %d queued\n", len(invoices), len(seen))
	return nil
}

// UpdateInvoiceCommand updates an existing invoice by ID.
func UpdateInvoiceCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("update-invoice", flag.ExitOnError)
	amount := fs.Int64("amount", -1, "Invoice amount in cents")
	status := fs.String("status", "", "Invoice status")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("invoice ID is required")
	}
	invoiceID := fs.Args()[0]

	invoice, err := loadInvoice(app, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return fmt.Errorf("invoice not found: %s", invoiceID)
	}

	if *amount >= 0 {
		invoice.Amount = *amount
	}
	if *status != "" {
		invoice.Status = *status
	}
	invoice.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(invoice)
	if err != nil {
		return fmt.Errorf("failed to encode invoice: %w", err)
	}

	queued, err := app.submitUpdate(context.Background(), models.EntityInvoice, invoiceID, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Invoice update saved offline: %s\n", invoiceID)
		return nil
	}
	if err := db.UpsertInvoice(app.DB, invoice); err != nil {
		return fmt.Errorf("failed to save invoice locally: %w", err)
	}
	fmt.Printf("✓ Invoice updated: %s\n", invoiceID)
	return nil
}

// DeleteInvoiceCommand deletes an invoice by ID.
func DeleteInvoiceCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-invoice", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("invoice ID is required")
	}
	invoiceID := fs.Args()[0]

	queued, err := app.submitDelete(context.Background(), models.EntityInvoice, invoiceID)
	if err != nil {
		return err
	}

	if err := db.DeleteInvoice(app.DB, invoiceID); err != nil {
		return fmt.Errorf("failed to remove invoice locally: %w", err)
	}

	if queued {
		fmt.Printf("✓ Invoice delete saved offline: %s\n", invoiceID)
	} else {
		fmt.Printf("✓ Invoice deleted: %s\n", invoiceID)
	}
	return nil
}

func loadInvoice(app *App, id string) (*models.Invoice, error) {
	data, err := app.Store.GetSnapshot(models.EntityInvoice, id)
	if err == nil {
		var invoice models.Invoice
		if err := json.Unmarshal(data, &invoice); err != nil {
			return nil, fmt.Errorf("failed to decode queued invoice: %w", err)
		}
		return &invoice, nil
	}

	invoice, err := db.GetInvoice(app.DB, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load invoice: %w", err)
	}
	return invoice, nil
}
