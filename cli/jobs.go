// ABOUTME: Job CLI commands
// ABOUTME: Human-friendly commands for managing jobs online or offline
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

// AddJobCommand adds a new job, syncing immediately when online.
func AddJobCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-job", flag.ExitOnError)
	title := fs.String("title", "", "Job title (required)")
	details := fs.String("details", "", "Job details")
	clientID := fs.String("client", "", "Client ID")
	status := fs.String("status", models.JobStatusQuoted, "Job status")
	scheduled := fs.String("scheduled", "", "Scheduled time (RFC 3339)")
	amount := fs.Int64("amount", 0, "Quoted amount in cents")
	currency := fs.String("currency", "USD", "Currency code")
	_ = fs.Parse(args)

	if *title == "" {
		return fmt.Errorf("--title is required")
	}

	now := time.Now().UTC()
	job := &models.Job{
		Title:        *title,
		Details:      *details,
		ClientID:     *clientID,
		Status:       *status,
		QuotedAmount: *amount,
		Currency:     *currency,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if *scheduled != "" {
		when, err := time.Parse(time.RFC3339, *scheduled)
		if err != nil {
			return fmt.Errorf("invalid --scheduled time: %w", err)
		}
		job.ScheduledAt = &when
	}

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	id, queued, err := app.submitCreate(context.Background(), models.EntityJob, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Job saved offline: %s (local ID: %s)\n", job.Title, id)
		fmt.Println("  It will sync automatically when you're back online.")
		return nil
	}

	job.ID = id
	if err := db.UpsertJob(app.DB, job); err != nil {
		return fmt.Errorf("failed to save job locally: %w", err)
	}
	fmt.Printf("✓ Job created: %s (ID: %s)\n", job.Title, id)
	return nil
}

// ListJobsCommand lists synced jobs plus any still waiting in the queue.
func ListJobsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-jobs", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	jobs, err := db.ListJobs(app.DB, *limit)
	if err != nil {
		return fmt.Errorf("failed to list jobs: %w", err)
	}

	pending, err := app.Queue.List(models.EntityJob)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(jobs) == 0 && len(pending) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TITLE\tSTATUS\tCLIENT\tSYNC\tID")
	_, _ = fmt.Fprintln(w, "-----\t------\t------\t----\t--")

	for _, job := range jobs {
		client := job.ClientID
		if client == "" {
			client = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			job.Title, job.Status, client, "synced", shortID(job.ID))
	}

	seen := make(map[string]bool)
	for _, op := range pending {
		if seen[op.LocalID] {
			continue
		}
		seen[op.LocalID] = true

		var job models.Job
		title := "(queued delete)"
		if len(op.Payload) > 0 {
			if err := json.Unmarshal(op.Payload, &job); err == nil {
				title = job.Title
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			title, job.Status, "-", string(op.Status), shortID(op.LocalID))
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d synced, %d queued\n", len(jobs), len(seen))
	return nil
}

// UpdateJobCommand updates an existing job by ID.
func UpdateJobCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("update-job", flag.ExitOnError)
	title := fs.String("title", "", "Job title")
	details := fs.String("details", "", "Job details")
	status := fs.String("status", "", "Job status")
	amount := fs.Int64("amount", -1, "Quoted amount in cents")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("job ID is required")
	}
	jobID := fs.Args()[0]

	job, err := loadJob(app, jobID)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job not found: %s", jobID)
	}

	if *title != "" {
		job.Title = *title
	}
	if *details != "" {
		job.Details = *details
	}
	if *status != "" {
		job.Status = *status
	}
	if *amount >= 0 {
		job.QuotedAmount = *amount
	}
	job.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	queued, err := app.submitUpdate(context.Background(), models.EntityJob, jobID, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Job update saved offline: %s\n", job.Title)
		return nil
	}
	if err := db.UpsertJob(app.DB, job); err != nil {
		return fmt.Errorf("failed to save job locally: %w", err)
	}
	fmt.Printf("✓ Job updated: %s (ID: %s)\n", job.Title, jobID)
	return nil
}

// DeleteJobCommand deletes a job by ID.
func DeleteJobCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-job", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("job ID is required")
	}
	jobID := fs.Args()[0]

	queued, err := app.submitDelete(context.Background(), models.EntityJob, jobID)
	if err != nil {
		return err
	}

	if err := db.DeleteJob(app.DB, jobID); err != nil {
		return fmt.Errorf("failed to remove job locally: %w", err)
	}

	if queued {
		fmt.Printf("✓ Job delete saved offline: %s\n", jobID)
	} else {
		fmt.Printf("✓ Job deleted: %s\n", jobID)
	}
	return nil
}

// loadJob resolves a job by ID, checking the local snapshot of a queued
// record before the synced mirror.
func loadJob(app *App, id string) (*models.Job, error) {
	data, err := app.Store.GetSnapshot(models.EntityJob, id)
	if err == nil {
		var job models.Job
		if err := json.Unmarshal(data, &job); err != nil {
			return nil, fmt.Errorf("failed to decode queued job: %w", err)
		}
		return &job, nil
	}

	job, err := db.GetJob(app.DB, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	return job, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
