// ABOUTME: Queue inspection CLI commands
// ABOUTME: Lists pending operations and discards entries the user gives up on
package cli

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/queue"
)

// QueueListCommand lists every queued operation across entity types.
func QueueListCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	entityFlag := fs.String("entity", "", "Filter by entity type (job, client, invoice)")
	_ = fs.Parse(args)

	var ops []*queue.PendingOperation
	var err error
	if *entityFlag != "" {
		entity, parseErr := models.ParseEntityType(*entityFlag)
		if parseErr != nil {
			return parseErr
		}
		ops, err = app.Queue.List(entity)
	} else {
		ops, err = app.Queue.ListAll()
	}
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(ops) == 0 {
		fmt.Println("Queue is empty")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTITY\tKIND\tSTATUS\tRETRIES\tLOCAL ID\tLAST ERROR")
	_, _ = fmt.Fprintln(w, "------\t----\t------\t-------\t--------\t----------")

	for _, op := range ops {
		lastErr := op.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			op.EntityType, op.Kind, op.Status, op.RetryCount, shortID(op.LocalID), lastErr)
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d queued operation(s)\n", len(ops))
	return nil
}

// QueueDiscardCommand removes all queued entries for a record. The record's
// local snapshot goes with them.
func QueueDiscardCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("discard", flag.ExitOnError)
	entityFlag := fs.String("entity", "", "Entity type (required: job, client, invoice)")
	_ = fs.Parse(args)

	if *entityFlag == "" {
		return fmt.Errorf("--entity is required")
	}
	if len(fs.Args()) < 1 {
		return fmt.Errorf("local ID is required")
	}

	entity, err := models.ParseEntityType(*entityFlag)
	if err != nil {
		return err
	}
	localID := fs.Args()[0]

	// Accept the short form shown by list output.
	if len(localID) == 8 {
		resolved, err := resolveShortID(app, entity, localID)
		if err != nil {
			return err
		}
		localID = resolved
	}

	removed, err := app.Queue.Discard(entity, localID)
	if err != nil {
		return fmt.Errorf("failed to discard: %w", err)
	}
	if removed == 0 {
		return fmt.Errorf("no queued entries for %s %s", entity, localID)
	}

	fmt.Printf("✓ Discarded %d queued operation(s) for %s %s\n", removed, entity, shortID(localID))
	return nil
}

// resolveShortID expands an 8-character id prefix to the full local id.
func resolveShortID(app *App, entity models.EntityType, prefix string) (string, error) {
	ops, err := app.Queue.List(entity)
	if err != nil {
		return "", fmt.Errorf("failed to read queue: %w", err)
	}

	var match string
	for _, op := range ops {
		if len(op.LocalID) >= len(prefix) && op.LocalID[:len(prefix)] == prefix {
			if match != "" && match != op.LocalID {
				return "", fmt.Errorf("ambiguous ID prefix: %s", prefix)
			}
			match = op.LocalID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no queued entries matching %s", prefix)
	}
	return match, nil
}
