// ABOUTME: Sync CLI commands
// ABOUTME: Manual drain trigger and per-entity sync status reporting
package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/tradehand/tradehand/db"
)

// SyncNowCommand drains the mutation queue once and reports the outcome.
func SyncNowCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("now", flag.ExitOnError)
	_ = fs.Parse(args)

	if !app.Monitor.GetSnapshot() {
		fmt.Println("Offline: queued changes will sync when connectivity returns.")
		return nil
	}

	fmt.Println("Syncing queued changes...")
	summary, err := app.Engine.Drain(context.Background())
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("✓ Sync complete: %d synced, %d retried, %d failed, %d skipped\n",
		summary.Synced, summary.Retried, summary.Failed, summary.Skipped)

	if summary.Failed > 0 {
		fmt.Println("  Run 'tradehand queue list' to inspect failed entries.")
	}
	return nil
}

// SyncStatusCommand shows the last drain outcome per entity type.
func SyncStatusCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	_ = fs.Parse(args)

	states, err := db.GetAllSyncStates(app.DB)
	if err != nil {
		return fmt.Errorf("failed to load sync states: %w", err)
	}

	if app.Monitor.GetSnapshot() {
		fmt.Println("Connectivity: online")
	} else {
		fmt.Println("Connectivity: offline")
	}

	if len(states) == 0 {
		fmt.Println("No sync activity recorded yet")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ENTITY\tSTATUS\tLAST DRAIN\tERROR")
	_, _ = fmt.Fprintln(w, "------\t------\t----------\t-----")

	for _, state := range states {
		lastDrain := "-"
		if state.LastDrainTime != nil {
			lastDrain = state.LastDrainTime.Local().Format("2006-01-02 15:04:05")
		}
		errMsg := "-"
		if state.ErrorMessage != nil {
			errMsg = *state.ErrorMessage
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			state.EntityType, state.Status, lastDrain, errMsg)
	}
	_ = w.Flush()
	return nil
}
