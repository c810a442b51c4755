// ABOUTME: Client CLI commands
// ABOUTME: Human-friendly commands for managing clients online or offline
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

// AddClientCommand adds a new client, syncing immediately when online.
func AddClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("add-client", flag.ExitOnError)
	name := fs.String("name", "", "Client name (required)")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	address := fs.String("address", "", "Street address")
	notes := fs.String("notes", "", "Notes about the client")
	_ = fs.Parse(args)

	if *name == "" {
		return fmt.Errorf("--name is required")
	}

	now := time.Now().UTC()
	client := &models.Client{
		Name:      *name,
		Email:     *email,
		Phone:     *phone,
		Address:   *address,
		Notes:     *notes,
		CreatedAt: now,
		UpdatedAt: now,
	}

	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("failed to encode client: %w", err)
	}

	id, queued, err := app.submitCreate(context.Background(), models.EntityClient, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Client saved offline: %s (local ID: %s)\n", client.Name, id)
		fmt.Println("  It will sync automatically when you're back online.")
		return nil
	}

	client.ID = id
	if err := db.UpsertClient(app.DB, client); err != nil {
		return fmt.Errorf("failed to save client locally: %w", err)
	}
	fmt.Printf("✓ Client created: %s (ID: %s)\n", client.Name, id)
	return nil
}

// ListClientsCommand lists synced clients plus any still in the queue.
func ListClientsCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("list-clients", flag.ExitOnError)
	limit := fs.Int("limit", 50, "Maximum results")
	_ = fs.Parse(args)

	clients, err := db.ListClients(app.DB, *limit)
	if err != nil {
		return fmt.Errorf("failed to list clients: %w", err)
	}

	pending, err := app.Queue.List(models.EntityClient)
	if err != nil {
		return fmt.Errorf("failed to read queue: %w", err)
	}

	if len(clients) == 0 && len(pending) == 0 {
		fmt.Println("No clients found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tEMAIL\tPHONE\tSYNC\tID")
	_, _ = fmt.Fprintln(w, "----\t-----\t-----\t----\t--")

	for _, client := range clients {
		email := client.Email
		if email == "" {
			email = "-"
		}
		phone := client.Phone
		if phone == "" {
			phone = "-"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			client.Name, email, phone, "synced", shortID(client.ID))
	}

	seen := make(map[string]bool)
	for _, op := range pending {
		if seen[op.LocalID] {
			continue
		}
		seen[op.LocalID] = true

		var client models.Client
		name := "(queued delete)"
		if len(op.Payload) > 0 {
			if err := json.Unmarshal(op.Payload, &client); err == nil {
				name = client.Name
			}
		}
		_, _ = fmt.Fprintf(w, "%s\t-\t-\t%s\t%s\n",
			name, string(op.Status), shortID(op.LocalID))
	}
	_ = w.Flush()

	fmt.Printf("\nTotal: %d synced, %d queued\n", len(clients), len(seen))
	return nil
}

// UpdateClientCommand updates an existing client by ID.
func UpdateClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("update-client", flag.ExitOnError)
	name := fs.String("name", "", "Client name")
	email := fs.String("email", "", "Email address")
	phone := fs.String("phone", "", "Phone number")
	address := fs.String("address", "", "Street address")
	notes := fs.String("notes", "", "Notes about the client")
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("client ID is required")
	}
	clientID := fs.Args()[0]

	client, err := loadClient(app, clientID)
	if err != nil {
		return err
	}
	if client == nil {
		return fmt.Errorf("client not found: %s", clientID)
	}

	if *name != "" {
		client.Name = *name
	}
	if *email != "" {
		client.Email = *email
	}
	if *phone != "" {
		client.Phone = *phone
	}
	if *address != "" {
		client.Address = *address
	}
	if *notes != "" {
		client.Notes = *notes
	}
	client.UpdatedAt = time.Now().UTC()

	data, err := json.Marshal(client)
	if err != nil {
		return fmt.Errorf("failed to encode client: %w", err)
	}

	queued, err := app.submitUpdate(context.Background(), models.EntityClient, clientID, data)
	if err != nil {
		return err
	}

	if queued {
		fmt.Printf("✓ Client update saved offline: %s\n", client.Name)
		return nil
	}
	if err := db.UpsertClient(app.DB, client); err != nil {
		return fmt.Errorf("failed to save client locally: %w", err)
	}
	fmt.Printf("✓ Client updated: %s (ID: %s)\n", client.Name, clientID)
	return nil
}

// DeleteClientCommand deletes a client by ID.
func DeleteClientCommand(app *App, args []string) error {
	fs := flag.NewFlagSet("delete-client", flag.ExitOnError)
	_ = fs.Parse(args)

	if len(fs.Args()) < 1 {
		return fmt.Errorf("client ID is required")
	}
	clientID := fs.Args()[0]

	queued, err := app.submitDelete(context.Background(), models.EntityClient, clientID)
	if err != nil {
		return err
	}

	if err := db.DeleteClient(app.DB, clientID); err != nil {
		return fmt.Errorf("failed to remove client locally: %w", err)
	}

	if queued {
		fmt.Printf("✓ Client delete saved offline: %s\n", clientID)
	} else {
		fmt.Printf("✓ Client deleted: %s\n", clientID)
	}
	return nil
}

func loadClient(app *App, id string) (*models.Client, error) {
	data, err := app.Store.GetSnapshot(models.EntityClient, id)
	if err == nil {
		var client models.Client
		if err := json.Unmarshal(data, &client); err != nil {
			return nil, fmt.Errorf("failed to decode queued client: %w", err)
		}
		return &client, nil
	}

	client, err := db.GetClient(app.DB, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	return client, nil
}
