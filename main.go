// ABOUTME: Entry point for the TradeHand offline-first field services client
// ABOUTME: Routes to record commands, sync commands, the status TUI, or the dev server
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/tradehand/tradehand/cli"
	"github.com/tradehand/tradehand/connectivity"
	"github.com/tradehand/tradehand/db"
	"github.com/tradehand/tradehand/devserver"
	"github.com/tradehand/tradehand/queue"
	"github.com/tradehand/tradehand/store"
	"github.com/tradehand/tradehand/syncmgr"
	"github.com/tradehand/tradehand/tui"
)

const version = "0.1.0"

func main() {
	// Global flags
	showVersion := flag.Bool("version", false, "Show version and exit")
	dataDir := flag.String("data-dir", "", "Data directory (default: ~/.local/share/tradehand)")
	offline := flag.Bool("offline", false, "Treat the network as unavailable")

	// Parse global flags but don't fail on unknown (for subcommands)
	_ = flag.CommandLine.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("tradehand version %s\n", version)
		os.Exit(0)
	}

	// Local overrides for development setups
	_ = godotenv.Load()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(0)
	}

	command := args[0]
	commandArgs := args[1:]

	// The dev server runs standalone, without the client-side stores.
	if command == "serve" {
		if err := serveCommand(commandArgs); err != nil {
			log.Fatalf("Error: %v", err)
		}
		return
	}

	cfg, err := syncmgr.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}

	app, cleanup, err := buildApp(cfg, *offline)
	if err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	defer cleanup()

	switch command {
	// Job commands
	case "add-job":
		runCommand(cli.AddJobCommand, app, commandArgs)
	case "list-jobs":
		runCommand(cli.ListJobsCommand, app, commandArgs)
	case "update-job":
		runCommand(cli.UpdateJobCommand, app, commandArgs)
	case "delete-job":
		runCommand(cli.DeleteJobCommand, app, commandArgs)

	// Client commands
	case "add-client":
		runCommand(cli.AddClientCommand, app, commandArgs)
	case "list-clients":
		runCommand(cli.ListClientsCommand, app, commandArgs)
	case "update-client":
		runCommand(cli.UpdateClientCommand, app, commandArgs)
	case "delete-client":
		runCommand(cli.DeleteClientCommand, app, commandArgs)

	// Invoice commands
	case "add-invoice":
		runCommand(cli.AddInvoiceCommand, app, commandArgs)
	case "list-invoices":
		runCommand(cli.ListInvoicesCommand, app, commandArgs)
	case "update-invoice":
		runCommand(cli.UpdateInvoiceCommand, app, commandArgs)
	case "delete-invoice":
		runCommand(cli.DeleteInvoiceCommand, app, commandArgs)

	// Sync commands
	case "sync":
		if len(commandArgs) == 0 {
			fmt.Println("Error: sync requires a subcommand (now, status)")
			printUsage()
			os.Exit(1)
		}
		switch commandArgs[0] {
		case "now":
			runCommand(cli.SyncNowCommand, app, commandArgs[1:])
		case "status":
			runCommand(cli.SyncStatusCommand, app, commandArgs[1:])
		default:
			fmt.Printf("Unknown sync command: %s\n\n", commandArgs[0])
			printUsage()
			os.Exit(1)
		}

	// Queue commands
	case "queue":
		if len(commandArgs) == 0 {
			fmt.Println("Error: queue requires a subcommand (list, discard)")
			printUsage()
			os.Exit(1)
		}
		switch commandArgs[0] {
		case "list":
			runCommand(cli.QueueListCommand, app, commandArgs[1:])
		case "discard":
			runCommand(cli.QueueDiscardCommand, app, commandArgs[1:])
		default:
			fmt.Printf("Unknown queue command: %s\n\n", commandArgs[0])
			printUsage()
			os.Exit(1)
		}

	// Interactive status view
	case "status":
		probe := func() bool {
			return !*offline && probeServer(cfg)
		}
		if err := tui.Run(app.DB, app.Queue, app.Engine, app.Monitor, probe); err != nil {
			log.Fatalf("Error: %v", err)
		}

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runCommand(fn func(*cli.App, []string) error, app *cli.App, args []string) {
	if err := fn(app, args); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// buildApp opens the local stores and wires the queue, monitor, and sync
// engine together. The returned cleanup closes both stores.
func buildApp(cfg *syncmgr.Config, forceOffline bool) (*cli.App, func(), error) {
	if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.Open(cfg.QueuePath())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open record store: %w", err)
	}

	database, err := db.OpenDatabase(cfg.DatabasePath())
	if err != nil {
		_ = st.Close()
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	cleanup := func() {
		_ = database.Close()
		_ = st.Close()
	}

	var remote syncmgr.RemoteAPI
	if cfg.IsConfigured() {
		remote = syncmgr.NewClient(cfg.Server, cfg.Token)
	}

	online := !forceOffline && probeServer(cfg)
	monitor := connectivity.NewMonitor(online)

	q := queue.New(st)
	engine := syncmgr.NewEngine(q, st, database, remote, defaultNotifier{}, cfg.MaxRetries)

	// A crash mid-drain leaves entries stuck in the syncing state.
	recovered, err := engine.RecoverInterrupted()
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to recover interrupted syncs: %w", err)
	}
	if recovered > 0 {
		log.Printf("Recovered %d interrupted sync operation(s)", recovered)
	}

	if cfg.AutoSync && remote != nil {
		monitor.Subscribe(func(nowOnline bool) {
			if !nowOnline {
				return
			}
			go func() {
				if _, err := engine.Drain(context.Background()); err != nil {
					log.Printf("Auto-sync failed: %v", err)
				}
			}()
		})
	}

	return &cli.App{
		Config:  cfg,
		DB:      database,
		Store:   st,
		Queue:   q,
		Monitor: monitor,
		Engine:  engine,
		Remote:  remote,
	}, cleanup, nil
}

// probeServer checks whether the configured server is reachable right now.
// An unconfigured server means offline-only operation.
func probeServer(cfg *syncmgr.Config) bool {
	if !cfg.IsConfigured() {
		return false
	}
	client := &http.Client{Timeout: 3 * time.Second}
	resp, err := client.Get(cfg.Server + "/health")
	if err != nil {
		return false
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK
}

// defaultNotifier surfaces permanent sync failures on the process log.
type defaultNotifier struct{}

func (defaultNotifier) Notify(title, message string) {
	log.Printf("%s: %s", title, message)
}

func serveCommand(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8799", "Listen address")
	_ = fs.Parse(args)

	server := devserver.NewServer()
	log.Printf("Dev API server listening on %s", *addr)
	return http.ListenAndServe(*addr, server.Router())
}

func printUsage() {
	fmt.Printf(`tradehand v%s - Offline-first field services client

USAGE:
  tradehand [global flags] <command> [subcommand] [flags]

GLOBAL FLAGS:
  --version              Show version and exit
  --data-dir <path>      Data directory (default: ~/.local/share/tradehand)
  --offline              Treat the network as unavailable

JOB COMMANDS:
  tradehand add-job         Add a new job
    --title <title>           Job title (required)
    --details <text>          Job details
    --client <id>             Client ID
    --status <status>         Status (default: quoted)
    --scheduled <time>        Scheduled time (RFC 3339)
    --amount <cents>          Quoted amount in cents
    --currency <code>         Currency code (default: USD)

  tradehand list-jobs       List jobs
    --limit <n>               Max results (default: 50)

  tradehand update-job [flags] <id>   Update a job
  tradehand delete-job <id>           Delete a job

CLIENT COMMANDS:
  tradehand add-client      Add a new client
    --name <name>             Client name (required)
    --email <email>           Email address
    --phone <phone>           Phone number
    --address <address>       Street address
    --notes <notes>           Notes

  tradehand list-clients    List clients
  tradehand update-client [flags] <id>   Update a client
  tradehand delete-client <id>           Delete a client

INVOICE COMMANDS:
  tradehand add-invoice     Add a new invoice
    --amount <cents>          Amount in cents (required)
    --job <id>                Job ID
    --client <id>             Client ID
    --currency <code>         Currency code (default: USD)
    --due <time>              Due date (RFC 3339)

  tradehand list-invoices   List invoices
  tradehand update-invoice [flags] <id>  Update an invoice
  tradehand delete-invoice <id>          Delete an invoice

SYNC COMMANDS:
  tradehand sync now        Drain the mutation queue once
  tradehand sync status     Show per-entity sync state

QUEUE COMMANDS:
  tradehand queue list                  List queued operations
    --entity <type>                       Filter by entity type
  tradehand queue discard --entity <type> <id>   Discard queued entries

OTHER:
  tradehand status          Interactive queue status view
  tradehand serve           Run the local dev API server
    --addr <addr>             Listen address (default: :8799)

EXAMPLES:
  # Save a job while offline; it syncs when connectivity returns
  tradehand --offline add-job --title "Fix leaking tap" --amount 12000

  # Push queued changes now
  tradehand sync now

  # Inspect entries that failed permanently
  tradehand queue list

CONFIGURATION:
  Config file: ~/.local/share/tradehand/sync-config.json
  Environment: TRADEHAND_SERVER, TRADEHAND_TOKEN, TRADEHAND_DEVICE_ID,
               TRADEHAND_DATA_DIR, TRADEHAND_AUTO_SYNC, TRADEHAND_MAX_RETRIES

`, version)
}
