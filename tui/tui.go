// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive view of the mutation queue with manual sync and discard
package tui

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tradehand/tradehand/connectivity"
	"github.com/tradehand/tradehand/queue"
	"github.com/tradehand/tradehand/syncmgr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	syncingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	messageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			MarginTop(1)
)

// probeInterval is how often the view re-checks server reachability.
const probeInterval = 5 * time.Second

// SyncCompleteMsg is sent when a queue drain finishes.
type SyncCompleteMsg struct {
	Summary syncmgr.Summary
	Err     error
}

// ConnectivityMsg is sent when the network state flips.
type ConnectivityMsg struct {
	Online bool
}

// probeTickMsg schedules the next reachability check.
type probeTickMsg time.Time

// Model is the main bubbletea model for the queue status view.
type Model struct {
	db      *sql.DB
	queue   *queue.Queue
	engine  *syncmgr.Engine
	monitor *connectivity.Monitor
	probe   func() bool

	table    table.Model
	ops      []*queue.PendingOperation
	draining bool
	messages []string

	width  int
	height int
}

// NewModel creates the queue status model. probe re-checks server
// reachability on a timer and feeds the monitor; nil disables probing.
func NewModel(db *sql.DB, q *queue.Queue, engine *syncmgr.Engine, monitor *connectivity.Monitor, probe func() bool) Model {
	columns := []table.Column{
		{Title: "Entity", Width: 8},
		{Title: "Kind", Width: 7},
		{Title: "Status", Width: 8},
		{Title: "Retries", Width: 7},
		{Title: "Local ID", Width: 12},
		{Title: "Last Error", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	m := Model{
		db:      db,
		queue:   q,
		engine:  engine,
		monitor: monitor,
		probe:   probe,
		table:   t,
		width:   80,
		height:  24,
	}
	m.reload()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.probe == nil {
		return nil
	}
	return probeTick()
}

// probeTick schedules the next connectivity check.
func probeTick() tea.Cmd {
	return tea.Tick(probeInterval, func(t time.Time) tea.Msg {
		return probeTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case SyncCompleteMsg:
		m.draining = false
		if msg.Err != nil {
			m.addMessage(fmt.Sprintf("✗ Sync failed: %v", msg.Err))
		} else {
			m.addMessage(fmt.Sprintf("✓ Sync complete: %d synced, %d retried, %d failed, %d skipped",
				msg.Summary.Synced, msg.Summary.Retried, msg.Summary.Failed, msg.Summary.Skipped))
		}
		m.reload()
		return m, nil
	case ConnectivityMsg:
		if msg.Online {
			m.addMessage("Connectivity restored")
		} else {
			m.addMessage("Connection lost, changes will queue")
		}
		return m, nil
	case probeTickMsg:
		// Feeding the monitor fires its subscribers on a state flip, which
		// is what triggers the automatic drain on reconnect.
		if m.probe != nil {
			m.monitor.SetOnline(m.probe())
		}
		return m, probeTick()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "s":
		if m.draining {
			return m, nil
		}
		if !m.monitor.GetSnapshot() {
			m.addMessage("Cannot sync while offline")
			return m, nil
		}
		m.draining = true
		m.addMessage("Starting sync...")
		return m, m.drain()
	case "d":
		return m.discardSelected()
	case "r":
		m.reload()
		return m, nil
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// drain runs the sync engine off the event loop and reports back via a
// SyncCompleteMsg.
func (m Model) drain() tea.Cmd {
	engine := m.engine
	return func() tea.Msg {
		summary, err := engine.Drain(context.Background())
		return SyncCompleteMsg{Summary: summary, Err: err}
	}
}

// discardSelected removes every queued entry for the highlighted record.
func (m Model) discardSelected() (tea.Model, tea.Cmd) {
	cursor := m.table.Cursor()
	if cursor < 0 || cursor >= len(m.ops) {
		return m, nil
	}
	op := m.ops[cursor]

	removed, err := m.queue.Discard(op.EntityType, op.LocalID)
	if err != nil {
		m.addMessage(fmt.Sprintf("✗ Discard failed: %v", err))
		return m, nil
	}
	m.addMessage(fmt.Sprintf("✓ Discarded %d operation(s) for %s", removed, shortID(op.LocalID)))
	m.reload()
	return m, nil
}

// reload refreshes the pending operations table from the queue.
func (m *Model) reload() {
	ops, err := m.queue.ListAll()
	if err != nil {
		m.addMessage(fmt.Sprintf("✗ Failed to read queue: %v", err))
		return
	}
	m.ops = ops

	rows := make([]table.Row, 0, len(ops))
	for _, op := range ops {
		lastErr := op.LastError
		if lastErr == "" {
			lastErr = "-"
		}
		rows = append(rows, table.Row{
			string(op.EntityType),
			string(op.Kind),
			string(op.Status),
			fmt.Sprintf("%d", op.RetryCount),
			shortID(op.LocalID),
			lastErr,
		})
	}
	m.table.SetRows(rows)
}

func (m *Model) addMessage(msg string) {
	timestamp := time.Now().Format("15:04:05")
	m.messages = append(m.messages, fmt.Sprintf("[%s] %s", timestamp, msg))
}

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("TradeHand Sync Queue"))
	s.WriteString("\n\n")

	if m.draining {
		s.WriteString(syncingStyle.Render("⟳ Syncing..."))
	} else if m.monitor.GetSnapshot() {
		s.WriteString(onlineStyle.Render("● Online"))
	} else {
		s.WriteString(offlineStyle.Render("● Offline"))
	}
	s.WriteString("\n\n")

	if len(m.ops) == 0 {
		s.WriteString(messageStyle.Render("Queue is empty, all changes synced."))
		s.WriteString("\n")
	} else {
		s.WriteString(m.table.View())
		s.WriteString("\n")
	}

	if len(m.messages) > 0 {
		s.WriteString("\n")
		start := 0
		if len(m.messages) > 5 {
			start = len(m.messages) - 5
		}
		for i := start; i < len(m.messages); i++ {
			s.WriteString(messageStyle.Render("  " + m.messages[i]))
			s.WriteString("\n")
		}
	}

	s.WriteString(m.renderHelp())
	return s.String()
}

func (m Model) renderHelp() string {
	help := []string{
		"↑/↓: Select",
		"s: Sync now",
		"d: Discard selected",
		"r: Refresh",
		"q: Quit",
	}
	return helpStyle.Render(strings.Join(help, " • "))
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Run starts the TUI program and blocks until the user quits.
func Run(db *sql.DB, q *queue.Queue, engine *syncmgr.Engine, monitor *connectivity.Monitor, probe func() bool) error {
	p := tea.NewProgram(NewModel(db, q, engine, monitor, probe), tea.WithAltScreen())

	// Forward connectivity flips into the event loop.
	unsubscribe := monitor.Subscribe(func(online bool) {
		p.Send(ConnectivityMsg{Online: online})
	})
	defer unsubscribe()

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("failed to run status view: %w", err)
	}
	return nil
}
