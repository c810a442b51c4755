// ABOUTME: Tests for the queue status TUI model
// ABOUTME: Covers table refresh, drain completion messages, and key handling
package tui

import (
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tradehand/tradehand/connectivity"
	"github.com/tradehand/tradehand/db"
	"github.com/tradehand/tradehand/models"
	"github.com/tradehand/tradehand/notify"
	"github.com/tradehand/tradehand/queue"
	"github.com/tradehand/tradehand/store"
	"github.com/tradehand/tradehand/syncmgr"
)

func newTestModel(t *testing.T, online bool) (Model, *queue.Queue) {
	t.Helper()

	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	database, err := db.OpenDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close() })

	q := queue.New(st)
	monitor := connectivity.NewMonitor(online)
	engine := syncmgr.NewEngine(q, st, database, nil, notify.Func(func(string, string) {}), 0)

	return NewModel(database, q, engine, monitor, nil), q
}

func TestProbeTickFeedsMonitor(t *testing.T) {
	m, _ := newTestModel(t, false)

	var transitions []bool
	m.monitor.Subscribe(func(online bool) { transitions = append(transitions, online) })

	reachable := false
	m.probe = func() bool { return reachable }

	updated, cmd := m.Update(probeTickMsg(time.Now()))
	model := updated.(Model)
	assert.NotNil(t, cmd, "the next probe must be scheduled")
	assert.False(t, model.monitor.GetSnapshot())
	assert.Empty(t, transitions, "no transition while the state holds")

	// Server reachable again: the tick flips the monitor, which fires the
	// subscribers that drive the automatic drain.
	reachable = true
	_, cmd = model.Update(probeTickMsg(time.Now()))
	assert.NotNil(t, cmd)
	assert.True(t, model.monitor.GetSnapshot())
	assert.Equal(t, []bool{true}, transitions)
}

func TestInitSchedulesProbeOnlyWhenConfigured(t *testing.T) {
	m, _ := newTestModel(t, false)
	assert.Nil(t, m.Init())

	m.probe = func() bool { return true }
	assert.NotNil(t, m.Init())
}

func TestModelShowsQueuedOperations(t *testing.T) {
	m, q := newTestModel(t, false)

	_, err := q.Enqueue(models.EntityJob, queue.OpCreate, "", []byte(`{"title":"A"}`))
	require.NoError(t, err)

	m.reload()
	assert.Len(t, m.ops, 1)
	assert.Len(t, m.table.Rows(), 1)
	assert.Contains(t, m.View(), "job")
}

func TestModelEmptyQueue(t *testing.T) {
	m, _ := newTestModel(t, true)

	view := m.View()
	assert.Contains(t, view, "Queue is empty")
	assert.Contains(t, view, "Online")
}

func TestModelOfflineIndicator(t *testing.T) {
	m, _ := newTestModel(t, false)
	assert.Contains(t, m.View(), "Offline")
}

func TestSyncKeyRejectedOffline(t *testing.T) {
	m, _ := newTestModel(t, false)

	updated, cmd := m.handleKeyPress(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Nil(t, cmd, "no drain command should be issued while offline")

	model := updated.(Model)
	assert.False(t, model.draining)
	require.NotEmpty(t, model.messages)
	assert.Contains(t, model.messages[len(model.messages)-1], "offline")
}

func TestSyncCompleteMessageUpdatesModel(t *testing.T) {
	m, _ := newTestModel(t, true)
	m.draining = true

	updated, _ := m.Update(SyncCompleteMsg{Summary: syncmgr.Summary{Synced: 3}})
	model := updated.(Model)

	assert.False(t, model.draining)
	require.NotEmpty(t, model.messages)
	assert.Contains(t, model.messages[len(model.messages)-1], "3 synced")
}

func TestConnectivityMessageLogged(t *testing.T) {
	m, _ := newTestModel(t, false)

	updated, _ := m.Update(ConnectivityMsg{Online: true})
	model := updated.(Model)

	require.NotEmpty(t, model.messages)
	assert.Contains(t, model.messages[len(model.messages)-1], "restored")
}

func TestDiscardSelectedRemovesEntry(t *testing.T) {
	m, q := newTestModel(t, false)

	_, err := q.Enqueue(models.EntityJob, queue.OpCreate, "", []byte(`{"title":"A"}`))
	require.NoError(t, err)
	m.reload()
	require.Len(t, m.ops, 1)

	updated, _ := m.discardSelected()
	model := updated.(Model)

	assert.Empty(t, model.ops)
	ops, err := q.ListAll()
	require.NoError(t, err)
	assert.Empty(t, ops)
}
