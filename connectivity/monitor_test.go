// ABOUTME: Tests for the connectivity monitor
// ABOUTME: Covers edge-triggered notification, ordering, and unsubscribe
package connectivity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetSnapshot(t *testing.T) {
	m := NewMonitor(true)
	assert.True(t, m.GetSnapshot())

	m.SetOnline(false)
	assert.False(t, m.GetSnapshot())
}

func TestSubscriberFiresOncePerTransition(t *testing.T) {
	m := NewMonitor(false)

	var calls []bool
	m.Subscribe(func(online bool) { calls = append(calls, online) })

	m.SetOnline(false) // no transition
	m.SetOnline(false)
	assert.Empty(t, calls, "repeated identical readings must not notify")

	m.SetOnline(true)
	m.SetOnline(true)
	assert.Equal(t, []bool{true}, calls)

	m.SetOnline(false)
	assert.Equal(t, []bool{true, false}, calls)
}

func TestSubscribersNotifiedInRegistrationOrder(t *testing.T) {
	m := NewMonitor(false)

	var order []int
	m.Subscribe(func(bool) { order = append(order, 1) })
	m.Subscribe(func(bool) { order = append(order, 2) })
	m.Subscribe(func(bool) { order = append(order, 3) })

	m.SetOnline(true)
	assert.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribe(t *testing.T) {
	m := NewMonitor(false)

	calls := 0
	unsub := m.Subscribe(func(bool) { calls++ })

	m.SetOnline(true)
	assert.Equal(t, 1, calls)

	unsub()
	m.SetOnline(false)
	assert.Equal(t, 1, calls, "unsubscribed callback must not fire")

	// Unsubscribing twice is harmless.
	unsub()
}

func TestSubscriberMayReadSnapshot(t *testing.T) {
	m := NewMonitor(false)

	var seen bool
	m.Subscribe(func(online bool) { seen = m.GetSnapshot() })

	m.SetOnline(true)
	assert.True(t, seen, "callback must be able to re-read the monitor")
}
