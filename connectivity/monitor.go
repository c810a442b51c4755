// ABOUTME: Process-wide connectivity monitor with synchronous reads and subscriptions
// ABOUTME: Edge-triggered callbacks fire once per actual online/offline transition
package connectivity

import "sync"

type subscriber struct {
	id int
	fn func(online bool)
}

// Monitor tracks the device's online/offline state. It is constructed per
// app (and per test) rather than held in a package-level variable so tests
// can drive controlled transitions.
type Monitor struct {
	mu     sync.Mutex
	online bool
	subs   []subscriber
	nextID int
}

// NewMonitor creates a monitor with the given initial reading.
func NewMonitor(online bool) *Monitor {
	return &Monitor{online: online}
}

// GetSnapshot returns the current reading synchronously.
func (m *Monitor) GetSnapshot() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// Subscribe registers a callback invoked on every transition, in
// registration order. The returned function unsubscribes.
func (m *Monitor) Subscribe(fn func(online bool)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := m.nextID
	m.nextID++
	m.subs = append(m.subs, subscriber{id: id, fn: fn})
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, s := range m.subs {
			if s.id == id {
				m.subs = append(m.subs[:i], m.subs[i+1:]...)
				return
			}
		}
	}
}

// SetOnline records a new reading from the platform's reachability
// callback. Repeated identical readings are swallowed; subscribers are
// notified at most once per actual transition. Callbacks run synchronously
// on the caller's goroutine, outside the monitor's lock, so a subscriber
// may re-read the snapshot or re-subscribe without deadlocking.
func (m *Monitor) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	subs := make([]subscriber, len(m.subs))
	copy(subs, m.subs)
	m.mu.Unlock()

	for _, s := range subs {
		s.fn(online)
	}
}
