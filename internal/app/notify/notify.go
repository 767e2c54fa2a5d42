// Package notify fans player events out to subscribers.
package notify

import (
	"sync"

	"github.com/google/uuid"

	"github.com/tunedeck/playd/internal/app/player"
)

// subscription is one subscriber's event channel.
type subscription struct {
	id string
	ch chan player.Event
}

// Manager distributes player events to any number of subscribers. A slow
// subscriber drops events instead of holding up the others.
type Manager struct {
	mu            sync.RWMutex
	subscriptions map[string]*subscription
	closed        bool
}

// NewManager creates a notification manager.
func NewManager() *Manager {
	return &Manager{
		subscriptions: make(map[string]*subscription),
	}
}

// Subscribe registers a subscriber and returns its id and event channel.
func (m *Manager) Subscribe() (string, <-chan player.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub := &subscription{
		id: uuid.New().String(),
		ch: make(chan player.Event, 16),
	}
	m.subscriptions[sub.id] = sub
	return sub.id, sub.ch
}

// Unsubscribe removes a subscription and closes its channel.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return
	}
	delete(m.subscriptions, id)
	close(sub.ch)
}

// Broadcast sends an event to every subscriber without blocking.
func (m *Manager) Broadcast(ev player.Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return
	}
	for _, sub := range m.subscriptions {
		select {
		case sub.ch <- ev:
		default:
			// Subscriber is not keeping up, drop the event
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (m *Manager) SubscriberCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// Run pumps the engine's event channel into the subscribers until the
// channel closes.
func (m *Manager) Run(events <-chan player.Event) {
	for ev := range events {
		m.Broadcast(ev)
	}
}

// Close removes all subscriptions and closes their channels.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	for id, sub := range m.subscriptions {
		delete(m.subscriptions, id)
		close(sub.ch)
	}
}
