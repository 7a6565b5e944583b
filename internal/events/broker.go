// Package events fans out file-change notifications to connected browsers
// over server-sent events.
package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

// FilesChanged is published after a file is saved to or deleted from a store.
const FilesChanged = "files-changed"

// queueSize bounds how many undelivered events a subscriber may hold.
const queueSize = 10

// Broker delivers encoded SSE messages to every subscriber.
type Broker struct {
	mu   sync.RWMutex
	subs map[chan []byte]struct{}
}

// NewBroker returns a broker with no subscribers.
func NewBroker() *Broker {
	return &Broker{subs: make(map[chan []byte]struct{})}
}

// Subscribe registers a new subscriber queue.
func (b *Broker) Subscribe() chan []byte {
	q := make(chan []byte, queueSize)
	b.mu.Lock()
	b.subs[q] = struct{}{}
	n := len(b.subs)
	b.mu.Unlock()
	slog.Debug("SSE subscriber added", "subscribers", n)
	return q
}

// Unsubscribe removes a queue registered with Subscribe.
func (b *Broker) Unsubscribe(q chan []byte) {
	b.mu.Lock()
	delete(b.subs, q)
	b.mu.Unlock()
}

// Subscribers returns the number of registered queues.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publish sends an event to all subscribers. Full queues drop the event.
func (b *Broker) Publish(eventType string, data any) {
	msg := Encode(eventType, data)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for q := range b.subs {
		select {
		case q <- msg:
		default:
			slog.Warn("Dropping event for slow subscriber", "event", eventType)
		}
	}
}

// Encode formats one SSE message.
func Encode(eventType string, data any) []byte {
	payload, err := json.Marshal(data)
	if err != nil {
		payload = []byte("null")
	}
	return []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", eventType, payload))
}
