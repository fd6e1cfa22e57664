package compose

import (
	"log/slog"
	"sync"
)

// Broker fans session events out to named subscribers. Publishing never
// blocks; a subscriber that stops draining loses events and the loss is
// logged.
type Broker struct {
	mu     sync.RWMutex
	subs   map[string]chan Event
	buffer int
	closed bool
}

func NewBroker(bufferSize int) *Broker {
	return &Broker{
		subs:   make(map[string]chan Event),
		buffer: bufferSize,
	}
}

// Subscribe returns the event channel for id, creating it on first use.
// After Close the returned channel is already closed.
func (b *Broker) Subscribe(id string) <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	if ch, ok := b.subs[id]; ok {
		return ch
	}

	ch := make(chan Event, b.buffer)
	b.subs[id] = ch
	return ch
}

func (b *Broker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subs[id]; ok {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *Broker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subs {
		select {
		case ch <- event:
		default:
			slog.Warn("Compose event dropped, subscriber not draining", "subscriber", id)
		}
	}
}

// PublishSync delivers to every subscriber, blocking until each one takes
// the event. Only for events that must not be lost.
func (b *Broker) PublishSync(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		ch <- event
	}
}

func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for id, ch := range b.subs {
		close(ch)
		delete(b.subs, id)
	}
}

func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
