// Package events delivers note lifecycle notifications to in-process listeners.
package events

import (
	"sync"
	"sync/atomic"
)

// Kind names a note event.
type Kind string

const (
	NoteAdded   Kind = "note.added"
	NoteDeleted Kind = "note.deleted"
	NoteRenamed Kind = "note.renamed"
	NoteSaved   Kind = "note.saved"
	TagAdded    Kind = "tag.added"
	TagRemoved  Kind = "tag.removed"
)

// Event is published after a change has been applied.
type Event struct {
	Kind Kind
	URI  string
	// Title is the current note title.
	Title string
	// OldTitle is set for NoteRenamed.
	OldTitle string
	// Tag is the display name of the tag for TagAdded and TagRemoved.
	Tag string
}

// Handler receives events.
type Handler func(Event)

// Bus fans events out to subscribers synchronously, in subscription order.
// A handler may publish further events; they are delivered before Publish
// returns.
type Bus struct {
	mu       sync.Mutex
	nextID   int
	handlers []subscription
	closed   atomic.Bool
}

type subscription struct {
	id int
	fn Handler
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.handlers = append(b.handlers, subscription{id: id, fn: fn})
	return func() { b.unsubscribe(id) }
}

func (b *Bus) unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.handlers {
		if s.id == id {
			b.handlers = append(b.handlers[:i:i], b.handlers[i+1:]...)
			return
		}
	}
}

// Publish delivers e to every current subscriber. Publishing on a closed bus
// is a no-op.
func (b *Bus) Publish(e Event) {
	if b.closed.Load() {
		return
	}
	b.mu.Lock()
	handlers := make([]subscription, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.Unlock()

	for _, s := range handlers {
		s.fn(e)
	}
}

// SubscriberCount returns the number of registered handlers.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.handlers)
}

// Close drops all subscribers and ignores further publishes.
func (b *Bus) Close() {
	if b.closed.Swap(true) {
		return
	}
	b.mu.Lock()
	b.handlers = nil
	b.mu.Unlock()
}
