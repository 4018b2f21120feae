package events

import (
	"context"
	"log/slog"
	"sync"
)

// Handler receives a published event on the publisher's goroutine.
type Handler func(ctx context.Context, e Event)

type subscription struct {
	id uint64
	fn Handler
}

// Bus is the process-wide change bus. Publish delivers synchronously to
// subscribers of the event type in registration order, then to subscribers
// of all events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]subscription // eventType -> handlers
	allSubs     []subscription            // subscribers to all events
	nextID      uint64
	log         *EventLog // SQLite persistence (may be nil)
	logger      *slog.Logger
	closed      bool
}

// NewBus creates a new event bus.
// The EventLog is optional - pass nil to disable persistence.
func NewBus(log *EventLog, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		subscribers: make(map[string][]subscription),
		log:         log,
		logger:      logger,
	}
}

// Publish persists e if a log is configured and delivers it to subscribers.
// It returns after every handler has run.
func (b *Bus) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return nil
	}
	// Snapshot so handlers may subscribe, unsubscribe or publish.
	subs := append([]subscription(nil), b.subscribers[e.EventType()]...)
	allSubs := append([]subscription(nil), b.allSubs...)
	b.mu.RUnlock()

	if b.log != nil {
		if _, err := b.log.Append(ctx, e); err != nil {
			b.logger.Error("failed to persist event", "type", e.EventType(), "error", err)
		}
	}

	for _, s := range subs {
		b.deliver(ctx, s, e)
	}
	for _, s := range allSubs {
		b.deliver(ctx, s, e)
	}
	return nil
}

func (b *Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("subscriber panicked",
				"type", e.EventType(),
				"entity_type", e.EntityType(),
				"entity_id", e.EntityID(),
				"panic", r)
		}
	}()
	s.fn(ctx, e)
}

// Subscribe registers fn for events of one type. The returned function
// removes the subscription and is safe to call more than once.
func (b *Bus) Subscribe(eventType string, fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, fn: fn})
	return func() { b.unsubscribe(eventType, id) }
}

// SubscribeAll registers fn for every event.
func (b *Bus) SubscribeAll(fn Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.allSubs = append(b.allSubs, subscription{id: id, fn: fn})
	return func() { b.unsubscribe("", id) }
}

// SubscribeEntity registers fn for events about one entity.
func (b *Bus) SubscribeEntity(entityType, entityID string, fn Handler) func() {
	return b.SubscribeAll(func(ctx context.Context, e Event) {
		if e.EntityType() == entityType && e.EntityID() == entityID {
			fn(ctx, e)
		}
	})
}

func (b *Bus) unsubscribe(eventType string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if eventType == "" {
		b.allSubs = remove(b.allSubs, id)
		return
	}
	b.subscribers[eventType] = remove(b.subscribers[eventType], id)
}

func remove(subs []subscription, id uint64) []subscription {
	for i, s := range subs {
		if s.id == id {
			out := make([]subscription, 0, len(subs)-1)
			out = append(out, subs[:i]...)
			return append(out, subs[i+1:]...)
		}
	}
	return subs
}

// Close stops delivery. Later publishes are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.subscribers = make(map[string][]subscription)
	b.allSubs = nil
	return nil
}
