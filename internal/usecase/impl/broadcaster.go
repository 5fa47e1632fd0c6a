package impl

import (
	"log/slog"
	"sync"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
	"pawtrack/internal/infra/metrics"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
)

// subscriber is one registered observer with its bounded delivery channel.
type subscriber struct {
	id        uuid.UUID
	sessionID uuid.UUID // uuid.Nil means every session
	events    chan entity.Event
	closed    bool
}

// Broadcaster fans events out to subscribers with independent per-subscriber
// delivery. A saturated subscriber loses its oldest buffered event rather
// than blocking anyone else; live maps only need the latest position.
type Broadcaster struct {
	mu          sync.Mutex
	subscribers map[uuid.UUID]*subscriber
	bySession   map[uuid.UUID]map[uuid.UUID]*subscriber
	wildcards   map[uuid.UUID]*subscriber

	buffer  int
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewBroadcaster builds the fanout component with the configured
// per-subscriber buffer size.
func NewBroadcaster(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *Broadcaster {
	return &Broadcaster{
		subscribers: make(map[uuid.UUID]*subscriber),
		bySession:   make(map[uuid.UUID]map[uuid.UUID]*subscriber),
		wildcards:   make(map[uuid.UUID]*subscriber),
		buffer:      cfg.Stream.SubscriberBuffer,
		logger:      logger,
		metrics:     m,
	}
}

// Subscribe registers interest in one session, or every session when
// sessionID is uuid.Nil.
func (b *Broadcaster) Subscribe(sessionID uuid.UUID) (*usecase.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := &subscriber{
		id:        uuid.New(),
		sessionID: sessionID,
		events:    make(chan entity.Event, b.buffer),
	}
	b.subscribers[sub.id] = sub

	if sessionID == uuid.Nil {
		b.wildcards[sub.id] = sub
	} else {
		if b.bySession[sessionID] == nil {
			b.bySession[sessionID] = make(map[uuid.UUID]*subscriber)
		}
		b.bySession[sessionID][sub.id] = sub
	}

	return &usecase.Subscription{
		ID:        sub.id,
		SessionID: sessionID,
		Events:    sub.events,
	}, nil
}

// Unsubscribe releases a handle. The second call for the same handle is a
// no-op.
func (b *Broadcaster) Unsubscribe(id uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscribers[id]
	if !ok {
		return
	}
	b.removeLocked(sub)
}

// Publish delivers the event to every live subscriber of its session plus
// all wildcards. Delivery never blocks: all sends happen under the mutex,
// so each subscriber sees events for one session in publish order.
func (b *Broadcaster) Publish(event entity.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.bySession[event.Session()] {
		b.deliverLocked(sub, event)
	}
	for _, sub := range b.wildcards {
		b.deliverLocked(sub, event)
	}
}

// CloseSession drops every session-scoped subscriber after the caller has
// published the final StatusChange. Wildcard subscribers stay; they outlive
// any single session.
func (b *Broadcaster) CloseSession(sessionID uuid.UUID) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.bySession[sessionID] {
		b.removeLocked(sub)
	}
}

// Close tears down every subscription on shutdown.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subscribers {
		b.removeLocked(sub)
	}
}

func (b *Broadcaster) removeLocked(sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.events)

	delete(b.subscribers, sub.id)
	delete(b.wildcards, sub.id)
	if peers, ok := b.bySession[sub.sessionID]; ok {
		delete(peers, sub.id)
		if len(peers) == 0 {
			delete(b.bySession, sub.sessionID)
		}
	}
}

// deliverLocked sends without blocking. On a full buffer the oldest event
// is dropped to make room; no competing sender exists because every send
// holds the mutex.
func (b *Broadcaster) deliverLocked(sub *subscriber, event entity.Event) {
	if sub.closed {
		return
	}

	select {
	case sub.events <- event:
		return
	default:
	}

	select {
	case <-sub.events:
		b.metrics.EventsDropped.Inc()
		b.logger.Debug("subscriber buffer full, dropped oldest event",
			slog.String("subscription_id", sub.id.String()),
			slog.String("session_id", event.Session().String()),
		)
	default:
	}

	select {
	case sub.events <- event:
	default:
	}
}
