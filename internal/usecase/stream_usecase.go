package usecase

import (
	"pawtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// Subscription is one observer's handle on the event stream. Events is
// closed when the subscriber unsubscribes, when its session reaches a
// terminal state, or on shutdown.
type Subscription struct {
	ID uuid.UUID

	// SessionID is the filter; uuid.Nil subscribes to every session.
	SessionID uuid.UUID

	Events <-chan entity.Event
}

// StreamUsecase exposes the broadcaster to delivery layers and sinks.
type StreamUsecase interface {
	// Subscribe registers interest in one session, or in all sessions when
	// sessionID is uuid.Nil.
	Subscribe(sessionID uuid.UUID) (*Subscription, error)

	// Unsubscribe releases the handle. Calling it twice is a no-op.
	Unsubscribe(id uuid.UUID)
}
