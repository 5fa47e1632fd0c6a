package usecase

import (
	"context"
	"time"

	"pawtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// CreateSessionInput carries the booking context a new walk session is
// created from.
type CreateSessionInput struct {
	BookingID      uuid.UUID
	OwnerID        uuid.UUID
	WalkerID       uuid.UUID
	DogID          uuid.UUID
	ScheduledStart time.Time
	Geofence       *GeofenceInput
}

// GeofenceInput is an optional circular boundary for the walk.
type GeofenceInput struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}

// SessionUsecase defines the lifecycle commands and the read surface of a
// walk session. Commands on a session are serialized by the session machine.
type SessionUsecase interface {
	// CreateSession registers a Scheduled session for an upcoming walk.
	CreateSession(ctx context.Context, input *CreateSessionInput) (entity.SessionSnapshot, error)

	// Start moves Scheduled -> InProgress, subject to the grace window.
	Start(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error)

	// Pause moves InProgress -> Paused.
	Pause(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error)

	// Resume moves Paused -> InProgress.
	Resume(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error)

	// End completes the walk normally and finalizes its metrics.
	End(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error)

	// Cancel stops the walk early on user request; distinct from Abort.
	Cancel(ctx context.Context, sessionID uuid.UUID, reason string) (entity.SessionSnapshot, error)

	// Snapshot returns a read-only view of the session, safe to call from
	// any goroutine.
	Snapshot(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error)
}
