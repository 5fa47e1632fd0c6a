package entity

import (
	"time"

	"github.com/google/uuid"
)

// SessionState is the closed set of walk-session lifecycle states.
type SessionState int

const (
	StateScheduled SessionState = iota
	StateInProgress
	StatePaused
	StateCompleted
	StateCancelledEarly
	StateAborted
)

var stateNames = map[SessionState]string{
	StateScheduled:      "scheduled",
	StateInProgress:     "in_progress",
	StatePaused:         "paused",
	StateCompleted:      "completed",
	StateCancelledEarly: "cancelled_early",
	StateAborted:        "aborted",
}

func (s SessionState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "unknown"
}

// MarshalJSON encodes the state by name so event payloads stay readable.
func (s SessionState) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// IsTerminal reports whether no further transition is legal from s.
func (s SessionState) IsTerminal() bool {
	switch s {
	case StateCompleted, StateCancelledEarly, StateAborted:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether the s -> next transition is legal.
// Transitions are monotonic except the Paused <-> InProgress pair.
func (s SessionState) CanTransitionTo(next SessionState) bool {
	if s.IsTerminal() {
		return false
	}

	switch s {
	case StateScheduled:
		return next == StateInProgress
	case StateInProgress:
		return next == StatePaused || next == StateCompleted ||
			next == StateCancelledEarly || next == StateAborted
	case StatePaused:
		return next == StateInProgress || next == StateCompleted ||
			next == StateCancelledEarly || next == StateAborted
	default:
		return false
	}
}

// WalkSession is the bounded lifecycle of one GPS-tracked dog walk. All
// mutation goes through the session machine; everything else sees snapshots.
type WalkSession struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"bookingId"`
	OwnerID   uuid.UUID `json:"ownerId"`
	WalkerID  uuid.UUID `json:"walkerId"`
	DogID     uuid.UUID `json:"dogId"`

	State SessionState `json:"state"`

	ScheduledStart time.Time  `json:"scheduledStart"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`

	// Route is append-only while the session is InProgress; insertion
	// order is chronological order.
	Route []LocationSample `json:"-"`

	DistanceMeters float64 `json:"distanceMeters"`

	// CancelReason is set only when the session ends as CancelledEarly.
	CancelReason string `json:"cancelReason,omitempty"`

	Geofence *Geofence `json:"geofence,omitempty"`
}

// SessionStats carries derived route metrics for a snapshot.
type SessionStats struct {
	AverageSpeedMps float64 `json:"averageSpeedMps"`
	MaxSpeedMps     float64 `json:"maxSpeedMps"`

	// HasGaps is true when any two consecutive samples are more than five
	// minutes apart.
	HasGaps bool `json:"hasGaps"`
}

// SessionSnapshot is a read-only view of a session, safe to hand out
// concurrently.
type SessionSnapshot struct {
	SessionID uuid.UUID    `json:"sessionId"`
	BookingID uuid.UUID    `json:"bookingId"`
	OwnerID   uuid.UUID    `json:"ownerId"`
	WalkerID  uuid.UUID    `json:"walkerId"`
	DogID     uuid.UUID    `json:"dogId"`
	State     SessionState `json:"state"`

	ScheduledStart time.Time  `json:"scheduledStart"`
	StartedAt      *time.Time `json:"startedAt,omitempty"`
	EndedAt        *time.Time `json:"endedAt,omitempty"`

	Duration       time.Duration `json:"durationNs"`
	DistanceMeters float64       `json:"distanceMeters"`
	RouteLength    int           `json:"routeLength"`

	LastSample *LocationSample `json:"lastSample,omitempty"`
	Stats      SessionStats    `json:"stats"`

	CancelReason string `json:"cancelReason,omitempty"`
}
