package service

import (
	"context"
	"time"
)

// WalkEvent is the payload pushed to out-of-scope collaborators
// (notifications, billing) when a walk reaches a terminal state.
type WalkEvent struct {
	RequestID       string    `json:"request_id,omitempty"` // For distributed tracing
	SessionID       string    `json:"session_id"`
	BookingID       string    `json:"booking_id"`
	OwnerID         string    `json:"owner_id"`
	WalkerID        string    `json:"walker_id"`
	DogID           string    `json:"dog_id"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	DistanceMeters  float64   `json:"distance_meters"`
	DurationSeconds float64   `json:"duration_seconds"`
	EndedAt         time.Time `json:"ended_at"`
}

// EventPublisher defines the interface for publishing walk events to a
// message queue
type EventPublisher interface {
	// PublishWalkEvent publishes a terminal walk event for async processing
	PublishWalkEvent(ctx context.Context, event *WalkEvent) error

	// Close releases any resources held by the publisher
	Close() error
}
