package entity

import (
	"time"

	"github.com/google/uuid"
)

// EventKind tags the variants delivered through the broadcaster.
type EventKind string

const (
	EventKindRouteUpdate  EventKind = "route_update"
	EventKindStatusChange EventKind = "status_change"
	EventKindAnomaly      EventKind = "anomaly"
)

// Event is the closed set of broadcast payloads. Only the three types in
// this file implement it.
type Event interface {
	Kind() EventKind
	Session() uuid.UUID
}

// RouteUpdate is published for every accepted sample.
type RouteUpdate struct {
	SessionID      uuid.UUID      `json:"sessionId"`
	Sample         LocationSample `json:"sample"`
	Sequence       int            `json:"sequence"`
	DistanceMeters float64        `json:"distanceMeters"`
	Duration       time.Duration  `json:"durationNs"`
}

func (u RouteUpdate) Kind() EventKind    { return EventKindRouteUpdate }
func (u RouteUpdate) Session() uuid.UUID { return u.SessionID }

// StatusChange is published on every lifecycle transition. A terminal
// transition is the final event a subscriber receives for the session.
type StatusChange struct {
	SessionID uuid.UUID    `json:"sessionId"`
	From      SessionState `json:"from"`
	To        SessionState `json:"to"`
	At        time.Time    `json:"at"`
	Reason    string       `json:"reason,omitempty"`
}

func (c StatusChange) Kind() EventKind    { return EventKindStatusChange }
func (c StatusChange) Session() uuid.UUID { return c.SessionID }

// AnomalyKind classifies detected irregularities.
type AnomalyKind string

const (
	AnomalyExcessiveSpeed    AnomalyKind = "excessive_speed"
	AnomalySignalLossTimeout AnomalyKind = "signal_loss_timeout"
	AnomalyGeofenceExit      AnomalyKind = "geofence_exit"
)

// AnomalyEvent is a side-channel signal: it never rejects a sample and is
// not persisted as part of the route.
type AnomalyEvent struct {
	SessionID uuid.UUID       `json:"sessionId"`
	Anomaly   AnomalyKind     `json:"anomaly"`
	At        time.Time       `json:"at"`
	Sample    *LocationSample `json:"sample,omitempty"`
}

func (a AnomalyEvent) Kind() EventKind    { return EventKindAnomaly }
func (a AnomalyEvent) Session() uuid.UUID { return a.SessionID }

// RejectionReason is the typed outcome of a failed validation.
type RejectionReason string

const (
	RejectionOutOfRange       RejectionReason = "out_of_range"
	RejectionInaccurateFix    RejectionReason = "inaccurate_fix"
	RejectionStale            RejectionReason = "stale"
	RejectionImplausibleSpeed RejectionReason = "implausible_speed"
)
