package impl

import (
	"sync"
	"time"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"
)

// gapThreshold marks two consecutive samples this far apart as a route gap.
const gapThreshold = 5 * time.Minute

// sessionMachine owns one WalkSession. Every mutation goes through its
// mutex, so a pause racing an append can never corrupt the route.
type sessionMachine struct {
	mu      sync.Mutex
	session *entity.WalkSession
	cfg     *config.TrackingConfig
	clock   func() time.Time
}

func newSessionMachine(session *entity.WalkSession, cfg *config.TrackingConfig, clock func() time.Time) *sessionMachine {
	if clock == nil {
		clock = time.Now
	}

	return &sessionMachine{
		session: session,
		cfg:     cfg,
		clock:   clock,
	}
}

// Start moves Scheduled -> InProgress. Starting is allowed from the grace
// window before the scheduled time onward.
func (m *sessionMachine) Start() (entity.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.State.CanTransitionTo(entity.StateInProgress) || m.session.State != entity.StateScheduled {
		return entity.StatusChange{}, domainerrors.ErrInvalidTransition.WithDetails(
			"cannot start from state " + m.session.State.String())
	}

	now := m.clock()
	if now.Before(m.session.ScheduledStart.Add(-m.cfg.StartGraceWindow)) {
		return entity.StatusChange{}, domainerrors.ErrStartTooEarly
	}

	started := now
	m.session.StartedAt = &started

	return m.transition(entity.StateInProgress, ""), nil
}

// Pause moves InProgress -> Paused.
func (m *sessionMachine) Pause() (entity.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != entity.StateInProgress {
		return entity.StatusChange{}, domainerrors.ErrInvalidTransition.WithDetails(
			"cannot pause from state " + m.session.State.String())
	}

	return m.transition(entity.StatePaused, ""), nil
}

// Resume moves Paused -> InProgress.
func (m *sessionMachine) Resume() (entity.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != entity.StatePaused {
		return entity.StatusChange{}, domainerrors.ErrInvalidTransition.WithDetails(
			"cannot resume from state " + m.session.State.String())
	}

	return m.transition(entity.StateInProgress, ""), nil
}

// End completes the walk normally, recording the actual end time and
// freezing the cumulative distance.
func (m *sessionMachine) End() (entity.StatusChange, error) {
	return m.finish(entity.StateCompleted, "")
}

// Cancel stops the walk early on user or owner request.
func (m *sessionMachine) Cancel(reason string) (entity.StatusChange, error) {
	return m.finish(entity.StateCancelledEarly, reason)
}

// Abort terminates the walk on unrecoverable failure, such as an outage
// past the signal-loss hard ceiling.
func (m *sessionMachine) Abort(reason string) (entity.StatusChange, error) {
	return m.finish(entity.StateAborted, reason)
}

func (m *sessionMachine) finish(terminal entity.SessionState, reason string) (entity.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.session.State.CanTransitionTo(terminal) {
		return entity.StatusChange{}, domainerrors.ErrInvalidTransition.WithDetails(
			"cannot reach " + terminal.String() + " from state " + m.session.State.String())
	}

	ended := m.clock()
	m.session.EndedAt = &ended
	if terminal == entity.StateCancelledEarly {
		m.session.CancelReason = reason
	}

	return m.transition(terminal, reason), nil
}

// transition assumes the caller holds the mutex and has checked legality.
func (m *sessionMachine) transition(next entity.SessionState, reason string) entity.StatusChange {
	change := entity.StatusChange{
		SessionID: m.session.ID,
		From:      m.session.State,
		To:        next,
		At:        m.clock(),
		Reason:    reason,
	}
	m.session.State = next

	return change
}

// AppendSample appends an already-validated sample to the route. Legal
// only while InProgress; the route and distance are never touched
// otherwise.
func (m *sessionMachine) AppendSample(sample entity.LocationSample) (entity.RouteUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.State != entity.StateInProgress {
		return entity.RouteUpdate{}, domainerrors.ErrSessionNotActive.WithDetails(
			"session state is " + m.session.State.String())
	}

	if len(m.session.Route) >= m.cfg.MaxRoutePoints {
		return entity.RouteUpdate{}, domainerrors.ErrRouteFull
	}

	if n := len(m.session.Route); n > 0 {
		m.session.DistanceMeters += m.session.Route[n-1].DistanceTo(sample)
	}
	m.session.Route = append(m.session.Route, sample)

	return entity.RouteUpdate{
		SessionID:      m.session.ID,
		Sample:         sample,
		Sequence:       len(m.session.Route),
		DistanceMeters: m.session.DistanceMeters,
		Duration:       m.durationLocked(sample.Timestamp),
	}, nil
}

// LastAccepted returns a copy of the newest route sample, if any.
func (m *sessionMachine) LastAccepted() (entity.LocationSample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.session.Route) == 0 {
		return entity.LocationSample{}, false
	}

	return m.session.Route[len(m.session.Route)-1], true
}

// State returns the current lifecycle state.
func (m *sessionMachine) State() entity.SessionState {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.session.State
}

// Geofence returns the session's fence, nil when none was configured.
func (m *sessionMachine) Geofence() *entity.Geofence {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.session.Geofence
}

// EndedAt returns the actual end time for terminal sessions.
func (m *sessionMachine) EndedAt() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session.EndedAt == nil {
		return time.Time{}, false
	}

	return *m.session.EndedAt, true
}

// Snapshot builds a read-only view including derived route statistics.
func (m *sessionMachine) Snapshot() entity.SessionSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.session
	snapshot := entity.SessionSnapshot{
		SessionID:      s.ID,
		BookingID:      s.BookingID,
		OwnerID:        s.OwnerID,
		WalkerID:       s.WalkerID,
		DogID:          s.DogID,
		State:          s.State,
		ScheduledStart: s.ScheduledStart,
		StartedAt:      s.StartedAt,
		EndedAt:        s.EndedAt,
		DistanceMeters: s.DistanceMeters,
		RouteLength:    len(s.Route),
		CancelReason:   s.CancelReason,
	}

	if n := len(s.Route); n > 0 {
		last := s.Route[n-1]
		snapshot.LastSample = &last
	}

	if s.StartedAt != nil {
		end := m.clock()
		if s.EndedAt != nil {
			end = *s.EndedAt
		}
		if end.After(*s.StartedAt) {
			snapshot.Duration = end.Sub(*s.StartedAt)
		}
	}

	snapshot.Stats = m.statsLocked(snapshot.Duration)

	return snapshot
}

func (m *sessionMachine) durationLocked(at time.Time) time.Duration {
	if m.session.StartedAt == nil || !at.After(*m.session.StartedAt) {
		return 0
	}

	return at.Sub(*m.session.StartedAt)
}

// statsLocked walks the route once for speed extremes and gap detection.
func (m *sessionMachine) statsLocked(duration time.Duration) entity.SessionStats {
	stats := entity.SessionStats{}
	route := m.session.Route

	if duration > 0 {
		stats.AverageSpeedMps = m.session.DistanceMeters / duration.Seconds()
	}

	for i := 1; i < len(route); i++ {
		step := route[i].Timestamp.Sub(route[i-1].Timestamp)
		if step > gapThreshold {
			stats.HasGaps = true
		}
		if step <= 0 {
			continue
		}
		speed := route[i-1].DistanceTo(route[i]) / step.Seconds()
		if speed > stats.MaxSpeedMps {
			stats.MaxSpeedMps = speed
		}
	}

	return stats
}
