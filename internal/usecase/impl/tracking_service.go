package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"
	"pawtrack/internal/domain/service"
	"pawtrack/internal/errors"
	"pawtrack/internal/infra/metrics"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
)

const (
	monitorInterval = 5 * time.Second
	sweepInterval   = time.Minute
	publishTimeout  = 10 * time.Second
)

// ingestState is the per-session throttle and anomaly bookkeeping. It is
// the single serialization point for a session's ingest path: every sample
// for one session flows through its mutex.
type ingestState struct {
	mu sync.Mutex

	trackingSince time.Time
	lastProcessed time.Time
	lastAccepted  time.Time

	rejections      int
	signalLossFired bool
	degraded        bool
	fastStreak      int
	wasInside       bool
}

// TrackingService is the session-tracking core: registry, ingest pipeline,
// and broadcaster behind the usecase interfaces.
type TrackingService struct {
	cfg       *config.Config
	logger    *slog.Logger
	validator *SampleValidator
	registry  *sessionRegistry
	fanout    *Broadcaster
	metrics   *metrics.Metrics
	publisher service.EventPublisher
	clock     func() time.Time

	statesMu sync.Mutex
	states   map[uuid.UUID]*ingestState
}

// NewTrackingService wires the tracking core. publisher may be nil when no
// event bridge is configured.
func NewTrackingService(
	cfg *config.Config,
	logger *slog.Logger,
	validator *SampleValidator,
	fanout *Broadcaster,
	m *metrics.Metrics,
	publisher service.EventPublisher,
) *TrackingService {
	return &TrackingService{
		cfg:       cfg,
		logger:    logger,
		validator: validator,
		registry:  newSessionRegistry(),
		fanout:    fanout,
		metrics:   m,
		publisher: publisher,
		clock:     time.Now,
		states:    make(map[uuid.UUID]*ingestState),
	}
}

var (
	_ usecase.SessionUsecase = (*TrackingService)(nil)
	_ usecase.IngestUsecase  = (*TrackingService)(nil)
	_ usecase.StreamUsecase  = (*TrackingService)(nil)
)

// CreateSession registers a Scheduled session for an upcoming walk.
func (s *TrackingService) CreateSession(ctx context.Context, input *usecase.CreateSessionInput) (entity.SessionSnapshot, error) {
	session := &entity.WalkSession{
		ID:             uuid.New(),
		BookingID:      input.BookingID,
		OwnerID:        input.OwnerID,
		WalkerID:       input.WalkerID,
		DogID:          input.DogID,
		State:          entity.StateScheduled,
		ScheduledStart: input.ScheduledStart,
	}
	if input.Geofence != nil {
		session.Geofence = entity.NewGeofence(
			input.Geofence.Latitude,
			input.Geofence.Longitude,
			input.Geofence.RadiusMeters,
		)
	}

	machine := newSessionMachine(session, s.cfg.Tracking, s.clock)
	if err := s.registry.Add(session.ID, machine); err != nil {
		return entity.SessionSnapshot{}, err
	}
	s.metrics.ActiveSessions.Set(float64(s.registry.Len()))

	s.logger.Info("walk session created",
		slog.String("session_id", session.ID.String()),
		slog.String("booking_id", session.BookingID.String()),
		slog.Time("scheduled_start", session.ScheduledStart),
	)

	return machine.Snapshot(), nil
}

// Start moves a session to InProgress and begins outage tracking.
func (s *TrackingService) Start(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	change, err := machine.Start()
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	state := s.stateFor(sessionID)
	state.mu.Lock()
	state.trackingSince = s.clock()
	state.wasInside = true
	state.mu.Unlock()

	s.fanout.Publish(change)

	return machine.Snapshot(), nil
}

// Pause suspends ingestion without ending the walk.
func (s *TrackingService) Pause(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error) {
	return s.command(sessionID, (*sessionMachine).Pause)
}

// Resume continues a paused walk.
func (s *TrackingService) Resume(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error) {
	snapshot, err := s.command(sessionID, (*sessionMachine).Resume)
	if err != nil {
		return snapshot, err
	}

	// A pause is not an outage; restart the quiet-period clock.
	state := s.stateFor(sessionID)
	state.mu.Lock()
	state.lastAccepted = s.clock()
	state.mu.Unlock()

	return snapshot, nil
}

func (s *TrackingService) command(sessionID uuid.UUID, op func(*sessionMachine) (entity.StatusChange, error)) (entity.SessionSnapshot, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	change, err := op(machine)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}
	s.fanout.Publish(change)

	return machine.Snapshot(), nil
}

// End completes the walk normally.
func (s *TrackingService) End(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	change, err := machine.End()
	if err != nil {
		return entity.SessionSnapshot{}, err
	}
	s.finishSession(machine, change)

	return machine.Snapshot(), nil
}

// Cancel stops the walk early on user request.
func (s *TrackingService) Cancel(ctx context.Context, sessionID uuid.UUID, reason string) (entity.SessionSnapshot, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	change, err := machine.Cancel(reason)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}
	s.finishSession(machine, change)

	return machine.Snapshot(), nil
}

// Snapshot returns a read-only view of the session.
func (s *TrackingService) Snapshot(ctx context.Context, sessionID uuid.UUID) (entity.SessionSnapshot, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return entity.SessionSnapshot{}, err
	}

	return machine.Snapshot(), nil
}

// Subscribe registers an observer on the event stream.
func (s *TrackingService) Subscribe(sessionID uuid.UUID) (*usecase.Subscription, error) {
	if sessionID != uuid.Nil {
		if _, ok := s.registry.Get(sessionID); !ok {
			return nil, domainerrors.ErrSessionNotFound
		}
	}

	return s.fanout.Subscribe(sessionID)
}

// Unsubscribe releases a subscription handle; idempotent.
func (s *TrackingService) Unsubscribe(id uuid.UUID) {
	s.fanout.Unsubscribe(id)
}

// Ingest runs one raw sample through throttle, validation, anomaly checks,
// and route append. Rejections and throttling are outcomes, not errors.
func (s *TrackingService) Ingest(ctx context.Context, sessionID uuid.UUID, sample entity.LocationSample) (usecase.IngestOutcome, error) {
	machine, err := s.machine(sessionID)
	if err != nil {
		return usecase.IngestOutcome{}, err
	}

	state := s.stateFor(sessionID)
	state.mu.Lock()
	defer state.mu.Unlock()

	if machine.State() != entity.StateInProgress {
		return usecase.IngestOutcome{}, domainerrors.ErrSessionNotActive.WithDetails(
			"session state is " + machine.State().String())
	}

	now := s.clock()

	// Samples inside the throttle window are coalesced: the dropped sample
	// is superseded by the next arrival, which is always newer.
	if !state.lastProcessed.IsZero() && now.Sub(state.lastProcessed) < s.cfg.Tracking.ThrottleInterval {
		s.metrics.SamplesThrottled.Inc()

		return usecase.IngestOutcome{Throttled: true}, nil
	}

	var prevPtr *entity.LocationSample
	prev, hasPrev := machine.LastAccepted()
	if hasPrev {
		prevPtr = &prev
	}

	maxAccuracy := s.cfg.Tracking.MaxAccuracyMeters
	if state.degraded {
		maxAccuracy = s.cfg.Tracking.DegradedAccuracyMeters
	}

	if reason, ok := s.validator.Validate(sample, prevPtr, maxAccuracy); !ok {
		state.rejections++
		s.metrics.SamplesRejected.WithLabelValues(string(reason)).Inc()
		s.checkSignalLossLocked(state, machine, sessionID, now)

		return usecase.IngestOutcome{Rejection: reason}, nil
	}

	update, err := machine.AppendSample(sample)
	if err != nil {
		// Lost a race against a lifecycle command, or the route bound was
		// hit. Drop the sample; GPS sampling is continuous and the next
		// one supersedes it.
		s.logger.Warn("accepted sample could not be appended",
			slog.String("session_id", sessionID.String()),
			slog.Any("error", err),
		)

		return usecase.IngestOutcome{}, err
	}

	state.lastProcessed = now
	state.lastAccepted = now
	state.rejections = 0
	if state.signalLossFired || state.degraded {
		state.signalLossFired = false
		state.degraded = false
		s.logger.Info("signal recovered", slog.String("session_id", sessionID.String()))
	}
	s.metrics.SamplesAccepted.Inc()

	s.checkWalkingSpeedLocked(state, sessionID, prevPtr, sample)
	s.checkGeofenceLocked(state, machine, sessionID, sample)

	s.fanout.Publish(update)

	return usecase.IngestOutcome{Accepted: true, Update: &update}, nil
}

// checkWalkingSpeedLocked flags sustained above-walking-pace movement.
// Unlike the validator's sanity ceiling this never rejects the sample.
func (s *TrackingService) checkWalkingSpeedLocked(state *ingestState, sessionID uuid.UUID, prev *entity.LocationSample, sample entity.LocationSample) {
	if prev == nil {
		return
	}

	elapsed := sample.Timestamp.Sub(prev.Timestamp).Seconds()
	if elapsed <= 0 {
		return
	}

	speed := sample.DistanceTo(*prev) / elapsed
	if speed <= s.cfg.Tracking.WalkingSpeedMps {
		state.fastStreak = 0

		return
	}

	state.fastStreak++
	if state.fastStreak < s.cfg.Tracking.WalkingSpeedStreak {
		return
	}
	state.fastStreak = 0

	s.emitAnomaly(entity.AnomalyEvent{
		SessionID: sessionID,
		Anomaly:   entity.AnomalyExcessiveSpeed,
		At:        sample.Timestamp,
		Sample:    &sample,
	})
}

// checkGeofenceLocked emits an anomaly on the inside -> outside edge only,
// so a dog lingering outside the fence does not flood subscribers.
func (s *TrackingService) checkGeofenceLocked(state *ingestState, machine *sessionMachine, sessionID uuid.UUID, sample entity.LocationSample) {
	fence := machine.Geofence()
	if fence == nil {
		return
	}

	inside := fence.Contains(sample)
	if !inside && state.wasInside {
		s.emitAnomaly(entity.AnomalyEvent{
			SessionID: sessionID,
			Anomaly:   entity.AnomalyGeofenceExit,
			At:        sample.Timestamp,
			Sample:    &sample,
		})
	}
	state.wasInside = inside
}

// checkSignalLossLocked escalates quiet periods: one anomaly plus widened
// accuracy tolerance at the soft window, an abort at the hard ceiling.
func (s *TrackingService) checkSignalLossLocked(state *ingestState, machine *sessionMachine, sessionID uuid.UUID, now time.Time) {
	since := state.lastAccepted
	if since.IsZero() {
		since = state.trackingSince
	}
	if since.IsZero() {
		return
	}
	quiet := now.Sub(since)

	if quiet >= s.cfg.Tracking.SignalLossCeiling {
		change, err := machine.Abort("signal lost beyond hard ceiling")
		if err != nil {
			// Already terminal; nothing to escalate.
			return
		}
		s.logger.Error("aborting session after prolonged signal loss",
			slog.String("session_id", sessionID.String()),
			slog.Duration("quiet", quiet),
		)
		s.finishSession(machine, change)

		return
	}

	if quiet >= s.cfg.Tracking.SignalLossWindow && !state.signalLossFired {
		state.signalLossFired = true
		state.degraded = true
		s.emitAnomaly(entity.AnomalyEvent{
			SessionID: sessionID,
			Anomaly:   entity.AnomalySignalLossTimeout,
			At:        now,
		})
	}
}

func (s *TrackingService) emitAnomaly(event entity.AnomalyEvent) {
	s.metrics.AnomaliesEmitted.WithLabelValues(string(event.Anomaly)).Inc()
	s.fanout.Publish(event)
}

// finishSession publishes the final StatusChange, closes the session's
// subscriptions, and bridges the terminal event outward.
func (s *TrackingService) finishSession(machine *sessionMachine, change entity.StatusChange) {
	s.fanout.Publish(change)
	s.fanout.CloseSession(change.SessionID)

	if s.publisher == nil {
		return
	}

	snapshot := machine.Snapshot()
	event := &service.WalkEvent{
		SessionID:       snapshot.SessionID.String(),
		BookingID:       snapshot.BookingID.String(),
		OwnerID:         snapshot.OwnerID.String(),
		WalkerID:        snapshot.WalkerID.String(),
		DogID:           snapshot.DogID.String(),
		Status:          change.To.String(),
		Reason:          change.Reason,
		DistanceMeters:  snapshot.DistanceMeters,
		DurationSeconds: snapshot.Duration.Seconds(),
		EndedAt:         change.At,
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		if err := s.publisher.PublishWalkEvent(ctx, event); err != nil {
			s.logger.Error("failed to publish walk event",
				slog.String("session_id", event.SessionID),
				slog.Any("error", err),
			)
		}
	}()
}

// Run drives the background monitor (signal-loss escalation for sessions
// whose samples stopped arriving entirely) and the retention sweep. It
// returns when ctx is cancelled.
func (s *TrackingService) Run(ctx context.Context) error {
	monitor := time.NewTicker(monitorInterval)
	defer monitor.Stop()
	sweep := time.NewTicker(sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			s.fanout.Close()

			return errors.WithStack(ctx.Err())
		case <-monitor.C:
			s.monitorSessions()
		case <-sweep.C:
			s.sweepSessions()
		}
	}
}

func (s *TrackingService) monitorSessions() {
	now := s.clock()
	for sessionID, machine := range s.registry.All() {
		if machine.State() != entity.StateInProgress {
			continue
		}

		state := s.stateFor(sessionID)
		state.mu.Lock()
		s.checkSignalLossLocked(state, machine, sessionID, now)
		state.mu.Unlock()
	}
}

func (s *TrackingService) sweepSessions() {
	cutoff := s.clock().Add(-s.cfg.Tracking.RetentionWindow)
	archived := s.registry.SweepTerminal(cutoff)

	s.statesMu.Lock()
	for _, id := range archived {
		delete(s.states, id)
	}
	s.statesMu.Unlock()

	if len(archived) > 0 {
		s.logger.Info("archived terminal sessions", slog.Int("count", len(archived)))
	}
	s.metrics.ActiveSessions.Set(float64(s.registry.Len()))
}

func (s *TrackingService) machine(sessionID uuid.UUID) (*sessionMachine, error) {
	machine, ok := s.registry.Get(sessionID)
	if !ok {
		return nil, domainerrors.ErrSessionNotFound
	}

	return machine, nil
}

func (s *TrackingService) stateFor(sessionID uuid.UUID) *ingestState {
	s.statesMu.Lock()
	defer s.statesMu.Unlock()

	state, ok := s.states[sessionID]
	if !ok {
		state = &ingestState{wasInside: true}
		s.states[sessionID] = state
	}

	return state
}
