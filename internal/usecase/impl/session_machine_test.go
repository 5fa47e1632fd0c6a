package impl

import (
	"testing"
	"time"

	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMachine(t *testing.T, clock *fakeClock) *sessionMachine {
	t.Helper()

	session := &entity.WalkSession{
		ID:             uuid.New(),
		BookingID:      uuid.New(),
		OwnerID:        uuid.New(),
		WalkerID:       uuid.New(),
		DogID:          uuid.New(),
		State:          entity.StateScheduled,
		ScheduledStart: clock.Now(),
	}

	return newSessionMachine(session, testConfig().Tracking, clock.Now)
}

func TestSessionMachine_Lifecycle(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)

	change, err := m.Start()
	require.NoError(t, err)
	assert.Equal(t, entity.StateScheduled, change.From)
	assert.Equal(t, entity.StateInProgress, change.To)

	change, err = m.Pause()
	require.NoError(t, err)
	assert.Equal(t, entity.StatePaused, change.To)

	change, err = m.Resume()
	require.NoError(t, err)
	assert.Equal(t, entity.StateInProgress, change.To)

	clock.Advance(30 * time.Minute)
	change, err = m.End()
	require.NoError(t, err)
	assert.Equal(t, entity.StateCompleted, change.To)

	snapshot := m.Snapshot()
	assert.Equal(t, entity.StateCompleted, snapshot.State)
	assert.Equal(t, 30*time.Minute, snapshot.Duration)
	require.NotNil(t, snapshot.EndedAt)
}

func TestSessionMachine_StartGraceWindow(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)
	m.session.ScheduledStart = clock.Now().Add(time.Hour)

	_, err := m.Start()
	require.Error(t, err)
	assert.ErrorIs(t, err, domainerrors.ErrStartTooEarly)

	// Inside the 10 minute grace window the start succeeds.
	clock.Advance(51 * time.Minute)
	_, err = m.Start()
	require.NoError(t, err)
}

func TestSessionMachine_InvalidTransitions(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))

	t.Run("cannot pause scheduled", func(t *testing.T) {
		m := newTestMachine(t, clock)
		_, err := m.Pause()
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	})

	t.Run("cannot resume in progress", func(t *testing.T) {
		m := newTestMachine(t, clock)
		_, err := m.Start()
		require.NoError(t, err)
		_, err = m.Resume()
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	})

	t.Run("cannot start twice", func(t *testing.T) {
		m := newTestMachine(t, clock)
		_, err := m.Start()
		require.NoError(t, err)
		_, err = m.Start()
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	})

	t.Run("terminal state is final", func(t *testing.T) {
		m := newTestMachine(t, clock)
		_, err := m.Start()
		require.NoError(t, err)
		_, err = m.End()
		require.NoError(t, err)

		_, err = m.Pause()
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
		_, err = m.Cancel("changed my mind")
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
		_, err = m.Abort("outage")
		assert.ErrorIs(t, err, domainerrors.ErrInvalidTransition)
	})

	t.Run("can end from paused", func(t *testing.T) {
		m := newTestMachine(t, clock)
		_, err := m.Start()
		require.NoError(t, err)
		_, err = m.Pause()
		require.NoError(t, err)
		change, err := m.End()
		require.NoError(t, err)
		assert.Equal(t, entity.StateCompleted, change.To)
	})
}

func TestSessionMachine_CancelRecordsReason(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)

	_, err := m.Start()
	require.NoError(t, err)

	change, err := m.Cancel("dog got tired")
	require.NoError(t, err)
	assert.Equal(t, entity.StateCancelledEarly, change.To)
	assert.Equal(t, "dog got tired", change.Reason)
	assert.Equal(t, "dog got tired", m.Snapshot().CancelReason)
}

func TestSessionMachine_AppendAccumulatesDistance(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)

	_, err := m.Start()
	require.NoError(t, err)

	first := sampleAt(0, clock.Now())
	update, err := m.AppendSample(first)
	require.NoError(t, err)
	assert.Equal(t, 1, update.Sequence)
	assert.Zero(t, update.DistanceMeters)

	// 0.0001 degrees of latitude is roughly 11.1 m.
	second := sampleAt(0.0001, clock.Now().Add(10*time.Second))
	update, err = m.AppendSample(second)
	require.NoError(t, err)
	assert.Equal(t, 2, update.Sequence)
	assert.InDelta(t, 11.1, update.DistanceMeters, 0.5)

	last, ok := m.LastAccepted()
	require.True(t, ok)
	assert.Equal(t, second, last)
}

func TestSessionMachine_AppendRequiresInProgress(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)

	_, err := m.AppendSample(sampleAt(0, clock.Now()))
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotActive)

	_, err = m.Start()
	require.NoError(t, err)
	_, err = m.Pause()
	require.NoError(t, err)

	_, err = m.AppendSample(sampleAt(0, clock.Now()))
	assert.ErrorIs(t, err, domainerrors.ErrSessionNotActive)
}

func TestSessionMachine_RouteBound(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)
	bounded := *m.cfg
	bounded.MaxRoutePoints = 2
	m.cfg = &bounded

	_, err := m.Start()
	require.NoError(t, err)

	_, err = m.AppendSample(sampleAt(0, clock.Now()))
	require.NoError(t, err)
	_, err = m.AppendSample(sampleAt(0.0001, clock.Now().Add(10*time.Second)))
	require.NoError(t, err)

	_, err = m.AppendSample(sampleAt(0.0002, clock.Now().Add(20*time.Second)))
	assert.ErrorIs(t, err, domainerrors.ErrRouteFull)
}

func TestSessionMachine_StatsAndGaps(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	m := newTestMachine(t, clock)

	_, err := m.Start()
	require.NoError(t, err)

	base := clock.Now()
	_, err = m.AppendSample(sampleAt(0, base))
	require.NoError(t, err)
	_, err = m.AppendSample(sampleAt(0.0001, base.Add(10*time.Second)))
	require.NoError(t, err)

	// A six minute silence between consecutive samples marks a gap.
	_, err = m.AppendSample(sampleAt(0.0002, base.Add(6*time.Minute+10*time.Second)))
	require.NoError(t, err)

	clock.Advance(10 * time.Minute)
	_, err = m.End()
	require.NoError(t, err)

	snapshot := m.Snapshot()
	assert.True(t, snapshot.Stats.HasGaps)
	assert.Greater(t, snapshot.Stats.MaxSpeedMps, 0.0)
	assert.Greater(t, snapshot.Stats.AverageSpeedMps, 0.0)
	// The 11 m / 10 s leg is the fastest one.
	assert.InDelta(t, 1.11, snapshot.Stats.MaxSpeedMps, 0.1)
}
