package impl

import (
	"testing"
	"time"

	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_AddRejectsDuplicates(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	r := newSessionRegistry()
	m := newTestMachine(t, clock)

	require.NoError(t, r.Add(m.session.ID, m))
	assert.ErrorIs(t, r.Add(m.session.ID, m), domainerrors.ErrSessionExists)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_SweepTerminal(t *testing.T) {
	clock := newFakeClock(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC))
	r := newSessionRegistry()

	active := newTestMachine(t, clock)
	_, err := active.Start()
	require.NoError(t, err)
	require.NoError(t, r.Add(active.session.ID, active))

	finished := newTestMachine(t, clock)
	_, err = finished.Start()
	require.NoError(t, err)
	_, err = finished.End()
	require.NoError(t, err)
	require.NoError(t, r.Add(finished.session.ID, finished))

	// Inside the retention window nothing is swept.
	archived := r.SweepTerminal(clock.Now().Add(-time.Hour))
	assert.Empty(t, archived)
	assert.Equal(t, 2, r.Len())

	// Past the window only the terminal session goes.
	clock.Advance(2 * time.Hour)
	archived = r.SweepTerminal(clock.Now().Add(-time.Hour))
	require.Len(t, archived, 1)
	assert.Equal(t, finished.session.ID, archived[0])
	assert.Equal(t, 1, r.Len())

	_, ok := r.Get(active.session.ID)
	assert.True(t, ok)
	assert.Equal(t, entity.StateInProgress, active.State())
}
