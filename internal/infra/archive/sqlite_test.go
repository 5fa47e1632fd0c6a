package archive

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"testing"
	"time"

	"pawtrack/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(t *testing.T) *Sink {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	db.SetMaxOpenConns(1)
	_, err = db.Exec(schema)
	require.NoError(t, err)

	return &Sink{
		db:     db,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))

	return n
}

func TestSink_StoresRoutePoints(t *testing.T) {
	s := newTestSink(t)
	sessionID := uuid.New()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	for seq := 1; seq <= 3; seq++ {
		update := entity.RouteUpdate{
			SessionID: sessionID,
			Sample: entity.LocationSample{
				Latitude:  37.7749,
				Longitude: -122.4194,
				Accuracy:  10,
				Timestamp: at.Add(time.Duration(seq) * 10 * time.Second),
			},
			Sequence:       seq,
			DistanceMeters: float64(seq) * 11,
		}
		require.NoError(t, s.store(context.Background(), update))
	}

	assert.Equal(t, 3, countRows(t, s.db, "route_points"))

	// Replaying the same sequence is a no-op, not a failure.
	require.NoError(t, s.store(context.Background(), entity.RouteUpdate{
		SessionID: sessionID,
		Sample:    entity.LocationSample{Latitude: 1, Longitude: 1, Accuracy: 5, Timestamp: at},
		Sequence:  2,
	}))
	assert.Equal(t, 3, countRows(t, s.db, "route_points"))
}

func TestSink_StoresStatusChangesAndAnomalies(t *testing.T) {
	s := newTestSink(t)
	sessionID := uuid.New()
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, s.store(context.Background(), entity.StatusChange{
		SessionID: sessionID,
		From:      entity.StateScheduled,
		To:        entity.StateInProgress,
		At:        at,
	}))
	require.NoError(t, s.store(context.Background(), entity.AnomalyEvent{
		SessionID: sessionID,
		Anomaly:   entity.AnomalyGeofenceExit,
		At:        at.Add(time.Minute),
	}))

	assert.Equal(t, 2, countRows(t, s.db, "session_events"))

	var kind, detail string
	require.NoError(t, s.db.QueryRow(
		"SELECT kind, detail FROM session_events ORDER BY id LIMIT 1").Scan(&kind, &detail))
	assert.Equal(t, "status_change", kind)
	assert.Equal(t, "scheduled->in_progress", detail)
}
