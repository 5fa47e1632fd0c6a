// Package archive persists the broadcast event stream to SQLite. It is a
// plain wildcard subscriber and gets no treatment the live WebSocket
// observers don't get.
package archive

import (
	"context"
	"database/sql"
	"log/slog"

	"pawtrack/config"
	"pawtrack/internal/domain/entity"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS route_points (
	session_id      TEXT    NOT NULL,
	sequence        INTEGER NOT NULL,
	latitude        REAL    NOT NULL,
	longitude       REAL    NOT NULL,
	accuracy_m      REAL    NOT NULL,
	recorded_at     TEXT    NOT NULL,
	distance_m      REAL    NOT NULL,
	PRIMARY KEY (session_id, sequence)
);
CREATE TABLE IF NOT EXISTS session_events (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	detail      TEXT NOT NULL,
	occurred_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_session_events_session ON session_events(session_id);
`

// Sink drains a wildcard subscription into SQLite.
type Sink struct {
	db     *sql.DB
	stream usecase.StreamUsecase
	logger *slog.Logger
	sub    *usecase.Subscription
}

// SinkParams holds dependencies for the archive sink, injected by Fx
type SinkParams struct {
	fx.In

	Lc     fx.Lifecycle
	Config *config.Config
	Stream usecase.StreamUsecase
	Logger *slog.Logger
}

// NewSink opens (or creates) the archive database and subscribes to the
// full event stream. Returns nil when archiving is disabled.
func NewSink(params SinkParams) (*Sink, error) {
	cfg := params.Config
	stream := params.Stream
	logger := params.Logger

	if cfg.Archive == nil || !cfg.Archive.Enabled {
		logger.Info("Archive sink disabled")

		return nil, nil
	}

	path := cfg.Archive.Path
	if path == "" {
		path = "pawtrack.db"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open archive database")
	}

	// modernc sqlite is single-writer; the sink is the only writer but a
	// second connection would contend on the schema lock.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, errors.Wrap(err, "create archive schema")
	}

	sub, err := stream.Subscribe(uuid.Nil)
	if err != nil {
		db.Close()

		return nil, err
	}

	logger.Info("Archive sink enabled", slog.String("path", path))

	sink := &Sink{
		db:     db,
		stream: stream,
		logger: logger,
		sub:    sub,
	}

	params.Lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return sink.Close()
		},
	})

	return sink, nil
}

// Run consumes events until the context is cancelled or the broadcaster
// closes the subscription.
func (s *Sink) Run(ctx context.Context) error {
	defer s.stream.Unsubscribe(s.sub.ID)

	for {
		select {
		case <-ctx.Done():
			return errors.WithStack(ctx.Err())
		case event, ok := <-s.sub.Events:
			if !ok {
				return nil
			}
			if err := s.store(ctx, event); err != nil {
				s.logger.Error("Archive write failed",
					slog.String("session_id", event.Session().String()),
					slog.String("kind", string(event.Kind())),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (s *Sink) store(ctx context.Context, event entity.Event) error {
	switch e := event.(type) {
	case entity.RouteUpdate:
		_, err := s.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO route_points
			 (session_id, sequence, latitude, longitude, accuracy_m, recorded_at, distance_m)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			e.SessionID.String(), e.Sequence,
			e.Sample.Latitude, e.Sample.Longitude, e.Sample.Accuracy,
			e.Sample.Timestamp.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			e.DistanceMeters,
		)

		return errors.WithStack(err)

	case entity.StatusChange:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO session_events (session_id, kind, detail, occurred_at)
			 VALUES (?, ?, ?, ?)`,
			e.SessionID.String(), string(event.Kind()),
			e.From.String()+"->"+e.To.String(),
			e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		)

		return errors.WithStack(err)

	case entity.AnomalyEvent:
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO session_events (session_id, kind, detail, occurred_at)
			 VALUES (?, ?, ?, ?)`,
			e.SessionID.String(), string(event.Kind()), string(e.Anomaly),
			e.At.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		)

		return errors.WithStack(err)
	}

	return nil
}

// Close flushes and closes the underlying database.
func (s *Sink) Close() error {
	return errors.WithStack(s.db.Close())
}
