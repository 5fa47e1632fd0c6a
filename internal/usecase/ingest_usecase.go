package usecase

import (
	"context"

	"pawtrack/internal/domain/entity"

	"github.com/google/uuid"
)

// IngestOutcome reports what happened to one raw sample. Exactly one of
// Accepted, Throttled, or Rejection describes the result.
type IngestOutcome struct {
	Accepted  bool                   `json:"accepted"`
	Throttled bool                   `json:"throttled"`
	Rejection entity.RejectionReason `json:"rejection,omitempty"`
	Update    *entity.RouteUpdate    `json:"update,omitempty"`
}

// IngestUsecase is the throttling/anomaly layer between raw validated
// samples and the session route. A rejected or throttled sample is not an
// error; errors are reserved for session-state violations.
type IngestUsecase interface {
	Ingest(ctx context.Context, sessionID uuid.UUID, sample entity.LocationSample) (IngestOutcome, error)
}
