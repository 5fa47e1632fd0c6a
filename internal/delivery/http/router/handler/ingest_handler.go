package handler

import (
	"log/slog"
	"net/http"
	"time"

	"pawtrack/internal/delivery/http/response"
	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// IngestHandlerParams holds dependencies for IngestHandler, injected by Fx.
type IngestHandlerParams struct {
	fx.In

	IngestUC usecase.IngestUsecase
	Logger   *slog.Logger
}

// IngestHandler receives raw GPS fixes from the walker's device
type IngestHandler struct {
	ingestUC usecase.IngestUsecase
	logger   *slog.Logger
}

// NewIngestHandler is the constructor for IngestHandler
func NewIngestHandler(params IngestHandlerParams) *IngestHandler {
	return &IngestHandler{
		ingestUC: params.IngestUC,
		logger:   params.Logger,
	}
}

// LocationRequest represents one raw GPS fix from the device.
// Range checks live in the domain validator, not in struct tags, so a
// malformed fix produces a typed rejection instead of a 400.
type LocationRequest struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Altitude  *float64  `json:"altitude,omitempty"`
	Accuracy  float64   `json:"accuracy"`
	Speed     *float64  `json:"speed,omitempty"`
	Course    *float64  `json:"course,omitempty"`
	Timestamp time.Time `json:"timestamp" validate:"required"`
}

// PostLocation handles one incoming location sample. The sample's fate
// (accepted, throttled, rejected) is reported in the body; only a session
// in the wrong state is an error.
func (h *IngestHandler) PostLocation(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid session ID")
	}

	var req LocationRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid location input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	sample := entity.LocationSample{
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Altitude:  req.Altitude,
		Accuracy:  req.Accuracy,
		Speed:     req.Speed,
		Course:    req.Course,
		Timestamp: req.Timestamp,
	}

	outcome, err := h.ingestUC.Ingest(c.Request().Context(), sessionID, sample)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusAccepted, outcome, "Location processed")
}

// handleAppError handles application errors
func (h *IngestHandler) handleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
