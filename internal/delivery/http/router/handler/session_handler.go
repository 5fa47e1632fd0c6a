package handler

import (
	"log/slog"
	"net/http"
	"time"

	"pawtrack/internal/delivery/http/response"
	domainerrors "pawtrack/internal/domain/errors"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// SessionHandlerParams holds dependencies for SessionHandler, injected by Fx.
type SessionHandlerParams struct {
	fx.In

	SessionUC usecase.SessionUsecase
	Logger    *slog.Logger
}

// SessionHandler holds dependencies for session lifecycle handlers
type SessionHandler struct {
	sessionUC usecase.SessionUsecase
	logger    *slog.Logger
}

// NewSessionHandler is the constructor for SessionHandler
func NewSessionHandler(params SessionHandlerParams) *SessionHandler {
	return &SessionHandler{
		sessionUC: params.SessionUC,
		logger:    params.Logger,
	}
}

// GeofenceRequest is the optional circular boundary in a create request
type GeofenceRequest struct {
	Latitude     float64 `json:"latitude" validate:"min=-90,max=90"`
	Longitude    float64 `json:"longitude" validate:"min=-180,max=180"`
	RadiusMeters float64 `json:"radius_meters" validate:"required,gt=0"`
}

// CreateSessionRequest represents the request body for creating a walk session
type CreateSessionRequest struct {
	BookingID      string           `json:"booking_id" validate:"required,uuid"`
	OwnerID        string           `json:"owner_id" validate:"required,uuid"`
	WalkerID       string           `json:"walker_id" validate:"required,uuid"`
	DogID          string           `json:"dog_id" validate:"required,uuid"`
	ScheduledStart time.Time        `json:"scheduled_start" validate:"required"`
	Geofence       *GeofenceRequest `json:"geofence,omitempty"`
}

// CancelSessionRequest carries the walker's stated reason for stopping early
type CancelSessionRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// CreateSession handles registering a scheduled walk session
func (h *SessionHandler) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid session input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	input := &usecase.CreateSessionInput{
		BookingID:      uuid.MustParse(req.BookingID),
		OwnerID:        uuid.MustParse(req.OwnerID),
		WalkerID:       uuid.MustParse(req.WalkerID),
		DogID:          uuid.MustParse(req.DogID),
		ScheduledStart: req.ScheduledStart,
	}
	if req.Geofence != nil {
		input.Geofence = &usecase.GeofenceInput{
			Latitude:     req.Geofence.Latitude,
			Longitude:    req.Geofence.Longitude,
			RadiusMeters: req.Geofence.RadiusMeters,
		}
	}

	snapshot, err := h.sessionUC.CreateSession(c.Request().Context(), input)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusCreated, snapshot, "Walk session created successfully")
}

// StartSession handles starting a scheduled walk
func (h *SessionHandler) StartSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.sessionUC.Start(c.Request().Context(), sessionID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk started")
}

// PauseSession handles pausing an active walk
func (h *SessionHandler) PauseSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.sessionUC.Pause(c.Request().Context(), sessionID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk paused")
}

// ResumeSession handles resuming a paused walk
func (h *SessionHandler) ResumeSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.sessionUC.Resume(c.Request().Context(), sessionID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk resumed")
}

// EndSession handles completing a walk normally
func (h *SessionHandler) EndSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.sessionUC.End(c.Request().Context(), sessionID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk completed")
}

// CancelSession handles stopping a walk early with a reason
func (h *SessionHandler) CancelSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	var req CancelSessionRequest
	if err := c.Bind(&req); err != nil {
		return response.BindingError(c, "INVALID_INPUT", "Invalid cancel input")
	}

	if err := c.Validate(&req); err != nil {
		return response.BadRequest(c, "VALIDATION_ERROR", err.Error())
	}

	snapshot, err := h.sessionUC.Cancel(c.Request().Context(), sessionID, req.Reason)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk cancelled")
}

// GetSession handles retrieving a session snapshot
func (h *SessionHandler) GetSession(c echo.Context) error {
	sessionID, err := h.getSessionID(c)
	if err != nil {
		return err
	}

	snapshot, err := h.sessionUC.Snapshot(c.Request().Context(), sessionID)
	if err != nil {
		return h.handleAppError(c, err)
	}

	return response.Success(c, http.StatusOK, snapshot, "Walk session retrieved successfully")
}

// getSessionID extracts the session ID from the route parameter
func (h *SessionHandler) getSessionID(c echo.Context) (uuid.UUID, error) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, response.BadRequest(c, "INVALID_ID", "Invalid session ID")
	}

	return sessionID, nil
}

// handleAppError handles application errors
func (h *SessionHandler) handleAppError(c echo.Context, err error) error {
	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
	}

	return errors.WithStack(err)
}
