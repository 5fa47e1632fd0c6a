package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"pawtrack/config"
	"pawtrack/internal/delivery/http/validator"
	"pawtrack/internal/infra/metrics"
	"pawtrack/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testTrackingService() *impl.TrackingService {
	cfg := &config.Config{}
	cfg.Tracking = &config.TrackingConfig{
		MaxAccuracyMeters:      50,
		DegradedAccuracyMeters: 100,
		SanitySpeedMps:         15,
		WalkingSpeedMps:        3,
		WalkingSpeedStreak:     5,
		ThrottleInterval:       5 * time.Second,
		SignalLossWindow:       time.Minute,
		SignalLossCeiling:      5 * time.Minute,
		StartGraceWindow:       10 * time.Minute,
		MaxRoutePoints:         1000,
		RetentionWindow:        time.Hour,
	}
	cfg.Stream = &config.StreamConfig{SubscriberBuffer: 16}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := metrics.New()

	return impl.NewTrackingService(cfg, logger, impl.NewSampleValidator(cfg), impl.NewBroadcaster(cfg, logger, m), m, nil)
}

func newTestContext(t *testing.T, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	e.Validator = validator.New()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()

	return e.NewContext(req, rec), rec
}

func newSessionHandlerForTest() *SessionHandler {
	return &SessionHandler{
		sessionUC: testTrackingService(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSessionHandler_CreateSession(t *testing.T) {
	h := newSessionHandlerForTest()

	body := `{
		"booking_id": "6ba7b810-9dad-11d1-80b4-00c04fd430c8",
		"owner_id": "6ba7b811-9dad-11d1-80b4-00c04fd430c8",
		"walker_id": "6ba7b812-9dad-11d1-80b4-00c04fd430c8",
		"dog_id": "6ba7b813-9dad-11d1-80b4-00c04fd430c8",
		"scheduled_start": "2026-03-14T10:00:00Z"
	}`

	c, rec := newTestContext(t, http.MethodPost, "/sessions", body)
	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			SessionID string `json:"sessionId"`
			State     string `json:"state"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "scheduled", resp.Data.State)
	assert.NotEmpty(t, resp.Data.SessionID)
}

func TestSessionHandler_CreateSession_MissingFields(t *testing.T) {
	h := newSessionHandlerForTest()

	c, rec := newTestContext(t, http.MethodPost, "/sessions", `{"booking_id": "not-a-uuid"}`)
	require.NoError(t, h.CreateSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_GetSession_InvalidID(t *testing.T) {
	h := newSessionHandlerForTest()

	c, rec := newTestContext(t, http.MethodGet, "/sessions/abc", "")
	c.SetParamNames("id")
	c.SetParamValues("abc")

	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSessionHandler_GetSession_NotFound(t *testing.T) {
	h := newSessionHandlerForTest()

	c, rec := newTestContext(t, http.MethodGet, "/sessions/6ba7b810-9dad-11d1-80b4-00c04fd430c8", "")
	c.SetParamNames("id")
	c.SetParamValues("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	require.NoError(t, h.GetSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionHandler_StartUnknownSession(t *testing.T) {
	h := newSessionHandlerForTest()

	c, rec := newTestContext(t, http.MethodPost, "/sessions/6ba7b810-9dad-11d1-80b4-00c04fd430c8/start", "")
	c.SetParamNames("id")
	c.SetParamValues("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	require.NoError(t, h.StartSession(c))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
