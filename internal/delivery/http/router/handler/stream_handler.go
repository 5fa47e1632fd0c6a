package handler

import (
	"log/slog"
	"net/http"
	"time"

	"pawtrack/config"
	"pawtrack/internal/delivery/http/response"
	"pawtrack/internal/domain/entity"
	domainerrors "pawtrack/internal/domain/errors"
	"pawtrack/internal/usecase"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// StreamHandlerParams holds dependencies for StreamHandler, injected by Fx.
type StreamHandlerParams struct {
	fx.In

	StreamUC usecase.StreamUsecase
	Config   *config.Config
	Logger   *slog.Logger
}

// StreamHandler upgrades observers to WebSocket and pumps session events
type StreamHandler struct {
	streamUC usecase.StreamUsecase
	cfg      *config.StreamConfig
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewStreamHandler is the constructor for StreamHandler
func NewStreamHandler(params StreamHandlerParams) *StreamHandler {
	return &StreamHandler{
		streamUC: params.StreamUC,
		cfg:      params.Config.Stream,
		logger:   params.Logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks belong to the gateway in front of this service
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// streamFrame is the wire envelope for one broadcast event
type streamFrame struct {
	Kind    entity.EventKind `json:"kind"`
	Payload entity.Event     `json:"payload"`
}

// StreamSession subscribes the caller to one session's live events and
// streams them until the session ends or the client disconnects
func (h *StreamHandler) StreamSession(c echo.Context) error {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return response.BadRequest(c, "INVALID_ID", "Invalid session ID")
	}

	sub, err := h.streamUC.Subscribe(sessionID)
	if err != nil {
		var appErr domainerrors.AppError
		if errors.As(err, &appErr) {
			return response.Error(c, appErr.HTTPCode(), appErr.ErrorCode(), appErr.Message(), appErr.Details())
		}

		return errors.WithStack(err)
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.streamUC.Unsubscribe(sub.ID)

		return errors.Wrap(err, "websocket upgrade failed")
	}

	h.logger.Info("Stream subscriber connected",
		slog.String("session_id", sessionID.String()),
		slog.String("subscription_id", sub.ID.String()),
	)

	go h.readPump(conn, sub)
	h.writePump(conn, sub)

	return nil
}

// readPump drains client frames so pong handlers run and close frames are
// noticed. Inbound payloads are ignored; the stream is one-way.
func (h *StreamHandler) readPump(conn *websocket.Conn, sub *usecase.Subscription) {
	defer h.streamUC.Unsubscribe(sub.ID)

	conn.SetReadLimit(h.cfg.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(h.cfg.PongWait))

		return nil
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// writePump delivers subscription events and keeps the connection alive
// with pings. It owns all writes on the connection.
func (h *StreamHandler) writePump(conn *websocket.Conn, sub *usecase.Subscription) {
	ticker := time.NewTicker(h.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
		h.streamUC.Unsubscribe(sub.ID)
	}()

	for {
		select {
		case event, ok := <-sub.Events:
			conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if !ok {
				// Session reached a terminal state or the service is
				// shutting down.
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "stream ended"))

				return
			}

			frame := streamFrame{Kind: event.Kind(), Payload: event}
			if err := conn.WriteJSON(frame); err != nil {
				h.logger.Debug("Stream write failed, dropping subscriber",
					slog.String("subscription_id", sub.ID.String()),
					slog.Any("error", err),
				)

				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
