// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"pawtrack/internal/delivery/http/middleware"
	"pawtrack/internal/delivery/http/router/handler"
	"pawtrack/internal/infra/metrics"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	SessionHandler *handler.SessionHandler
	IngestHandler  *handler.IngestHandler
	StreamHandler  *handler.StreamHandler
	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Metrics
}

// router holds all the handlers that need to be registered.
type router struct {
	sessionHandler *handler.SessionHandler
	ingestHandler  *handler.IngestHandler
	streamHandler  *handler.StreamHandler
	authMiddleware *middleware.AuthMiddleware
	metrics        *metrics.Metrics
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		sessionHandler: params.SessionHandler,
		ingestHandler:  params.IngestHandler,
		streamHandler:  params.StreamHandler,
		authMiddleware: params.AuthMiddleware,
		metrics:        params.Metrics,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(r.metrics.Handler()))

	// Session routes; mutating commands require a bearer token when auth
	// is enabled
	sessionGroup := e.Group("/sessions")
	{
		sessionGroup.GET("/:id", r.sessionHandler.GetSession)
		sessionGroup.GET("/:id/stream", r.streamHandler.StreamSession)
	}

	commandGroup := e.Group("/sessions")
	commandGroup.Use(r.authMiddleware.Authenticate)
	{
		commandGroup.POST("", r.sessionHandler.CreateSession)
		commandGroup.POST("/:id/start", r.sessionHandler.StartSession)
		commandGroup.POST("/:id/pause", r.sessionHandler.PauseSession)
		commandGroup.POST("/:id/resume", r.sessionHandler.ResumeSession)
		commandGroup.POST("/:id/end", r.sessionHandler.EndSession)
		commandGroup.POST("/:id/cancel", r.sessionHandler.CancelSession)
		commandGroup.POST("/:id/locations", r.ingestHandler.PostLocation)
	}
}
