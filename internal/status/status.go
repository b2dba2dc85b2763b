// Package status exposes a small HTTP API next to the lobby port:
// a health probe and a JSON view of the current players and rooms.
// Handy for LAN party dashboards and for scripting against the server.
package status

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/udisondev/c3go/internal/lobby"
)

// Server wraps an echo instance serving the status routes.
type Server struct {
	lobby *lobby.Lobby
	echo  *echo.Echo
}

// NewServer constructs the API server and registers all routes.
func NewServer(lb *lobby.Lobby) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			slog.Debug("status api request", "method", v.Method, "uri", v.URI, "status", v.Status)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	s := &Server{lobby: lb, echo: e}
	e.GET("/health", s.handleHealth)
	e.GET("/api/lobby", s.handleLobby)
	return s
}

// Handler exposes the routes for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Run starts the HTTP server on addr and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	go func() {
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("status api server error", "error", err)
		}
	}()
	<-ctx.Done()
	shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.echo.Shutdown(shutCtx)
}

// HealthResponse is the payload for GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Clients int    `json:"clients"`
}

func (s *Server) handleHealth(c echo.Context) error {
	snap, err := s.lobby.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok", Clients: snap.Clients})
}

func (s *Server) handleLobby(c echo.Context) error {
	snap, err := s.lobby.Snapshot(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, err.Error())
	}
	return c.JSON(http.StatusOK, snap)
}
