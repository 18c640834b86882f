package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/platform/config"
)

// ConnStore is the part of the registry the transport drives.
type ConnStore interface {
	Create(id domain.ConnID, peer domain.Peer)
	Remove(id domain.ConnID)
	Len() int
}

// MessageHandler processes one inbound text frame.
type MessageHandler interface {
	Handle(ctx context.Context, id domain.ConnID, raw []byte) error
}

type Server struct {
	echo   *echo.Echo
	config *config.Config
	clock  clockwork.Clock

	store    ConnStore
	handler  MessageHandler
	limits   *ConnectionLimits
	upgrader websocket.Upgrader

	startTime time.Time
}

func NewServer(cfg *config.Config, clock clockwork.Clock, store ConnStore, handler MessageHandler) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:    e,
		config:  cfg,
		clock:   clock,
		store:   store,
		handler: handler,
		limits: NewConnectionLimits(
			clock,
			int64(cfg.MaxWebSocketConnections),
			cfg.MaxConnectionsPerIP,
			cfg.ConnectionsPerSecond,
			cfg.ConnectionBurst,
		),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     NewCheckOrigin(cfg.AppURL, cfg.IsDevelopment()),
		},
		startTime: clock.Now(),
	}

	srv.registerRoutes()

	return srv
}

// Handler exposes the router, mainly for httptest servers.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
