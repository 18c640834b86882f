package httpserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/roomrelay/internal/broadcast"
	"github.com/pscheid92/roomrelay/internal/domain"
	"github.com/pscheid92/roomrelay/internal/metrics"
	"github.com/pscheid92/roomrelay/internal/platform/correlation"
)

// handleWebSocket upgrades the request and runs the read pump until the
// client goes away. The connection is registered for its whole lifetime.
func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.WebSocketConnectionsRejected.WithLabelValues(string(reason)).Inc()
		metrics.WebSocketConnectionsTotal.WithLabelValues("rejected").Inc()
		slog.Warn("WebSocket connection rejected", "remote_ip", ip, "reason", string(reason))
		if err := c.String(reason.StatusCode(), "connection limit exceeded"); err != nil {
			return fmt.Errorf("failed to write rejection: %w", err)
		}
		return nil
	}
	defer s.limits.Release(ip)

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// The upgrader has already answered the request.
		metrics.WebSocketConnectionsTotal.WithLabelValues("error").Inc()
		slog.Warn("WebSocket upgrade failed", "remote_ip", ip, "error", err)
		return nil
	}
	metrics.WebSocketConnectionsTotal.WithLabelValues("success").Inc()
	metrics.WebSocketConnectionsCurrent.Inc()

	id := domain.NewConnID()
	ctx := correlation.WithConnID(c.Request().Context(), id.String())
	peer := broadcast.NewConn(id, conn, s.clock)
	conn.SetReadLimit(s.config.MaxMessageBytes)

	s.store.Create(id, peer)
	start := s.clock.Now()
	slog.InfoContext(ctx, "Client connected", "remote_ip", ip, "clients", s.store.Len())

	defer func() {
		s.store.Remove(id)
		peer.Close()
		peer.Wait()

		metrics.WebSocketConnectionsCurrent.Dec()
		metrics.WebSocketConnectionDuration.Observe(s.clock.Since(start).Seconds())
		slog.InfoContext(ctx, "Client disconnected", "duration", s.clock.Since(start), "clients", s.store.Len())
	}()

	s.readPump(ctx, id, conn, peer)
	return nil
}

// readPump feeds every inbound frame to the message handler. Bad messages are
// logged and skipped; only read errors end the session.
func (s *Server) readPump(ctx context.Context, id domain.ConnID, conn *websocket.Conn, peer *broadcast.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) {
				slog.DebugContext(ctx, "WebSocket read failed", "error", err)
			}
			return
		}
		peer.ExtendReadDeadline()

		err = s.handler.Handle(ctx, id, data)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrMalformedMessage):
			slog.WarnContext(ctx, "Ignoring malformed message", "bytes", len(data), "error", err)
		case errors.Is(err, domain.ErrUnknownConnection):
			// Evicted by the sweeper; the socket is already being torn down.
			slog.DebugContext(ctx, "Message from evicted connection dropped")
		default:
			slog.ErrorContext(ctx, "Message handling failed", "error", err)
		}
	}
}
