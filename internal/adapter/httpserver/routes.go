package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/pscheid92/roomrelay/internal/metrics"
)

const livenessBanner = "WebSocket server is running."

func (s *Server) registerRoutes() {
	s.echo.Use(s.setupRequestLoggerMiddleware())
	s.echo.Use(middleware.Recover())
	s.echo.Use(httpMetricsMiddleware())

	s.echo.GET("/", s.handleRoot)
	s.echo.GET("/ws", s.handleWebSocket)

	s.registerHealthRoutes()
	s.echo.GET("/metrics", echo.WrapHandler(metrics.Handler()))
}

// handleRoot answers plain HTTP with the liveness banner and upgrades
// WebSocket handshakes on the same path.
func (s *Server) handleRoot(c echo.Context) error {
	if websocket.IsWebSocketUpgrade(c.Request()) {
		return s.handleWebSocket(c)
	}
	if err := c.String(http.StatusOK, livenessBanner); err != nil {
		return fmt.Errorf("failed to write liveness banner: %w", err)
	}
	return nil
}

func (s *Server) setupRequestLoggerMiddleware() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogError:   true,
		Skipper: func(c echo.Context) bool {
			// Upgraded connections are logged by the WebSocket handler.
			return websocket.IsWebSocketUpgrade(c.Request())
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			slog.Debug("Request", attrs...)
			return nil
		},
	})
}

// httpMetricsMiddleware records request metrics. It skips /metrics, /health/*
// and WebSocket sessions, whose duration is tracked separately.
func httpMetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			path := c.Path()
			if path == "/metrics" || strings.HasPrefix(path, "/health/") || websocket.IsWebSocketUpgrade(c.Request()) {
				return next(c)
			}

			metrics.HTTPInFlightRequests.Inc()
			defer metrics.HTTPInFlightRequests.Dec()

			timer := prometheus.NewTimer(prometheus.ObserverFunc(func(v float64) {
				status := strconv.Itoa(c.Response().Status)
				metrics.HTTPRequestDuration.WithLabelValues(c.Request().Method, path, status).Observe(v)
				metrics.HTTPRequestsTotal.WithLabelValues(c.Request().Method, path, status).Inc()
			}))

			err := next(c)
			timer.ObserveDuration()
			return err
		}
	}
}
