// ABOUTME: This file wires the Echo HTTP server exposing the administrative
// ABOUTME: surface (§6): pipeline control, schedule configuration, and status
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"romarchive/handler"
	appmiddleware "romarchive/middleware"
)

// NewHTTPServer creates and configures the Echo server exposing the
// admin routes of §6, following the teacher's bootstrap/server.go Echo
// wiring (custom error handler, OTel tracing middleware, request-logging
// middleware, recover, CORS) generalized from the summarize API surface
// to this service's admin surface. otelEnabled/otelServiceName mirror
// the teacher's own otelEnabled/otelServiceName NewHTTPServer arguments.
func NewHTTPServer(admin *handler.Admin, adminSharedKey string, otelEnabled bool, otelServiceName string, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.HTTPErrorHandler = appmiddleware.CustomHTTPErrorHandler(logger)

	if otelEnabled {
		e.Use(otelecho.Middleware(otelServiceName))
		e.Use(appmiddleware.OTelStatusMiddleware())
	}

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().URL.Path == "/health"
		},
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.InfoContext(c.Request().Context(), "HTTP request completed",
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency", v.Latency,
				"error", v.Error)
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	adminGroup := e.Group("/admin", appmiddleware.AdminKeyMiddleware(adminSharedKey))
	admin.Register(adminGroup)

	return e
}

// StartHTTPServer starts the HTTP server in a goroutine.
func StartHTTPServer(e *echo.Echo, port int, log *slog.Logger) {
	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Info("starting admin HTTP server", "addr", addr)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Error("admin HTTP server error", "error", err)
		}
	}()
}

// StartMetricsServer starts the Prometheus exposition endpoint in a
// goroutine, following the teacher's pattern of a dedicated listener per
// concern (bootstrap/server.go's Connect-RPC server alongside the API
// server) generalized to a metrics server alongside the admin server.
func StartMetricsServer(metricsHandler http.Handler, port int, path string, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle(path, metricsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting metrics server", "addr", server.Addr, "path", path)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server error", "error", err)
		}
	}()
}

// Shutdown gracefully stops the Echo server within timeout.
func Shutdown(ctx context.Context, e *echo.Echo, timeout time.Duration, log *slog.Logger) {
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("admin HTTP server shutdown error", "error", err)
	}
}
