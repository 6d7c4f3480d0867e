// Package httptransport exposes the intake service over HTTP.
package httptransport

import (
	"context"
	"net/http"
	"time"

	"workflow-intake/internal/common/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter wires the intake, probe and metrics endpoints.
func NewRouter(h *Handler, metricsHandler http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post("/v1/workflow-instances", h.HandleCreateWorkflowInstance)
	r.Get("/health", h.HandleHealth)
	r.Get("/ready", h.HandleReady)
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}
	return r
}

// NewServer builds the HTTP server for cfg. Zero timeouts fall back to 30s.
func NewServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	readTimeout := config.GetDuration(cfg.ReadTimeout)
	if readTimeout <= 0 {
		readTimeout = 30 * time.Second
	}
	writeTimeout := config.GetDuration(cfg.WriteTimeout)
	if writeTimeout <= 0 {
		writeTimeout = 30 * time.Second
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}
