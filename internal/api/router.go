package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lauto554/arca-soap/pkg/metrics"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger         *slog.Logger
	Metrics        *metrics.AcquisitionMetrics
	DefaultService string
	Version        string

	// Readiness dependencies, probed by /ready. Nil entries are skipped.
	Dependencies map[string]Pinger
}

// NewRouter creates a chi router with the middleware stack and routes.
func NewRouter(config *RouterConfig, acquirer Acquirer) chi.Router {
	if config == nil {
		config = &RouterConfig{}
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(RecoveryMiddleware(config.Logger))
	r.Use(LoggingMiddleware(config.Logger))
	r.Use(middleware.RealIP)
	if config.Metrics != nil {
		r.Use(metrics.Middleware(config.Metrics))
	}

	registerHealthRoutes(r, config)
	r.Handle("/metrics", metrics.Handler())

	h := NewHandlers(acquirer, config.DefaultService, config.Logger)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/access/{tenant}/{env}", h.handleAccess)
	})

	return r
}

// registerHealthRoutes registers health check endpoints.
func registerHealthRoutes(r chi.Router, config *RouterConfig) {
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "healthy",
			Version: config.Version,
		})
	})
	r.Get("/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Get("/ready", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 5*time.Second)
		defer cancel()

		components := make(map[string]*ComponentHealth, len(config.Dependencies))
		status := http.StatusOK
		for name, dep := range config.Dependencies {
			if dep == nil {
				continue
			}
			if err := dep.HealthCheck(ctx); err != nil {
				components[name] = &ComponentHealth{Status: "unavailable", Message: err.Error()}
				status = http.StatusServiceUnavailable
			} else {
				components[name] = &ComponentHealth{Status: "ready"}
			}
		}

		overall := "ready"
		if status != http.StatusOK {
			overall = "not ready"
		}
		writeJSON(w, status, HealthResponse{
			Status:     overall,
			Version:    config.Version,
			Components: components,
		})
	})
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status     string                      `json:"status"`
	Version    string                      `json:"version"`
	Components map[string]*ComponentHealth `json:"components,omitempty"`
}

// ComponentHealth represents individual component health.
type ComponentHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}
