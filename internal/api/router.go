// NextTrack - Music Track Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexttrack

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/nexttrack/internal/middleware"
)

// RouterConfig holds the routing-level knobs.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
	MetricsEndpoint bool
}

// DefaultRouterConfig returns permissive defaults suitable for a service
// fronted by its own reverse proxy.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   60,
		RateLimitWindow: time.Minute,
		MetricsEndpoint: true,
	}
}

// NewRouter wires the handler into a chi router with the full middleware
// stack: request IDs, real IP extraction, panic recovery, CORS, metrics,
// and per-IP rate limiting on the API routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         86400,
	}))
	r.Use(middleware.Prometheus)

	r.Route("/api/v1", func(r chi.Router) {
		// Health probes stay outside the rate limit so orchestrator
		// checks cannot starve real traffic of budget or vice versa.
		r.Get("/health", h.Health)
		r.Get("/health/live", h.HealthLive)
		r.Get("/health/ready", h.HealthReady)

		r.Group(func(r chi.Router) {
			if cfg.RateLimitReqs > 0 {
				r.Use(httprate.Limit(
					cfg.RateLimitReqs,
					cfg.RateLimitWindow,
					httprate.WithKeyFuncs(httprate.KeyByIP),
					httprate.WithLimitHandler(rateLimited),
				))
			}
			r.Get("/recommendations", h.RecommendationsGet)
			r.Post("/recommendations", h.RecommendationsPost)
			r.Get("/search", h.Search)
		})
	})

	// Root-level aliases for orchestrator probes.
	r.Get("/health", h.Health)
	r.Get("/ready", h.HealthReady)

	if cfg.MetricsEndpoint {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).NotFound("endpoint not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		NewResponseWriter(w, req).Error(http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "method not allowed")
	})

	return r
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	NewResponseWriter(w, r).Error(http.StatusTooManyRequests, ErrCodeTooManyRequests, "rate limit exceeded")
}
