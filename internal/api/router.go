// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig holds the router's middleware settings.
type RouterConfig struct {
	CORSOrigins     []string
	RateLimitReqs   int
	RateLimitWindow time.Duration
	Timeout         time.Duration
}

// DefaultRouterConfig returns the default middleware settings.
func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		CORSOrigins:     []string{"*"},
		RateLimitReqs:   100,
		RateLimitWindow: time.Minute,
		Timeout:         30 * time.Second,
	}
}

// NewRouter assembles the full HTTP handler: global middleware, health and
// metrics endpoints, and the versioned API routes.
func NewRouter(h *Handler, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		MaxAge:         86400,
	}))
	if cfg.Timeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Timeout))
	}

	r.Get("/healthz", h.Health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimitReqs > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitReqs, cfg.RateLimitWindow))
		}
		r.Use(PrometheusMetrics())
		r.Use(RequestLogging())

		r.Get("/predict/{userID}/{itemID}", h.Predict)
		r.Get("/recommendations/user/{userID}", h.Recommendations)
		r.Get("/recommendations/similar/{itemID}", h.SimilarItems)
		r.Get("/users/{userID}/profile", h.Profile)
		r.Get("/model/status", h.ModelStatus)
		r.Post("/model/rebuild", h.ModelRebuild)
		r.Post("/evaluate", h.Evaluate)
	})

	return r
}
