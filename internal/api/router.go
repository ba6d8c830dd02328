// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

// Package api serves the recommendation HTTP API on a chi router.
//
//	GET  /health
//	GET  /metrics
//	GET  /api/v1/users/{userID}/recommendations   stored result
//	POST /api/v1/users/{userID}/recommendations   queue a run (?sync=true runs inline)
//	POST /api/v1/batch                            queue a batch (admin)
//
// Responses use the APIResponse envelope. Routes under /api/v1 are rate
// limited per client IP, instrumented and authenticated.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juliannp253/Movies-Recommender/internal/auth"
)

// Router wires handlers and middleware.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMiddleware *ChiMiddleware) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		auth:          authMiddleware,
		chiMiddleware: chiMiddleware,
	}
}

// Setup builds the http.Handler.
func (router *Router) Setup() http.Handler {
	r := chi.NewRouter()

	// Global middleware, applied in order.
	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, "NOT_FOUND", "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.With(APISecurityHeaders()).Get("/health", router.handler.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(PrometheusMetrics)
		r.Use(router.auth.Authenticate)

		r.Get("/users/{userID}/recommendations", router.handler.GetRecommendations)
		r.Post("/users/{userID}/recommendations", router.handler.TriggerRecommendations)
		r.With(router.auth.RequireAdmin).Post("/batch", router.handler.TriggerBatch)
	})

	return r
}
