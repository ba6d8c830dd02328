// Movies Recommender - Personalized Movie Recommendation Pipeline
// Copyright 2026 juliannp253
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/juliannp253/Movies-Recommender

package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/juliannp253/Movies-Recommender/internal/auth"
	"github.com/juliannp253/Movies-Recommender/internal/cache"
	"github.com/juliannp253/Movies-Recommender/internal/logging"
	"github.com/juliannp253/Movies-Recommender/internal/recommend"
	"github.com/juliannp253/Movies-Recommender/internal/supervisor/services"
	"github.com/juliannp253/Movies-Recommender/internal/validation"
)

const (
	userIDRule   = "required,max=128,printascii,excludesall=/\\"
	maxBodyBytes = 64 << 10
)

// Triggers queues asynchronous work. *services.TriggerService implements it.
type Triggers interface {
	EnqueueUser(ctx context.Context, userID string) (services.TriggerOutcome, error)
	EnqueueBatch(ctx context.Context, ids []string) (services.TriggerOutcome, error)
	Pending() int
}

// Pinger reports storage reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BreakerReporter exposes a circuit breaker state ("closed", "half-open", "open").
type BreakerReporter interface {
	BreakerState() string
}

// CacheReporter exposes metadata cache counters.
type CacheReporter interface {
	Stats() cache.Stats
}

// HandlerDeps groups the collaborators of Handler. Events and Cache may be nil.
type HandlerDeps struct {
	Runner   recommend.UserRunner
	Results  recommend.ResultStore
	Triggers Triggers
	Database Pinger
	Events   BreakerReporter
	Cache    CacheReporter
	Version  string

	// SyncTimeout bounds ?sync=true runs. Default: 2m
	SyncTimeout time.Duration

	// WriteTimeout is the server's write deadline. When set, SyncTimeout is
	// clamped below it so a timed-out run still gets its 504 written.
	WriteTimeout time.Duration
}

// syncWriteMargin is reserved between SyncTimeout and the write deadline.
const syncWriteMargin = 5 * time.Second

// syncTimeout returns sync clamped to finish before writeTimeout.
func syncTimeout(sync, writeTimeout time.Duration) time.Duration {
	if writeTimeout <= 0 {
		return sync
	}
	limit := writeTimeout - syncWriteMargin
	if limit <= 0 {
		limit = writeTimeout / 2
	}
	if sync > limit {
		return limit
	}
	return sync
}

// Handler serves the recommendation API.
type Handler struct {
	deps      HandlerDeps
	logger    zerolog.Logger
	startTime time.Time
}

// NewHandler creates the API handler.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewHandler(deps HandlerDeps, logger zerolog.Logger) *Handler {
	if deps.SyncTimeout <= 0 {
		deps.SyncTimeout = 2 * time.Minute
	}
	deps.SyncTimeout = syncTimeout(deps.SyncTimeout, deps.WriteTimeout)
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{
		deps:      deps,
		logger:    logger.With().Str("component", "api").Logger(),
		startTime: time.Now(),
	}
}

// HealthStatus is the /health payload.
type HealthStatus struct {
	Status            string       `json:"status"` // "healthy" or "degraded"
	Version           string       `json:"version"`
	DatabaseConnected bool         `json:"database_connected"`
	PendingTriggers   int          `json:"pending_triggers"`
	EventsBreaker     string       `json:"events_breaker,omitempty"`
	MetadataCache     *CacheHealth `json:"metadata_cache,omitempty"`
	Uptime            float64      `json:"uptime_seconds"`
}

// CacheHealth summarizes the metadata cache for /health.
type CacheHealth struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Evictions int64   `json:"evictions"`
	HitRate   float64 `json:"hit_rate_percent"`
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	dbConnected := h.deps.Database != nil && h.deps.Database.Ping(ctx) == nil

	health := HealthStatus{
		Status:            "healthy",
		Version:           h.deps.Version,
		DatabaseConnected: dbConnected,
		Uptime:            time.Since(h.startTime).Seconds(),
	}
	if h.deps.Triggers != nil {
		health.PendingTriggers = h.deps.Triggers.Pending()
	}
	if h.deps.Events != nil {
		health.EventsBreaker = h.deps.Events.BreakerState()
	}
	if h.deps.Cache != nil {
		s := h.deps.Cache.Stats()
		health.MetadataCache = &CacheHealth{
			Size:      s.Size,
			Capacity:  s.Capacity,
			Hits:      s.Hits,
			Misses:    s.Misses,
			Evictions: s.Evictions,
			HitRate:   s.HitRate(),
		}
	}
	if !dbConnected || health.EventsBreaker == "open" {
		health.Status = "degraded"
	}

	respondSuccess(w, r, http.StatusOK, health, start)
}

// GetRecommendations handles GET /api/v1/users/{userID}/recommendations and
// returns the stored result.
func (h *Handler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID, ok := h.authorizedUser(w, r)
	if !ok {
		return
	}

	result, err := h.deps.Results.Get(r.Context(), userID)
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "NOT_FOUND", "No recommendations stored for this user", nil)
	case err != nil:
		respondError(w, r, http.StatusInternalServerError, "STORAGE_ERROR", "Failed to read recommendations", err)
	default:
		respondSuccess(w, r, http.StatusOK, result, start)
	}
}

// TriggerResponse acknowledges an asynchronous trigger.
type TriggerResponse struct {
	Outcome services.TriggerOutcome `json:"outcome"`
	UserID  string                  `json:"user_id,omitempty"`
	UserIDs []string                `json:"user_ids,omitempty"`
	Pending int                     `json:"pending"`
}

// TriggerRecommendations handles POST /api/v1/users/{userID}/recommendations.
// With ?sync=true the pipeline runs inline and the result is returned;
// otherwise the run is queued and 202 is returned.
func (h *Handler) TriggerRecommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	userID, ok := h.authorizedUser(w, r)
	if !ok {
		return
	}

	if sync, _ := strconv.ParseBool(r.URL.Query().Get("sync")); sync {
		h.runSync(w, r, userID, start)
		return
	}

	outcome, err := h.deps.Triggers.EnqueueUser(r.Context(), userID)
	if errors.Is(err, services.ErrQueueFull) {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, http.StatusServiceUnavailable, "QUEUE_FULL", "Trigger queue is full, retry later", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "TRIGGER_FAILED", "Failed to queue run", err)
		return
	}

	log := logging.CtxFrom(r.Context(), h.logger)
	log.Info().
		Str("user_id", userID).
		Str("outcome", string(outcome)).
		Msg("Recommendation run queued")
	respondSuccess(w, r, http.StatusAccepted, TriggerResponse{
		Outcome: outcome,
		UserID:  userID,
		Pending: h.deps.Triggers.Pending(),
	}, start)
}

func (h *Handler) runSync(w http.ResponseWriter, r *http.Request, userID string, start time.Time) {
	ctx, cancel := context.WithTimeout(r.Context(), h.deps.SyncTimeout)
	defer cancel()

	result, err := h.deps.Runner.Run(ctx, userID)
	if err != nil {
		status, code, message := classifyRunError(err)
		var cause error
		if status >= http.StatusInternalServerError {
			cause = err
		}
		respondError(w, r, status, code, message, cause)
		return
	}
	respondSuccess(w, r, http.StatusOK, result, start)
}

// classifyRunError maps pipeline errors to HTTP responses.
func classifyRunError(err error) (status int, code, message string) {
	var (
		validationErr  *recommend.ValidationError
		persistenceErr *recommend.PersistenceError
		upstreamErr    *recommend.UpstreamError
	)
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND", "User not found"
	case errors.As(err, &validationErr):
		return http.StatusUnprocessableEntity, "RECOMMENDATION_INVALID", validationErr.Reason
	case errors.As(err, &persistenceErr):
		return http.StatusInternalServerError, "PERSISTENCE_ERROR", "Recommendations were generated but could not be stored"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "TIMEOUT", "Recommendation run timed out"
	case errors.As(err, &upstreamErr):
		return http.StatusBadGateway, "UPSTREAM_ERROR", "Upstream " + upstreamErr.Service + " request failed"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Recommendation run failed"
	}
}

// BatchRequest is the optional POST /api/v1/batch body. No ids means every
// known user.
type BatchRequest struct {
	UserIDs []string `json:"user_ids" validate:"max=1000,dive,required,max=128,printascii,excludesall=/\\"`
}

// TriggerBatch handles POST /api/v1/batch (admin only).
func (h *Handler) TriggerBatch(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req BatchRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			respondError(w, r, http.StatusBadRequest, "INVALID_BODY", "Request body must be {\"user_ids\": [...]}", nil)
			return
		}
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondErrorDetails(w, r, http.StatusBadRequest, apiErr)
		return
	}

	outcome, err := h.deps.Triggers.EnqueueBatch(r.Context(), req.UserIDs)
	if errors.Is(err, services.ErrQueueFull) {
		w.Header().Set("Retry-After", "30")
		respondError(w, r, http.StatusServiceUnavailable, "QUEUE_FULL", "Trigger queue is full, retry later", nil)
		return
	}
	if err != nil {
		respondError(w, r, http.StatusInternalServerError, "TRIGGER_FAILED", "Failed to queue batch", err)
		return
	}

	log := logging.CtxFrom(r.Context(), h.logger)
	log.Info().
		Int("users", len(req.UserIDs)).
		Str("outcome", string(outcome)).
		Msg("Batch queued")
	respondSuccess(w, r, http.StatusAccepted, TriggerResponse{
		Outcome: outcome,
		UserIDs: req.UserIDs,
		Pending: h.deps.Triggers.Pending(),
	}, start)
}

// authorizedUser validates the {userID} path parameter and checks the
// caller may act on it.
func (h *Handler) authorizedUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := chi.URLParam(r, "userID")
	if err := validation.ValidateVar(userID, userIDRule); err != nil {
		respondError(w, r, http.StatusBadRequest, "INVALID_USER_ID", "Invalid user ID", nil)
		return "", false
	}

	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok || !claims.CanAccessUser(userID) {
		respondError(w, r, http.StatusForbidden, "FORBIDDEN", "Not allowed to access this user", nil)
		return "", false
	}
	return userID, true
}
