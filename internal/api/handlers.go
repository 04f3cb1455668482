// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/eventine-io/eventine/internal/config"
	"github.com/eventine-io/eventine/internal/eventprocessor"
	"github.com/eventine-io/eventine/internal/recommend"
)

// QueryEngine answers the two recommendation queries. Satisfied by
// *recommend.RecommendationEngine.
type QueryEngine interface {
	SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]recommend.ScoredEvent, error)
	RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]recommend.ScoredEvent, error)
}

// Handler holds the dependencies of the query endpoints.
type Handler struct {
	engine  QueryEngine
	health  *eventprocessor.HealthChecker
	cfg     config.APIConfig
	timeout time.Duration
	logger  zerolog.Logger
}

// NewHandler builds a Handler. The health checker may be nil, in which case
// the readiness endpoint always reports ready.
func NewHandler(engine QueryEngine, health *eventprocessor.HealthChecker, cfg config.APIConfig, timeout time.Duration, logger zerolog.Logger) *Handler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handler{
		engine:  engine,
		health:  health,
		cfg:     cfg,
		timeout: timeout,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// maxResults resolves the max_results query parameter against the configured
// default and ceiling.
func (h *Handler) maxResults(r *http.Request) (int, bool) {
	n, ok := queryInt(r, "max_results", h.cfg.DefaultMaxResults)
	if !ok || n <= 0 || n > h.cfg.MaxMaxResults {
		return 0, false
	}
	return n, true
}

// SimilarEvents handles GET /api/v1/events/{eventID}/similar.
//
// The optional user_id query parameter excludes that user's interaction
// history from the result. An event with no recorded co-interactions returns
// an empty list, not an error.
func (h *Handler) SimilarEvents(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	eventID, ok := positivePathParam(chi.URLParam(r, "eventID"))
	if !ok {
		respondError(w, r, http.StatusBadRequest, codeValidation, "event ID must be a positive integer", nil, h.logger)
		return
	}

	var userID int64
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		userID, ok = positivePathParam(raw)
		if !ok {
			respondError(w, r, http.StatusBadRequest, codeValidation, "user_id must be a positive integer", nil, h.logger)
			return
		}
	}

	limit, ok := h.maxResults(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, codeValidation, "max_results out of range", nil, h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results, err := h.engine.SimilarEvents(ctx, eventID, userID, limit)
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   map[string]any{"event_id": eventID, "similar": results},
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		},
	}, h.logger)
}

// RecommendationsForUser handles GET /api/v1/users/{userID}/recommendations.
//
// A user with no interaction history receives an empty list.
func (h *Handler) RecommendationsForUser(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, ok := positivePathParam(chi.URLParam(r, "userID"))
	if !ok {
		respondError(w, r, http.StatusBadRequest, codeValidation, "user ID must be a positive integer", nil, h.logger)
		return
	}

	limit, ok := h.maxResults(r)
	if !ok {
		respondError(w, r, http.StatusBadRequest, codeValidation, "max_results out of range", nil, h.logger)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results, err := h.engine.RecommendationsForUser(ctx, userID, limit)
	if err != nil {
		h.respondQueryError(w, r, err)
		return
	}

	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   map[string]any{"user_id": userID, "recommendations": results},
		Metadata: Metadata{
			Timestamp:   time.Now().UTC(),
			QueryTimeMS: float64(time.Since(start).Microseconds()) / 1000,
		},
	}, h.logger)
}

func (h *Handler) respondQueryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, recommend.ErrInvalidMaxResults):
		respondError(w, r, http.StatusBadRequest, codeValidation, "max_results out of range", err, h.logger)
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, r, http.StatusGatewayTimeout, codeQueryTimeout, "query timed out", err, h.logger)
	default:
		respondError(w, r, http.StatusInternalServerError, codeInternalError, "internal error", err, h.logger)
	}
}

// HealthLive handles GET /health/live. It reports liveness only: the process
// is up and serving.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, &APIResponse{
		Status:   "success",
		Data:     map[string]any{"alive": true},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	}, h.logger)
}

// HealthReady handles GET /health/ready. It aggregates the registered
// component checks; any unhealthy component yields 503.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.health == nil {
		respondJSON(w, r, http.StatusOK, &APIResponse{
			Status:   "success",
			Data:     map[string]any{"ready": true},
			Metadata: Metadata{Timestamp: time.Now().UTC()},
		}, h.logger)
		return
	}

	overall := h.health.CheckAll(r.Context())
	status := http.StatusOK
	respStatus := "success"
	if !overall.Healthy {
		status = http.StatusServiceUnavailable
		respStatus = "error"
	}

	respondJSON(w, r, status, &APIResponse{
		Status:   respStatus,
		Data:     overall,
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	}, h.logger)
}
