// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package api

import (
	"net/http"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// respondJSON writes an APIResponse with the given status code. Encoding
// failures are logged but not surfaced; headers are already committed.
func respondJSON(w http.ResponseWriter, r *http.Request, status int, resp *APIResponse, logger zerolog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("failed to encode response")
	}
}

// respondError writes a JSON error envelope and logs the underlying cause.
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string, err error, logger zerolog.Logger) {
	evt := logger.Warn().Str("code", code).Str("path", r.URL.Path).Int("status", status)
	if err != nil {
		evt = evt.Err(err)
	}
	evt.Msg("request failed")

	respondJSON(w, r, status, &APIResponse{
		Status:   "error",
		Error:    &APIError{Code: code, Message: message},
		Metadata: Metadata{Timestamp: time.Now().UTC()},
	}, logger)
}

// positivePathParam parses a required positive int64 path parameter.
func positivePathParam(raw string) (int64, bool) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

// queryInt parses an optional integer query parameter, returning def when the
// parameter is absent. A present but malformed value reports ok=false.
func queryInt(r *http.Request, name string, def int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
