// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package api serves the recommendation query endpoints over HTTP using the
// chi router.
package api

import "time"

// APIResponse is the envelope for every JSON response.
type APIResponse struct {
	Status   string    `json:"status"` // success or error
	Data     any       `json:"data,omitempty"`
	Error    *APIError `json:"error,omitempty"`
	Metadata Metadata  `json:"metadata"`
}

// APIError carries a machine-readable code and a human-readable message.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata is attached to every response.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS float64   `json:"query_time_ms,omitempty"`
}

// Error codes returned by the query API.
const (
	codeValidation    = "VALIDATION_ERROR"
	codeQueryTimeout  = "QUERY_TIMEOUT"
	codeInternalError = "INTERNAL_ERROR"
)
