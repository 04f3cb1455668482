// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"time"

	"github.com/google/uuid"

	"github.com/eventine-io/eventine/internal/recommend"
)

// SchemaVersion is the current event schema version.
// Increment this when making breaking changes to ActionEvent.
const SchemaVersion = 1

// Stream and subject layout.
const (
	// StreamActions holds inbound user actions, subjects "actions.<kind>".
	StreamActions = "ACTIONS"
	// SubjectActions is the wildcard subject consumed from StreamActions.
	SubjectActions = "actions.>"

	// StreamSimilarity holds outbound similarity updates.
	StreamSimilarity = "SIMILARITY"
	// TopicSimilarityUpdates is the subject similarity updates publish to.
	TopicSimilarityUpdates = "similarity.updates"
)

// ActionEvent is the wire format for a user action on the ACTIONS stream.
//
// Version 1: initial schema. Consumers must tolerate events without an
// explicit schema_version (treated as version 1).
type ActionEvent struct {
	SchemaVersion int `json:"schema_version,omitempty"`

	// ActionID identifies the action for NATS deduplication and tracing.
	ActionID string `json:"action_id"`

	UserID    int64     `json:"user_id"`
	EventID   int64     `json:"event_id"`
	Kind      string    `json:"kind"` // view, register, like
	Timestamp time.Time `json:"timestamp"`
}

// NewActionEvent creates an event with a unique ID, timestamp, and schema
// version. Actions normally originate from external platform producers;
// this constructor serves in-process producers such as backfill tooling
// and tests, and pins the wire format they must emit.
func NewActionEvent(userID, eventID int64, kind recommend.ActionKind) *ActionEvent {
	return &ActionEvent{
		SchemaVersion: SchemaVersion,
		ActionID:      uuid.New().String(),
		UserID:        userID,
		EventID:       eventID,
		Kind:          string(kind),
		Timestamp:     time.Now().UTC(),
	}
}

// GetSchemaVersion returns the schema version, defaulting to 1 for events
// published before the field existed.
func (e *ActionEvent) GetSchemaVersion() int {
	if e.SchemaVersion == 0 {
		return 1
	}
	return e.SchemaVersion
}

// Validate checks required fields and returns a *ValidationError on failure.
func (e *ActionEvent) Validate() error {
	if e.ActionID == "" {
		return &ValidationError{Field: "action_id", Message: "required"}
	}
	if e.UserID <= 0 {
		return &ValidationError{Field: "user_id", Message: "must be positive"}
	}
	if e.EventID <= 0 {
		return &ValidationError{Field: "event_id", Message: "must be positive"}
	}
	if e.Kind == "" {
		return &ValidationError{Field: "kind", Message: "required"}
	}
	if e.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "required"}
	}
	return nil
}

// Topic returns the NATS subject for this event.
// Format: actions.<kind>, e.g. actions.like.
func (e *ActionEvent) Topic() string {
	return "actions." + e.Kind
}

// Action converts the wire event to the model's action type.
func (e *ActionEvent) Action() recommend.UserAction {
	return recommend.UserAction{
		UserID:    e.UserID,
		EventID:   e.EventID,
		Kind:      recommend.ParseActionKind(e.Kind),
		Timestamp: e.Timestamp,
	}
}

// SimilarityUpdateEvent is the wire format for a recomputed pair score on
// the SIMILARITY stream. EventA < EventB always holds.
type SimilarityUpdateEvent struct {
	SchemaVersion int       `json:"schema_version,omitempty"`
	EventA        int64     `json:"event_a"`
	EventB        int64     `json:"event_b"`
	Score         float64   `json:"score"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSimilarityUpdateEvent wraps a model update for publishing.
func NewSimilarityUpdateEvent(u recommend.SimilarityUpdate) *SimilarityUpdateEvent {
	return &SimilarityUpdateEvent{
		SchemaVersion: SchemaVersion,
		EventA:        u.EventA,
		EventB:        u.EventB,
		Score:         u.Score,
		Timestamp:     u.Timestamp,
	}
}

// Validate checks required fields and returns a *ValidationError on failure.
func (e *SimilarityUpdateEvent) Validate() error {
	if e.EventA <= 0 {
		return &ValidationError{Field: "event_a", Message: "must be positive"}
	}
	if e.EventB <= 0 {
		return &ValidationError{Field: "event_b", Message: "must be positive"}
	}
	if e.EventA >= e.EventB {
		return &ValidationError{Field: "event_a", Message: "must be less than event_b"}
	}
	if e.Score < 0 || e.Score > 1 {
		return &ValidationError{Field: "score", Message: "must be within [0, 1]"}
	}
	return nil
}

// Update converts the wire event back to the model type.
func (e *SimilarityUpdateEvent) Update() recommend.SimilarityUpdate {
	return recommend.SimilarityUpdate{
		EventA:    e.EventA,
		EventB:    e.EventB,
		Score:     e.Score,
		Timestamp: e.Timestamp,
	}
}
