// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ActionKind classifies a user's interaction with an event.
// The set is open-ended: any kind present in the configured weight table is
// accepted, anything else is rejected before mutation.
type ActionKind string

// Built-in action kinds. The ordering of their default weights reflects
// interaction intensity (view < register < like) but is configuration,
// not a property of the type.
const (
	ActionView     ActionKind = "view"
	ActionRegister ActionKind = "register"
	ActionLike     ActionKind = "like"
)

// ParseActionKind normalizes a wire-format kind string.
func ParseActionKind(s string) ActionKind {
	return ActionKind(strings.ToLower(strings.TrimSpace(s)))
}

// UserAction is one immutable interaction fact from the stream.
// The stream may redeliver actions; Apply is idempotent for redeliveries.
type UserAction struct {
	UserID    int64      `json:"user_id"`
	EventID   int64      `json:"event_id"`
	Kind      ActionKind `json:"kind"`
	Timestamp time.Time  `json:"timestamp"`
}

// Validate checks structural validity. It does not consult the weight table;
// unknown kinds are rejected by SimilarityUpdater.Apply.
func (a UserAction) Validate() error {
	if a.UserID <= 0 {
		return fmt.Errorf("%w: user_id %d", ErrInvalidAction, a.UserID)
	}
	if a.EventID <= 0 {
		return fmt.Errorf("%w: event_id %d", ErrInvalidAction, a.EventID)
	}
	if a.Kind == "" {
		return fmt.Errorf("%w: empty kind", ErrInvalidAction)
	}
	return nil
}

// SimilarityUpdate is emitted whenever a pair's similarity score changes.
// EventA < EventB always (canonical unordered pair). The timestamp is that
// of the action that caused the update, which keeps replays deterministic.
type SimilarityUpdate struct {
	EventA    int64     `json:"event_a"`
	EventB    int64     `json:"event_b"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// ScoredEvent is one entry of a ranked query result.
type ScoredEvent struct {
	EventID int64   `json:"event_id"`
	Score   float64 `json:"score"`
}

// UnknownActionKindError reports an action kind with no configured weight.
type UnknownActionKindError struct {
	Kind ActionKind
}

func (e *UnknownActionKindError) Error() string {
	return fmt.Sprintf("unknown action kind %q", string(e.Kind))
}

// Validation sentinels. These are terminal: the caller must correct the
// input, retrying is pointless.
var (
	// ErrInvalidAction indicates a structurally malformed action.
	ErrInvalidAction = errors.New("invalid action")

	// ErrInvalidMaxResults indicates a non-positive result limit.
	ErrInvalidMaxResults = errors.New("max results must be positive")

	// ErrInvalidWeight indicates a non-positive weight in configuration.
	ErrInvalidWeight = errors.New("action weight must be positive")
)
