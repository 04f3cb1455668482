// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Serializer handles event encoding/decoding for NATS messages.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// MarshalAction converts an action event to JSON bytes after validation.
func (s *Serializer) MarshalAction(event *ActionEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate action event: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal action event: %w", err)
	}
	return data, nil
}

// UnmarshalAction converts JSON bytes to an action event. Decoding errors are
// distinct from validation errors: callers validate separately.
func (s *Serializer) UnmarshalAction(data []byte) (*ActionEvent, error) {
	var event ActionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal action event: %w", err)
	}
	return &event, nil
}

// MarshalUpdate converts a similarity update event to JSON bytes.
func (s *Serializer) MarshalUpdate(event *SimilarityUpdateEvent) ([]byte, error) {
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("validate similarity update: %w", err)
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal similarity update: %w", err)
	}
	return data, nil
}

// UnmarshalUpdate converts JSON bytes to a similarity update event.
func (s *Serializer) UnmarshalUpdate(data []byte) (*SimilarityUpdateEvent, error) {
	var event SimilarityUpdateEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal similarity update: %w", err)
	}
	return &event, nil
}
