// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"errors"
	"testing"
	"time"

	"github.com/eventine-io/eventine/internal/recommend"
)

func validActionEvent() *ActionEvent {
	return &ActionEvent{
		SchemaVersion: SchemaVersion,
		ActionID:      "a7f3c2d4-0000-0000-0000-000000000001",
		UserID:        42,
		EventID:       7,
		Kind:          "like",
		Timestamp:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestActionEvent_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ActionEvent)
		wantField string
	}{
		{name: "valid", mutate: func(e *ActionEvent) {}},
		{name: "missing action id", mutate: func(e *ActionEvent) { e.ActionID = "" }, wantField: "action_id"},
		{name: "zero user id", mutate: func(e *ActionEvent) { e.UserID = 0 }, wantField: "user_id"},
		{name: "negative event id", mutate: func(e *ActionEvent) { e.EventID = -1 }, wantField: "event_id"},
		{name: "missing kind", mutate: func(e *ActionEvent) { e.Kind = "" }, wantField: "kind"},
		{name: "zero timestamp", mutate: func(e *ActionEvent) { e.Timestamp = time.Time{} }, wantField: "timestamp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := validActionEvent()
			tt.mutate(event)
			err := event.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Validate() field = %q, want %q", ve.Field, tt.wantField)
			}
		})
	}
}

func TestActionEvent_Topic(t *testing.T) {
	event := NewActionEvent(1, 2, recommend.ActionRegister)
	if got, want := event.Topic(), "actions.register"; got != want {
		t.Errorf("Topic() = %q, want %q", got, want)
	}
	if event.ActionID == "" {
		t.Error("NewActionEvent() did not assign an action id")
	}
	if event.SchemaVersion != SchemaVersion {
		t.Errorf("SchemaVersion = %d, want %d", event.SchemaVersion, SchemaVersion)
	}
}

func TestActionEvent_GetSchemaVersion(t *testing.T) {
	legacy := &ActionEvent{}
	if got := legacy.GetSchemaVersion(); got != 1 {
		t.Errorf("GetSchemaVersion() on legacy event = %d, want 1", got)
	}
}

func TestSimilarityUpdateEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		event   SimilarityUpdateEvent
		wantErr bool
	}{
		{
			name:  "valid",
			event: SimilarityUpdateEvent{EventA: 1, EventB: 2, Score: 0.5, Timestamp: time.Now()},
		},
		{
			name:    "unordered pair",
			event:   SimilarityUpdateEvent{EventA: 2, EventB: 1, Score: 0.5},
			wantErr: true,
		},
		{
			name:    "equal ids",
			event:   SimilarityUpdateEvent{EventA: 3, EventB: 3, Score: 0.5},
			wantErr: true,
		},
		{
			name:    "score above one",
			event:   SimilarityUpdateEvent{EventA: 1, EventB: 2, Score: 1.5},
			wantErr: true,
		},
		{
			name:    "negative score",
			event:   SimilarityUpdateEvent{EventA: 1, EventB: 2, Score: -0.1},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSerializer_ActionRoundTrip(t *testing.T) {
	s := NewSerializer()
	event := validActionEvent()

	data, err := s.MarshalAction(event)
	if err != nil {
		t.Fatalf("MarshalAction() error = %v", err)
	}
	decoded, err := s.UnmarshalAction(data)
	if err != nil {
		t.Fatalf("UnmarshalAction() error = %v", err)
	}
	if decoded.ActionID != event.ActionID || decoded.UserID != event.UserID ||
		decoded.EventID != event.EventID || decoded.Kind != event.Kind ||
		!decoded.Timestamp.Equal(event.Timestamp) {
		t.Errorf("round trip mismatch: got %+v, want %+v", decoded, event)
	}

	action := decoded.Action()
	if action.UserID != 42 || action.EventID != 7 || action.Kind != recommend.ActionLike {
		t.Errorf("Action() = %+v, want user 42, event 7, kind like", action)
	}
}

func TestSerializer_MarshalRejectsInvalid(t *testing.T) {
	s := NewSerializer()
	event := validActionEvent()
	event.UserID = 0
	if _, err := s.MarshalAction(event); err == nil {
		t.Error("MarshalAction() with invalid event succeeded, want error")
	}
}

func TestSerializer_UnmarshalGarbage(t *testing.T) {
	s := NewSerializer()
	if _, err := s.UnmarshalAction([]byte("{not json")); err == nil {
		t.Error("UnmarshalAction() with garbage succeeded, want error")
	}
	if _, err := s.UnmarshalUpdate([]byte("{not json")); err == nil {
		t.Error("UnmarshalUpdate() with garbage succeeded, want error")
	}
}
