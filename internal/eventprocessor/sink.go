// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/eventine-io/eventine/internal/metrics"
	"github.com/eventine-io/eventine/internal/recommend"
)

// UpdateStore persists similarity updates for warm starts.
type UpdateStore interface {
	Put(update recommend.SimilarityUpdate) error
}

// Sink subscribes to the similarity update stream and writes every update
// to durable storage. Writes are idempotent per pair (last write wins), so
// redelivery after a failed write is safe.
type Sink struct {
	source     ActionSource
	store      UpdateStore
	serializer *Serializer
	logger     zerolog.Logger
}

// NewSink wires a sink to its subscription source and store.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSink(source ActionSource, store UpdateStore, logger zerolog.Logger) (*Sink, error) {
	if source == nil {
		return nil, fmt.Errorf("%w: update source required", ErrInvalidConfig)
	}
	if store == nil {
		return nil, fmt.Errorf("%w: update store required", ErrInvalidConfig)
	}
	return &Sink{
		source:     source,
		store:      store,
		serializer: NewSerializer(),
		logger:     logger.With().Str("component", "sink").Logger(),
	}, nil
}

// Run persists updates until the context is cancelled or the subscription
// channel closes. It blocks; run it under a supervisor.
func (s *Sink) Run(ctx context.Context) error {
	messages, err := s.source.Subscribe(ctx, TopicSimilarityUpdates)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", TopicSimilarityUpdates, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			s.persist(msg)
		}
	}
}

func (s *Sink) persist(msg *message.Message) {
	event, err := s.serializer.UnmarshalUpdate(msg.Payload)
	if err != nil {
		s.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable update skipped")
		msg.Ack()
		return
	}
	if err := event.Validate(); err != nil {
		s.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("invalid update skipped")
		msg.Ack()
		return
	}

	if err := s.store.Put(event.Update()); err != nil {
		s.logger.Error().Err(err).
			Int64("event_a", event.EventA).
			Int64("event_b", event.EventB).
			Msg("persist similarity update failed, retrying")
		metrics.SinkWriteErrors.Inc()
		msg.Nack()
		return
	}

	metrics.SinkWrites.Inc()
	msg.Ack()
}
