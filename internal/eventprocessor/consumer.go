// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/eventine-io/eventine/internal/metrics"
	"github.com/eventine-io/eventine/internal/recommend"
)

// ActionSource yields raw action messages, typically a JetStream subscriber.
type ActionSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// UpdateSink receives similarity updates produced by applied actions.
type UpdateSink interface {
	PublishUpdate(ctx context.Context, event *SimilarityUpdateEvent) error
}

// Consumer applies the action stream to the similarity model.
//
// A single dispatcher reads from the subscription and routes each message to
// one of N partition workers by user id. All actions of a user land on the
// same worker, so they are applied in stream order even though partitions
// run concurrently. Redelivered actions are no-ops in the model, which makes
// at-least-once delivery safe.
type Consumer struct {
	source     ActionSource
	updater    *recommend.SimilarityUpdater
	sink       UpdateSink
	config     ConsumerConfig
	serializer *Serializer
	logger     zerolog.Logger

	mu     sync.Mutex
	closed bool
}

// NewConsumer wires a consumer to its source, model and update sink.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewConsumer(
	source ActionSource,
	updater *recommend.SimilarityUpdater,
	sink UpdateSink,
	cfg ConsumerConfig,
	logger zerolog.Logger,
) (*Consumer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, fmt.Errorf("%w: action source required", ErrInvalidConfig)
	}
	if updater == nil {
		return nil, fmt.Errorf("%w: similarity updater required", ErrInvalidConfig)
	}
	return &Consumer{
		source:     source,
		updater:    updater,
		sink:       sink,
		config:     cfg,
		serializer: NewSerializer(),
		logger:     logger.With().Str("component", "consumer").Logger(),
	}, nil
}

type work struct {
	msg   *message.Message
	event *ActionEvent
}

// Run consumes actions until the context is cancelled or the subscription
// channel closes. It blocks; run it under a supervisor.
func (c *Consumer) Run(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConsumerClosed
	}
	c.mu.Unlock()

	messages, err := c.source.Subscribe(ctx, SubjectActions)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", SubjectActions, err)
	}

	partitions := make([]chan work, c.config.Partitions)
	for i := range partitions {
		partitions[i] = make(chan work, c.config.BufferSize)
	}

	var wg sync.WaitGroup
	for i, ch := range partitions {
		wg.Add(1)
		go func(partition int, ch <-chan work) {
			defer wg.Done()
			c.worker(ctx, partition, ch)
		}(i, ch)
	}

	err = c.dispatch(ctx, messages, partitions)

	for _, ch := range partitions {
		close(ch)
	}
	wg.Wait()

	return err
}

// dispatch decodes messages and routes them to partition workers. Messages
// that fail to decode are acked and counted: redelivery cannot fix them.
func (c *Consumer) dispatch(ctx context.Context, messages <-chan *message.Message, partitions []chan work) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}

			event, err := c.serializer.UnmarshalAction(msg.Payload)
			if err != nil {
				c.logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("undecodable action skipped")
				metrics.ActionsSkipped.WithLabelValues("decode").Inc()
				msg.Ack()
				continue
			}

			p := c.partitionFor(event.UserID)
			select {
			case <-ctx.Done():
				msg.Nack()
				return ctx.Err()
			case partitions[p] <- work{msg: msg, event: event}:
				metrics.PartitionDepth.WithLabelValues(strconv.Itoa(p)).Set(float64(len(partitions[p])))
			}
		}
	}
}

func (c *Consumer) partitionFor(userID int64) int {
	return int((uint64(userID) * 0x9E3779B97F4A7C15 >> 32) % uint64(c.config.Partitions))
}

func (c *Consumer) worker(ctx context.Context, partition int, ch <-chan work) {
	var limiter *rate.Limiter
	if c.config.ThrottlePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(c.config.ThrottlePerSecond), c.config.ThrottlePerSecond)
	}

	for w := range ch {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				w.msg.Nack()
				continue
			}
		}
		c.process(ctx, w)
		metrics.PartitionDepth.WithLabelValues(strconv.Itoa(partition)).Set(float64(len(ch)))
	}
}

// process applies one action and publishes the resulting updates.
//
// Terminal failures (invalid fields, unknown kind) are acked and skipped.
// Transient failures (apply or publish errors) are nacked for redelivery;
// a redelivered action that already took effect is a harmless no-op.
func (c *Consumer) process(ctx context.Context, w work) {
	if err := w.event.Validate(); err != nil {
		c.logger.Warn().Err(err).Str("action_id", w.event.ActionID).Msg("invalid action skipped")
		metrics.ActionsSkipped.WithLabelValues("invalid").Inc()
		w.msg.Ack()
		return
	}

	updates, err := c.updater.Apply(w.event.Action())
	if err != nil {
		var unknown *recommend.UnknownActionKindError
		if errors.As(err, &unknown) {
			c.logger.Warn().Str("kind", string(unknown.Kind)).Str("action_id", w.event.ActionID).
				Msg("unknown action kind skipped")
			metrics.ActionsSkipped.WithLabelValues("unknown_kind").Inc()
			w.msg.Ack()
			return
		}
		if errors.Is(err, recommend.ErrInvalidAction) {
			metrics.ActionsSkipped.WithLabelValues("invalid").Inc()
			w.msg.Ack()
			return
		}
		c.logger.Error().Err(err).Str("action_id", w.event.ActionID).Msg("apply failed, retrying")
		metrics.ActionsRetried.Inc()
		w.msg.Nack()
		return
	}

	if updates == nil {
		metrics.ActionsNoop.Inc()
		w.msg.Ack()
		return
	}

	if c.sink != nil {
		for i := range updates {
			if err := c.sink.PublishUpdate(ctx, NewSimilarityUpdateEvent(updates[i])); err != nil {
				c.logger.Error().Err(err).
					Int64("event_a", updates[i].EventA).
					Int64("event_b", updates[i].EventB).
					Msg("publish similarity update failed, retrying action")
				metrics.ActionsRetried.Inc()
				w.msg.Nack()
				return
			}
		}
	}

	metrics.ActionsProcessed.WithLabelValues(w.event.Kind).Inc()
	metrics.SimilarityPairs.Set(float64(c.updater.PairCount()))
	w.msg.Ack()
}

// Close marks the consumer closed. A running Run returns once its context
// is cancelled; Close prevents restarts.
func (c *Consumer) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
