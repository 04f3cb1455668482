// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/eventine-io/eventine/internal/metrics"
)

// Publisher wraps a Watermill NATS publisher with circuit breaker
// protection and automatic reconnection handling.
type Publisher struct {
	publisher      message.Publisher
	serializer     *Serializer
	circuitBreaker *gobreaker.CircuitBreaker[any]
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
}

// NewPublisher creates a resilient Watermill NATS publisher.
// Messages carry a Nats-Msg-Id so JetStream deduplicates redeliveries.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(nc *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS reconnected", watermill.LogFields{
				"url": nc.ConnectedUrl(),
			})
		}),
		natsgo.ErrorHandler(func(nc *natsgo.Conn, sub *natsgo.Subscription, err error) {
			logger.Error("NATS error", err, watermill.LogFields{
				"subject": sub.Subject,
			})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false, // Streams are pre-created by StreamInitializer
			TrackMsgId:    cfg.EnableTrackMsgID,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}

	return &Publisher{
		publisher:  pub,
		serializer: NewSerializer(),
		logger:     logger,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[any]) {
	p.circuitBreaker = cb
}

// NewCircuitBreaker builds a breaker from config, for SetCircuitBreaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig, logger watermill.LoggerAdapter) *gobreaker.CircuitBreaker[any] {
	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("circuit breaker state change", watermill.LogFields{
					"name": name,
					"from": from.String(),
					"to":   to.String(),
				})
			}
		},
	}
	return gobreaker.NewCircuitBreaker[any](settings)
}

// Publish sends a message to the given topic with circuit breaker
// protection. The message UUID becomes the Nats-Msg-Id when unset.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPublisherClosed
	}
	p.mu.RUnlock()

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (any, error) {
			return nil, p.publisher.Publish(topic, msg)
		})
	} else {
		err = p.publisher.Publish(topic, msg)
	}

	if err != nil {
		metrics.RecordNATSPublishError()
		return err
	}
	metrics.RecordNATSPublish()
	return nil
}

// PublishAction serializes and publishes a user action to its kind subject.
//
// The server itself only consumes actions; this is the producer entry point
// for in-process emitters (backfill tooling, seed scripts, tests) and keeps
// the action wire contract in one place alongside PublishUpdate.
func (p *Publisher) PublishAction(ctx context.Context, event *ActionEvent) error {
	data, err := p.serializer.MarshalAction(event)
	if err != nil {
		return fmt.Errorf("serialize action: %w", err)
	}

	msg := message.NewMessage(event.ActionID, data)
	msg.Metadata.Set("user_id", fmt.Sprintf("%d", event.UserID))
	msg.Metadata.Set("kind", event.Kind)

	return p.Publish(ctx, event.Topic(), msg)
}

// PublishUpdate serializes and publishes a similarity update.
//
// The message ID is derived from the pair and timestamp so JetStream's
// duplicate window suppresses identical emissions on redelivery.
func (p *Publisher) PublishUpdate(ctx context.Context, event *SimilarityUpdateEvent) error {
	data, err := p.serializer.MarshalUpdate(event)
	if err != nil {
		return fmt.Errorf("serialize similarity update: %w", err)
	}

	id := fmt.Sprintf("sim-%d-%d-%d", event.EventA, event.EventB, event.Timestamp.UnixNano())
	msg := message.NewMessage(id, data)

	if err := p.Publish(ctx, TopicSimilarityUpdates, msg); err != nil {
		return err
	}
	metrics.SimilarityUpdates.Inc()
	return nil
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	return p.publisher.Close()
}

// WatermillPublisher returns the underlying Watermill publisher for
// components that require the native message.Publisher interface.
func (p *Publisher) WatermillPublisher() message.Publisher {
	return p.publisher
}
