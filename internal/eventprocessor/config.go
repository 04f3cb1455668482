// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package eventprocessor

import (
	"fmt"
	"time"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
	}
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool // nolint:revive // ID is correct per Go conventions
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:              url,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds subscriber configuration.
type SubscriberConfig struct {
	URL            string
	DurableName    string
	QueueGroup     string
	AckWaitTimeout time.Duration
	MaxDeliver     int
	MaxAckPending  int
	CloseTimeout   time.Duration
	MaxReconnects  int
	ReconnectWait  time.Duration
	// StreamName is the JetStream stream to bind to. Binding is required
	// for wildcard topics ("actions.>") because stream names cannot
	// contain wildcards and auto-provisioning would fail.
	StreamName string
}

// DefaultActionSubscriberConfig returns defaults for the action consumer.
//
// SubscribersCount is intentionally absent: ordering per user is provided by
// the consumer's own partitioned workers, so exactly one delivery goroutine
// feeds the dispatcher.
func DefaultActionSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		DurableName:    "action-processor",
		QueueGroup:     "recommenders",
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		MaxAckPending:  4096,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
		StreamName:     StreamActions,
	}
}

// DefaultSinkSubscriberConfig returns defaults for the similarity sink.
func DefaultSinkSubscriberConfig(url string) SubscriberConfig {
	return SubscriberConfig{
		URL:            url,
		DurableName:    "similarity-sink",
		QueueGroup:     "sinks",
		AckWaitTimeout: 30 * time.Second,
		MaxDeliver:     5,
		MaxAckPending:  4096,
		CloseTimeout:   30 * time.Second,
		MaxReconnects:  -1,
		ReconnectWait:  2 * time.Second,
		StreamName:     StreamSimilarity,
	}
}

// StreamConfig defines JetStream stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultActionStreamConfig returns the ACTIONS stream configuration.
func DefaultActionStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            StreamActions,
		Subjects:        []string{SubjectActions},
		MaxAge:          7 * 24 * time.Hour,
		MaxBytes:        10 << 30, // 10GB
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// DefaultSimilarityStreamConfig returns the SIMILARITY stream configuration.
func DefaultSimilarityStreamConfig() StreamConfig {
	return StreamConfig{
		Name:            StreamSimilarity,
		Subjects:        []string{TopicSimilarityUpdates},
		MaxAge:          30 * 24 * time.Hour,
		MaxBytes:        10 << 30,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// CircuitBreakerConfig holds circuit breaker settings for publishing.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}

// ConsumerConfig holds the action consumer's partitioning settings.
type ConsumerConfig struct {
	// Partitions is the number of worker goroutines. Actions are routed
	// to a worker by user id, which serializes processing per user.
	Partitions int

	// BufferSize is the per-partition channel capacity.
	BufferSize int

	// ThrottlePerSecond caps actions applied per worker per second.
	// Zero disables throttling.
	ThrottlePerSecond int
}

// DefaultConsumerConfig returns production defaults for the consumer.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		Partitions: 8,
		BufferSize: 256,
	}
}

// Validate checks the consumer configuration.
func (c ConsumerConfig) Validate() error {
	if c.Partitions <= 0 {
		return fmt.Errorf("%w: partitions must be positive, got %d", ErrInvalidConfig, c.Partitions)
	}
	if c.BufferSize <= 0 {
		return fmt.Errorf("%w: buffer size must be positive, got %d", ErrInvalidConfig, c.BufferSize)
	}
	if c.ThrottlePerSecond < 0 {
		return fmt.Errorf("%w: throttle must not be negative, got %d", ErrInvalidConfig, c.ThrottlePerSecond)
	}
	return nil
}
