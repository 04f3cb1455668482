// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package metrics provides Prometheus instrumentation for the recommendation
// pipeline: action consumption, similarity maintenance, the durable sink,
// and the query API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Action stream metrics
	ActionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_processed_total",
			Help: "Total number of user actions applied to the similarity model",
		},
		[]string{"kind"},
	)

	ActionsNoop = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actions_noop_total",
			Help: "Actions discarded by the max-weight idempotency rule (redeliveries and weaker replays)",
		},
	)

	ActionsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "actions_skipped_total",
			Help: "Actions skipped without retry",
		},
		[]string{"reason"}, // "decode", "invalid", "unknown_kind"
	)

	ActionsRetried = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "actions_retried_total",
			Help: "Actions nacked for redelivery after a transient failure",
		},
	)

	PartitionDepth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "consumer_partition_depth",
			Help: "Buffered actions per consumer partition",
		},
		[]string{"partition"},
	)

	// Similarity model metrics
	SimilarityUpdates = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "similarity_updates_total",
			Help: "Total number of pair similarity updates emitted",
		},
	)

	SimilarityPairs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "similarity_pairs",
			Help: "Current number of event pairs with a similarity score",
		},
	)

	// NATS publish metrics
	NATSPublishes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_total",
			Help: "Total number of messages published to NATS",
		},
	)

	NATSPublishErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nats_publish_errors_total",
			Help: "Total number of failed NATS publishes",
		},
	)

	// Durable sink metrics
	SinkWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sink_writes_total",
			Help: "Similarity updates persisted to the badger sink",
		},
	)

	SinkWriteErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sink_write_errors_total",
			Help: "Failed writes to the badger sink",
		},
	)

	// Query API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"method", "endpoint"},
	)

	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recommend_query_duration_seconds",
			Help:    "Recommendation engine query duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"}, // "similar_events", "recommendations"
	)
)

// RecordNATSPublish increments the publish counter.
func RecordNATSPublish() {
	NATSPublishes.Inc()
}

// RecordNATSPublishError increments the publish error counter.
func RecordNATSPublishError() {
	NATSPublishErrors.Inc()
}

// RecordAPIRequest records one completed API request.
func RecordAPIRequest(method, endpoint string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// ObserveQuery records the duration of one engine query.
func ObserveQuery(query string, start time.Time) {
	QueryDuration.WithLabelValues(query).Observe(time.Since(start).Seconds())
}
