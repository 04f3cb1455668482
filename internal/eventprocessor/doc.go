// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package eventprocessor implements the NATS JetStream pipeline that feeds
// the recommendation model.
//
// User actions arrive on the ACTIONS stream (subjects "actions.>"). The
// consumer partitions them by user id so that all actions of one user are
// applied in order, runs them through the similarity updater, and publishes
// the resulting similarity updates to the SIMILARITY stream. A sink
// subscribes to similarity updates and persists them for warm starts.
//
// The package also hosts the optional embedded NATS server used by
// single-instance deployments.
package eventprocessor
