// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package recommend maintains an incrementally updated event-similarity model
// and serves recommendation queries from it.
//
// The model is built from a stream of user actions. Each action carries a
// configurable weight; per (user, event) the running maximum weight is kept,
// and from those maxima three aggregates are maintained by deltas:
//
//   - EventWeightSumStore: per event, the sum of all users' current weights
//   - PairMinWeightStore: per unordered event pair, the sum over users of the
//     smaller of their two weights
//   - EventSimilarityStore: the derived score
//     pairMin(A,B) / sqrt(sum(A)*sum(B)), kept read-optimized per event
//
// SimilarityUpdater applies one action at a time; nothing is ever recomputed
// from scratch. RecommendationEngine answers "similar to X" and "recommend
// for U" from the stores.
//
// This package has no dependencies on other internal packages. Callers wire
// transport, persistence and metrics around it.
package recommend
