// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import "sync"

// EventWeightSumStore keeps, per event, the running sum over all users of
// their current weight for that event. Maintained purely by deltas; at all
// times it equals what a from-scratch recomputation would produce.
//
// Different user partitions update the same event concurrently (popular
// events especially), so mutation is per-shard locked rather than behind a
// single store-wide lock.
type EventWeightSumStore struct {
	shards [shardCount]sumShard
}

type sumShard struct {
	mu   sync.RWMutex
	sums map[int64]float64
}

// NewEventWeightSumStore creates an empty store.
func NewEventWeightSumStore() *EventWeightSumStore {
	s := &EventWeightSumStore{}
	for i := range s.shards {
		s.shards[i].sums = make(map[int64]float64)
	}
	return s
}

// Add applies a delta to an event's weight sum and returns the new sum.
func (s *EventWeightSumStore) Add(eventID int64, delta float64) float64 {
	sh := &s.shards[shardFor(eventID)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sums[eventID] += delta
	return sh.sums[eventID]
}

// Sum returns the current weight sum for an event, 0 if unseen.
func (s *EventWeightSumStore) Sum(eventID int64) float64 {
	sh := &s.shards[shardFor(eventID)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.sums[eventID]
}

// PairMinWeightStore keeps, per unordered event pair, the running sum over
// users of min(weight(u,A), weight(u,B)). Entries are created lazily on the
// first positive delta. Same sharded-lock granularity as the sum store.
type PairMinWeightStore struct {
	shards [shardCount]pairShard
}

type pairShard struct {
	mu   sync.RWMutex
	sums map[PairKey]float64
}

// NewPairMinWeightStore creates an empty store.
func NewPairMinWeightStore() *PairMinWeightStore {
	s := &PairMinWeightStore{}
	for i := range s.shards {
		s.shards[i].sums = make(map[PairKey]float64)
	}
	return s
}

// Add applies a delta to a pair's min-weight sum and returns the new value.
func (s *PairMinWeightStore) Add(key PairKey, delta float64) float64 {
	sh := &s.shards[shardForPair(key)]
	sh.mu.Lock()
	defer sh.mu.Unlock()
	sh.sums[key] += delta
	return sh.sums[key]
}

// Value returns the current min-weight sum for a pair, 0 if absent.
func (s *PairMinWeightStore) Value(key PairKey) float64 {
	sh := &s.shards[shardForPair(key)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	return sh.sums[key]
}
