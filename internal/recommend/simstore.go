// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"sort"
	"sync"
	"sync/atomic"
)

// EventSimilarityStore holds the latest similarity score per unordered event
// pair, indexed per event for fast neighbor queries. Scores are stored under
// both events so TopSimilar never needs a scan; a pair exists once logically
// and is counted once.
//
// Reads run concurrently with updates and may observe a score that is one
// update stale. That is acceptable: queries are eventually consistent.
type EventSimilarityStore struct {
	shards    [shardCount]simShard
	pairCount atomic.Int64
}

type simShard struct {
	mu        sync.RWMutex
	neighbors map[int64]map[int64]float64
}

// NewEventSimilarityStore creates an empty store.
func NewEventSimilarityStore() *EventSimilarityStore {
	s := &EventSimilarityStore{}
	for i := range s.shards {
		s.shards[i].neighbors = make(map[int64]map[int64]float64)
	}
	return s
}

// Upsert records the latest similarity score for a pair. Safe to call from
// any partition; shards are locked in index order to avoid lock inversion.
func (s *EventSimilarityStore) Upsert(a, b int64, score float64) {
	if a == b {
		return
	}
	i, j := shardFor(a), shardFor(b)

	if i == j {
		sh := &s.shards[i]
		sh.mu.Lock()
		inserted := sh.set(a, b, score)
		sh.set(b, a, score)
		sh.mu.Unlock()
		if inserted {
			s.pairCount.Add(1)
		}
		return
	}

	lo, hi := i, j
	if lo > hi {
		lo, hi = hi, lo
	}
	s.shards[lo].mu.Lock()
	s.shards[hi].mu.Lock()
	inserted := s.shards[i].set(a, b, score)
	s.shards[j].set(b, a, score)
	s.shards[hi].mu.Unlock()
	s.shards[lo].mu.Unlock()
	if inserted {
		s.pairCount.Add(1)
	}
}

// set stores score under from->to and reports whether the edge was new.
// Caller holds the shard lock.
func (sh *simShard) set(from, to int64, score float64) bool {
	m, ok := sh.neighbors[from]
	if !ok {
		m = make(map[int64]float64)
		sh.neighbors[from] = m
	}
	_, existed := m[to]
	m[to] = score
	return !existed
}

// Get returns the similarity score for a pair and whether one is recorded.
// Symmetric: Get(a, b) == Get(b, a).
func (s *EventSimilarityStore) Get(a, b int64) (float64, bool) {
	sh := &s.shards[shardFor(a)]
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	m, ok := sh.neighbors[a]
	if !ok {
		return 0, false
	}
	score, ok := m[b]
	return score, ok
}

// TopSimilar returns up to k neighbors of an event ordered by score
// descending, ties broken by ascending event id. Events in the excluding set
// are filtered out. An event with no similarity data yields an empty slice,
// never an error: cold start is not a failure.
func (s *EventSimilarityStore) TopSimilar(eventID int64, k int, excluding map[int64]struct{}) []ScoredEvent {
	if k <= 0 {
		return []ScoredEvent{}
	}

	sh := &s.shards[shardFor(eventID)]
	sh.mu.RLock()
	m := sh.neighbors[eventID]
	candidates := make([]ScoredEvent, 0, len(m))
	for id, score := range m {
		if _, skip := excluding[id]; skip {
			continue
		}
		candidates = append(candidates, ScoredEvent{EventID: id, Score: score})
	}
	sh.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].EventID < candidates[j].EventID
	})

	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates
}

// PairCount returns the number of distinct pairs with a recorded score.
func (s *EventSimilarityStore) PairCount() int64 {
	return s.pairCount.Load()
}
