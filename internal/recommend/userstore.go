// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import "sync"

// HistoryEntry is one event in a user's interaction history with its
// current (maximum observed) weight.
type HistoryEntry struct {
	EventID int64
	Weight  float64
}

// UserEventWeightStore keeps, per user, the running maximum weight observed
// for each event plus a recency-ordered history of distinct events (newest
// first). Weights never decrease; history entries are never removed.
//
// The store is sharded by user id. All writes for a single user are expected
// to arrive from one goroutine (the stream is partitioned by user), so the
// per-shard lock only guards against concurrent readers and writers of
// different users sharing a shard.
type UserEventWeightStore struct {
	shards [shardCount]userShard
}

type userShard struct {
	mu    sync.RWMutex
	users map[int64]*userProfile
}

type userProfile struct {
	weights map[int64]float64
	history []int64 // newest first, distinct
}

// NewUserEventWeightStore creates an empty store.
func NewUserEventWeightStore() *UserEventWeightStore {
	s := &UserEventWeightStore{}
	for i := range s.shards {
		s.shards[i].users = make(map[int64]*userProfile)
	}
	return s
}

func (s *UserEventWeightStore) shard(userID int64) *userShard {
	return &s.shards[shardFor(userID)]
}

// Weight returns the current weight for (user, event), 0 if absent.
func (s *UserEventWeightStore) Weight(userID, eventID int64) float64 {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.users[userID]
	if !ok {
		return 0
	}
	return p.weights[eventID]
}

// Observe records a new weight for (user, event) and moves the event to the
// front of the user's history. Callers must only pass weights greater than
// the current one; the monotonicity check lives in SimilarityUpdater.
func (s *UserEventWeightStore) Observe(userID, eventID int64, weight float64) {
	sh := s.shard(userID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	p, ok := sh.users[userID]
	if !ok {
		p = &userProfile{weights: make(map[int64]float64)}
		sh.users[userID] = p
	}

	_, known := p.weights[eventID]
	p.weights[eventID] = weight

	if !known {
		p.history = append([]int64{eventID}, p.history...)
		return
	}
	if len(p.history) > 0 && p.history[0] == eventID {
		return
	}
	for i, id := range p.history {
		if id == eventID {
			copy(p.history[1:i+1], p.history[:i])
			p.history[0] = eventID
			return
		}
	}
}

// History returns a copy of the user's event history, newest first.
func (s *UserEventWeightStore) History(userID int64) []int64 {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.users[userID]
	if !ok {
		return nil
	}
	out := make([]int64, len(p.history))
	copy(out, p.history)
	return out
}

// HistoryWeights returns the user's history (newest first) with the current
// weight of each entry. The returned slice is a snapshot.
func (s *UserEventWeightStore) HistoryWeights(userID int64) []HistoryEntry {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.users[userID]
	if !ok {
		return nil
	}
	out := make([]HistoryEntry, len(p.history))
	for i, id := range p.history {
		out[i] = HistoryEntry{EventID: id, Weight: p.weights[id]}
	}
	return out
}

// HistorySet returns the user's interacted events as a set, for exclusion
// filters in queries.
func (s *UserEventWeightStore) HistorySet(userID int64) map[int64]struct{} {
	sh := s.shard(userID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	p, ok := sh.users[userID]
	if !ok {
		return nil
	}
	out := make(map[int64]struct{}, len(p.history))
	for _, id := range p.history {
		out[id] = struct{}{}
	}
	return out
}
