// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

// Package storage persists similarity scores in BadgerDB so the in-memory
// model can be warm-started after a restart without replaying the whole
// action stream.
package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/eventine-io/eventine/internal/recommend"
)

const pairKeyPrefix = "sim:"

// pairValue is the stored JSON payload for one pair.
type pairValue struct {
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// SimilarityStore is a BadgerDB-backed store of pair similarity scores.
// Writes are last-write-wins per pair, which matches the update stream's
// semantics: each update carries the full recomputed score.
type SimilarityStore struct {
	db *badger.DB
}

// Config holds storage settings.
type Config struct {
	// Path is the BadgerDB directory. Empty selects in-memory mode,
	// used by tests and ephemeral deployments.
	Path string
}

// Open opens or creates the store at cfg.Path.
func Open(cfg Config) (*SimilarityStore, error) {
	opts := badger.DefaultOptions(cfg.Path)
	opts.Logger = nil // Badger's own logger is too chatty for production
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", cfg.Path, err)
	}
	return &SimilarityStore{db: db}, nil
}

// NewSimilarityStore wraps an already opened BadgerDB handle.
func NewSimilarityStore(db *badger.DB) *SimilarityStore {
	return &SimilarityStore{db: db}
}

func pairKey(a, b int64) []byte {
	key := recommend.NewPairKey(a, b)
	return []byte(fmt.Sprintf("%s%016x:%016x", pairKeyPrefix, uint64(key.Lo), uint64(key.Hi)))
}

// Put stores the update's score under its canonical pair key.
func (s *SimilarityStore) Put(update recommend.SimilarityUpdate) error {
	data, err := json.Marshal(pairValue{Score: update.Score, Timestamp: update.Timestamp})
	if err != nil {
		return fmt.Errorf("marshal pair value: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(pairKey(update.EventA, update.EventB), data); err != nil {
			return fmt.Errorf("set pair: %w", err)
		}
		return nil
	})
}

// Get returns the stored score for a pair, in either argument order.
func (s *SimilarityStore) Get(a, b int64) (float64, bool, error) {
	var value pairValue
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(pairKey(a, b))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &value)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("get pair: %w", err)
	}
	return value.Score, true, nil
}

// Load iterates all stored pairs, invoking fn for each. Used at startup to
// warm the in-memory similarity index.
func (s *SimilarityStore) Load(fn func(update recommend.SimilarityUpdate) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pairKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()

			var lo, hi uint64
			if _, err := fmt.Sscanf(string(item.Key()), pairKeyPrefix+"%016x:%016x", &lo, &hi); err != nil {
				return fmt.Errorf("parse pair key %q: %w", item.Key(), err)
			}

			var value pairValue
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &value)
			}); err != nil {
				return fmt.Errorf("read pair value: %w", err)
			}

			if err := fn(recommend.SimilarityUpdate{
				EventA:    int64(lo),
				EventB:    int64(hi),
				Score:     value.Score,
				Timestamp: value.Timestamp,
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// Count returns the number of stored pairs.
func (s *SimilarityStore) Count() (int64, error) {
	var n int64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(pairKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Close closes the underlying database.
func (s *SimilarityStore) Close() error {
	return s.db.Close()
}
