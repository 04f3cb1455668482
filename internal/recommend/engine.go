// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/eventine-io/eventine/internal/metrics"
)

// EngineConfig holds recommendation query parameters.
type EngineConfig struct {
	// MaxRecentEvents is how many of the user's most recent events seed
	// candidate generation.
	MaxRecentEvents int

	// MaxNeighbours caps both the candidates fetched per seed and the
	// history neighbors used to score one candidate.
	MaxNeighbours int
}

// DefaultEngineConfig returns the stock query parameters.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		MaxRecentEvents: 10,
		MaxNeighbours:   10,
	}
}

// Validate checks the configuration.
func (c EngineConfig) Validate() error {
	if c.MaxRecentEvents <= 0 {
		return fmt.Errorf("max_recent_events must be positive, got %d", c.MaxRecentEvents)
	}
	if c.MaxNeighbours <= 0 {
		return fmt.Errorf("max_neighbours must be positive, got %d", c.MaxNeighbours)
	}
	return nil
}

// RecommendationEngine answers the two read queries over the model stores.
// Queries never mutate and run concurrently with stream updates; they read
// an eventually consistent snapshot.
type RecommendationEngine struct {
	users  *UserEventWeightStore
	sims   *EventSimilarityStore
	config EngineConfig
	logger zerolog.Logger
}

// NewRecommendationEngine creates an engine over the given stores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRecommendationEngine(
	users *UserEventWeightStore,
	sims *EventSimilarityStore,
	cfg EngineConfig,
	logger zerolog.Logger,
) (*RecommendationEngine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}
	return &RecommendationEngine{
		users:  users,
		sims:   sims,
		config: cfg,
		logger: logger.With().Str("component", "engine").Logger(),
	}, nil
}

// SimilarEvents returns up to maxResults events similar to eventID, excluding
// everything the requesting user has already interacted with. An event with
// no similarity data yields an empty list.
func (e *RecommendationEngine) SimilarEvents(ctx context.Context, eventID, userID int64, maxResults int) ([]ScoredEvent, error) {
	defer metrics.ObserveQuery("similar_events", time.Now())

	if maxResults <= 0 {
		return nil, ErrInvalidMaxResults
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("similar events query: %w", err)
	}

	exclude := e.users.HistorySet(userID)
	return e.sims.TopSimilar(eventID, maxResults, exclude), nil
}

// RecommendationsForUser returns up to maxResults personalized
// recommendations ranked by predicted score. A user with no history receives
// an empty list.
//
// Candidates are the union of the top neighbors of the user's most recent
// events (after excluding the history itself). Each candidate is scored by
// the similarity-weighted mean of the user's weights over its best-matching
// history neighbors. The result is fully deterministic for a given store
// state: all ties break by ascending event id.
func (e *RecommendationEngine) RecommendationsForUser(ctx context.Context, userID int64, maxResults int) ([]ScoredEvent, error) {
	defer metrics.ObserveQuery("recommendations", time.Now())

	if maxResults <= 0 {
		return nil, ErrInvalidMaxResults
	}

	history := e.users.HistoryWeights(userID)
	if len(history) == 0 {
		return []ScoredEvent{}, nil
	}
	exclude := make(map[int64]struct{}, len(history))
	for _, h := range history {
		exclude[h.EventID] = struct{}{}
	}

	recent := history
	if len(recent) > e.config.MaxRecentEvents {
		recent = recent[:e.config.MaxRecentEvents]
	}

	candidates := make(map[int64]struct{})
	for _, seed := range recent {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recommendation query: %w", err)
		}
		for _, n := range e.sims.TopSimilar(seed.EventID, e.config.MaxNeighbours, exclude) {
			candidates[n.EventID] = struct{}{}
		}
	}

	scored := make([]ScoredEvent, 0, len(candidates))
	for candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("recommendation query: %w", err)
		}
		if score, ok := e.predictScore(candidate, history); ok {
			scored = append(scored, ScoredEvent{EventID: candidate, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].EventID < scored[j].EventID
	})
	if len(scored) > maxResults {
		scored = scored[:maxResults]
	}

	e.logger.Debug().
		Int64("user_id", userID).
		Int("candidates", len(candidates)).
		Int("results", len(scored)).
		Msg("recommendations computed")

	return scored, nil
}

// predictScore computes the similarity-weighted mean of the user's history
// weights over the candidate's top history neighbors. Returns false when no
// neighbor carries signal.
func (e *RecommendationEngine) predictScore(candidate int64, history []HistoryEntry) (float64, bool) {
	type neighbor struct {
		entry HistoryEntry
		sim   float64
	}

	neighbors := make([]neighbor, 0, len(history))
	for _, h := range history {
		sim, ok := e.sims.Get(candidate, h.EventID)
		if !ok || sim <= 0 {
			continue
		}
		neighbors = append(neighbors, neighbor{entry: h, sim: sim})
	}
	if len(neighbors) == 0 {
		return 0, false
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].entry.EventID < neighbors[j].entry.EventID
	})
	if len(neighbors) > e.config.MaxNeighbours {
		neighbors = neighbors[:e.config.MaxNeighbours]
	}

	var simSum, weighted float64
	for _, n := range neighbors {
		simSum += n.sim
		weighted += n.sim * n.entry.Weight
	}
	if simSum == 0 {
		return 0, false
	}
	return weighted / simSum, true
}
