// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"math"

	"github.com/rs/zerolog"
)

// SimilarityUpdater applies user actions to the similarity model.
//
// Callers must serialize Apply for a single user (the action stream is
// partitioned by user id); calls for different users run concurrently and
// are safe against each other through the stores' per-shard locks.
type SimilarityUpdater struct {
	weights *ActionWeightTable
	users   *UserEventWeightStore
	sums    *EventWeightSumStore
	pairMin *PairMinWeightStore
	sims    *EventSimilarityStore
	logger  zerolog.Logger
}

// NewSimilarityUpdater wires the updater to its stores.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewSimilarityUpdater(
	weights *ActionWeightTable,
	users *UserEventWeightStore,
	sums *EventWeightSumStore,
	pairMin *PairMinWeightStore,
	sims *EventSimilarityStore,
	logger zerolog.Logger,
) *SimilarityUpdater {
	return &SimilarityUpdater{
		weights: weights,
		users:   users,
		sums:    sums,
		pairMin: pairMin,
		sims:    sims,
		logger:  logger.With().Str("component", "updater").Logger(),
	}
}

// Apply processes one action and returns the similarity updates it caused.
//
// If the action's weight does not exceed the current (user, event) weight
// the call is a no-op: redelivered or weaker actions change nothing and emit
// nothing, which makes reprocessing safe. Malformed input (bad ids, unknown
// kind) fails before any store is touched.
func (u *SimilarityUpdater) Apply(action UserAction) ([]SimilarityUpdate, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}

	newWeight, err := u.weights.WeightOf(action.Kind)
	if err != nil {
		return nil, err
	}

	oldWeight := u.users.Weight(action.UserID, action.EventID)
	if newWeight <= oldWeight {
		return nil, nil
	}

	// History snapshot before the mutation; it may still contain the
	// acted-on event (when oldWeight > 0), skipped in the pair loop.
	history := u.users.HistoryWeights(action.UserID)

	u.users.Observe(action.UserID, action.EventID, newWeight)
	sumA := u.sums.Add(action.EventID, newWeight-oldWeight)

	updates := make([]SimilarityUpdate, 0, len(history))
	for _, h := range history {
		if h.EventID == action.EventID {
			continue
		}

		// The user's contribution to the pair min-sum moves from
		// min(old, wB) to min(new, wB); zero when wB <= oldWeight.
		minDelta := math.Min(newWeight, h.Weight) - math.Min(oldWeight, h.Weight)

		pair := NewPairKey(action.EventID, h.EventID)
		var minSum float64
		if minDelta != 0 {
			minSum = u.pairMin.Add(pair, minDelta)
		} else {
			minSum = u.pairMin.Value(pair)
		}

		// The weight-sum change alone moves similarity for every pair in
		// the history, so the score is refreshed even when minDelta is 0.
		sumB := u.sums.Sum(h.EventID)
		if sumA <= 0 || sumB <= 0 {
			continue
		}

		score := minSum / math.Sqrt(sumA*sumB)
		if score > 1 {
			// Guard against float drift; the min-sum construction bounds
			// the true value by 1.
			score = 1
		}
		u.sims.Upsert(action.EventID, h.EventID, score)

		updates = append(updates, SimilarityUpdate{
			EventA:    pair.Lo,
			EventB:    pair.Hi,
			Score:     score,
			Timestamp: action.Timestamp,
		})
	}

	u.logger.Debug().
		Int64("user_id", action.UserID).
		Int64("event_id", action.EventID).
		Str("kind", string(action.Kind)).
		Int("updates", len(updates)).
		Msg("action applied")

	return updates, nil
}

// PairCount exposes the similarity store's pair count for observability.
func (u *SimilarityUpdater) PairCount() int64 {
	return u.sims.PairCount()
}
