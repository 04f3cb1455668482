// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

// PairKey is the canonical key for an unordered event pair: Lo < Hi always.
// Storing pairs once under the canonical key makes similarity symmetric by
// construction.
type PairKey struct {
	Lo int64
	Hi int64
}

// NewPairKey canonicalizes an event pair. The two events must differ.
func NewPairKey(a, b int64) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// shardCount is the number of lock shards per store. Power of two so the
// index reduces to a mask.
const shardCount = 64

// shardFor maps an id to a shard index using a Fibonacci multiplier to
// spread sequential ids (event ids are typically allocated sequentially).
func shardFor(id int64) int {
	return int((uint64(id) * 0x9E3779B97F4A7C15 >> 32) & (shardCount - 1))
}

// shardForPair maps a pair key to a shard index.
func shardForPair(key PairKey) int {
	h := uint64(key.Lo)*0x9E3779B97F4A7C15 ^ uint64(key.Hi)*0xC2B2AE3D27D4EB4F
	return int((h >> 32) & (shardCount - 1))
}
