// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type testModel struct {
	updater *SimilarityUpdater
	users   *UserEventWeightStore
	sums    *EventWeightSumStore
	pairMin *PairMinWeightStore
	sims    *EventSimilarityStore
}

func newTestModel(t *testing.T) *testModel {
	t.Helper()

	weights, err := NewActionWeightTable(DefaultActionWeights())
	if err != nil {
		t.Fatalf("NewActionWeightTable() error = %v", err)
	}

	m := &testModel{
		users:   NewUserEventWeightStore(),
		sums:    NewEventWeightSumStore(),
		pairMin: NewPairMinWeightStore(),
		sims:    NewEventSimilarityStore(),
	}
	m.updater = NewSimilarityUpdater(weights, m.users, m.sums, m.pairMin, m.sims, zerolog.Nop())
	return m
}

func (m *testModel) apply(t *testing.T, userID, eventID int64, kind ActionKind) []SimilarityUpdate {
	t.Helper()
	updates, err := m.updater.Apply(UserAction{
		UserID:    userID,
		EventID:   eventID,
		Kind:      kind,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Apply(%d, %d, %s) error = %v", userID, eventID, kind, err)
	}
	return updates
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestApply_SpecExample(t *testing.T) {
	m := newTestModel(t)

	// U1 views event 1 (weight 0.4), then likes event 2 (weight 1.0).
	if updates := m.apply(t, 1, 1, ActionView); len(updates) != 0 {
		t.Fatalf("first action emitted %d updates, want 0", len(updates))
	}
	updates := m.apply(t, 1, 2, ActionLike)

	if got := m.sums.Sum(1); !approxEqual(got, 0.4) {
		t.Errorf("Sum(1) = %v, want 0.4", got)
	}
	if got := m.sums.Sum(2); !approxEqual(got, 1.0) {
		t.Errorf("Sum(2) = %v, want 1.0", got)
	}
	if got := m.pairMin.Value(NewPairKey(1, 2)); !approxEqual(got, 0.4) {
		t.Errorf("PairMinWeight(1,2) = %v, want 0.4", got)
	}

	// Similarity(1,2) = 0.4 / sqrt(0.4 * 1.0)
	want := 0.4 / math.Sqrt(0.4)
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	if updates[0].EventA != 1 || updates[0].EventB != 2 {
		t.Errorf("update pair = (%d, %d), want (1, 2)", updates[0].EventA, updates[0].EventB)
	}
	if !approxEqual(updates[0].Score, want) {
		t.Errorf("update score = %v, want %v", updates[0].Score, want)
	}

	score, ok := m.sims.Get(1, 2)
	if !ok || !approxEqual(score, want) {
		t.Errorf("Get(1, 2) = %v, %v, want %v, true", score, ok, want)
	}
}

func TestApply_PopularityDilutesSimilarity(t *testing.T) {
	m := newTestModel(t)

	m.apply(t, 1, 1, ActionView) // U1 views A
	m.apply(t, 1, 2, ActionLike) // U1 likes B

	// U2 likes A and never touches B: A's weight sum grows, the pair
	// min-sum does not (U2 has no weight for B), so the derived
	// similarity drops from ~0.632 to ~0.338 on the next recomputation.
	if updates := m.apply(t, 2, 1, ActionLike); len(updates) != 0 {
		t.Fatalf("U2's first action emitted %d updates, want 0", len(updates))
	}

	if got := m.sums.Sum(1); !approxEqual(got, 1.4) {
		t.Errorf("Sum(1) = %v, want 1.4", got)
	}
	if got := m.pairMin.Value(NewPairKey(1, 2)); !approxEqual(got, 0.4) {
		t.Errorf("PairMinWeight(1,2) = %v, want 0.4", got)
	}

	want := 0.4 / math.Sqrt(1.4*1.0)
	if math.Abs(want-0.338) > 0.001 {
		t.Fatalf("test arithmetic wrong: expected similarity %v ~ 0.338", want)
	}

	// An action touching the pair refreshes the stored score: U1 upgrades
	// the view on A to a register (0.4 -> 0.8).
	updates := m.apply(t, 1, 1, ActionRegister)
	if len(updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(updates))
	}
	// Sum(1) = 1.8, PairMin = min(0.8, 1.0) = 0.8.
	wantRefreshed := 0.8 / math.Sqrt(1.8*1.0)
	if !approxEqual(updates[0].Score, wantRefreshed) {
		t.Errorf("refreshed score = %v, want %v", updates[0].Score, wantRefreshed)
	}
}

func TestApply_Idempotency(t *testing.T) {
	m := newTestModel(t)

	m.apply(t, 1, 1, ActionRegister)
	m.apply(t, 1, 2, ActionLike)

	sumBefore := m.sums.Sum(1)
	pairBefore := m.pairMin.Value(NewPairKey(1, 2))
	scoreBefore, _ := m.sims.Get(1, 2)

	tests := []struct {
		name string
		kind ActionKind
	}{
		{name: "exact redelivery", kind: ActionRegister},
		{name: "weaker action replay", kind: ActionView},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			updates := m.apply(t, 1, 1, tt.kind)
			if len(updates) != 0 {
				t.Errorf("got %d updates, want 0", len(updates))
			}
			if got := m.sums.Sum(1); got != sumBefore {
				t.Errorf("Sum(1) changed: %v -> %v", sumBefore, got)
			}
			if got := m.pairMin.Value(NewPairKey(1, 2)); got != pairBefore {
				t.Errorf("PairMinWeight(1,2) changed: %v -> %v", pairBefore, got)
			}
			if got, _ := m.sims.Get(1, 2); got != scoreBefore {
				t.Errorf("similarity changed: %v -> %v", scoreBefore, got)
			}
		})
	}
}

func TestApply_WeightMonotonicity(t *testing.T) {
	m := newTestModel(t)

	sequence := []struct {
		kind ActionKind
		want float64
	}{
		{ActionView, 0.4},
		{ActionRegister, 0.8},
		{ActionView, 0.8}, // weaker replay, weight must not decrease
		{ActionLike, 1.0},
		{ActionRegister, 1.0},
	}
	for _, step := range sequence {
		m.apply(t, 7, 42, step.kind)
		if got := m.users.Weight(7, 42); !approxEqual(got, step.want) {
			t.Errorf("after %s: Weight(7, 42) = %v, want %v", step.kind, got, step.want)
		}
	}

	if got := m.sums.Sum(42); !approxEqual(got, 1.0) {
		t.Errorf("Sum(42) = %v, want 1.0 (deltas must telescope to the max)", got)
	}
}

func TestApply_UnknownKindFailsBeforeMutation(t *testing.T) {
	m := newTestModel(t)

	_, err := m.updater.Apply(UserAction{UserID: 1, EventID: 1, Kind: "share", Timestamp: time.Now()})
	var unknown *UnknownActionKindError
	if !errors.As(err, &unknown) {
		t.Fatalf("Apply() error = %v, want UnknownActionKindError", err)
	}
	if unknown.Kind != "share" {
		t.Errorf("error kind = %q, want %q", unknown.Kind, "share")
	}
	if got := m.sums.Sum(1); got != 0 {
		t.Errorf("Sum(1) = %v after rejected action, want 0", got)
	}
	if got := m.users.Weight(1, 1); got != 0 {
		t.Errorf("Weight(1, 1) = %v after rejected action, want 0", got)
	}
}

func TestApply_InvalidAction(t *testing.T) {
	m := newTestModel(t)

	tests := []struct {
		name   string
		action UserAction
	}{
		{name: "zero user id", action: UserAction{UserID: 0, EventID: 1, Kind: ActionView}},
		{name: "negative event id", action: UserAction{UserID: 1, EventID: -3, Kind: ActionView}},
		{name: "empty kind", action: UserAction{UserID: 1, EventID: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := m.updater.Apply(tt.action)
			if !errors.Is(err, ErrInvalidAction) {
				t.Errorf("Apply() error = %v, want ErrInvalidAction", err)
			}
		})
	}
}

// replayStream is a fixed action sequence exercising pair creation, weight
// upgrades and cross-user interleaving.
var replayStream = []UserAction{
	{UserID: 1, EventID: 10, Kind: ActionView},
	{UserID: 2, EventID: 10, Kind: ActionLike},
	{UserID: 1, EventID: 20, Kind: ActionLike},
	{UserID: 2, EventID: 30, Kind: ActionRegister},
	{UserID: 1, EventID: 10, Kind: ActionRegister},
	{UserID: 3, EventID: 20, Kind: ActionView},
	{UserID: 3, EventID: 30, Kind: ActionLike},
	{UserID: 2, EventID: 20, Kind: ActionView},
	{UserID: 1, EventID: 30, Kind: ActionView},
	{UserID: 3, EventID: 10, Kind: ActionRegister},
}

func runStream(t *testing.T, m *testModel, stream []UserAction) {
	t.Helper()
	ts := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, a := range stream {
		a.Timestamp = ts.Add(time.Duration(i) * time.Second)
		if _, err := m.updater.Apply(a); err != nil {
			t.Fatalf("Apply(%+v) error = %v", a, err)
		}
	}
}

func TestApply_ReplayConvergence(t *testing.T) {
	once := newTestModel(t)
	runStream(t, once, replayStream)

	twice := newTestModel(t)
	runStream(t, twice, replayStream)
	runStream(t, twice, replayStream) // full duplicate stream

	events := []int64{10, 20, 30}
	for _, e := range events {
		if a, b := once.sums.Sum(e), twice.sums.Sum(e); a != b {
			t.Errorf("Sum(%d): once = %v, twice = %v", e, a, b)
		}
	}
	for i, a := range events {
		for _, b := range events[i+1:] {
			key := NewPairKey(a, b)
			if x, y := once.pairMin.Value(key), twice.pairMin.Value(key); x != y {
				t.Errorf("PairMinWeight(%d,%d): once = %v, twice = %v", a, b, x, y)
			}
			sx, _ := once.sims.Get(a, b)
			sy, _ := twice.sims.Get(a, b)
			if sx != sy {
				t.Errorf("Similarity(%d,%d): once = %v, twice = %v", a, b, sx, sy)
			}
		}
	}
	if x, y := once.sims.PairCount(), twice.sims.PairCount(); x != y {
		t.Errorf("PairCount: once = %d, twice = %d", x, y)
	}
}

func TestApply_SymmetryAndBounds(t *testing.T) {
	m := newTestModel(t)
	runStream(t, m, replayStream)

	events := []int64{10, 20, 30}
	for i, a := range events {
		for _, b := range events[i+1:] {
			ab, okAB := m.sims.Get(a, b)
			ba, okBA := m.sims.Get(b, a)
			if okAB != okBA || ab != ba {
				t.Errorf("Similarity(%d,%d) = %v,%v but Similarity(%d,%d) = %v,%v",
					a, b, ab, okAB, b, a, ba, okBA)
			}
			if okAB && (ab < 0 || ab > 1) {
				t.Errorf("Similarity(%d,%d) = %v, want within [0, 1]", a, b, ab)
			}
		}
	}

	// The incremental sums must match a from-scratch recomputation.
	for _, e := range events {
		var want float64
		for _, u := range []int64{1, 2, 3} {
			want += m.users.Weight(u, e)
		}
		if got := m.sums.Sum(e); !approxEqual(got, want) {
			t.Errorf("Sum(%d) = %v, recomputation gives %v", e, got, want)
		}
	}
	for i, a := range events {
		for _, b := range events[i+1:] {
			var want float64
			for _, u := range []int64{1, 2, 3} {
				wa, wb := m.users.Weight(u, a), m.users.Weight(u, b)
				if wa > 0 && wb > 0 {
					want += math.Min(wa, wb)
				}
			}
			if got := m.pairMin.Value(NewPairKey(a, b)); !approxEqual(got, want) {
				t.Errorf("PairMinWeight(%d,%d) = %v, recomputation gives %v", a, b, got, want)
			}
		}
	}
}
