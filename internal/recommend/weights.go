// Eventine - Event Platform Recommendation Engine
// Copyright 2026 Eventine Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventine-io/eventine

package recommend

import (
	"fmt"
	"sort"
)

// ActionWeightTable maps action kinds to their importance weight.
// Read-only after construction, safe for concurrent use.
type ActionWeightTable struct {
	weights map[ActionKind]float64
}

// DefaultActionWeights returns the stock weight configuration.
func DefaultActionWeights() map[ActionKind]float64 {
	return map[ActionKind]float64{
		ActionView:     0.4,
		ActionRegister: 0.8,
		ActionLike:     1.0,
	}
}

// NewActionWeightTable builds a weight table from configuration.
// Every weight must be positive; an empty table is rejected.
func NewActionWeightTable(weights map[ActionKind]float64) (*ActionWeightTable, error) {
	if len(weights) == 0 {
		return nil, fmt.Errorf("%w: no action weights configured", ErrInvalidWeight)
	}
	table := make(map[ActionKind]float64, len(weights))
	for kind, w := range weights {
		if w <= 0 {
			return nil, fmt.Errorf("%w: %s=%v", ErrInvalidWeight, kind, w)
		}
		table[kind] = w
	}
	return &ActionWeightTable{weights: table}, nil
}

// WeightOf resolves the weight for an action kind.
func (t *ActionWeightTable) WeightOf(kind ActionKind) (float64, error) {
	w, ok := t.weights[kind]
	if !ok {
		return 0, &UnknownActionKindError{Kind: kind}
	}
	return w, nil
}

// Kinds returns the configured kinds in lexical order.
func (t *ActionWeightTable) Kinds() []ActionKind {
	kinds := make([]ActionKind, 0, len(t.weights))
	for k := range t.weights {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
