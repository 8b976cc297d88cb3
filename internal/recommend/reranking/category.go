// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package reranking post-processes ranked candidate lists. Rerankers do not
// invent candidates; they only reweigh and reorder what a strategy already
// produced.
package reranking

import (
	"sort"

	"github.com/ratemesh/ratemesh/internal/recommend/algorithms"
)

// Default penalty shape: each repeat of a category discounts the score by
// another 10%, floored at 0.7 so a legitimately dominant category is never
// crushed.
const (
	DefaultPenaltyStep  = 0.1
	DefaultPenaltyFloor = 0.7
)

// CategoryLookup resolves an item id to its category.
type CategoryLookup func(itemID int) (string, bool)

// CategoryPenalty discounts items from already-seen categories. Candidates
// are consumed in score-descending order with a running per-category count;
// the i-th occurrence keeps max(floor, 1 - step*(i-1)) of its score, then
// the list is re-sorted.
type CategoryPenalty struct {
	categoryOf CategoryLookup
	step       float64
	floor      float64
}

// NewCategoryPenalty creates a diversity reranker. Non-positive step or
// floor fall back to the defaults.
func NewCategoryPenalty(categoryOf CategoryLookup, step, floor float64) *CategoryPenalty {
	if step <= 0 {
		step = DefaultPenaltyStep
	}
	if floor <= 0 {
		floor = DefaultPenaltyFloor
	}
	return &CategoryPenalty{categoryOf: categoryOf, step: step, floor: floor}
}

// Name identifies the reranker in logs and score breakdowns.
func (p *CategoryPenalty) Name() string { return "category_penalty" }

// Apply returns a new penalized, re-sorted list. The input is not modified.
// Items with no known category pass through unpenalized.
func (p *CategoryPenalty) Apply(items []algorithms.Scored) []algorithms.Scored {
	if len(items) <= 1 {
		out := make([]algorithms.Scored, len(items))
		copy(out, items)
		return out
	}

	ordered := make([]algorithms.Scored, len(items))
	copy(ordered, items)
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ItemID < ordered[j].ItemID
	})

	counts := make(map[string]int)
	for i, s := range ordered {
		cat, ok := p.categoryOf(s.ItemID)
		if !ok {
			continue
		}
		counts[cat]++
		factor := 1 - p.step*float64(counts[cat]-1)
		if factor < p.floor {
			factor = p.floor
		}
		ordered[i].Score = s.Score * factor
	}

	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].Score != ordered[j].Score {
			return ordered[i].Score > ordered[j].Score
		}
		return ordered[i].ItemID < ordered[j].ItemID
	})
	return ordered
}
