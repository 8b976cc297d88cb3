// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package algorithms implements the scoring strategies the engine blends:
// user-based and item-based kNN collaborative filtering, category-preference
// content scoring, popularity ranking, and the cold-start resolver.
//
// Every strategy is constructed against one immutable matrix snapshot and is
// safe for concurrent use. "Cannot score" is a value (ok == false), never an
// error: it is a normal branch the caller handles with fallback policy.
package algorithms

import "sort"

// Scored pairs an item with a strategy score.
type Scored struct {
	ItemID int     `json:"item_id"`
	Score  float64 `json:"score"`
}

// Strategy is the closed set of scoring variants the engine dispatches over.
// The variant is selected at construction time, not branched on per call.
type Strategy interface {
	// Name identifies the strategy in score breakdowns and logs.
	Name() string

	// Score predicts the user's affinity for one item. ok is false when the
	// strategy has no evidence to score from.
	Score(userID, itemID int) (float64, bool)

	// Recommend returns up to n candidate items the user has not rated,
	// ordered by score descending, ties broken by lower item id.
	Recommend(userID, n int) []Scored
}

// NeighborhoodScorer is the kNN subset of Strategy. Its estimates carry
// the number of neighbors that contributed, which Score discards.
type NeighborhoodScorer interface {
	Strategy

	// ScoreDetail is Score plus the count of qualifying neighbors whose
	// ratings entered the weighted average. The count is 0 on abstention.
	ScoreDetail(userID, itemID int) (value float64, neighbors int, ok bool)
}

// SortScored orders by score descending, ties by lower item id, so equal
// inputs always produce identical lists.
func SortScored(s []Scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Score != s[j].Score {
			return s[i].Score > s[j].Score
		}
		return s[i].ItemID < s[j].ItemID
	})
}

// TopN sorts and truncates a candidate list.
func TopN(s []Scored, n int) []Scored {
	SortScored(s)
	if n >= 0 && len(s) > n {
		s = s[:n]
	}
	return s
}
