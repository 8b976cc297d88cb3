// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package algorithms

import (
	"math"

	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend/similarity"
)

// DefaultK is the default neighborhood size for both kNN variants.
const DefaultK = 20

// overFetchFactor widens the neighborhood search so neighbors who never
// rated the target can be skipped without starving the estimate.
const overFetchFactor = 2

// UserKNN predicts ratings from the k most similar users who rated the
// target item: score = sum(sim * rating) / sum(|sim|), a similarity-weighted
// average, not a simple mean.
type UserKNN struct {
	matrix *ratings.Matrix
	sims   *similarity.Engine
	k      int
}

// NewUserKNN creates a user-based collaborative filter over one snapshot.
func NewUserKNN(m *ratings.Matrix, sims *similarity.Engine, k int) *UserKNN {
	if k <= 0 {
		k = DefaultK
	}
	return &UserKNN{matrix: m, sims: sims, k: k}
}

// Name implements Strategy.
func (a *UserKNN) Name() string { return "user_knn" }

// Score implements Strategy.
func (a *UserKNN) Score(userID, itemID int) (float64, bool) {
	v, _, ok := a.ScoreDetail(userID, itemID)
	return v, ok
}

// ScoreDetail implements NeighborhoodScorer.
//
// It over-fetches 2k neighbors, then walks the similarity-sorted list
// accumulating only neighbors who actually rated the item, stopping once k
// qualify. A zero similarity sum means the neighborhood is empty and the
// prediction abstains.
func (a *UserKNN) ScoreDetail(userID, itemID int) (float64, int, bool) {
	raters := a.matrix.Column(itemID)
	if len(raters) == 0 {
		return 0, 0, false
	}

	neighbors := a.sims.TopK(userID, a.matrix.UserIDs(), overFetchFactor*a.k)

	var num, den float64
	qualified := 0
	for _, nb := range neighbors {
		r, ok := raters[nb.ID]
		if !ok {
			continue
		}
		num += nb.Score * r
		den += math.Abs(nb.Score)
		qualified++
		if qualified == a.k {
			break
		}
	}
	if den == 0 {
		return 0, 0, false
	}
	return num / den, qualified, true
}

// Recommend implements Strategy.
func (a *UserKNN) Recommend(userID, n int) []Scored {
	return recommendUnrated(a, a.matrix, userID, n)
}

// ItemKNN is the dual formulation: it weights the user's own ratings by
// item-item similarity between the rated items and the target.
type ItemKNN struct {
	matrix *ratings.Matrix
	sims   *similarity.Engine
	k      int
}

// NewItemKNN creates an item-based collaborative filter over one snapshot.
// sims must be built over item columns, not user rows.
func NewItemKNN(m *ratings.Matrix, sims *similarity.Engine, k int) *ItemKNN {
	if k <= 0 {
		k = DefaultK
	}
	return &ItemKNN{matrix: m, sims: sims, k: k}
}

// Name implements Strategy.
func (a *ItemKNN) Name() string { return "item_knn" }

// Score implements Strategy.
func (a *ItemKNN) Score(userID, itemID int) (float64, bool) {
	v, _, ok := a.ScoreDetail(userID, itemID)
	return v, ok
}

// ScoreDetail implements NeighborhoodScorer, weighting by item-item
// similarity between the user's rated items and the target.
func (a *ItemKNN) ScoreDetail(userID, itemID int) (float64, int, bool) {
	rated := a.matrix.Row(userID)
	if len(rated) == 0 {
		return 0, 0, false
	}

	neighbors := a.sims.TopK(itemID, a.matrix.ItemIDs(), overFetchFactor*a.k)

	var num, den float64
	qualified := 0
	for _, nb := range neighbors {
		r, ok := rated[nb.ID]
		if !ok {
			continue
		}
		num += nb.Score * r
		den += math.Abs(nb.Score)
		qualified++
		if qualified == a.k {
			break
		}
	}
	if den == 0 {
		return 0, 0, false
	}
	return num / den, qualified, true
}

// Recommend implements Strategy.
func (a *ItemKNN) Recommend(userID, n int) []Scored {
	return recommendUnrated(a, a.matrix, userID, n)
}

// recommendUnrated scores every item the user has not rated and returns the
// top n. Shared by both kNN variants and the content scorer.
func recommendUnrated(s Strategy, m *ratings.Matrix, userID, n int) []Scored {
	rated := m.Row(userID)
	out := make([]Scored, 0, m.ItemCount())
	for _, itemID := range m.ItemIDs() {
		if _, seen := rated[itemID]; seen {
			continue
		}
		if score, ok := s.Score(userID, itemID); ok {
			out = append(out, Scored{ItemID: itemID, Score: score})
		}
	}
	return TopN(out, n)
}
