// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package algorithms

import (
	"math"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

// Popularity ranks items globally by mean_rating * ln(count + 1). The log
// term rewards rating volume without letting a heavily rated mediocre item
// run away from a well rated niche one.
type Popularity struct {
	matrix *ratings.Matrix
	scores map[int]float64
	ranked []Scored
}

// NewPopularity precomputes the popularity table for one snapshot.
func NewPopularity(m *ratings.Matrix) *Popularity {
	p := &Popularity{
		matrix: m,
		scores: make(map[int]float64, m.ItemCount()),
	}
	for _, itemID := range m.ItemIDs() {
		col := m.Column(itemID)
		var sum float64
		for _, v := range col {
			sum += v
		}
		n := float64(len(col))
		score := (sum / n) * math.Log(n+1)
		p.scores[itemID] = score
		p.ranked = append(p.ranked, Scored{ItemID: itemID, Score: score})
	}
	SortScored(p.ranked)
	return p
}

// Name implements Strategy.
func (p *Popularity) Name() string { return "popularity" }

// Score implements Strategy. The score is user-independent; ok is false only
// for items nobody has rated.
func (p *Popularity) Score(_, itemID int) (float64, bool) {
	s, ok := p.scores[itemID]
	return s, ok
}

// ItemScore returns the popularity score of one item.
func (p *Popularity) ItemScore(itemID int) (float64, bool) {
	s, ok := p.scores[itemID]
	return s, ok
}

// Recommend implements Strategy. Items the user already rated are excluded;
// a user with no history gets the unfiltered global ranking.
func (p *Popularity) Recommend(userID, n int) []Scored {
	return p.TopExcluding(p.matrix.Row(userID), n)
}

// TopExcluding walks the precomputed ranking, skipping excluded item ids.
func (p *Popularity) TopExcluding(exclude map[int]float64, n int) []Scored {
	if n < 0 {
		n = len(p.ranked)
	}
	out := make([]Scored, 0, n)
	for _, s := range p.ranked {
		if _, skip := exclude[s.ItemID]; skip {
			continue
		}
		out = append(out, s)
		if len(out) == n {
			break
		}
	}
	return out
}

// TopAmong ranks a restricted id set (one category, say) by popularity,
// skipping excluded ids and unrated items.
func (p *Popularity) TopAmong(ids []int, exclude map[int]float64, n int) []Scored {
	out := make([]Scored, 0, len(ids))
	for _, id := range ids {
		if _, skip := exclude[id]; skip {
			continue
		}
		if s, ok := p.scores[id]; ok {
			out = append(out, Scored{ItemID: id, Score: s})
		}
	}
	return TopN(out, n)
}
