// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package algorithms

import "github.com/ratemesh/ratemesh/internal/ratings"

// UserState classifies a user's rating history at request time. The state is
// never persisted; it is recomputed from the current snapshot on every call.
type UserState int

const (
	// UserCold has no ratings at all: no personalization is possible.
	UserCold UserState = iota
	// UserWarming has some history, but too little for reliable
	// collaborative filtering.
	UserWarming
	// UserWarm is fully eligible for the kNN pipeline.
	UserWarm
)

func (s UserState) String() string {
	switch s {
	case UserCold:
		return "cold"
	case UserWarming:
		return "warming"
	default:
		return "warm"
	}
}

// DefaultWarmThreshold is the rating count at which a user graduates to full
// collaborative filtering.
const DefaultWarmThreshold = 5

// warmingCategories caps how many preferred categories the warming fallback
// draws from.
const warmingCategories = 2

// ColdStart substitutes popularity and category-preference rankings for
// users with too little history. A request for a brand-new user never
// errors; it silently falls through to the global popularity list.
type ColdStart struct {
	matrix    *ratings.Matrix
	content   *ContentBased
	pop       *Popularity
	threshold int
}

// NewColdStart creates a cold-start resolver over one snapshot.
func NewColdStart(m *ratings.Matrix, content *ContentBased, pop *Popularity, threshold int) *ColdStart {
	if threshold <= 0 {
		threshold = DefaultWarmThreshold
	}
	return &ColdStart{matrix: m, content: content, pop: pop, threshold: threshold}
}

// State classifies one user against the configured threshold.
func (c *ColdStart) State(userID int) UserState {
	switch n := c.matrix.UserRatingCount(userID); {
	case n == 0:
		return UserCold
	case n < c.threshold:
		return UserWarming
	default:
		return UserWarm
	}
}

// Threshold returns the warm-user rating count.
func (c *ColdStart) Threshold() int {
	return c.threshold
}

// Recommend produces a fallback list for a cold or warming user. For warm
// users it returns nil; the caller should run the full pipeline instead.
func (c *ColdStart) Recommend(userID, n int) []Scored {
	switch c.State(userID) {
	case UserCold:
		return c.pop.Recommend(userID, n)
	case UserWarming:
		return c.warmingRecommend(userID, n)
	default:
		return nil
	}
}

// warmingRecommend ranks unrated items from the user's top categories by
// popularity, then pads with the global popularity list if the categories
// run dry.
func (c *ColdStart) warmingRecommend(userID, n int) []Scored {
	rated := c.matrix.Row(userID)

	picked := make([]Scored, 0, n)
	seen := make(map[int]float64, len(rated))
	for id, v := range rated {
		seen[id] = v
	}

	for _, cat := range c.content.TopCategories(userID, warmingCategories) {
		for _, s := range c.pop.TopAmong(c.content.catalog.InCategory(cat), seen, n-len(picked)) {
			picked = append(picked, s)
			seen[s.ItemID] = s.Score
		}
		if len(picked) >= n {
			return picked[:n]
		}
	}

	// Pad with global popularity, excluding rated and already-selected.
	picked = append(picked, c.pop.TopExcluding(seen, n-len(picked))...)
	return picked
}
