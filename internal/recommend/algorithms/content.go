// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package algorithms

import (
	"sort"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

// ContentBased scores an item by the user's mean rating for the item's
// category. It needs only the catalog, no neighbor search, which makes it
// useful for thin-history users where collaborative signals are noise.
type ContentBased struct {
	matrix  *ratings.Matrix
	catalog *ratings.Catalog
}

// NewContentBased creates a category-preference scorer over one snapshot.
func NewContentBased(m *ratings.Matrix, c *ratings.Catalog) *ContentBased {
	return &ContentBased{matrix: m, catalog: c}
}

// Name implements Strategy.
func (a *ContentBased) Name() string { return "content" }

// CategoryMeans returns the user's mean rating per category over their
// existing ratings. Items missing from the catalog are ignored.
func (a *ContentBased) CategoryMeans(userID int) map[string]float64 {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for itemID, v := range a.matrix.Row(userID) {
		cat, ok := a.catalog.Category(itemID)
		if !ok {
			continue
		}
		sums[cat] += v
		counts[cat]++
	}
	means := make(map[string]float64, len(sums))
	for cat, sum := range sums {
		means[cat] = sum / float64(counts[cat])
	}
	return means
}

// TopCategories returns up to n of the user's categories ordered by mean
// preference descending, ties broken alphabetically.
func (a *ContentBased) TopCategories(userID, n int) []string {
	means := a.CategoryMeans(userID)
	cats := make([]string, 0, len(means))
	for cat := range means {
		cats = append(cats, cat)
	}
	sort.Slice(cats, func(i, j int) bool {
		if means[cats[i]] != means[cats[j]] {
			return means[cats[i]] > means[cats[j]]
		}
		return cats[i] < cats[j]
	})
	if len(cats) > n {
		cats = cats[:n]
	}
	return cats
}

// Score implements Strategy. ok is false when the item is uncataloged or the
// user has no ratings in its category.
func (a *ContentBased) Score(userID, itemID int) (float64, bool) {
	cat, ok := a.catalog.Category(itemID)
	if !ok {
		return 0, false
	}
	mean, ok := a.CategoryMeans(userID)[cat]
	return mean, ok
}

// Recommend implements Strategy, ranking unrated catalog items by the user's
// category preference.
func (a *ContentBased) Recommend(userID, n int) []Scored {
	means := a.CategoryMeans(userID)
	if len(means) == 0 {
		return nil
	}
	rated := a.matrix.Row(userID)
	out := make([]Scored, 0, a.catalog.Size())
	for _, itemID := range a.catalog.IDs() {
		if _, seen := rated[itemID]; seen {
			continue
		}
		cat, _ := a.catalog.Category(itemID)
		if mean, ok := means[cat]; ok {
			out = append(out, Scored{ItemID: itemID, Score: mean})
		}
	}
	return TopN(out, n)
}
