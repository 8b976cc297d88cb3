// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package ratings

import "sort"

// Catalog is the read-only item metadata table. Like Matrix it is immutable
// after construction and safe for concurrent reads.
type Catalog struct {
	items      map[int]Item
	ids        []int
	byCategory map[string][]int
}

// NewCatalog builds a catalog leniently, skipping records with a non-positive
// id or an empty category and reporting them.
func NewCatalog(items []Item) (*Catalog, *LoadReport) {
	c := &Catalog{
		items:      make(map[int]Item, len(items)),
		byCategory: make(map[string][]int),
	}
	report := &LoadReport{}
	for i, it := range items {
		if it.ID <= 0 {
			report.record(&DataError{Record: i, Field: "item_id", Reason: "must be a positive integer"})
			continue
		}
		if it.Category == "" {
			report.record(&DataError{Record: i, Field: "category", Reason: "must not be empty"})
			continue
		}
		if _, dup := c.items[it.ID]; !dup {
			c.ids = append(c.ids, it.ID)
		}
		c.items[it.ID] = it
		report.Loaded++
	}
	sort.Ints(c.ids)
	for _, id := range c.ids {
		cat := c.items[id].Category
		c.byCategory[cat] = append(c.byCategory[cat], id)
	}
	return c, report
}

// Item returns the metadata for an item id.
func (c *Catalog) Item(id int) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Category returns the category of an item id.
func (c *Catalog) Category(id int) (string, bool) {
	it, ok := c.items[id]
	return it.Category, ok
}

// IDs returns all item ids in ascending order. Callers must not modify the
// returned slice.
func (c *Catalog) IDs() []int {
	return c.ids
}

// Size returns the number of cataloged items.
func (c *Catalog) Size() int {
	return len(c.items)
}

// InCategory returns the item ids of one category in ascending order.
func (c *Catalog) InCategory(category string) []int {
	return c.byCategory[category]
}

// Categories returns all distinct categories in ascending order.
func (c *Catalog) Categories() []string {
	cats := make([]string, 0, len(c.byCategory))
	for cat := range c.byCategory {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Items returns the catalog contents ordered by item id. Used by snapshot
// persistence.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.items[id])
	}
	return out
}
