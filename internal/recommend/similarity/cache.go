// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package similarity

import "sync"

// pairKey is an unordered entity pair; lo <= hi so (a,b) and (b,a) share one
// slot.
type pairKey struct {
	lo, hi int
}

func makePairKey(a, b int) pairKey {
	if a > b {
		a, b = b, a
	}
	return pairKey{lo: a, hi: b}
}

// Cache is a lazily populated, symmetric similarity cache. It is an explicit
// object owned by one Engine, never a package-level singleton, so discarding
// the engine discards the cache with it.
//
// Safe for concurrent use. Recomputing a pair is idempotent, so a racing
// double-compute merely duplicates work; last-writer-wins is fine.
type Cache struct {
	mu      sync.RWMutex
	entries map[pairKey]float64
}

// NewCache creates an empty similarity cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[pairKey]float64)}
}

func (c *Cache) get(a, b int) (float64, bool) {
	c.mu.RLock()
	v, ok := c.entries[makePairKey(a, b)]
	c.mu.RUnlock()
	return v, ok
}

func (c *Cache) put(a, b int, v float64) {
	c.mu.Lock()
	c.entries[makePairKey(a, b)] = v
	c.mu.Unlock()
}

func (c *Cache) size() int {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return n
}
