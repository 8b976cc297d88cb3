// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package recommend

import (
	"sync"
	"time"
)

type cacheEntry struct {
	response *Response
	storedAt time.Time
}

// responseCache is a TTL cache for generated recommendation lists, keyed by
// (user, n, strategy). It is flushed wholesale when a new model snapshot is
// swapped in: entries never outlive the snapshot they were computed from.
type responseCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	max     int
}

func newResponseCache(ttl time.Duration, max int) *responseCache {
	if max <= 0 {
		max = 10000
	}
	return &responseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		max:     max,
	}
}

func (c *responseCache) get(key string) (*Response, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Since(e.storedAt) > c.ttl {
		return nil, false
	}
	return e.response, true
}

func (c *responseCache) put(key string, resp *Response) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.entries) >= c.max {
		c.evictLocked()
	}
	c.entries[key] = cacheEntry{response: resp, storedAt: time.Now()}
}

// evictLocked drops expired entries, then the oldest one if still full.
func (c *responseCache) evictLocked() {
	now := time.Now()
	for k, e := range c.entries {
		if now.Sub(e.storedAt) > c.ttl {
			delete(c.entries, k)
		}
	}
	if len(c.entries) < c.max {
		return
	}
	var oldestKey string
	var oldest time.Time
	for k, e := range c.entries {
		if oldestKey == "" || e.storedAt.Before(oldest) {
			oldestKey, oldest = k, e.storedAt
		}
	}
	delete(c.entries, oldestKey)
}

func (c *responseCache) flush() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

func (c *responseCache) size() int {
	c.mu.RLock()
	n := len(c.entries)
	c.mu.RUnlock()
	return n
}
