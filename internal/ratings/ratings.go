// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package ratings provides the in-memory sparse rating matrix and the item
// catalog that the recommendation pipeline reads from.
//
// A Matrix is built once per ingestion pass and is immutable afterwards, so
// concurrent scoring requests can share it without locking. Derived indexes
// (the transposed item view, similarity caches) are scoped to one Matrix and
// are discarded when a new snapshot is built.
package ratings

import "fmt"

// Rating is a single (user, item, value) observation. Immutable once recorded.
type Rating struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Value  float64 `json:"value"`
}

// Item is catalog metadata for one recommendable item. It carries no rating
// information; the catalog is read-only to the scoring core.
type Item struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Year     int    `json:"year,omitempty"`
}

// Scale is the closed interval of valid rating values.
type Scale struct {
	Min float64 `json:"min" koanf:"min"`
	Max float64 `json:"max" koanf:"max"`
}

// DefaultScale is the conventional five-star scale.
var DefaultScale = Scale{Min: 1.0, Max: 5.0}

// Valid reports whether the scale describes a non-empty interval.
func (s Scale) Valid() bool {
	return s.Min < s.Max
}

// Contains reports whether v falls inside the scale.
func (s Scale) Contains(v float64) bool {
	return v >= s.Min && v <= s.Max
}

func (s Scale) String() string {
	return fmt.Sprintf("[%.1f, %.1f]", s.Min, s.Max)
}
