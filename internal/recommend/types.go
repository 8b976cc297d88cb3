// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package recommend is the serving core: it owns the trained model snapshot
// and exposes rating prediction, ranked recommendation, and evaluation over
// it.
//
// A snapshot (matrix, catalog, similarity spaces, strategies) is built once
// per Rebuild and read concurrently afterwards; nothing mutates it in place.
// Swapping in a new snapshot discards every derived cache with the old one.
package recommend

import (
	"fmt"
	"time"
)

// Strategy selects how a recommendation list is produced.
type Strategy string

const (
	StrategyUserBased Strategy = "user_based"
	StrategyItemBased Strategy = "item_based"
	StrategyHybrid    Strategy = "hybrid"
	// StrategyAuto picks per request: cold and warming users fall through
	// to the cold-start resolver, warm users get the hybrid blend.
	StrategyAuto Strategy = "auto"
)

// ParseStrategy validates a strategy name; empty means auto.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case "":
		return StrategyAuto, nil
	case StrategyUserBased, StrategyItemBased, StrategyHybrid, StrategyAuto:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown strategy %q", s)
	}
}

// ScoredItem is one entry of a recommendation list, enriched with catalog
// metadata when available.
type ScoredItem struct {
	ItemID   int     `json:"item_id"`
	Title    string  `json:"title,omitempty"`
	Category string  `json:"category,omitempty"`
	Score    float64 `json:"score"`
	// Scores breaks the combined score down per strategy. Populated for
	// hybrid results only.
	Scores map[string]float64 `json:"scores,omitempty"`
}

// Prediction is a point rating estimate. Ephemeral: computed on demand,
// never persisted.
type Prediction struct {
	UserID   int     `json:"user_id"`
	ItemID   int     `json:"item_id"`
	Value    float64 `json:"value"`
	ExactHit bool    `json:"exact_hit,omitempty"`
	// Neighbors counts the qualifying neighbors whose ratings entered the
	// weighted average. Zero for exact hits, which bypass the neighborhood.
	Neighbors int    `json:"contributing_neighbor_count"`
	Algorithm string `json:"algorithm"`
}

// Request asks for one user's recommendation list.
type Request struct {
	UserID   int
	N        int
	Strategy Strategy
}

// Response is a generated recommendation list plus provenance.
type Response struct {
	UserID       int          `json:"user_id"`
	Strategy     Strategy     `json:"strategy"`
	UserState    string       `json:"user_state"`
	Items        []ScoredItem `json:"items"`
	ModelVersion int          `json:"model_version"`
	GeneratedAt  time.Time    `json:"generated_at"`
	Cached       bool         `json:"cached,omitempty"`
}

// UserProfile summarizes one user's rating history for the profile
// endpoint.
type UserProfile struct {
	UserID        int                `json:"user_id"`
	State         string             `json:"state"`
	RatingCount   int                `json:"rating_count"`
	CategoryMeans map[string]float64 `json:"category_means,omitempty"`
	TopCategories []string           `json:"top_categories,omitempty"`
}

// ModelStatus reports the current snapshot for health and status endpoints.
type ModelStatus struct {
	Ready           bool      `json:"ready"`
	Version         int       `json:"version"`
	BuiltAt         time.Time `json:"built_at,omitzero"`
	Users           int       `json:"users"`
	Items           int       `json:"items"`
	Ratings         int       `json:"ratings"`
	CatalogSize     int       `json:"catalog_size"`
	Metric          string    `json:"metric"`
	CachedUserPairs int       `json:"cached_user_pairs"`
	CachedItemPairs int       `json:"cached_item_pairs"`
}
