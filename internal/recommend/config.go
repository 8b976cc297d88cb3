// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package recommend

import (
	"fmt"
	"time"

	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend/algorithms"
	"github.com/ratemesh/ratemesh/internal/recommend/similarity"
)

// ConfigurationError reports an invalid engine configuration. Raised eagerly
// at construction, never deferred to first use.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// Weights are the hybrid blend coefficients per strategy.
type Weights struct {
	CF         float64 `json:"cf" koanf:"cf"`
	Content    float64 `json:"content" koanf:"content"`
	Popularity float64 `json:"popularity" koanf:"popularity"`
}

// DefaultWeights favors collaborative signal with content and popularity as
// moderators.
func DefaultWeights() Weights {
	return Weights{CF: 0.6, Content: 0.3, Popularity: 0.1}
}

// Sum returns the total weight mass.
func (w Weights) Sum() float64 {
	return w.CF + w.Content + w.Popularity
}

// DiversityConfig controls the category-penalty reranking pass.
type DiversityConfig struct {
	Enabled bool    `json:"enabled" koanf:"enabled"`
	Step    float64 `json:"step" koanf:"step"`
	Floor   float64 `json:"floor" koanf:"floor"`
}

// CacheConfig controls the recommendation response cache.
type CacheConfig struct {
	Enabled    bool          `json:"enabled" koanf:"enabled"`
	TTL        time.Duration `json:"ttl" koanf:"ttl"`
	MaxEntries int           `json:"max_entries" koanf:"max_entries"`
}

// Config drives engine construction.
type Config struct {
	// Metric is the similarity formula: "cosine" or "pearson".
	Metric string `json:"metric" koanf:"metric"`
	// MinCommon gates similarity: pairs sharing fewer rated entities score
	// zero.
	MinCommon int `json:"min_common" koanf:"min_common"`
	// Neighbors is k for both kNN variants.
	Neighbors int `json:"neighbors" koanf:"neighbors"`
	// Mode selects the collaborative filter: "user" or "item".
	Mode string `json:"mode" koanf:"mode"`
	// WarmThreshold is the rating count at which a user leaves cold-start
	// handling.
	WarmThreshold int `json:"warm_threshold" koanf:"warm_threshold"`

	Weights   Weights         `json:"weights" koanf:"weights"`
	Diversity DiversityConfig `json:"diversity" koanf:"diversity"`
	Cache     CacheConfig     `json:"cache" koanf:"cache"`

	// DefaultN and MaxN bound requested list lengths.
	DefaultN int `json:"default_n" koanf:"default_n"`
	MaxN     int `json:"max_n" koanf:"max_n"`

	Scale ratings.Scale `json:"scale" koanf:"scale"`
}

const (
	ModeUser = "user"
	ModeItem = "item"
)

// DefaultConfig returns the engine defaults.
func DefaultConfig() Config {
	return Config{
		Metric:        string(similarity.MetricCosine),
		MinCommon:     similarity.MinCommonDefault,
		Neighbors:     algorithms.DefaultK,
		Mode:          ModeUser,
		WarmThreshold: algorithms.DefaultWarmThreshold,
		Weights:       DefaultWeights(),
		Diversity: DiversityConfig{
			Enabled: true,
			Step:    0.1,
			Floor:   0.7,
		},
		Cache: CacheConfig{
			Enabled:    true,
			TTL:        5 * time.Minute,
			MaxEntries: 10000,
		},
		DefaultN: 10,
		MaxN:     100,
		Scale:    ratings.DefaultScale,
	}
}

// Validate checks the configuration, returning a *ConfigurationError on the
// first problem.
func (c *Config) Validate() error {
	if _, err := similarity.ParseMetric(c.Metric); err != nil {
		return &ConfigurationError{Field: "metric", Reason: err.Error()}
	}
	if c.Mode != ModeUser && c.Mode != ModeItem {
		return &ConfigurationError{Field: "mode", Reason: fmt.Sprintf("must be %q or %q, got %q", ModeUser, ModeItem, c.Mode)}
	}
	if c.MinCommon < 1 {
		return &ConfigurationError{Field: "min_common", Reason: "must be at least 1"}
	}
	if c.Neighbors < 1 {
		return &ConfigurationError{Field: "neighbors", Reason: "must be at least 1"}
	}
	if c.WarmThreshold < 1 {
		return &ConfigurationError{Field: "warm_threshold", Reason: "must be at least 1"}
	}
	if c.Weights.CF < 0 || c.Weights.Content < 0 || c.Weights.Popularity < 0 {
		return &ConfigurationError{Field: "weights", Reason: "must not be negative"}
	}
	if c.Weights.Sum() <= 0 {
		return &ConfigurationError{Field: "weights", Reason: "must sum to a positive value"}
	}
	if c.Diversity.Enabled {
		if c.Diversity.Step <= 0 || c.Diversity.Step >= 1 {
			return &ConfigurationError{Field: "diversity.step", Reason: "must be in (0, 1)"}
		}
		if c.Diversity.Floor <= 0 || c.Diversity.Floor > 1 {
			return &ConfigurationError{Field: "diversity.floor", Reason: "must be in (0, 1]"}
		}
	}
	if c.DefaultN < 1 {
		return &ConfigurationError{Field: "default_n", Reason: "must be at least 1"}
	}
	if c.MaxN < c.DefaultN {
		return &ConfigurationError{Field: "max_n", Reason: "must be at least default_n"}
	}
	if !c.Scale.Valid() {
		return &ConfigurationError{Field: "scale", Reason: "min must be below max"}
	}
	return nil
}
