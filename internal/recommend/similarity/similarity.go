// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package similarity computes pairwise similarity between sparse rating
// vectors and selects top-k neighborhoods from it.
//
// Both metrics operate strictly on the intersection of the two vectors'
// keys. For cosine this includes the L2 norms: they are computed over the
// common keys only, not over each vector's full support. That makes it a
// "local" cosine, which scores sparse vectors noticeably higher than the
// textbook formulation. It is the defined behavior here, kept on purpose so
// results stay reproducible against the historical datasets; do not swap in
// full-support norms.
package similarity

import (
	"fmt"
	"math"
	"sort"
)

// Metric names a similarity formula.
type Metric string

const (
	MetricCosine  Metric = "cosine"
	MetricPearson Metric = "pearson"
)

// ParseMetric validates a configured metric name.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case MetricCosine, MetricPearson:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("unknown similarity metric %q (want %q or %q)", s, MetricCosine, MetricPearson)
	}
}

// MinCommonDefault is the default minimum intersection size below which
// similarity is defined as zero. One shared rating is not evidence.
const MinCommonDefault = 2

// commonKeys returns the keys present in both vectors. Order is not
// significant for any formula below.
func commonKeys(a, b map[int]float64) []int {
	if len(b) < len(a) {
		a, b = b, a
	}
	common := make([]int, 0, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			common = append(common, k)
		}
	}
	return common
}

// Compute returns the similarity of two sparse vectors in [-1, 1].
//
// An empty or sub-threshold intersection yields 0: no overlap means no
// evidence of similarity, not an error.
func Compute(metric Metric, a, b map[int]float64, minCommon int) float64 {
	common := commonKeys(a, b)
	if len(common) < minCommon {
		return 0
	}
	switch metric {
	case MetricPearson:
		return pearson(a, b, common)
	default:
		return cosine(a, b, common)
	}
}

// cosine is dot(a,b) / (|a| * |b|) with all three terms restricted to the
// common keys.
func cosine(a, b map[int]float64, common []int) float64 {
	var dot, normA, normB float64
	for _, k := range common {
		av, bv := a[k], b[k]
		dot += av * bv
		normA += av * av
		normB += bv * bv
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return clampUnit(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}

// pearson mean-centers over the common keys and needs at least two of them;
// a correlation over a single point is undefined and reported as 0.
func pearson(a, b map[int]float64, common []int) float64 {
	n := float64(len(common))
	if n < 2 {
		return 0
	}

	var meanA, meanB float64
	for _, k := range common {
		meanA += a[k]
		meanB += b[k]
	}
	meanA /= n
	meanB /= n

	var cov, varA, varB float64
	for _, k := range common {
		da, db := a[k]-meanA, b[k]-meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}
	if varA == 0 || varB == 0 {
		return 0
	}
	return clampUnit(cov / (math.Sqrt(varA) * math.Sqrt(varB)))
}

// clampUnit guards against float drift pushing a result a hair outside
// [-1, 1].
func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Neighbor is one entry of a ranked neighborhood.
type Neighbor struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}

// Source resolves an entity id to its sparse rating vector: user rows for
// user-user similarity, item columns for item-item.
type Source func(id int) map[int]float64

// Engine bundles a metric, its threshold, a vector source, and a cache into
// one similarity space. An Engine is scoped to one matrix snapshot and must
// be discarded with it.
type Engine struct {
	metric    Metric
	minCommon int
	source    Source
	cache     *Cache
}

// New creates a similarity engine over one vector source.
func New(metric Metric, minCommon int, source Source) *Engine {
	if minCommon <= 0 {
		minCommon = MinCommonDefault
	}
	return &Engine{
		metric:    metric,
		minCommon: minCommon,
		source:    source,
		cache:     NewCache(),
	}
}

// Metric returns the engine's configured metric.
func (e *Engine) Metric() Metric {
	return e.metric
}

// Between returns the cached-or-computed similarity of two entities.
// Symmetric: Between(a, b) == Between(b, a).
func (e *Engine) Between(a, b int) float64 {
	if v, ok := e.cache.get(a, b); ok {
		return v
	}
	v := Compute(e.metric, e.source(a), e.source(b), e.minCommon)
	e.cache.put(a, b, v)
	return v
}

// CachedPairs returns how many pairs have been computed so far.
func (e *Engine) CachedPairs() int {
	return e.cache.size()
}

// TopK ranks the candidates by similarity to the target, excluding the
// target itself and any candidate with non-positive similarity. Ordered by
// similarity descending, ties broken by lower id. Returns fewer than k
// entries when fewer qualify.
func (e *Engine) TopK(target int, candidates []int, k int) []Neighbor {
	if k <= 0 {
		return nil
	}
	neighbors := make([]Neighbor, 0, len(candidates))
	for _, id := range candidates {
		if id == target {
			continue
		}
		if sim := e.Between(target, id); sim > 0 {
			neighbors = append(neighbors, Neighbor{ID: id, Score: sim})
		}
	}
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Score != neighbors[j].Score {
			return neighbors[i].Score > neighbors[j].Score
		}
		return neighbors[i].ID < neighbors[j].ID
	})
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}
	return neighbors
}
