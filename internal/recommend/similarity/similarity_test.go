// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package similarity

import (
	"math"
	"reflect"
	"testing"
)

const epsilon = 1e-9

func TestParseMetric(t *testing.T) {
	tests := []struct {
		in      string
		want    Metric
		wantErr bool
	}{
		{"cosine", MetricCosine, false},
		{"pearson", MetricPearson, false},
		{"jaccard", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMetric(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMetric(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMetric(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCosineIntersectionOnly(t *testing.T) {
	// Items 1 and 2 are common; items 3 and 4 must not contribute, not even
	// to the norms.
	a := map[int]float64{1: 5.0, 2: 4.0, 3: 1.0}
	b := map[int]float64{1: 4.5, 2: 4.5, 4: 2.0}

	dot := 5.0*4.5 + 4.0*4.5
	want := dot / (math.Sqrt(5.0*5.0+4.0*4.0) * math.Sqrt(4.5*4.5+4.5*4.5))

	got := Compute(MetricCosine, a, b, 2)
	if math.Abs(got-want) > epsilon {
		t.Errorf("cosine = %v, want %v", got, want)
	}
}

func TestComputeEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		metric    Metric
		a, b      map[int]float64
		minCommon int
		want      float64
	}{
		{
			name:      "disjoint vectors",
			metric:    MetricCosine,
			a:         map[int]float64{1: 5.0},
			b:         map[int]float64{2: 5.0},
			minCommon: 1,
			want:      0,
		},
		{
			name:      "below min common threshold",
			metric:    MetricCosine,
			a:         map[int]float64{1: 5.0, 2: 4.0},
			b:         map[int]float64{1: 5.0, 3: 4.0},
			minCommon: 2,
			want:      0,
		},
		{
			name:      "pearson needs two common points",
			metric:    MetricPearson,
			a:         map[int]float64{1: 5.0},
			b:         map[int]float64{1: 5.0},
			minCommon: 1,
			want:      0,
		},
		{
			name:      "pearson zero variance",
			metric:    MetricPearson,
			a:         map[int]float64{1: 3.0, 2: 3.0},
			b:         map[int]float64{1: 5.0, 2: 1.0},
			minCommon: 2,
			want:      0,
		},
		{
			name:      "pearson perfect positive correlation",
			metric:    MetricPearson,
			a:         map[int]float64{1: 1.0, 2: 2.0, 3: 3.0},
			b:         map[int]float64{1: 2.0, 2: 3.0, 3: 4.0},
			minCommon: 2,
			want:      1,
		},
		{
			name:      "pearson perfect negative correlation",
			metric:    MetricPearson,
			a:         map[int]float64{1: 1.0, 2: 2.0, 3: 3.0},
			b:         map[int]float64{1: 3.0, 2: 2.0, 3: 1.0},
			minCommon: 2,
			want:      -1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Compute(tt.metric, tt.a, tt.b, tt.minCommon)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("Compute() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeBoundsAndSymmetry(t *testing.T) {
	vectors := []map[int]float64{
		{1: 5.0, 2: 4.0, 3: 1.0},
		{1: 4.5, 2: 4.5, 4: 2.0},
		{2: 1.0, 3: 5.0, 4: 3.0},
		{1: 3.0, 2: 3.0, 3: 3.0},
	}
	for _, metric := range []Metric{MetricCosine, MetricPearson} {
		for i, a := range vectors {
			for j, b := range vectors {
				ab := Compute(metric, a, b, 2)
				ba := Compute(metric, b, a, 2)
				if ab != ba {
					t.Errorf("%s: sim(%d,%d)=%v != sim(%d,%d)=%v", metric, i, j, ab, j, i, ba)
				}
				if ab < -1 || ab > 1 {
					t.Errorf("%s: sim(%d,%d)=%v outside [-1,1]", metric, i, j, ab)
				}
			}
		}
	}
}

func testSource(vectors map[int]map[int]float64) Source {
	return func(id int) map[int]float64 {
		return vectors[id]
	}
}

func TestEngineTopK(t *testing.T) {
	vectors := map[int]map[int]float64{
		1: {1: 5.0, 2: 4.0, 3: 3.0},
		2: {1: 5.0, 2: 4.0, 3: 3.0}, // identical to 1: sim 1.0
		3: {1: 5.0, 2: 4.0, 3: 3.1}, // nearly identical
		4: {1: 1.0, 2: 5.0, 3: 1.0}, // weakly similar
		5: {7: 2.0, 8: 3.0},         // disjoint: sim 0, must drop
	}
	e := New(MetricCosine, 2, testSource(vectors))

	got := e.TopK(1, []int{1, 2, 3, 4, 5}, 10)
	for _, nb := range got {
		if nb.ID == 1 {
			t.Error("TopK must exclude the target itself")
		}
		if nb.Score <= 0 {
			t.Errorf("TopK kept non-positive similarity: %+v", nb)
		}
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3 (user 5 dropped)", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Score > got[i-1].Score {
			t.Errorf("not sorted descending at %d: %+v", i, got)
		}
	}

	// Fewer qualifying candidates than k is fine.
	if short := e.TopK(1, []int{5}, 3); len(short) != 0 {
		t.Errorf("TopK with no qualifying candidates = %v, want empty", short)
	}
}

func TestEngineTopKTieBreak(t *testing.T) {
	// Users 3 and 2 are both identical to user 1; tie resolves to lower id.
	vectors := map[int]map[int]float64{
		1: {1: 4.0, 2: 2.0},
		2: {1: 4.0, 2: 2.0},
		3: {1: 4.0, 2: 2.0},
	}
	e := New(MetricCosine, 2, testSource(vectors))

	got := e.TopK(1, []int{3, 2}, 2)
	want := []Neighbor{{ID: 2, Score: 1}, {ID: 3, Score: 1}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TopK = %v, want %v", got, want)
	}
}

func TestEngineCaching(t *testing.T) {
	calls := 0
	src := func(id int) map[int]float64 {
		calls++
		return map[int]float64{1: float64(id), 2: 1.0}
	}
	e := New(MetricCosine, 1, src)

	first := e.Between(1, 2)
	callsAfterFirst := calls
	second := e.Between(2, 1) // symmetric key, must hit cache
	if calls != callsAfterFirst {
		t.Error("symmetric lookup recomputed instead of hitting cache")
	}
	if first != second {
		t.Errorf("Between(1,2)=%v != Between(2,1)=%v", first, second)
	}
	if e.CachedPairs() != 1 {
		t.Errorf("CachedPairs() = %d, want 1", e.CachedPairs())
	}
}
