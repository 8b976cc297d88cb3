// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package algorithms

import (
	"math"
	"reflect"
	"testing"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

func TestPopularityScores(t *testing.T) {
	// Item 1: mean 4.0 over 2 ratings. Item 2: mean 5.0 over 1 rating. The
	// volume term must put item 1 ahead despite the lower mean.
	m := newTestMatrix(t, []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 5.0},
		{UserID: 2, ItemID: 1, Value: 3.0},
		{UserID: 1, ItemID: 2, Value: 5.0},
	})
	p := NewPopularity(m)

	want1 := 4.0 * math.Log(3)
	want2 := 5.0 * math.Log(2)
	if got, ok := p.ItemScore(1); !ok || math.Abs(got-want1) > epsilon {
		t.Errorf("ItemScore(1) = %v, want %v", got, want1)
	}
	if got, ok := p.ItemScore(2); !ok || math.Abs(got-want2) > epsilon {
		t.Errorf("ItemScore(2) = %v, want %v", got, want2)
	}
	if _, ok := p.ItemScore(99); ok {
		t.Error("unrated item must have no popularity score")
	}

	top := p.Recommend(99, 2)
	if len(top) != 2 || top[0].ItemID != 1 || top[1].ItemID != 2 {
		t.Errorf("Recommend(99,2) = %v, want item 1 then item 2", top)
	}
}

func TestPopularityExcludesRated(t *testing.T) {
	m := newTestMatrix(t, []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 5.0},
		{UserID: 2, ItemID: 1, Value: 4.0},
		{UserID: 2, ItemID: 2, Value: 4.0},
		{UserID: 2, ItemID: 3, Value: 2.0},
	})
	p := NewPopularity(m)

	// User 2 rated all three items, so nothing is left to recommend.
	got := p.Recommend(2, 10)
	if len(got) != 0 {
		t.Errorf("Recommend for a user who rated everything = %v, want empty", got)
	}

	got = p.Recommend(1, 10)
	ids := make([]int, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ItemID)
	}
	if !reflect.DeepEqual(ids, []int{2, 3}) {
		t.Errorf("Recommend(1,10) ids = %v, want [2 3]", ids)
	}
}

func TestPopularityTopAmong(t *testing.T) {
	m := newTestMatrix(t, []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 5.0},
		{UserID: 1, ItemID: 2, Value: 3.0},
		{UserID: 2, ItemID: 2, Value: 3.0},
		{UserID: 1, ItemID: 3, Value: 4.0},
	})
	p := NewPopularity(m)

	got := p.TopAmong([]int{1, 2, 3, 99}, map[int]float64{3: 4.0}, 10)
	ids := make([]int, 0, len(got))
	for _, s := range got {
		ids = append(ids, s.ItemID)
	}
	// 99 is unrated, 3 is excluded; 1 (5*ln2=3.47) beats 2 (3*ln3=3.30).
	if !reflect.DeepEqual(ids, []int{1, 2}) {
		t.Errorf("TopAmong ids = %v, want [1 2]", ids)
	}
}
