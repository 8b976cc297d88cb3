// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package evaluation

import (
	"math"
	"reflect"
	"testing"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

const epsilon = 1e-9

type stubPredictor map[[2]int]float64

func (s stubPredictor) PredictRating(userID, itemID int) (float64, bool) {
	v, ok := s[[2]int{userID, itemID}]
	return v, ok
}

type stubRecommender map[int][]int

func (s stubRecommender) RecommendIDs(userID, n int) []int {
	ids := s[userID]
	if len(ids) > n {
		ids = ids[:n]
	}
	return ids
}

func TestEvaluateAccuracy(t *testing.T) {
	// predicted=4.2 vs actual=4.5: |err|=0.3, err^2=0.09.
	p := stubPredictor{
		{1, 10}: 4.2,
		{1, 20}: 3.0,
	}
	test := []ratings.Rating{
		{UserID: 1, ItemID: 10, Value: 4.5},
		{UserID: 1, ItemID: 20, Value: 3.0},
		{UserID: 2, ItemID: 10, Value: 5.0}, // predictor abstains
	}

	acc := EvaluateAccuracy(p, test)
	if acc.Predicted != 2 || acc.Total != 3 {
		t.Fatalf("counts = %d/%d, want 2/3", acc.Predicted, acc.Total)
	}
	if want := 0.3 / 2; math.Abs(acc.MAE-want) > epsilon {
		t.Errorf("MAE = %v, want %v", acc.MAE, want)
	}
	if want := math.Sqrt(0.09 / 2); math.Abs(acc.RMSE-want) > epsilon {
		t.Errorf("RMSE = %v, want %v", acc.RMSE, want)
	}
	if want := 2.0 / 3.0; math.Abs(acc.Coverage-want) > epsilon {
		t.Errorf("Coverage = %v, want %v", acc.Coverage, want)
	}
}

func TestEvaluateAccuracyNoPredictions(t *testing.T) {
	acc := EvaluateAccuracy(stubPredictor{}, []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 4.0},
	})
	if acc.MAE != 0 || acc.RMSE != 0 || acc.Predicted != 0 {
		t.Errorf("empty accuracy = %+v", acc)
	}
	if acc.Coverage != 0 {
		t.Errorf("Coverage = %v, want 0", acc.Coverage)
	}
}

func TestEvaluateRanking(t *testing.T) {
	// User 1: relevant {10, 20}; top-2 recs hit 10 -> P=1/2, R=1/2.
	// User 2: relevant {30}; top-2 recs hit 30 -> P=1/2, R=1.
	// User 3: nothing relevant -> excluded entirely.
	rec := stubRecommender{
		1: {10, 40},
		2: {30, 50},
		3: {60, 70},
	}
	test := []ratings.Rating{
		{UserID: 1, ItemID: 10, Value: 5.0},
		{UserID: 1, ItemID: 20, Value: 4.0},
		{UserID: 1, ItemID: 99, Value: 1.0},
		{UserID: 2, ItemID: 30, Value: 4.5},
		{UserID: 3, ItemID: 10, Value: 2.0},
	}
	cats := map[int]string{10: "a", 40: "b", 30: "a", 50: "a"}

	rank := EvaluateRanking(rec, test, Config{
		K:           2,
		CatalogSize: 10,
		CategoryOf: func(id int) (string, bool) {
			c, ok := cats[id]
			return c, ok
		},
	})

	if rank.EvaluatedUsers != 2 {
		t.Fatalf("EvaluatedUsers = %d, want 2", rank.EvaluatedUsers)
	}
	if want := (0.5 + 0.5) / 2; math.Abs(rank.PrecisionAtK-want) > epsilon {
		t.Errorf("Precision = %v, want %v", rank.PrecisionAtK, want)
	}
	if want := (0.5 + 1.0) / 2; math.Abs(rank.RecallAtK-want) > epsilon {
		t.Errorf("Recall = %v, want %v", rank.RecallAtK, want)
	}
	p, r := rank.PrecisionAtK, rank.RecallAtK
	if want := 2 * p * r / (p + r); math.Abs(rank.F1AtK-want) > epsilon {
		t.Errorf("F1 = %v, want %v", rank.F1AtK, want)
	}
	// Union of recommendations to evaluated users: {10,40,30,50} of 10.
	if want := 0.4; math.Abs(rank.CatalogCoverage-want) > epsilon {
		t.Errorf("CatalogCoverage = %v, want %v", rank.CatalogCoverage, want)
	}
	// User 1 list {10,40}: 2 categories / 2. User 2 list {30,50}: 1 / 2.
	if want := (1.0 + 0.5) / 2; math.Abs(rank.Diversity-want) > epsilon {
		t.Errorf("Diversity = %v, want %v", rank.Diversity, want)
	}
}

func TestEvaluateRankingNoRelevantUsers(t *testing.T) {
	rank := EvaluateRanking(stubRecommender{}, []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 2.0},
	}, Config{K: 5})
	if rank.EvaluatedUsers != 0 || rank.PrecisionAtK != 0 {
		t.Errorf("rank = %+v, want zero-valued", rank)
	}
}

func TestSplit(t *testing.T) {
	rs := make([]ratings.Rating, 100)
	for i := range rs {
		rs[i] = ratings.Rating{UserID: i + 1, ItemID: 1, Value: 3.0}
	}

	train, test := Split(rs, 0.2, 42)
	if len(test) != 20 || len(train) != 80 {
		t.Fatalf("split sizes = %d/%d, want 80/20", len(train), len(test))
	}

	// Deterministic for a fixed seed.
	train2, test2 := Split(rs, 0.2, 42)
	if !reflect.DeepEqual(train, train2) || !reflect.DeepEqual(test, test2) {
		t.Error("split not deterministic for equal seeds")
	}

	// Disjoint and complete.
	seen := make(map[int]bool)
	for _, r := range append(append([]ratings.Rating{}, train...), test...) {
		if seen[r.UserID] {
			t.Fatalf("record %d appears twice", r.UserID)
		}
		seen[r.UserID] = true
	}
	if len(seen) != 100 {
		t.Errorf("records lost in split: %d", len(seen))
	}

	// Degenerate fractions keep everything in train.
	if tr, te := Split(rs, 0, 1); len(tr) != 100 || te != nil {
		t.Errorf("Split(0) = %d/%d", len(tr), len(te))
	}
}
