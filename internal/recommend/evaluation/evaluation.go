// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package evaluation measures prediction accuracy and recommendation
// quality against a held-out test set. It sits beside the serving path and
// never feeds back into it.
package evaluation

import (
	"math"
	"math/rand"
	"sort"

	"github.com/ratemesh/ratemesh/internal/ratings"
)

// DefaultRelevance is the test rating at or above which an item counts as
// relevant for the ranking metrics, on a five-point scale.
const DefaultRelevance = 4.0

// Predictor is the point-prediction surface under evaluation. ok is false
// when the model abstains; abstentions lower coverage, they are not errors.
type Predictor interface {
	PredictRating(userID, itemID int) (float64, bool)
}

// Recommender is the ranking surface under evaluation.
type Recommender interface {
	RecommendIDs(userID, n int) []int
}

// Accuracy holds point-prediction error metrics over a test set.
type Accuracy struct {
	MAE      float64 `json:"mae"`
	RMSE     float64 `json:"rmse"`
	Coverage float64 `json:"coverage"`
	// Predicted counts test pairs the model scored; Total is the test set
	// size. MAE and RMSE are means over Predicted pairs only.
	Predicted int `json:"predicted"`
	Total     int `json:"total"`
}

// Ranking holds top-k recommendation quality metrics.
type Ranking struct {
	PrecisionAtK    float64 `json:"precision_at_k"`
	RecallAtK       float64 `json:"recall_at_k"`
	F1AtK           float64 `json:"f1_at_k"`
	CatalogCoverage float64 `json:"catalog_coverage"`
	Diversity       float64 `json:"diversity"`
	// EvaluatedUsers counts users with at least one relevant test item;
	// users with none are excluded from the averages, not scored as zero.
	EvaluatedUsers int `json:"evaluated_users"`
}

// Report is the combined evaluation result.
type Report struct {
	Accuracy Accuracy `json:"accuracy"`
	Ranking  Ranking  `json:"ranking"`
	K        int      `json:"k"`
}

// Config drives one evaluation pass.
type Config struct {
	// K is the recommendation list length for the ranking metrics.
	K int
	// Relevance is the minimum test rating for an item to count as
	// relevant. Zero means DefaultRelevance.
	Relevance float64
	// CatalogSize is the denominator for catalog coverage. Zero disables
	// that metric.
	CatalogSize int
	// CategoryOf resolves item categories for the diversity metric. Nil
	// disables that metric.
	CategoryOf func(itemID int) (string, bool)
}

// EvaluateAccuracy scores every test pair the predictor is willing to score
// and aggregates MAE, RMSE, and coverage. With zero predictions MAE and
// RMSE are reported as 0 alongside Predicted == 0.
func EvaluateAccuracy(p Predictor, test []ratings.Rating) Accuracy {
	acc := Accuracy{Total: len(test)}
	var absSum, sqSum float64
	for _, r := range test {
		predicted, ok := p.PredictRating(r.UserID, r.ItemID)
		if !ok {
			continue
		}
		err := predicted - r.Value
		absSum += math.Abs(err)
		sqSum += err * err
		acc.Predicted++
	}
	if acc.Predicted > 0 {
		n := float64(acc.Predicted)
		acc.MAE = absSum / n
		acc.RMSE = math.Sqrt(sqSum / n)
	}
	if acc.Total > 0 {
		acc.Coverage = float64(acc.Predicted) / float64(acc.Total)
	}
	return acc
}

// EvaluateRanking computes Precision@k, Recall@k, F1@k, catalog coverage,
// and genre diversity over per-user recommendation lists.
func EvaluateRanking(r Recommender, test []ratings.Rating, cfg Config) Ranking {
	if cfg.Relevance == 0 {
		cfg.Relevance = DefaultRelevance
	}
	k := cfg.K
	if k <= 0 {
		k = 10
	}

	relevantByUser := make(map[int]map[int]bool)
	for _, t := range test {
		if t.Value < cfg.Relevance {
			continue
		}
		rel, ok := relevantByUser[t.UserID]
		if !ok {
			rel = make(map[int]bool)
			relevantByUser[t.UserID] = rel
		}
		rel[t.ItemID] = true
	}

	userIDs := make([]int, 0, len(relevantByUser))
	for id := range relevantByUser {
		userIDs = append(userIDs, id)
	}
	sort.Ints(userIDs)

	var rank Ranking
	var precisionSum, recallSum, diversitySum float64
	recommendedUnion := make(map[int]bool)

	for _, userID := range userIDs {
		relevant := relevantByUser[userID]
		recommended := r.RecommendIDs(userID, k)

		hits := 0
		for _, itemID := range recommended {
			recommendedUnion[itemID] = true
			if relevant[itemID] {
				hits++
			}
		}
		precisionSum += float64(hits) / float64(k)
		recallSum += float64(hits) / float64(len(relevant))
		if cfg.CategoryOf != nil && len(recommended) > 0 {
			diversitySum += listDiversity(recommended, cfg.CategoryOf)
		}
		rank.EvaluatedUsers++
	}

	if rank.EvaluatedUsers == 0 {
		return rank
	}
	n := float64(rank.EvaluatedUsers)
	rank.PrecisionAtK = precisionSum / n
	rank.RecallAtK = recallSum / n
	if rank.PrecisionAtK+rank.RecallAtK > 0 {
		rank.F1AtK = 2 * rank.PrecisionAtK * rank.RecallAtK / (rank.PrecisionAtK + rank.RecallAtK)
	}
	if cfg.CatalogSize > 0 {
		rank.CatalogCoverage = float64(len(recommendedUnion)) / float64(cfg.CatalogSize)
	}
	if cfg.CategoryOf != nil {
		rank.Diversity = diversitySum / n
	}
	return rank
}

// listDiversity is the fraction of distinct categories in one list.
func listDiversity(itemIDs []int, categoryOf func(int) (string, bool)) float64 {
	cats := make(map[string]bool)
	for _, id := range itemIDs {
		if cat, ok := categoryOf(id); ok {
			cats[cat] = true
		}
	}
	return float64(len(cats)) / float64(len(itemIDs))
}

// Evaluate runs both metric families in one pass.
func Evaluate(p Predictor, r Recommender, test []ratings.Rating, cfg Config) *Report {
	k := cfg.K
	if k <= 0 {
		k = 10
	}
	return &Report{
		Accuracy: EvaluateAccuracy(p, test),
		Ranking:  EvaluateRanking(r, test, cfg),
		K:        k,
	}
}

// Split partitions ratings into train and test sets by the given test
// fraction, deterministic for a fixed seed. Used when the caller has no
// pre-built holdout.
func Split(rs []ratings.Rating, testFraction float64, seed int64) (train, test []ratings.Rating) {
	if testFraction <= 0 || testFraction >= 1 || len(rs) == 0 {
		return rs, nil
	}
	shuffled := make([]ratings.Rating, len(rs))
	copy(shuffled, rs)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	cut := int(float64(len(shuffled)) * testFraction)
	if cut == 0 {
		cut = 1
	}
	return shuffled[cut:], shuffled[:cut]
}
