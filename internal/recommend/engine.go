// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ratemesh/ratemesh/internal/metrics"
	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend/algorithms"
	"github.com/ratemesh/ratemesh/internal/recommend/evaluation"
	"github.com/ratemesh/ratemesh/internal/recommend/reranking"
	"github.com/ratemesh/ratemesh/internal/recommend/similarity"
	"github.com/ratemesh/ratemesh/internal/recommend/storage"
)

// ErrNotReady is returned before the first successful Rebuild.
var ErrNotReady = errors.New("recommendation model not built yet")

// model is one immutable trained snapshot. Everything in it is derived from
// the matrix and catalog it was built with; swapping the snapshot discards
// all of it together.
type model struct {
	version  int
	builtAt  time.Time
	matrix   *ratings.Matrix
	catalog  *ratings.Catalog
	userSims *similarity.Engine
	itemSims *similarity.Engine

	cf         algorithms.NeighborhoodScorer // userKNN or itemKNN per config mode
	userKNN    *algorithms.UserKNN
	itemKNN    *algorithms.ItemKNN
	content    *algorithms.ContentBased
	popularity *algorithms.Popularity
	coldstart  *algorithms.ColdStart
	reranker   *reranking.CategoryPenalty
}

// Engine serves predictions and recommendations from the current model
// snapshot. Safe for concurrent use; Rebuild swaps snapshots atomically
// under requests in flight.
type Engine struct {
	cfg    Config
	logger zerolog.Logger

	mu      sync.RWMutex
	model   *model
	version int

	cache *responseCache
}

// NewEngine validates the configuration and creates an empty engine. Serve
// paths return ErrNotReady until the first Rebuild.
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		logger: logger.With().Str("component", "recommend").Logger(),
		cache:  newResponseCache(cfg.Cache.TTL, cfg.Cache.MaxEntries),
	}, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// BuildReport summarizes one Rebuild pass.
type BuildReport struct {
	Version  int                 `json:"version"`
	Users    int                 `json:"users"`
	Items    int                 `json:"items"`
	Ratings  int                 `json:"ratings"`
	Catalog  int                 `json:"catalog"`
	Load     *ratings.LoadReport `json:"ratings_load"`
	Metadata *ratings.LoadReport `json:"catalog_load"`
	Duration time.Duration       `json:"duration"`
}

// Rebuild constructs a fresh snapshot from the given data and swaps it in.
// Malformed records are skipped and reported, not fatal. The response cache
// is flushed so no list computed against the old snapshot survives.
func (e *Engine) Rebuild(ctx context.Context, rs []ratings.Rating, items []ratings.Item) (*BuildReport, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	matrix, loadReport := ratings.BuildMatrix(rs, e.cfg.Scale)
	catalog, catReport := ratings.NewCatalog(items)

	metric := similarity.Metric(e.cfg.Metric)
	m := &model{
		builtAt:  time.Now().UTC(),
		matrix:   matrix,
		catalog:  catalog,
		userSims: similarity.New(metric, e.cfg.MinCommon, matrix.Row),
		itemSims: similarity.New(metric, e.cfg.MinCommon, matrix.Column),
	}
	m.userKNN = algorithms.NewUserKNN(matrix, m.userSims, e.cfg.Neighbors)
	m.itemKNN = algorithms.NewItemKNN(matrix, m.itemSims, e.cfg.Neighbors)
	if e.cfg.Mode == ModeItem {
		m.cf = m.itemKNN
	} else {
		m.cf = m.userKNN
	}
	m.content = algorithms.NewContentBased(matrix, catalog)
	m.popularity = algorithms.NewPopularity(matrix)
	m.coldstart = algorithms.NewColdStart(matrix, m.content, m.popularity, e.cfg.WarmThreshold)
	if e.cfg.Diversity.Enabled {
		m.reranker = reranking.NewCategoryPenalty(catalog.Category, e.cfg.Diversity.Step, e.cfg.Diversity.Floor)
	}

	e.mu.Lock()
	e.version++
	m.version = e.version
	e.model = m
	e.mu.Unlock()
	e.cache.flush()

	duration := time.Since(start)
	metrics.RecordModelRebuild(duration, matrix.UserCount(), matrix.ItemCount(), matrix.Len())
	e.logger.Info().
		Int("version", m.version).
		Int("users", matrix.UserCount()).
		Int("items", matrix.ItemCount()).
		Int("ratings", matrix.Len()).
		Int("skipped", loadReport.Skipped+catReport.Skipped).
		Dur("duration", duration).
		Msg("model rebuilt")

	return &BuildReport{
		Version:  m.version,
		Users:    matrix.UserCount(),
		Items:    matrix.ItemCount(),
		Ratings:  matrix.Len(),
		Catalog:  catalog.Size(),
		Load:     loadReport,
		Metadata: catReport,
		Duration: duration,
	}, nil
}

// Ready reports whether a snapshot has been built.
func (e *Engine) Ready() bool {
	return e.snapshot() != nil
}

func (e *Engine) snapshot() *model {
	e.mu.RLock()
	m := e.model
	e.mu.RUnlock()
	return m
}

// Predict estimates one rating. The second return is false when the model
// abstains: an empty neighborhood is a value, not an error. An existing
// rating is returned unchanged, bypassing the neighborhood search entirely.
func (e *Engine) Predict(userID, itemID int) (Prediction, bool, error) {
	m := e.snapshot()
	if m == nil {
		return Prediction{}, false, ErrNotReady
	}

	if v, ok := m.matrix.Get(userID, itemID); ok {
		return Prediction{
			UserID:    userID,
			ItemID:    itemID,
			Value:     v,
			ExactHit:  true,
			Algorithm: "exact",
		}, true, nil
	}

	v, neighbors, ok := m.cf.ScoreDetail(userID, itemID)
	metrics.RecordPrediction(m.cf.Name(), ok)
	return Prediction{
		UserID:    userID,
		ItemID:    itemID,
		Value:     v,
		Neighbors: neighbors,
		Algorithm: m.cf.Name(),
	}, ok, nil
}

// PredictRating adapts Predict to the evaluation surface.
func (e *Engine) PredictRating(userID, itemID int) (float64, bool) {
	p, ok, err := e.Predict(userID, itemID)
	if err != nil || !ok {
		return 0, false
	}
	return p.Value, true
}

// Recommend produces a ranked list for one user. Identical requests against
// the same snapshot yield identical lists.
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := e.snapshot()
	if m == nil {
		return nil, ErrNotReady
	}

	strategy := req.Strategy
	if strategy == "" {
		strategy = StrategyAuto
	}
	n := req.N
	if n <= 0 {
		n = e.cfg.DefaultN
	}
	if n > e.cfg.MaxN {
		n = e.cfg.MaxN
	}

	key := fmt.Sprintf("rec:%d:%d:%s:v%d", req.UserID, n, strategy, m.version)
	if e.cfg.Cache.Enabled {
		if cached, ok := e.cache.get(key); ok {
			metrics.RecordRecCacheHit()
			hit := *cached
			hit.Cached = true
			return &hit, nil
		}
		metrics.RecordRecCacheMiss()
	}

	start := time.Now()
	state := m.coldstart.State(req.UserID)

	var scored []algorithms.Scored
	var breakdown map[int]map[string]float64
	switch strategy {
	case StrategyUserBased:
		scored = m.userKNN.Recommend(req.UserID, n)
	case StrategyItemBased:
		scored = m.itemKNN.Recommend(req.UserID, n)
	case StrategyHybrid:
		scored, breakdown = m.hybrid(req.UserID, n, e.cfg.Weights)
	case StrategyAuto:
		// Warm users go straight to the configured collaborative filter;
		// hybrid blending stays an explicit opt-in.
		if state == algorithms.UserWarm {
			scored = m.cf.Recommend(req.UserID, n)
		} else {
			scored = m.coldstart.Recommend(req.UserID, n)
		}
	default:
		return nil, fmt.Errorf("unknown strategy %q", strategy)
	}

	resp := &Response{
		UserID:       req.UserID,
		Strategy:     strategy,
		UserState:    state.String(),
		Items:        m.enrich(scored, breakdown),
		ModelVersion: m.version,
		GeneratedAt:  time.Now().UTC(),
	}
	if e.cfg.Cache.Enabled {
		e.cache.put(key, resp)
	}
	metrics.RecordRecommendation(string(strategy), time.Since(start))

	e.logger.Debug().
		Int("user_id", req.UserID).
		Str("strategy", string(strategy)).
		Str("user_state", state.String()).
		Int("items", len(resp.Items)).
		Msg("recommendations generated")
	return resp, nil
}

// hybrid blends 2n candidates from each strategy. Every list is normalized
// to [0,1] by its own maximum before weighting, so strategies with
// different score ranges compete fairly; an item missing from a list simply
// contributes nothing from that strategy.
func (m *model) hybrid(userID, n int, w Weights) ([]algorithms.Scored, map[int]map[string]float64) {
	candidates := 2 * n
	combined := make(map[int]float64)
	breakdown := make(map[int]map[string]float64)

	blend := func(name string, weight float64, list []algorithms.Scored) {
		if weight == 0 || len(list) == 0 {
			return
		}
		var max float64
		for _, s := range list {
			if s.Score > max {
				max = s.Score
			}
		}
		if max <= 0 {
			return
		}
		for _, s := range list {
			contribution := weight * (s.Score / max)
			combined[s.ItemID] += contribution
			bd := breakdown[s.ItemID]
			if bd == nil {
				bd = make(map[string]float64, 3)
				breakdown[s.ItemID] = bd
			}
			bd[name] = contribution
		}
	}

	blend("cf", w.CF, m.cf.Recommend(userID, candidates))
	blend("content", w.Content, m.content.Recommend(userID, candidates))
	blend("popularity", w.Popularity, m.popularity.Recommend(userID, candidates))

	scored := make([]algorithms.Scored, 0, len(combined))
	for itemID, score := range combined {
		scored = append(scored, algorithms.Scored{ItemID: itemID, Score: score})
	}
	if m.reranker != nil {
		scored = m.reranker.Apply(scored)
	}
	return algorithms.TopN(scored, n), breakdown
}

// enrich attaches catalog metadata and per-strategy score breakdowns.
func (m *model) enrich(scored []algorithms.Scored, breakdown map[int]map[string]float64) []ScoredItem {
	items := make([]ScoredItem, 0, len(scored))
	for _, s := range scored {
		item := ScoredItem{ItemID: s.ItemID, Score: s.Score}
		if meta, ok := m.catalog.Item(s.ItemID); ok {
			item.Title = meta.Title
			item.Category = meta.Category
		}
		if bd, ok := breakdown[s.ItemID]; ok {
			item.Scores = bd
		}
		items = append(items, item)
	}
	return items
}

// RecommendIDs adapts Recommend to the evaluation surface using the auto
// strategy.
func (e *Engine) RecommendIDs(userID, n int) []int {
	resp, err := e.Recommend(context.Background(), Request{UserID: userID, N: n, Strategy: StrategyAuto})
	if err != nil {
		return nil
	}
	ids := make([]int, 0, len(resp.Items))
	for _, item := range resp.Items {
		ids = append(ids, item.ItemID)
	}
	return ids
}

// SimilarItems returns the k nearest neighbors of one item in the item-item
// similarity space.
func (e *Engine) SimilarItems(itemID, k int) ([]similarity.Neighbor, error) {
	m := e.snapshot()
	if m == nil {
		return nil, ErrNotReady
	}
	if k <= 0 {
		k = e.cfg.DefaultN
	}
	return m.itemSims.TopK(itemID, m.matrix.ItemIDs(), k), nil
}

// Profile summarizes one user's history and cold-start classification.
func (e *Engine) Profile(userID int) (*UserProfile, error) {
	m := e.snapshot()
	if m == nil {
		return nil, ErrNotReady
	}
	return &UserProfile{
		UserID:        userID,
		State:         m.coldstart.State(userID).String(),
		RatingCount:   m.matrix.UserRatingCount(userID),
		CategoryMeans: m.content.CategoryMeans(userID),
		TopCategories: m.content.TopCategories(userID, 3),
	}, nil
}

// Evaluate scores the current snapshot against a held-out test set.
func (e *Engine) Evaluate(ctx context.Context, test []ratings.Rating, k int) (*evaluation.Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m := e.snapshot()
	if m == nil {
		return nil, ErrNotReady
	}
	start := time.Now()
	report := evaluation.Evaluate(e, e, test, evaluation.Config{
		K:           k,
		CatalogSize: m.catalog.Size(),
		CategoryOf:  m.catalog.Category,
	})
	metrics.RecordEvaluation(time.Since(start), len(test))
	e.logger.Info().
		Int("test_size", len(test)).
		Int("k", report.K).
		Float64("mae", report.Accuracy.MAE).
		Float64("rmse", report.Accuracy.RMSE).
		Float64("coverage", report.Accuracy.Coverage).
		Dur("duration", time.Since(start)).
		Msg("evaluation complete")
	return report, nil
}

// SaveSnapshot persists the current model's source data so a later process
// can restore it without re-ingesting.
func (e *Engine) SaveSnapshot(ctx context.Context, store *storage.Store) (*storage.SnapshotMetadata, error) {
	m := e.snapshot()
	if m == nil {
		return nil, ErrNotReady
	}
	meta, err := store.Save(ctx, m.version, storage.Snapshot{
		Ratings: m.matrix.Ratings(),
		Items:   m.catalog.Items(),
		Scale:   e.cfg.Scale,
		BuiltAt: m.builtAt,
	})
	if err != nil {
		return nil, fmt.Errorf("save snapshot: %w", err)
	}
	e.logger.Info().
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("snapshot saved")
	return meta, nil
}

// LoadSnapshot restores the latest persisted snapshot and rebuilds from it.
func (e *Engine) LoadSnapshot(ctx context.Context, store *storage.Store) (*BuildReport, error) {
	snap, meta, err := store.Load(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	report, err := e.Rebuild(ctx, snap.Ratings, snap.Items)
	if err != nil {
		return nil, err
	}
	e.logger.Info().
		Int("snapshot_version", meta.Version).
		Time("built_at", snap.BuiltAt).
		Msg("model restored from snapshot")
	return report, nil
}

// Status reports the current snapshot for the status endpoint.
func (e *Engine) Status() ModelStatus {
	m := e.snapshot()
	if m == nil {
		return ModelStatus{Metric: e.cfg.Metric}
	}
	return ModelStatus{
		Ready:           true,
		Version:         m.version,
		BuiltAt:         m.builtAt,
		Users:           m.matrix.UserCount(),
		Items:           m.matrix.ItemCount(),
		Ratings:         m.matrix.Len(),
		CatalogSize:     m.catalog.Size(),
		Metric:          e.cfg.Metric,
		CachedUserPairs: m.userSims.CachedPairs(),
		CachedItemPairs: m.itemSims.CachedPairs(),
	}
}
