// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package api provides the HTTP surface of the recommendation engine using
// the Chi router.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/ratemesh/ratemesh/internal/database"
	"github.com/ratemesh/ratemesh/internal/logging"
	"github.com/ratemesh/ratemesh/internal/models"
	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend"
)

// Handler serves the recommendation API endpoints.
type Handler struct {
	engine *recommend.Engine
	db     *database.DB
}

// NewHandler creates a Handler. db may be nil when the process runs without
// a database (snapshot-only mode); endpoints that need it return 503.
func NewHandler(engine *recommend.Engine, db *database.DB) *Handler {
	return &Handler{engine: engine, db: db}
}

// Health reports liveness plus model and database state.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := models.HealthStatus{
		Status:     "ok",
		ModelReady: h.engine.Ready(),
		Database:   "disabled",
		Timestamp:  time.Now(),
	}
	if h.db != nil {
		status.Database = "ok"
		if err := h.db.Ping(r.Context()); err != nil {
			status.Database = "unreachable"
			status.Status = "degraded"
		}
	}
	respondSuccess(w, status, time.Now(), false)
}

// Predict serves GET /api/v1/predict/{userID}/{itemID}. A model abstention
// is a success with a null prediction, not an error.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathInt(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid user id", err)
		return
	}
	itemID, err := pathInt(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid item id", err)
		return
	}

	p, ok, err := h.engine.Predict(userID, itemID)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	if !ok {
		respondSuccess(w, map[string]interface{}{
			"user_id":    userID,
			"item_id":    itemID,
			"prediction": nil,
			"reason":     "insufficient overlap with neighbors",
		}, start, false)
		return
	}
	respondSuccess(w, p, start, false)
}

// Recommendations serves GET /api/v1/recommendations/user/{userID}.
// Optional query parameters: n (list size), strategy.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathInt(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid user id", err)
		return
	}

	strategy, err := recommend.ParseStrategy(r.URL.Query().Get("strategy"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "unknown strategy", err)
		return
	}

	resp, err := h.engine.Recommend(r.Context(), recommend.Request{
		UserID:   userID,
		N:        getIntParam(r, "n", 0),
		Strategy: strategy,
	})
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondSuccess(w, resp, start, resp.Cached)
}

// SimilarItems serves GET /api/v1/recommendations/similar/{itemID}.
func (h *Handler) SimilarItems(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	itemID, err := pathInt(chi.URLParam(r, "itemID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid item id", err)
		return
	}

	neighbors, err := h.engine.SimilarItems(itemID, getIntParam(r, "k", 0))
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondSuccess(w, map[string]interface{}{
		"item_id":   itemID,
		"neighbors": neighbors,
	}, start, false)
}

// Profile serves GET /api/v1/users/{userID}/profile.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	userID, err := pathInt(chi.URLParam(r, "userID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, models.ErrCodeValidation, "invalid user id", err)
		return
	}

	profile, err := h.engine.Profile(userID)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondSuccess(w, profile, start, false)
}

// ModelStatus serves GET /api/v1/model/status.
func (h *Handler) ModelStatus(w http.ResponseWriter, r *http.Request) {
	respondSuccess(w, h.engine.Status(), time.Now(), false)
}

// ModelRebuild serves POST /api/v1/model/rebuild: reload source data from
// the database and swap in a fresh model.
func (h *Handler) ModelRebuild(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	if h.db == nil {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeUnavailable,
			"no database configured", nil)
		return
	}

	rs, err := h.db.GetRatings(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "failed to load ratings", err)
		return
	}
	items, err := h.db.GetItems(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "failed to load items", err)
		return
	}

	report, err := h.engine.Rebuild(r.Context(), rs, items)
	if err != nil {
		respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "rebuild failed", err)
		return
	}
	respondSuccess(w, report, start, false)
}

// Evaluate serves POST /api/v1/evaluate. The test set comes from the request
// body, falling back to the ingested holdout table.
func (h *Handler) Evaluate(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req models.EvaluateRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeInvalidInput, "malformed request body", err)
			return
		}
	}

	test := make([]ratings.Rating, 0, len(req.Ratings))
	for _, t := range req.Ratings {
		test = append(test, ratings.Rating{UserID: t.UserID, ItemID: t.ItemID, Value: t.Rating})
	}
	if len(test) == 0 {
		if h.db == nil {
			respondError(w, http.StatusBadRequest, models.ErrCodeInvalidInput,
				"no test ratings in request and no holdout set configured", nil)
			return
		}
		holdout, err := h.db.GetHoldoutRatings(r.Context())
		if err != nil {
			respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "failed to load holdout set", err)
			return
		}
		test = holdout
	}
	if len(test) == 0 {
		respondError(w, http.StatusBadRequest, models.ErrCodeInvalidInput, "empty test set", nil)
		return
	}

	report, err := h.engine.Evaluate(r.Context(), test, req.K)
	if err != nil {
		h.respondEngineError(w, err)
		return
	}
	respondSuccess(w, report, start, false)
}

// respondEngineError maps engine errors to HTTP responses.
func (h *Handler) respondEngineError(w http.ResponseWriter, err error) {
	if errors.Is(err, recommend.ErrNotReady) {
		respondError(w, http.StatusServiceUnavailable, models.ErrCodeNotReady,
			"model not built yet", nil)
		return
	}
	logging.Err(err).Msg("engine request failed")
	respondError(w, http.StatusInternalServerError, models.ErrCodeInternal, "internal error", err)
}
