// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend"
	"github.com/ratemesh/ratemesh/internal/recommend/storage"
)

// RatingSource provides the current ratings and item catalog. Satisfied
// by *database.DB.
type RatingSource interface {
	GetRatings(ctx context.Context) ([]ratings.Rating, error)
	GetItems(ctx context.Context) ([]ratings.Item, error)
}

// ModelEngine is the subset of the recommendation engine the rebuild
// service drives.
type ModelEngine interface {
	Rebuild(ctx context.Context, rs []ratings.Rating, items []ratings.Item) (*recommend.BuildReport, error)
	SaveSnapshot(ctx context.Context, store *storage.Store) (*storage.SnapshotMetadata, error)
}

// RebuildServiceConfig holds configuration for the rebuild service.
type RebuildServiceConfig struct {
	// RebuildOnStartup triggers a rebuild when the service starts.
	RebuildOnStartup bool

	// Interval is how often to rebuild the model. Non-positive disables
	// periodic rebuilds.
	Interval time.Duration

	// SnapshotKeep is how many snapshot versions to retain after each
	// save. Zero disables pruning.
	SnapshotKeep int
}

// RebuildService periodically rebuilds the model from the rating source
// and persists a snapshot after each successful rebuild.
type RebuildService struct {
	engine ModelEngine
	source RatingSource
	store  *storage.Store
	config RebuildServiceConfig
	logger zerolog.Logger
	name   string
}

// NewRebuildService creates a rebuild service. The store may be nil, in
// which case no snapshots are written.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewRebuildService(engine ModelEngine, source RatingSource, store *storage.Store, cfg RebuildServiceConfig, logger zerolog.Logger) *RebuildService {
	return &RebuildService{
		engine: engine,
		source: source,
		store:  store,
		config: cfg,
		logger: logger.With().Str("service", "rebuild").Logger(),
		name:   "rebuild-service",
	}
}

// Serve implements suture.Service. It runs the rebuild loop until the
// context is canceled.
func (s *RebuildService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("rebuild_on_startup", s.config.RebuildOnStartup).
		Dur("interval", s.config.Interval).
		Msg("rebuild service starting")

	if s.config.RebuildOnStartup {
		if err := s.rebuild(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("initial rebuild failed (will retry on schedule)")
		}
	}

	// A non-positive interval disables the schedule; the service then only
	// covers the startup rebuild and stays idle until shutdown.
	if s.config.Interval <= 0 {
		s.logger.Info().Msg("periodic rebuilds disabled")
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("rebuild service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.rebuild(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("scheduled rebuild failed")
			}
		}
	}
}

// rebuild performs one rebuild cycle: load, build, snapshot, prune.
func (s *RebuildService) rebuild(ctx context.Context) error {
	buildCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	start := time.Now()

	rs, err := s.source.GetRatings(buildCtx)
	if err != nil {
		return err
	}
	items, err := s.source.GetItems(buildCtx)
	if err != nil {
		return err
	}

	report, err := s.engine.Rebuild(buildCtx, rs, items)
	if err != nil {
		return err
	}

	s.logger.Info().
		Int("ratings", report.Ratings).
		Int("users", report.Users).
		Int("items", report.Items).
		Dur("duration", time.Since(start)).
		Msg("model rebuild complete")

	if s.store == nil {
		return nil
	}

	meta, err := s.engine.SaveSnapshot(buildCtx, s.store)
	if err != nil {
		s.logger.Warn().Err(err).Msg("snapshot save failed")
		return nil
	}
	s.logger.Info().
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("snapshot saved")

	if s.config.SnapshotKeep > 0 {
		if err := s.store.Prune(buildCtx, s.config.SnapshotKeep); err != nil {
			s.logger.Warn().Err(err).Msg("snapshot prune failed")
		}
	}
	return nil
}

// String returns the service name for logging.
func (s *RebuildService) String() string {
	return s.name
}
