// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package main is the entry point for the RateMesh server.
//
// RateMesh serves rating predictions and top-N recommendations over a
// REST API. The server initializes components in the following order:
//
//  1. Configuration: layered Koanf v2 load (defaults, config file, env)
//  2. Database: DuckDB with the ratings, items, and holdout tables
//  3. Data ingestion: CSV sources loaded via read_csv_auto (if configured)
//  4. Engine: neighborhood model built from the database or restored
//     from the latest snapshot
//  5. Supervisor tree: rebuild scheduler and HTTP server under suture
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest
// priority wins):
//   - Environment variables (HTTP_PORT, DUCKDB_PATH, RECOMMEND_MODE, ...)
//   - Config file (config.yaml, or the path in CONFIG_PATH)
//   - Built-in defaults
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, drains in-flight requests within the shutdown
// timeout, and checkpoints the database on close.
//
// # Example Usage
//
//	export RATINGS_PATH=/data/ratings.csv
//	export ITEMS_PATH=/data/items.csv
//	export RECOMMEND_MODE=item
//	./ratemesh
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ratemesh/ratemesh/internal/api"
	"github.com/ratemesh/ratemesh/internal/config"
	"github.com/ratemesh/ratemesh/internal/database"
	"github.com/ratemesh/ratemesh/internal/logging"
	"github.com/ratemesh/ratemesh/internal/ratings"
	"github.com/ratemesh/ratemesh/internal/recommend"
	"github.com/ratemesh/ratemesh/internal/recommend/storage"
	"github.com/ratemesh/ratemesh/internal/supervisor"
	"github.com/ratemesh/ratemesh/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Config is not available yet, so this uses the default logger.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("mode", cfg.Recommend.Mode).
		Str("metric", cfg.Recommend.Metric).
		Msg("Starting RateMesh")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestSources(ctx, db, &cfg.Data)

	engine, err := recommend.NewEngine(engineConfig(&cfg.Recommend), logging.WithComponent("engine"))
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create recommendation engine")
	}

	var store *storage.Store
	if cfg.Recommend.SnapshotDir != "" {
		store, err = storage.NewStore(cfg.Recommend.SnapshotDir)
		if err != nil {
			logging.Fatal().Err(err).Str("dir", cfg.Recommend.SnapshotDir).Msg("Failed to open snapshot store")
		}
		if _, ok := store.LatestVersion(); ok {
			if report, err := engine.LoadSnapshot(ctx, store); err != nil {
				logging.Warn().Err(err).Msg("Snapshot restore failed, model will be built from the database")
			} else {
				logging.Info().
					Int("ratings", report.Ratings).
					Int("users", report.Users).
					Msg("Model restored from snapshot")
			}
		}
	}

	handler := api.NewHandler(engine, db)
	router := api.NewRouter(handler, api.RouterConfig{
		CORSOrigins:     cfg.Server.CORSOrigins,
		RateLimitReqs:   cfg.Server.RateLimitReqs,
		RateLimitWindow: cfg.Server.RateLimitWindow,
		Timeout:         cfg.Server.Timeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// sutureslog needs an slog.Logger, so the supervisor gets the
	// zerolog-backed adapter.
	tree, err := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	rebuildOnStartup := cfg.Recommend.RebuildOnStartup && !engine.Ready()
	tree.AddModelService(services.NewRebuildService(engine, db, store, services.RebuildServiceConfig{
		RebuildOnStartup: rebuildOnStartup,
		Interval:         cfg.Recommend.RebuildInterval,
		SnapshotKeep:     cfg.Recommend.SnapshotKeep,
	}, logging.WithComponent("rebuild")))

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Server stopped gracefully")
}

// ingestSources loads the configured CSV sources into DuckDB. Missing
// configuration is fine; ingest failures are fatal because the model
// would otherwise be built from stale data.
func ingestSources(ctx context.Context, db *database.DB, data *config.DataConfig) {
	if data.RatingsPath != "" {
		n, err := db.IngestRatingsCSV(ctx, data.RatingsPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", data.RatingsPath).Msg("Failed to ingest ratings CSV")
		}
		logging.Info().Int64("rows", n).Str("path", data.RatingsPath).Msg("Ratings ingested")
	}
	if data.ItemsPath != "" {
		n, err := db.IngestItemsCSV(ctx, data.ItemsPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", data.ItemsPath).Msg("Failed to ingest items CSV")
		}
		logging.Info().Int64("rows", n).Str("path", data.ItemsPath).Msg("Items ingested")
	}
	if data.HoldoutPath != "" {
		n, err := db.IngestHoldoutCSV(ctx, data.HoldoutPath)
		if err != nil {
			logging.Fatal().Err(err).Str("path", data.HoldoutPath).Msg("Failed to ingest holdout CSV")
		}
		logging.Info().Int64("rows", n).Str("path", data.HoldoutPath).Msg("Holdout ratings ingested")
	}
}

// engineConfig translates the flat server configuration into the engine
// config.
func engineConfig(rc *config.RecommendConfig) recommend.Config {
	return recommend.Config{
		Metric:        rc.Metric,
		MinCommon:     rc.MinCommon,
		Neighbors:     rc.Neighbors,
		Mode:          rc.Mode,
		WarmThreshold: rc.WarmThreshold,
		Weights: recommend.Weights{
			CF:         rc.WeightCF,
			Content:    rc.WeightContent,
			Popularity: rc.WeightPopularity,
		},
		Diversity: recommend.DiversityConfig{
			Enabled: rc.DiversityEnabled,
			Step:    rc.DiversityStep,
			Floor:   rc.DiversityFloor,
		},
		Cache: recommend.CacheConfig{
			Enabled:    rc.CacheEnabled,
			TTL:        rc.CacheTTL,
			MaxEntries: rc.CacheMaxEntries,
		},
		DefaultN: rc.DefaultN,
		MaxN:     rc.MaxN,
		Scale:    ratings.Scale{Min: rc.ScaleMin, Max: rc.ScaleMax},
	}
}
