// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package config holds application configuration loaded from defaults, an
// optional YAML file, and environment variables, in that order of precedence.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
//
// Loading order (Koanf v2):
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file
//  3. Environment variables: override any setting
//
// Config is immutable after Load() and safe for concurrent reads.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Database  DatabaseConfig  `koanf:"database"`
	Data      DataConfig      `koanf:"data"`
	Recommend RecommendConfig `koanf:"recommend"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	Timeout         time.Duration `koanf:"timeout"`
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
}

// DatabaseConfig holds DuckDB settings.
type DatabaseConfig struct {
	// Path is the database file, or ":memory:" for an in-memory database.
	Path string `koanf:"path"`

	// MaxMemory is DuckDB's memory limit, e.g. "2GB".
	MaxMemory string `koanf:"max_memory"`

	// Threads is the DuckDB thread count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`
}

// DataConfig points at the CSV sources ingested on startup.
type DataConfig struct {
	// RatingsPath is the ratings CSV (user_id, item_id, rating).
	RatingsPath string `koanf:"ratings_path"`

	// ItemsPath is the catalog CSV (item_id, title, category, year).
	ItemsPath string `koanf:"items_path"`

	// HoldoutPath is an optional held-out ratings CSV used by /evaluate
	// when the request does not carry its own test set.
	HoldoutPath string `koanf:"holdout_path"`
}

// RecommendConfig holds recommendation engine settings.
type RecommendConfig struct {
	Metric        string  `koanf:"metric"`
	MinCommon     int     `koanf:"min_common"`
	Neighbors     int     `koanf:"neighbors"`
	Mode          string  `koanf:"mode"`
	WarmThreshold int     `koanf:"warm_threshold"`
	ScaleMin      float64 `koanf:"scale_min"`
	ScaleMax      float64 `koanf:"scale_max"`

	WeightCF         float64 `koanf:"weight_cf"`
	WeightContent    float64 `koanf:"weight_content"`
	WeightPopularity float64 `koanf:"weight_popularity"`

	DiversityEnabled bool    `koanf:"diversity_enabled"`
	DiversityStep    float64 `koanf:"diversity_step"`
	DiversityFloor   float64 `koanf:"diversity_floor"`

	CacheEnabled    bool          `koanf:"cache_enabled"`
	CacheTTL        time.Duration `koanf:"cache_ttl"`
	CacheMaxEntries int           `koanf:"cache_max_entries"`

	DefaultN int `koanf:"default_n"`
	MaxN     int `koanf:"max_n"`

	// RebuildInterval is how often the model is rebuilt from the database.
	// Zero disables periodic rebuilds.
	RebuildInterval  time.Duration `koanf:"rebuild_interval"`
	RebuildOnStartup bool          `koanf:"rebuild_on_startup"`

	// SnapshotDir enables snapshot persistence when non-empty.
	SnapshotDir  string `koanf:"snapshot_dir"`
	SnapshotKeep int    `koanf:"snapshot_keep"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for values that cannot work.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path must not be empty")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("database.threads must not be negative, got %d", c.Database.Threads)
	}
	if c.Recommend.ScaleMin >= c.Recommend.ScaleMax {
		return fmt.Errorf("recommend.scale_min %v must be below recommend.scale_max %v",
			c.Recommend.ScaleMin, c.Recommend.ScaleMax)
	}
	if c.Recommend.RebuildInterval < 0 {
		return fmt.Errorf("recommend.rebuild_interval must not be negative, got %s", c.Recommend.RebuildInterval)
	}
	if c.Recommend.SnapshotKeep < 0 {
		return fmt.Errorf("recommend.snapshot_keep must not be negative, got %d", c.Recommend.SnapshotKeep)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "":
	default:
		return fmt.Errorf("logging.level %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("logging.format %q must be json or console", c.Logging.Format)
	}
	return nil
}
