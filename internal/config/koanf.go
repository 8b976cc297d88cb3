// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ratemesh/config.yaml",
	"/etc/ratemesh/config.yml",
}

// ConfigPathEnvVar overrides the config file path when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. These are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8472,
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   100,
			RateLimitWindow: time.Minute,
		},
		Database: DatabaseConfig{
			Path:      "/data/ratemesh.duckdb",
			MaxMemory: "2GB",
			Threads:   0, // 0 = use runtime.NumCPU()
		},
		Data: DataConfig{
			RatingsPath: "/data/ratings.csv",
			ItemsPath:   "/data/items.csv",
			HoldoutPath: "",
		},
		Recommend: RecommendConfig{
			Metric:           "cosine",
			MinCommon:        2,
			Neighbors:        20,
			Mode:             "user",
			WarmThreshold:    5,
			ScaleMin:         1,
			ScaleMax:         5,
			WeightCF:         0.6,
			WeightContent:    0.3,
			WeightPopularity: 0.1,
			DiversityEnabled: true,
			DiversityStep:    0.1,
			DiversityFloor:   0.7,
			CacheEnabled:     true,
			CacheTTL:         5 * time.Minute,
			CacheMaxEntries:  10000,
			DefaultN:         10,
			MaxN:             100,
			RebuildInterval:  time.Hour,
			RebuildOnStartup: true,
			SnapshotDir:      "",
			SnapshotKeep:     3,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in defaults
//  2. Config file: optional YAML file (if one exists)
//  3. Environment variables: override any setting
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from environment variables.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice from the YAML file
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unmapped variables are skipped so random environment variables cannot
// pollute the configuration.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":         "server.host",
		"http_port":         "server.port",
		"http_timeout":      "server.timeout",
		"cors_origins":      "server.cors_origins",
		"rate_limit_reqs":   "server.rate_limit_reqs",
		"rate_limit_window": "server.rate_limit_window",

		// Database mappings
		"duckdb_path":       "database.path",
		"duckdb_max_memory": "database.max_memory",
		"duckdb_threads":    "database.threads",

		// Data source mappings
		"ratings_path": "data.ratings_path",
		"items_path":   "data.items_path",
		"holdout_path": "data.holdout_path",

		// Recommendation engine mappings
		"recommend_metric":             "recommend.metric",
		"recommend_min_common":         "recommend.min_common",
		"recommend_neighbors":          "recommend.neighbors",
		"recommend_mode":               "recommend.mode",
		"recommend_warm_threshold":     "recommend.warm_threshold",
		"recommend_scale_min":          "recommend.scale_min",
		"recommend_scale_max":          "recommend.scale_max",
		"recommend_weight_cf":          "recommend.weight_cf",
		"recommend_weight_content":     "recommend.weight_content",
		"recommend_weight_popularity":  "recommend.weight_popularity",
		"recommend_diversity_enabled":  "recommend.diversity_enabled",
		"recommend_diversity_step":     "recommend.diversity_step",
		"recommend_diversity_floor":    "recommend.diversity_floor",
		"recommend_cache_enabled":      "recommend.cache_enabled",
		"recommend_cache_ttl":          "recommend.cache_ttl",
		"recommend_cache_max_entries":  "recommend.cache_max_entries",
		"recommend_default_n":          "recommend.default_n",
		"recommend_max_n":              "recommend.max_n",
		"recommend_rebuild_interval":   "recommend.rebuild_interval",
		"recommend_rebuild_on_startup": "recommend.rebuild_on_startup",
		"recommend_snapshot_dir":       "recommend.snapshot_dir",
		"recommend_snapshot_keep":      "recommend.snapshot_keep",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}

	return ""
}
