// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaultConfig() failed validation: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, true},
		{"zero timeout", func(c *Config) { c.Server.Timeout = 0 }, true},
		{"empty db path", func(c *Config) { c.Database.Path = "" }, true},
		{"negative threads", func(c *Config) { c.Database.Threads = -1 }, true},
		{"inverted scale", func(c *Config) { c.Recommend.ScaleMin = 5; c.Recommend.ScaleMax = 1 }, true},
		{"negative rebuild interval", func(c *Config) { c.Recommend.RebuildInterval = -time.Minute }, true},
		{"negative snapshot keep", func(c *Config) { c.Recommend.SnapshotKeep = -1 }, true},
		{"bad log level", func(c *Config) { c.Logging.Level = "verbose" }, true},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, true},
		{"console format", func(c *Config) { c.Logging.Format = "console" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	// Run from a directory with no config file so only defaults apply.
	t.Chdir(t.TempDir())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8472 {
		t.Errorf("Server.Port = %d, want 8472", cfg.Server.Port)
	}
	if cfg.Recommend.Metric != "cosine" {
		t.Errorf("Recommend.Metric = %q, want cosine", cfg.Recommend.Metric)
	}
	if cfg.Recommend.WeightCF != 0.6 {
		t.Errorf("Recommend.WeightCF = %v, want 0.6", cfg.Recommend.WeightCF)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("RECOMMEND_METRIC", "pearson")
	t.Setenv("RECOMMEND_NEIGHBORS", "35")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Recommend.Metric != "pearson" {
		t.Errorf("Recommend.Metric = %q, want pearson", cfg.Recommend.Metric)
	}
	if cfg.Recommend.Neighbors != 35 {
		t.Errorf("Recommend.Neighbors = %d, want 35", cfg.Recommend.Neighbors)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("Server.CORSOrigins = %v, want %v", cfg.Server.CORSOrigins, want)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 8080
recommend:
  mode: item
  warm_threshold: 3
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Recommend.Mode != "item" {
		t.Errorf("Recommend.Mode = %q, want item", cfg.Recommend.Mode)
	}
	if cfg.Recommend.WarmThreshold != 3 {
		t.Errorf("Recommend.WarmThreshold = %d, want 3", cfg.Recommend.WarmThreshold)
	}
	// Untouched fields keep their defaults.
	if cfg.Recommend.Neighbors != 20 {
		t.Errorf("Recommend.Neighbors = %d, want 20", cfg.Recommend.Neighbors)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("HTTP_PORT", "0")

	if _, err := Load(); err == nil {
		t.Error("Load() should reject port 0")
	}
}

func TestEnvTransformSkipsUnknown(t *testing.T) {
	if got := envTransformFunc("PATH"); got != "" {
		t.Errorf("envTransformFunc(PATH) = %q, want empty", got)
	}
	if got := envTransformFunc("DUCKDB_PATH"); got != "database.path" {
		t.Errorf("envTransformFunc(DUCKDB_PATH) = %q, want database.path", got)
	}
}
