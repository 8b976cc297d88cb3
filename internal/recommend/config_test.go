// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package recommend

import (
	"errors"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantField string
	}{
		{
			name:      "bad metric",
			mutate:    func(c *Config) { c.Metric = "euclidean" },
			wantField: "metric",
		},
		{
			name:      "bad mode",
			mutate:    func(c *Config) { c.Mode = "matrix" },
			wantField: "mode",
		},
		{
			name:      "negative weight",
			mutate:    func(c *Config) { c.Weights.Content = -0.1 },
			wantField: "weights",
		},
		{
			name:      "zero weight sum",
			mutate:    func(c *Config) { c.Weights = Weights{} },
			wantField: "weights",
		},
		{
			name:      "zero neighbors",
			mutate:    func(c *Config) { c.Neighbors = 0 },
			wantField: "neighbors",
		},
		{
			name:      "zero min common",
			mutate:    func(c *Config) { c.MinCommon = 0 },
			wantField: "min_common",
		},
		{
			name:      "diversity step out of range",
			mutate:    func(c *Config) { c.Diversity.Step = 1.5 },
			wantField: "diversity.step",
		},
		{
			name:      "diversity floor out of range",
			mutate:    func(c *Config) { c.Diversity.Floor = 0 },
			wantField: "diversity.floor",
		},
		{
			name:      "max below default n",
			mutate:    func(c *Config) { c.MaxN = 5; c.DefaultN = 10 },
			wantField: "max_n",
		},
		{
			name:      "inverted scale",
			mutate:    func(c *Config) { c.Scale.Min = 5; c.Scale.Max = 1 },
			wantField: "scale",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			var ce *ConfigurationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected *ConfigurationError, got %T", err)
			}
			if ce.Field != tt.wantField {
				t.Errorf("field = %q, want %q", ce.Field, tt.wantField)
			}
		})
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"", StrategyAuto, false},
		{"auto", StrategyAuto, false},
		{"user_based", StrategyUserBased, false},
		{"item_based", StrategyItemBased, false},
		{"hybrid", StrategyHybrid, false},
		{"svd", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseStrategy(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
