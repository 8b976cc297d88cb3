// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ratemesh/ratemesh/internal/config"
	"github.com/ratemesh/ratemesh/internal/ratings"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(&config.DatabaseConfig{
		Path:      ":memory:",
		MaxMemory: "512MB",
		Threads:   2,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func writeCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestNewCreatesSchema(t *testing.T) {
	db := testDB(t)

	if err := db.Ping(context.Background()); err != nil {
		t.Errorf("Ping() error = %v", err)
	}

	n, err := db.CountRatings(context.Background())
	if err != nil {
		t.Fatalf("CountRatings() error = %v", err)
	}
	if n != 0 {
		t.Errorf("CountRatings() = %d, want 0", n)
	}
}

func TestIngestRatingsCSV(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	path := writeCSV(t, "ratings.csv", "user_id,item_id,rating\n1,1,5.0\n1,2,3.0\n2,1,4.0\n")
	rows, err := db.IngestRatingsCSV(ctx, path)
	if err != nil {
		t.Fatalf("IngestRatingsCSV() error = %v", err)
	}
	if rows != 3 {
		t.Errorf("rows = %d, want 3", rows)
	}

	rs, err := db.GetRatings(ctx)
	if err != nil {
		t.Fatalf("GetRatings() error = %v", err)
	}
	want := []ratings.Rating{
		{UserID: 1, ItemID: 1, Value: 5.0},
		{UserID: 1, ItemID: 2, Value: 3.0},
		{UserID: 2, ItemID: 1, Value: 4.0},
	}
	if len(rs) != len(want) {
		t.Fatalf("len(GetRatings()) = %d, want %d", len(rs), len(want))
	}
	for i := range want {
		if rs[i] != want[i] {
			t.Errorf("ratings[%d] = %+v, want %+v", i, rs[i], want[i])
		}
	}
}

func TestIngestReplacesExisting(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	first := writeCSV(t, "first.csv", "user_id,item_id,rating\n1,1,5.0\n1,2,3.0\n")
	if _, err := db.IngestRatingsCSV(ctx, first); err != nil {
		t.Fatal(err)
	}

	second := writeCSV(t, "second.csv", "user_id,item_id,rating\n7,7,2.0\n")
	if _, err := db.IngestRatingsCSV(ctx, second); err != nil {
		t.Fatal(err)
	}

	rs, err := db.GetRatings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].UserID != 7 {
		t.Errorf("GetRatings() = %+v, want single rating from second file", rs)
	}
}

func TestIngestItemsCSV(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	path := writeCSV(t, "items.csv",
		"item_id,title,category,year\n1,Dune,scifi,1965\n2,Emma,classic,1815\n")
	rows, err := db.IngestItemsCSV(ctx, path)
	if err != nil {
		t.Fatalf("IngestItemsCSV() error = %v", err)
	}
	if rows != 2 {
		t.Errorf("rows = %d, want 2", rows)
	}

	items, err := db.GetItems(ctx)
	if err != nil {
		t.Fatalf("GetItems() error = %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("len(GetItems()) = %d, want 2", len(items))
	}
	if items[0].Title != "Dune" || items[0].Category != "scifi" || items[0].Year != 1965 {
		t.Errorf("items[0] = %+v", items[0])
	}
}

func TestIngestMissingFile(t *testing.T) {
	db := testDB(t)

	if _, err := db.IngestRatingsCSV(context.Background(), "/nonexistent/ratings.csv"); err == nil {
		t.Error("IngestRatingsCSV() should fail for missing file")
	}
}

func TestIngestHoldoutCSV(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	path := writeCSV(t, "holdout.csv", "user_id,item_id,rating\n1,9,4.0\n")
	if _, err := db.IngestHoldoutCSV(ctx, path); err != nil {
		t.Fatalf("IngestHoldoutCSV() error = %v", err)
	}

	holdout, err := db.GetHoldoutRatings(ctx)
	if err != nil {
		t.Fatalf("GetHoldoutRatings() error = %v", err)
	}
	if len(holdout) != 1 || holdout[0].ItemID != 9 {
		t.Errorf("GetHoldoutRatings() = %+v", holdout)
	}

	// Holdout ingestion must not touch the main ratings table.
	rs, err := db.GetRatings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 0 {
		t.Errorf("GetRatings() = %+v, want empty", rs)
	}
}

func TestUpsertRating(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if err := db.UpsertRating(ctx, ratings.Rating{UserID: 1, ItemID: 1, Value: 3.0}); err != nil {
		t.Fatalf("UpsertRating() error = %v", err)
	}
	if err := db.UpsertRating(ctx, ratings.Rating{UserID: 1, ItemID: 1, Value: 4.5}); err != nil {
		t.Fatalf("UpsertRating() update error = %v", err)
	}

	rs, err := db.GetRatings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(rs) != 1 || rs[0].Value != 4.5 {
		t.Errorf("GetRatings() = %+v, want single rating 4.5", rs)
	}
}

func TestQuotePath(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"/data/ratings.csv", "'/data/ratings.csv'"},
		{"/data/it's.csv", "'/data/it''s.csv'"},
	}
	for _, tt := range tests {
		if got := quotePath(tt.input); got != tt.want {
			t.Errorf("quotePath(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}
