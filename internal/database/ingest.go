// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ratemesh/ratemesh/internal/logging"
	"github.com/ratemesh/ratemesh/internal/metrics"
	"github.com/ratemesh/ratemesh/internal/ratings"
)

// quotePath escapes a file path for embedding in a DuckDB string literal.
// read_csv_auto takes the path as a literal, not a bind parameter.
func quotePath(path string) string {
	return "'" + strings.ReplaceAll(path, "'", "''") + "'"
}

// IngestRatingsCSV replaces the ratings table with the contents of a CSV
// file (user_id, item_id, rating). Returns the number of rows loaded.
func (db *DB) IngestRatingsCSV(ctx context.Context, path string) (int64, error) {
	return db.ingestRatingsTable(ctx, "ratings", path)
}

// IngestHoldoutCSV replaces the holdout_ratings table with the contents of a
// CSV file in the same format as the ratings CSV.
func (db *DB) IngestHoldoutCSV(ctx context.Context, path string) (int64, error) {
	return db.ingestRatingsTable(ctx, "holdout_ratings", path)
}

func (db *DB) ingestRatingsTable(ctx context.Context, table, path string) (int64, error) {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return 0, fmt.Errorf("clear %s: %w", table, err)
	}

	query := fmt.Sprintf(`INSERT INTO %s (user_id, item_id, rating)
		SELECT CAST(user_id AS INTEGER), CAST(item_id AS INTEGER), CAST(rating AS DOUBLE)
		FROM read_csv_auto(%s, header=true)`, table, quotePath(path))
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ingest %s from %s: %w", table, path, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest: %w", err)
	}

	rows, _ := res.RowsAffected()
	metrics.RecordIngestion(table, int(rows), 0)
	logging.Info().
		Str("table", table).
		Str("path", path).
		Int64("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("csv ingested")
	return rows, nil
}

// IngestItemsCSV replaces the items table with the contents of a CSV file
// (item_id, title, category, year). Returns the number of rows loaded.
func (db *DB) IngestItemsCSV(ctx context.Context, path string) (int64, error) {
	start := time.Now()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin ingest transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM items"); err != nil {
		return 0, fmt.Errorf("clear items: %w", err)
	}

	query := fmt.Sprintf(`INSERT INTO items (item_id, title, category, year)
		SELECT CAST(item_id AS INTEGER), CAST(title AS TEXT), CAST(category AS TEXT), CAST(year AS INTEGER)
		FROM read_csv_auto(%s, header=true)`, quotePath(path))
	res, err := tx.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("ingest items from %s: %w", path, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit ingest: %w", err)
	}

	rows, _ := res.RowsAffected()
	metrics.RecordIngestion("items", int(rows), 0)
	logging.Info().
		Str("table", "items").
		Str("path", path).
		Int64("rows", rows).
		Dur("duration", time.Since(start)).
		Msg("csv ingested")
	return rows, nil
}

// GetRatings returns all ratings ordered by user then item.
func (db *DB) GetRatings(ctx context.Context) ([]ratings.Rating, error) {
	return db.queryRatings(ctx, "ratings")
}

// GetHoldoutRatings returns the held-out test set, if any was ingested.
func (db *DB) GetHoldoutRatings(ctx context.Context) ([]ratings.Rating, error) {
	return db.queryRatings(ctx, "holdout_ratings")
}

func (db *DB) queryRatings(ctx context.Context, table string) ([]ratings.Rating, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT user_id, item_id, rating FROM "+table+" ORDER BY user_id, item_id")
	if err != nil {
		metrics.RecordDBQuery("select", table, time.Since(start), err)
		return nil, fmt.Errorf("query %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []ratings.Rating
	for rows.Next() {
		var r ratings.Rating
		if err := rows.Scan(&r.UserID, &r.ItemID, &r.Value); err != nil {
			metrics.RecordDBQuery("select", table, time.Since(start), err)
			return nil, fmt.Errorf("scan %s row: %w", table, err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", table, time.Since(start), err)
		return nil, fmt.Errorf("iterate %s rows: %w", table, err)
	}

	metrics.RecordDBQuery("select", table, time.Since(start), nil)
	return out, nil
}

// GetItems returns all catalog items ordered by id.
func (db *DB) GetItems(ctx context.Context) ([]ratings.Item, error) {
	start := time.Now()

	rows, err := db.conn.QueryContext(ctx,
		"SELECT item_id, title, category, COALESCE(year, 0) FROM items ORDER BY item_id")
	if err != nil {
		metrics.RecordDBQuery("select", "items", time.Since(start), err)
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ratings.Item
	for rows.Next() {
		var it ratings.Item
		if err := rows.Scan(&it.ID, &it.Title, &it.Category, &it.Year); err != nil {
			metrics.RecordDBQuery("select", "items", time.Since(start), err)
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		metrics.RecordDBQuery("select", "items", time.Since(start), err)
		return nil, fmt.Errorf("iterate item rows: %w", err)
	}

	metrics.RecordDBQuery("select", "items", time.Since(start), nil)
	return out, nil
}

// UpsertRating inserts or replaces a single rating.
func (db *DB) UpsertRating(ctx context.Context, r ratings.Rating) error {
	start := time.Now()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO ratings (user_id, item_id, rating) VALUES (?, ?, ?)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET rating = EXCLUDED.rating`,
		r.UserID, r.ItemID, r.Value)
	metrics.RecordDBQuery("upsert", "ratings", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// CountRatings returns the number of rows in the ratings table.
func (db *DB) CountRatings(ctx context.Context) (int64, error) {
	start := time.Now()

	var n int64
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM ratings").Scan(&n)
	metrics.RecordDBQuery("count", "ratings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("count ratings: %w", err)
	}
	return n, nil
}
