// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package ratings

import (
	"sort"
	"sync"
)

// Matrix is a row-major sparse user-item rating matrix.
//
// The row view (user -> item -> value) is authoritative. The column view
// (item -> user -> value) is a derived index built lazily on first use; it is
// reconstructed from the rows, never maintained in parallel, so the two views
// cannot drift apart.
//
// A Matrix is immutable after construction. Row and Column return internal
// maps for speed; callers must not modify them.
type Matrix struct {
	scale Scale
	rows  map[int]map[int]float64
	count int

	colsOnce sync.Once
	cols     map[int]map[int]float64
}

// NewMatrix builds a matrix from rating records, failing on the first
// invalid record with a *DataError.
func NewMatrix(rs []Rating, scale Scale) (*Matrix, error) {
	m := newEmptyMatrix(scale)
	for i, r := range rs {
		if err := validateRating(i, r, scale); err != nil {
			return nil, err
		}
		m.insert(r)
	}
	return m, nil
}

// BuildMatrix builds a matrix leniently: invalid records are skipped and
// aggregated into the returned LoadReport.
func BuildMatrix(rs []Rating, scale Scale) (*Matrix, *LoadReport) {
	m := newEmptyMatrix(scale)
	report := &LoadReport{}
	for i, r := range rs {
		if err := validateRating(i, r, scale); err != nil {
			report.record(err)
			continue
		}
		m.insert(r)
		report.Loaded++
	}
	return m, report
}

func newEmptyMatrix(scale Scale) *Matrix {
	if !scale.Valid() {
		scale = DefaultScale
	}
	return &Matrix{
		scale: scale,
		rows:  make(map[int]map[int]float64),
	}
}

func validateRating(idx int, r Rating, scale Scale) *DataError {
	if r.UserID <= 0 {
		return &DataError{Record: idx, Field: "user_id", Reason: "must be a positive integer"}
	}
	if r.ItemID <= 0 {
		return &DataError{Record: idx, Field: "item_id", Reason: "must be a positive integer"}
	}
	if !scale.Contains(r.Value) {
		return &DataError{Record: idx, Field: "value", Reason: "outside scale " + scale.String()}
	}
	return nil
}

// insert records a rating. A duplicate (user, item) pair overwrites the
// earlier value; the last record wins.
func (m *Matrix) insert(r Rating) {
	row, ok := m.rows[r.UserID]
	if !ok {
		row = make(map[int]float64)
		m.rows[r.UserID] = row
	}
	if _, exists := row[r.ItemID]; !exists {
		m.count++
	}
	row[r.ItemID] = r.Value
}

// Scale returns the rating scale the matrix was built with.
func (m *Matrix) Scale() Scale {
	return m.scale
}

// Get returns the rating for (userID, itemID) and whether it exists.
func (m *Matrix) Get(userID, itemID int) (float64, bool) {
	v, ok := m.rows[userID][itemID]
	return v, ok
}

// Row returns the user's ratings keyed by item id. Missing users yield an
// empty non-nil map.
func (m *Matrix) Row(userID int) map[int]float64 {
	if row, ok := m.rows[userID]; ok {
		return row
	}
	return emptyVector
}

// Column returns all ratings for an item keyed by user id, from the lazily
// built transposed view. Missing items yield an empty non-nil map.
func (m *Matrix) Column(itemID int) map[int]float64 {
	m.colsOnce.Do(m.buildColumns)
	if col, ok := m.cols[itemID]; ok {
		return col
	}
	return emptyVector
}

var emptyVector = map[int]float64{}

func (m *Matrix) buildColumns() {
	cols := make(map[int]map[int]float64)
	for userID, row := range m.rows {
		for itemID, v := range row {
			col, ok := cols[itemID]
			if !ok {
				col = make(map[int]float64)
				cols[itemID] = col
			}
			col[userID] = v
		}
	}
	m.cols = cols
}

// UserIDs returns all user ids in ascending order.
func (m *Matrix) UserIDs() []int {
	ids := make([]int, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// ItemIDs returns all rated item ids in ascending order.
func (m *Matrix) ItemIDs() []int {
	m.colsOnce.Do(m.buildColumns)
	ids := make([]int, 0, len(m.cols))
	for id := range m.cols {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// UserCount returns the number of distinct users.
func (m *Matrix) UserCount() int {
	return len(m.rows)
}

// ItemCount returns the number of distinct rated items.
func (m *Matrix) ItemCount() int {
	m.colsOnce.Do(m.buildColumns)
	return len(m.cols)
}

// Len returns the total number of stored ratings.
func (m *Matrix) Len() int {
	return m.count
}

// UserRatingCount returns how many items the user has rated.
func (m *Matrix) UserRatingCount(userID int) int {
	return len(m.rows[userID])
}

// Ratings flattens the matrix back into rating records, ordered by user then
// item for determinism. Used by snapshot persistence.
func (m *Matrix) Ratings() []Rating {
	out := make([]Rating, 0, m.count)
	for _, userID := range m.UserIDs() {
		row := m.rows[userID]
		itemIDs := make([]int, 0, len(row))
		for id := range row {
			itemIDs = append(itemIDs, id)
		}
		sort.Ints(itemIDs)
		for _, itemID := range itemIDs {
			out = append(out, Rating{UserID: userID, ItemID: itemID, Value: row[itemID]})
		}
	}
	return out
}
