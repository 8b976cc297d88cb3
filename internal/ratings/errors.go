// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

package ratings

import "fmt"

// DataError describes a single malformed ingestion record: a rating value
// outside the configured scale, or a non-positive user/item id.
//
// A DataError is fatal to the record that produced it, never to the load as a
// whole: lenient construction (BuildMatrix, NewCatalog) skips the record and
// aggregates the error into a LoadReport, while strict construction
// (NewMatrix) stops at the first one.
type DataError struct {
	// Record is the zero-based index of the offending record in the input.
	Record int
	Field  string
	Reason string
}

func (e *DataError) Error() string {
	return fmt.Sprintf("record %d: invalid %s: %s", e.Record, e.Field, e.Reason)
}

// maxReportErrors caps the per-load error list so a pathological file cannot
// balloon the report.
const maxReportErrors = 100

// LoadReport summarizes one lenient ingestion pass.
type LoadReport struct {
	Loaded  int          `json:"loaded"`
	Skipped int          `json:"skipped"`
	Errors  []*DataError `json:"-"`
}

func (r *LoadReport) record(e *DataError) {
	r.Skipped++
	if len(r.Errors) < maxReportErrors {
		r.Errors = append(r.Errors, e)
	}
}

// Messages returns the collected error strings, capped at maxReportErrors.
func (r *LoadReport) Messages() []string {
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return msgs
}
