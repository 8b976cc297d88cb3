// RateMesh - Collaborative Filtering Recommendation Engine
// Copyright 2026 RateMesh Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/ratemesh/ratemesh

// Package models holds the HTTP-facing data shapes shared across handlers.
package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP
// endpoints, for both successful and error responses.
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"user_id": 42, "items": [...]},
//	  "metadata": {
//	    "timestamp": "2026-03-01T12:00:00Z",
//	    "query_time_ms": 4,
//	    "cached": false
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "invalid user id",
//	    "details": {"param": "userID"}
//	  },
//	  "metadata": {"timestamp": "2026-03-01T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability. QueryTimeMS is the
// server-side processing time in milliseconds; Cached marks responses served
// from the recommendation cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError carries structured error details in an error response.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes used by the API.
const (
	ErrCodeValidation   = "VALIDATION_ERROR"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeNotReady     = "MODEL_NOT_READY"
	ErrCodeInternal     = "INTERNAL_ERROR"
	ErrCodeUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeInvalidInput = "INVALID_INPUT"
)

// EvaluateRequest is the body of POST /api/v1/evaluate. When Ratings is
// empty the configured holdout set is used.
type EvaluateRequest struct {
	K       int             `json:"k"`
	Ratings []RatingTriplet `json:"ratings,omitempty"`
}

// RatingTriplet is one (user, item, rating) row in an evaluation request.
type RatingTriplet struct {
	UserID int     `json:"user_id"`
	ItemID int     `json:"item_id"`
	Rating float64 `json:"rating"`
}

// HealthStatus is the body of GET /healthz.
type HealthStatus struct {
	Status     string    `json:"status"`
	ModelReady bool      `json:"model_ready"`
	Database   string    `json:"database"`
	Timestamp  time.Time `json:"timestamp"`
}
