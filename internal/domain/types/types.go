// Package types contains the wire shapes shared by the HTTP API and its clients.
package types

import "time"

// Error codes returned in ErrorResponse.Code.
const (
	CodeDataUnavailable = "data_unavailable"
	CodeNotFound        = "not_found"
	CodeBadRequest      = "bad_request"
	CodeRateLimited     = "rate_limited"
	CodeNotStarted      = "not_started"
	CodeInternal        = "internal_error"
)

// Refresh statuses returned in RefreshResponse.Status.
const (
	RefreshQueued    = "queued"
	RefreshCoalesced = "coalesced"
	RefreshCompleted = "completed"
)

// ErrorResponse is the body of every non-2xx API answer.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RefreshResponse acknowledges POST /api/refresh. Changed, Warnings and
// DurationMS are set only when the caller waited for completion.
type RefreshResponse struct {
	RequestID  string   `json:"request_id"`
	Origin     string   `json:"origin"`
	Status     string   `json:"status"`
	Changed    *bool    `json:"changed,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS float64  `json:"duration_ms,omitempty"`
}

// VersionInfo is one distinct snapshot loaded by the service.
type VersionInfo struct {
	Version  string    `json:"version" yaml:"version"`
	Periodo  string    `json:"periodo" yaml:"periodo"`
	LoadedAt time.Time `json:"loaded_at" yaml:"loaded_at"`
}

// State is the body of GET /api/state.
type State struct {
	State       string        `json:"state" yaml:"state"`
	Version     string        `json:"version,omitempty" yaml:"version,omitempty"`
	Periodo     string        `json:"periodo,omitempty" yaml:"periodo,omitempty"`
	Source      string        `json:"source,omitempty" yaml:"source,omitempty"`
	LoadedAt    *time.Time    `json:"loaded_at,omitempty" yaml:"loaded_at,omitempty"`
	LastAttempt *time.Time    `json:"last_attempt,omitempty" yaml:"last_attempt,omitempty"`
	LastError   string        `json:"last_error,omitempty" yaml:"last_error,omitempty"`
	Loads       int           `json:"loads" yaml:"loads"`
	Failures    int           `json:"failures" yaml:"failures"`
	Warnings    []string      `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	History     []VersionInfo `json:"history,omitempty" yaml:"history,omitempty"`
}

// Loaded reports whether a snapshot is available.
func (s State) Loaded() bool { return s.State == "loaded" }
