// Package repository holds the snapshot currently served by the dashboard.
package repository

import (
	"context"
	"encoding/hex"
	"time"

	"github.com/okian/ipa27/internal/domain/snapshot"
	"github.com/zeebo/blake3"
)

// State is the lifecycle state of the store.
type State string

const (
	// StateLoading means no fetch has completed yet.
	StateLoading State = "loading"
	// StateLoaded means a snapshot is available.
	StateLoaded State = "loaded"
	// StateFailed means every fetch so far has failed.
	StateFailed State = "failed"
)

// Entry is one stored snapshot. Entries are immutable once stored.
type Entry struct {
	Snapshot *snapshot.Snapshot
	Raw      []byte
	Version  string
	LoadedAt time.Time
	Source   string
	Warnings []string
}

// Status describes the store for diagnostics.
type Status struct {
	State       State     `json:"state"`
	Version     string    `json:"version,omitempty"`
	Periodo     string    `json:"periodo,omitempty"`
	Source      string    `json:"source,omitempty"`
	LoadedAt    time.Time `json:"loaded_at,omitzero"`
	LastAttempt time.Time `json:"last_attempt,omitzero"`
	LastError   string    `json:"last_error,omitempty"`
	Loads       int       `json:"loads"`
	Failures    int       `json:"failures"`
	Warnings    []string  `json:"warnings,omitempty"`
	History     []Version `json:"history,omitempty"`
}

// Version records one distinct snapshot that was loaded.
type Version struct {
	Version  string    `json:"version"`
	Periodo  string    `json:"periodo"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Store provides access to the current snapshot.
type Store interface {
	// Replace stores a freshly decoded snapshot. It reports whether the
	// version differs from the one previously held.
	Replace(ctx context.Context, raw []byte, snap *snapshot.Snapshot, source string, warnings []string) (bool, error)

	// Fail records a failed refresh. A previously loaded snapshot is kept.
	Fail(ctx context.Context, err error)

	// Current returns the stored entry, or ErrNotLoaded.
	Current(ctx context.Context) (*Entry, error)

	// Status reports the lifecycle state.
	Status(ctx context.Context) Status
}

// VersionOf returns the content version of a raw document: the first 16
// bytes of its BLAKE3 digest, hex encoded.
func VersionOf(raw []byte) string {
	sum := blake3.Sum256(raw)
	return hex.EncodeToString(sum[:16])
}
