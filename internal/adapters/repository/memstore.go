package repository

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/ipa27/internal/domain/snapshot"
	"github.com/okian/ipa27/pkg/metrics"
)

// MemoryStore keeps the current snapshot in memory.
//
// Readers load the entry through an atomic pointer and never block on a
// refresh; the mutex only guards the bookkeeping fields.
type MemoryStore struct {
	current atomic.Pointer[Entry]

	mu          sync.RWMutex
	state       State
	lastErr     error
	lastAttempt time.Time
	loads       int
	failures    int
	history     []Version
	historySize int
	now         func() time.Time
}

// NewMemoryStore creates an empty store in the loading state.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		state:       StateLoading,
		historySize: 10,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	metrics.UpdateSnapshotState(metrics.StateLoading)
	return s
}

// Replace implements Store.Replace.
func (s *MemoryStore) Replace(_ context.Context, raw []byte, snap *snapshot.Snapshot, source string, warnings []string) (bool, error) {
	if snap == nil || len(raw) == 0 {
		return false, fmt.Errorf("%w: empty snapshot", ErrInvalidEntry)
	}
	now := s.now()
	e := &Entry{
		Snapshot: snap,
		Raw:      raw,
		Version:  VersionOf(raw),
		LoadedAt: now,
		Source:   source,
		Warnings: append([]string(nil), warnings...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.current.Load()
	changed := prev == nil || prev.Version != e.Version
	s.current.Store(e)

	s.state = StateLoaded
	s.lastErr = nil
	s.lastAttempt = now
	s.loads++
	if changed {
		s.history = append(s.history, Version{Version: e.Version, Periodo: snap.Periodo(), LoadedAt: now})
		if len(s.history) > s.historySize {
			s.history = s.history[len(s.history)-s.historySize:]
		}
	}

	metrics.UpdateSnapshotState(metrics.StateLoaded)
	metrics.RecordSnapshotLoaded(len(raw), now.Unix(), len(warnings))
	return changed, nil
}

// Fail implements Store.Fail.
func (s *MemoryStore) Fail(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastErr = err
	s.lastAttempt = s.now()
	s.failures++
	if s.current.Load() == nil {
		s.state = StateFailed
		metrics.UpdateSnapshotState(metrics.StateFailed)
	}
}

// Current implements Store.Current.
func (s *MemoryStore) Current(_ context.Context) (*Entry, error) {
	e := s.current.Load()
	if e == nil {
		return nil, ErrNotLoaded
	}
	return e, nil
}

// Status implements Store.Status.
func (s *MemoryStore) Status(_ context.Context) Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		State:       s.state,
		LastAttempt: s.lastAttempt,
		Loads:       s.loads,
		Failures:    s.failures,
		History:     append([]Version(nil), s.history...),
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	if e := s.current.Load(); e != nil {
		st.Version = e.Version
		st.Periodo = e.Snapshot.Periodo()
		st.Source = e.Source
		st.LoadedAt = e.LoadedAt
		st.Warnings = e.Warnings
	}
	return st
}
