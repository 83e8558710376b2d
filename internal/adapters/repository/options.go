package repository

import "time"

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithHistorySize sets how many distinct versions are remembered.
func WithHistorySize(n int) Option {
	return func(s *MemoryStore) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}
