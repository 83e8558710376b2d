package service

import (
	"time"

	"github.com/okian/ipa27/internal/adapters/cache"
	"github.com/okian/ipa27/internal/adapters/repository"
	"github.com/okian/ipa27/internal/adapters/source"
	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource sets where snapshots are fetched from.
func WithSource(src source.Source) Option {
	return func(s *Service) {
		if src != nil {
			s.source = src
		}
	}
}

// WithCache shares fetched documents and derived views through Redis.
func WithCache(c *cache.Cache) Option {
	return func(s *Service) {
		s.cache = c
	}
}

// WithStore sets the snapshot store.
func WithStore(store *repository.MemoryStore) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithTransformer sets the view transformer.
func WithTransformer(t *derive.Transformer) Option {
	return func(s *Service) {
		if t != nil {
			s.transformer = t
		}
	}
}

// WithRefreshInterval enables periodic refresh every d. Zero disables it.
func WithRefreshInterval(d time.Duration) Option {
	return func(s *Service) {
		if d >= 0 {
			s.refreshInterval = d
		}
	}
}

// WithRefreshSchedule enables periodic refresh on a standard cron
// expression. It takes precedence over WithRefreshInterval.
func WithRefreshSchedule(spec string) Option {
	return func(s *Service) {
		s.refreshSchedule = spec
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
