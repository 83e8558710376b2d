package api

import (
	"github.com/okian/ipa27/internal/export"
	"github.com/okian/ipa27/pkg/logger"
)

// Option configures a Server.
type Option func(*Server)

// WithRatePerMinute caps refresh and export requests per client IP.
func WithRatePerMinute(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.ratePerMinute = n
		}
	}
}

// WithLabels names the compared regions in exported workbooks.
func WithLabels(l export.Labels) Option {
	return func(s *Server) {
		s.labels = l
	}
}

// WithLogger sets a custom logger for the handlers.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
