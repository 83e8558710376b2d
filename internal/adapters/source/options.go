package source

import (
	"net/http"
	"time"
)

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithBaseURL resolves a relative snapshot URL against base.
func WithBaseURL(base string) HTTPOption {
	return func(s *HTTPSource) {
		s.baseURL = base
	}
}

// WithCacheBust appends t=<unix millis> to every request.
func WithCacheBust(enabled bool) HTTPOption {
	return func(s *HTTPSource) {
		s.cacheBust = enabled
	}
}

// WithTimeout bounds every fetch. Zero means no bound beyond the caller's context.
func WithTimeout(d time.Duration) HTTPOption {
	return func(s *HTTPSource) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithMaxBytes caps the accepted body size.
func WithMaxBytes(n int64) HTTPOption {
	return func(s *HTTPSource) {
		if n > 0 {
			s.maxBytes = n
		}
	}
}

// WithClock overrides the time source used for cache busting.
func WithClock(now func() time.Time) HTTPOption {
	return func(s *HTTPSource) {
		if now != nil {
			s.now = now
		}
	}
}
