package site

import "github.com/okian/ipa27/pkg/logger"

// Option configures a Handler.
type Option func(*Handler)

// WithLocale selects number formatting, e.g. "es-ES".
func WithLocale(locale string) Option {
	return func(h *Handler) {
		if locale != "" {
			h.locale = locale
		}
	}
}

// WithLabels names the compared regions.
func WithLabels(region, reference string) Option {
	return func(h *Handler) {
		if region != "" {
			h.regionLabel = region
		}
		if reference != "" {
			h.referenceLabel = reference
		}
	}
}

// WithDataDir serves the directory under /data/ so the service can host
// its own snapshot document. Empty disables it.
func WithDataDir(dir string) Option {
	return func(h *Handler) {
		h.dataDir = dir
	}
}

// WithLogger sets a custom logger for the handler.
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}
