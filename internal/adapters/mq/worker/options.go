package worker

import (
	"github.com/okian/ipa27/pkg/logger"
)

// Option applies a configuration option to the RefreshWorker.
type Option func(*RefreshWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *RefreshWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *RefreshWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithOnResult registers a callback invoked after every processed request.
func WithOnResult(fn func(Result)) Option {
	return func(w *RefreshWorker) {
		if fn != nil {
			w.onResult = append(w.onResult, fn)
		}
	}
}
