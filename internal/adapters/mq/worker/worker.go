// Package worker runs snapshot refreshes off the refresh queue.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/ipa27/internal/adapters/mq/queue"
	"github.com/okian/ipa27/internal/adapters/source"
	"github.com/okian/ipa27/internal/domain/snapshot"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/okian/ipa27/pkg/metrics"
)

// Fetched is a raw document and where it came from.
type Fetched struct {
	Raw      []byte
	Source   string
	CacheHit bool
}

// Fetcher obtains the raw snapshot document for a request.
type Fetcher interface {
	Fetch(ctx context.Context, r queue.Request) (Fetched, error)
}

// Updater stores refresh outcomes.
type Updater interface {
	Replace(ctx context.Context, raw []byte, snap *snapshot.Snapshot, source string, warnings []string) (bool, error)
	Fail(ctx context.Context, err error)
}

// Queue defines how the worker receives requests.
type Queue interface {
	Dequeue(ctx context.Context) <-chan queue.Request
	Len(ctx context.Context) int
}

// Result is the outcome of one refresh.
type Result struct {
	Request  queue.Request
	Changed  bool
	Warnings []string
	Duration time.Duration
	Err      error
}

// RefreshWorker performs fetch, decode and store for each request. A single
// worker owns every write to the store.
type RefreshWorker struct {
	queue   Queue
	fetcher Fetcher
	updater Updater
	name    string

	onResult []func(Result)

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewRefreshWorker creates a new worker with configuration options.
func NewRefreshWorker(q Queue, fetcher Fetcher, updater Updater, opts ...Option) *RefreshWorker {
	w := &RefreshWorker{
		queue:    q,
		fetcher:  fetcher,
		updater:  updater,
		name:     "refresh",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop until ctx is cancelled, Shutdown is called or
// the queue is closed.
func (w *RefreshWorker) Run(ctx context.Context) {
	defer close(w.done)

	requests := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case r, ok := <-requests:
			if !ok {
				return
			}
			metrics.UpdateRefreshPending(w.queue.Len(ctx))
			w.Process(ctx, r)
		}
	}
}

// Shutdown stops the worker after the request in progress, if any.
func (w *RefreshWorker) Shutdown(ctx context.Context) error {
	select {
	case <-w.shutdown:
	default:
		close(w.shutdown)
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// Process handles a single refresh request.
func (w *RefreshWorker) Process(ctx context.Context, r queue.Request) Result {
	start := time.Now()
	res := Result{Request: r}
	res.Changed, res.Warnings, res.Err = w.refresh(ctx, r)
	res.Duration = time.Since(start)

	if res.Err != nil {
		w.updater.Fail(ctx, res.Err)
		metrics.RecordRefreshRequest(r.Origin, "failed")
		w.logger.Error(ctx, "snapshot refresh failed",
			logger.String("request_id", r.ID),
			logger.String("origin", r.Origin),
			logger.Error(res.Err),
		)
	} else {
		metrics.RecordRefreshRequest(r.Origin, "succeeded")
		w.logger.Info(ctx, "snapshot refreshed",
			logger.String("request_id", r.ID),
			logger.String("origin", r.Origin),
			logger.Bool("changed", res.Changed),
			logger.Int("warnings", len(res.Warnings)),
			logger.Duration("took", res.Duration),
		)
	}

	for _, fn := range w.onResult {
		fn(res)
	}
	return res
}

func (w *RefreshWorker) refresh(ctx context.Context, r queue.Request) (bool, []string, error) {
	fetchStart := time.Now()
	f, err := w.fetcher.Fetch(ctx, r)
	latency := float64(time.Since(fetchStart).Microseconds()) / 1000
	if err != nil {
		metrics.RecordSnapshotFetch(sourceLabel(f.Source), "error", latency)
		metrics.RecordErrorByComponent("worker", "fetch")
		if !errors.Is(err, source.ErrDataUnavailable) {
			err = fmt.Errorf("%w: %w", source.ErrDataUnavailable, err)
		}
		return false, nil, err
	}
	result := "ok"
	if f.CacheHit {
		result = "cache_hit"
	}
	metrics.RecordSnapshotFetch(sourceLabel(f.Source), result, latency)

	snap, err := snapshot.Decode(f.Raw)
	if err != nil {
		metrics.RecordSnapshotDecodeError()
		metrics.RecordErrorByComponent("worker", "decode")
		return false, nil, fmt.Errorf("%w: %w", source.ErrDataUnavailable, err)
	}

	warnings := snap.Validate()
	for _, msg := range warnings {
		w.logger.Warn(ctx, "snapshot invariant", logger.String("request_id", r.ID), logger.String("detail", msg))
	}

	changed, err := w.updater.Replace(ctx, f.Raw, snap, f.Source, warnings)
	if err != nil {
		metrics.RecordErrorByComponent("worker", "store")
		return false, warnings, fmt.Errorf("store snapshot: %w", err)
	}
	return changed, warnings, nil
}

func sourceLabel(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
