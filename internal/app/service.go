// Package service wires the snapshot source, cache, store and refresh worker
// and exposes the current snapshot and its derived views to the HTTP layer.
package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/okian/ipa27/internal/adapters/cache"
	"github.com/okian/ipa27/internal/adapters/mq/queue"
	"github.com/okian/ipa27/internal/adapters/mq/worker"
	"github.com/okian/ipa27/internal/adapters/repository"
	"github.com/okian/ipa27/internal/adapters/source"
	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/domain/snapshot"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/okian/ipa27/pkg/metrics"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"
)

const workerShutdownTimeout = 5 * time.Second

// View names accepted by View.
const (
	ViewPillars    = "pillars"
	ViewDomains    = "domains"
	ViewIndicators = "indicators"
	ViewEvolution  = "evolution"
)

type memo struct {
	version string
	views   derive.Views
}

// Service implements the API dependencies for the dashboard.
type Service struct {
	mu sync.RWMutex

	// Core components
	source      source.Source
	cache       *cache.Cache
	store       *repository.MemoryStore
	transformer *derive.Transformer
	queue       *queue.InMemoryQueue
	worker      *worker.RefreshWorker
	scheduler   *cron.Cron

	// Configuration
	refreshInterval time.Duration
	refreshSchedule string

	// Refresh waiters keyed by request id
	waitMu  sync.Mutex
	waiters map[string][]chan worker.Result

	views   atomic.Pointer[memo]
	ownBump atomic.Int64

	// State
	started   bool
	startedAt time.Time
	cancel    context.CancelFunc

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		transformer: derive.New(),
		waiters:     make(map[string][]chan worker.Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
	}
	return s
}

// Start launches the refresh worker, schedules periodic refreshes and
// queues the initial load. It does not wait for the load to finish.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.source == nil {
		return ErrNoSource
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.queue = queue.NewInMemoryQueue()
	s.worker = worker.NewRefreshWorker(s.queue, s, s.store,
		worker.WithLogger(s.logger.Named("refresh")),
		worker.WithOnResult(s.deliver),
	)
	go s.worker.Run(runCtx)

	if err := s.startScheduler(runCtx); err != nil {
		cancel()
		return err
	}

	if err := s.cache.ListenForInvalidation(runCtx, func(version int64) {
		if version == s.ownBump.Load() {
			return
		}
		s.logger.Info(runCtx, "cache invalidated by peer", logger.Int64("version", version))
		if _, _, err := s.queue.Enqueue(runCtx, queue.OriginPeer); err != nil {
			s.logger.Warn(runCtx, "peer refresh not queued", logger.Error(err))
		}
	}); err != nil {
		// The cache still works for reads; only cross-replica refresh is lost.
		s.logger.Warn(ctx, "cache invalidation listener unavailable", logger.Error(err))
		metrics.RecordErrorByComponent("cache", "subscribe")
	}

	if _, _, err := s.queue.Enqueue(runCtx, queue.OriginStartup); err != nil {
		cancel()
		return fmt.Errorf("queue initial refresh: %w", err)
	}

	s.started = true
	s.startedAt = time.Now()
	s.logger.Info(ctx, "dashboard service started",
		logger.String("source", s.source.Name()),
		logger.String("location", s.source.Location()),
		logger.Bool("cache", s.cache.Enabled()),
		logger.Duration("refresh_interval", s.refreshInterval),
		logger.String("refresh_schedule", s.refreshSchedule),
	)
	return nil
}

func (s *Service) startScheduler(ctx context.Context) error {
	var sched cron.Schedule
	switch {
	case s.refreshSchedule != "":
		parsed, err := cron.ParseStandard(s.refreshSchedule)
		if err != nil {
			return fmt.Errorf("refresh schedule %q: %w", s.refreshSchedule, err)
		}
		sched = parsed
	case s.refreshInterval > 0:
		sched = cron.Every(s.refreshInterval)
	default:
		return nil
	}

	s.scheduler = cron.New()
	s.scheduler.Schedule(sched, cron.FuncJob(func() {
		if _, _, err := s.queue.Enqueue(ctx, queue.OriginPeriodic); err != nil {
			s.logger.Warn(ctx, "periodic refresh not queued", logger.Error(err))
		}
	}))
	s.scheduler.Start()
	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	ctx := context.Background()
	s.logger.Info(ctx, "stopping dashboard service...")

	if s.scheduler != nil {
		<-s.scheduler.Stop().Done()
	}
	_ = s.queue.Close()

	shutdownCtx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "refresh worker did not stop cleanly", logger.Error(err))
	}
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "dashboard service stopped")
}

// Fetch implements worker.Fetcher. Documents go through the shared cache
// when one is configured; a cache that cannot build keys is bypassed, and
// malformed documents are never cached.
func (s *Service) Fetch(ctx context.Context, _ queue.Request) (worker.Fetched, error) {
	f := worker.Fetched{Source: s.source.Name()}
	key, err := s.cache.BuildKey(ctx, "raw", s.source.Location())
	if err != nil {
		metrics.RecordCacheLookup("error")
		s.logger.Warn(ctx, "snapshot cache unavailable", logger.Error(err))
		f.Raw, err = s.source.Fetch(ctx)
		return f, err
	}
	f.Raw, f.CacheHit, err = s.cache.FetchValidBytes(ctx, key, s.source.Fetch, decodable)
	return f, err
}

// decodable keeps documents the worker would reject out of the shared cache.
func decodable(raw []byte) error {
	_, err := snapshot.Decode(raw)
	return err
}

// Refresh queues a refresh. A manual refresh first invalidates the shared
// cache so the document is read from the origin. The returned request is
// the caller's own or the pending one it was coalesced into.
func (s *Service) Refresh(ctx context.Context, origin string) (queue.Request, bool, error) {
	s.mu.RLock()
	q, started := s.queue, s.started
	s.mu.RUnlock()
	if !started {
		return queue.Request{}, false, ErrNotStarted
	}

	if origin == queue.OriginManual {
		ver, err := s.cache.Bump(ctx)
		if err != nil {
			s.logger.Warn(ctx, "cache invalidation failed", logger.Error(err))
			metrics.RecordErrorByComponent("cache", "bump")
		}
		s.ownBump.Store(ver)
	}
	return q.Enqueue(ctx, origin)
}

// RefreshAndWait queues a refresh and waits for its result.
func (s *Service) RefreshAndWait(ctx context.Context, origin string) (worker.Result, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return worker.Result{}, ErrNotStarted
	}

	// The waiter is registered before the worker can deliver, because
	// deliver needs waitMu too.
	s.waitMu.Lock()
	r, _, err := s.Refresh(ctx, origin)
	if err != nil {
		s.waitMu.Unlock()
		return worker.Result{}, err
	}
	ch := make(chan worker.Result, 1)
	s.waiters[r.ID] = append(s.waiters[r.ID], ch)
	s.waitMu.Unlock()

	select {
	case res := <-ch:
		return res, res.Err
	case <-ctx.Done():
		s.dropWaiter(r.ID, ch)
		return worker.Result{Request: r}, ctx.Err()
	}
}

func (s *Service) deliver(res worker.Result) {
	s.waitMu.Lock()
	chans := s.waiters[res.Request.ID]
	delete(s.waiters, res.Request.ID)
	s.waitMu.Unlock()
	for _, ch := range chans {
		ch <- res
	}
}

func (s *Service) dropWaiter(id string, ch chan worker.Result) {
	s.waitMu.Lock()
	defer s.waitMu.Unlock()
	chans := s.waiters[id]
	for i, c := range chans {
		if c == ch {
			s.waiters[id] = append(chans[:i], chans[i+1:]...)
			break
		}
	}
	if len(s.waiters[id]) == 0 {
		delete(s.waiters, id)
	}
}

// Snapshot returns the current entry or repository.ErrNotLoaded.
func (s *Service) Snapshot(ctx context.Context) (*repository.Entry, error) {
	return s.store.Current(ctx)
}

// State reports the store lifecycle.
func (s *Service) State(ctx context.Context) repository.Status {
	return s.store.Status(ctx)
}

// Transformer returns the transformer used for views.
func (s *Service) Transformer() *derive.Transformer { return s.transformer }

// Views returns every derived view of the current snapshot with its version.
// Views are computed once per snapshot version.
func (s *Service) Views(ctx context.Context) (derive.Views, string, error) {
	e, err := s.store.Current(ctx)
	if err != nil {
		return derive.Views{}, "", err
	}
	if m := s.views.Load(); m != nil && m.version == e.Version {
		return m.views, e.Version, nil
	}

	v, err := s.sharedViews(ctx, e)
	if err != nil {
		s.logger.Warn(ctx, "derived views cache unavailable", logger.Error(err))
		if v, err = s.derive(ctx, e.Snapshot); err != nil {
			return derive.Views{}, "", err
		}
	}

	metrics.UpdateFallbackIndicatorRows(v.FallbackRows)
	s.views.Store(&memo{version: e.Version, views: v})
	return v, e.Version, nil
}

func (s *Service) sharedViews(ctx context.Context, e *repository.Entry) (derive.Views, error) {
	if !s.cache.Enabled() {
		return s.derive(ctx, e.Snapshot)
	}
	ref := strconv.FormatFloat(s.transformer.FallbackReference(), 'g', -1, 64)
	key, err := s.cache.BuildKey(ctx, "views", e.Version, ref, strconv.FormatBool(s.transformer.IndicatorReference()))
	if err != nil {
		return derive.Views{}, err
	}
	var v derive.Views
	err = s.cache.FetchJSON(ctx, key, &v, func(ctx context.Context) (any, error) {
		return s.derive(ctx, e.Snapshot)
	})
	return v, err
}

// derive computes the view sections concurrently. Sections write disjoint
// fields of v.
func (s *Service) derive(ctx context.Context, snap *snapshot.Snapshot) (derive.Views, error) {
	t := s.transformer
	v := derive.Views{
		Periodo:  snap.Periodo(),
		Headline: t.Headline(snap),
	}
	v.LastUpdate = snap.Metadata.LastUpdate

	timed := func(name string, fn func()) func() error {
		return func() error {
			start := time.Now()
			fn()
			metrics.RecordDeriveLatency(name, float64(time.Since(start).Microseconds())/1000)
			return nil
		}
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(timed(ViewPillars, func() { v.Pillars = t.Pillars(snap) }))
	g.Go(timed(ViewDomains, func() {
		v.Domains = t.Domains(snap)
		v.Highlights = derive.HighlightsOf(v.Domains)
	}))
	g.Go(timed(ViewIndicators, func() {
		v.Indicators = t.Indicators(snap)
		v.FallbackRows = derive.CountFallback(v.Indicators)
	}))
	g.Go(timed(ViewEvolution, func() { v.Evolution = t.Evolution(snap) }))
	g.Go(timed("bottlenecks", func() { v.Bottlenecks = t.Bottlenecks(snap) }))
	if err := g.Wait(); err != nil {
		return derive.Views{}, err
	}
	return v, nil
}

// View returns one named section of the derived views.
func (s *Service) View(ctx context.Context, name string) (any, string, error) {
	v, version, err := s.Views(ctx)
	if err != nil {
		return nil, "", err
	}
	switch name {
	case ViewPillars:
		return v.Pillars, version, nil
	case ViewDomains:
		return v.Domains, version, nil
	case ViewIndicators:
		return v.Indicators, version, nil
	case ViewEvolution:
		return v.Evolution, version, nil
	}
	return nil, "", fmt.Errorf("%w: %q", ErrUnknownView, name)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	st := s.store.Status(ctx)
	stats := map[string]interface{}{
		"started":         s.started,
		"state":           string(st.State),
		"refreshInterval": s.refreshInterval.String(),
		"refreshSchedule": s.refreshSchedule,
		"cacheEnabled":    s.cache.Enabled(),
		"loads":           st.Loads,
		"failures":        st.Failures,
	}
	if s.source != nil {
		stats["source"] = s.source.Name()
		stats["location"] = s.source.Location()
	}
	if s.started {
		stats["uptime"] = time.Since(s.startedAt).Round(time.Second).String()
		stats["pendingRefreshes"] = s.queue.Len(ctx)
	}
	if e, err := s.store.Current(ctx); err == nil {
		stats["version"] = e.Version
		stats["periodo"] = e.Snapshot.Periodo()
		stats["snapshotSize"] = humanize.Bytes(uint64(len(e.Raw)))
		stats["loadedAt"] = e.LoadedAt.Format(time.RFC3339)
		stats["loadedAgo"] = humanize.Time(e.LoadedAt)
		stats["warnings"] = len(e.Warnings)
	}
	if st.LastError != "" {
		stats["lastError"] = st.LastError
	}
	return stats
}
