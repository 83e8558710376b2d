package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/okian/ipa27/internal/adapters/cache"
	"github.com/okian/ipa27/internal/adapters/http/api"
	"github.com/okian/ipa27/internal/adapters/http/site"
	"github.com/okian/ipa27/internal/adapters/http/swagger"
	"github.com/okian/ipa27/internal/adapters/source"
	app "github.com/okian/ipa27/internal/app"
	"github.com/okian/ipa27/internal/config"
	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/export"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/okian/ipa27/pkg/metrics"
	"github.com/redis/go-redis/v9"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 30 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	redisPingTimeout          = 2 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Our own system metrics replace the default Go collectors.
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer flushLogger(logger.Sync, os.Stderr)

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// The listener is opened before the first refresh so a snapshot served
	// from our own /data directory is reachable on startup.
	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		loggerInstance.Error(ctx, "listen failed", logger.String("addr", cfg.Addr), logger.Error(err))
		return
	}

	svc, err := newService(ctx, cfg, loggerInstance)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build service", logger.Error(err))
		_ = ln.Close()
		return
	}

	router, err := newRouter(cfg, svc)
	if err != nil {
		loggerInstance.Error(ctx, "failed to build router", logger.Error(err))
		_ = ln.Close()
		return
	}

	srv := &http.Server{
		Handler:           router,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			loggerInstance.Error(ctx, "HTTP server failed", logger.Error(err))
			stop()
		}
	}()

	if err := svc.Start(ctx); err != nil {
		loggerInstance.Error(ctx, "failed to start service", logger.Error(err))
		_ = srv.Close()
		return
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// flushLogger runs sync and reports a failure on w, since the logger itself
// may be what failed.
func flushLogger(sync func() error, w io.Writer) {
	if err := sync(); err != nil {
		_, _ = io.WriteString(w, "failed to sync logger: "+err.Error()+"\n")
	}
}

// newService wires the snapshot source, the optional shared cache and the
// transformer into an unstarted service.
func newService(ctx context.Context, cfg *config.Config, l logger.Logger) (*app.Service, error) {
	src, err := source.New(cfg.SnapshotFile, cfg.SnapshotURL,
		source.WithBaseURL(cfg.BaseURL),
		source.WithCacheBust(cfg.CacheBust),
		source.WithTimeout(cfg.FetchTimeout()),
	)
	if err != nil {
		return nil, fmt.Errorf("snapshot source: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(l),
		app.WithSource(src),
		app.WithTransformer(derive.New(
			derive.WithFallbackReference(cfg.FallbackReference),
			derive.WithIndicatorReference(cfg.IndicatorReference),
		)),
		app.WithRefreshInterval(cfg.RefreshInterval()),
		app.WithRefreshSchedule(cfg.RefreshSchedule),
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
		if err := client.Ping(pingCtx).Err(); err != nil {
			// The cache degrades to direct fetches while redis is down.
			l.Warn(ctx, "redis unreachable", logger.String("addr", cfg.RedisAddr), logger.Error(err))
		}
		cancel()
		opts = append(opts, app.WithCache(cache.New(client, cfg.CacheTTL())))
	}

	return app.New(opts...), nil
}

// newRouter mounts the API, the docs and the site on one chi router.
func newRouter(cfg *config.Config, svc *app.Service) (http.Handler, error) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(api.RequestID)
	r.Use(api.SecureHeaders(cfg.Development))
	r.Use(api.Metrics)

	apiServer := api.NewServer(svc, svc,
		api.WithRatePerMinute(cfg.RefreshRatePerMinute),
		api.WithLabels(export.Labels{Region: cfg.RegionLabel, Reference: cfg.ReferenceLabel}),
	)
	apiServer.Mount(r)

	swagger.Mount(r)

	siteOpts := []site.Option{
		site.WithLocale(cfg.Locale),
		site.WithLabels(cfg.RegionLabel, cfg.ReferenceLabel),
	}
	if cfg.DataDir != "" {
		siteOpts = append(siteOpts, site.WithDataDir(cfg.DataDir))
	}
	h, err := site.New(svc, siteOpts...)
	if err != nil {
		return nil, fmt.Errorf("site: %w", err)
	}
	h.Mount(r)

	return r, nil
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics updates service-level metrics.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if pending, ok := stats["pendingRefreshes"].(int); ok {
		metrics.UpdateRefreshPending(pending)
	}
}
