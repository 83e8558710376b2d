// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/okian/ipa27/internal/adapters/mq/queue"
	"github.com/okian/ipa27/internal/adapters/mq/worker"
	"github.com/okian/ipa27/internal/adapters/repository"
	service "github.com/okian/ipa27/internal/app"
	"github.com/okian/ipa27/internal/domain/derive"
	"github.com/okian/ipa27/internal/domain/types"
	"github.com/okian/ipa27/internal/export"
	"github.com/okian/ipa27/pkg/logger"
)

const defaultRatePerMinute = 6

// Dependencies required by HTTP handlers.
type Dependencies interface {
	Snapshot(ctx context.Context) (*repository.Entry, error)
	State(ctx context.Context) repository.Status
	Views(ctx context.Context) (derive.Views, string, error)
	View(ctx context.Context, name string) (any, string, error)

	// Refresh queues a refresh; queued is false when it joined a pending one.
	Refresh(ctx context.Context, origin string) (r queue.Request, queued bool, err error)
	RefreshAndWait(ctx context.Context, origin string) (worker.Result, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	deps          Dependencies
	healthHandler *HealthHandler
	statsHandler  *StatsHandler

	ratePerMinute int
	labels        export.Labels
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		deps:          deps,
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		ratePerMinute: defaultRatePerMinute,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Named("api")
	}
	return s
}

// Mount attaches all API routes to r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/api", func(r chi.Router) {
		r.Get("/snapshot", s.handleSnapshot)
		r.Get("/state", s.handleState)
		r.Get("/views", s.handleViews)
		r.Get("/views/{name}", s.handleView)

		r.With(s.limiter()).Post("/refresh", s.handleRefresh)
		r.With(s.limiter()).Get("/export.xlsx", s.handleExport)
	})
}

// limiter returns a fresh per-IP limiter so each route has its own budget.
func (s *Server) limiter() func(http.Handler) http.Handler {
	return httprate.Limit(s.ratePerMinute, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
			writeError(w, http.StatusTooManyRequests, types.CodeRateLimited, ErrRateLimited)
		}),
	)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeUnavailable answers 503 while no snapshot is loaded, echoing the last
// fetch error when there is one.
func (s *Server) writeUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	st := s.deps.State(r.Context())
	if st.LastError != "" {
		err = errors.New(st.LastError)
	}
	w.Header().Set("Retry-After", "5")
	writeError(w, http.StatusServiceUnavailable, types.CodeDataUnavailable, err)
}

// writeFailure maps service errors to HTTP answers.
func (s *Server) writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, repository.ErrNotLoaded):
		s.writeUnavailable(w, r, err)
	case errors.Is(err, service.ErrUnknownView):
		writeError(w, http.StatusNotFound, types.CodeNotFound, err)
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, types.CodeNotStarted, err)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, types.CodeDataUnavailable, err)
	default:
		s.logger.Error(r.Context(), "request failed", logger.String("path", r.URL.Path), logger.Error(err))
		writeError(w, http.StatusInternalServerError, types.CodeInternal, err)
	}
}

// etag quotes a snapshot version for the ETag header.
func etag(version string) string { return `"` + version + `"` }

// notModified reports whether the client already holds version.
func notModified(w http.ResponseWriter, r *http.Request, version string) bool {
	tag := etag(version)
	w.Header().Set("ETag", tag)
	if match := r.Header.Get("If-None-Match"); match != "" && (match == tag || match == "*") {
		w.WriteHeader(http.StatusNotModified)
		return true
	}
	return false
}
