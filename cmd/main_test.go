package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/okian/ipa27/internal/adapters/repository"
	app "github.com/okian/ipa27/internal/app"
	"github.com/okian/ipa27/internal/config"
	"github.com/okian/ipa27/internal/domain/types"
	"github.com/okian/ipa27/pkg/logger"
	"github.com/okian/ipa27/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/smartystreets/goconvey/convey"
)

const fixture = "../internal/domain/snapshot/testdata/dashboard_data.json"

func init() {
	_ = logger.Init()
}

func testConfig() *config.Config {
	cfg := config.New()
	cfg.SnapshotFile = fixture
	cfg.DataDir = ""
	return cfg
}

func waitLoaded(svc *app.Service) bool {
	ctx := context.Background()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if svc.State(ctx).State == repository.StateLoaded {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return false
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
	return w
}

func TestMainFunction(t *testing.T) {
	convey.Convey("Given the main application", t, func() {
		convey.Convey("When testing configuration loading", func() {
			_ = os.Setenv("IPA27_ADDR", ":8080")
			_ = os.Setenv("IPA27_SNAPSHOT_FILE", fixture)
			_ = os.Setenv("IPA27_REFRESH_SCHEDULE", "0 6 * * 1")
			defer func() {
				_ = os.Unsetenv("IPA27_ADDR")
				_ = os.Unsetenv("IPA27_SNAPSHOT_FILE")
				_ = os.Unsetenv("IPA27_REFRESH_SCHEDULE")
			}()

			convey.Convey("Then configuration should be loadable", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.SnapshotFile, convey.ShouldEqual, fixture)
				convey.So(cfg.RefreshSchedule, convey.ShouldEqual, "0 6 * * 1")
			})
		})

		convey.Convey("When testing service creation", func() {
			svc, err := newService(context.Background(), testConfig(), logger.Nop())

			convey.Convey("Then an unstarted service is returned", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc, convey.ShouldNotBeNil)
				stats := svc.GetStats()
				convey.So(stats["started"], convey.ShouldEqual, false)
				convey.So(stats["source"], convey.ShouldEqual, "file")
				convey.So(stats["cacheEnabled"], convey.ShouldEqual, false)
			})
		})

		convey.Convey("When indicator references are enabled", func() {
			cfg := testConfig()
			cfg.IndicatorReference = true
			cfg.FallbackReference = 40
			svc, err := newService(context.Background(), cfg, logger.Nop())

			convey.Convey("Then the transformer is configured from the config", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.Transformer().IndicatorReference(), convey.ShouldBeTrue)
				convey.So(svc.Transformer().FallbackReference(), convey.ShouldEqual, 40)
			})
		})

		convey.Convey("When a redis address is configured", func() {
			mr := miniredis.RunT(t)
			cfg := testConfig()
			cfg.RedisAddr = mr.Addr()
			svc, err := newService(context.Background(), cfg, logger.Nop())

			convey.Convey("Then the shared cache is enabled", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(svc.GetStats()["cacheEnabled"], convey.ShouldEqual, true)
			})
		})

		convey.Convey("When the snapshot URL cannot be parsed", func() {
			cfg := testConfig()
			cfg.SnapshotFile = ""
			cfg.SnapshotURL = "://broken"
			cfg.BaseURL = ""
			_, err := newService(context.Background(), cfg, logger.Nop())

			convey.Convey("Then building the service fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})

		convey.Convey("When testing metrics initialization", func() {
			manager := metrics.NewManager(metrics.WithPrometheusRegistry(prometheus.NewRegistry()))
			convey.So(manager, convey.ShouldNotBeNil)
		})
	})
}

func TestRouter(t *testing.T) {
	convey.Convey("Given a started service behind the router", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		cfg := testConfig()
		svc, err := newService(ctx, cfg, logger.Nop())
		convey.So(err, convey.ShouldBeNil)
		router, err := newRouter(cfg, svc)
		convey.So(err, convey.ShouldBeNil)

		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		convey.So(waitLoaded(svc), convey.ShouldBeTrue)

		convey.Convey("Then the API answers with the loaded state", func() {
			w := get(router, "/api/state")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Header().Get("X-Request-ID"), convey.ShouldNotBeEmpty)
			convey.So(w.Header().Get("X-Frame-Options"), convey.ShouldEqual, "DENY")

			var st types.State
			convey.So(json.Unmarshal(w.Body.Bytes(), &st), convey.ShouldBeNil)
			convey.So(st.State, convey.ShouldEqual, "loaded")
			convey.So(st.Periodo, convey.ShouldEqual, "2025Q3")
		})

		convey.Convey("And every view is served", func() {
			for _, name := range []string{"pillars", "domains", "indicators", "evolution"} {
				convey.So(get(router, "/api/views/"+name).Code, convey.ShouldEqual, http.StatusOK)
			}
			convey.So(get(router, "/api/views/nope").Code, convey.ShouldEqual, http.StatusNotFound)
		})

		convey.Convey("And the site and docs are mounted", func() {
			convey.So(get(router, "/").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get(router, "/metodologia").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get(router, "/api-docs").Code, convey.ShouldEqual, http.StatusOK)
			convey.So(get(router, "/openapi.yaml").Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("And metrics and stats are exposed", func() {
			_ = get(router, "/api/state")
			w := get(router, "/healthz")
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, "ipa27_dashboard_http_requests_total")

			convey.So(get(router, "/stats").Code, convey.ShouldEqual, http.StatusOK)
		})
	})
}

func TestMainApplicationComponents(t *testing.T) {
	convey.Convey("Given main application components", t, func() {
		convey.Convey("When the system metrics updater runs until its context ends", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startSystemMetricsUpdater(ctx) }, convey.ShouldNotPanic)
		})

		convey.Convey("When the service metrics updater runs until its context ends", func() {
			svc, err := newService(context.Background(), testConfig(), logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()

			convey.So(func() { startServiceMetricsUpdater(ctx, svc) }, convey.ShouldNotPanic)
		})

		convey.Convey("When updating metrics directly", func() {
			svc, err := newService(context.Background(), testConfig(), logger.Nop())
			convey.So(err, convey.ShouldBeNil)

			convey.So(updateSystemMetrics, convey.ShouldNotPanic)
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}

func TestMainApplicationErrorHandling(t *testing.T) {
	convey.Convey("Given main application error handling", t, func() {
		convey.Convey("When the listen address is empty", func() {
			_ = os.Setenv("IPA27_ADDR", "")
			defer func() { _ = os.Unsetenv("IPA27_ADDR") }()

			convey.Convey("Then configuration loading should fail", func() {
				cfg, err := config.Load(context.Background())
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the locale is not a language tag", func() {
			cfg := testConfig()
			cfg.Locale = "??"

			convey.Convey("Then the router cannot be built", func() {
				svc, err := newService(context.Background(), cfg, logger.Nop())
				convey.So(err, convey.ShouldBeNil)
				_, err = newRouter(cfg, svc)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

func TestFlushLogger(t *testing.T) {
	convey.Convey("Given a logger flush", t, func() {
		var buf bytes.Buffer

		convey.Convey("When sync fails", func() {
			flushLogger(func() error { return errors.New("disk full") }, &buf)

			convey.Convey("Then the error is written out", func() {
				convey.So(buf.String(), convey.ShouldEqual, "failed to sync logger: disk full\n")
			})
		})

		convey.Convey("When sync succeeds", func() {
			flushLogger(logger.Sync, &buf)

			convey.Convey("Then nothing is written", func() {
				convey.So(buf.Len(), convey.ShouldEqual, 0)
			})
		})
	})
}
