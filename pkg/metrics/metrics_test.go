package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then collectors are registered under the ipa27 namespace", func() {
				So(manager, ShouldNotBeNil)
				manager.snapshotState.Set(StateLoaded)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := make([]string, 0, len(families))
				for _, f := range families {
					names = append(names, f.GetName())
				}
				So(strings.Join(names, ","), ShouldContainSubstring, "ipa27_dashboard_snapshot_state")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithConstLabels(map[string]string{"region": "and"}),
				WithPrometheusRegistry(registry),
			)
			manager.snapshotBytes.Set(42)

			Convey("Then the names and labels follow the options", func() {
				So(testutil.ToFloat64(manager.snapshotBytes), ShouldEqual, 42)
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				found := false
				for _, f := range families {
					if f.GetName() == "test_unit_snapshot_bytes" {
						found = true
						So(f.GetMetric()[0].GetLabel()[0].GetValue(), ShouldEqual, "and")
					}
				}
				So(found, ShouldBeTrue)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithNamespace(""), WithSubsystem(""), WithHistogramBuckets(nil), WithConstLabels(nil), WithPrometheusRegistry(registry))

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "ipa27")
				So(manager.subsystem, ShouldEqual, "dashboard")
				So(manager.histogramBuckets, ShouldResemble, prometheus.DefBuckets)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics", t, func() {
		Convey("When recording snapshot lifecycle metrics", func() {
			RecordSnapshotFetch("http", "ok", 12)
			RecordSnapshotFetch("http", "error", 30)
			RecordSnapshotLoaded(2048, 1_700_000_000, 1)
			UpdateSnapshotState(StateLoaded)
			RecordSnapshotDecodeError()
			RecordDeriveLatency("pillars", 0.2)
			UpdateFallbackIndicatorRows(3)

			Convey("Then the gauges reflect the last values", func() {
				So(testutil.ToFloat64(globalManager.snapshotBytes), ShouldEqual, 2048)
				So(testutil.ToFloat64(globalManager.snapshotState), ShouldEqual, StateLoaded)
				So(testutil.ToFloat64(globalManager.fallbackIndicatorRows), ShouldEqual, 3)
				So(testutil.ToFloat64(globalManager.snapshotFetches.WithLabelValues("http", "ok")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When recording refresh, cache, HTTP and system metrics", func() {
			So(func() {
				RecordCacheLookup("hit")
				RecordCacheLookup("miss")
				RecordRefreshRequest("manual", "queued")
				UpdateRefreshPending(1)
				RecordHTTPRequest("views", "GET", "200")
				RecordHTTPRequestDuration("views", "GET", "200", 3)
				RecordErrorByComponent("source", "status")
				RecordErrorByEndpoint("views", "GET", "server_error")
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(12)
				RecordSystemGCPauseTime(0.3)
			}, ShouldNotPanic)
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		done := make(chan bool, 10)
		for i := 0; i < 10; i++ {
			go func() {
				for j := 0; j < 100; j++ {
					RecordHTTPRequest("/test", "GET", "200")
					RecordDeriveLatency("domains", float64(j)/100)
				}
				done <- true
			}()
		}
		for i := 0; i < 10; i++ {
			<-done
		}
		So(testutil.ToFloat64(globalManager.httpRequests.WithLabelValues("/test", "GET", "200")), ShouldBeGreaterThanOrEqualTo, 1000)
	})
}
