package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options on a private registry", func() {
			manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

			Convey("Then defaults are applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.Enabled(), ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("engine"),
				WithMetricPrefix("x_"),
				WithLatencyBuckets([]float64{1, 10}),
				WithRefreshInterval(3*time.Second),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.mutations.WithLabelValues("create").Inc()

			Convey("Then metric names carry namespace, subsystem and prefix", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, f := range families {
					if f.GetName() == "test_engine_x_mutations_total" {
						found = true
						So(f.GetMetric()[0].GetLabel(), ShouldHaveLength, 2)
					}
				}
				So(found, ShouldBeTrue)
				So(manager.RefreshInterval(), ShouldEqual, 3*time.Second)
			})
		})

		Convey("When options receive empty values", func() {
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithLatencyBuckets(nil),
				WithConstLabels(nil),
				WithRefreshInterval(-time.Second),
				WithPrometheusRegistry(prometheus.NewRegistry()),
			)

			Convey("Then defaults are kept", func() {
				So(manager.namespace, ShouldEqual, "wodboard")
				So(manager.subsystem, ShouldEqual, "scoring")
				So(manager.histogramBuckets, ShouldResemble, latencyBuckets)
				So(manager.RefreshInterval(), ShouldEqual, defaultRefreshInterval)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a fresh global manager", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		prev := SetGlobal(manager)
		defer SetGlobal(prev)

		Convey("When recording engine metrics", func() {
			RecordMutation("create")
			RecordMutation("create")
			RecordMutation("delete")
			RecordResultsRanked(3)
			RecordResultsRanked(0)
			RecordBatchFailure()
			RecordDegradedRetry()
			RecordStandingsRecomputed()
			RecordUnparseableScore("Time")
			RecordDuplicateDelivery()
			UpdateTeamCount(12)
			RecordInvocationLatency("on_result_mutated", 4.5)

			Convey("Then the collectors reflect them", func() {
				So(testutil.ToFloat64(manager.mutations.WithLabelValues("create")), ShouldEqual, 2.0)
				So(testutil.ToFloat64(manager.mutations.WithLabelValues("delete")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.resultsRanked), ShouldEqual, 3.0)
				So(testutil.ToFloat64(manager.batchFailures), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.degradedRetries), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.standingsRecomputed), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.unparseableScores.WithLabelValues("Time")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.duplicateDeliveries), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.teamsTotal), ShouldEqual, 12.0)
			})
		})

		Convey("When recording queue and worker metrics", func() {
			UpdateQueueSize(5)
			UpdateQueueCapacity(10)
			UpdateQueueUtilization(0.5)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			UpdateWorkerCount(4)
			RecordWorkerError()
			RecordWorkerProcessingLatency(2)

			Convey("Then the gauges and counters reflect them", func() {
				So(testutil.ToFloat64(manager.queueSize), ShouldEqual, 5.0)
				So(testutil.ToFloat64(manager.queueCapacity), ShouldEqual, 10.0)
				So(testutil.ToFloat64(manager.queueUtilization), ShouldEqual, 0.5)
				So(testutil.ToFloat64(manager.queueEnqueue), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.queueDequeue), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.queueEnqueueErrors), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.workerCount), ShouldEqual, 4.0)
				So(testutil.ToFloat64(manager.workerErrors), ShouldEqual, 1.0)
			})
		})

		Convey("When recording HTTP and system metrics", func() {
			RecordHTTPRequest("/results", "POST", "202")
			RecordHTTPRequestDuration("/results", "POST", "202", 1.2)
			RecordHTTPError("/results", "POST", "queue_full")
			RecordRepositoryLatency("batch_write", 0.7)
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(42)
			RecordSystemGCPauseTime(0.3)

			Convey("Then they are recorded", func() {
				So(testutil.ToFloat64(manager.httpRequests.WithLabelValues("/results", "POST", "202")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.httpErrors.WithLabelValues("/results", "POST", "queue_full")), ShouldEqual, 1.0)
				So(testutil.ToFloat64(manager.systemMemoryUsage), ShouldEqual, float64(1<<20))
				So(testutil.ToFloat64(manager.systemGoroutineCount), ShouldEqual, 42.0)
			})
		})
	})
}

func TestMetricsDisabled(t *testing.T) {
	Convey("Given a disabled manager", t, func() {
		manager := NewManager(WithEnabled(false), WithPrometheusRegistry(prometheus.NewRegistry()))
		prev := SetGlobal(manager)
		defer SetGlobal(prev)

		RecordMutation("update")
		UpdateQueueSize(9)

		Convey("Then recorders leave the collectors untouched", func() {
			So(testutil.ToFloat64(manager.mutations.WithLabelValues("update")), ShouldEqual, 0.0)
			So(testutil.ToFloat64(manager.queueSize), ShouldEqual, 0.0)
		})
	})
}

func TestMetricsConcurrency(t *testing.T) {
	Convey("Given concurrent recorders", t, func() {
		manager := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))
		prev := SetGlobal(manager)
		defer SetGlobal(prev)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					RecordQueueEnqueue()
					RecordMutation("update")
				}
			}()
		}
		wg.Wait()

		Convey("Then no increments are lost", func() {
			So(testutil.ToFloat64(manager.queueEnqueue), ShouldEqual, 1000.0)
			So(testutil.ToFloat64(manager.mutations.WithLabelValues("update")), ShouldEqual, 1000.0)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the package registry", t, func() {
		RecordMutation("noop")
		families, err := GetRegistry().Gather()

		Convey("Then it gathers wodboard metrics", func() {
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
			So(Since(time.Now().Add(-time.Millisecond)), ShouldBeGreaterThan, 0)
		})
	})
}
