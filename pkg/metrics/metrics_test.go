package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithPrometheusRegistry(registry),
			)

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
			})
		})

		Convey("When options carry empty values", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace(""),
				WithSubsystem(""),
				WithHistogramBuckets(nil),
				WithPrometheusRegistry(registry),
			)

			Convey("Then defaults stay in place", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "valetudo")
				So(manager.subsystem, ShouldEqual, "sync")
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording ingestion metrics", func() {
			before := testutil.ToFloat64(globalManager.contestsIngested)
			RecordContestIngested()
			RecordContestDuplicate()
			RecordRecordMalformed()

			Convey("Then the counters advance", func() {
				So(testutil.ToFloat64(globalManager.contestsIngested), ShouldEqual, before+1)
			})
		})

		Convey("When recording run metrics", func() {
			So(func() {
				RecordRun("update", "ok", 1500*time.Millisecond)
				RecordRun("rebuild", "error", 2*time.Second)
			}, ShouldNotPanic)

			Convey("Then the mode/outcome pair is labeled", func() {
				c := globalManager.runs.WithLabelValues("update", "ok")
				So(testutil.ToFloat64(c), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When updating store gauges", func() {
			UpdateCheckpointContests(42)
			UpdateCompetitorsTotal(10)
			UpdateContestsTotal(42)

			Convey("Then the gauges hold the values", func() {
				So(testutil.ToFloat64(globalManager.checkpointContests), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.competitorsTotal), ShouldEqual, 10)
				So(testutil.ToFloat64(globalManager.contestsTotal), ShouldEqual, 42)
			})
		})

		Convey("When recording retrain decisions", func() {
			RecordRetrainDecision(true)
			RecordRetrainDecision(false)

			Convey("Then both verdicts are labeled", func() {
				So(testutil.ToFloat64(globalManager.retrainDecisions.WithLabelValues("true")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.retrainDecisions.WithLabelValues("false")), ShouldBeGreaterThanOrEqualTo, 1)
			})
		})

		Convey("When flipping the lease gauge", func() {
			SetLeaseHeld(true)
			So(testutil.ToFloat64(globalManager.leaseHeld), ShouldEqual, 1)
			SetLeaseHeld(false)
			So(testutil.ToFloat64(globalManager.leaseHeld), ShouldEqual, 0)
		})

		Convey("When recording HTTP metrics", func() {
			So(func() {
				RecordHTTPRequest("/api/ratings", "GET", "200")
				RecordHTTPRequestDuration("/api/ratings", "GET", "200", 0.012)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
