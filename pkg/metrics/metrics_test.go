package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestManagerCreation(t *testing.T) {
	Convey("Given a dedicated registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			m := NewManager(
				WithPrometheusRegistry(registry),
				WithNamespace("test"),
				WithSubsystem("unit"),
				WithHistogramBuckets([]float64{1, 2, 3}),
				WithConstLabels(map[string]string{"env": "test"}),
			)

			Convey("Then every metric is registered under the namespace", func() {
				So(m, ShouldNotBeNil)
				m.cycles.Inc()
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_unit_scheduler_cycles_total"], ShouldBeTrue)
			})
		})

		Convey("When two managers share one registry", func() {
			NewManager(WithPrometheusRegistry(registry))

			Convey("Then the second registration panics", func() {
				So(func() { NewManager(WithPrometheusRegistry(registry)) }, ShouldPanic)
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When recording scheduler activity", func() {
			before := testutil.ToFloat64(globalManager.cycles)
			RecordCycle(12)
			RecordContestUpdate("updated")
			RecordParticipantsUpdated(3)
			RecordTruncationWarning()
			UpdateActiveContests(2)

			Convey("Then the counters move", func() {
				So(testutil.ToFloat64(globalManager.cycles), ShouldEqual, before+1)
				So(testutil.ToFloat64(globalManager.contestUpdates.WithLabelValues("updated")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.activeContests), ShouldEqual, 2)
			})
		})

		Convey("When metrics are disabled", func() {
			globalManager.enabled = false
			defer func() { globalManager.enabled = true }()
			before := testutil.ToFloat64(globalManager.resyncEnqueued)
			RecordResyncEnqueued()

			Convey("Then nothing is recorded", func() {
				So(testutil.ToFloat64(globalManager.resyncEnqueued), ShouldEqual, before)
			})
		})

		Convey("When recording judge, rating, resync and HTTP activity", func() {
			RecordJudgeRequest("contest.status", "ok", 42)
			RecordRatingApplication("applied")
			RecordResyncRejected("duplicate")
			RecordResyncProcessed("ok", 5)
			UpdateResyncQueueSize(4)
			UpdateResyncWorkers(2)
			RecordHTTPRequest("stats", "GET", "200", 1)
			RecordRepositoryQuery("commit_rating", "already_applied", 3)

			Convey("Then they are visible through the registry", func() {
				So(testutil.ToFloat64(globalManager.ratingApplications.WithLabelValues("applied")), ShouldBeGreaterThanOrEqualTo, 1)
				So(testutil.ToFloat64(globalManager.resyncQueueSize), ShouldEqual, 4)
				So(testutil.ToFloat64(globalManager.repositoryQueries.WithLabelValues("commit_rating", "already_applied")), ShouldBeGreaterThanOrEqualTo, 1)
				So(GetRegistry(), ShouldNotBeNil)
			})
		})
	})
}
