package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fitchallenge"

var (
	activityRecordedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "last_activity_recorded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent activity appended to the ledger.",
	})
	activitiesRecorded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "activities_recorded_total",
		Help:      "Activities appended to the ledger, by scoring mode.",
	}, []string{"mode"})
	pointsAwarded = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "points_awarded_total",
		Help:      "Points written to the ledger, by source (activity or bonus).",
	}, []string{"source"})
	recomputeFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "recompute_failures_total",
		Help:      "Participant total recomputations that could not complete.",
	})
	bonusBatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "bonuses",
		Name:      "award_batches_total",
		Help:      "Consistency bonus award runs, by outcome.",
	}, []string{"outcome"})
	reportCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "reports",
		Name:      "cache_lookups_total",
		Help:      "Report cache lookups, by result (hit, miss, error).",
	}, []string{"result"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Latency of HTTP requests, by route, method and status code.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
)

// Point sources.
const (
	SourceActivity = "activity"
	SourceBonus    = "bonus"
)

// Bonus batch outcomes.
const (
	OutcomeAwarded        = "awarded"
	OutcomeNothingToAward = "nothing_to_award"
	OutcomeFailed         = "failed"
)

func init() {
	prometheus.MustRegister(
		activityRecordedGauge,
		activitiesRecorded,
		pointsAwarded,
		recomputeFailures,
		bonusBatches,
		reportCacheLookups,
		httpDuration,
	)
}

// RecordActivity counts an appended activity and moves the watermark gauge.
func RecordActivity(mode string, points int, ts time.Time) {
	activitiesRecorded.WithLabelValues(mode).Inc()
	if points > 0 {
		pointsAwarded.WithLabelValues(SourceActivity).Add(float64(points))
	}
	if ts.IsZero() {
		return
	}
	activityRecordedGauge.Set(float64(ts.Unix()))
}

// RecordBonusBatch counts an award run and the bonus points it created.
func RecordBonusBatch(outcome string, points int) {
	bonusBatches.WithLabelValues(outcome).Inc()
	if points > 0 {
		pointsAwarded.WithLabelValues(SourceBonus).Add(float64(points))
	}
}

// RecordRecomputeFailure counts a failed participant total recomputation.
func RecordRecomputeFailure() {
	recomputeFailures.Inc()
}

// RecordReportCache counts a report cache lookup.
func RecordReportCache(result string) {
	reportCacheLookups.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records the latency of one HTTP request.
func ObserveHTTPRequest(route, method string, status int, d time.Duration) {
	httpDuration.WithLabelValues(route, method, strconv.Itoa(status)).Observe(d.Seconds())
}
