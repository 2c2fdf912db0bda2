package outbox

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// Publish results.
const (
	resultDelivered    = "delivered"
	resultDeadLettered = "dead_lettered"
)

// DLQ replay outcomes.
const (
	dlqReplayed       = "replayed"
	dlqRetryScheduled = "retry_scheduled"
	dlqQuarantined    = "quarantined"
)

var (
	publishedEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitchallenge",
		Subsystem: "outbox",
		Name:      "events_total",
		Help:      "Outbox events handled by the dispatcher, by topic and result.",
	}, []string{"topic", "result"})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "fitchallenge",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent fetching, delivering and marking one outbox batch.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	dlqOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fitchallenge",
		Subsystem: "dlq",
		Name:      "entries_total",
		Help:      "DLQ entries handled by the replay manager, by outcome.",
	}, []string{"topic", "event_type", "outcome"})

	dlqBacklog = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "fitchallenge",
		Subsystem: "dlq",
		Name:      "queued_entries",
		Help:      "DLQ entries still waiting for replay.",
	})
)

func init() {
	prometheus.MustRegister(publishedEvents, batchDuration, dlqOutcomes, dlqBacklog)
}

func recordPublished(messages []Message, result string) {
	for _, msg := range messages {
		publishedEvents.WithLabelValues(msg.Topic, result).Inc()
	}
}

func recordDLQ(entry dlqEntry, outcome string) {
	dlqOutcomes.WithLabelValues(entry.Topic, entry.EventType, outcome).Inc()
}

func updateBacklogGauge(ctx context.Context, pool *pgxpool.Pool) {
	var count int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM outbox_dlq WHERE quarantined_at IS NULL`).Scan(&count); err != nil {
		return
	}
	dlqBacklog.Set(float64(count))
}
