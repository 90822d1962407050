// Package metrics holds the prometheus collectors shared by producers,
// consumers and the store.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "food_court"

var (
	MessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_published_total",
			Help:      "Messages handed to the broker, by topic and result.",
		},
		[]string{"topic", "result"},
	)

	PublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "publish_reconnects_total",
			Help:      "Reconnect-and-retry cycles after a recoverable transport failure.",
		},
	)

	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "Invalid events routed to the dead-letter topic.",
		},
		[]string{"original_topic"},
	)

	MessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_consumed_total",
			Help:      "Messages handled by a consumer group.",
		},
		[]string{"group", "topic"},
	)

	ConsumerErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "consumer_errors_total",
			Help:      "Messages a consumer failed to handle and skipped.",
		},
		[]string{"group"},
	)

	Rebalances = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebalances_total",
			Help:      "Consumer group generations joined.",
		},
		[]string{"group"},
	)

	StoreLockWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_lock_wait_seconds",
			Help:      "Time spent acquiring the store file lock.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
	)

	StreamSubscribers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_subscribers",
			Help:      "Live stream subscribers, by stream.",
		},
		[]string{"stream"},
	)

	StreamDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_dropped_total",
			Help:      "Stream values dropped from a full subscriber buffer.",
		},
		[]string{"stream"},
	)

	StoreBusy = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_busy_total",
			Help:      "Store operations failed because the lock could not be acquired in time.",
		},
	)
)

func RecordPublish(topic string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	MessagesPublished.WithLabelValues(topic, result).Inc()
}

func RecordLockWait(started time.Time) {
	StoreLockWait.Observe(time.Since(started).Seconds())
}
