package consumer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/kafka-go"
)

type outcome string

const (
	outcomeHandled      outcome = "handled"
	outcomeFailed       outcome = "handler_error"
	outcomeMalformed    outcome = "malformed"
	outcomeUnrouted     outcome = "unrouted"
	outcomeCommitFailed outcome = "commit_error"
)

var (
	recordsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "consumer",
		Name:      "records_total",
		Help:      "Kafka records read, by topic, event type and outcome.",
	}, []string{"topic", "event_type", "outcome"})

	lagHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sabzgam",
		Subsystem: "consumer",
		Name:      "event_lag_seconds",
		Help:      "Delay between publishing an event and handling it.",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	}, []string{"event_type"})

	rialCredited = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "rial_credited_total",
		Help:      "Wallet credit earned by walking, in rial.",
	})
	rialSpent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "rial_spent_total",
		Help:      "Wallet credit spent on rewards, in rial.",
	})
	rewardsRedeemed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "rewards_redeemed_total",
		Help:      "Redeemed rewards by catalog ID.",
	}, []string{"reward_id"})
	walksCompleted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "walks_completed_total",
		Help:      "Walks recorded into user history.",
	})
	stepsWalked = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "steps_walked_total",
		Help:      "Steps across all recorded walks.",
	})
	co2Saved = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "activity",
		Name:      "co2_saved_grams_total",
		Help:      "Estimated CO2 saved by recorded walks, in grams.",
	})
)

func init() {
	prometheus.MustRegister(recordsCounter, lagHistogram,
		rialCredited, rialSpent, rewardsRedeemed, walksCompleted, stepsWalked, co2Saved)
}

func recordOutcome(msg kafka.Message, eventType string, result outcome) {
	if eventType == "" {
		eventType = "unknown"
	}
	recordsCounter.WithLabelValues(msg.Topic, eventType, string(result)).Inc()
	if result == outcomeHandled && !msg.Time.IsZero() {
		lagHistogram.WithLabelValues(eventType).Observe(time.Since(msg.Time).Seconds())
	}
}
