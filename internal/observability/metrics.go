// Package observability owns the Prometheus collectors for walking sessions and the wallet.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	activeSessionsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sabzgam",
		Subsystem: "accrual",
		Name:      "active_sessions",
		Help:      "Number of walking sessions currently mounted.",
	})
	ticksCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "accrual",
		Name:      "ticks_total",
		Help:      "Number of walking ticks applied across all sessions.",
	})
	stepsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "accrual",
		Name:      "steps_total",
		Help:      "Simulated steps accrued across all sessions.",
	})
	coinsCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "accrual",
		Name:      "coins_awarded_total",
		Help:      "Coins granted for step thresholds crossed.",
	})
	redemptionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sabzgam",
		Subsystem: "rewards",
		Name:      "redemptions_total",
		Help:      "Reward redemption attempts grouped by outcome.",
	}, []string{"result"})
	walletWriteGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "sabzgam",
		Subsystem: "wallet",
		Name:      "last_ledger_write_timestamp_seconds",
		Help:      "Unix timestamp of the most recent wallet ledger entry.",
	})
)

func init() {
	prometheus.MustRegister(activeSessionsGauge, ticksCounter, stepsCounter, coinsCounter, redemptionCounter, walletWriteGauge)
}

// RecordTick accounts for one applied tick.
func RecordTick(steps, coins int) {
	ticksCounter.Inc()
	stepsCounter.Add(float64(steps))
	if coins > 0 {
		coinsCounter.Add(float64(coins))
	}
}

// SetActiveSessions publishes the mounted session count.
func SetActiveSessions(n int) {
	activeSessionsGauge.Set(float64(n))
}

// RecordRedemption counts a redemption attempt by result (redeemed, insufficient, not_found, error).
func RecordRedemption(result string) {
	redemptionCounter.WithLabelValues(result).Inc()
}

// RecordLedgerWrite updates the ledger watermark gauge.
func RecordLedgerWrite(ts time.Time) {
	if ts.IsZero() {
		return
	}
	walletWriteGauge.Set(float64(ts.Unix()))
}
