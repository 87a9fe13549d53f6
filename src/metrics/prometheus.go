package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	PollsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossbot_polls_total", Help: "Ticker polls by outcome"},
		[]string{"symbol", "result"},
	)
	FailureStreak = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "crossbot_poll_failure_streak", Help: "Consecutive failed polls"},
		[]string{"symbol"},
	)
	CallLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "crossbot_call_latency_seconds",
			Help:    "Latency of measured exchange calls",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"result"},
	)
	TransactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "crossbot_transactions_total", Help: "Simulated transactions by kind"},
		[]string{"kind"},
	)
	PositionGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "crossbot_position", Help: "Current position, -1 short, 0 flat, 1 long"},
		[]string{"symbol"},
	)
	RealizedPnlGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "crossbot_realized_pnl", Help: "Cumulative realized pnl"},
		[]string{"symbol"},
	)
	ResidentMemoryBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "crossbot_resident_memory_bytes", Help: "Last sampled resident memory"},
	)
	HeartbeatsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "crossbot_heartbeats_total", Help: "Uptime heartbeats written"},
	)
)

func init() {
	prometheus.MustRegister(
		PollsTotal,
		FailureStreak,
		CallLatency,
		TransactionsTotal,
		PositionGauge,
		RealizedPnlGauge,
		ResidentMemoryBytes,
		HeartbeatsTotal,
	)
}
