package datamodels

import (
	"time"
)

// one per poll attempt, successful or not
type LatencySample struct {
	Timestamp time.Time
	Latency   time.Duration
	Success   bool
}

func (l LatencySample) Millis() float64 {
	return float64(l.Latency) / float64(time.Millisecond)
}

type MemorySample struct {
	Timestamp     time.Time
	ResidentBytes uint64
}

type UptimeHeartbeat struct {
	Timestamp time.Time
}

// MetricsSnapshot is recomputed from the tracker's samples and log files on
// every request. A field whose derivation fails is left at zero.
type MetricsSnapshot struct {
	AvgLatencyMs              float64 `json:"avg_latency_ms"`
	MaxLatencyMs              float64 `json:"max_latency_ms"`
	MinLatencyMs              float64 `json:"min_latency_ms"`
	SuccessRate               float64 `json:"success_rate"`
	UptimePercentage          float64 `json:"uptime_percentage"`
	MemoryUsageBytes          uint64  `json:"memory_usage_bytes"`
	MemoryChangePercentage    float64 `json:"memory_change_percentage"`
	TotalTransactions         int     `json:"total_transactions"`
	PeakTransactionsPerMinute int     `json:"peak_transactions_per_minute"`
	SharpeRatio               float64 `json:"sharpe_ratio"`
}

// MetricsLogDocument is the whole content of metrics_log.json.
type MetricsLogDocument struct {
	Timestamp float64         `json:"timestamp"`
	Metrics   MetricsSnapshot `json:"metrics"`
}
