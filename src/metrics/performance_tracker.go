package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

type TrackerOption func(*PerformanceTracker)

func WithMemorySampler(sampler MemorySampler) TrackerOption {
	return func(t *PerformanceTracker) {
		t.sampler = sampler
	}
}

func WithClock(now func() time.Time) TrackerOption {
	return func(t *PerformanceTracker) {
		t.now = now
	}
}

/*
PerformanceTracker records poll latency, memory, transactions and heartbeats,
and derives a MetricsSnapshot from them on demand.

Collections are guarded by mu and the log files by fileMu, so the poller, the
heartbeat loop and report readers can call in from their own goroutines.
*/
type PerformanceTracker struct {
	mu            sync.Mutex
	latencies     []datamodels.LatencySample
	memory        []datamodels.MemorySample
	transactions  []datamodels.TransactionRecord
	initialMemory uint64

	fileMu            sync.Mutex
	logDirectory      string
	heartbeatInterval time.Duration
	persistEvery      int

	sampler MemorySampler
	now     func() time.Time
}

func NewPerformanceTracker(config datamodels.TrackerConfig, opts ...TrackerOption) (*PerformanceTracker, error) {
	if config.LogDirectory == "" {
		return nil, errors.New("log directory is required")
	}
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		return nil, errors.Wrapf(err, "failed to create log directory %s", config.LogDirectory)
	}
	t := &PerformanceTracker{
		logDirectory:      config.LogDirectory,
		heartbeatInterval: config.HeartbeatInterval,
		persistEvery:      config.MetricsPersistEveryNSamples,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.sampler == nil {
		t.sampler = NewProcessMemorySampler()
	}
	if t.heartbeatInterval <= 0 {
		t.heartbeatInterval = time.Minute
	}

	initial, err := t.SampleMemory()
	if err != nil {
		slog.Warn("Failed to take initial memory sample", "error", err)
	}
	t.initialMemory = initial

	slog.Info(fmt.Sprintf("PerformanceTracker writing to %s", config.LogDirectory),
		"heartbeat_interval", t.heartbeatInterval, "persist_every", t.persistEvery)
	return t, nil
}

func (t *PerformanceTracker) LogDirectory() string {
	return t.logDirectory
}

func (t *PerformanceTracker) UptimeLogPath() string {
	return filepath.Join(t.logDirectory, UptimeLogFileName)
}

func (t *PerformanceTracker) MetricsLogPath() string {
	return filepath.Join(t.logDirectory, MetricsLogFileName)
}

func (t *PerformanceTracker) TradeHistoryPath() string {
	return filepath.Join(t.logDirectory, TradeHistoryFileName)
}

// MeasureLatency times op and records one sample whatever the outcome. The
// error from op is returned unchanged. Every persistEvery samples the metrics
// log is rewritten; a failure to do so is logged, not returned.
func (t *PerformanceTracker) MeasureLatency(ctx context.Context, op func(ctx context.Context) error) error {
	start := t.now()
	opErr := op(ctx)
	end := t.now()

	sample := datamodels.LatencySample{
		Timestamp: end,
		Latency:   end.Sub(start),
		Success:   opErr == nil,
	}
	t.mu.Lock()
	t.latencies = append(t.latencies, sample)
	count := len(t.latencies)
	t.mu.Unlock()

	result := "success"
	if !sample.Success {
		result = "failure"
	}
	CallLatency.WithLabelValues(result).Observe(sample.Latency.Seconds())

	if t.persistEvery > 0 && count%t.persistEvery == 0 {
		if _, err := t.PersistMetrics(); err != nil {
			slog.Error("Failed to persist metrics", "samples", count, "error", err)
		}
	}
	return opErr
}

func (t *PerformanceTracker) SampleMemory() (uint64, error) {
	resident, err := t.sampler.ResidentBytes()
	if err != nil {
		return 0, errors.Wrap(err, "failed to sample memory")
	}
	t.mu.Lock()
	t.memory = append(t.memory, datamodels.MemorySample{Timestamp: t.now(), ResidentBytes: resident})
	t.mu.Unlock()
	ResidentMemoryBytes.Set(float64(resident))
	return resident, nil
}

// RecordTransaction keeps the record in memory and appends it to the trade
// history before returning. The in-memory record is kept even if the append fails.
func (t *PerformanceTracker) RecordTransaction(record datamodels.TransactionRecord) error {
	t.mu.Lock()
	t.transactions = append(t.transactions, record)
	t.mu.Unlock()
	TransactionsTotal.WithLabelValues(string(record.Kind)).Inc()

	t.fileMu.Lock()
	defer t.fileMu.Unlock()
	return AppendTradeRecord(t.TradeHistoryPath(), record)
}

func (t *PerformanceTracker) Transactions() []datamodels.TransactionRecord {
	t.mu.Lock()
	defer t.mu.Unlock()
	transactions := make([]datamodels.TransactionRecord, len(t.transactions))
	copy(transactions, t.transactions)
	return transactions
}

func (t *PerformanceTracker) Heartbeat() error {
	t.fileMu.Lock()
	defer t.fileMu.Unlock()
	if err := AppendHeartbeat(t.UptimeLogPath(), datamodels.UptimeHeartbeat{Timestamp: t.now()}); err != nil {
		return err
	}
	HeartbeatsTotal.Inc()
	return nil
}

// RunHeartbeat writes a heartbeat now and then once per interval until ctx is cancelled.
func (t *PerformanceTracker) RunHeartbeat(ctx context.Context) error {
	ticker := time.NewTicker(t.heartbeatInterval)
	defer ticker.Stop()
	for {
		if err := t.Heartbeat(); err != nil {
			slog.Error("Failed to write heartbeat", "error", err)
		}
		select {
		case <-ctx.Done():
			slog.Info("Context was cancelled, stopping heartbeat")
			return nil
		case <-ticker.C:
		}
	}
}

// ComputeMetrics derives a snapshot from the recorded samples and the log
// files. It never fails; fields that cannot be derived are zero.
func (t *PerformanceTracker) ComputeMetrics() datamodels.MetricsSnapshot {
	t.mu.Lock()
	latencies := make([]datamodels.LatencySample, len(t.latencies))
	copy(latencies, t.latencies)
	var lastMemory uint64
	if len(t.memory) > 0 {
		lastMemory = t.memory[len(t.memory)-1].ResidentBytes
	}
	initialMemory := t.initialMemory
	transactions := make([]datamodels.TransactionRecord, len(t.transactions))
	copy(transactions, t.transactions)
	t.mu.Unlock()

	snapshot := datamodels.MetricsSnapshot{}
	latencyStats, err := ComputeLatencyStats(latencies)
	if err != nil {
		logDerivationError("latency", err)
	} else {
		snapshot.AvgLatencyMs = latencyStats.AvgMs
		snapshot.MaxLatencyMs = latencyStats.MaxMs
		snapshot.MinLatencyMs = latencyStats.MinMs
		snapshot.SuccessRate = latencyStats.SuccessRate
	}

	snapshot.MemoryUsageBytes = lastMemory
	snapshot.MemoryChangePercentage = MemoryChangePercentage(initialMemory, lastMemory)

	snapshot.TotalTransactions = len(transactions)
	snapshot.PeakTransactionsPerMinute = PeakTransactionsPerMinute(transactions)

	t.fileMu.Lock()
	snapshot.UptimePercentage = uptimeFromFile(t.UptimeLogPath(), t.heartbeatInterval)
	snapshot.SharpeRatio = sharpeFromFile(t.TradeHistoryPath())
	t.fileMu.Unlock()

	return snapshot
}

// PersistMetrics overwrites the metrics log with a fresh snapshot and returns it.
func (t *PerformanceTracker) PersistMetrics() (datamodels.MetricsSnapshot, error) {
	snapshot := t.ComputeMetrics()
	document := datamodels.MetricsLogDocument{
		Timestamp: unixSeconds(t.now()),
		Metrics:   snapshot,
	}
	t.fileMu.Lock()
	defer t.fileMu.Unlock()
	if err := WriteMetricsLog(t.MetricsLogPath(), document); err != nil {
		return snapshot, err
	}
	slog.Debug("Persisted metrics", "path", t.MetricsLogPath(), "total_transactions", snapshot.TotalTransactions)
	return snapshot, nil
}

func (t *PerformanceTracker) GetReport() string {
	return FormatReport(t.ComputeMetrics(), t.now())
}
