package metrics

import (
	"io/fs"
	"log/slog"
	"math"
	"path/filepath"
	"time"

	"github.com/montanaflynn/stats"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
)

const tradingDaysPerYear = 252

type LatencyStats struct {
	AvgMs       float64
	MaxMs       float64
	MinMs       float64
	SuccessRate float64
}

func ComputeLatencyStats(samples []datamodels.LatencySample) (LatencyStats, error) {
	if len(samples) == 0 {
		return LatencyStats{}, nil
	}
	millis := make(stats.Float64Data, len(samples))
	successes := 0
	for i, sample := range samples {
		millis[i] = sample.Millis()
		if sample.Success {
			successes++
		}
	}
	avg, err := millis.Mean()
	if err != nil {
		return LatencyStats{}, err
	}
	maxMs, err := millis.Max()
	if err != nil {
		return LatencyStats{}, err
	}
	minMs, err := millis.Min()
	if err != nil {
		return LatencyStats{}, err
	}
	return LatencyStats{
		AvgMs:       avg,
		MaxMs:       maxMs,
		MinMs:       minMs,
		SuccessRate: float64(successes) / float64(len(samples)) * 100,
	}, nil
}

// UptimePercentage compares the heartbeats seen against the number expected
// between the first and last one, capped at 100.
func UptimePercentage(heartbeats []time.Time, interval time.Duration) float64 {
	if len(heartbeats) < 2 || interval <= 0 {
		return 0
	}
	duration := heartbeats[len(heartbeats)-1].Sub(heartbeats[0])
	if duration <= 0 {
		return 0
	}
	expected := float64(duration) / float64(interval)
	return math.Max(0, math.Min(100, float64(len(heartbeats))/expected*100))
}

func MemoryChangePercentage(initial uint64, current uint64) float64 {
	if initial == 0 {
		return 0
	}
	return (float64(current) - float64(initial)) / float64(initial) * 100
}

// PeakTransactionsPerMinute counts transactions per 60 second bucket aligned
// to the unix epoch and returns the largest count.
func PeakTransactionsPerMinute(records []datamodels.TransactionRecord) int {
	buckets := map[int64]int{}
	peak := 0
	for _, record := range records {
		bucket := floorDiv(record.Timestamp.Unix(), 60)
		buckets[bucket]++
		if buckets[bucket] > peak {
			peak = buckets[bucket]
		}
	}
	return peak
}

func floorDiv(a int64, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

const secondsPerDay = 24 * 60 * 60

// DailyPnl holds pnl summed per UTC calendar day for the days that saw a
// transaction, plus the number of calendar days from the first to the last.
// Days in the span without an entry in Totals count as zero.
type DailyPnl struct {
	Totals map[int64]float64
	Days   int64
}

func DailyPnlOf(records []datamodels.TransactionRecord) DailyPnl {
	daily := DailyPnl{Totals: map[int64]float64{}}
	if len(records) == 0 {
		return daily
	}
	first := floorDiv(records[0].Timestamp.Unix(), secondsPerDay)
	last := first
	for _, record := range records {
		day := floorDiv(record.Timestamp.Unix(), secondsPerDay)
		daily.Totals[day] += record.Pnl
		first = min(first, day)
		last = max(last, day)
	}
	daily.Days = last - first + 1
	return daily
}

// SharpeRatio annualizes mean over sample standard deviation of daily pnl.
// It is zero for fewer than two days or zero variance. Empty days contribute
// (x-mean)^2 = mean^2 each, so the cost stays linear in the number of records.
func SharpeRatio(records []datamodels.TransactionRecord) (float64, error) {
	daily := DailyPnlOf(records)
	if daily.Days < 2 {
		return 0, nil
	}
	totals := make(stats.Float64Data, 0, len(daily.Totals))
	for _, total := range daily.Totals {
		totals = append(totals, total)
	}
	sum, err := totals.Sum()
	if err != nil {
		return 0, err
	}
	days := float64(daily.Days)
	mean := sum / days
	squares := float64(daily.Days-int64(len(totals))) * mean * mean
	for _, total := range totals {
		squares += (total - mean) * (total - mean)
	}
	stddev := math.Sqrt(squares / (days - 1))
	if stddev == 0 || math.IsNaN(stddev) || math.IsInf(stddev, 0) {
		return 0, nil
	}
	return mean / stddev * math.Sqrt(tradingDaysPerYear), nil
}

// ComputeFileMetrics derives what it can from a log directory alone: uptime,
// transaction counts and the Sharpe ratio. Latency and memory need a live
// tracker and stay zero. Unreadable files are logged and leave their fields at zero.
func ComputeFileMetrics(logDirectory string, heartbeatInterval time.Duration) datamodels.MetricsSnapshot {
	snapshot := datamodels.MetricsSnapshot{}
	snapshot.UptimePercentage = uptimeFromFile(filepath.Join(logDirectory, UptimeLogFileName), heartbeatInterval)

	records, err := ReadTradeHistory(filepath.Join(logDirectory, TradeHistoryFileName))
	if err != nil {
		logDerivationError("trade_history", err)
		return snapshot
	}
	snapshot.TotalTransactions = len(records)
	snapshot.PeakTransactionsPerMinute = PeakTransactionsPerMinute(records)
	snapshot.SharpeRatio = sharpeOrZero(records)
	return snapshot
}

func uptimeFromFile(path string, interval time.Duration) float64 {
	heartbeats, err := ReadUptimeLog(path)
	if err != nil {
		logDerivationError("uptime_percentage", err)
		return 0
	}
	return UptimePercentage(heartbeats, interval)
}

func sharpeFromFile(path string) float64 {
	records, err := ReadTradeHistory(path)
	if err != nil {
		logDerivationError("sharpe_ratio", err)
		return 0
	}
	return sharpeOrZero(records)
}

func sharpeOrZero(records []datamodels.TransactionRecord) float64 {
	sharpe, err := SharpeRatio(records)
	if err != nil {
		logDerivationError("sharpe_ratio", err)
		return 0
	}
	return sharpe
}

// a log that was never written is not an error, there is just nothing to derive yet
func logDerivationError(field string, err error) {
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("Metrics source not written yet", "field", field)
		return
	}
	slog.Error("Failed to derive metric, defaulting to zero", "field", field, "error", err)
}
