package metrics

import (
	"fmt"
	"strings"
	"time"

	"crossbot/src/datamodels"
)

const reportTimeLayout = "2006-01-02 15:04:05"

// FormatReport renders a snapshot in the fixed human readable report layout.
func FormatReport(snapshot datamodels.MetricsSnapshot, generatedAt time.Time) string {
	var b strings.Builder
	b.WriteString("\nPERFORMANCE METRICS REPORT\n")
	b.WriteString("=========================\n")
	fmt.Fprintf(&b, "Generated: %s\n", generatedAt.Format(reportTimeLayout))
	b.WriteString("\nLATENCY METRICS:\n")
	fmt.Fprintf(&b, "- Average Latency: %.2f ms\n", snapshot.AvgLatencyMs)
	fmt.Fprintf(&b, "- Maximum Latency: %.2f ms\n", snapshot.MaxLatencyMs)
	fmt.Fprintf(&b, "- Minimum Latency: %.2f ms\n", snapshot.MinLatencyMs)
	fmt.Fprintf(&b, "- Success Rate: %.2f%%\n", snapshot.SuccessRate)
	b.WriteString("\nUPTIME METRICS:\n")
	fmt.Fprintf(&b, "- Uptime: %.2f%%\n", snapshot.UptimePercentage)
	b.WriteString("\nTRANSACTION METRICS:\n")
	fmt.Fprintf(&b, "- Total Transactions: %d\n", snapshot.TotalTransactions)
	fmt.Fprintf(&b, "- Peak Transactions/Minute: %d\n", snapshot.PeakTransactionsPerMinute)
	b.WriteString("\nMEMORY METRICS:\n")
	fmt.Fprintf(&b, "- Current Memory Usage: %.2f MB\n", float64(snapshot.MemoryUsageBytes)/1024/1024)
	fmt.Fprintf(&b, "- Memory Change: %.2f%%\n", snapshot.MemoryChangePercentage)
	b.WriteString("\nPERFORMANCE METRICS:\n")
	fmt.Fprintf(&b, "- Sharpe Ratio: %.2f\n", snapshot.SharpeRatio)
	return b.String()
}
