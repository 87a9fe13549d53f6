package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"crossbot/src/metrics"
)

// Recomputes what can be derived from a log directory after the fact: uptime,
// transaction counts and the Sharpe ratio. Latency and memory only exist in a
// live process and print as zero.
func main() {
	dir := flag.String("dir", "./logs", "log directory written by crossbot")
	heartbeatInterval := flag.Duration("heartbeat-interval", time.Minute, "heartbeat interval the logs were written with")
	asJson := flag.Bool("json", false, "print the metrics snapshot as JSON instead of the text report")
	chart := flag.Bool("chart", false, "also render the pnl chart into the log directory")
	flag.Parse()

	if _, err := os.Stat(*dir); err != nil {
		slog.Error("Log directory is not readable", "dir", *dir, "error", err)
		os.Exit(1)
	}

	snapshot := metrics.ComputeFileMetrics(*dir, *heartbeatInterval)
	if *asJson {
		encoded, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			slog.Error("Failed to encode metrics", "error", err)
			os.Exit(1)
		}
		fmt.Println(string(encoded))
	} else {
		fmt.Print(metrics.FormatReport(snapshot, time.Now()))
	}

	if *chart {
		records, err := metrics.ReadTradeHistory(filepath.Join(*dir, metrics.TradeHistoryFileName))
		if err != nil {
			slog.Error("Failed to read trade history", "error", err)
			os.Exit(1)
		}
		if err := metrics.NewPnlPlotter(filepath.Join(*dir, metrics.PnlChartFileName)).Plot(records); err != nil {
			slog.Error("Failed to render pnl chart", "error", err)
			os.Exit(1)
		}
	}
}
