package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"

	"crossbot/src/config"
	"crossbot/src/datamodels"
	"crossbot/src/exchange"
	"crossbot/src/metrics"
	"crossbot/src/orchestrator"
	"crossbot/src/version"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code. Keeping os.Exit out of it lets the
// deferred log file close flush the final lines.
func run() int {
	// a missing .env is fine, the environment may already be set
	envErr := godotenv.Load()
	initializeLogging(os.Getenv("LOG_LEVEL"), nil)
	if envErr != nil {
		slog.Debug("No .env file loaded", "error", envErr)
	}

	crossbotConfig, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		return 1
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = crossbotConfig.Logging.Level
	}
	if logFile := newLogFile(crossbotConfig.Logging); logFile != nil {
		defer func() {
			initializeLogging(logLevel, nil)
			logFile.Close()
		}()
		initializeLogging(logLevel, logFile)
	} else {
		initializeLogging(logLevel, nil)
	}

	slog.Info("Ramping up Crossbot", "version", version.String(), "symbol", crossbotConfig.Symbol)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tracker, err := metrics.NewPerformanceTracker(crossbotConfig.Tracker)
	if err != nil {
		slog.Error("Failed to create performance tracker", "error", err)
		return 1
	}
	krakenClient := exchange.NewKrakenClient(crossbotConfig.Kraken)

	liveOrchestrator, err := orchestrator.NewLiveOrchestrator(crossbotConfig, krakenClient, tracker)
	if err != nil {
		slog.Error("Failed to create orchestrator", "error", err)
		return 1
	}

	if err := liveOrchestrator.Run(ctx); err != nil {
		slog.Error("Crossbot stopped with error", "error", err)
		return 1
	}
	slog.Info("Shut down cleanly")
	return 0
}

func newLogFile(config datamodels.LoggingConfig) *lumberjack.Logger {
	if config.File == "" {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   config.File,
		MaxSize:    config.MaxSizeMB,
		MaxBackups: config.MaxBackups,
		MaxAge:     config.MaxAgeDays,
		Compress:   true,
	}
}

func initializeLogging(logLevel string, file io.Writer) {
	var output io.Writer = os.Stdout
	if file != nil {
		output = io.MultiWriter(os.Stdout, file)
	}
	if logLevel == "" {
		logLevel = "INFO"
	}
	switch strings.ToLower(logLevel) {
	case "debug":
		slog.SetDefault(slog.New(slog.NewTextHandler(output,
			&slog.HandlerOptions{Level: slog.LevelDebug, AddSource: true})))
	case "warn":
		slog.SetDefault(slog.New(slog.NewTextHandler(output,
			&slog.HandlerOptions{Level: slog.LevelWarn})))
	case "error":
		slog.SetDefault(slog.New(slog.NewTextHandler(output,
			&slog.HandlerOptions{Level: slog.LevelError})))
	default:
		slog.SetDefault(slog.New(slog.NewTextHandler(output,
			&slog.HandlerOptions{Level: slog.LevelInfo})))
	}
}
