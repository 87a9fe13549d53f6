package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"crossbot/src/datamodels"
	"crossbot/src/exchange"
	"crossbot/src/feeds"
	"crossbot/src/metrics"
	"crossbot/src/server"
	"crossbot/src/strategies"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
)

// LiveOrchestrator owns every long running task of a trading session and
// ties their lifetime to the context given to Run.
type LiveOrchestrator struct {
	config      *datamodels.CrossbotConfig
	runId       string
	client      exchange.ExchangeClient
	tracker     *metrics.PerformanceTracker
	engine      *strategies.MaCrossover
	feed        *feeds.PollingFeed
	store       *metrics.LatestStateStore
	wsWriter    *metrics.WebsocketStateWriter
	stateWriter *metrics.MultiStateWriter
	server      *server.Server
	now         func() time.Time
}

func NewLiveOrchestrator(config *datamodels.CrossbotConfig, client exchange.ExchangeClient, tracker *metrics.PerformanceTracker) (*LiveOrchestrator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	engine, err := strategies.NewMaCrossover(config.Strategy.FastWindow, config.Strategy.SlowWindow)
	if err != nil {
		return nil, err
	}
	engine.WithTransactionSink(tracker)

	runId := general.NewRunId(config.Symbol, time.Now())
	store := metrics.NewLatestStateStore(runId, config.Symbol)
	o := &LiveOrchestrator{
		config:      config,
		runId:       runId,
		client:      client,
		tracker:     tracker,
		engine:      engine,
		store:       store,
		stateWriter: metrics.NewMultiStateWriter(store),
		now:         time.Now,
	}
	o.feed = feeds.NewPollingFeed(client, engine, tracker).
		WithPollInterval(config.Poller.PollInterval).
		WithMaxBackoffExponent(config.Poller.MaxBackoffExponent)

	if config.Server.Enabled {
		o.wsWriter = metrics.NewWebsocketStateWriter()
		o.stateWriter.AddWriter(o.wsWriter)
		o.server = server.NewServer(config.Server.Addr).
			WithStateSource(store).
			WithReportSource(tracker).
			WithStateWriter(o.wsWriter)
	}
	return o, nil
}

// WithSleeper replaces the poller's sleep, mostly for tests.
func (o *LiveOrchestrator) WithSleeper(sleeper feeds.Sleeper) *LiveOrchestrator {
	o.feed.WithSleeper(sleeper)
	return o
}

func (o *LiveOrchestrator) RunId() string {
	return o.runId
}

func (o *LiveOrchestrator) LatestState() datamodels.StateSnapshot {
	return o.store.Latest()
}

func (o *LiveOrchestrator) Engine() *strategies.MaCrossover {
	return o.engine
}

/*
Run starts the poller, the heartbeat, the periodic report and, if enabled, the
server, and blocks until ctx is cancelled or the poller stops on an
unrecoverable error. A final report is flushed before returning either way.
Cancellation is not an error; a poller failure is returned.
*/
func (o *LiveOrchestrator) Run(ctx context.Context) error {
	slog.Info(fmt.Sprintf("Starting live session for %s with %s", o.config.Symbol, o.engine.GetName()),
		"run_id", o.runId, "client", o.client.GetName())
	slog.Debug("System usage at start", "usage", general.GetSystemUsage())
	o.probeExchange(ctx)

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := o.feed.Run(groupCtx, o.config.Symbol, o.onState)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return o.tracker.RunHeartbeat(groupCtx)
	})
	g.Go(func() error {
		return o.runReportLoop(groupCtx)
	})
	if o.server != nil {
		g.Go(func() error {
			// losing the dashboard does not stop trading
			if err := o.server.Start(groupCtx); err != nil {
				slog.Error("Server stopped, continuing without it", "error", err)
			}
			return nil
		})
	}

	runErr := g.Wait()
	slog.Debug("System usage at stop", "usage", general.GetSystemUsage())
	if runErr != nil {
		slog.Error("Live session stopped", "run_id", o.runId, "error", runErr)
	} else {
		slog.Info("Live session cancelled", "run_id", o.runId)
	}

	if err := o.stateWriter.Close(); err != nil {
		slog.Warn("Failed to close state writers", "error", err)
	}
	if err := o.FlushReport(); err != nil {
		slog.Error("Failed to flush final report", "error", err)
	}
	return runErr
}

func (o *LiveOrchestrator) onState(result datamodels.SignalResult) {
	snapshot := datamodels.NewStateSnapshot(o.runId, o.config.Symbol, o.now(), result)
	if err := o.stateWriter.Write(context.Background(), snapshot); err != nil {
		slog.Warn("Failed to publish state", "error", err)
	}
}

func (o *LiveOrchestrator) runReportLoop(ctx context.Context) error {
	ticker := time.NewTicker(o.config.Tracker.ReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := o.tracker.PersistMetrics(); err != nil {
				slog.Error("Failed to persist metrics", "error", err)
			}
			slog.Info(fmt.Sprintf("Performance report:\n%s", o.tracker.GetReport()), "run_id", o.runId)
		}
	}
}

// probeExchange logs venue status when the client supports it. Failures are
// only logged; LoadMarkets decides whether the session can start.
func (o *LiveOrchestrator) probeExchange(ctx context.Context) {
	prober, ok := o.client.(exchange.StatusProber)
	if !ok {
		return
	}
	status, err := prober.GetSystemStatus(ctx)
	if err != nil {
		slog.Warn("Failed to read exchange status", "error", err)
		return
	}
	if status != "online" {
		slog.Warn(fmt.Sprintf("Exchange status is %s", status))
		return
	}
	slog.Info("Exchange is online", "client", o.client.GetName())
}

// FlushReport persists metrics, logs the report and writes it next to the
// other logs, then renders the pnl chart if enabled.
func (o *LiveOrchestrator) FlushReport() error {
	var errs []error
	if _, err := o.tracker.PersistMetrics(); err != nil {
		errs = append(errs, err)
	}

	report := o.tracker.GetReport()
	slog.Info(fmt.Sprintf("Final performance report:\n%s", report), "run_id", o.runId)
	reportPath := filepath.Join(o.tracker.LogDirectory(), metrics.ReportFileName)
	if err := os.WriteFile(reportPath, []byte(report), 0644); err != nil {
		errs = append(errs, errors.Wrap(err, "failed to write report"))
	}

	if o.config.Tracker.PnlChart {
		chartPath := filepath.Join(o.tracker.LogDirectory(), metrics.PnlChartFileName)
		err := metrics.NewPnlPlotter(chartPath).
			WithTitle(fmt.Sprintf("%s %s realized PnL", o.config.Symbol, o.engine.GetName())).
			Plot(o.tracker.Transactions())
		if err != nil && !errors.Is(err, metrics.ErrNothingToPlot) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
