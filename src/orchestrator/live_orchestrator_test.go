//go:build unit

package orchestrator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/datamodels"
	"crossbot/src/exchange"
	"crossbot/src/feeds"
	"crossbot/src/metrics"
	crossboterrors "crossbot/src/utils/errors"
)

type fakeExchangeClient struct {
	mu      sync.Mutex
	loadErr error
	prices  []float64
	calls   int
	status  string
}

func (f *fakeExchangeClient) GetName() string { return "FakeExchangeClient" }

func (f *fakeExchangeClient) LoadMarkets(ctx context.Context) error { return f.loadErr }

func (f *fakeExchangeClient) FetchTicker(ctx context.Context, symbol string) (datamodels.Ticker, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls >= len(f.prices) {
		return datamodels.Ticker{}, crossboterrors.WrapE(exchange.ErrTransient, errors.New("no more prices"))
	}
	price := f.prices[f.calls]
	f.calls++
	return datamodels.Ticker{Symbol: symbol, Last: price, Timestamp: time.Now()}, nil
}

func (f *fakeExchangeClient) GetServerTime(ctx context.Context) (int64, error) {
	return time.Now().Unix(), nil
}

func (f *fakeExchangeClient) GetSystemStatus(ctx context.Context) (string, error) {
	return f.status, nil
}

type constantSampler struct{}

func (constantSampler) ResidentBytes() (uint64, error) { return 64 * 1024 * 1024, nil }

func testConfig(t *testing.T) *datamodels.CrossbotConfig {
	config := datamodels.DefaultCrossbotConfig()
	config.Strategy.FastWindow = 2
	config.Strategy.SlowWindow = 3
	config.Tracker.LogDirectory = t.TempDir()
	config.Server.Enabled = false
	return &config
}

// cancelAfter returns a sleeper that never sleeps and cancels after n calls.
func cancelAfter(n int, cancel context.CancelFunc) feeds.Sleeper {
	calls := 0
	return func(ctx context.Context, d time.Duration) error {
		calls++
		if calls >= n {
			cancel()
			return ctx.Err()
		}
		return ctx.Err()
	}
}

func TestLiveOrchestratorRunsSessionAndFlushes(t *testing.T) {
	config := testConfig(t)
	tracker, err := metrics.NewPerformanceTracker(config.Tracker, metrics.WithMemorySampler(constantSampler{}))
	require.NoError(t, err)
	client := &fakeExchangeClient{prices: []float64{5, 5, 5, 4, 3, 6}, status: "online"}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	orchestrator, err := NewLiveOrchestrator(config, client, tracker)
	require.NoError(t, err)
	orchestrator.WithSleeper(cancelAfter(len(client.prices), cancel))

	require.NoError(t, orchestrator.Run(ctx))

	state := orchestrator.LatestState()
	assert.True(t, state.Ready)
	assert.Equal(t, 6.0, state.Price)
	assert.Equal(t, 0, state.Position)
	assert.Equal(t, -2.0, state.Pnl)
	assert.Equal(t, orchestrator.RunId(), state.RunId)

	transactions, err := metrics.ReadTradeHistory(filepath.Join(config.Tracker.LogDirectory, metrics.TradeHistoryFileName))
	require.NoError(t, err)
	require.Len(t, transactions, 2)
	assert.Equal(t, datamodels.TransactionKindEntry, transactions[0].Kind)
	assert.Equal(t, -2.0, transactions[1].Pnl)

	for _, name := range []string{
		metrics.UptimeLogFileName,
		metrics.MetricsLogFileName,
		metrics.ReportFileName,
		metrics.PnlChartFileName,
	} {
		_, err := os.Stat(filepath.Join(config.Tracker.LogDirectory, name))
		assert.NoError(t, err, name)
	}

	document, err := metrics.ReadMetricsLog(filepath.Join(config.Tracker.LogDirectory, metrics.MetricsLogFileName))
	require.NoError(t, err)
	assert.Equal(t, 2, document.Metrics.TotalTransactions)
	assert.Equal(t, 100.0, document.Metrics.SuccessRate)
}

func TestLiveOrchestratorStartupFailure(t *testing.T) {
	config := testConfig(t)
	tracker, err := metrics.NewPerformanceTracker(config.Tracker, metrics.WithMemorySampler(constantSampler{}))
	require.NoError(t, err)
	client := &fakeExchangeClient{loadErr: crossboterrors.WrapE(exchange.ErrFatal, errors.New("EGeneral:Invalid arguments"))}

	orchestrator, err := NewLiveOrchestrator(config, client, tracker)
	require.NoError(t, err)

	err = orchestrator.Run(context.Background())

	assert.ErrorIs(t, err, feeds.ErrMarketsUnavailable)
	_, statErr := os.Stat(filepath.Join(config.Tracker.LogDirectory, metrics.ReportFileName))
	assert.NoError(t, statErr, "the final report is flushed even when startup fails")
}

func TestNewLiveOrchestratorValidatesConfig(t *testing.T) {
	config := testConfig(t)
	tracker, err := metrics.NewPerformanceTracker(config.Tracker, metrics.WithMemorySampler(constantSampler{}))
	require.NoError(t, err)
	config.Strategy.FastWindow = 5

	_, err = NewLiveOrchestrator(config, &fakeExchangeClient{}, tracker)

	assert.Error(t, err)
}
