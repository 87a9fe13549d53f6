package feeds

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"
	"time"

	"crossbot/src/datamodels"
	"crossbot/src/exchange"
	"crossbot/src/metrics"
	"crossbot/src/utils/errors"
)

// ErrMarketsUnavailable is returned by Run when market metadata cannot be loaded at startup.
var ErrMarketsUnavailable = errors.Sentinel("markets unavailable")

type SignalEngine interface {
	OnPrice(price float64) (datamodels.SignalResult, bool)
	GetName() string
}

// Telemetry observes the poll loop. MeasureLatency must return the error of op unchanged.
type Telemetry interface {
	MeasureLatency(ctx context.Context, op func(ctx context.Context) error) error
	SampleMemory() (uint64, error)
}

// Sleeper suspends for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

type StateHandler func(result datamodels.SignalResult)

// PollingFeed polls one symbol from an exchange and feeds each price to a signal engine.
// Failed polls back off exponentially; only startup failures, fatal exchange errors and
// cancellation end the loop.
type PollingFeed struct {
	client             exchange.ExchangeClient
	engine             SignalEngine
	telemetry          Telemetry
	pollInterval       time.Duration
	maxBackoffExponent int
	sleep              Sleeper
	failureCount       atomic.Int64
}

func NewPollingFeed(client exchange.ExchangeClient, engine SignalEngine, telemetry Telemetry) *PollingFeed {
	return &PollingFeed{
		client:             client,
		engine:             engine,
		telemetry:          telemetry,
		pollInterval:       time.Second,
		maxBackoffExponent: 5,
		sleep:              SleepContext,
	}
}

func (p *PollingFeed) WithPollInterval(interval time.Duration) *PollingFeed {
	p.pollInterval = interval
	return p
}

func (p *PollingFeed) WithMaxBackoffExponent(exponent int) *PollingFeed {
	p.maxBackoffExponent = exponent
	return p
}

func (p *PollingFeed) WithSleeper(sleeper Sleeper) *PollingFeed {
	p.sleep = sleeper
	return p
}

func (p *PollingFeed) GetName() string {
	return fmt.Sprintf("PollingFeed_%s_%s", p.client.GetName(), p.engine.GetName())
}

// FailureCount is the number of consecutive failed polls since the last success.
func (p *PollingFeed) FailureCount() int64 {
	return p.failureCount.Load()
}

// Run blocks until ctx is cancelled, markets fail to load, or the exchange reports
// a fatal error. onState may be nil.
func (p *PollingFeed) Run(ctx context.Context, symbol string, onState StateHandler) error {
	if err := p.client.LoadMarkets(ctx); err != nil {
		return errors.Wrapef(ErrMarketsUnavailable, err, "loading markets from %s", p.client.GetName())
	}
	slog.Info(fmt.Sprintf("Starting %s for %s", p.GetName(), symbol),
		"poll_interval", p.pollInterval, "max_backoff_exponent", p.maxBackoffExponent)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var ticker datamodels.Ticker
		fetchErr := p.telemetry.MeasureLatency(ctx, func(ctx context.Context) error {
			var err error
			ticker, err = p.client.FetchTicker(ctx, symbol)
			return err
		})

		if fetchErr != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.PollsTotal.WithLabelValues(symbol, "failure").Inc()
			if exchange.IsFatal(fetchErr) {
				slog.Error("Fatal error fetching ticker, stopping poller", "symbol", symbol, "error", fetchErr)
				return fetchErr
			}
			failures := p.failureCount.Load()
			delay := BackoffDelay(p.pollInterval, failures, p.maxBackoffExponent)
			slog.Warn("Failed to fetch ticker, backing off",
				"symbol", symbol, "failure_count", failures, "delay", delay, "error", fetchErr)
			if err := p.sleep(ctx, delay); err != nil {
				return err
			}
			metrics.FailureStreak.WithLabelValues(symbol).Set(float64(p.failureCount.Add(1)))
			continue
		}

		metrics.PollsTotal.WithLabelValues(symbol, "success").Inc()
		p.failureCount.Store(0)
		metrics.FailureStreak.WithLabelValues(symbol).Set(0)

		result, ok := p.engine.OnPrice(ticker.Last)
		if _, err := p.telemetry.SampleMemory(); err != nil {
			slog.Warn("Failed to sample memory", "error", err)
		}
		if ok {
			metrics.PositionGauge.WithLabelValues(symbol).Set(float64(result.Position))
			metrics.RealizedPnlGauge.WithLabelValues(symbol).Set(result.RealizedPnl)
			if onState != nil {
				onState(result)
			}
		}

		if err := p.sleep(ctx, p.pollInterval); err != nil {
			return err
		}
	}
}

// BackoffDelay returns interval * 2^min(failureCount, maxExponent).
func BackoffDelay(interval time.Duration, failureCount int64, maxExponent int) time.Duration {
	exponent := maxExponent
	if exponent < 0 {
		exponent = 0
	}
	if failureCount >= 0 && failureCount < int64(exponent) {
		exponent = int(failureCount)
	}
	limit := time.Duration(math.MaxInt64)
	if interval > 0 && interval > limit>>uint(exponent) {
		return limit
	}
	return interval << uint(exponent)
}

// SleepContext sleeps for d, returning ctx.Err() early if ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
