package exchange

import (
	"context"

	"crossbot/src/datamodels"
)

// ExchangeClient is the market data capability the live loop depends on.
type ExchangeClient interface {
	GetName() string
	// LoadMarkets fetches instrument metadata; it must succeed before FetchTicker.
	LoadMarkets(ctx context.Context) error
	FetchTicker(ctx context.Context, symbol string) (datamodels.Ticker, error)
}

// StatusProber is implemented by clients that can report venue health.
type StatusProber interface {
	GetServerTime(ctx context.Context) (int64, error)
	GetSystemStatus(ctx context.Context) (string, error)
}
