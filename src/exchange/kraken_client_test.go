package exchange

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crossbot/src/datamodels"
)

const assetPairsBody = `{"error":[],"result":{
	"XXBTZUSD":{"altname":"XBTUSD","wsname":"XBT/USD","base":"XXBT","quote":"ZUSD","status":"online"},
	"XETHZUSD":{"altname":"ETHUSD","wsname":"ETH/USD","base":"XETH","quote":"ZUSD","status":"online"}}}`

const tickerBody = `{"error":[],"result":{"XXBTZUSD":{
	"a":["67421.90000","2","2.000"],
	"b":["67421.60000","3","3.000"],
	"c":["67421.60000","0.43416460"],
	"v":["1228.91284399","1472.55849966"]}}}`

type krakenStub struct {
	tickerStatus int
	tickerBody   string
	tickerCalls  atomic.Int32
}

func (s *krakenStub) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/0/public/AssetPairs", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, assetPairsBody)
	})
	mux.HandleFunc("/0/public/Ticker", func(w http.ResponseWriter, r *http.Request) {
		s.tickerCalls.Add(1)
		if r.URL.Query().Get("pair") != "XXBTZUSD" {
			fmt.Fprint(w, `{"error":["EQuery:Unknown asset pair"]}`)
			return
		}
		if s.tickerStatus != 0 {
			w.WriteHeader(s.tickerStatus)
		}
		body := s.tickerBody
		if body == "" {
			body = tickerBody
		}
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/0/public/Time", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":[],"result":{"unixtime":1725494400,"rfc1123":"Thu,  5 Sep 24 00:00:00 +0000"}}`)
	})
	mux.HandleFunc("/0/public/SystemStatus", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":[],"result":{"status":"online","timestamp":"2024-09-05T00:00:00Z"}}`)
	})
	return mux
}

func newTestClient(t *testing.T, stub *krakenStub) *KrakenClient {
	t.Helper()
	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)
	return NewKrakenClient(datamodels.KrakenConfig{RestUrl: server.URL + "/0", Timeout: time.Second})
}

func TestNewKrakenClient(t *testing.T) {
	client := NewKrakenClient(datamodels.KrakenConfig{})
	assert.NotNil(t, client)
	assert.Equal(t, RestUrl, client.restUrl)
	assert.Equal(t, defaultTimeout, client.httpClient.Timeout)
	assert.Equal(t, "KrakenClient_REST", client.GetName())
	assert.False(t, client.MarketsLoaded())
}

func TestFetchTickerBeforeLoadMarketsIsFatal(t *testing.T) {
	client := newTestClient(t, &krakenStub{})

	_, err := client.FetchTicker(context.Background(), "XBTUSD")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}

func TestFetchTicker(t *testing.T) {
	stub := &krakenStub{}
	client := newTestClient(t, stub)
	ctx := context.Background()

	require.NoError(t, client.LoadMarkets(ctx))
	assert.True(t, client.MarketsLoaded())

	for _, symbol := range []string{"XBTUSD", "BTC/USD", "XBT/USD"} {
		ticker, err := client.FetchTicker(ctx, symbol)
		require.NoError(t, err, symbol)
		assert.Equal(t, symbol, ticker.Symbol)
		assert.Equal(t, 67421.6, ticker.Last)
		assert.Equal(t, 67421.6, ticker.Bid)
		assert.Equal(t, 67421.9, ticker.Ask)
		assert.Equal(t, 1472.55849966, ticker.Volume)
	}
	assert.Equal(t, int32(3), stub.tickerCalls.Load())
}

func TestFetchTickerUnknownSymbolIsFatal(t *testing.T) {
	stub := &krakenStub{}
	client := newTestClient(t, stub)
	require.NoError(t, client.LoadMarkets(context.Background()))

	_, err := client.FetchTicker(context.Background(), "DOGEUSD")
	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.Equal(t, int32(0), stub.tickerCalls.Load())
}

func TestFetchTickerErrorClassification(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{"service unavailable", 0, `{"error":["EService:Unavailable"]}`, true},
		{"rate limited", 0, `{"error":["EAPI:Rate limit exceeded"]}`, true},
		{"http 502", http.StatusBadGateway, `bad gateway`, true},
		{"http 429", http.StatusTooManyRequests, `{}`, true},
		{"truncated body", 0, `{"error":[],"result":{"XXBTZ`, true},
		{"empty close", 0, `{"error":[],"result":{"XXBTZUSD":{"c":[]}}}`, true},
		{"zero price", 0, `{"error":[],"result":{"XXBTZUSD":{"c":["0.0","1"]}}}`, true},
		{"invalid arguments", 0, `{"error":["EGeneral:Invalid arguments"]}`, false},
		{"http 404", http.StatusNotFound, `not found`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			stub := &krakenStub{tickerStatus: tc.status, tickerBody: tc.body}
			client := newTestClient(t, stub)
			require.NoError(t, client.LoadMarkets(context.Background()))

			_, err := client.FetchTicker(context.Background(), "XBTUSD")
			require.Error(t, err)
			assert.Equal(t, tc.transient, IsTransient(err), "transient: %v", err)
			assert.Equal(t, !tc.transient, IsFatal(err), "fatal: %v", err)
		})
	}
}

func TestFetchTickerErrorNamesDisplaySymbol(t *testing.T) {
	client := newTestClient(t, &krakenStub{tickerStatus: http.StatusBadGateway, tickerBody: `bad gateway`})
	require.NoError(t, client.LoadMarkets(context.Background()))

	_, err := client.FetchTicker(context.Background(), "XBTUSD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error fetching ticker for BTC/USD")
}

func TestNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewKrakenClient(datamodels.KrakenConfig{RestUrl: url + "/0", Timeout: time.Second})
	err := client.LoadMarkets(context.Background())
	require.Error(t, err)
	assert.True(t, IsTransient(err))
}

func TestCancelledContextIsNotClassified(t *testing.T) {
	client := newTestClient(t, &krakenStub{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := client.LoadMarkets(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, IsTransient(err))
	assert.False(t, IsFatal(err))
}

func TestServerTimeAndStatus(t *testing.T) {
	client := newTestClient(t, &krakenStub{})

	serverTime, err := client.GetServerTime(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1725494400), serverTime)

	status, err := client.GetSystemStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "online", status)
}

func TestClassifyKrakenErrors(t *testing.T) {
	assert.NoError(t, classifyKrakenErrors(nil))
	assert.True(t, IsTransient(classifyKrakenErrors([]string{"EGeneral:Temporary lockout"})))
	assert.True(t, IsFatal(classifyKrakenErrors([]string{"EQuery:Unknown asset pair"})))
	// any transient message makes the whole response retryable
	assert.True(t, IsTransient(classifyKrakenErrors([]string{"EQuery:Unknown asset pair", "EService:Busy"})))
}
