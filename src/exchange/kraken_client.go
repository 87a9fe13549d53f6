package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"time"

	"crossbot/src/datamodels"
	"crossbot/src/utils/errors"
	"crossbot/src/utils/general"
	"crossbot/src/utils/symbols"
)

const RestUrl = "https://api.kraken.com/0"

const defaultTimeout = 10 * time.Second

// KrakenClient reads public market data from the Kraken REST API.
type KrakenClient struct {
	config     datamodels.KrakenConfig
	restUrl    string
	httpClient *http.Client
	mu         sync.RWMutex
	symbols    *symbols.SymbolsDictionary
}

func NewKrakenClient(config datamodels.KrakenConfig) *KrakenClient {
	restUrl := strings.TrimSuffix(config.RestUrl, "/")
	if restUrl == "" {
		restUrl = RestUrl
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &KrakenClient{
		config:     config,
		restUrl:    restUrl,
		httpClient: &http.Client{Timeout: timeout},
	}
}

func (k *KrakenClient) WithHttpClient(client *http.Client) *KrakenClient {
	k.httpClient = client
	return k
}

func (k *KrakenClient) GetName() string {
	thisStructName := strings.Split(reflect.TypeOf(k).String(), ".")[1]
	return thisStructName + "_REST"
}

func (k *KrakenClient) MarketsLoaded() bool {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.symbols != nil
}

func (k *KrakenClient) LoadMarkets(ctx context.Context) error {
	pairs, err := getPublic[map[string]datamodels.KrakenAssetPair](ctx, k, "AssetPairs", nil)
	if err != nil {
		return errors.Wrap(err, "error loading asset pairs")
	}
	if len(pairs) == 0 {
		return errors.Wrap(ErrFatal, "kraken returned no asset pairs")
	}

	dictionary := symbols.NewSymbolsDictionary(pairs)
	k.mu.Lock()
	k.symbols = dictionary
	k.mu.Unlock()

	slog.Info(fmt.Sprintf("%s loaded %d markets", k.GetName(), len(pairs)))
	return nil
}

func (k *KrakenClient) FetchTicker(ctx context.Context, symbol string) (datamodels.Ticker, error) {
	pairKey, err := k.resolve(symbol)
	if err != nil {
		return datamodels.Ticker{}, err
	}

	result, err := getPublic[map[string]datamodels.KrakenTickerInfo](ctx, k, "Ticker", url.Values{"pair": {pairKey}})
	if err != nil {
		return datamodels.Ticker{}, errors.Wrapf(err, "error fetching ticker for %s", k.displayName(symbol))
	}
	info, ok := result[pairKey]
	if !ok {
		return datamodels.Ticker{}, errors.Wrapf(ErrFatal, "ticker response has no entry for %s", pairKey)
	}

	closeValues, err := general.ConvertMixedTypesToFloat64Array(info.Close)
	if err != nil || len(closeValues) == 0 {
		return datamodels.Ticker{}, errors.Wrapf(ErrTransient, "malformed last trade for %s: %v", pairKey, info.Close)
	}
	last := closeValues[0]
	if math.IsNaN(last) || math.IsInf(last, 0) || last <= 0 {
		return datamodels.Ticker{}, errors.Wrapf(ErrTransient, "invalid last price %v for %s", last, pairKey)
	}

	return datamodels.Ticker{
		Symbol:    symbol,
		Last:      last,
		Bid:       firstValue(info.Bid),
		Ask:       firstValue(info.Ask),
		Volume:    lastValue(info.Volume),
		Timestamp: time.Now(),
	}, nil
}

func (k *KrakenClient) GetServerTime(ctx context.Context) (int64, error) {
	result, err := getPublic[datamodels.KrakenServerTimeResult](ctx, k, "Time", nil)
	if err != nil {
		return 0, errors.Wrap(err, "error getting server time")
	}
	return result.UnixTime, nil
}

func (k *KrakenClient) GetSystemStatus(ctx context.Context) (string, error) {
	result, err := getPublic[datamodels.KrakenSystemStatusResult](ctx, k, "SystemStatus", nil)
	if err != nil {
		return "", errors.Wrap(err, "error getting system status")
	}
	return result.Status, nil
}

func (k *KrakenClient) resolve(symbol string) (string, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.symbols == nil {
		return "", errors.Wrap(ErrFatal, "markets not loaded, call LoadMarkets first")
	}
	pairKey, ok := k.symbols.Resolve(symbol)
	if !ok {
		return "", errors.Wrapf(ErrFatal, "unknown symbol %s", symbol)
	}
	return pairKey, nil
}

func (k *KrakenClient) displayName(symbol string) string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.symbols == nil {
		return symbol
	}
	return k.symbols.DisplayName(symbol)
}

func getPublic[T any](ctx context.Context, k *KrakenClient, method string, query url.Values) (T, error) {
	var zero T

	endpoint := fmt.Sprintf("%s/public/%s", k.restUrl, method)
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, errors.WrapE(ErrFatal, err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, errors.WrapE(ErrTransient, err)
	}
	defer resp.Body.Close()

	if err := classifyStatusCode(resp.StatusCode); err != nil {
		return zero, errors.Wrapf(err, "GET public/%s", method)
	}

	var response datamodels.KrakenRestResponse[T]
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return zero, errors.Wrapef(ErrTransient, err, "error decoding public/%s", method)
	}
	if err := classifyKrakenErrors(response.Error); err != nil {
		return zero, err
	}
	return response.Result, nil
}

func firstValue(data []interface{}) float64 {
	values, err := general.ConvertMixedTypesToFloat64Array(data)
	if err != nil || len(values) == 0 {
		return 0
	}
	return values[0]
}

func lastValue(data []interface{}) float64 {
	values, err := general.ConvertMixedTypesToFloat64Array(data)
	if err != nil || len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}
