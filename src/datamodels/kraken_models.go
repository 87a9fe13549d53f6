package datamodels

import "time"

type KrakenRestResponse[T any] struct {
	Error  []string `json:"error"`
	Result T        `json:"result"`
}

type KrakenServerTimeResult struct {
	UnixTime int64  `json:"unixtime"`
	Rfc1123  string `json:"rfc1123"`
}

type KrakenSystemStatusResult struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// entry of /public/AssetPairs, keyed by the pair name (e.g. XXBTZUSD)
type KrakenAssetPair struct {
	Altname string `json:"altname"`
	Wsname  string `json:"wsname"`
	Base    string `json:"base"`
	Quote   string `json:"quote"`
	Status  string `json:"status"`
}

/*
entry of /public/Ticker, keyed by the pair name:

	"a": ["67421.90000", "2", "2.000"]   ask price, whole lot volume, lot volume
	"b": ["67421.60000", "3", "3.000"]   bid
	"c": ["67421.60000", "0.43416460"]   last trade closed: price, lot volume
	"v": ["1228.91284399", "1472.55849966"] volume today, last 24h
*/
type KrakenTickerInfo struct {
	Ask    []interface{} `json:"a"`
	Bid    []interface{} `json:"b"`
	Close  []interface{} `json:"c"`
	Volume []interface{} `json:"v"`
}

// Ticker is the exchange-neutral quote handed to the strategy.
type Ticker struct {
	Symbol    string
	Last      float64
	Bid       float64
	Ask       float64
	Volume    float64
	Timestamp time.Time
}
