package symbols

import (
	"strings"

	"crossbot/src/datamodels"
)

// SymbolsDictionary resolves the names a user may configure (altname XBTUSD,
// wsname XBT/USD, ccxt style BTC/USD, or the pair key XXBTZUSD) to the pair
// key the Kraken REST API answers with.
type SymbolsDictionary struct {
	V1ToV2    map[string]string
	V2ToV1    map[string]string
	toPairKey map[string]string
	altnames  map[string]string
}

func NewSymbolsDictionary(pairs map[string]datamodels.KrakenAssetPair) *SymbolsDictionary {
	d := &SymbolsDictionary{
		V1ToV2:    make(map[string]string, len(pairs)),
		V2ToV1:    make(map[string]string, len(pairs)),
		toPairKey: make(map[string]string, len(pairs)*4),
		altnames:  make(map[string]string, len(pairs)),
	}
	for key, pair := range pairs {
		d.toPairKey[normalize(key)] = key
		if pair.Altname != "" {
			d.toPairKey[normalize(pair.Altname)] = key
			d.altnames[key] = pair.Altname
		}
		if pair.Wsname == "" {
			continue
		}
		v2 := pair.Wsname
		// kraken calls bitcoin XBT, everybody else BTC
		if strings.HasPrefix(v2, "XBT/") {
			v2 = "BTC/" + strings.TrimPrefix(v2, "XBT/")
		}
		d.toPairKey[normalize(pair.Wsname)] = key
		d.toPairKey[normalize(v2)] = key
		if pair.Altname != "" {
			d.V1ToV2[pair.Altname] = v2
			d.V2ToV1[v2] = pair.Altname
		}
	}
	return d
}

// Resolve returns the pair key for symbol.
func (d *SymbolsDictionary) Resolve(symbol string) (string, bool) {
	key, ok := d.toPairKey[normalize(symbol)]
	return key, ok
}

// DisplayName returns the BTC/USD style name for any spelling of a known
// symbol, or the symbol unchanged when there is none.
func (d *SymbolsDictionary) DisplayName(symbol string) string {
	key, ok := d.Resolve(symbol)
	if !ok {
		return symbol
	}
	if v2, ok := d.V1ToV2[d.altnames[key]]; ok {
		return v2
	}
	return symbol
}

func (d *SymbolsDictionary) Len() int {
	return len(d.toPairKey)
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
