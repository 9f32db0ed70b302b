// Package platform resolves tickers against an ordered queue of market data
// providers and fetches their payloads.
package platform

import (
	"context"
	"errors"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/shopspring/decimal"
)

// ErrUnknownTicker is returned by Lookup when a provider does not list the ticker.
var ErrUnknownTicker = errors.New("unknown ticker")

// Provider is one market data back-end.
type Provider interface {
	Name() string
	// Lookup fills req.Ticker (and req.Exchange when the provider decides it)
	// or returns ErrUnknownTicker.
	Lookup(ctx context.Context, req *core.ResolvedRequest) error
	Fetch(ctx context.Context, req core.ResolvedRequest) (*core.Payload, error)
}

// PriceSource quotes base in quote.
type PriceSource interface {
	Price(ctx context.Context, base, quote string) (decimal.Decimal, error)
}

// Prefixes maps each family to the two letter tokens that pin a platform.
var Prefixes = map[string]map[string]string{
	"c": {
		"am": "Alternative.me",
		"wc": "Woobull Charts",
		"tl": "TradingLite",
		"tv": "TradingView",
		"bm": "Bookmap",
		"gc": "GoCharting",
		"fv": "Finviz",
	},
	"p": {
		"am": "Alternative.me",
		"cg": "CoinGecko",
		"cm": "CCXT",
		"tm": "IEXC",
	},
	"v": {
		"cg": "CoinGecko",
		"cx": "CCXT",
	},
	"d": {
		"cx": "CCXT",
	},
	"hmap": {
		"bg": "Bitgur",
		"fv": "Finviz",
	},
	"flow": {
		"bb": "Bender ProfitBox",
	},
}

// SplitPlatform strips a platform prefix token from slice.
func SplitPlatform(family, slice string) (platform, rest string) {
	token, tail, found := strings.Cut(slice, " ")
	if !found {
		return "", slice
	}
	if name, ok := Prefixes[family][token]; ok {
		return name, tail
	}
	return "", slice
}

var exchanges = map[string]core.Exchange{
	"binance":     {ID: "binance", Name: "Binance"},
	"bin":         {ID: "binance", Name: "Binance"},
	"bitmex":      {ID: "bitmex", Name: "BitMEX"},
	"mex":         {ID: "bitmex", Name: "BitMEX"},
	"coinbase":    {ID: "coinbasepro", Name: "Coinbase Pro"},
	"coinbasepro": {ID: "coinbasepro", Name: "Coinbase Pro"},
	"cbp":         {ID: "coinbasepro", Name: "Coinbase Pro"},
	"kraken":      {ID: "kraken", Name: "Kraken"},
	"bitfinex":    {ID: "bitfinex", Name: "Bitfinex"},
	"bfx":         {ID: "bitfinex", Name: "Bitfinex"},
	"huobi":       {ID: "huobipro", Name: "Huobi"},
	"bitstamp":    {ID: "bitstamp", Name: "Bitstamp"},
}

// LookupExchange resolves an exchange alias.
func LookupExchange(token string) (core.Exchange, bool) {
	e, ok := exchanges[strings.ToLower(token)]
	return e, ok
}

// ExchangeByID returns the canonical exchange for id.
func ExchangeByID(id string) core.Exchange {
	if e, ok := exchanges[id]; ok {
		return e
	}
	return core.Exchange{ID: id, Name: id}
}
