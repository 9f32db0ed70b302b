package platform

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/raykavin/alphabot/pkg/core"
	zlog "github.com/raykavin/alphabot/pkg/logger/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func btcListing() Listing {
	return Listing{
		Ticker:   core.Ticker{ID: "BTCUSDT", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT"},
		Exchange: "binance",
		Price:    decimal.NewFromInt(50000),
		Volume:   decimal.NewFromInt(1000000),
	}
}

func TestResolveQueueOrder(t *testing.T) {
	first := NewStatic("First")
	second := NewStatic("Second", btcListing())
	r := NewResolver(zlog.Nop(), first, second)

	msg, req := r.Resolve(context.Background(), "btc 1h", "", []string{"First", "Second"})
	require.Empty(t, msg)
	require.Equal(t, "Second", req.Platform)
	require.Equal(t, "BTC/USDT", req.Ticker.Symbol)
	require.Equal(t, []string{"1h"}, req.Arguments)
	require.NotNil(t, req.Exchange)
	require.Equal(t, "binance", req.Exchange.ID)
}

func TestResolveExplicitPlatform(t *testing.T) {
	a := NewStatic("A", btcListing())
	b := NewStatic("B")
	r := NewResolver(zlog.Nop(), a, b)

	msg, _ := r.Resolve(context.Background(), "btc", "B", []string{"A"})
	require.Equal(t, "Requested ticker `BTC` is not supported on B.", msg)

	msg, req := r.Resolve(context.Background(), "btc", "A", nil)
	require.Empty(t, msg)
	require.Equal(t, "A", req.Platform)
}

func TestResolveErrors(t *testing.T) {
	r := NewResolver(zlog.Nop(), NewStatic("A", btcListing()))

	msg, _ := r.Resolve(context.Background(), "  ", "", []string{"A"})
	require.Equal(t, "A ticker must be provided.", msg)

	msg, _ = r.Resolve(context.Background(), "doge", "", []string{"A"})
	require.Equal(t, "Requested ticker `DOGE` could not be found.", msg)

	msg, _ = r.Resolve(context.Background(), "btc bitmex", "", []string{"A"})
	require.Equal(t, "Requested ticker `BTC` could not be found on BitMEX.", msg)

	msg, _ = r.Resolve(context.Background(), "btc binance bitmex", "", []string{"A"})
	require.Equal(t, "Only one exchange can be requested at a time.", msg)
}

func TestParseArguments(t *testing.T) {
	req, msg := ParseArguments([]string{"2", "mex", "log", "0.5"})
	require.Empty(t, msg)
	require.Equal(t, "bitmex", req.Exchange.ID)
	require.Equal(t, []string{"log"}, req.Arguments)
	require.Len(t, req.Numbers, 2)
	require.True(t, req.Numbers[1].Equal(decimal.RequireFromString("0.5")))
}

func TestSplitPlatform(t *testing.T) {
	platform, rest := SplitPlatform("c", "tv btc 1h")
	require.Equal(t, "TradingView", platform)
	require.Equal(t, "btc 1h", rest)

	platform, rest = SplitPlatform("p", "tv btc")
	require.Empty(t, platform)
	require.Equal(t, "tv btc", rest)

	platform, rest = SplitPlatform("c", "btc")
	require.Empty(t, platform)
	require.Equal(t, "btc", rest)
}

func TestSplitAssetQuote(t *testing.T) {
	tests := []struct {
		pair, asset, quote string
	}{
		{"BTCUSDT", "BTC", "USDT"},
		{"ethbtc", "ETH", "BTC"},
		{"XBT/USD", "XBT", "USD"},
		{"LINKBNB", "LINK", "BNB"},
		{"BTC", "BTC", ""},
	}
	for _, tc := range tests {
		asset, quote := SplitAssetQuote(tc.pair)
		require.Equal(t, tc.asset, asset, tc.pair)
		require.Equal(t, tc.quote, quote, tc.pair)
	}
}

func TestResolverFetch(t *testing.T) {
	r := NewResolver(zlog.Nop(), NewStatic("A", btcListing()))
	_, req := r.Resolve(context.Background(), "btc", "", []string{"A"})
	req.Kind = core.KindPrice

	payload, err := r.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "A", payload.Platform)
	require.True(t, payload.Price.Equal(decimal.NewFromInt(50000)))

	req.Platform = "missing"
	_, err = r.Fetch(context.Background(), req)
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
}

func TestRestricted(t *testing.T) {
	inner := NewStatic("Inner", btcListing())
	paper := NewRestricted("Alpha Paper Trader", inner, "binance")

	req := core.ResolvedRequest{Ticker: core.Ticker{ID: "BTC"}}
	require.NoError(t, paper.Lookup(context.Background(), &req))
	require.Equal(t, "binance", req.Exchange.ID)

	payload, err := paper.Fetch(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, "Alpha Paper Trader", payload.Platform)

	mex := ExchangeByID("bitmex")
	req = core.ResolvedRequest{Ticker: core.Ticker{ID: "BTC"}, Exchange: &mex}
	require.ErrorIs(t, paper.Lookup(context.Background(), &req), ErrUnknownTicker)
}

func TestConverter(t *testing.T) {
	source := NewStatic("S",
		btcListing(),
		Listing{Ticker: core.Ticker{ID: "ETHUSDT", Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT"}, Price: decimal.NewFromInt(2500)},
	)
	c := NewConverter(source)
	ctx := context.Background()

	v, err := c.Convert(ctx, decimal.NewFromInt(2), "BTC", "USDT")
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.NewFromInt(100000)))

	v, err = c.Convert(ctx, decimal.NewFromInt(10), "USDC", "USDT")
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.NewFromInt(10)))

	v, err = c.Convert(ctx, decimal.NewFromInt(1), "BTC", "ETH")
	require.NoError(t, err)
	require.True(t, v.Equal(decimal.NewFromInt(20)))

	_, err = c.Convert(ctx, decimal.NewFromInt(1), "DOGE", "ETH")
	require.ErrorIs(t, err, core.ErrProviderUnavailable)
}

type fakeBinance struct {
	symbols []binanceSymbol
	calls   int
	fail    int
}

func (f *fakeBinance) Symbols(context.Context) ([]binanceSymbol, error) {
	f.calls++
	if f.fail > 0 {
		f.fail--
		return nil, errors.New("unavailable")
	}
	return f.symbols, nil
}

func (f *fakeBinance) Price(_ context.Context, symbol string) (string, error) {
	if symbol == "ETHBTC" {
		return "0.05", nil
	}
	return "50000.5", nil
}

func (f *fakeBinance) Stats(_ context.Context, _ string) (binanceStats, error) {
	return binanceStats{LastPrice: "50000.5", ChangePct: "1.234", QuoteVolume: "123456789.9"}, nil
}

func TestBinanceProvider(t *testing.T) {
	api := &fakeBinance{symbols: []binanceSymbol{
		{Symbol: "BTCBUSD", Base: "BTC", Quote: "BUSD"},
		{Symbol: "BTCUSDT", Base: "BTC", Quote: "USDT"},
		{Symbol: "ETHBTC", Base: "ETH", Quote: "BTC"},
	}}
	p := newBinanceProviderWithAPI(api)
	ctx := context.Background()

	req := core.ResolvedRequest{Ticker: core.Ticker{ID: "BTC"}}
	require.NoError(t, p.Lookup(ctx, &req))
	require.Equal(t, "BTCUSDT", req.Ticker.ID)
	require.Equal(t, "BTC/USDT", req.Ticker.Symbol)
	require.Equal(t, "binance", req.Exchange.ID)

	req.Kind = core.KindPrice
	payload, err := p.Fetch(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "50000.5 USDT (1.23%)", payload.Text)

	req.Kind = core.KindVolume
	payload, err = p.Fetch(ctx, req)
	require.NoError(t, err)
	require.Equal(t, "123456790 USDT", payload.Text)

	req.Kind = core.KindChart
	_, err = p.Fetch(ctx, req)
	require.ErrorIs(t, err, core.ErrUnsupported)

	price, err := p.Price(ctx, "eth", "btc")
	require.NoError(t, err)
	require.Equal(t, "0.05", price.String())

	unknown := core.ResolvedRequest{Ticker: core.Ticker{ID: "DOGE"}}
	require.ErrorIs(t, p.Lookup(ctx, &unknown), ErrUnknownTicker)

	require.Equal(t, 1, api.calls, "index is cached")
}

func TestBinanceProviderRetries(t *testing.T) {
	api := &fakeBinance{fail: 1, symbols: []binanceSymbol{{Symbol: "BTCUSDT", Base: "BTC", Quote: "USDT"}}}
	p := newBinanceProviderWithAPI(api)
	p.retries = 2

	req := core.ResolvedRequest{Ticker: core.Ticker{ID: "BTCUSDT"}}
	require.NoError(t, p.Lookup(context.Background(), &req))
	require.Equal(t, 2, api.calls)
}

func TestDataServer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/lookup":
			var body lookupRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			if body.Ticker != "BTC" {
				_ = json.NewEncoder(w).Encode(lookupResponse{Found: false})
				return
			}
			_ = json.NewEncoder(w).Encode(lookupResponse{
				Found:    true,
				Ticker:   core.Ticker{ID: "BTCUSD", Symbol: "BTC/USD", Base: "BTC", Quote: "USD"},
				Exchange: "coinbasepro",
			})
		case "/fetch":
			_ = json.NewEncoder(w).Encode(fetchResponse{
				Title:    "BTC/USD",
				Image:    base64.StdEncoding.EncodeToString([]byte("png")),
				Filename: "chart.png",
			})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	ds := NewDataServer("TradingView", server.URL, time.Second, 6000)
	ctx := context.Background()

	req := core.ResolvedRequest{Ticker: core.Ticker{ID: "BTC"}, Kind: core.KindChart}
	require.NoError(t, ds.Lookup(ctx, &req))
	require.Equal(t, "coinbasepro", req.Exchange.ID)

	payload, err := ds.Fetch(ctx, req)
	require.NoError(t, err)
	require.Equal(t, []byte("png"), payload.Image)
	require.Equal(t, "TradingView", payload.Platform)

	missing := core.ResolvedRequest{Ticker: core.Ticker{ID: "XYZ"}}
	require.ErrorIs(t, ds.Lookup(ctx, &missing), ErrUnknownTicker)

	broken := NewDataServer("Broken", server.URL+"/nowhere", time.Second, 6000)
	require.Error(t, broken.Lookup(ctx, &missing))
}
