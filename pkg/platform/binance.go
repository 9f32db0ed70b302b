package platform

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/jpillora/backoff"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

const binanceName = "Binance"

var preferredQuotes = []string{"USDT", "BUSD", "USDC", "BTC", "ETH", "BNB"}

type binanceSymbol struct {
	Symbol string
	Base   string
	Quote  string
}

type binanceStats struct {
	LastPrice   string
	ChangePct   string
	QuoteVolume string
}

// binanceAPI is the subset of the exchange REST API the provider reads.
type binanceAPI interface {
	Symbols(ctx context.Context) ([]binanceSymbol, error)
	Price(ctx context.Context, symbol string) (string, error)
	Stats(ctx context.Context, symbol string) (binanceStats, error)
}

type binanceClient struct {
	client *binance.Client
}

func (c binanceClient) Symbols(ctx context.Context) ([]binanceSymbol, error) {
	info, err := c.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, err
	}

	symbols := make([]binanceSymbol, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "TRADING" {
			continue
		}
		symbols = append(symbols, binanceSymbol{Symbol: s.Symbol, Base: s.BaseAsset, Quote: s.QuoteAsset})
	}
	return symbols, nil
}

func (c binanceClient) Price(ctx context.Context, symbol string) (string, error) {
	prices, err := c.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		return "", err
	}
	if len(prices) == 0 {
		return "", fmt.Errorf("no price for %s", symbol)
	}
	return prices[0].Price, nil
}

func (c binanceClient) Stats(ctx context.Context, symbol string) (binanceStats, error) {
	stats, err := c.client.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return binanceStats{}, err
	}
	if len(stats) == 0 {
		return binanceStats{}, fmt.Errorf("no statistics for %s", symbol)
	}
	return binanceStats{
		LastPrice:   stats[0].LastPrice,
		ChangePct:   stats[0].PriceChangePercent,
		QuoteVolume: stats[0].QuoteVolume,
	}, nil
}

// BinanceOption configures a BinanceProvider.
type BinanceOption func(*BinanceProvider)

// WithBinanceCredentials sets API credentials.
func WithBinanceCredentials(key, secret string) BinanceOption {
	return func(p *BinanceProvider) {
		p.key, p.secret = key, secret
	}
}

// WithBinanceRate throttles outgoing calls to perSecond with the given burst.
func WithBinanceRate(perSecond float64, burst int) BinanceOption {
	return func(p *BinanceProvider) {
		p.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithBinanceIndexTTL sets how long the symbol index is trusted.
func WithBinanceIndexTTL(ttl time.Duration) BinanceOption {
	return func(p *BinanceProvider) {
		p.indexTTL = ttl
	}
}

// BinanceProvider serves prices and volume from the Binance spot API.
type BinanceProvider struct {
	api      binanceAPI
	key      string
	secret   string
	limiter  *rate.Limiter
	retries  int
	indexTTL time.Duration

	mu        sync.RWMutex
	index     map[string]binanceSymbol
	bases     map[string][]binanceSymbol
	indexedAt time.Time
}

// NewBinanceProvider creates a provider backed by the public REST API.
func NewBinanceProvider(options ...BinanceOption) *BinanceProvider {
	p := &BinanceProvider{
		limiter:  rate.NewLimiter(rate.Limit(10), 5),
		retries:  3,
		indexTTL: time.Hour,
	}
	for _, option := range options {
		option(p)
	}
	p.api = binanceClient{client: binance.NewClient(p.key, p.secret)}
	return p
}

func newBinanceProviderWithAPI(api binanceAPI) *BinanceProvider {
	return &BinanceProvider{
		api:      api,
		limiter:  rate.NewLimiter(rate.Inf, 1),
		retries:  1,
		indexTTL: time.Hour,
	}
}

func (p *BinanceProvider) Name() string {
	return binanceName
}

func (p *BinanceProvider) refresh(ctx context.Context) error {
	p.mu.RLock()
	fresh := p.index != nil && time.Since(p.indexedAt) < p.indexTTL
	p.mu.RUnlock()
	if fresh {
		return nil
	}

	var symbols []binanceSymbol
	err := p.call(ctx, func() (err error) {
		symbols, err = p.api.Symbols(ctx)
		return err
	})
	if err != nil {
		return err
	}

	index := make(map[string]binanceSymbol, len(symbols))
	bases := make(map[string][]binanceSymbol)
	for _, s := range symbols {
		index[s.Symbol] = s
		bases[s.Base] = append(bases[s.Base], s)
	}

	p.mu.Lock()
	p.index, p.bases, p.indexedAt = index, bases, time.Now()
	p.mu.Unlock()
	return nil
}

// call waits for the throttle and retries fn with backoff.
func (p *BinanceProvider) call(ctx context.Context, fn func() error) error {
	b := &backoff.Backoff{Min: 100 * time.Millisecond, Max: time.Second}
	var err error
	for attempt := 0; attempt < p.retries; attempt++ {
		if err = p.limiter.Wait(ctx); err != nil {
			return err
		}
		if err = fn(); err == nil {
			return nil
		}
		if attempt+1 < p.retries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.Duration()):
			}
		}
	}
	return err
}

func (p *BinanceProvider) find(id string) (binanceSymbol, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	id = strings.ReplaceAll(strings.ToUpper(id), "/", "")
	if s, ok := p.index[id]; ok {
		return s, true
	}
	candidates := p.bases[id]
	for _, quote := range preferredQuotes {
		for _, s := range candidates {
			if s.Quote == quote {
				return s, true
			}
		}
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return binanceSymbol{}, false
}

func (p *BinanceProvider) Lookup(ctx context.Context, req *core.ResolvedRequest) error {
	if req.Exchange != nil && req.Exchange.ID != "binance" {
		return ErrUnknownTicker
	}
	if err := p.refresh(ctx); err != nil {
		return err
	}

	s, ok := p.find(req.Ticker.ID)
	if !ok {
		return ErrUnknownTicker
	}

	exchange := ExchangeByID("binance")
	req.Exchange = &exchange
	req.Ticker = core.Ticker{
		ID:     s.Symbol,
		Symbol: s.Base + "/" + s.Quote,
		Base:   s.Base,
		Quote:  s.Quote,
		Name:   s.Base,
	}
	return nil
}

func (p *BinanceProvider) Fetch(ctx context.Context, req core.ResolvedRequest) (*core.Payload, error) {
	switch req.Kind {
	case core.KindPrice, core.KindVolume, core.KindDetails:
	default:
		return nil, core.ErrUnsupported
	}

	var stats binanceStats
	err := p.call(ctx, func() (err error) {
		stats, err = p.api.Stats(ctx, req.Ticker.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	price, err := decimal.NewFromString(stats.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("parse price: %w", err)
	}

	payload := &core.Payload{Platform: binanceName, Price: &price}
	switch req.Kind {
	case core.KindVolume:
		volume, err := decimal.NewFromString(stats.QuoteVolume)
		if err != nil {
			return nil, fmt.Errorf("parse volume: %w", err)
		}
		payload.Title = fmt.Sprintf("%s volume", req.Ticker.Symbol)
		payload.Text = fmt.Sprintf("%s %s", volume.StringFixed(0), req.Ticker.Quote)
	default:
		change, _ := decimal.NewFromString(stats.ChangePct)
		payload.Title = fmt.Sprintf("%s price", req.Ticker.Symbol)
		payload.Text = fmt.Sprintf("%s %s (%s%%)", price.String(), req.Ticker.Quote, change.StringFixed(2))
	}
	return payload, nil
}

// Price quotes base in quote when Binance lists the pair.
func (p *BinanceProvider) Price(ctx context.Context, base, quote string) (decimal.Decimal, error) {
	if err := p.refresh(ctx); err != nil {
		return decimal.Zero, err
	}

	symbol := strings.ToUpper(base + quote)
	p.mu.RLock()
	_, ok := p.index[symbol]
	p.mu.RUnlock()
	if !ok {
		return decimal.Zero, ErrUnknownTicker
	}

	var raw string
	err := p.call(ctx, func() (err error) {
		raw, err = p.api.Price(ctx, symbol)
		return err
	})
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}
