package core

import (
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// Settings is the runtime configuration of the bot.
type Settings struct {
	Telegram       TelegramSettings
	Operators      []int64        // accounts allowed to use operator families and overrides
	BlockedUsers   []int64        // authors whose messages are ignored
	BlockedRooms   []int64        // rooms whose messages are ignored
	Limits         LimitSettings  // rate limiting
	Weights        map[string]int // base cost of one sub-request per family
	Queues         map[string][]string
	ConfirmTimeout time.Duration
	Paper          PaperSettings
	Alerts         AlertSettings
	Billing        BillingSettings
	Tips           bool // post a random tip after batches
}

type TelegramSettings struct {
	Enabled bool
	Token   string
}

type LimitSettings struct {
	Free   int
	Pro    int
	Window time.Duration
}

type PaperSettings struct {
	ResetCooldown time.Duration
	Exchanges     []string                // exchanges supported by the paper trader
	Balances      map[string]PaperBalance // starting balance per exchange
}

// PaperBalance is the starting balance of a paper book. Contract books hold
// inverse contracts margined in Asset.
type PaperBalance struct {
	Asset    string
	Amount   decimal.Decimal
	Contract bool
}

type AlertSettings struct {
	MaxPerExchange int
	Exchanges      []string
}

type BillingSettings struct {
	PresetQuantity int
	AlertQuantity  int
	TradeQuantity  int
}

// IsOperator reports whether id belongs to an operator.
func (s Settings) IsOperator(id int64) bool {
	return slices.Contains(s.Operators, id)
}

// Weight returns the configured cost for family, defaulting to 1.
func (s Settings) Weight(family string) int {
	if w, ok := s.Weights[family]; ok && w > 0 {
		return w
	}
	return 1
}

// DefaultSettings mirrors the defaults of the configuration loader.
func DefaultSettings() Settings {
	return Settings{
		Limits: LimitSettings{Free: 20, Pro: 30, Window: time.Minute},
		Weights: map[string]int{
			"c": 2, "flow": 2, "hmap": 2, "d": 2, "p": 2,
			"v": 1, "convert": 1, "m": 1, "t": 1, "mk": 1, "n": 1,
		},
		Queues: map[string][]string{
			"c":       {"TradingView", "TradingLite", "GoCharting", "Alternative.me", "Woobull Charts", "Finviz", "Bookmap"},
			"flow":    {"Alpha Flow"},
			"hmap":    {"Bitgur", "Finviz"},
			"d":       {"CCXT"},
			"p":       {"Alternative.me", "CoinGecko", "CCXT", "IEXC"},
			"v":       {"CoinGecko", "CCXT"},
			"convert": {"CCXT", "CoinGecko"},
			"m":       {"CoinGecko"},
			"t":       {"CoinGecko"},
			"mk":      {"CCXT"},
			"n":       {"Alpha News"},
			"alert":   {"Alpha Market Alerts"},
			"paper":   {"Alpha Paper Trader"},
			"x":       {"Alpha Live Trader"},
		},
		ConfirmTimeout: time.Minute,
		Paper: PaperSettings{
			ResetCooldown: 7 * 24 * time.Hour,
			Exchanges:     []string{"binance", "bitmex"},
		},
		Alerts: AlertSettings{
			MaxPerExchange: 100,
			Exchanges:      []string{"binance", "bitmex", "coinbasepro"},
		},
		Billing: BillingSettings{PresetQuantity: 10, AlertQuantity: 20, TradeQuantity: 1},
		Tips:    true,
	}
}
