package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// RequestKind selects what a provider is asked to produce.
type RequestKind string

const (
	KindChart    RequestKind = "chart"
	KindPrice    RequestKind = "price"
	KindVolume   RequestKind = "volume"
	KindDepth    RequestKind = "depth"
	KindHeatmap  RequestKind = "heatmap"
	KindFlow     RequestKind = "flow"
	KindDetails  RequestKind = "details"
	KindRankings RequestKind = "rankings"
	KindMarkets  RequestKind = "markets"
	KindNews     RequestKind = "news"
)

type Exchange struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Ticker struct {
	ID     string `json:"id"`     // user supplied identifier, upper case
	Symbol string `json:"symbol"` // BASE/QUOTE
	Base   string `json:"base"`
	Quote  string `json:"quote"`
	Name   string `json:"name"`
}

// Key is the symbol used as storage key ("BTC-USDT").
func (t Ticker) Key() string {
	return strings.ReplaceAll(t.Symbol, "/", "-")
}

// ResolvedRequest is the outcome of platform resolution for one sub-request.
type ResolvedRequest struct {
	Platform  string
	Kind      RequestKind
	Ticker    Ticker
	Exchange  *Exchange
	Arguments []string
	Numbers   []decimal.Decimal
}

// Number returns the i-th numeric parameter.
func (r ResolvedRequest) Number(i int) (decimal.Decimal, bool) {
	if i < 0 || i >= len(r.Numbers) {
		return decimal.Zero, false
	}
	return r.Numbers[i], true
}

// HasArgument reports whether a free argument was supplied.
func (r ResolvedRequest) HasArgument(arg string) bool {
	for _, a := range r.Arguments {
		if a == arg {
			return true
		}
	}
	return false
}

// Payload is what a provider returns for a request.
type Payload struct {
	Platform     string
	Title        string
	Text         string
	Image        []byte
	Filename     string
	Price        *decimal.Decimal
	ThumbnailURL string
}
