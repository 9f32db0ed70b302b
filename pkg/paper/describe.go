package paper

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/StudioSol/set"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

// Materiality is the smallest value, in the base currency, shown as a holding.
var Materiality = decimal.RequireFromString("0.001")

var hundred = decimal.NewFromInt(100)

// Holding is one balance entry with its value in the base currency.
type Holding struct {
	Asset     string
	Amount    decimal.Decimal
	Value     decimal.Decimal
	Converted bool
}

// Valuation summarises a book.
type Valuation struct {
	Exchange     string
	BaseCurrency string
	Holdings     []Holding
	Locked       decimal.Decimal
	Total        decimal.Decimal
	Start        decimal.Decimal
	ROI          decimal.Decimal
	Assets       int
	LastReset    int64
	ResetCount   int
}

// Describe values every balance and open order of exchange. Holdings under
// Materiality are left out of Holdings but counted in Total.
func (l *Ledger) Describe(ctx context.Context, trader *core.PaperTrader, exchange core.Exchange) (Valuation, error) {
	policy, err := l.policyFor(&exchange)
	if err != nil {
		return Valuation{}, err
	}

	book := l.view(trader, exchange.ID, policy)
	base := policy.BaseCurrency()
	v := Valuation{
		Exchange:     exchange.Name,
		BaseCurrency: base,
		Start:        policy.StartingBalance()[base],
		LastReset:    trader.GlobalLastReset,
		ResetCount:   trader.GlobalResetCount,
	}
	holding := set.NewLinkedHashSetString()

	assets := make([]string, 0, len(book.Balance))
	for asset := range book.Balance {
		assets = append(assets, asset)
	}
	sort.Strings(assets)

	for _, asset := range assets {
		amount := book.Balance[asset]
		h := Holding{Asset: asset, Amount: amount}

		value, err := l.value(ctx, policy, asset, amount)
		if err == nil {
			h.Value, h.Converted = value, true
			v.Total = v.Total.Add(value)
		}
		if h.Converted && value.LessThan(Materiality) {
			continue
		}
		if !h.Converted && amount.IsZero() {
			continue
		}
		v.Holdings = append(v.Holdings, h)
		holding.Add(asset)
	}

	for _, order := range book.OpenOrders {
		if order.Type != core.OrderTypeBuy && order.Type != core.OrderTypeSell {
			continue
		}
		debit, _ := policy.Legs(order)
		value, err := l.value(ctx, policy, debit.Asset, debit.Amount)
		if err != nil {
			continue
		}
		v.Locked = v.Locked.Add(value)
		holding.Add(order.Base)
	}
	v.Total = v.Total.Add(v.Locked)

	for range holding.Iter() {
		v.Assets++
	}

	if v.Start.IsPositive() {
		v.ROI = v.Total.Div(v.Start).Sub(decimal.NewFromInt(1)).Mul(hundred)
	}
	return v, nil
}

func (l *Ledger) value(ctx context.Context, policy ValuationPolicy, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	if l.conv == nil {
		if asset == policy.BaseCurrency() {
			return amount, nil
		}
		return decimal.Zero, fmt.Errorf("%w: no converter", core.ErrProviderUnavailable)
	}
	return policy.Value(ctx, l.conv, asset, amount)
}

// Summary is the one line description of the valuation.
func (v Valuation) Summary() string {
	noun := "asset"
	if v.Assets != 1 {
		noun = "assets"
	}

	sign := ""
	if !v.ROI.IsNegative() {
		sign = "+"
	}
	text := fmt.Sprintf("Holding %d %s with estimated total value of %s %s and %s%s %% ROI.",
		v.Assets, noun, FormatNumber(v.Total, 2), v.BaseCurrency, sign, FormatNumber(v.ROI, 2))

	if v.LastReset != 0 {
		resets := "resets"
		if v.ResetCount == 1 {
			resets = "reset"
		}
		text += fmt.Sprintf(" Trading since %s with %d balance %s.",
			time.Unix(v.LastReset, 0).UTC().Format("Jan 2, 2006"), v.ResetCount, resets)
	}
	return text
}
