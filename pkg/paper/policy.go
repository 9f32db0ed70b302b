package paper

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

// Converter expresses an amount of one asset in another.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// Leg is one side of a balance movement.
type Leg struct {
	Asset  string
	Amount decimal.Decimal
}

// ValuationPolicy carries the per exchange rules: what an order moves
// between balances and how holdings are valued.
type ValuationPolicy interface {
	BaseCurrency() string
	StartingBalance() map[string]decimal.Decimal
	// Legs returns what the order takes from the balance and what it gives
	// back once filled.
	Legs(order core.Order) (debit, credit Leg)
	Value(ctx context.Context, conv Converter, asset string, amount decimal.Decimal) (decimal.Decimal, error)
}

// PolicyOf builds the policy of a configured starting balance.
func PolicyOf(b core.PaperBalance) ValuationPolicy {
	if b.Contract {
		return ContractPolicy{Margin: b.Asset, Start: b.Amount}
	}
	return SpotPolicy{Base: b.Asset, Start: b.Amount}
}

// SpotPolicy trades base against quote assets one to one.
type SpotPolicy struct {
	Base  string
	Start decimal.Decimal
}

func (p SpotPolicy) BaseCurrency() string {
	return p.Base
}

func (p SpotPolicy) StartingBalance() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{p.Base: p.Start}
}

func (p SpotPolicy) Legs(o core.Order) (debit, credit Leg) {
	if o.Type.IsBuy() {
		return Leg{o.Quote, o.Cost()}, Leg{o.Base, o.Amount}
	}
	return Leg{o.Base, o.Amount}, Leg{o.Quote, o.Cost()}
}

func (p SpotPolicy) Value(ctx context.Context, conv Converter, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	if strings.EqualFold(asset, p.Base) || amount.IsZero() {
		return amount, nil
	}
	return conv.Convert(ctx, amount, asset, p.Base)
}

// ContractPolicy models inverse contracts margined in Margin: one contract
// is worth one unit of the quote currency.
type ContractPolicy struct {
	Margin string
	Start  decimal.Decimal
}

func (p ContractPolicy) BaseCurrency() string {
	return p.Margin
}

func (p ContractPolicy) StartingBalance() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{p.Margin: p.Start}
}

// Position is the balance key holding contracts of an instrument.
func (p ContractPolicy) Position(o core.Order) string {
	return o.Base + o.Quote
}

func (p ContractPolicy) Legs(o core.Order) (debit, credit Leg) {
	margin := decimal.Zero
	if o.Price.IsPositive() {
		margin = o.Amount.DivRound(o.Price, 8)
	}
	if o.Type.IsBuy() {
		return Leg{p.Margin, margin}, Leg{p.Position(o), o.Amount}
	}
	return Leg{p.Position(o), o.Amount}, Leg{p.Margin, margin}
}

func (p ContractPolicy) Value(ctx context.Context, conv Converter, asset string, amount decimal.Decimal) (decimal.Decimal, error) {
	if strings.EqualFold(asset, p.Margin) || amount.IsZero() {
		return amount, nil
	}
	_, quote := splitPosition(asset)
	return conv.Convert(ctx, amount, quote, p.Margin)
}

func splitPosition(position string) (base, quote string) {
	for _, q := range []string{"USDT", "USD"} {
		if strings.HasSuffix(position, q) && len(position) > len(q) {
			return position[:len(position)-len(q)], q
		}
	}
	return position, "USD"
}
