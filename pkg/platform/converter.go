package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/shopspring/decimal"
)

// Converter values an amount of one asset in another.
type Converter struct {
	source PriceSource
	bridge string
}

// NewConverter bridges through USDT when no direct pair exists.
func NewConverter(source PriceSource) *Converter {
	return &Converter{source: source, bridge: "USDT"}
}

// Rate returns how much of to one unit of from is worth.
func (c *Converter) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	from, to = strings.ToUpper(from), strings.ToUpper(to)
	one := decimal.NewFromInt(1)

	if from == to || (IsStable(from) && IsStable(to)) {
		return one, nil
	}
	if p, err := c.source.Price(ctx, from, to); err == nil {
		return p, nil
	}
	if p, err := c.source.Price(ctx, to, from); err == nil && !p.IsZero() {
		return one.Div(p), nil
	}

	if from != c.bridge && to != c.bridge {
		a, errA := c.Rate(ctx, from, c.bridge)
		b, errB := c.Rate(ctx, c.bridge, to)
		if errA == nil && errB == nil {
			return a.Mul(b), nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: no conversion from %s to %s", core.ErrProviderUnavailable, from, to)
}

// Convert returns amount of from expressed in to.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	rate, err := c.Rate(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	return amount.Mul(rate), nil
}
