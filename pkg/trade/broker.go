// Package trade places live orders for the operator trading family.
package trade

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

// Balance is one asset of a live account.
type Balance struct {
	Asset  string
	Free   decimal.Decimal
	Locked decimal.Decimal
}

// Broker is the live trading collaborator.
type Broker interface {
	Place(ctx context.Context, order core.Order) (core.Order, error)
	Balances(ctx context.Context) ([]Balance, error)
	Orders(ctx context.Context, symbol string, limit int) ([]core.Order, error)
}

// ScaleSteps is the number of limit orders a scaled order is split into.
const ScaleSteps = 5

// Scale splits a scaled order of amount into evenly spaced limit orders
// between from and to.
func Scale(order core.Order, from, to decimal.Decimal, steps int) ([]core.Order, error) {
	if steps < 2 {
		return nil, fmt.Errorf("%w: at least two steps are required", core.ErrInvalidArgument)
	}
	if !from.IsPositive() || !to.IsPositive() || from.Equal(to) {
		return nil, core.NewUserError(core.ErrInvalidArgument, "Scaled orders need two different prices.")
	}

	n := decimal.NewFromInt(int64(steps))
	step := to.Sub(from).Div(n.Sub(decimal.NewFromInt(1)))
	amount := order.Amount.Div(n).Truncate(8)

	orders := make([]core.Order, 0, steps)
	for i := 0; i < steps; i++ {
		o := order
		o.Type = core.OrderTypeBuy
		if !order.Type.IsBuy() {
			o.Type = core.OrderTypeSell
		}
		o.Amount = amount
		o.Price = from.Add(step.Mul(decimal.NewFromInt(int64(i)))).Round(8)
		orders = append(orders, o)
	}
	return orders, nil
}
