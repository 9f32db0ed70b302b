package router

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

// crossed reports whether market reached the level of an open paper order.
// Trailing stops have no fixed level and never cross.
func crossed(o core.Order, market decimal.Decimal) bool {
	switch o.Type {
	case core.OrderTypeBuy, core.OrderTypeStopSell:
		return market.LessThanOrEqual(o.Price)
	case core.OrderTypeSell, core.OrderTypeStopBuy:
		return market.GreaterThanOrEqual(o.Price)
	default:
		return false
	}
}

type pair struct{ base, quote string }

// SweepPaperOrders fills every open paper order whose level the market has
// crossed and returns how many were settled. Stop orders that can no longer
// be funded are canceled. Prices are quoted once per pair and sweep.
func (r *Router) SweepPaperOrders(ctx context.Context) (int, error) {
	if r.converter == nil {
		return 0, nil
	}
	ids, err := r.accounts.AccountIDs(ctx)
	if err != nil {
		return 0, err
	}

	prices := make(map[pair]decimal.Decimal)
	price := func(o core.Order) (decimal.Decimal, bool) {
		key := pair{o.Base, o.Quote}
		if p, ok := prices[key]; ok {
			return p, p.IsPositive()
		}
		p, err := r.converter.Convert(ctx, decimal.NewFromInt(1), o.Base, o.Quote)
		if err != nil {
			r.stats.Provider("Alpha Paper Trader", "unavailable")
			p = decimal.Zero
		}
		prices[key] = p
		return p, p.IsPositive()
	}

	filled := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return filled, ctx.Err()
		}
		err := r.mutate(ctx, id, func(a *core.AccountProperties) (any, error) {
			settled := 0
			for exchange, book := range a.PaperTrader.Books {
				if book == nil {
					continue
				}
				for _, order := range append([]core.Order(nil), book.OpenOrders...) {
					market, ok := price(order)
					if !ok || !crossed(order, market) {
						continue
					}
					err := r.ledger.Trigger(&a.PaperTrader, exchange, order.ID, market)
					switch {
					case err == nil:
						filled++
					case errors.Is(err, core.ErrInsufficientFunds):
						r.log.WithFields(map[string]any{
							"account": id,
							"order":   order.ID,
						}).Info("paper stop order canceled for lack of funds")
					default:
						return nil, err
					}
					settled++
				}
			}
			if settled == 0 {
				return nil, nil
			}
			return map[string]any{"paperTrader": map[string]any{"books": a.PaperTrader.Books}}, nil
		})
		if err != nil {
			r.log.WithError(err).WithField("account", id).Warn("failed to sweep paper orders")
		}
	}
	return filled, nil
}
