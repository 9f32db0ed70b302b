package router

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/platform"
)

func TestCrossed(t *testing.T) {
	level := decimal.NewFromInt(100)
	for _, tc := range []struct {
		kind   core.OrderType
		market int64
		want   bool
	}{
		{core.OrderTypeBuy, 99, true},
		{core.OrderTypeBuy, 101, false},
		{core.OrderTypeSell, 101, true},
		{core.OrderTypeStopSell, 100, true},
		{core.OrderTypeStopSell, 101, false},
		{core.OrderTypeStopBuy, 100, true},
		{core.OrderTypeTrailingStopSell, 1, false},
	} {
		o := core.Order{Type: tc.kind, Price: level}
		require.Equal(t, tc.want, crossed(o, decimal.NewFromInt(tc.market)), "%s at %d", tc.kind, tc.market)
	}
}

func TestRouter_SweepPaperOrders(t *testing.T) {
	ctx := context.Background()
	conv := platform.NewConverter(platform.NewStatic("CCXT", listings()...))
	r, _, accounts := newTestRouter(t, WithConverter(conv))
	register(t, accounts, 1, "acc", false)

	stop := core.Order{
		ID: "0000000000001", Type: core.OrderTypeStopSell, Exchange: "binance",
		Base: "BTC", Quote: "USDT", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(55000),
		Status: core.OrderStatusOpen,
	}
	limit := core.Order{
		ID: "0000000000002", Type: core.OrderTypeBuy, Exchange: "binance",
		Base: "BTC", Quote: "USDT", Amount: decimal.NewFromInt(1), Price: decimal.NewFromInt(40000),
		Status: core.OrderStatusOpen,
	}
	trader := core.PaperTrader{Books: map[string]*core.PaperBook{
		"binance": {
			Balance:    map[string]decimal.Decimal{"BTC": decimal.NewFromInt(1), "USDT": decimal.NewFromInt(60000)},
			OpenOrders: []core.Order{stop, limit},
		},
	}}
	require.NoError(t, accounts.PatchAccount(ctx, "acc", map[string]any{"paperTrader": trader}))

	filled, err := r.SweepPaperOrders(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, filled)

	account, err := accounts.Account(ctx, "acc")
	require.NoError(t, err)
	book := account.PaperTrader.Book("binance")
	require.Len(t, book.OpenOrders, 1)
	require.Equal(t, limit.ID, book.OpenOrders[0].ID)
	require.Len(t, book.History, 1)
	require.Equal(t, core.OrderStatusFilled, book.History[0].Status)
	require.True(t, book.Balance["BTC"].IsZero())
	require.True(t, decimal.NewFromInt(110000).Equal(book.Balance["USDT"]))

	filled, err = r.SweepPaperOrders(ctx)
	require.NoError(t, err)
	require.Zero(t, filled)
}
