package trade

import (
	"context"
	"testing"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/core"
)

type fakeAPI struct {
	created []createParams
}

func (f *fakeAPI) Create(_ context.Context, p createParams) (*binance.CreateOrderResponse, error) {
	f.created = append(f.created, p)
	resp := &binance.CreateOrderResponse{OrderID: 42, TransactTime: 1000, Status: binance.OrderStatusTypeNew}
	if p.Type == binance.OrderTypeMarket {
		resp.Status = binance.OrderStatusTypeFilled
		resp.ExecutedQuantity = "2"
		resp.CummulativeQuoteQuantity = "100"
	}
	return resp, nil
}

func (f *fakeAPI) Account(context.Context) (*binance.Account, error) {
	return &binance.Account{Balances: []binance.Balance{
		{Asset: "BTC", Free: "1.5", Locked: "0"},
		{Asset: "DOGE", Free: "0", Locked: "0"},
		{Asset: "USDT", Free: "10", Locked: "5"},
	}}, nil
}

func (f *fakeAPI) List(context.Context, string, int) ([]*binance.Order, error) {
	return []*binance.Order{
		{OrderID: 1, Symbol: "BTCUSDT", Side: binance.SideTypeBuy, Type: binance.OrderTypeLimit,
			Status: binance.OrderStatusTypeFilled, ExecutedQuantity: "0.5", CummulativeQuoteQuantity: "25000"},
		{OrderID: 2, Symbol: "BTCUSDT", Side: binance.SideTypeSell, Type: binance.OrderTypeStopLossLimit,
			Status: binance.OrderStatusTypeNew, Price: "40000", OrigQuantity: "1", StopPrice: "40000"},
	}, nil
}

func order(t core.OrderType, amount, price string) core.Order {
	return core.Order{Type: t, Base: "BTC", Quote: "USDT", Amount: decimal.RequireFromString(amount), Price: decimal.RequireFromString(price)}
}

func TestPlace(t *testing.T) {
	api := &fakeAPI{}
	b := &BinanceBroker{api: api}
	ctx := context.Background()

	filled, err := b.Place(ctx, order(core.OrderTypeBuy, "2", "0"))
	require.NoError(t, err)
	require.Equal(t, core.OrderStatusFilled, filled.Status)
	require.Equal(t, "42", filled.ID)
	require.True(t, filled.Price.Equal(decimal.NewFromInt(50)))
	require.Equal(t, binance.OrderTypeMarket, api.created[0].Type)
	require.Equal(t, binance.SideTypeBuy, api.created[0].Side)

	open, err := b.Place(ctx, order(core.OrderTypeStopSell, "1", "40000"))
	require.NoError(t, err)
	require.Equal(t, core.OrderStatusOpen, open.Status)
	require.Equal(t, binance.OrderTypeStopLossLimit, api.created[1].Type)
	require.Equal(t, "40000", api.created[1].StopPrice)
	require.Equal(t, "BTCUSDT", api.created[1].Symbol)

	_, err = b.Place(ctx, order(core.OrderTypeTrailingStopSell, "1", "5"))
	require.ErrorIs(t, err, core.ErrUnsupported)
}

func TestBalancesAndOrders(t *testing.T) {
	b := &BinanceBroker{api: &fakeAPI{}}

	balances, err := b.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	require.Equal(t, "USDT", balances[1].Asset)

	orders, err := b.Orders(context.Background(), "btc/usdt", 10)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	require.True(t, orders[0].Price.Equal(decimal.NewFromInt(50000)))
	require.Equal(t, core.OrderStatusFilled, orders[0].Status)
	require.Equal(t, core.OrderTypeStopSell, orders[1].Type)
	require.Equal(t, "BTC", orders[1].Base)
}

func TestScale(t *testing.T) {
	orders, err := Scale(order(core.OrderTypeScaledBuy, "1", "0"),
		decimal.NewFromInt(100), decimal.NewFromInt(200), ScaleSteps)
	require.NoError(t, err)
	require.Len(t, orders, 5)
	require.Equal(t, core.OrderTypeBuy, orders[0].Type)
	require.Equal(t, "100", orders[0].Price.String())
	require.Equal(t, "125", orders[1].Price.String())
	require.Equal(t, "200", orders[4].Price.String())
	require.Equal(t, "0.2", orders[0].Amount.String())

	_, err = Scale(order(core.OrderTypeScaledSell, "1", "0"), decimal.NewFromInt(1), decimal.NewFromInt(1), ScaleSteps)
	require.ErrorIs(t, err, core.ErrInvalidArgument)
}
