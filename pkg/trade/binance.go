package trade

import (
	"context"
	"fmt"
	"strings"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/platform"
)

type createParams struct {
	Symbol    string
	Side      binance.SideType
	Type      binance.OrderType
	Quantity  string
	Price     string
	StopPrice string
}

type orderAPI interface {
	Create(ctx context.Context, p createParams) (*binance.CreateOrderResponse, error)
	Account(ctx context.Context) (*binance.Account, error)
	List(ctx context.Context, symbol string, limit int) ([]*binance.Order, error)
}

type binanceOrderAPI struct {
	client *binance.Client
}

func (a binanceOrderAPI) Create(ctx context.Context, p createParams) (*binance.CreateOrderResponse, error) {
	svc := a.client.NewCreateOrderService().
		Symbol(p.Symbol).
		Side(p.Side).
		Type(p.Type).
		Quantity(p.Quantity).
		NewOrderRespType(binance.NewOrderRespTypeFULL)
	if p.Price != "" {
		svc = svc.TimeInForce(binance.TimeInForceTypeGTC).Price(p.Price)
	}
	if p.StopPrice != "" {
		svc = svc.StopPrice(p.StopPrice)
	}
	return svc.Do(ctx)
}

func (a binanceOrderAPI) Account(ctx context.Context) (*binance.Account, error) {
	return a.client.NewGetAccountService().Do(ctx)
}

func (a binanceOrderAPI) List(ctx context.Context, symbol string, limit int) ([]*binance.Order, error) {
	return a.client.NewListOrdersService().Symbol(symbol).Limit(limit).Do(ctx)
}

// BinanceBroker trades on a Binance spot account.
type BinanceBroker struct {
	api orderAPI
}

func NewBinanceBroker(key, secret string) *BinanceBroker {
	return &BinanceBroker{api: binanceOrderAPI{client: binance.NewClient(key, secret)}}
}

func symbolOf(o core.Order) string {
	return strings.ToUpper(o.Base + o.Quote)
}

func (b *BinanceBroker) params(o core.Order, market bool) (createParams, error) {
	p := createParams{
		Symbol:   symbolOf(o),
		Side:     binance.SideTypeSell,
		Quantity: o.Amount.String(),
	}
	if o.Type.IsBuy() {
		p.Side = binance.SideTypeBuy
	}

	switch o.Type {
	case core.OrderTypeBuy, core.OrderTypeSell:
		p.Type = binance.OrderTypeMarket
		if !market {
			p.Type = binance.OrderTypeLimit
			p.Price = o.Price.String()
		}
	case core.OrderTypeStopBuy, core.OrderTypeStopSell:
		p.Type = binance.OrderTypeStopLossLimit
		p.Price = o.Price.String()
		p.StopPrice = o.Price.String()
	default:
		return p, core.NewUserError(core.ErrUnsupported, "%s orders are not supported on Binance.", o.Type.Text())
	}
	return p, nil
}

// Place submits the order. Buy and sell orders without a price are sent as
// market orders.
func (b *BinanceBroker) Place(ctx context.Context, o core.Order) (core.Order, error) {
	p, err := b.params(o, o.Price.IsZero())
	if err != nil {
		return core.Order{}, err
	}

	resp, err := b.api.Create(ctx, p)
	if err != nil {
		return core.Order{}, fmt.Errorf("create order: %w", err)
	}
	return fromCreate(o, resp), nil
}

func fromCreate(o core.Order, resp *binance.CreateOrderResponse) core.Order {
	o.ID = fmt.Sprint(resp.OrderID)
	o.Timestamp = resp.TransactTime
	o.Status = core.OrderStatusOpen
	if resp.Status == binance.OrderStatusTypeFilled {
		o.Status = core.OrderStatusFilled
	}

	cost, _ := decimal.NewFromString(resp.CummulativeQuoteQuantity)
	executed, _ := decimal.NewFromString(resp.ExecutedQuantity)
	if cost.IsPositive() && executed.IsPositive() {
		o.Price = cost.Div(executed)
		o.Amount = executed
	}
	return o
}

func (b *BinanceBroker) Balances(ctx context.Context) ([]Balance, error) {
	acc, err := b.api.Account(ctx)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}

	balances := make([]Balance, 0, len(acc.Balances))
	for _, balance := range acc.Balances {
		free, err := decimal.NewFromString(balance.Free)
		if err != nil {
			return nil, err
		}
		locked, err := decimal.NewFromString(balance.Locked)
		if err != nil {
			return nil, err
		}
		if free.IsZero() && locked.IsZero() {
			continue
		}
		balances = append(balances, Balance{Asset: balance.Asset, Free: free, Locked: locked})
	}
	return balances, nil
}

func (b *BinanceBroker) Orders(ctx context.Context, symbol string, limit int) ([]core.Order, error) {
	result, err := b.api.List(ctx, strings.ToUpper(strings.ReplaceAll(symbol, "/", "")), limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	orders := make([]core.Order, 0, len(result))
	for _, order := range result {
		orders = append(orders, convertBinanceOrder(order))
	}
	return orders, nil
}

func convertBinanceOrder(order *binance.Order) core.Order {
	cost, _ := decimal.NewFromString(order.CummulativeQuoteQuantity)
	quantity, _ := decimal.NewFromString(order.ExecutedQuantity)
	var price decimal.Decimal
	if cost.IsPositive() && quantity.IsPositive() {
		price = cost.Div(quantity)
	} else {
		price, _ = decimal.NewFromString(order.Price)
		quantity, _ = decimal.NewFromString(order.OrigQuantity)
	}

	orderType := core.OrderType(strings.ToLower(string(order.Side)))
	if order.StopPrice != "" && order.Type != binance.OrderTypeLimit && order.Type != binance.OrderTypeMarket {
		orderType = core.OrderType("stop-" + string(orderType))
	}

	status := core.OrderStatusOpen
	switch order.Status {
	case binance.OrderStatusTypeFilled:
		status = core.OrderStatusFilled
	case binance.OrderStatusTypeCanceled, binance.OrderStatusTypeExpired, binance.OrderStatusTypeRejected:
		status = core.OrderStatusCanceled
	}

	base, quote := platform.SplitAssetQuote(order.Symbol)
	return core.Order{
		ID:        fmt.Sprint(order.OrderID),
		Type:      orderType,
		Exchange:  "binance",
		Base:      base,
		Quote:     quote,
		Amount:    quantity,
		Price:     price,
		Status:    status,
		Timestamp: order.Time,
	}
}
