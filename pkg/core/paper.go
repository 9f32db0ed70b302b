package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeBuy              OrderType = "buy"
	OrderTypeSell             OrderType = "sell"
	OrderTypeStopBuy          OrderType = "stop-buy"
	OrderTypeStopSell         OrderType = "stop-sell"
	OrderTypeTrailingStopBuy  OrderType = "trailing-stop-buy"
	OrderTypeTrailingStopSell OrderType = "trailing-stop-sell"
	OrderTypeScaledBuy        OrderType = "scaled-buy"
	OrderTypeScaledSell       OrderType = "scaled-sell"
)

// OrderTypes lists every recognised order type.
var OrderTypes = []OrderType{
	OrderTypeBuy, OrderTypeSell,
	OrderTypeStopBuy, OrderTypeStopSell,
	OrderTypeTrailingStopBuy, OrderTypeTrailingStopSell,
	OrderTypeScaledBuy, OrderTypeScaledSell,
}

// IsBuy reports whether the order spends the quote asset.
func (t OrderType) IsBuy() bool {
	return strings.HasSuffix(string(t), "buy")
}

// IsStop reports whether the order waits for an external trigger.
func (t OrderType) IsStop() bool {
	return strings.Contains(string(t), "stop")
}

// Text is the order type as written in notices ("trailing stop sell").
func (t OrderType) Text() string {
	return strings.ReplaceAll(string(t), "-", " ")
}

type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "open"
	OrderStatusFilled   OrderStatus = "filled"
	OrderStatusCanceled OrderStatus = "canceled"
)

type Order struct {
	ID        string          `json:"id"`
	Type      OrderType       `json:"orderType"`
	Exchange  string          `json:"exchange"`
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Amount    decimal.Decimal `json:"amount"`
	Price     decimal.Decimal `json:"price"`
	Status    OrderStatus     `json:"status"`
	Timestamp int64           `json:"timestamp"`
}

// Cost is the quote asset value locked by the order.
func (o Order) Cost() decimal.Decimal {
	return o.Amount.Mul(o.Price)
}

func (o Order) String() string {
	return fmt.Sprintf("[%s] %s %s %s/%s @ %s (%s)", o.ID, o.Type.Text(), o.Amount.String(),
		o.Base, o.Quote, o.Price.String(), o.Status)
}

// PaperBook is the ledger of one exchange.
type PaperBook struct {
	Balance    map[string]decimal.Decimal `json:"balance"`
	OpenOrders []Order                    `json:"openOrders"`
	History    []Order                    `json:"history"`
}

// PaperTrader is the per account ledger across exchanges.
type PaperTrader struct {
	Books            map[string]*PaperBook `json:"books"`
	GlobalLastReset  int64                 `json:"globalLastReset"`
	GlobalResetCount int                   `json:"globalResetCount"`
}

// Book returns the book for exchange or nil.
func (p *PaperTrader) Book(exchange string) *PaperBook {
	if p.Books == nil {
		return nil
	}
	return p.Books[exchange]
}
