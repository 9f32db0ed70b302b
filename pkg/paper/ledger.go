// Package paper implements the simulated trading ledger.
package paper

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

const (
	defaultCooldown = 7 * 24 * time.Hour
	maxOrderID      = 1_000_000_000_000_000
)

// OrderRequest is a parsed "TYPE TICKER [arguments...]" slice.
type OrderRequest struct {
	Type      core.OrderType
	TickerID  string
	Arguments []string
}

// Query is the text handed to the platform resolver.
func (r OrderRequest) Query() string {
	return strings.TrimSpace(r.TickerID + " " + strings.Join(r.Arguments, " "))
}

// PendingOrder is a validated order waiting for confirmation.
type PendingOrder struct {
	Order          core.Order
	Executes       bool // fills at the market price on commit
	MarketPrice    decimal.Decimal
	AmountText     string
	PriceText      string
	ConversionText string
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithPolicy registers the valuation policy of an exchange.
func WithPolicy(exchange string, policy ValuationPolicy) Option {
	return func(l *Ledger) {
		l.policies[exchange] = policy
	}
}

// WithCooldown sets the minimum time between two resets.
func WithCooldown(d time.Duration) Option {
	return func(l *Ledger) {
		l.cooldown = d
	}
}

// WithOrderTypes restricts the order types Parse accepts.
func WithOrderTypes(types ...core.OrderType) Option {
	return func(l *Ledger) {
		l.types = types
	}
}

// WithConverter sets the conversion collaborator used for valuation.
func WithConverter(conv Converter) Option {
	return func(l *Ledger) {
		l.conv = conv
	}
}

// WithIDGenerator replaces the random order id source.
func WithIDGenerator(fn func() string) Option {
	return func(l *Ledger) {
		l.newID = fn
	}
}

// Ledger applies trading rules to a core.PaperTrader owned by the caller.
type Ledger struct {
	policies map[string]ValuationPolicy
	cooldown time.Duration
	types    []core.OrderType
	conv     Converter
	newID    func() string
}

// NewLedger creates a ledger with spot binance and contract bitmex books
// unless policies are given.
func NewLedger(options ...Option) *Ledger {
	l := &Ledger{
		policies: make(map[string]ValuationPolicy),
		cooldown: defaultCooldown,
		types: []core.OrderType{
			core.OrderTypeBuy, core.OrderTypeSell,
			core.OrderTypeStopSell, core.OrderTypeTrailingStopSell,
		},
		newID: NewOrderID,
	}
	for _, option := range options {
		option(l)
	}
	if len(l.policies) == 0 {
		l.policies["binance"] = SpotPolicy{Base: "USDT", Start: decimal.NewFromInt(100000)}
		l.policies["bitmex"] = ContractPolicy{Margin: "BTC", Start: decimal.NewFromInt(1)}
	}
	return l
}

// NewOrderID returns 13 hex digits.
func NewOrderID() string {
	return fmt.Sprintf("%013x", rand.Int64N(maxOrderID))
}

// Policy returns the policy of exchange.
func (l *Ledger) Policy(exchange string) (ValuationPolicy, bool) {
	p, ok := l.policies[exchange]
	return p, ok
}

// Exchanges lists the exchanges with a policy.
func (l *Ledger) Exchanges() []string {
	return lo.Keys(l.policies)
}

func invalid(format string, args ...any) error {
	return core.NewUserError(core.ErrInvalidArgument, format, args...)
}

// Parse validates the order type and the token count of an order slice.
func (l *Ledger) Parse(slice string) (OrderRequest, error) {
	slice = strings.NewReplacer(" @ ", " ", " at ", " ").Replace(" " + slice + " ")
	tokens := strings.Fields(slice)
	if len(tokens) < 2 || len(tokens) > 8 {
		return OrderRequest{}, invalid("Invalid command usage.")
	}

	orderType := core.OrderType(tokens[0])
	if !lo.Contains(l.types, orderType) {
		return OrderRequest{}, invalid("Invalid command usage.")
	}
	return OrderRequest{Type: orderType, TickerID: tokens[1], Arguments: tokens[2:]}, nil
}

// view returns the book of exchange, seeded when missing, without storing it.
func (l *Ledger) view(trader *core.PaperTrader, exchange string, policy ValuationPolicy) *core.PaperBook {
	if book := trader.Book(exchange); book != nil {
		return book
	}
	return &core.PaperBook{Balance: policy.StartingBalance()}
}

// book returns the stored book of exchange, seeding it on first use.
func (l *Ledger) book(trader *core.PaperTrader, exchange string, policy ValuationPolicy) *core.PaperBook {
	if trader.Books == nil {
		trader.Books = make(map[string]*core.PaperBook)
	}
	book := trader.Books[exchange]
	if book == nil {
		book = &core.PaperBook{Balance: policy.StartingBalance()}
		trader.Books[exchange] = book
	}
	if book.Balance == nil {
		book.Balance = make(map[string]decimal.Decimal)
	}
	return book
}

func (l *Ledger) policyFor(exchange *core.Exchange) (ValuationPolicy, error) {
	if exchange == nil {
		return nil, invalid("An exchange must be provided.")
	}
	policy, ok := l.policies[exchange.ID]
	if !ok {
		return nil, core.NewUserError(core.ErrUnsupported, "%s exchange is not supported.", exchange.Name)
	}
	return policy, nil
}

// Quote validates a request against the book and the market price. It
// never mutates trader.
func (l *Ledger) Quote(ctx context.Context, trader *core.PaperTrader, req OrderRequest, resolved core.ResolvedRequest, market decimal.Decimal) (PendingOrder, error) {
	policy, err := l.policyFor(resolved.Exchange)
	if err != nil {
		return PendingOrder{}, err
	}
	if !market.IsPositive() {
		return PendingOrder{}, core.NewUserError(core.ErrProviderUnavailable,
			"Requested paper %s order for %s could not be executed.", req.Type.Text(), resolved.Ticker.Base)
	}

	book := l.view(trader, resolved.Exchange.ID, policy)
	order := core.Order{
		Type:     req.Type,
		Exchange: resolved.Exchange.ID,
		Base:     resolved.Ticker.Base,
		Quote:    resolved.Ticker.Quote,
		Price:    market,
		Status:   core.OrderStatusOpen,
	}

	priced := false
	if price, ok := resolved.Number(1); ok {
		order.Price, priced = price, true
	}
	if !order.Price.IsPositive() {
		return PendingOrder{}, invalid("Order price must be greater than zero.")
	}
	if isTrailing(req.Type) {
		if !priced {
			return PendingOrder{}, invalid("Trailing stop percentage must be provided.")
		}
		if order.Price.GreaterThanOrEqual(decimal.NewFromInt(100)) {
			return PendingOrder{}, invalid("Trailing stop percentage must be below 100 %%.")
		}
	}

	amount, err := l.amount(book, policy, order, resolved, market)
	if err != nil {
		return PendingOrder{}, err
	}
	order.Amount = amount

	switch req.Type {
	case core.OrderTypeStopSell:
		if order.Price.GreaterThanOrEqual(market) {
			return PendingOrder{}, invalid("Stop sell price must be below the current market price.")
		}
	case core.OrderTypeStopBuy:
		if order.Price.LessThanOrEqual(market) {
			return PendingOrder{}, invalid("Stop buy price must be above the current market price.")
		}
	}

	executes := !req.Type.IsStop() && (!priced ||
		(req.Type.IsBuy() && order.Price.GreaterThanOrEqual(market)) ||
		(!req.Type.IsBuy() && order.Price.LessThanOrEqual(market)))
	if executes {
		order.Price = market
	}

	if err := l.ensureFunds(book, policy, order, market); err != nil {
		return PendingOrder{}, err
	}

	pending := PendingOrder{
		Order:       order,
		Executes:    executes,
		MarketPrice: market,
		AmountText:  order.Amount.String(),
		PriceText:   order.Price.String() + " " + order.Quote,
	}
	if isTrailing(order.Type) {
		pending.PriceText = order.Price.String() + " %"
	}
	pending.ConversionText = l.conversionText(ctx, policy, order, market)
	return pending, nil
}

func (l *Ledger) amount(book *core.PaperBook, policy ValuationPolicy, order core.Order, resolved core.ResolvedRequest, market decimal.Decimal) (decimal.Decimal, error) {
	if amount, ok := resolved.Number(0); ok {
		if !amount.IsPositive() {
			return decimal.Zero, invalid("Order amount must be greater than zero.")
		}
		return amount, nil
	}

	pct, ok := percentArgument(resolved.Arguments)
	if !ok {
		return decimal.Zero, invalid("Order amount must be provided.")
	}
	if !pct.IsPositive() || pct.GreaterThan(decimal.NewFromInt(100)) {
		return decimal.Zero, invalid("Order amount must be between 0 and 100 %%.")
	}

	// size the order so that its debit leg is pct of the available balance
	unit := order
	unit.Amount = decimal.NewFromInt(1)
	if isTrailing(order.Type) {
		unit.Price = market
	}
	debit, _ := policy.Legs(unit)
	if !debit.Amount.IsPositive() {
		return decimal.Zero, invalid("Order amount must be provided.")
	}
	available := book.Balance[debit.Asset].Mul(pct).Div(decimal.NewFromInt(100))
	amount := available.Div(debit.Amount).Truncate(8)
	if !amount.IsPositive() {
		return decimal.Zero, insufficient(debit.Asset)
	}
	return amount, nil
}

func percentArgument(args []string) (decimal.Decimal, bool) {
	for _, arg := range args {
		if !strings.HasSuffix(arg, "%") {
			continue
		}
		if pct, err := decimal.NewFromString(strings.TrimSuffix(arg, "%")); err == nil {
			return pct, true
		}
	}
	return decimal.Zero, false
}

func insufficient(asset string) error {
	return &core.UserError{
		Kind:        core.ErrInsufficientFunds,
		Title:       "Insufficient paper order balance.",
		Description: fmt.Sprintf("Not enough %s to place this order.", asset),
	}
}

func isTrailing(t core.OrderType) bool {
	return strings.HasPrefix(string(t), "trailing")
}

func (l *Ledger) ensureFunds(book *core.PaperBook, policy ValuationPolicy, order core.Order, market decimal.Decimal) error {
	if isTrailing(order.Type) {
		order.Price = market
	}
	debit, _ := policy.Legs(order)
	if book.Balance[debit.Asset].LessThan(debit.Amount) {
		return insufficient(debit.Asset)
	}
	return nil
}

func (l *Ledger) conversionText(ctx context.Context, policy ValuationPolicy, order core.Order, market decimal.Decimal) string {
	if order.Type.IsStop() {
		order.Price = market
	}
	debit, _ := policy.Legs(order)
	text := fmt.Sprintf("Order size ≈ %s %s", debit.Amount.Round(8).String(), debit.Asset)

	if l.conv == nil || strings.EqualFold(debit.Asset, policy.BaseCurrency()) {
		return text
	}
	value, err := policy.Value(ctx, l.conv, debit.Asset, debit.Amount)
	if err != nil {
		return text
	}
	return fmt.Sprintf("%s (≈ %s %s)", text, value.Round(8).String(), policy.BaseCurrency())
}

// Commit applies a confirmed order. Market orders go to history as filled,
// the rest stay open. Stop orders are held without touching the balance.
func (l *Ledger) Commit(trader *core.PaperTrader, pending PendingOrder, now time.Time) (core.Order, error) {
	policy, ok := l.policies[pending.Order.Exchange]
	if !ok {
		return core.Order{}, core.NewUserError(core.ErrUnsupported, "%s exchange is not supported.", pending.Order.Exchange)
	}

	book := l.book(trader, pending.Order.Exchange, policy)
	order := pending.Order
	if err := l.ensureFunds(book, policy, order, pending.MarketPrice); err != nil {
		return core.Order{}, err
	}

	order.ID = l.newID()
	order.Timestamp = now.UnixMilli()

	if !order.Type.IsStop() {
		debit, credit := policy.Legs(order)
		book.Balance[debit.Asset] = book.Balance[debit.Asset].Sub(debit.Amount)
		if pending.Executes {
			book.Balance[credit.Asset] = book.Balance[credit.Asset].Add(credit.Amount)
		}
	}

	if pending.Executes {
		order.Status = core.OrderStatusFilled
		book.History = append(book.History, order)
	} else {
		order.Status = core.OrderStatusOpen
		book.OpenOrders = append(book.OpenOrders, order)
	}

	if trader.GlobalLastReset == 0 {
		trader.GlobalLastReset = now.Unix()
	}
	return order, nil
}

func (l *Ledger) take(trader *core.PaperTrader, orderID string, exchanges ...string) (*core.PaperBook, ValuationPolicy, core.Order, error) {
	for id, book := range trader.Books {
		if book == nil || (len(exchanges) > 0 && !lo.Contains(exchanges, id)) {
			continue
		}
		for i, order := range book.OpenOrders {
			if order.ID != orderID {
				continue
			}
			policy, ok := l.policies[id]
			if !ok {
				return nil, nil, core.Order{}, fmt.Errorf("%w: no policy for %s", core.ErrUnsupported, id)
			}
			book.OpenOrders = append(book.OpenOrders[:i:i], book.OpenOrders[i+1:]...)
			return book, policy, order, nil
		}
	}
	return nil, nil, core.Order{}, fmt.Errorf("%w: %s", core.ErrOrderNotFound, orderID)
}

// Cancel reverses the debit of an open order and moves it to history.
func (l *Ledger) Cancel(trader *core.PaperTrader, orderID string) (core.Order, error) {
	book, policy, order, err := l.take(trader, orderID)
	if err != nil {
		return core.Order{}, err
	}

	if !order.Type.IsStop() {
		debit, _ := policy.Legs(order)
		book.Balance[debit.Asset] = book.Balance[debit.Asset].Add(debit.Amount)
	}

	order.Status = core.OrderStatusCanceled
	book.History = append(book.History, order)
	return order, nil
}

// Trigger fills an open order at price. Stop orders are settled entirely at
// trigger time; limit orders only receive their credit leg.
func (l *Ledger) Trigger(trader *core.PaperTrader, exchange, orderID string, price decimal.Decimal) error {
	book, policy, order, err := l.take(trader, orderID, exchange)
	if err != nil {
		return err
	}

	if order.Type.IsStop() {
		order.Price = price
		debit, credit := policy.Legs(order)
		if book.Balance[debit.Asset].LessThan(debit.Amount) {
			order.Status = core.OrderStatusCanceled
			book.History = append(book.History, order)
			return insufficient(debit.Asset)
		}
		book.Balance[debit.Asset] = book.Balance[debit.Asset].Sub(debit.Amount)
		book.Balance[credit.Asset] = book.Balance[credit.Asset].Add(credit.Amount)
	} else {
		_, credit := policy.Legs(order)
		book.Balance[credit.Asset] = book.Balance[credit.Asset].Add(credit.Amount)
	}

	order.Status = core.OrderStatusFilled
	book.History = append(book.History, order)
	return nil
}

// CanReset reports whether a reset is allowed at now.
func (l *Ledger) CanReset(trader *core.PaperTrader, now time.Time) bool {
	if trader.GlobalResetCount == 0 {
		return true
	}
	return now.Sub(time.Unix(trader.GlobalLastReset, 0)) > l.cooldown
}

// Reset drops every book so the next access seeds it again.
func (l *Ledger) Reset(trader *core.PaperTrader, now time.Time) error {
	if !l.CanReset(trader, now) {
		return core.NewUserError(core.ErrResetCooldown, "Paper balance can only be reset once every seven days.")
	}
	trader.Books = nil
	trader.GlobalResetCount++
	trader.GlobalLastReset = now.Unix()
	return nil
}
