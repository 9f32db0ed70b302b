// Package alert manages the price alerts stored on an account.
package alert

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/paper"
)

const DefaultAction = "price"

// Entry is an alert with its position in a listing.
type Entry struct {
	Exchange string
	Symbol   string
	Alert    core.Alert
	Index    int
	Total    int
}

// Footer identifies the entry in chat.
func (e Entry) Footer(exchangeName string) string {
	return fmt.Sprintf("Alert %d/%d on %s ● id: %s", e.Index, e.Total, exchangeName, e.Alert.ID)
}

// Option configures a Book.
type Option func(*Book)

func WithMaxPerExchange(n int) Option {
	return func(b *Book) {
		b.max = n
	}
}

func WithExchanges(ids ...string) Option {
	return func(b *Book) {
		b.exchanges = ids
	}
}

func WithIDGenerator(fn func() string) Option {
	return func(b *Book) {
		b.newID = fn
	}
}

// Book applies the alert rules to core.MarketAlerts owned by the caller.
type Book struct {
	max       int
	exchanges []string
	newID     func() string
}

func NewBook(options ...Option) *Book {
	b := &Book{
		max:       100,
		exchanges: []string{"binance", "bitmex", "coinbasepro"},
		newID:     paper.NewOrderID,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Exchanges lists the exchanges alerts can be set on.
func (b *Book) Exchanges() []string {
	return b.exchanges
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

// Count returns the number of alerts set on exchange.
func Count(alerts core.MarketAlerts, exchange string) int {
	return lo.SumBy(lo.Values(alerts[exchange]), func(list []core.Alert) int { return len(list) })
}

// Add stores a new alert. membership names the tier in the limit notice.
func (b *Book) Add(alerts *core.MarketAlerts, exchange core.Exchange, ticker core.Ticker, action string, level decimal.Decimal, author, room int64, membership string, now time.Time) (core.Alert, error) {
	if !lo.Contains(b.exchanges, exchange.ID) {
		return core.Alert{}, core.NewUserError(core.ErrUnsupported, "%s exchange is not supported.", exchange.Name)
	}
	if !level.IsPositive() {
		return core.Alert{}, core.NewUserError(core.ErrInvalidArgument, "Alert level must be greater than zero.")
	}
	if action == "" {
		action = DefaultAction
	}

	if *alerts == nil {
		*alerts = make(core.MarketAlerts)
	}
	book := (*alerts)[exchange.ID]
	if book == nil {
		book = make(map[string][]core.Alert)
		(*alerts)[exchange.ID] = book
	}

	if Count(*alerts, exchange.ID) >= b.max {
		return core.Alert{}, &core.UserError{
			Kind:        core.ErrLimitReached,
			Title:       fmt.Sprintf("Only up to %d price alerts per exchange are allowed for %s members.", b.max, membership),
			Description: "Maximum number of price alerts reached",
		}
	}

	key := ticker.Key()
	for _, existing := range book[key] {
		if strings.EqualFold(existing.Action, action) && existing.Level.Equal(level) {
			return core.Alert{}, core.NewUserError(core.ErrDuplicate, "%s alert for %s (%s) at %s %s already exists.",
				titleCase(action), ticker.Base, exchange.Name, level.String(), ticker.Quote)
		}
	}

	alert := core.Alert{
		ID:        b.newID(),
		Action:    action,
		Level:     level,
		User:      strconv.FormatInt(author, 10),
		Channel:   strconv.FormatInt(room, 10),
		Timestamp: now.Unix(),
	}
	book[key] = append(book[key], alert)
	return alert, nil
}

// SetText is the confirmation notice of a stored alert.
func SetText(alert core.Alert, exchange core.Exchange, ticker core.Ticker) string {
	return fmt.Sprintf("%s alert set for %s (%s) at %s %s.",
		titleCase(alert.Action), ticker.Base, exchange.Name, alert.Level.String(), ticker.Quote)
}

// List returns every alert ordered by exchange, then symbol, then insertion.
// Indexes restart on every exchange.
func (b *Book) List(alerts core.MarketAlerts) []Entry {
	var entries []Entry
	for _, exchange := range b.exchanges {
		book := alerts[exchange]
		total := Count(alerts, exchange)
		symbols := lo.Keys(book)
		sort.Strings(symbols)

		index := 0
		for _, symbol := range symbols {
			for _, alert := range book[symbol] {
				index++
				entries = append(entries, Entry{
					Exchange: exchange,
					Symbol:   strings.ReplaceAll(symbol, "-", "/"),
					Alert:    alert,
					Index:    index,
					Total:    total,
				})
			}
		}
	}
	return entries
}

// Remove deletes the alert with id. The symbol key is kept with an empty list
// so a merge write overwrites the stored list.
func (b *Book) Remove(alerts core.MarketAlerts, id string) (Entry, error) {
	for exchange, book := range alerts {
		for symbol, list := range book {
			for i, alert := range list {
				if alert.ID != id {
					continue
				}
				book[symbol] = append(list[:i:i], list[i+1:]...)
				return Entry{Exchange: exchange, Symbol: strings.ReplaceAll(symbol, "-", "/"), Alert: alert}, nil
			}
		}
	}
	return Entry{}, fmt.Errorf("%w: alert %s", core.ErrNotFound, id)
}
