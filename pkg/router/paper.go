package router

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/paper"
	"github.com/raykavin/alphabot/pkg/platform"
)

const (
	paperTrader = "Alpha Paper Trader"

	// maxOrderMessages caps the per-order messages of "paper orders"; longer
	// lists are sent as one table.
	maxOrderMessages = 10
)

func (r *Router) paperCommand(ctx context.Context, c *Call, slice string) error {
	req := c.Request
	if !req.IsRegistered() {
		return unregistered(":joystick:", paperTrader)
	}

	arguments := strings.Fields(slice)
	switch arguments[0] {
	case "balance", "bal":
		return r.paperBalance(ctx, c, arguments[1:])
	case "history":
		return r.paperHistory(ctx, c, arguments[1:])
	case "orders":
		return r.paperOrders(ctx, c, arguments[1:])
	case "reset":
		if len(arguments) != 1 {
			return usage(c)
		}
		return r.paperReset(ctx, c)
	}
	return r.paperTrade(ctx, c, slice)
}

// paperExchange picks the exchange named in arguments or the default one of
// the paper trader.
func (r *Router) paperExchange(arguments []string) (core.Exchange, error) {
	var exchange *core.Exchange
	for _, token := range arguments {
		e, ok := platform.LookupExchange(token)
		if !ok {
			return core.Exchange{}, invalid("`%s` is not a valid argument.", token)
		}
		if exchange != nil && exchange.ID != e.ID {
			return core.Exchange{}, invalid("Only one exchange can be requested at a time.")
		}
		exchange = &e
	}
	if exchange == nil {
		defaults := r.settings.Paper.Exchanges
		if len(defaults) == 0 {
			defaults = r.ledger.Exchanges()
			slices.Sort(defaults)
		}
		if len(defaults) == 0 {
			return core.Exchange{}, invalid("An exchange must be provided.")
		}
		e := platform.ExchangeByID(defaults[0])
		exchange = &e
	}
	if _, ok := r.ledger.Policy(exchange.ID); !ok {
		return core.Exchange{}, core.NewUserError(core.ErrUnsupported, "%s exchange is not supported.", exchange.Name)
	}
	return *exchange, nil
}

func (r *Router) paperBalance(ctx context.Context, c *Call, arguments []string) error {
	exchange, err := r.paperExchange(arguments)
	if err != nil {
		return err
	}
	v, err := r.ledger.Describe(ctx, &c.Request.Account.PaperTrader, exchange)
	if err != nil {
		return err
	}

	embed := core.Embed{
		Author:      paperTrader,
		Title:       "Paper balance on " + exchange.Name,
		Description: v.Summary(),
		Color:       core.ColorDeepPurple,
	}
	for _, h := range v.Holdings {
		value := "No conversion"
		if h.Converted {
			value = fmt.Sprintf("≈ %s %s", paper.FormatNumber(h.Value, 2), v.BaseCurrency)
		}
		embed.Fields = append(embed.Fields, core.Field{
			Name:   h.Asset + ":",
			Value:  fmt.Sprintf("%s %s\n%s", paper.FormatNumber(h.Amount, 8), h.Asset, value),
			Inline: true,
		})
	}
	if v.Locked.IsPositive() {
		embed.Fields = append(embed.Fields, core.Field{
			Name:   "Locked up in open orders:",
			Value:  fmt.Sprintf("≈ %s %s", paper.FormatNumber(v.Locked, 2), v.BaseCurrency),
			Inline: true,
		})
	}
	_, err = c.Send(ctx, embedMessage(embed))
	return err
}

func (r *Router) paperHistory(ctx context.Context, c *Call, arguments []string) error {
	exchange, err := r.paperExchange(arguments)
	if err != nil {
		return err
	}
	book := c.Request.Account.PaperTrader.Book(exchange.ID)
	if book == nil || len(book.History) == 0 {
		_, err := c.Send(ctx, notice(paperTrader, "No paper trading history on "+exchange.Name, core.ColorDeepPurple))
		return err
	}
	_, err = c.Send(ctx, embedMessage(core.Embed{
		Author:      paperTrader,
		Title:       "Paper trading history on " + exchange.Name,
		Description: "```\n" + paper.FormatHistory(book) + "```",
		Color:       core.ColorDeepPurple,
	}))
	return err
}

// paperOrders posts one message per open order so each can be canceled with
// a reaction.
func (r *Router) paperOrders(ctx context.Context, c *Call, arguments []string) error {
	exchange, err := r.paperExchange(arguments)
	if err != nil {
		return err
	}
	book := c.Request.Account.PaperTrader.Book(exchange.ID)
	if book == nil || len(book.OpenOrders) == 0 {
		_, err := c.Send(ctx, notice(paperTrader, "No open paper orders on "+exchange.Name, core.ColorDeepPurple))
		return err
	}

	if len(book.OpenOrders) > maxOrderMessages {
		_, err := c.Send(ctx, embedMessage(core.Embed{
			Author:      paperTrader,
			Title:       "Open paper orders on " + exchange.Name,
			Description: "```\n" + paper.FormatOpenOrders(book) + "```",
			Color:       core.ColorDeepPurple,
		}))
		return err
	}

	for i, o := range book.OpenOrders {
		footer := paper.OrderFooter(o, i, len(book.OpenOrders))
		msg := embedMessage(core.Embed{
			Title:  paper.OrderTitle(o),
			Footer: footer,
			Color:  core.ColorDeepPurple,
		})
		msg.Reactions = []string{core.ReactionCancel}
		handle, err := c.Send(ctx, msg)
		if err != nil {
			return err
		}
		r.targets.put(handle, target{kind: targetPaperOrder, author: c.Request.AuthorID, id: o.ID, footer: footer})
	}
	return nil
}

func (r *Router) paperReset(ctx context.Context, c *Call) error {
	req := c.Request
	if !r.ledger.CanReset(&req.Account.PaperTrader, r.now()) {
		return core.NewUserError(core.ErrResetCooldown, "Paper balance can only be reset once every seven days.")
	}

	err := r.ask(ctx, c, core.Embed{
		Author: paperTrader,
		Title:  "Do you really want to reset your paper balance? This cannot be undone.",
		Color:  core.ColorPink,
	}, core.Embed{Author: paperTrader, Title: "Paper balance reset canceled."})
	if err != nil {
		return err
	}

	err = r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
		if err := r.ledger.Reset(&a.PaperTrader, r.now()); err != nil {
			return nil, err
		}
		return map[string]any{"paperTrader": map[string]any{
			"books":            nil,
			"globalResetCount": a.PaperTrader.GlobalResetCount,
			"globalLastReset":  a.PaperTrader.GlobalLastReset,
		}}, nil
	})
	if err != nil {
		return err
	}
	_, err = c.Send(ctx, notice(paperTrader, "Paper balance has been reset successfully.", core.ColorDeepPurple))
	return err
}

func (r *Router) paperTrade(ctx context.Context, c *Call, slice string) error {
	req := c.Request
	order, err := r.ledger.Parse(slice)
	if err != nil {
		return err
	}

	msg, resolved := r.resolver.Resolve(ctx, order.Query(), "", c.Route.Queue)
	if msg != "" {
		return invalid("%s", msg)
	}
	resolved.Kind = core.KindPrice

	payload, err := r.resolver.Fetch(ctx, resolved)
	if err != nil || payload.Price == nil {
		r.stats.Provider(resolved.Platform, "unavailable")
		if err != nil {
			c.Log.WithError(err).WithField("platform", resolved.Platform).Warn("fetching paper order price")
		}
		return unavailable("Requested paper %s order for %s could not be executed.", order.Type.Text(), tickerName(resolved.Ticker))
	}
	r.stats.Provider(resolved.Platform, "ok")

	pending, err := r.ledger.Quote(ctx, &req.Account.PaperTrader, order, resolved, *payload.Price)
	if err != nil {
		return err
	}

	exchange := resolved.Exchange.Name
	err = r.ask(ctx, c, core.Embed{
		Author: "Paper order confirmation",
		Title: fmt.Sprintf("Do you want to place a paper %s order of %s %s on %s at %s?",
			order.Type.Text(), pending.AmountText, pending.Order.Base, exchange, pending.PriceText),
		Description: pending.ConversionText,
		Color:       core.ColorPink,
	}, core.Embed{Author: paperTrader, Title: "Paper order canceled"})
	if err != nil {
		return err
	}

	var placed core.Order
	err = r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
		var err error
		placed, err = r.ledger.Commit(&a.PaperTrader, pending, r.now())
		if err != nil {
			return nil, err
		}
		return map[string]any{"paperTrader": a.PaperTrader}, nil
	})
	if err != nil {
		return err
	}

	outcome := "placed"
	if placed.Status == core.OrderStatusFilled {
		outcome = "executed"
	}
	_, err = c.Send(ctx, notice(paperTrader,
		fmt.Sprintf("Paper %s order of %s %s on %s at %s was successfully %s.",
			order.Type.Text(), pending.AmountText, placed.Base, exchange, pending.PriceText, outcome),
		core.ColorDeepPurple))
	return err
}
