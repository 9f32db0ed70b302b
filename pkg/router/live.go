package router

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/paper"
	"github.com/raykavin/alphabot/pkg/trade"
)

const liveTrader = "Alpha Live Trader"

func (r *Router) liveCommand(ctx context.Context, c *Call, slice string) error {
	req := c.Request
	if !req.IsRegistered() {
		return unregistered(":dart:", liveTrader)
	}
	if !req.IsPro() {
		return upsell(liveTrader+" is", "$10.00")
	}

	arguments := strings.Fields(slice)
	if arguments[0] == "reset" {
		_, err := c.Send(ctx, core.OutboundMessage{Content: "Nice try"})
		return err
	}
	if r.broker == nil {
		return unavailable("%s is not available right now.", liveTrader)
	}

	switch arguments[0] {
	case "balance", "bal":
		return r.liveBalance(ctx, c)
	case "history", "orders":
		if len(arguments) != 2 {
			return usage(c)
		}
		return r.liveOrders(ctx, c, arguments[1], arguments[0] == "orders")
	}
	return r.liveTrade(ctx, c, slice)
}

func (r *Router) liveBalance(ctx context.Context, c *Call) error {
	balances, err := r.broker.Balances(ctx)
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		_, err := c.Send(ctx, notice(liveTrader, "No live balance", core.ColorDeepPurple))
		return err
	}

	rows := make([][]string, 0, len(balances))
	for _, b := range balances {
		rows = append(rows, []string{b.Asset, paper.FormatNumber(b.Free, 8), paper.FormatNumber(b.Locked, 8)})
	}
	_, err = c.Send(ctx, embedMessage(core.Embed{
		Author:      liveTrader,
		Title:       "Live balance",
		Description: "```\n" + paper.Table([]string{"Asset", "Free", "Locked"}, rows) + "```",
		Color:       core.ColorDeepPurple,
	}))
	return err
}

// liveOrders lists the latest orders of symbol; open restricts them to the
// ones still waiting.
func (r *Router) liveOrders(ctx context.Context, c *Call, symbol string, open bool) error {
	symbol = strings.ToUpper(symbol)
	orders, err := r.broker.Orders(ctx, symbol, paper.HistoryLimit)
	if err != nil {
		return err
	}

	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		if open && o.Status != core.OrderStatusOpen {
			continue
		}
		rows = append(rows, []string{
			o.Type.Text(),
			o.Amount.String(),
			o.Price.String(),
			string(o.Status),
			time.UnixMilli(o.Timestamp).UTC().Format("2006-01-02 15:04"),
			o.ID,
		})
	}

	noun := "trading history"
	if open {
		noun = "open orders"
	}
	if len(rows) == 0 {
		_, err := c.Send(ctx, notice(liveTrader, fmt.Sprintf("No %s for %s", noun, symbol), core.ColorDeepPurple))
		return err
	}
	_, err = c.Send(ctx, embedMessage(core.Embed{
		Author:      liveTrader,
		Title:       fmt.Sprintf("Live %s for %s", noun, symbol),
		Description: "```\n" + paper.Table([]string{"Type", "Amount", "Price", "Status", "Date", "ID"}, rows) + "```",
		Color:       core.ColorDeepPurple,
	}))
	return err
}

// liveOrderSet turns a parsed order into what is sent to the broker together
// with the price shown to the author.
func liveOrderSet(order paper.OrderRequest, resolved core.ResolvedRequest) ([]core.Order, string, error) {
	amount, ok := resolved.Number(0)
	if !ok || !amount.IsPositive() {
		return nil, "", invalid("Order amount must be greater than zero.")
	}
	base := core.Order{
		Type:     order.Type,
		Exchange: resolved.Exchange.ID,
		Base:     resolved.Ticker.Base,
		Quote:    resolved.Ticker.Quote,
		Amount:   amount,
		Status:   core.OrderStatusOpen,
	}

	switch order.Type {
	case core.OrderTypeScaledBuy, core.OrderTypeScaledSell:
		from, okFrom := resolved.Number(1)
		to, okTo := resolved.Number(2)
		if !okFrom || !okTo {
			return nil, "", invalid("Scaled orders need two different prices.")
		}
		orders, err := trade.Scale(base, from, to, trade.ScaleSteps)
		if err != nil {
			return nil, "", err
		}
		return orders, fmt.Sprintf("%s - %s %s", from.String(), to.String(), base.Quote), nil

	case core.OrderTypeTrailingStopBuy, core.OrderTypeTrailingStopSell:
		return nil, "", core.NewUserError(core.ErrUnsupported, "%s orders are not supported on %s.",
			order.Type.Text(), resolved.Exchange.Name)
	}

	price, priced := resolved.Number(1)
	if priced && !price.IsPositive() {
		return nil, "", invalid("Order price must be greater than zero.")
	}
	if !priced && order.Type.IsStop() {
		return nil, "", invalid("Stop price must be provided.")
	}
	if !priced {
		return []core.Order{base}, "market price", nil
	}
	base.Price = price
	return []core.Order{base}, price.String() + " " + base.Quote, nil
}

func (r *Router) liveTrade(ctx context.Context, c *Call, slice string) error {
	order, err := r.live.Parse(slice)
	if err != nil {
		return err
	}
	msg, resolved := r.resolver.Resolve(ctx, order.Query(), "", c.Route.Queue)
	if msg != "" {
		return invalid("%s", msg)
	}
	if resolved.Exchange == nil {
		return invalid("An exchange must be provided.")
	}

	orders, priceText, err := liveOrderSet(order, resolved)
	if err != nil {
		return err
	}
	amount, _ := resolved.Number(0)
	exchange := resolved.Exchange.Name
	description := fmt.Sprintf("%s order of %s %s on %s at %s", order.Type.Text(), amount.String(),
		resolved.Ticker.Base, exchange, priceText)

	err = r.ask(ctx, c, core.Embed{
		Author: "Live order confirmation",
		Title:  fmt.Sprintf("Do you want to place a %s?", description),
		Color:  core.ColorPink,
	}, core.Embed{Author: liveTrader, Title: "Order canceled"})
	if err != nil {
		return err
	}

	executed := true
	for _, o := range orders {
		placed, err := r.broker.Place(ctx, o)
		if err != nil {
			return err
		}
		executed = executed && placed.Status == core.OrderStatusFilled
		r.reportTrade(ctx, c, placed)
	}

	outcome := "placed"
	if executed {
		outcome = "executed"
	}
	text := strings.ToUpper(description[:1]) + description[1:]
	_, err = c.Send(ctx, notice(liveTrader, fmt.Sprintf("%s was successfully %s.", text, outcome), core.ColorDeepPurple))
	return err
}

// reportTrade meters one placed live order. A failed report does not undo
// the order.
func (r *Router) reportTrade(ctx context.Context, c *Call, placed core.Order) {
	if r.meter == nil {
		return
	}
	req := c.Request
	err := r.meter.Report(ctx, billing.TradeKey(req.AccountID, placed.ID),
		req.Account.Customer.PersonalSubscription.Subscription, r.settings.Billing.TradeQuantity)
	if err != nil {
		c.Log.WithError(err).WithField("order", placed.ID).Warn("reporting live trade usage")
	}
}
