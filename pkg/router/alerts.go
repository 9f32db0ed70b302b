package router

import (
	"context"
	"strings"

	"github.com/raykavin/alphabot/pkg/alert"
	"github.com/raykavin/alphabot/pkg/billing"
	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/platform"
)

func membership(req core.Request) string {
	if req.IsPro() {
		return "Alpha Pro"
	}
	return "free"
}

func (r *Router) alertCommand(ctx context.Context, c *Call, slice string) error {
	arguments := strings.Fields(slice)
	method := arguments[0]
	req := c.Request

	switch method {
	case "set", "create", "add":
		if len(arguments) < 3 {
			return usage(c)
		}
		msg, resolved := r.resolver.Resolve(ctx, strings.Join(arguments[1:], " "), "", c.Route.Queue)
		if msg != "" {
			if !req.IsRegistered() {
				return nil
			}
			return invalid("%s", msg)
		}
		if !req.IsRegistered() {
			return unregistered(":bell:", "Price Alerts")
		}
		if !req.IsPro() {
			return upsell("Price Alerts are", "$2.00")
		}
		level, ok := resolved.Number(0)
		if !ok {
			return invalid("Alert level must be provided.")
		}
		if resolved.Exchange == nil {
			return invalid("An exchange must be provided.")
		}
		exchange := *resolved.Exchange
		action := firstArgument(resolved.Arguments, "")

		var text string
		err := r.mutate(ctx, req.AccountID, func(a *core.AccountProperties) (any, error) {
			stored, err := r.alerts.Add(&a.MarketAlerts, exchange, resolved.Ticker, action, level,
				req.AuthorID, req.RoomID, membership(req), r.now())
			if err != nil {
				return nil, err
			}
			if a.Addon(core.AddonMarketAlerts) == 0 && r.meter != nil {
				if err := r.meter.Report(ctx, billing.AlertKey(req.AccountID),
					a.Customer.PersonalSubscription.Subscription, r.settings.Billing.AlertQuantity); err != nil {
					return nil, err
				}
			}
			text = alert.SetText(stored, exchange, resolved.Ticker)
			return map[string]any{
				"marketAlerts": map[string]any{
					exchange.ID: map[string]any{resolved.Ticker.Key(): a.MarketAlerts[exchange.ID][resolved.Ticker.Key()]},
				},
				"customer": map[string]any{"addons": map[string]any{core.AddonMarketAlerts: 1}},
			}, nil
		})
		if err != nil {
			return err
		}
		_, err = c.Send(ctx, notice("Alert successfully set", text, core.ColorDeepPurple))
		return err

	case "list", "all":
		if len(arguments) != 1 {
			return usage(c)
		}
		var entries []alertEntry
		if req.IsPro() {
			entries = r.listAlerts(req.Account.MarketAlerts)
		}
		if len(entries) == 0 {
			_, err := c.Send(ctx, notice("Alpha Market Alerts", "You haven't set any alerts yet.", core.ColorGray))
			return err
		}
		for _, e := range entries {
			msg := embedMessage(core.Embed{Title: e.title, Footer: e.footer, Color: core.ColorDeepPurple})
			msg.Reactions = []string{core.ReactionCancel}
			handle, err := c.Send(ctx, msg)
			if err != nil {
				return err
			}
			r.targets.put(handle, target{kind: targetAlert, author: req.AuthorID, id: e.id, footer: e.footer})
		}
		return nil
	}
	return usage(c)
}

type alertEntry struct {
	id     string
	title  string
	footer string
}

func (r *Router) listAlerts(alerts core.MarketAlerts) []alertEntry {
	var out []alertEntry
	for _, e := range r.alerts.List(alerts) {
		exchange := platform.ExchangeByID(e.Exchange)
		base, quote, _ := strings.Cut(e.Symbol, "/")
		ticker := core.Ticker{ID: base, Symbol: e.Symbol, Base: base, Quote: quote}
		out = append(out, alertEntry{
			id:     e.Alert.ID,
			title:  strings.TrimSuffix(alert.SetText(e.Alert, exchange, ticker), "."),
			footer: e.Footer(exchange.Name),
		})
	}
	return out
}

func firstArgument(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}
