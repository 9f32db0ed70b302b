package router

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
	"github.com/raykavin/alphabot/pkg/paper"
	"github.com/raykavin/alphabot/pkg/platform"
)

const autodeleteArgument = "autodelete"

func imageKind(kind core.RequestKind) bool {
	switch kind {
	case core.KindChart, core.KindFlow, core.KindHeatmap, core.KindDepth:
		return true
	}
	return false
}

// market builds the handler of a ticker based family: the slice is resolved
// through the route queue, then the payload of the resolving platform is
// posted.
func (r *Router) market(kind core.RequestKind, noun string) Handler {
	return func(ctx context.Context, c *Call, slice string) error {
		explicit, rest := platform.SplitPlatform(c.Route.Family, slice)
		msg, resolved := r.resolver.Resolve(ctx, rest, explicit, c.Route.Queue)
		if msg != "" {
			return invalid("%s", msg)
		}
		resolved.Kind = kind
		if resolved.HasArgument(autodeleteArgument) {
			c.Response.Autodelete = true
		}

		payload, err := r.resolver.Fetch(ctx, resolved)
		if err != nil {
			r.stats.Provider(resolved.Platform, "unavailable")
			if core.Kind(err) == core.ErrInvalidArgument {
				return err
			}
			c.Log.WithError(err).WithField("platform", resolved.Platform).Warn("fetching market data")
			return r.notAvailable(ctx, c, kind, fmt.Sprintf("Requested %s for `%s` is not available.", noun, tickerName(resolved.Ticker)))
		}
		if !imageKind(kind) && payload.Text == "" && payload.Price == nil {
			r.stats.Provider(resolved.Platform, "unavailable")
			return r.notAvailable(ctx, c, kind, fmt.Sprintf("Requested %s for `%s` is not available.", noun, tickerName(resolved.Ticker)))
		}
		r.stats.Provider(resolved.Platform, "ok")
		return r.render(ctx, c, payload)
	}
}

// feed builds the handler of a family without a ticker, such as rankings and
// news. Every platform of the queue is asked in turn.
func (r *Router) feed(kind core.RequestKind, noun string) Handler {
	return func(ctx context.Context, c *Call, slice string) error {
		req, msg := platform.ParseArguments(strings.Fields(slice))
		if msg != "" {
			return invalid("%s", msg)
		}
		req.Kind = kind

		for _, name := range c.Route.Queue {
			if _, ok := r.resolver.Provider(name); !ok {
				continue
			}
			req.Platform = name
			payload, err := r.resolver.Fetch(ctx, req)
			if err != nil {
				r.stats.Provider(name, "unavailable")
				c.Log.WithError(err).WithField("platform", name).Debug("feed platform failed")
				continue
			}
			r.stats.Provider(name, "ok")
			return r.render(ctx, c, payload)
		}
		return r.notAvailable(ctx, c, kind, fmt.Sprintf("Requested %s are not available.", noun))
	}
}

func tickerName(t core.Ticker) string {
	if t.Name != "" {
		return t.Name
	}
	return t.ID
}

// notAvailable posts the tracked notice of a missing payload.
func (r *Router) notAvailable(ctx context.Context, c *Call, kind core.RequestKind, title string) error {
	author := "Data not available"
	if imageKind(kind) {
		author = "Chart not available"
	}
	msg := notice(author, title, core.ColorGray)
	msg.Reactions = []string{core.ReactionDismiss}
	_, err := c.Send(ctx, msg)
	return err
}

func (r *Router) render(ctx context.Context, c *Call, payload *core.Payload) error {
	if len(payload.Image) > 0 {
		filename := payload.Filename
		if filename == "" {
			filename = fmt.Sprintf("%d-%d.png", r.now().Unix(), c.Request.AuthorID)
		}
		_, err := c.Send(ctx, core.OutboundMessage{
			Content:   payload.Text,
			Image:     payload.Image,
			Filename:  filename,
			Reactions: []string{core.ReactionDismiss},
		})
		return err
	}

	_, err := c.Send(ctx, embedMessage(core.Embed{
		Author: payload.Title,
		Title:  payload.Text,
		Footer: "Data provided by " + payload.Platform,
		Color:  core.ColorDeepPurple,
	}))
	return err
}

// convert handles "[amount] BASE [to] QUOTE".
func (r *Router) convert(ctx context.Context, c *Call, slice string) error {
	fields := strings.Fields(strings.ReplaceAll(slice, ",", ""))
	fields = lo.Without(fields, "to", "in")

	amount := decimal.NewFromInt(1)
	if len(fields) > 0 {
		if n, err := decimal.NewFromString(fields[0]); err == nil {
			amount, fields = n, fields[1:]
		}
	}
	if len(fields) != 2 {
		return invalid("Incorrect currency conversion usage.")
	}
	if !amount.IsPositive() {
		return invalid("Conversion amount must be greater than zero.")
	}
	base, quote := strings.ToUpper(fields[0]), strings.ToUpper(fields[1])

	if r.converter == nil {
		return r.conversionUnavailable(ctx, c)
	}
	value, err := r.converter.Convert(ctx, amount, base, quote)
	if err != nil {
		c.Log.WithError(err).WithFields(map[string]any{"base": base, "quote": quote}).Debug("conversion failed")
		return r.conversionUnavailable(ctx, c)
	}

	_, err = c.Send(ctx, notice("Conversion",
		fmt.Sprintf("%s %s ≈ %s %s", amount.String(), base, paper.FormatNumber(value.Round(8), 6), quote),
		core.ColorDeepPurple))
	return err
}

func (r *Router) conversionUnavailable(ctx context.Context, c *Call) error {
	_, err := c.Send(ctx, notice("Conversion", "Requested conversion is not available.", core.ColorGray))
	return err
}
