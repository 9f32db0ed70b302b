package router

import (
	"context"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
)

const (
	proURL    = "https://www.alphabotsystem.com/pro"
	inviteURL = "https://t.me/AlphaBotSystemBot?startgroup=true"
)

func introduction() core.Embed {
	example := func(page string) string {
		return "[View examples](" + guideURL + "/" + page + ")."
	}
	return core.Embed{
		Title: ":wave: Introduction",
		Description: "Alpha Bot is the most popular bot for requesting charts, set price alerts, and more. " +
			"Using Alpha Bot is as simple as typing a short command into any chat the bot has access to. " +
			"A full guide is available on our website: " + guideURL,
		Color: core.ColorLightBlue,
		Fields: []core.Field{
			{Name: ":chart_with_upwards_trend: Charts", Value: "Easy access to TradingView, TradingLite and Finviz charts. " + example("charts")},
			{Name: ":bell: Alerts", Value: "Setup price alerts for select crypto exchanges. " + example("price-alerts")},
			{Name: ":money_with_wings: Prices", Value: "Prices for tens of thousands of tickers. " + example("prices")},
			{Name: ":joystick: Alpha Paper Trader", Value: "Execute crypto paper trades through Alpha Bot. " + example("paper-trader")},
			{Name: ":fire: Heat Maps", Value: "Various heat maps from Bitgur. " + example("heat-maps")},
			{Name: ":book: Orderbook Visualizations", Value: "Orderbook snapshot visualizations for crypto markets. " + example("orderbook-visualizations")},
			{Name: ":tools: Cryptocurrency Details", Value: "Detailed cryptocurrency information from CoinGecko. " + example("cryptocurrency-details")},
			{Name: ":yen: Cryptocurrency Conversions", Value: "An easy way to convert between crypto and fiat rates. " + example("cryptocurrency-conversions")},
			{Name: ":pushpin: Command Presets", Value: "Create personal presets for easy access to features you use the most. " + example("command-presets")},
			{Name: ":link: Official Alpha website", Value: "[alphabotsystem.com](https://www.alphabotsystem.com)", Inline: true},
		},
		Footer: `Use "alpha help" to pull up this list again.`,
	}
}

func (r *Router) alphaCommand(ctx context.Context, c *Call, slice string) error {
	var msg core.OutboundMessage
	switch strings.TrimSpace(slice) {
	case "help":
		msg = embedMessage(introduction())
	case "ping":
		msg = core.OutboundMessage{Content: "Pong"}
	case "pro":
		msg = core.OutboundMessage{Content: "Visit " + proURL + " to learn more about Alpha Pro and how to start your free trial."}
	case "invite":
		msg = core.OutboundMessage{Content: inviteURL}
	default:
		return nil
	}
	_, err := c.Send(ctx, msg)
	return err
}

// settingsCommand answers every "set" request with the pointer to the
// account website.
func (r *Router) settingsCommand(ctx context.Context, c *Call, slice string) error {
	if c.Request.RoomID == -1 {
		return nil
	}
	embed := core.Embed{
		Title:       ":control_knobs: Functionality Settings",
		Description: "All personal and community preferences have been moved to our website. Sign into your Alpha Account to access them.",
		Color:       core.ColorDeepPurple,
	}
	if slice == "help" {
		embed.Description = "Sign into your Alpha Account to access your personal and community preferences."
		embed.Color = core.ColorLightBlue
	}
	_, err := c.Send(ctx, embedMessage(embed))
	return err
}
