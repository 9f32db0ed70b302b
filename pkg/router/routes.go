package router

import (
	"regexp"

	"github.com/raykavin/alphabot/pkg/core"
)

// splitter builds the batch separator of a family: ", <word> ", " <word> "
// and ", " for each word.
func splitter(words ...string) *regexp.Regexp {
	pattern := ""
	for _, w := range words {
		pattern += ", " + w + " | " + w + " |"
	}
	return regexp.MustCompile(pattern + ", ")
}

func help(title string) core.Embed {
	return core.Embed{Title: title}
}

// table is the dispatch table, matched in order.
func (r *Router) table() []*Route {
	s := r.settings
	route := func(family string, prefixes []string, statistic, guidePage, title string, flags Flag, h Handler) *Route {
		return &Route{
			Family:    family,
			Prefixes:  prefixes,
			Cost:      s.Weight(family),
			Queue:     s.Queues[family],
			Statistic: statistic,
			Guide:     guidePage,
			Help:      help(title),
			Flags:     flags,
			Handler:   h,
		}
	}
	charts := Metered | Capped | Cleanup | Tips

	c := route("c", []string{"c "}, "c", "charts", ":chart_with_upwards_trend: Charts", charts,
		r.market(core.KindChart, "chart"))
	c.Split = splitter("c")

	flow := route("flow", []string{"flow "}, "flow", "alpha-flow", ":microscope: Alpha Flow", charts,
		r.market(core.KindFlow, "orderflow"))
	flow.Split = splitter("flow")

	hmap := route("hmap", []string{"hmap "}, "hmap", "heat-maps", ":fire: Heat map", charts,
		r.market(core.KindHeatmap, "heat map"))
	hmap.Split = splitter("hmap")

	d := route("d", []string{"d "}, "d", "orderbook-visualizations", ":book: Orderbook visualizations", charts,
		r.market(core.KindDepth, "orderbook visualization"))
	d.Split = splitter("d")

	p := route("p", []string{"p "}, "p", "prices", ":money_with_wings: Prices", charts,
		r.market(core.KindPrice, "price"))
	p.Split = splitter("p")

	v := route("v", []string{"v "}, "v", "volume", ":credit_card: Volume", charts,
		r.market(core.KindVolume, "volume"))
	v.Split = splitter("v")

	convert := route("convert", []string{"convert "}, "convert", "cryptocurrency-conversions",
		":yen: Cryptocurrency conversions", Metered, r.convert)
	convert.Split = splitter("convert")

	m := route("m", []string{"m ", "info "}, "mcap", "cryptocurrency-details", ":tools: Market information", Metered,
		r.market(core.KindDetails, "information"))
	m.Deprecated = []string{"mcap ", "mc "}
	m.Split = splitter("m", "info", "mcap", "mc")

	t := route("t", []string{"t ", "top "}, "t", "rankings", ":tools: Rankings", Metered,
		r.feed(core.KindRankings, "rankings"))
	t.Split = splitter("t", "top")

	mk := route("mk", []string{"mk "}, "mk", "market-listings", ":page_facing_up: Market listings", Metered,
		r.market(core.KindMarkets, "market listings"))
	mk.Split = splitter("mk")

	n := route("n", []string{"n "}, "n", "news", ":newspaper: News", Metered|OperatorOnly,
		r.feed(core.KindNews, "news"))
	n.Split = splitter("n")

	alert := route("alert", []string{"alert ", "alerts "}, "alerts", "price-alerts", ":bell: Price Alerts",
		HumanOnly|Capped, r.alertCommand)
	alert.Split = splitter("alert", "alerts")

	preset := route("preset", []string{"preset "}, "", "command-presets", ":pushpin: Command presets",
		HumanOnly|Capped|Tips, r.presetCommand)
	preset.Split = regexp.MustCompile(", preset | preset ")

	paper := route("paper", []string{"paper "}, "paper", "paper-trader", ":joystick: Alpha Paper Trader", Tips,
		r.paperCommand)
	paper.Split = splitter("paper")

	x := route("x", []string{"x "}, "x", "live-trader", ":dart: Alpha Live Trader", OperatorOnly, r.liveCommand)
	x.Split = splitter("x")

	alpha := route("alpha", []string{"alpha "}, "alpha", "", "", 0, r.alphaCommand)
	set := route("set", []string{"set "}, "", "", "", HumanOnly, r.settingsCommand)

	return []*Route{c, flow, hmap, d, p, v, convert, m, t, mk, n, alert, preset, paper, x, alpha, set}
}
