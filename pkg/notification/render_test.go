package notification

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/raykavin/alphabot/pkg/core"
)

func TestRender(t *testing.T) {
	msg := core.OutboundMessage{
		Embed: &core.Embed{
			Author:      "Alpha Paper Trader",
			Title:       "Paper balance on Binance",
			Description: "Holding 1 asset <total>",
			Fields:      []core.Field{{Name: "USDT:", Value: "100,000 USDT"}},
			Footer:      "Paper order 1/1 ● id: abc",
		},
	}
	require.Equal(t, "<i>Alpha Paper Trader</i>\n"+
		"<b>Paper balance on Binance</b>\n"+
		"Holding 1 asset &lt;total&gt;\n"+
		"<b>USDT:</b>\n100,000 USDT\n"+
		"<i>Paper order 1/1 ● id: abc</i>", Render(msg))
}

func TestRenderMarkup(t *testing.T) {
	for input, expected := range map[string]string{
		"Running `c btc` command":    "Running <code>c btc</code> command",
		"```\nSide  Amount\n```":     "<pre>Side  Amount</pre>",
		"~~Do you want this?~~":      "<s>Do you want this?</s>",
		"a `b` and `unterminated":    "a <code>b</code> and `unterminated",
		"1 < 2 ~~ unbalanced":        "1 &lt; 2 ~~ unbalanced",
		"`p` → `c btc` ~~old~~ done": "<code>p</code> → <code>c btc</code> <s>old</s> done",
	} {
		require.Equal(t, expected, markup(input), input)
	}
}

func TestRenderMention(t *testing.T) {
	msg := core.OutboundMessage{Mention: 42, Content: "You reached your limit."}
	require.Equal(t, `<a href="tg://user?id=42">@</a>`+"\nYou reached your limit.", Render(msg))
}

func TestKeyboard(t *testing.T) {
	markup := keyboard([]string{core.ReactionDismiss, core.ReactionCancel})
	require.Len(t, markup.InlineKeyboard, 1)
	require.Equal(t, core.ReactionCancel, markup.InlineKeyboard[0][1].Data)
	require.Empty(t, keyboard(nil).InlineKeyboard)
}
