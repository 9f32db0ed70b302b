package notification

import (
	"fmt"
	"html"
	"strings"

	"github.com/raykavin/alphabot/pkg/core"
)

// Render formats an outbound message as Telegram HTML. Code fences become
// <pre> blocks, inline backticks <code> and ~~text~~ strikethrough.
func Render(msg core.OutboundMessage) string {
	var parts []string
	if msg.Mention != 0 {
		parts = append(parts, fmt.Sprintf(`<a href="tg://user?id=%d">@</a>`, msg.Mention))
	}
	if msg.Content != "" {
		parts = append(parts, markup(msg.Content))
	}

	if e := msg.Embed; e != nil {
		if e.Author != "" {
			parts = append(parts, "<i>"+markup(e.Author)+"</i>")
		}
		if e.Title != "" {
			parts = append(parts, "<b>"+markup(e.Title)+"</b>")
		}
		if e.Description != "" {
			parts = append(parts, markup(e.Description))
		}
		for _, f := range e.Fields {
			parts = append(parts, "<b>"+markup(f.Name)+"</b>\n"+markup(f.Value))
		}
		if e.Footer != "" {
			parts = append(parts, "<i>"+markup(e.Footer)+"</i>")
		}
	}
	return strings.Join(parts, "\n")
}

func markup(text string) string {
	blocks := strings.Split(text, "```")
	out := &strings.Builder{}
	for i, block := range blocks {
		if i%2 == 1 && i < len(blocks)-1 {
			out.WriteString("<pre>" + html.EscapeString(strings.Trim(block, "\n")) + "</pre>")
			continue
		}
		if i%2 == 1 {
			out.WriteString("```")
		}
		out.WriteString(inline(block))
	}
	return out.String()
}

func inline(text string) string {
	spans := strings.Split(text, "`")
	out := &strings.Builder{}
	for i, span := range spans {
		if i%2 == 1 && i < len(spans)-1 {
			out.WriteString("<code>" + html.EscapeString(span) + "</code>")
			continue
		}
		if i%2 == 1 {
			out.WriteString("`")
		}
		out.WriteString(strike(html.EscapeString(span)))
	}
	return out.String()
}

func strike(text string) string {
	parts := strings.Split(text, "~~")
	if len(parts) < 3 {
		return text
	}
	out := &strings.Builder{}
	for i, part := range parts {
		switch {
		case i%2 == 1 && i < len(parts)-1:
			out.WriteString("<s>" + part + "</s>")
		case i%2 == 1:
			out.WriteString("~~" + part)
		default:
			out.WriteString(part)
		}
	}
	return out.String()
}
