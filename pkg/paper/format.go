package paper

import (
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"

	"github.com/raykavin/alphabot/pkg/core"
)

// HistoryLimit is how many history entries are shown.
const HistoryLimit = 25

// FormatNumber renders d with places decimals and thousands separators.
func FormatNumber(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if hasFrac {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return sign + b.String()
}

// Side describes a settled order.
func Side(o core.Order) string {
	switch {
	case o.Status == core.OrderStatusCanceled:
		return "Canceled"
	case o.Type == core.OrderTypeBuy:
		return "Bought"
	case o.Type == core.OrderTypeSell:
		return "Sold"
	case isTrailing(o.Type):
		return "Trailing stop hit"
	case o.Type.IsStop():
		return "Stop loss hit"
	}
	return o.Type.Text()
}

func priceQuote(o core.Order) string {
	if isTrailing(o.Type) {
		return "%"
	}
	return o.Quote
}

// OrderTitle is the headline of an open order notice.
func OrderTitle(o core.Order) string {
	side := o.Type.Text()
	side = strings.ToUpper(side[:1]) + side[1:]
	return fmt.Sprintf("%s %s %s at %s %s", side, o.Amount.String(), o.Base, o.Price.String(), priceQuote(o))
}

// OrderFooter identifies the i-th of n open orders.
func OrderFooter(o core.Order, i, n int) string {
	return fmt.Sprintf("Paper order %d/%d ● id: %s", i+1, n, o.ID)
}

// FormatHistory renders the last HistoryLimit history entries.
func FormatHistory(book *core.PaperBook) string {
	history := book.History
	if len(history) > HistoryLimit {
		history = history[len(history)-HistoryLimit:]
	}

	rows := make([][]string, 0, len(history))
	for _, o := range history {
		rows = append(rows, []string{
			Side(o),
			o.Amount.String() + " " + o.Base,
			o.Price.String() + " " + priceQuote(o),
			time.UnixMilli(o.Timestamp).UTC().Format("2006-01-02 15:04"),
			o.ID,
		})
	}
	return Table([]string{"Side", "Amount", "Price", "Date", "ID"}, rows)
}

// FormatOpenOrders renders every open order.
func FormatOpenOrders(book *core.PaperBook) string {
	rows := make([][]string, 0, len(book.OpenOrders))
	for _, o := range book.OpenOrders {
		rows = append(rows, []string{
			o.Type.Text(),
			o.Amount.String() + " " + o.Base,
			o.Price.String() + " " + priceQuote(o),
			o.ID,
		})
	}
	return Table([]string{"Type", "Amount", "Price", "ID"}, rows)
}

// Table renders rows under header as a borderless text table.
func Table(header []string, rows [][]string) string {
	out := &strings.Builder{}
	table := tablewriter.NewWriter(out)
	table.SetHeader(header)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()
	return out.String()
}
