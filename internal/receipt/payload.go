// Package receipt renders printable loading receipts and keeps them for download.
package receipt

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/odyssey-erp/odyssey-dms/internal/loading"
)

// Payload is the template data of one receipt. Amounts are preformatted for the locale.
type Payload struct {
	Locale          string
	Title           string
	Reference       string
	Date            string
	Employee        string
	Vehicle         string
	Area            string
	MixedAttributes []string
	OrderCount      int
	Total           string
	Collected       string
	Pending         string
	Lines           []Line
	GeneratedAt     string
}

// Line is one order on the receipt.
type Line struct {
	No        int
	OrderID   string
	Customer  string
	Status    string
	Total     string
	Collected string
	Pending   string
}

// Formatter renders amounts and dates for one locale.
type Formatter struct {
	tag     language.Tag
	printer *message.Printer
}

// NewFormatter builds a Formatter for a BCP 47 locale such as "id" or "en". Unknown locales fall
// back to Indonesian.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.Indonesian
	}
	return Formatter{tag: tag, printer: message.NewPrinter(tag)}
}

// Amount formats d with two decimals and locale grouping.
func (f Formatter) Amount(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// Date formats t as an ISO day, or empty when nil.
func (f Formatter) Date(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.DateOnly)
}

// BuildPayload turns a group into receipt data.
func BuildPayload(g loading.Group, workflow string, f Formatter, now time.Time) Payload {
	reference := g.LoadingNumber
	if g.Synthetic {
		reference = "Order " + strconv.FormatInt(firstOrderID(g), 10)
	}
	p := Payload{
		Locale:          f.tag.String(),
		Title:           cases.Title(f.tag).String(workflow) + " Receipt",
		Reference:       reference,
		Date:            f.Date(g.Date),
		Employee:        g.EmployeeName,
		Vehicle:         g.VehicleNumber,
		Area:            g.Area,
		MixedAttributes: g.MixedAttributes,
		OrderCount:      g.OrderCount,
		Total:           f.Amount(g.TotalAmount),
		Collected:       f.Amount(g.CollectedAmount),
		Pending:         f.Amount(g.PendingAmount),
		Lines:           make([]Line, 0, len(g.Orders)),
		GeneratedAt:     now.Format("2006-01-02 15:04 MST"),
	}
	for i, o := range g.Orders {
		p.Lines = append(p.Lines, Line{
			No:        i + 1,
			OrderID:   strconv.FormatInt(o.ID, 10),
			Customer:  o.CustomerName,
			Status:    string(o.Status),
			Total:     f.Amount(o.TotalAmount),
			Collected: f.Amount(o.CollectedAmount),
			Pending:   f.Amount(o.PendingAmount),
		})
	}
	return p
}

func firstOrderID(g loading.Group) int64 {
	if len(g.Orders) == 0 {
		return 0
	}
	return g.Orders[0].ID
}
