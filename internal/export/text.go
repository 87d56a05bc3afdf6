package export

import (
	"fmt"
	"strings"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
)

// TextRenderer renders a plain-text summary suitable for email bodies or a
// terminal.
type TextRenderer struct{}

func (TextRenderer) ContentType() string { return "text/plain; charset=utf-8" }
func (TextRenderer) Extension() string   { return "txt" }

func (TextRenderer) Render(q *quotation.Quotation) ([]byte, error) {
	return []byte(Text(q)), nil
}

// Text renders the quotation as plain text.
func Text(q *quotation.Quotation) string {
	money := func(v float64) string { return pricing.FormatMoney(v, q.Currency) }

	var b strings.Builder
	fmt.Fprintf(&b, "Quotation %s\n", q.Number)
	if q.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", q.Title)
	}
	if c := customerLine(q.Customer); c != "" {
		fmt.Fprintf(&b, "Customer: %s\n", c)
	}
	fmt.Fprintf(&b, "Status: %s\n", q.Status)
	fmt.Fprintf(&b, "Date: %s\n", q.CreatedAt.Format("2006-01-02"))

	b.WriteString("\nItems:\n")
	ls := lines(q)
	if len(ls) == 0 {
		b.WriteString("  (none)\n")
	}
	for _, l := range ls {
		li := l.Item.LineItem
		unit := ""
		if l.Item.Unit != "" {
			unit = " " + l.Item.Unit
		}
		fmt.Fprintf(&b, "%2d. %s\n", l.Index, l.Item.Description)
		fmt.Fprintf(&b, "    %s%s x %s = %s\n", formatQty(li.Quantity), unit, money(li.Rate), money(l.Calc.Base))
		fmt.Fprintf(&b, "    Discount (%s): %s\n", adjustmentLabel(li.Discount, li.DiscountType), money(-l.Calc.DiscountAmount))
		fmt.Fprintf(&b, "    Tax (%s): %s\n", adjustmentLabel(li.Tax, li.TaxType), money(l.Calc.TaxAmount))
		fmt.Fprintf(&b, "    Amount: %s\n", money(l.Calc.Amount))
	}

	t := q.Totals()
	b.WriteString("\nTotals:\n")
	fmt.Fprintf(&b, "  Subtotal: %s\n", money(t.Subtotal))
	fmt.Fprintf(&b, "  Discount: %s\n", money(-t.TotalDiscount))
	fmt.Fprintf(&b, "  Tax: %s\n", money(t.TotalTax))
	fmt.Fprintf(&b, "  Service charges: %s\n", money(t.ServiceCharges))
	fmt.Fprintf(&b, "Grand total: %s\n", money(t.GrandTotal))

	if q.Notes != "" {
		fmt.Fprintf(&b, "\nNotes: %s\n", q.Notes)
	}
	return b.String()
}

func customerLine(c quotation.Customer) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{c.Name, c.Email, c.Phone} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}
