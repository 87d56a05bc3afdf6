package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
)

// Renderer turns a quotation into a downloadable document.
type Renderer interface {
	Render(q *quotation.Quotation) ([]byte, error)
	ContentType() string
	Extension() string
}

// ForFormat returns the renderer for "txt", "pdf" or "xlsx".
func ForFormat(format string) (Renderer, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "txt", "text":
		return TextRenderer{}, nil
	case "pdf":
		return PDFRenderer{}, nil
	case "xlsx", "excel":
		return ExcelRenderer{}, nil
	}
	return nil, fmt.Errorf("unsupported export format %q", format)
}

// Filename is the suggested download name, e.g. QT-20261014-1A2B3C.pdf.
func Filename(q *quotation.Quotation, r Renderer) string {
	return q.Number + "." + r.Extension()
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func adjustmentLabel(value float64, kind pricing.AdjustmentType) string {
	if kind == pricing.Percentage {
		return formatQty(value) + "%"
	}
	return "fixed"
}

// line is the presentation view of one item used by every renderer.
type line struct {
	Index int
	Item  quotation.Item
	Calc  pricing.Breakdown
}

func lines(q *quotation.Quotation) []line {
	items := q.Items()
	out := make([]line, len(items))
	for i, it := range items {
		out[i] = line{Index: i + 1, Item: it, Calc: q.Policy.LineItem(it.LineItem)}
	}
	return out
}
