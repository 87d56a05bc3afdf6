package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
)

// PDFRenderer renders an A4 quotation with the core Helvetica font.
type PDFRenderer struct{}

func (PDFRenderer) ContentType() string { return "application/pdf" }
func (PDFRenderer) Extension() string   { return "pdf" }

var pdfColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 8, "C"},
	{"Description", 62, "L"},
	{"Qty", 16, "R"},
	{"Rate", 26, "R"},
	{"Discount", 26, "R"},
	{"Tax", 24, "R"},
	{"Amount", 28, "R"},
}

func (PDFRenderer) Render(q *quotation.Quotation) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetTitle("Quotation "+q.Number, false)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	money := func(v float64) string { return pricing.FormatMoney(v, q.Currency) }

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr("Quotation "+q.Number))
	pdf.Ln(9)

	pdf.SetFont("Helvetica", "", 11)
	if q.Title != "" {
		pdf.Cell(0, 6, tr(q.Title))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s   Status: %s", q.CreatedAt.Format("2006-01-02"), q.Status))
	pdf.Ln(6)
	if c := customerLine(q.Customer); c != "" {
		pdf.Cell(0, 6, tr("Customer: "+c))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(51, 51, 51)
	pdf.SetTextColor(255, 255, 255)
	for _, col := range pdfColumns {
		pdf.CellFormat(col.width, 7, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(0, 0, 0)
	for _, l := range lines(q) {
		li := l.Item.LineItem
		cells := []string{
			fmt.Sprintf("%d", l.Index),
			trim(l.Item.Description, 40),
			formatQty(li.Quantity),
			money(li.Rate),
			money(l.Calc.DiscountAmount),
			money(l.Calc.TaxAmount),
			money(l.Calc.Amount),
		}
		for i, col := range pdfColumns {
			pdf.CellFormat(col.width, 6, tr(cells[i]), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	t := q.Totals()
	pdf.Ln(4)
	summary := []struct {
		label string
		value float64
	}{
		{"Subtotal", t.Subtotal},
		{"Discount", -t.TotalDiscount},
		{"Tax", t.TotalTax},
		{"Service charges", t.ServiceCharges},
	}
	for _, row := range summary {
		pdf.CellFormat(150, 6, row.label+":", "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, money(row.value), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(150, 8, "Grand total:", "", 0, "R", false, 0, "")
	pdf.CellFormat(40, 8, money(t.GrandTotal), "", 1, "R", false, 0, "")

	if q.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "", 9)
		pdf.MultiCell(0, 5, tr("Notes: "+q.Notes), "", "L", false)
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("build quotation pdf: %w", err)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write quotation pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func trim(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
