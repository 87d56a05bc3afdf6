package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/Simplici0/o.quotes/internal/quotation"
)

// ExcelRenderer renders the quotation into a single-sheet workbook with
// numeric cells so totals can be re-checked in a spreadsheet.
type ExcelRenderer struct{}

func (ExcelRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}
func (ExcelRenderer) Extension() string { return "xlsx" }

var excelHeaders = []string{
	"#", "Description", "Unit", "Qty", "Rate", "Discount", "Discount Type",
	"Tax", "Tax Type", "Base", "Discount Amount", "Taxable Amount", "Tax Amount", "Amount",
}

const excelHeaderRow = 6

func (ExcelRenderer) Render(q *quotation.Quotation) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := q.Number
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	if sheet == "" {
		sheet = "Quotation"
	}
	if err := f.SetSheetName(f.GetSheetName(0), sheet); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	lastCol, err := excelize.ColumnNumberToName(len(excelHeaders))
	if err != nil {
		return nil, fmt.Errorf("resolve last column: %w", err)
	}

	titleStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 16}})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}, NumFmt: 4})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	set := func(cell string, v any) error {
		if s, ok := v.(string); ok {
			v = sanitizeExcelCell(s)
		}
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("set %s: %w", cell, err)
		}
		return nil
	}

	header := [][2]any{
		{"A1", q.Title},
		{"A2", "Ref: " + q.Number},
		{"A3", "Customer: " + customerLine(q.Customer)},
		{"A4", fmt.Sprintf("Date: %s   Status: %s   Currency: %s", q.CreatedAt.Format("2006-01-02"), q.Status, q.Currency)},
	}
	for _, h := range header {
		if err := set(h[0].(string), h[1]); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, "A1", "A1", titleStyle); err != nil {
		return nil, fmt.Errorf("style title: %w", err)
	}

	for i, h := range excelHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, excelHeaderRow)
		if err := set(cell, h); err != nil {
			return nil, err
		}
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", excelHeaderRow), fmt.Sprintf("%s%d", lastCol, excelHeaderRow), headerStyle); err != nil {
		return nil, fmt.Errorf("style headers: %w", err)
	}

	row := excelHeaderRow + 1
	for _, l := range lines(q) {
		li := l.Item.LineItem
		values := []any{
			l.Index, l.Item.Description, l.Item.Unit, li.Quantity, li.Rate, li.Discount, string(li.DiscountType),
			li.Tax, string(li.TaxType), l.Calc.Base, l.Calc.DiscountAmount, l.Calc.TaxableAmount, l.Calc.TaxAmount, l.Calc.Amount,
		}
		for i, v := range values {
			cell, _ := excelize.CoordinatesToCellName(i+1, row)
			if err := set(cell, v); err != nil {
				return nil, err
			}
		}
		if err := f.SetCellStyle(sheet, fmt.Sprintf("J%d", row), fmt.Sprintf("%s%d", lastCol, row), moneyStyle); err != nil {
			return nil, fmt.Errorf("style item row: %w", err)
		}
		row++
	}

	t := q.Totals()
	row++
	summary := []struct {
		label string
		value float64
	}{
		{"Subtotal", t.Subtotal},
		{"Total Discount", t.TotalDiscount},
		{"Total Tax", t.TotalTax},
		{"Service Charges", t.ServiceCharges},
		{"Grand Total", t.GrandTotal},
	}
	for _, s := range summary {
		labelCell := fmt.Sprintf("M%d", row)
		valueCell := fmt.Sprintf("%s%d", lastCol, row)
		if err := set(labelCell, s.label); err != nil {
			return nil, err
		}
		if err := set(valueCell, s.value); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, labelCell, valueCell, totalStyle); err != nil {
			return nil, fmt.Errorf("style summary: %w", err)
		}
		row++
	}

	if err := f.SetColWidth(sheet, "B", "B", 40); err != nil {
		return nil, fmt.Errorf("set description width: %w", err)
	}
	if err := f.SetColWidth(sheet, "J", lastCol, 16); err != nil {
		return nil, fmt.Errorf("set amount widths: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell stops user text from being interpreted as a formula.
func sanitizeExcelCell(s string) string {
	if s == "" {
		return s
	}
	if strings.ContainsRune("=+-@\t\r", rune(s[0])) {
		return "'" + s
	}
	return s
}
