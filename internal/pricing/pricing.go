package pricing

// AdjustmentType selects how a discount or tax value is interpreted.
type AdjustmentType string

const (
	Percentage AdjustmentType = "percentage"
	Fixed      AdjustmentType = "fixed"
)

// LineItem holds the authoritative pricing inputs of one quotation entry.
type LineItem struct {
	Quantity     float64        `json:"quantity" yaml:"quantity"`
	Rate         float64        `json:"rate" yaml:"rate"`
	Discount     float64        `json:"discount" yaml:"discount"`
	DiscountType AdjustmentType `json:"discount_type" yaml:"discount_type"`
	Tax          float64        `json:"tax" yaml:"tax"`
	TaxType      AdjustmentType `json:"tax_type" yaml:"tax_type"`
}

// Policy controls the edge-case behavior of the calculator.
//
// With ClampTaxable unset a discount larger than the line base yields a
// negative taxable amount and tax is applied to that negative base. With it
// set the discount is capped so the taxable amount never drops below zero.
type Policy struct {
	ClampTaxable bool `json:"clamp_taxable" yaml:"clamp_taxable"`
}

// Breakdown contains every intermediate value of a line item calculation.
type Breakdown struct {
	Base           float64 `json:"base"`
	DiscountAmount float64 `json:"discount_amount"`
	TaxableAmount  float64 `json:"taxable_amount"`
	TaxAmount      float64 `json:"tax_amount"`
	Amount         float64 `json:"amount"`
}

// Totals contains the quotation-level roll-up.
type Totals struct {
	Subtotal       float64 `json:"subtotal"`
	TotalDiscount  float64 `json:"total_discount"`
	TotalTax       float64 `json:"total_tax"`
	ServiceCharges float64 `json:"service_charges"`
	GrandTotal     float64 `json:"grand_total"`
}

// LineItem computes the breakdown of a single item under the policy.
func (p Policy) LineItem(item LineItem) Breakdown {
	base := item.Quantity * item.Rate

	discountAmount := item.Discount
	if item.DiscountType == Percentage {
		discountAmount = base * (item.Discount / 100)
	}

	taxableAmount := base - discountAmount
	if p.ClampTaxable && taxableAmount < 0 {
		discountAmount = base
		taxableAmount = 0
	}

	taxAmount := item.Tax
	if item.TaxType == Percentage {
		taxAmount = taxableAmount * (item.Tax / 100)
	}

	return Breakdown{
		Base:           base,
		DiscountAmount: discountAmount,
		TaxableAmount:  taxableAmount,
		TaxAmount:      taxAmount,
		Amount:         taxableAmount + taxAmount,
	}
}

// Totals reduces the full item list into quotation totals. It is always a
// full recomputation; callers never patch a previous result.
func (p Policy) Totals(items []LineItem, serviceCharges float64) Totals {
	var totals Totals
	for _, item := range items {
		b := p.LineItem(item)
		totals.Subtotal += b.Base
		totals.TotalDiscount += b.DiscountAmount
		totals.TotalTax += b.TaxAmount
	}
	totals.ServiceCharges = serviceCharges
	totals.GrandTotal = totals.Subtotal - totals.TotalDiscount + totals.TotalTax + serviceCharges
	return totals
}

// ComputeLineItemAmount returns the item total using the default policy.
func ComputeLineItemAmount(item LineItem) float64 {
	return Policy{}.LineItem(item).Amount
}

// ComputeQuotationTotals aggregates items and flat service charges using the
// default policy.
func ComputeQuotationTotals(items []LineItem, serviceCharges float64) Totals {
	return Policy{}.Totals(items, serviceCharges)
}
