package pricing

import (
	"errors"
	"math"
	"regexp"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var errNotFinite = errors.New("must be a finite number")

// Validate rejects inputs the calculator would happily turn into nonsense:
// non-finite or negative values, unknown adjustment types, percentages above
// 100 and values so large the breakdown overflows.
func (item LineItem) Validate() error {
	if err := item.validateInputs(); err != nil {
		return err
	}
	return Policy{}.LineItem(item).Validate()
}

func (item LineItem) validateInputs() error {
	return validation.ValidateStruct(&item,
		validation.Field(&item.Quantity, validation.By(finite), validation.Min(0.0)),
		validation.Field(&item.Rate, validation.By(finite), validation.Min(0.0)),
		validation.Field(&item.Discount,
			validation.By(finite),
			validation.Min(0.0),
			validation.When(item.DiscountType == Percentage, validation.Max(100.0)),
		),
		validation.Field(&item.DiscountType, validation.Required, validation.In(Percentage, Fixed)),
		validation.Field(&item.Tax,
			validation.By(finite),
			validation.Min(0.0),
			validation.When(item.TaxType == Percentage, validation.Max(100.0)),
		),
		validation.Field(&item.TaxType, validation.Required, validation.In(Percentage, Fixed)),
	)
}

// Validate reports derived values that overflowed to infinity.
func (b Breakdown) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.Base, validation.By(finite)),
		validation.Field(&b.DiscountAmount, validation.By(finite)),
		validation.Field(&b.TaxableAmount, validation.By(finite)),
		validation.Field(&b.TaxAmount, validation.By(finite)),
		validation.Field(&b.Amount, validation.By(finite)),
	)
}

// Validate reports totals that overflowed to infinity.
func (t Totals) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Subtotal, validation.By(finite)),
		validation.Field(&t.TotalDiscount, validation.By(finite)),
		validation.Field(&t.TotalTax, validation.By(finite)),
		validation.Field(&t.ServiceCharges, validation.By(finite)),
		validation.Field(&t.GrandTotal, validation.By(finite)),
	)
}

// WithDefaults fills empty adjustment types with Percentage, the default the
// quotation forms start from.
func (item LineItem) WithDefaults() LineItem {
	if item.DiscountType == "" {
		item.DiscountType = Percentage
	}
	if item.TaxType == "" {
		item.TaxType = Percentage
	}
	return item
}

// ValidateServiceCharges checks the flat quotation-level charge.
func ValidateServiceCharges(v float64) error {
	return validation.Validate(v, validation.By(finite), validation.Min(0.0))
}

func finite(value interface{}) error {
	v, ok := value.(float64)
	if !ok {
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return errNotFinite
	}
	return nil
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Coerce turns raw form input into a number the way the live editor does:
// the leading numeric part is parsed and anything unparseable becomes 0.
// Non-finite results also become 0.
func Coerce(raw string) float64 {
	m := numericPrefix.FindString(strings.TrimSpace(raw))
	if m == "" {
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
