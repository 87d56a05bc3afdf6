package seed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
	"github.com/Simplici0/o.quotes/internal/store"
)

// Stats contains seed operation counters.
type Stats struct {
	Inserts  int
	Existing int
}

type reference struct {
	id             uuid.UUID
	number         string
	title          string
	customer       quotation.Customer
	notes          string
	serviceCharges float64
	policy         pricing.Policy
	items          []quotation.Item
}

// The ids are fixed so repeated runs find what earlier runs wrote. Numbers
// are fixed too; the numbering scheme does not keep distinct ids distinct.
var references = []reference{
	{
		id:             uuid.MustParse("5f0c1a7e-2b1d-4a57-9a53-0d3c6f1a0001"),
		number:         "QT-DEMO-0001",
		title:          "Reference quotation",
		customer:       quotation.Customer{Name: "Demo Customer", Email: "demo@example.com"},
		notes:          "Seeded for local development.",
		serviceCharges: 20,
		items: []quotation.Item{
			{
				Description: "Consulting hours",
				Unit:        "h",
				LineItem: pricing.LineItem{
					Quantity: 10, Rate: 100,
					Discount: 10, DiscountType: pricing.Percentage,
					Tax: 5, TaxType: pricing.Percentage,
				},
			},
			{
				Description: "Setup fee",
				LineItem: pricing.LineItem{
					Quantity: 2, Rate: 50,
					Discount: 5, DiscountType: pricing.Fixed,
					Tax: 2, TaxType: pricing.Fixed,
				},
			},
		},
	},
	{
		id:       uuid.MustParse("6a3d2b8f-4c2e-4b68-8b64-1e4d7a2b0002"),
		number:   "QT-DEMO-0002",
		title:    "Oversized discount",
		customer: quotation.Customer{Name: "Demo Customer"},
		notes:    "Discount exceeds the line base; taxable amount is clamped at zero.",
		policy:   pricing.Policy{ClampTaxable: true},
		items: []quotation.Item{
			{
				Description: "Goodwill credit",
				LineItem: pricing.LineItem{
					Quantity: 1, Rate: 50,
					Discount: 80, DiscountType: pricing.Fixed,
					Tax: 10, TaxType: pricing.Percentage,
				},
			},
		},
	},
}

// Run writes the reference quotations in an idempotent way. Quotations that
// already exist are left untouched.
func Run(ctx context.Context, s store.Store, currency string, now time.Time) (Stats, error) {
	stats := Stats{}

	for _, ref := range references {
		_, err := s.Get(ctx, ref.id)
		if err == nil {
			stats.Existing++
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return stats, fmt.Errorf("check seed quotation %q: %w", ref.title, err)
		}

		q := quotation.New(ref.title, currency, ref.policy, now)
		q.ID = ref.id
		q.Number = ref.number
		q.Customer = ref.customer
		q.Notes = ref.notes
		if err := q.ReplaceItems(ref.items); err != nil {
			return stats, fmt.Errorf("build seed quotation %q: %w", ref.title, err)
		}
		if err := q.SetServiceCharges(ref.serviceCharges); err != nil {
			return stats, fmt.Errorf("build seed quotation %q: %w", ref.title, err)
		}
		if err := s.Save(ctx, q); err != nil {
			return stats, fmt.Errorf("insert seed quotation %q: %w", ref.title, err)
		}
		stats.Inserts++
	}

	return stats, nil
}
