package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Simplici0/o.quotes/internal/pricing"
	"github.com/Simplici0/o.quotes/internal/quotation"
)

var (
	ErrNotFound        = errors.New("quotation not found")
	ErrDuplicateNumber = errors.New("quotation number already in use")
)

// maxNumberAttempts bounds how often Save renumbers a new quotation whose
// number collides with an existing one.
const maxNumberAttempts = 3

// Store persists quotations. Save is the only write path for headers and
// items; nothing is stored while a quotation is being edited.
type Store interface {
	Save(ctx context.Context, q *quotation.Quotation) error
	Get(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error)
	List(ctx context.Context, f Filter) ([]Summary, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Filter narrows List. Query matches title, notes and customer name.
type Filter struct {
	Query  string
	Status quotation.Status
	Limit  int
}

// Summary is a list row. Totals come from the snapshot written at save time.
type Summary struct {
	ID           uuid.UUID        `json:"id"`
	Number       string           `json:"number"`
	Title        string           `json:"title"`
	CustomerName string           `json:"customer_name"`
	Currency     string           `json:"currency"`
	Status       quotation.Status `json:"status"`
	Totals       pricing.Totals   `json:"totals"`
	CreatedAt    time.Time        `json:"created_at"`
}

const defaultListLimit = 100

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > 500 {
		return defaultListLimit
	}
	return f.Limit
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// pattern is the LIKE operand for Query with wildcards escaped; queries use
// ESCAPE '\'.
func (f Filter) pattern() string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(f.Query)) + "%"
}

// itemRow is the persisted shape of one item.
type itemRow struct {
	Position     int
	Description  string
	Unit         string
	Quantity     float64
	Rate         float64
	Discount     float64
	DiscountType string
	Tax          float64
	TaxType      string
	Amount       float64
}

func itemRows(q *quotation.Quotation) []itemRow {
	items := q.Items()
	rows := make([]itemRow, len(items))
	for i, it := range items {
		rows[i] = itemRow{
			Position:     i,
			Description:  it.Description,
			Unit:         it.Unit,
			Quantity:     it.LineItem.Quantity,
			Rate:         it.LineItem.Rate,
			Discount:     it.LineItem.Discount,
			DiscountType: string(it.LineItem.DiscountType),
			Tax:          it.LineItem.Tax,
			TaxType:      string(it.LineItem.TaxType),
			Amount:       it.Amount,
		}
	}
	return rows
}

func (r itemRow) item() quotation.Item {
	return quotation.Item{
		Description: r.Description,
		Unit:        r.Unit,
		LineItem: pricing.LineItem{
			Quantity:     r.Quantity,
			Rate:         r.Rate,
			Discount:     r.Discount,
			DiscountType: pricing.AdjustmentType(r.DiscountType),
			Tax:          r.Tax,
			TaxType:      pricing.AdjustmentType(r.TaxType),
		},
		Amount: r.Amount,
	}
}

func encodeTotals(t pricing.Totals) (string, error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode totals snapshot: %w", err)
	}
	return string(raw), nil
}

func decodeTotals(raw []byte) (pricing.Totals, error) {
	var t pricing.Totals
	if err := json.Unmarshal(raw, &t); err != nil {
		return pricing.Totals{}, fmt.Errorf("decode totals snapshot: %w", err)
	}
	return t, nil
}

// saveRenumbering runs save and, while the quotation number is taken, gives
// the quotation a fresh number and tries again.
func saveRenumbering(q *quotation.Quotation, save func() error) error {
	for attempt := 1; ; attempt++ {
		err := save()
		if !errors.Is(err, ErrDuplicateNumber) || attempt == maxNumberAttempts {
			return err
		}
		q.Renumber()
	}
}
