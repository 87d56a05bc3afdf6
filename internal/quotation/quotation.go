package quotation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"github.com/Simplici0/o.quotes/internal/pricing"
)

var (
	ErrItemIndex         = errors.New("item index out of range")
	ErrNotEditable       = errors.New("quotation is not editable")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Status tracks where a quotation is in the sales flow.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusDraft:    {StatusSent},
	StatusSent:     {StatusAccepted, StatusRejected, StatusDraft},
	StatusRejected: {StatusDraft},
}

// ParseStatus validates a status string.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected:
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q", raw)
}

// CanTransition reports whether from -> to is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Customer is who the quotation is addressed to.
type Customer struct {
	Name  string `json:"name" yaml:"name"`
	Email string `json:"email,omitempty" yaml:"email,omitempty"`
	Phone string `json:"phone,omitempty" yaml:"phone,omitempty"`
}

// Item is one quotation entry. Amount is derived and rewritten on every
// recompute.
type Item struct {
	Description string           `json:"description" yaml:"description"`
	Unit        string           `json:"unit,omitempty" yaml:"unit,omitempty"`
	LineItem    pricing.LineItem `json:"line_item" yaml:"line_item"`
	Amount      float64          `json:"amount" yaml:"-"`
}

// Quotation is the editable aggregate. Its totals are always derived from
// Items and ServiceCharges.
type Quotation struct {
	ID             uuid.UUID
	Number         string
	Title          string
	Customer       Customer
	Notes          string
	Currency       string
	Status         Status
	Policy         pricing.Policy
	ServiceCharges float64
	CreatedAt      time.Time
	UpdatedAt      time.Time

	items  []Item
	totals pricing.Totals
}

// New creates an empty draft.
func New(title, currency string, policy pricing.Policy, now time.Time) *Quotation {
	id := uuid.New()
	q := &Quotation{
		ID:        id,
		Number:    NewNumber(id, now),
		Title:     strings.TrimSpace(title),
		Currency:  strings.ToUpper(strings.TrimSpace(currency)),
		Status:    StatusDraft,
		Policy:    policy,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}
	q.recompute()
	return q
}

// Restore rebuilds a quotation from persisted state and recomputes totals.
// Stored items are trusted; validation happens on the way in.
func Restore(q Quotation, items []Item) *Quotation {
	out := q
	out.items = append([]Item(nil), items...)
	out.recompute()
	return &out
}

// NewNumber builds a human reference such as QT-20261014-1A2B3C.
func NewNumber(id uuid.UUID, now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:6])
	return fmt.Sprintf("QT-%s-%s", now.UTC().Format("20060102"), suffix)
}

// Renumber gives the quotation a fresh reference with a new random suffix,
// keeping its date. It is used when the current number is already taken.
func (q *Quotation) Renumber() {
	q.Number = NewNumber(uuid.New(), q.CreatedAt)
}

// Items returns a copy of the item list.
func (q *Quotation) Items() []Item {
	return append([]Item(nil), q.items...)
}

// Totals returns the totals derived by the last recompute.
func (q *Quotation) Totals() pricing.Totals { return q.totals }

// Breakdown returns the full calculation of the item at index.
func (q *Quotation) Breakdown(index int) (pricing.Breakdown, error) {
	if index < 0 || index >= len(q.items) {
		return pricing.Breakdown{}, ErrItemIndex
	}
	return q.Policy.LineItem(q.items[index].LineItem), nil
}

// AddItem appends a validated item to a draft.
func (q *Quotation) AddItem(item Item) error {
	if err := q.editable(); err != nil {
		return err
	}
	if err := validateItem(item); err != nil {
		return err
	}
	q.items = append(q.items, item)
	q.recompute()
	return nil
}

// UpdateItem replaces the item at index on a draft.
func (q *Quotation) UpdateItem(index int, item Item) error {
	if err := q.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(q.items) {
		return ErrItemIndex
	}
	if err := validateItem(item); err != nil {
		return err
	}
	q.items[index] = item
	q.recompute()
	return nil
}

// RemoveItem deletes the item at index from a draft.
func (q *Quotation) RemoveItem(index int) error {
	if err := q.editable(); err != nil {
		return err
	}
	if index < 0 || index >= len(q.items) {
		return ErrItemIndex
	}
	q.items = append(q.items[:index], q.items[index+1:]...)
	q.recompute()
	return nil
}

// ReplaceItems swaps the whole item list. Nothing changes if any item is
// invalid.
func (q *Quotation) ReplaceItems(items []Item) error {
	if err := q.editable(); err != nil {
		return err
	}
	for i, item := range items {
		if err := validateItem(item); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	q.items = append([]Item(nil), items...)
	q.recompute()
	return nil
}

// SetServiceCharges sets the flat charge added once to the grand total.
func (q *Quotation) SetServiceCharges(v float64) error {
	if err := q.editable(); err != nil {
		return err
	}
	if err := pricing.ValidateServiceCharges(v); err != nil {
		return validation.Errors{"service_charges": err}
	}
	q.ServiceCharges = v
	q.recompute()
	return nil
}

// Transition moves the quotation to a new status.
func (q *Quotation) Transition(to Status, now time.Time) error {
	if !CanTransition(q.Status, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, q.Status, to)
	}
	if to == StatusSent {
		if err := q.Validate(); err != nil {
			return err
		}
	}
	q.Status = to
	q.UpdatedAt = now.UTC()
	return nil
}

// Validate checks the quotation is complete enough to be saved.
func (q *Quotation) Validate() error {
	errs := validation.Errors{}
	if q.Title == "" {
		errs["title"] = errors.New("cannot be blank")
	}
	if len(q.Currency) != 3 {
		errs["currency"] = errors.New("must be a 3-letter code")
	}
	if err := pricing.ValidateServiceCharges(q.ServiceCharges); err != nil {
		errs["service_charges"] = err
	}
	for i, item := range q.items {
		if err := validateItem(item); err != nil {
			errs[fmt.Sprintf("items.%d", i)] = err
		}
	}
	if err := q.totals.Validate(); err != nil {
		errs["totals"] = err
	}
	return errs.Filter()
}

func (q *Quotation) editable() error {
	if q.Status != StatusDraft {
		return fmt.Errorf("%w: status is %s", ErrNotEditable, q.Status)
	}
	return nil
}

func (q *Quotation) recompute() {
	lines := make([]pricing.LineItem, len(q.items))
	for i := range q.items {
		lines[i] = q.items[i].LineItem
		q.items[i].Amount = q.Policy.LineItem(lines[i]).Amount
	}
	q.totals = q.Policy.Totals(lines, q.ServiceCharges)
}

func validateItem(item Item) error {
	if strings.TrimSpace(item.Description) == "" {
		return validation.Errors{"description": errors.New("cannot be blank")}
	}
	return item.LineItem.Validate()
}
