package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/Simplici0/o.quotes/internal/quotation"
)

// Fixed width so lexical order matches chronological order.
const sqliteTimeLayout = "2006-01-02 15:04:05.000000000"

// SQLite stores quotations through database/sql.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps a migrated database handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Save upserts the header and totals snapshot and replaces the items in one
// transaction. A new quotation whose number is taken gets a fresh one.
func (s *SQLite) Save(ctx context.Context, q *quotation.Quotation) error {
	if err := q.Validate(); err != nil {
		return err
	}
	totalsJSON, err := encodeTotals(q.Totals())
	if err != nil {
		return err
	}
	return saveRenumbering(q, func() error { return s.save(ctx, q, totalsJSON) })
}

func (s *SQLite) save(ctx context.Context, q *quotation.Quotation, totalsJSON string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quotations (
			id, number, title, customer_name, customer_email, customer_phone, notes,
			currency, status, clamp_taxable, service_charges, totals_json, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			customer_name = excluded.customer_name,
			customer_email = excluded.customer_email,
			customer_phone = excluded.customer_phone,
			notes = excluded.notes,
			currency = excluded.currency,
			status = excluded.status,
			clamp_taxable = excluded.clamp_taxable,
			service_charges = excluded.service_charges,
			totals_json = excluded.totals_json,
			updated_at = excluded.updated_at
	`,
		q.ID.String(), q.Number, q.Title, q.Customer.Name, q.Customer.Email, q.Customer.Phone, q.Notes,
		q.Currency, string(q.Status), q.Policy.ClampTaxable, q.ServiceCharges, totalsJSON,
		formatSQLiteTime(q.CreatedAt), formatSQLiteTime(q.UpdatedAt),
	)
	if isSQLiteNumberConflict(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, q.Number)
	}
	if err != nil {
		return fmt.Errorf("upsert quotation: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM quotation_items WHERE quotation_id = ?`, q.ID.String()); err != nil {
		return fmt.Errorf("clear quotation items: %w", err)
	}
	for _, r := range itemRows(q) {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO quotation_items (
				quotation_id, position, description, unit, quantity, rate,
				discount, discount_type, tax, tax_type, amount
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, q.ID.String(), r.Position, r.Description, r.Unit, r.Quantity, r.Rate,
			r.Discount, r.DiscountType, r.Tax, r.TaxType, r.Amount)
		if err != nil {
			return fmt.Errorf("insert quotation item %d: %w", r.Position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

// Get loads a quotation with its items in position order.
func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	var (
		header               quotation.Quotation
		rawID, status        string
		createdAt, updatedAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, number, title, customer_name, customer_email, customer_phone, notes,
			currency, status, clamp_taxable, service_charges, created_at, updated_at
		FROM quotations
		WHERE id = ?
	`, id.String()).Scan(
		&rawID, &header.Number, &header.Title, &header.Customer.Name, &header.Customer.Email,
		&header.Customer.Phone, &header.Notes, &header.Currency, &status, &header.Policy.ClampTaxable,
		&header.ServiceCharges, &createdAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query quotation: %w", err)
	}

	if header.ID, err = uuid.Parse(rawID); err != nil {
		return nil, fmt.Errorf("parse quotation id: %w", err)
	}
	header.Status = quotation.Status(status)
	if header.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
		return nil, err
	}
	if header.UpdatedAt, err = parseSQLiteTime(updatedAt); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT position, description, unit, quantity, rate, discount, discount_type, tax, tax_type, amount
		FROM quotation_items
		WHERE quotation_id = ?
		ORDER BY position
	`, id.String())
	if err != nil {
		return nil, fmt.Errorf("query quotation items: %w", err)
	}
	defer rows.Close()

	var items []quotation.Item
	for rows.Next() {
		var r itemRow
		if err := rows.Scan(&r.Position, &r.Description, &r.Unit, &r.Quantity, &r.Rate,
			&r.Discount, &r.DiscountType, &r.Tax, &r.TaxType, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan quotation item: %w", err)
		}
		items = append(items, r.item())
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotation items: %w", err)
	}

	return quotation.Restore(header, items), nil
}

// List returns summaries newest first, reading totals from the snapshot.
func (s *SQLite) List(ctx context.Context, f Filter) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, number, title, customer_name, currency, status, totals_json, created_at
		FROM quotations
		WHERE (? = '' OR title LIKE ? ESCAPE '\' OR notes LIKE ? ESCAPE '\' OR customer_name LIKE ? ESCAPE '\')
			AND (? = '' OR status = ?)
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, f.Query, f.pattern(), f.pattern(), f.pattern(), string(f.Status), string(f.Status), f.limit())
	if err != nil {
		return nil, fmt.Errorf("query quotations: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			sum                       Summary
			rawID, status, totalsJSON string
			createdAt                 string
		)
		if err := rows.Scan(&rawID, &sum.Number, &sum.Title, &sum.CustomerName, &sum.Currency,
			&status, &totalsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scan quotation summary: %w", err)
		}
		if sum.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse quotation id: %w", err)
		}
		if sum.CreatedAt, err = parseSQLiteTime(createdAt); err != nil {
			return nil, err
		}
		sum.Status = quotation.Status(status)
		if sum.Totals, err = decodeTotals([]byte(totalsJSON)); err != nil {
			return nil, fmt.Errorf("quotation %s: %w", sum.Number, err)
		}
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quotations: %w", err)
	}
	return summaries, nil
}

// Delete removes a quotation; its items go with it.
func (s *SQLite) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM quotations WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func isSQLiteNumberConflict(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) &&
		se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE &&
		strings.Contains(se.Error(), "quotations.number")
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(sqliteTimeLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", raw, err)
	}
	return t, nil
}

var _ Store = (*SQLite)(nil)
