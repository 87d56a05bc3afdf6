package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Simplici0/o.quotes/internal/quotation"
)

// Postgres stores quotations through a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres wraps a pool connected to a migrated database.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Save upserts the header and totals snapshot and batches the items in one
// transaction. A new quotation whose number is taken gets a fresh one.
func (s *Postgres) Save(ctx context.Context, q *quotation.Quotation) error {
	if err := q.Validate(); err != nil {
		return err
	}
	totalsJSON, err := encodeTotals(q.Totals())
	if err != nil {
		return err
	}
	return saveRenumbering(q, func() error { return s.save(ctx, q, totalsJSON) })
}

func (s *Postgres) save(ctx context.Context, q *quotation.Quotation, totalsJSON string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO quotations (
			id, number, title, customer_name, customer_email, customer_phone, notes,
			currency, status, clamp_taxable, service_charges, totals_json, created_at, updated_at
		) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14)
		ON CONFLICT (id) DO UPDATE SET
			title = EXCLUDED.title,
			customer_name = EXCLUDED.customer_name,
			customer_email = EXCLUDED.customer_email,
			customer_phone = EXCLUDED.customer_phone,
			notes = EXCLUDED.notes,
			currency = EXCLUDED.currency,
			status = EXCLUDED.status,
			clamp_taxable = EXCLUDED.clamp_taxable,
			service_charges = EXCLUDED.service_charges,
			totals_json = EXCLUDED.totals_json,
			updated_at = EXCLUDED.updated_at
	`,
		q.ID.String(), q.Number, q.Title, q.Customer.Name, q.Customer.Email, q.Customer.Phone, q.Notes,
		q.Currency, string(q.Status), q.Policy.ClampTaxable, q.ServiceCharges, totalsJSON,
		q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	)
	if isPostgresNumberConflict(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateNumber, q.Number)
	}
	if err != nil {
		return fmt.Errorf("upsert quotation: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM quotation_items WHERE quotation_id = $1::uuid`, q.ID.String()); err != nil {
		return fmt.Errorf("clear quotation items: %w", err)
	}

	rows := itemRows(q)
	if len(rows) > 0 {
		batch := &pgx.Batch{}
		for _, r := range rows {
			batch.Queue(`
				INSERT INTO quotation_items (
					quotation_id, position, description, unit, quantity, rate,
					discount, discount_type, tax, tax_type, amount
				) VALUES ($1::uuid, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			`, q.ID.String(), r.Position, r.Description, r.Unit, r.Quantity, r.Rate,
				r.Discount, r.DiscountType, r.Tax, r.TaxType, r.Amount)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert quotation items: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save transaction: %w", err)
	}
	return nil
}

// Get loads a quotation with its items in position order.
func (s *Postgres) Get(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	var (
		header quotation.Quotation
		status string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT number, title, customer_name, customer_email, customer_phone, notes,
			currency, status, clamp_taxable, service_charges, created_at, updated_at
		FROM quotations
		WHERE id = $1::uuid
	`, id.String()).Scan(
		&header.Number, &header.Title, &header.Customer.Name, &header.Customer.Email,
		&header.Customer.Phone, &header.Notes, &header.Currency, &status, &header.Policy.ClampTaxable,
		&header.ServiceCharges, &header.CreatedAt, &header.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query quotation: %w", err)
	}
	header.ID = id
	header.Status = quotation.Status(status)
	header.CreatedAt = header.CreatedAt.UTC()
	header.UpdatedAt = header.UpdatedAt.UTC()

	rows, err := s.pool.Query(ctx, `
		SELECT position, description, unit, quantity, rate, discount, discount_type, tax, tax_type, amount
		FROM quotation_items
		WHERE quotation_id = $1::uuid
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
func (s *Postgres) List(ctx context.Context, f Filter) ([]Summary, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id::text, number, title, customer_name, currency, status, totals_json, created_at
		FROM quotations
		WHERE ($1 = '' OR title ILIKE $2 ESCAPE '\' OR notes ILIKE $2 ESCAPE '\' OR customer_name ILIKE $2 ESCAPE '\')
			AND ($3 = '' OR status = $3)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, f.Query, f.pattern(), string(f.Status), f.limit())
	if err != nil {
		return nil, fmt.Errorf("query quotations: %w", err)
	}
	defer rows.Close()

	summaries := make([]Summary, 0)
	for rows.Next() {
		var (
			sum           Summary
			rawID, status string
			totalsJSON    []byte
		)
		if err := rows.Scan(&rawID, &sum.Number, &sum.Title, &sum.CustomerName, &sum.Currency,
			&status, &totalsJSON, &sum.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan quotation summary: %w", err)
		}
		if sum.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse quotation id: %w", err)
		}
		sum.CreatedAt = sum.CreatedAt.UTC()
		sum.Status = quotation.Status(status)
		if sum.Totals, err = decodeTotals(totalsJSON); err != nil {
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
func (s *Postgres) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM quotations WHERE id = $1::uuid`, id.String())
	if err != nil {
		return fmt.Errorf("delete quotation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// The UNIQUE constraint on quotations.number gets the default name.
func isPostgresNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "quotations_number_key"
}

var _ Store = (*Postgres)(nil)
