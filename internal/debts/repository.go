package debts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mirathi/mirathi/internal/estate/debt"
	"github.com/mirathi/mirathi/internal/platform/httpx"
)

// Repository provides PostgreSQL backed persistence for debt claims. Scalar
// columns carry the fields settlement queries filter on; the full aggregate
// is stored as a JSONB document.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a new claim.
func (r *Repository) Create(ctx context.Context, d *debt.Debt) error {
	doc, err := json.Marshal(d.Record())
	if err != nil {
		return fmt.Errorf("debts: marshal record: %w", err)
	}

	const query = `
		INSERT INTO estate_debts (id, estate_id, tier, status, incurred_at, version, doc, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err = r.pool.Exec(ctx, query,
		d.ID, d.EstateID, d.Tier.Order(), string(d.Status), d.IncurredAt, d.Version, doc)
	if err != nil {
		return fmt.Errorf("debts: insert: %w", err)
	}
	return nil
}

// Get retrieves a claim by ID.
func (r *Repository) Get(ctx context.Context, id uuid.UUID) (*debt.Debt, error) {
	const query = `SELECT doc FROM estate_debts WHERE id = $1`

	var doc []byte
	if err := r.pool.QueryRow(ctx, query, id).Scan(&doc); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("debts: claim %s: %w", id, httpx.ErrNotFound)
		}
		return nil, fmt.Errorf("debts: get: %w", err)
	}
	return unmarshalDebt(doc)
}

// Update persists the aggregate if the stored version still matches the one
// it was loaded at.
func (r *Repository) Update(ctx context.Context, d *debt.Debt, loadedVersion int64) error {
	doc, err := json.Marshal(d.Record())
	if err != nil {
		return fmt.Errorf("debts: marshal record: %w", err)
	}

	const query = `
		UPDATE estate_debts
		SET tier = $2, status = $3, version = $4, doc = $5, updated_at = NOW()
		WHERE id = $1 AND version = $6`

	tag, err := r.pool.Exec(ctx, query,
		d.ID, d.Tier.Order(), string(d.Status), d.Version, doc, loadedVersion)
	if err != nil {
		return fmt.Errorf("debts: update: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("debts: claim %s at version %d: %w", d.ID, loadedVersion, httpx.ErrVersionConflict)
	}
	return nil
}

// ListByEstate returns every claim lodged against an estate, oldest first.
func (r *Repository) ListByEstate(ctx context.Context, estateID uuid.UUID) ([]*debt.Debt, error) {
	const query = `
		SELECT doc FROM estate_debts
		WHERE estate_id = $1
		ORDER BY tier, incurred_at, id`

	rows, err := r.pool.Query(ctx, query, estateID)
	if err != nil {
		return nil, fmt.Errorf("debts: list by estate: %w", err)
	}
	defer rows.Close()
	return collectDebts(rows)
}

// ListPayable returns claims still open to payment across all estates. The
// nightly limitation sweep walks this set.
func (r *Repository) ListPayable(ctx context.Context) ([]*debt.Debt, error) {
	const query = `
		SELECT doc FROM estate_debts
		WHERE status IN ($1, $2)
		ORDER BY incurred_at, id`

	rows, err := r.pool.Query(ctx, query,
		string(debt.StatusOutstanding), string(debt.StatusPartiallyPaid))
	if err != nil {
		return nil, fmt.Errorf("debts: list payable: %w", err)
	}
	defer rows.Close()
	return collectDebts(rows)
}

func collectDebts(rows pgx.Rows) ([]*debt.Debt, error) {
	var out []*debt.Debt
	for rows.Next() {
		var doc []byte
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("debts: scan: %w", err)
		}
		d, err := unmarshalDebt(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("debts: rows: %w", err)
	}
	return out, nil
}

func unmarshalDebt(doc []byte) (*debt.Debt, error) {
	var rec debt.Record
	if err := json.Unmarshal(doc, &rec); err != nil {
		return nil, fmt.Errorf("debts: unmarshal record: %w", err)
	}
	return debt.FromRecord(rec), nil
}
