package calculation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Snapshot is one persisted calculation outcome.
type Snapshot struct {
	ID           uuid.UUID       `json:"id"`
	EstateID     uuid.UUID       `json:"estateId"`
	Kind         string          `json:"kind"`
	Result       json.RawMessage `json:"result"`
	CalculatedAt time.Time       `json:"calculatedAt"`
}

// Repository provides PostgreSQL backed persistence for calculation
// snapshots. Snapshots are append-only; the audit trail never updates rows.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const historyLimit = 50

// Save appends one snapshot.
func (r *Repository) Save(ctx context.Context, snap Snapshot) error {
	const query = `
		INSERT INTO calculation_snapshots (id, estate_id, kind, result, calculated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.pool.Exec(ctx, query,
		snap.ID, snap.EstateID, snap.Kind, []byte(snap.Result), snap.CalculatedAt)
	if err != nil {
		return fmt.Errorf("calculation: insert snapshot: %w", err)
	}
	return nil
}

// ListByEstate returns recent snapshots for an estate, newest first. An empty
// kind matches every calculation kind.
func (r *Repository) ListByEstate(ctx context.Context, estateID uuid.UUID, kind string) ([]Snapshot, error) {
	const query = `
		SELECT id, estate_id, kind, result, calculated_at
		FROM calculation_snapshots
		WHERE estate_id = $1 AND ($2 = '' OR kind = $2)
		ORDER BY calculated_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, estateID, kind, historyLimit)
	if err != nil {
		return nil, fmt.Errorf("calculation: list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		var snap Snapshot
		var result []byte
		if err := rows.Scan(&snap.ID, &snap.EstateID, &snap.Kind, &result, &snap.CalculatedAt); err != nil {
			return nil, fmt.Errorf("calculation: scan snapshot: %w", err)
		}
		snap.Result = json.RawMessage(result)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("calculation: rows: %w", err)
	}
	return out, nil
}
