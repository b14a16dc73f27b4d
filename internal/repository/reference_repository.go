package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// ReferenceRepository persists the mapping between the short numeric order
// number handed to the gateway and the internal order id. The mapping is
// written exactly once, at payment initiation, and is read-only afterwards:
// callback resolution is a single deterministic lookup.
type ReferenceRepository struct {
	db *sql.DB
}

func NewReferenceRepository(db *sql.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) CreateMapping(ctx context.Context, provider domain.Provider, providerOrderNumber string, orderID uuid.UUID) error {
	query := `
		INSERT INTO order_references (provider, provider_order_number, order_id, created_at)
		VALUES ($1, $2, $3, $4)
	`

	_, err := r.db.ExecContext(ctx, query, provider, providerOrderNumber, orderID, time.Now())
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return fmt.Errorf("provider order number already mapped: %s", providerOrderNumber)
		}
		return fmt.Errorf("reference mapping creation error: %w", err)
	}

	return nil
}

func (r *ReferenceRepository) Resolve(ctx context.Context, provider domain.Provider, providerOrderNumber string) (uuid.UUID, error) {
	query := `
		SELECT order_id
		FROM order_references
		WHERE provider = $1 AND provider_order_number = $2
	`

	var orderID uuid.UUID
	err := r.db.QueryRowContext(ctx, query, provider, providerOrderNumber).Scan(&orderID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, domain.ErrReferenceNotFound
		}
		return uuid.Nil, fmt.Errorf("reference lookup error: %w", err)
	}

	return orderID, nil
}
