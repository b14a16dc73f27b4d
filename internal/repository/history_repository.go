package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// HistoryRepository writes the append-only status audit trail. Rows are never
// updated or deleted.
type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(db *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) Append(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, comment string) error {
	query := `
		INSERT INTO status_history (order_id, status, comment, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4)
	`

	_, err := r.db.ExecContext(ctx, query, orderID, status, comment, time.Now())
	if err != nil {
		return fmt.Errorf("status history append error: %w", err)
	}

	return nil
}

func (r *HistoryRepository) ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error) {
	query := `
		SELECT id, order_id, status, COALESCE(comment, ''), created_at
		FROM status_history
		WHERE order_id = $1
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("status history query error: %w", err)
	}
	defer rows.Close()

	var entries []domain.StatusHistoryEntry
	for rows.Next() {
		var e domain.StatusHistoryEntry
		if err := rows.Scan(&e.ID, &e.OrderID, &e.Status, &e.Comment, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("status history scan error: %w", err)
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("status history rows error: %w", err)
	}

	return entries, nil
}
