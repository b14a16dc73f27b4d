package repository

import (
	"context"
	"database/sql"
	"fmt"
)

type DiscountRepository struct {
	db *sql.DB
}

func NewDiscountRepository(db *sql.DB) *DiscountRepository {
	return &DiscountRepository{db: db}
}

// IncrementUsage bumps the usage counter in a single SQL statement. A
// read-modify-write from the application would lose updates when concurrent
// orders redeem the same code.
func (r *DiscountRepository) IncrementUsage(ctx context.Context, code string) error {
	query := `UPDATE discount_codes SET uses = uses + 1 WHERE code = $1`

	result, err := r.db.ExecContext(ctx, query, code)
	if err != nil {
		return fmt.Errorf("discount usage update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return fmt.Errorf("discount code not found: %s", code)
	}

	return nil
}
