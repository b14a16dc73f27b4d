package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// OrderRepository reads and transitions orders. Rows are created by the
// storefront checkout; this service never inserts or deletes them.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	query := `
		SELECT id, user_id, total_cents, currency, status,
			   payment_method, COALESCE(payment_reference, ''), COALESCE(discount_code, ''),
			   created_at, updated_at, paid_at
		FROM orders
		WHERE id = $1
	`

	order := &domain.Order{}
	var paidAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID,
		&order.UserID,
		&order.TotalCents,
		&order.Currency,
		&order.Status,
		&order.PaymentMethod,
		&order.PaymentReference,
		&order.DiscountCode,
		&order.CreatedAt,
		&order.UpdatedAt,
		&paidAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, fmt.Errorf("order receive error: %w", err)
	}

	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	return order, nil
}

// MarkPaid moves the order to completed and records the provider transaction.
// The WHERE clause is the compare-and-swap guard: concurrent or out-of-order
// deliveries racing this update lose on the status predicate instead of
// overwriting a more advanced state. paid_at is only ever set once.
func (r *OrderRepository) MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2,
			payment_reference = $3,
			paid_at = COALESCE(paid_at, NOW()),
			updated_at = NOW()
		WHERE id = $1 AND status IN ($4, $5)
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		orderID,
		domain.OrderStatusCompleted,
		transactionID,
		domain.OrderStatusPending,
		domain.OrderStatusPaymentFailed,
	)

	if err != nil {
		return false, fmt.Errorf("order paid update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order paid update error: %w", err)
	}

	return rowsAffected > 0, nil
}

// MarkFailed records a failed payment attempt. Guarded so a late failure
// notification can never downgrade an order that was confirmed paid.
func (r *OrderRepository) MarkFailed(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error) {
	query := `
		UPDATE orders
		SET status = $2,
			payment_reference = $3,
			updated_at = NOW()
		WHERE id = $1 AND status = $4 AND paid_at IS NULL
	`

	result, err := r.db.ExecContext(
		ctx,
		query,
		orderID,
		domain.OrderStatusPaymentFailed,
		transactionID,
		domain.OrderStatusPending,
	)

	if err != nil {
		return false, fmt.Errorf("order failed update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("order failed update error: %w", err)
	}

	return rowsAffected > 0, nil
}

func (r *OrderRepository) SetPaymentMethod(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) error {
	query := `UPDATE orders SET payment_method = $2, updated_at = NOW() WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, orderID, method)
	if err != nil {
		return fmt.Errorf("payment method update error: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return domain.ErrOrderNotFound
	}

	return nil
}
