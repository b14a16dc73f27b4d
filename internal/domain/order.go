package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending       OrderStatus = "pending"
	OrderStatusProcessing    OrderStatus = "processing"
	OrderStatusCompleted     OrderStatus = "completed"
	OrderStatusPaymentFailed OrderStatus = "payment_failed"
	OrderStatusShipped       OrderStatus = "shipped"
	OrderStatusCancelled     OrderStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentMethodPayPal PaymentMethod = "paypal"
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodBizum  PaymentMethod = "bizum"
)

type Order struct {
	ID               uuid.UUID     `json:"id"`
	UserID           uuid.UUID     `json:"user_id"`
	TotalCents       int64         `json:"total_cents"`
	Currency         string        `json:"currency"`
	Status           OrderStatus   `json:"status"`
	PaymentMethod    PaymentMethod `json:"payment_method"`
	PaymentReference string        `json:"payment_reference,omitempty"`
	DiscountCode     string        `json:"discount_code,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	PaidAt           *time.Time    `json:"paid_at,omitempty"`
}

// statusRank orders statuses along the success path. A payment event may only
// move an order to a strictly higher rank; equal or lower ranks are stale.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:       0,
	OrderStatusPaymentFailed: 1,
	OrderStatusProcessing:    2,
	OrderStatusCompleted:     3,
	OrderStatusShipped:       4,
	OrderStatusCancelled:     5,
}

// IsPaid reports whether the order has been confirmed paid at least once.
func (o *Order) IsPaid() bool {
	return o.PaidAt != nil
}

// CanTransition reports whether moving the order to target is a forward move
// on the success path. Successful-payment events must never downgrade an
// order already past pending, and failure events must never overwrite a paid
// order (out-of-order and duplicate provider deliveries hit both cases).
func (o *Order) CanTransition(target OrderStatus) bool {
	switch o.Status {
	case OrderStatusCancelled, OrderStatusShipped:
		return false
	case OrderStatusPaymentFailed:
		// A later genuine success is a new payment attempt against the
		// same order; a second failure adds nothing.
		return statusRank[target] > statusRank[OrderStatusPaymentFailed]
	}

	if target == OrderStatusPaymentFailed {
		// Failure never overwrites an order already confirmed paid.
		return o.Status == OrderStatusPending && !o.IsPaid()
	}

	return statusRank[target] > statusRank[o.Status]
}
