package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// Collaborator capability set of the reconciliation path. The orchestrator
// only sees these interfaces; the Postgres repositories and the RabbitMQ
// publisher satisfy them in production, fakes satisfy them in tests.

type OrderStore interface {
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error)
	MarkFailed(ctx context.Context, orderID uuid.UUID, transactionID string) (bool, error)
	SetPaymentMethod(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) error
}

type ReferenceStore interface {
	CreateMapping(ctx context.Context, provider domain.Provider, providerOrderNumber string, orderID uuid.UUID) error
	Resolve(ctx context.Context, provider domain.Provider, providerOrderNumber string) (uuid.UUID, error)
}

type HistoryStore interface {
	Append(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus, comment string) error
}

// HistoryReader serves the order history read model; the reconciler itself
// only ever appends.
type HistoryReader interface {
	ListByOrderID(ctx context.Context, orderID uuid.UUID) ([]domain.StatusHistoryEntry, error)
}

type DiscountStore interface {
	IncrementUsage(ctx context.Context, code string) error
}

type UserDirectory interface {
	EmailForUser(ctx context.Context, userID uuid.UUID) (string, error)
}

type Notifier interface {
	Notify(ctx context.Context, template, recipient string, orderID uuid.UUID, data map[string]interface{}) error
}
