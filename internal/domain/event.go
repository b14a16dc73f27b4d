package domain

import (
	"github.com/google/uuid"
)

type Provider string

const (
	ProviderPayPal  Provider = "paypal"
	ProviderGateway Provider = "gateway"
	ProviderClient  Provider = "client"
)

type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// PaymentEvent is the normalized form of a provider notification after the
// callback endpoint has verified it and resolved the order reference. The
// orchestrator consumes only this shape; provider wire formats never reach it.
type PaymentEvent struct {
	OrderID               uuid.UUID `json:"order_id"`
	Provider              Provider  `json:"provider"`
	ProviderTransactionID string    `json:"provider_transaction_id"`
	Outcome               Outcome   `json:"outcome"`
	RawPayload            []byte    `json:"-"`
}

type ResultStatus string

const (
	ResultApplied   ResultStatus = "applied"
	ResultDuplicate ResultStatus = "duplicate"
	ResultIgnored   ResultStatus = "ignored"
)

type ReconciliationResult struct {
	Status    ResultStatus `json:"status"`
	OrderID   uuid.UUID    `json:"order_id"`
	NewStatus OrderStatus  `json:"new_status,omitempty"`
	Reason    string       `json:"reason,omitempty"`
	FirstPaid bool         `json:"first_paid"`
}
