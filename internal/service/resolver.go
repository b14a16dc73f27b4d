package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// Resolver turns a provider-supplied order reference into the internal order
// id. PayPal carries the internal uuid directly in its custom id field; the
// card gateway can only carry a short numeric order number, so that path goes
// through the persisted mapping written at payment initiation.
type Resolver struct {
	references ReferenceStore
}

func NewResolver(references ReferenceStore) *Resolver {
	return &Resolver{references: references}
}

func (r *Resolver) Resolve(ctx context.Context, provider domain.Provider, reference string) (uuid.UUID, error) {
	switch provider {
	case domain.ProviderGateway:
		return r.references.Resolve(ctx, provider, reference)
	default:
		orderID, err := uuid.Parse(reference)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %q is not an order id", domain.ErrReferenceNotFound, reference)
		}
		return orderID, nil
	}
}
