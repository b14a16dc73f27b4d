package gateway

import (
	"context"
	"fmt"
)

// MockPayPalClient serves handler and orchestrator tests without network
// access. Orders are keyed by the provider order token.
type MockPayPalClient struct {
	Orders map[string]*ProviderOrder
	Err    error
}

func NewMockPayPalClient() *MockPayPalClient {
	return &MockPayPalClient{Orders: make(map[string]*ProviderOrder)}
}

func (m *MockPayPalClient) GetOrder(_ context.Context, orderToken string) (*ProviderOrder, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	order, ok := m.Orders[orderToken]
	if !ok {
		return nil, fmt.Errorf("paypal order lookup failed: status 404")
	}

	return order, nil
}
