package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
)

// ProviderOrder is the slice of a PayPal order this service cares about:
// whether the payment went through, which capture paid it, and the internal
// order id carried in the custom id field.
type ProviderOrder struct {
	ID        string
	Status    string
	CustomID  string
	CaptureID string
	Amount    string
	Currency  string
}

func (o *ProviderOrder) IsCompleted() bool {
	return o.Status == "COMPLETED" || o.Status == "APPROVED"
}

// PayPalClient verifies orders out-of-band. The redirect callback cannot be
// trusted on its own: anyone can load the return URL, so the order status is
// always re-read from the provider before reconciling.
type PayPalClient interface {
	GetOrder(ctx context.Context, orderToken string) (*ProviderOrder, error)
}

type PayPalConfig struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type payPalHTTPClient struct {
	http   *resty.Client
	config PayPalConfig

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

func NewPayPalClient(config PayPalConfig) PayPalClient {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}

	http := resty.New().
		SetBaseURL(config.BaseURL).
		SetTimeout(config.Timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	return &payPalHTTPClient{
		http:   http,
		config: config,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

type orderResponse struct {
	ID            string `json:"id"`
	Status        string `json:"status"`
	PurchaseUnits []struct {
		CustomID string `json:"custom_id"`
		Amount   struct {
			Value        string `json:"value"`
			CurrencyCode string `json:"currency_code"`
		} `json:"amount"`
		Payments struct {
			Captures []struct {
				ID     string `json:"id"`
				Status string `json:"status"`
			} `json:"captures"`
		} `json:"payments"`
	} `json:"purchase_units"`
}

func (c *payPalHTTPClient) GetOrder(ctx context.Context, orderToken string) (*ProviderOrder, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	var order orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetResult(&order).
		Get(fmt.Sprintf("/v2/checkout/orders/%s", orderToken))

	if err != nil {
		return nil, fmt.Errorf("paypal order lookup error: %w", err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("paypal order lookup failed: status %d", resp.StatusCode())
	}

	result := &ProviderOrder{
		ID:     order.ID,
		Status: order.Status,
	}

	if len(order.PurchaseUnits) > 0 {
		unit := order.PurchaseUnits[0]
		result.CustomID = unit.CustomID
		result.Amount = unit.Amount.Value
		result.Currency = unit.Amount.CurrencyCode

		if len(unit.Payments.Captures) > 0 {
			result.CaptureID = unit.Payments.Captures[0].ID
		}
	}

	return result, nil
}

func (c *payPalHTTPClient) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	var token tokenResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBasicAuth(c.config.ClientID, c.config.ClientSecret).
		SetFormData(map[string]string{"grant_type": "client_credentials"}).
		SetResult(&token).
		Post("/v1/oauth2/token")

	if err != nil {
		return "", fmt.Errorf("paypal token request error: %w", err)
	}

	if resp.IsError() || token.AccessToken == "" {
		return "", fmt.Errorf("paypal token request failed: status %d", resp.StatusCode())
	}

	c.accessToken = token.AccessToken
	// Refresh one minute before the provider expires the token.
	c.tokenExpiry = time.Now().Add(time.Duration(token.ExpiresIn-60) * time.Second)

	return c.accessToken, nil
}
