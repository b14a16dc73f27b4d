package handlers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/signature"
)

const gatewayOrderNumber = "164329874512"

func gatewayCallbackRequest(t *testing.T, params gatewayNotification, mutateSig func(string) string) *http.Request {
	t.Helper()

	raw, err := json.Marshal(params)
	require.NoError(t, err)
	paramsB64 := base64.StdEncoding.EncodeToString(raw)

	sigB64, err := signature.NewRedsysVerifier(testRedsysSecret).Sign(params.Order, paramsB64)
	require.NoError(t, err)

	// The gateway sends URL-safe base64 without padding.
	sigBytes, err := base64.StdEncoding.DecodeString(sigB64)
	require.NoError(t, err)
	sig := base64.RawURLEncoding.EncodeToString(sigBytes)

	if mutateSig != nil {
		sig = mutateSig(sig)
	}

	form := url.Values{}
	form.Set("Ds_SignatureVersion", "HMAC_SHA256_V1")
	form.Set("Ds_MerchantParameters", paramsB64)
	form.Set("Ds_Signature", sig)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/gateway", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func successNotification() gatewayNotification {
	return gatewayNotification{
		Date:              "30/08/2026",
		Hour:              "18:03",
		Amount:            "2576",
		Currency:          "978",
		Order:             gatewayOrderNumber,
		MerchantCode:      "999008881",
		Terminal:          "001",
		Response:          "0000",
		AuthorisationCode: "424750",
		TransactionType:   "0",
		CardNumber:        "454881******0004",
	}
}

func TestGatewayCallbackSuccess(t *testing.T) {
	order := testOrder()
	f := newTestFixture(order)
	require.NoError(t, f.references.CreateMapping(context.Background(), domain.ProviderGateway, gatewayOrderNumber, order.ID))

	resp, err := f.app.Test(gatewayCallbackRequest(t, successNotification(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored := f.orders.get(order.ID)
	assert.Equal(t, domain.OrderStatusCompleted, stored.Status)
	assert.Equal(t, "424750", stored.PaymentReference)
	require.NotNil(t, stored.PaidAt)

	assert.Equal(t, 1, f.history.count())
	assert.Equal(t, 1, f.notifier.count())
}

func TestGatewayCallbackRedelivery(t *testing.T) {
	order := testOrder()
	f := newTestFixture(order)
	require.NoError(t, f.references.CreateMapping(context.Background(), domain.ProviderGateway, gatewayOrderNumber, order.ID))

	resp, err := f.app.Test(gatewayCallbackRequest(t, successNotification(), nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Identical redelivery still returns success, but nothing happens twice.
	resp, err = f.app.Test(gatewayCallbackRequest(t, successNotification(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, 1, f.history.count())
	assert.Equal(t, 1, f.notifier.count())
}

func TestGatewayCallbackTamperedSignature(t *testing.T) {
	order := testOrder()
	f := newTestFixture(order)
	require.NoError(t, f.references.CreateMapping(context.Background(), domain.ProviderGateway, gatewayOrderNumber, order.ID))

	resp, err := f.app.Test(gatewayCallbackRequest(t, successNotification(), func(sig string) string {
		mutated := []byte(sig)
		if mutated[0] == 'A' {
			mutated[0] = 'B'
		} else {
			mutated[0] = 'A'
		}
		return string(mutated)
	}))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// No state change on a rejected notification.
	assert.Equal(t, domain.OrderStatusPending, f.orders.get(order.ID).Status)
	assert.Equal(t, 0, f.history.count())
}

func TestGatewayCallbackUnknownOrderNumber(t *testing.T) {
	f := newTestFixture()

	resp, err := f.app.Test(gatewayCallbackRequest(t, successNotification(), nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestGatewayCallbackDeniedResponseCode(t *testing.T) {
	order := testOrder()
	f := newTestFixture(order)
	require.NoError(t, f.references.CreateMapping(context.Background(), domain.ProviderGateway, gatewayOrderNumber, order.ID))

	params := successNotification()
	params.Response = "0180"
	params.AuthorisationCode = ""

	resp, err := f.app.Test(gatewayCallbackRequest(t, params, nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	stored := f.orders.get(order.ID)
	assert.Equal(t, domain.OrderStatusPaymentFailed, stored.Status)
	assert.Nil(t, stored.PaidAt)
	assert.Equal(t, 0, f.notifier.count())
}

func TestGatewayCallbackMissingParameters(t *testing.T) {
	f := newTestFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/callbacks/gateway", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := f.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
