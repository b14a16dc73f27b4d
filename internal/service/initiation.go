package service

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/signature"
)

// RedsysParams is the merchant parameter set for the gateway redirect form.
// The gateway echoes the same shape (with Ds_ response fields) on callback.
type RedsysParams struct {
	Amount          string `json:"DS_MERCHANT_AMOUNT"`
	Order           string `json:"DS_MERCHANT_ORDER"`
	MerchantCode    string `json:"DS_MERCHANT_MERCHANTCODE"`
	Currency        string `json:"DS_MERCHANT_CURRENCY"`
	TransactionType string `json:"DS_MERCHANT_TRANSACTIONTYPE"`
	Terminal        string `json:"DS_MERCHANT_TERMINAL"`
	MerchantURL     string `json:"DS_MERCHANT_MERCHANTURL"`
	URLOK           string `json:"DS_MERCHANT_URLOK"`
	URLKO           string `json:"DS_MERCHANT_URLKO"`
	PayMethods      string `json:"DS_MERCHANT_PAYMETHODS,omitempty"`
}

// PaymentInitiation is what the storefront needs to hand the buyer over to
// the provider: for the gateway a self-submitting form, for PayPal just the
// reference the client SDK should attach as custom id.
type PaymentInitiation struct {
	OrderID             uuid.UUID       `json:"order_id"`
	Provider            domain.Provider `json:"provider"`
	ProviderOrderNumber string          `json:"provider_order_number,omitempty"`
	FormURL             string          `json:"form_url,omitempty"`
	SignatureVersion    string          `json:"signature_version,omitempty"`
	MerchantParameters  string          `json:"merchant_parameters,omitempty"`
	Signature           string          `json:"signature,omitempty"`
	CustomID            string          `json:"custom_id,omitempty"`
}

type InitiatorConfig struct {
	GatewayFormURL string
	MerchantCode   string
	Terminal       string
	PublicBaseURL  string
	FrontendURL    string
}

type Initiator struct {
	orders     OrderStore
	references ReferenceStore
	signer     *signature.RedsysVerifier
	config     InitiatorConfig
	logger     *zap.SugaredLogger
}

func NewInitiator(
	orders OrderStore,
	references ReferenceStore,
	signer *signature.RedsysVerifier,
	config InitiatorConfig,
	logger *zap.SugaredLogger,
) *Initiator {
	return &Initiator{
		orders:     orders,
		references: references,
		signer:     signer,
		config:     config,
		logger:     logger,
	}
}

// currencyCodes maps ISO 4217 alphabetic codes to the numeric codes the
// gateway expects.
var currencyCodes = map[string]string{
	"EUR": "978",
	"USD": "840",
	"GBP": "826",
}

// InitiatePayment prepares a payment attempt. For the gateway this is the
// moment the order-number mapping is written; callback resolution later is a
// single lookup against it, never a guess.
func (i *Initiator) InitiatePayment(ctx context.Context, orderID uuid.UUID, method domain.PaymentMethod) (*PaymentInitiation, error) {
	order, err := i.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if order.Status != domain.OrderStatusPending && order.Status != domain.OrderStatusPaymentFailed {
		return nil, fmt.Errorf("order %s is not payable in status %s", order.ID, order.Status)
	}

	if err := i.orders.SetPaymentMethod(ctx, orderID, method); err != nil {
		return nil, err
	}

	switch method {
	case domain.PaymentMethodPayPal:
		return &PaymentInitiation{
			OrderID:  order.ID,
			Provider: domain.ProviderPayPal,
			CustomID: order.ID.String(),
		}, nil

	case domain.PaymentMethodCard, domain.PaymentMethodBizum:
		return i.initiateGatewayPayment(ctx, order, method)

	default:
		return nil, fmt.Errorf("unsupported payment method: %s", method)
	}
}

func (i *Initiator) initiateGatewayPayment(ctx context.Context, order *domain.Order, method domain.PaymentMethod) (*PaymentInitiation, error) {
	numericCurrency, ok := currencyCodes[order.Currency]
	if !ok {
		return nil, fmt.Errorf("unsupported currency: %s", order.Currency)
	}

	orderNumber := newGatewayOrderNumber()

	if err := i.references.CreateMapping(ctx, domain.ProviderGateway, orderNumber, order.ID); err != nil {
		return nil, err
	}

	params := RedsysParams{
		Amount:          fmt.Sprintf("%d", order.TotalCents),
		Order:           orderNumber,
		MerchantCode:    i.config.MerchantCode,
		Currency:        numericCurrency,
		TransactionType: "0",
		Terminal:        i.config.Terminal,
		MerchantURL:     i.config.PublicBaseURL + "/api/v1/callbacks/gateway",
		URLOK:           i.config.FrontendURL + "/checkout/confirmation",
		URLKO:           i.config.FrontendURL + "/checkout/error",
	}
	if method == domain.PaymentMethodBizum {
		params.PayMethods = "z"
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("merchant parameters serialization error: %w", err)
	}

	paramsB64 := base64.StdEncoding.EncodeToString(paramsJSON)

	sig, err := i.signer.Sign(orderNumber, paramsB64)
	if err != nil {
		return nil, fmt.Errorf("merchant parameters signing error: %w", err)
	}

	i.logger.Infow("gateway payment initiated",
		"order_id", order.ID, "gateway_order_number", orderNumber, "method", method)

	return &PaymentInitiation{
		OrderID:             order.ID,
		Provider:            domain.ProviderGateway,
		ProviderOrderNumber: orderNumber,
		FormURL:             i.config.GatewayFormURL,
		SignatureVersion:    "HMAC_SHA256_V1",
		MerchantParameters:  paramsB64,
		Signature:           sig,
	}, nil
}

// newGatewayOrderNumber builds a 12-character order number in the format the
// gateway imposes: four leading digits, then alphanumerics. Time prefix plus
// random tail keeps collisions out of practical reach; the unique constraint
// on the mapping table catches the rest.
func newGatewayOrderNumber() string {
	const digits = "0123456789"

	now := time.Now()
	prefix := fmt.Sprintf("%02d%02d", now.Minute(), now.Second())

	tail := make([]byte, 8)
	for i := range tail {
		tail[i] = digits[rand.Intn(len(digits))]
	}

	return prefix + string(tail)
}
