package handlers

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/httpx"
	"github.com/soportelantia/libercopy-sub001/internal/signature"
)

type paypalWebhookEvent struct {
	ID        string `json:"id"`
	EventType string `json:"event_type"`
	Resource  struct {
		ID       string `json:"id"`
		CustomID string `json:"custom_id"`
		Status   string `json:"status"`
	} `json:"resource"`
}

// PayPalWebhook handles server-to-server notifications. The body must reach
// the verifier exactly as received; it is only parsed after the signature
// checks out.
func (h *Handler) PayPalWebhook(c *fiber.Ctx) error {
	rawBody := c.Body()

	headers := signature.WebhookHeaders{
		AuthAlgo:         c.Get("Paypal-Auth-Algo"),
		CertID:           c.Get("Paypal-Cert-Id"),
		TransmissionID:   c.Get("Paypal-Transmission-Id"),
		TransmissionTime: c.Get("Paypal-Transmission-Time"),
		Signature:        c.Get("Paypal-Transmission-Sig"),
	}

	if err := h.paypalVerifier.Verify(headers, rawBody); err != nil {
		h.callLog.Record(calllog.LevelWarn, "paypal webhook signature rejected", map[string]interface{}{
			"transmission_id": headers.TransmissionID,
		})
		return httpx.UnauthorizedResponse(c, "Webhook signature verification failed")
	}

	var event paypalWebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		h.callLog.Record(calllog.LevelWarn, "paypal webhook body unparseable", nil)
		return httpx.BadRequestResponse(c, "Invalid webhook body", nil)
	}

	var outcome domain.Outcome
	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED", "CHECKOUT.ORDER.APPROVED":
		outcome = domain.OutcomeSuccess
	case "PAYMENT.CAPTURE.DENIED", "PAYMENT.CAPTURE.DECLINED":
		outcome = domain.OutcomeFailure
	default:
		// Event types this service does not track are acknowledged so the
		// provider stops redelivering them.
		h.logger.Infow("paypal webhook event ignored", "event_type", event.EventType)
		return httpx.SuccessResponse(c, "Event ignored", nil)
	}

	orderID, err := h.resolver.Resolve(c.Context(), domain.ProviderPayPal, event.Resource.CustomID)
	if err != nil {
		h.callLog.Record(calllog.LevelError, "paypal webhook reference unresolved", map[string]interface{}{
			"custom_id":  event.Resource.CustomID,
			"event_type": event.EventType,
		})
		return httpx.UnprocessableResponse(c, "Order reference could not be resolved", nil)
	}

	result, err := h.reconciler.Reconcile(c.Context(), domain.PaymentEvent{
		OrderID:               orderID,
		Provider:              domain.ProviderPayPal,
		ProviderTransactionID: event.Resource.ID,
		Outcome:               outcome,
		RawPayload:            rawBody,
	})
	if err != nil {
		return h.reconcileErrorResponse(c, err)
	}

	h.callLog.Record(calllog.LevelInfo, "paypal webhook processed", map[string]interface{}{
		"order_id": orderID.String(),
		"status":   result.Status,
	})

	return httpx.SuccessResponse(c, "Webhook processed", result)
}

// reconcileErrorResponse maps the error taxonomy to HTTP statuses. Only
// persistence failures come back as 5xx: those are the ones a provider
// redelivery can actually fix.
func (h *Handler) reconcileErrorResponse(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		h.callLog.Record(calllog.LevelError, "reconciliation rejected: order not found", nil)
		return httpx.UnprocessableResponse(c, "Order not found", nil)
	case errors.Is(err, domain.ErrReferenceNotFound):
		h.callLog.Record(calllog.LevelError, "reconciliation rejected: reference not found", nil)
		return httpx.UnprocessableResponse(c, "Order reference could not be resolved", nil)
	default:
		h.logger.Errorw("reconciliation failed", "error", err)
		return httpx.InternalServerErrorResponse(c, "Reconciliation failed", nil)
	}
}
