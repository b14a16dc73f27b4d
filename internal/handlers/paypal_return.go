package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// PayPalReturn handles the browser redirect after a PayPal approval. The
// query string proves nothing, since anyone can request this URL, so the
// order is re-read from the provider and only its answer is trusted. The
// user always ends up on a storefront page, never on a raw error body.
func (h *Handler) PayPalReturn(c *fiber.Ctx) error {
	token := c.Query("token")
	payerID := c.Query("PayerID")

	if token == "" {
		return h.redirectToError(c)
	}

	providerOrder, err := h.paypal.GetOrder(c.Context(), token)
	if err != nil {
		h.logger.Warnw("paypal return: order verification failed",
			"token", token, "payer_id", payerID, "error", err)
		h.callLog.Record(calllog.LevelWarn, "paypal return verification failed", map[string]interface{}{
			"token": token,
		})
		return h.redirectToError(c)
	}

	if !providerOrder.IsCompleted() {
		h.logger.Infow("paypal return: order not completed at provider",
			"token", token, "provider_status", providerOrder.Status)
		return h.redirectToError(c)
	}

	orderID, err := h.resolver.Resolve(c.Context(), domain.ProviderPayPal, providerOrder.CustomID)
	if err != nil {
		h.callLog.Record(calllog.LevelError, "paypal return reference unresolved", map[string]interface{}{
			"custom_id": providerOrder.CustomID,
		})
		return h.redirectToError(c)
	}

	transactionID := providerOrder.CaptureID
	if transactionID == "" {
		transactionID = providerOrder.ID
	}

	result, err := h.reconciler.Reconcile(c.Context(), domain.PaymentEvent{
		OrderID:               orderID,
		Provider:              domain.ProviderPayPal,
		ProviderTransactionID: transactionID,
		Outcome:               domain.OutcomeSuccess,
	})
	if err != nil {
		h.logger.Errorw("paypal return: reconciliation failed",
			"order_id", orderID, "error", err)
		return h.redirectToError(c)
	}

	h.callLog.Record(calllog.LevelInfo, "paypal return processed", map[string]interface{}{
		"order_id": orderID.String(),
		"status":   result.Status,
	})

	return c.Redirect(h.frontendURL+"/checkout/confirmation?order="+orderID.String(), fiber.StatusFound)
}

func (h *Handler) redirectToError(c *fiber.Ctx) error {
	// Generic page on purpose: internal failure detail stays in the logs.
	return c.Redirect(h.frontendURL+"/checkout/error", fiber.StatusFound)
}
