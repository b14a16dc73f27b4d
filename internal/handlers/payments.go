package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/httpx"
)

type initiatePaymentRequest struct {
	OrderID string `json:"order_id"`
	Method  string `json:"method"`
}

// InitiatePayment starts a payment attempt for an order. For gateway methods
// this writes the order-number mapping consumed later by the callback.
func (h *Handler) InitiatePayment(c *fiber.Ctx) error {
	var req initiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"order_id": req.OrderID,
		})
	}

	method := domain.PaymentMethod(req.Method)
	switch method {
	case domain.PaymentMethodPayPal, domain.PaymentMethodCard, domain.PaymentMethodBizum:
	default:
		return httpx.BadRequestResponse(c, "Unsupported payment method", map[string]interface{}{
			"method": req.Method,
		})
	}

	initiation, err := h.initiator.InitiatePayment(c.Context(), orderID, method)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		h.logger.Errorw("payment initiation failed", "order_id", orderID, "error", err)
		return httpx.InternalServerErrorResponse(c, "Payment initiation failed", nil)
	}

	return httpx.CreatedResponse(c, "Payment initiated", initiation)
}

type confirmPaymentRequest struct {
	OrderID       string `json:"order_id"`
	Status        string `json:"status"`
	TransactionID string `json:"transaction_id"`
}

// ConfirmPayment is the client-initiated confirmation path, called by the
// storefront after the provider's client SDK reports a result. Any client can
// reach it, so it gets no more trust than an unsigned hint: the same
// idempotency and ordering guards apply, and it can never downgrade an order.
func (h *Handler) ConfirmPayment(c *fiber.Ctx) error {
	var req confirmPaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return httpx.BadRequestResponse(c, "Invalid request body", nil)
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"order_id": req.OrderID,
		})
	}

	var outcome domain.Outcome
	switch req.Status {
	case "success":
		outcome = domain.OutcomeSuccess
	case "failure":
		outcome = domain.OutcomeFailure
	default:
		return httpx.BadRequestResponse(c, "Invalid status", map[string]interface{}{
			"status": req.Status,
		})
	}

	result, err := h.reconciler.Reconcile(c.Context(), domain.PaymentEvent{
		OrderID:               orderID,
		Provider:              domain.ProviderClient,
		ProviderTransactionID: req.TransactionID,
		Outcome:               outcome,
	})
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		h.logger.Errorw("client confirmation failed", "order_id", orderID, "error", err)
		return httpx.InternalServerErrorResponse(c, "Confirmation failed", nil)
	}

	h.callLog.Record(calllog.LevelInfo, "client confirmation processed", map[string]interface{}{
		"order_id": orderID.String(),
		"status":   result.Status,
	})

	return httpx.SuccessResponse(c, "Confirmation processed", result)
}

// GetOrder exposes the read model for the storefront's order status page.
func (h *Handler) GetOrder(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"id": c.Params("id"),
		})
	}

	order, err := h.orders.GetOrderByID(c.Context(), orderID)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		return httpx.InternalServerErrorResponse(c, "Order lookup failed", nil)
	}

	return httpx.SuccessResponse(c, "Order retrieved", order)
}

// GetOrderHistory returns the append-only status trail for an order.
func (h *Handler) GetOrderHistory(c *fiber.Ctx) error {
	orderID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid order ID", map[string]interface{}{
			"id": c.Params("id"),
		})
	}

	if _, err := h.orders.GetOrderByID(c.Context(), orderID); err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			return httpx.NotFoundResponse(c, "Order not found")
		}
		return httpx.InternalServerErrorResponse(c, "Order lookup failed", nil)
	}

	entries, err := h.history.ListByOrderID(c.Context(), orderID)
	if err != nil {
		h.logger.Errorw("order history lookup failed", "order_id", orderID, "error", err)
		return httpx.InternalServerErrorResponse(c, "Order history lookup failed", nil)
	}

	return httpx.SuccessResponse(c, "Order history retrieved", entries)
}
