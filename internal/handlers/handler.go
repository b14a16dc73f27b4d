package handlers

import (
	"go.uber.org/zap"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/gateway"
	"github.com/soportelantia/libercopy-sub001/internal/httpx"
	"github.com/soportelantia/libercopy-sub001/internal/service"
	"github.com/soportelantia/libercopy-sub001/internal/signature"

	"github.com/gofiber/fiber/v2"
)

// Handler adapts provider wire formats into normalized payment events. No
// business decision lives here: whether a transition applies is decided by
// the reconciler alone.
type Handler struct {
	reconciler     *service.Reconciler
	resolver       *service.Resolver
	initiator      *service.Initiator
	orders         service.OrderStore
	history        service.HistoryReader
	paypalVerifier *signature.PayPalWebhookVerifier
	redsysVerifier *signature.RedsysVerifier
	paypal         gateway.PayPalClient
	callLog        *calllog.Buffer
	logger         *zap.SugaredLogger
	frontendURL    string
}

type Deps struct {
	Reconciler     *service.Reconciler
	Resolver       *service.Resolver
	Initiator      *service.Initiator
	Orders         service.OrderStore
	History        service.HistoryReader
	PayPalVerifier *signature.PayPalWebhookVerifier
	RedsysVerifier *signature.RedsysVerifier
	PayPal         gateway.PayPalClient
	CallLog        *calllog.Buffer
	Logger         *zap.SugaredLogger
	FrontendURL    string
}

func New(deps Deps) *Handler {
	return &Handler{
		reconciler:     deps.Reconciler,
		resolver:       deps.Resolver,
		initiator:      deps.Initiator,
		orders:         deps.Orders,
		history:        deps.History,
		paypalVerifier: deps.PayPalVerifier,
		redsysVerifier: deps.RedsysVerifier,
		paypal:         deps.PayPal,
		callLog:        deps.CallLog,
		logger:         deps.Logger,
		frontendURL:    deps.FrontendURL,
	}
}

func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	return httpx.SuccessResponse(c, "Payment service is healthy", map[string]interface{}{
		"service": "payment-service",
		"status":  "healthy",
	})
}

func (h *Handler) CallbackLog(c *fiber.Ctx) error {
	return httpx.SuccessResponse(c, "Callback log", h.callLog.List())
}
