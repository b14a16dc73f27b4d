package handlers

import (
	"encoding/base64"
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/soportelantia/libercopy-sub001/internal/calllog"
	"github.com/soportelantia/libercopy-sub001/internal/domain"
	"github.com/soportelantia/libercopy-sub001/internal/httpx"
)

// gatewayNotification is the decoded Ds_MerchantParameters blob the gateway
// posts back. Card numbers and Bizum phone numbers arrive masked.
type gatewayNotification struct {
	Date              string `json:"Ds_Date"`
	Hour              string `json:"Ds_Hour"`
	Amount            string `json:"Ds_Amount"`
	Currency          string `json:"Ds_Currency"`
	Order             string `json:"Ds_Order"`
	MerchantCode      string `json:"Ds_MerchantCode"`
	Terminal          string `json:"Ds_Terminal"`
	Response          string `json:"Ds_Response"`
	AuthorisationCode string `json:"Ds_AuthorisationCode"`
	TransactionType   string `json:"Ds_TransactionType"`
	CardNumber        string `json:"Ds_Card_Number,omitempty"`
	Phone             string `json:"Ds_Phone,omitempty"`
}

// GatewayCallback handles the card/Bizum gateway's signed POST notification.
func (h *Handler) GatewayCallback(c *fiber.Ctx) error {
	sigVersion := c.FormValue("Ds_SignatureVersion")
	paramsB64 := c.FormValue("Ds_MerchantParameters")
	receivedSig := c.FormValue("Ds_Signature")

	if paramsB64 == "" || receivedSig == "" {
		return httpx.BadRequestResponse(c, "Missing gateway parameters", nil)
	}

	if sigVersion != "" && sigVersion != "HMAC_SHA256_V1" {
		h.callLog.Record(calllog.LevelWarn, "gateway callback unknown signature version", map[string]interface{}{
			"version": sigVersion,
		})
		return httpx.UnauthorizedResponse(c, "Unsupported signature version")
	}

	paramsJSON, err := base64.StdEncoding.DecodeString(paramsB64)
	if err != nil {
		// The blob may arrive URL-safe encoded as well.
		paramsJSON, err = base64.URLEncoding.DecodeString(paramsB64)
		if err != nil {
			return httpx.BadRequestResponse(c, "Invalid merchant parameters encoding", nil)
		}
	}

	var params gatewayNotification
	if err := json.Unmarshal(paramsJSON, &params); err != nil {
		return httpx.BadRequestResponse(c, "Invalid merchant parameters", nil)
	}

	// The signature key is derived from the order number inside the blob;
	// the HMAC itself covers the raw base64 string as received.
	if err := h.redsysVerifier.Verify(params.Order, paramsB64, receivedSig); err != nil {
		h.callLog.Record(calllog.LevelWarn, "gateway callback signature rejected", map[string]interface{}{
			"gateway_order": params.Order,
		})
		return httpx.UnauthorizedResponse(c, "Gateway signature verification failed")
	}

	responseCode, err := strconv.Atoi(params.Response)
	if err != nil {
		return httpx.BadRequestResponse(c, "Invalid response code", map[string]interface{}{
			"response": params.Response,
		})
	}

	// Authorization codes 0-99 are approvals; everything else is a denial.
	outcome := domain.OutcomeFailure
	if responseCode >= 0 && responseCode <= 99 {
		outcome = domain.OutcomeSuccess
	}

	orderID, err := h.resolver.Resolve(c.Context(), domain.ProviderGateway, params.Order)
	if err != nil {
		h.callLog.Record(calllog.LevelError, "gateway callback reference unresolved", map[string]interface{}{
			"gateway_order": params.Order,
		})
		return httpx.UnprocessableResponse(c, "Order reference could not be resolved", map[string]interface{}{
			"gateway_order": params.Order,
		})
	}

	transactionID := params.AuthorisationCode
	if transactionID == "" {
		transactionID = params.Order
	}

	result, err := h.reconciler.Reconcile(c.Context(), domain.PaymentEvent{
		OrderID:               orderID,
		Provider:              domain.ProviderGateway,
		ProviderTransactionID: transactionID,
		Outcome:               outcome,
		RawPayload:            paramsJSON,
	})
	if err != nil {
		return h.reconcileErrorResponse(c, err)
	}

	h.callLog.Record(calllog.LevelInfo, "gateway callback processed", map[string]interface{}{
		"order_id":      orderID.String(),
		"gateway_order": params.Order,
		"response_code": responseCode,
		"status":        result.Status,
	})

	return httpx.SuccessResponse(c, "Callback processed", result)
}
