package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// WebhookHeaders carries the transmission headers PayPal attaches to every
// webhook delivery. All five are required; a delivery missing any of them is
// rejected without touching the body.
type WebhookHeaders struct {
	AuthAlgo         string
	CertID           string
	TransmissionID   string
	TransmissionTime string
	Signature        string
}

type PayPalWebhookVerifier struct {
	webhookID    string
	clientSecret string
}

func NewPayPalWebhookVerifier(webhookID, clientSecret string) *PayPalWebhookVerifier {
	return &PayPalWebhookVerifier{
		webhookID:    webhookID,
		clientSecret: clientSecret,
	}
}

// Verify recomputes the transmission signature over the raw, unparsed request
// body and compares it in constant time against the header-supplied value.
// The body bytes must be exactly as received: parsing and re-serializing
// before verification changes the bytes and breaks the signature.
func (v *PayPalWebhookVerifier) Verify(headers WebhookHeaders, rawBody []byte) error {
	if v.webhookID == "" || v.clientSecret == "" {
		// Fail closed: without configured secrets nothing can be trusted.
		return domain.ErrSignatureInvalid
	}

	if headers.AuthAlgo == "" || headers.CertID == "" || headers.TransmissionID == "" ||
		headers.TransmissionTime == "" || headers.Signature == "" {
		return domain.ErrSignatureInvalid
	}

	message := strings.Join([]string{
		headers.AuthAlgo,
		headers.CertID,
		headers.TransmissionID,
		headers.TransmissionTime,
		v.webhookID,
	}, "|") + "|" + string(rawBody)

	mac := hmac.New(sha256.New, []byte(v.clientSecret))
	mac.Write([]byte(message))
	expected := mac.Sum(nil)

	received, err := base64.StdEncoding.DecodeString(headers.Signature)
	if err != nil {
		return domain.ErrSignatureInvalid
	}

	if !hmac.Equal(expected, received) {
		return domain.ErrSignatureInvalid
	}

	return nil
}
