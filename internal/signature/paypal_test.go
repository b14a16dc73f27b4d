package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testWebhookID    = "8PT597110X687430LKGECATA"
	testClientSecret = "EGnHDxD_qRPdaLdZz8iCr8N7_MzF-YHPTkjs6NKYQvQSBngp4PTTVWkPZRbL"
)

func signWebhook(t *testing.T, headers WebhookHeaders, webhookID, secret string, body []byte) string {
	t.Helper()

	message := strings.Join([]string{
		headers.AuthAlgo,
		headers.CertID,
		headers.TransmissionID,
		headers.TransmissionTime,
		webhookID,
	}, "|") + "|" + string(body)

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(message))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func validHeaders() WebhookHeaders {
	return WebhookHeaders{
		AuthAlgo:         "SHA256withRSA",
		CertID:           "CERT-360caa42-fca2a594-1d93a270",
		TransmissionID:   "69cd13f0-d67a-11e5-baa3-778b53f4ae55",
		TransmissionTime: "2026-08-30T07:46:22Z",
	}
}

func TestPayPalVerifyValidSignature(t *testing.T) {
	body := []byte(`{"id":"WH-58D329510W468432D-8HN650336L201105X","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	headers := validHeaders()
	headers.Signature = signWebhook(t, headers, testWebhookID, testClientSecret, body)

	v := NewPayPalWebhookVerifier(testWebhookID, testClientSecret)
	require.NoError(t, v.Verify(headers, body))
}

func TestPayPalVerifyTamperedBody(t *testing.T) {
	body := []byte(`{"id":"WH-58D329510W468432D-8HN650336L201105X","event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	headers := validHeaders()
	headers.Signature = signWebhook(t, headers, testWebhookID, testClientSecret, body)

	// Flip a single byte after signing.
	tampered := append([]byte(nil), body...)
	tampered[10] ^= 0x01

	v := NewPayPalWebhookVerifier(testWebhookID, testClientSecret)
	assert.Error(t, v.Verify(headers, tampered))
}

func TestPayPalVerifyWrongWebhookID(t *testing.T) {
	body := []byte(`{"event_type":"PAYMENT.CAPTURE.COMPLETED"}`)

	headers := validHeaders()
	headers.Signature = signWebhook(t, headers, "ANOTHER-WEBHOOK-ID", testClientSecret, body)

	v := NewPayPalWebhookVerifier(testWebhookID, testClientSecret)
	assert.Error(t, v.Verify(headers, body))
}

func TestPayPalVerifyFailsClosed(t *testing.T) {
	body := []byte(`{}`)

	headers := validHeaders()
	headers.Signature = signWebhook(t, headers, testWebhookID, testClientSecret, body)

	t.Run("missing secrets", func(t *testing.T) {
		v := NewPayPalWebhookVerifier("", "")
		assert.Error(t, v.Verify(headers, body))
	})

	t.Run("missing header", func(t *testing.T) {
		incomplete := headers
		incomplete.TransmissionID = ""

		v := NewPayPalWebhookVerifier(testWebhookID, testClientSecret)
		assert.Error(t, v.Verify(incomplete, body))
	})

	t.Run("garbage signature encoding", func(t *testing.T) {
		bad := headers
		bad.Signature = "not-base64!!!"

		v := NewPayPalWebhookVerifier(testWebhookID, testClientSecret)
		assert.Error(t, v.Verify(bad, body))
	})
}
