package signature

import (
	"crypto/cipher"
	"crypto/des"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/soportelantia/libercopy-sub001/internal/domain"
)

// RedsysVerifier implements the gateway's HMAC_SHA256_V1 signature scheme.
// The HMAC key is not the shared secret itself: it is derived per operation
// by encrypting the gateway order number under 3DES with the shared secret,
// which binds every signature to one specific order and blocks replay of a
// valid signature against a different order.
type RedsysVerifier struct {
	secretB64 string
}

func NewRedsysVerifier(secretB64 string) *RedsysVerifier {
	return &RedsysVerifier{secretB64: secretB64}
}

// operationKey encrypts the order number (zero-padded to the DES block size)
// under 3DES-CBC with a zero IV, keyed by the base64-decoded shared secret.
func (v *RedsysVerifier) operationKey(orderNumber string) ([]byte, error) {
	if v.secretB64 == "" {
		return nil, domain.ErrSignatureInvalid
	}

	key, err := base64.StdEncoding.DecodeString(v.secretB64)
	if err != nil {
		return nil, fmt.Errorf("decoding shared secret: %w", err)
	}

	block, err := des.NewTripleDESCipher(key)
	if err != nil {
		return nil, fmt.Errorf("initializing 3DES cipher: %w", err)
	}

	plaintext := zeroPad([]byte(orderNumber), des.BlockSize)
	ciphertext := make([]byte, len(plaintext))

	iv := make([]byte, des.BlockSize)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ciphertext, plaintext)

	return ciphertext, nil
}

// Sign produces the standard-base64 signature for a merchant parameters blob.
// Used by the payment initiation path and by verification.
func (v *RedsysVerifier) Sign(orderNumber, merchantParamsB64 string) (string, error) {
	key, err := v.operationKey(orderNumber)
	if err != nil {
		return "", err
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(merchantParamsB64))

	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// Verify checks a received signature against the one recomputed from the raw
// base64 merchant parameters string. The gateway sends URL-safe base64 with
// padding stripped; it is normalized before the byte comparison.
func (v *RedsysVerifier) Verify(orderNumber, merchantParamsB64, receivedSig string) error {
	expectedB64, err := v.Sign(orderNumber, merchantParamsB64)
	if err != nil {
		return domain.ErrSignatureInvalid
	}

	expected, err := base64.StdEncoding.DecodeString(expectedB64)
	if err != nil {
		return domain.ErrSignatureInvalid
	}

	received, err := base64.StdEncoding.DecodeString(NormalizeSignature(receivedSig))
	if err != nil {
		return domain.ErrSignatureInvalid
	}

	if !hmac.Equal(expected, received) {
		return domain.ErrSignatureInvalid
	}

	return nil
}

// NormalizeSignature converts URL-safe base64 to standard base64 and restores
// the stripped padding.
func NormalizeSignature(sig string) string {
	sig = strings.ReplaceAll(sig, "-", "+")
	sig = strings.ReplaceAll(sig, "_", "/")

	if rem := len(sig) % 4; rem != 0 {
		sig += strings.Repeat("=", 4-rem)
	}

	return sig
}

func zeroPad(data []byte, blockSize int) []byte {
	rem := len(data) % blockSize
	if rem == 0 && len(data) > 0 {
		return data
	}

	padded := make([]byte, len(data)+blockSize-rem)
	copy(padded, data)
	return padded
}
