package zenopay

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
)

const (
	SignatureHeader = "X-Zenopay-Signature"
	signaturePrefix = "sha256="
)

// Sign returns the header value for body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC-SHA256 of the raw body.
func VerifySignature(secret string, body []byte, header string) error {
	if secret == "" {
		return pkgerrors.ErrWebhookSecretMissing
	}
	header = strings.TrimSpace(header)
	if !strings.HasPrefix(header, signaturePrefix) {
		return pkgerrors.ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return pkgerrors.ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return pkgerrors.ErrInvalidSignature
	}
	return nil
}
