package delegation

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/AlexZinkM/joint-wallet/internal/apperr"
)

// SignatureHeader carries the hex HMAC-SHA256 of the raw request body.
const SignatureHeader = "x-dynamic-signature-256"

// Sign returns the header value for body under secret.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks header against the HMAC of body. The "sha256="
// prefix is optional.
func VerifySignature(secret, body []byte, header string) error {
	if len(secret) == 0 {
		return apperr.ErrWebhookUnverified.New("webhook secret is not configured")
	}
	header = strings.TrimPrefix(strings.TrimSpace(header), "sha256=")
	if header == "" {
		return apperr.ErrWebhookUnverified.New("missing signature header")
	}
	got, err := hex.DecodeString(header)
	if err != nil {
		return apperr.ErrWebhookUnverified.New("signature is not hex")
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return apperr.ErrWebhookUnverified.New("signature mismatch")
	}
	return nil
}
