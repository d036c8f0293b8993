package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// ErrBadSignature indicates a webhook payload whose signature does not match.
var ErrBadSignature = errors.New("webhook signature mismatch")

// Sign computes the base64 HMAC-SHA256 of the raw webhook body with the
// shared secret, the scheme the provider uses for callback authenticity.
func Sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time.
func VerifySignature(body []byte, signature, secret string) error {
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrBadSignature
	}
	return nil
}
