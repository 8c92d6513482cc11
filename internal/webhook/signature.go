package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sign computes the hex-encoded HMAC-SHA256 of payload with the shared
// secret, as BigCommerce sends it in the X-BC-Api-Content-Hash header.
func Sign(secret string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify checks an inbound webhook signature against the raw request body.
// The body must be the exact bytes received; re-serializing a parsed payload
// breaks on key order and whitespace. Comparison is constant-time and
// case-insensitive on the hex encoding. A missing signature is invalid.
func Verify(secret string, payload []byte, signature string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(secret, payload)
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(expected))
}
