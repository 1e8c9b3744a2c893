package retell

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the webhook signature on Retell deliveries.
const SignatureHeader = "X-Retell-Signature"

// Sign computes the webhook signature for a raw body: base64 of the
// HMAC-SHA256 digest keyed with the API key.
func Sign(body []byte, apiKey string) string {
	mac := hmac.New(sha256.New, []byte(apiKey))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a delivery signature in constant time. An empty
// configured key rejects everything; unauthenticated webhooks are never
// accepted by accident.
func VerifySignature(body []byte, signature, apiKey string) bool {
	if apiKey == "" || signature == "" {
		return false
	}
	expected := Sign(body, apiKey)
	return hmac.Equal([]byte(expected), []byte(signature))
}
