package mpesa

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignPayload computes the hex HMAC-SHA256 of a callback body with the
// shared webhook secret
func SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a callback signature in constant time. An empty
// secret disables verification, for sandbox use only.
func VerifySignature(payload []byte, signature, secret string) bool {
	if secret == "" {
		return true
	}
	expected := SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
