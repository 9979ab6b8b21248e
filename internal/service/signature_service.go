package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"hash"
)

// WebhookSignatureService verifies inbound webhook signatures. Providers sign
// the raw request body with a shared secret; paystack uses HMAC-SHA512, the
// others HMAC-SHA256. Signature checks gate only queue admission; state
// transitions still require provider verification.
type WebhookSignatureService struct{}

// NewWebhookSignatureService creates a new WebhookSignatureService.
func NewWebhookSignatureService() *WebhookSignatureService {
	return &WebhookSignatureService{}
}

func sign(newHash func() hash.Hash, secret string, body []byte) string {
	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignSHA256 computes lowercase hex HMAC-SHA256 of body.
func (s *WebhookSignatureService) SignSHA256(secret string, body []byte) string {
	return sign(sha256.New, secret, body)
}

// SignSHA512 computes lowercase hex HMAC-SHA512 of body.
func (s *WebhookSignatureService) SignSHA512(secret string, body []byte) string {
	return sign(sha512.New, secret, body)
}

// VerifySHA256 checks an HMAC-SHA256 signature in constant time.
func (s *WebhookSignatureService) VerifySHA256(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(s.SignSHA256(secret, body)), []byte(signature))
}

// VerifySHA512 checks an HMAC-SHA512 signature in constant time.
func (s *WebhookSignatureService) VerifySHA512(secret string, body []byte, signature string) bool {
	return hmac.Equal([]byte(s.SignSHA512(secret, body)), []byte(signature))
}
