package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

// SignatureHeader carries the storefront's base64 HMAC-SHA256 of the raw
// request body.
const SignatureHeader = "X-Shopify-Hmac-Sha256"

// ErrMissingSecret is returned when an authenticator is built without a
// shared secret.
var ErrMissingSecret = errors.New("webhook secret is not configured")

// Authenticator verifies that webhook bodies were signed by the storefront
// with the shared secret it was constructed with.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator for secret. An empty secret is
// rejected so a misconfigured process fails at startup, not per request.
func NewAuthenticator(secret string) (*Authenticator, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Authenticator{secret: []byte(secret)}, nil
}

// Verify checks signature against the raw, undecoded body. On failure the
// returned reason explains why; on success it is empty.
func (a *Authenticator) Verify(body []byte, signature string) (bool, string) {
	if a == nil {
		return VerifySignature(body, signature, nil)
	}
	return VerifySignature(body, signature, a.secret)
}

// VerifySignature recomputes the base64 HMAC-SHA256 of body with secret
// and compares it to signature in constant time.
func VerifySignature(body []byte, signature string, secret []byte) (bool, string) {
	if signature == "" {
		return false, "missing " + SignatureHeader + " header"
	}
	if len(secret) == 0 {
		return false, ErrMissingSecret.Error()
	}
	expected := Sign(body, secret)
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return false, "signature mismatch"
	}
	return true, ""
}

// Sign returns the base64 HMAC-SHA256 of body, as the storefront sends it.
func Sign(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
