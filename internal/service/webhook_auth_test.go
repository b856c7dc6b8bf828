package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthenticatorRequiresSecret(t *testing.T) {
	a, err := NewAuthenticator("")
	assert.Nil(t, a)
	assert.ErrorIs(t, err, ErrMissingSecret)
}

func TestAuthenticatorVerify(t *testing.T) {
	a, err := NewAuthenticator("hush")
	require.NoError(t, err)
	body := []byte(`{"id": 1, "line_items": []}`)
	sig := Sign(body, []byte("hush"))

	ok, reason := a.Verify(body, sig)
	assert.True(t, ok)
	assert.Empty(t, reason)

	ok, reason = a.Verify(body, "")
	assert.False(t, ok)
	assert.Equal(t, "missing X-Shopify-Hmac-Sha256 header", reason)

	ok, reason = a.Verify(body, Sign(body, []byte("other")))
	assert.False(t, ok)
	assert.Equal(t, "signature mismatch", reason)
}

func TestVerifyUsesRawBytes(t *testing.T) {
	secret := []byte("hush")
	raw := []byte(`{"id":1,  "customer": {"email":"a@b.c"}}`)
	reencoded := []byte(`{"customer":{"email":"a@b.c"},"id":1}`)

	ok, _ := VerifySignature(raw, Sign(raw, secret), secret)
	assert.True(t, ok)
	ok, reason := VerifySignature(reencoded, Sign(raw, secret), secret)
	assert.False(t, ok)
	assert.Equal(t, "signature mismatch", reason)
}

func TestVerifyWithoutSecret(t *testing.T) {
	ok, reason := VerifySignature([]byte("x"), "c2ln", nil)
	assert.False(t, ok)
	assert.Equal(t, ErrMissingSecret.Error(), reason)

	var a *Authenticator
	ok, _ = a.Verify([]byte("x"), "c2ln")
	assert.False(t, ok)
}

func TestSignKnownVector(t *testing.T) {
	// echo -n 'hello' | openssl dgst -sha256 -hmac 'key' -binary | base64
	assert.Equal(t, "kwezuRXvtRcf8U2MtV+8x5jGwO8UVtZt7RpqpyOli3s=", Sign([]byte("hello"), []byte("key")))
}
