package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEncryptor(t *testing.T) *FieldEncryptor {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	secret := make([]byte, 32)
	_, err = rand.Read(secret)
	require.NoError(t, err)

	enc, err := NewFieldEncryptor(
		[]string{base64.StdEncoding.EncodeToString(key)},
		1,
		base64.StdEncoding.EncodeToString(secret),
	)
	require.NoError(t, err)
	return enc
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc := testEncryptor(t)

	plaintext := []byte(`{"id_number":"1234567890","full_name":"Alice Johnson"}`)
	ciphertext, version, err := enc.Encrypt(plaintext)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.NotContains(t, ciphertext, "Alice")

	decrypted, err := enc.Decrypt(ciphertext, version)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestDecryptUnknownVersion(t *testing.T) {
	enc := testEncryptor(t)
	ciphertext, _, err := enc.Encrypt([]byte("data"))
	require.NoError(t, err)

	_, err = enc.Decrypt(ciphertext, 2)
	assert.Error(t, err)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	enc := testEncryptor(t)
	ciphertext, version, err := enc.Encrypt([]byte("data"))
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	require.NoError(t, err)
	raw[len(raw)-1] ^= 0xFF
	tampered := base64.StdEncoding.EncodeToString(raw)

	_, err = enc.Decrypt(tampered, version)
	assert.Error(t, err)
}

func TestNewFieldEncryptorValidation(t *testing.T) {
	_, err := NewFieldEncryptor(nil, 1, "")
	assert.Error(t, err)

	shortKey := base64.StdEncoding.EncodeToString([]byte("too short"))
	_, err = NewFieldEncryptor([]string{shortKey}, 1, "")
	assert.Error(t, err)

	key := base64.StdEncoding.EncodeToString(make([]byte, 32))
	_, err = NewFieldEncryptor([]string{key}, 2, "")
	assert.Error(t, err)
}

func TestActivitySignature(t *testing.T) {
	enc := testEncryptor(t)

	sig := enc.SignActivity("event-1", "actor-1", "KYC_APPROVE", "2024-05-01T10:00:00Z", "SUCCESS")
	assert.True(t, enc.VerifyActivity("event-1", "actor-1", "KYC_APPROVE", "2024-05-01T10:00:00Z", "SUCCESS", sig))

	// Any field change breaks verification.
	assert.False(t, enc.VerifyActivity("event-1", "actor-1", "KYC_REJECT", "2024-05-01T10:00:00Z", "SUCCESS", sig))
	assert.False(t, enc.VerifyActivity("event-1", "actor-2", "KYC_APPROVE", "2024-05-01T10:00:00Z", "SUCCESS", sig))
	assert.False(t, enc.VerifyActivity("event-1", "actor-1", "KYC_APPROVE", "2024-05-01T10:00:01Z", "SUCCESS", sig))
	assert.False(t, enc.VerifyActivity("event-1", "actor-1", "KYC_APPROVE", "2024-05-01T10:00:00Z", "FAILURE", sig))
}

func TestHMACDeterministic(t *testing.T) {
	enc := testEncryptor(t)
	assert.Equal(t, enc.HMAC("payload"), enc.HMAC("payload"))
	assert.NotEqual(t, enc.HMAC("payload"), enc.HMAC("payload2"))
	assert.True(t, enc.VerifyHMAC("payload", enc.HMAC("payload")))
	assert.False(t, enc.VerifyHMAC("payload", "bogus"))
}
