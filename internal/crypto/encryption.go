package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"sync"
)

// FieldEncryptor provides AES-256-GCM encryption for sensitive KYC payloads
// and HMAC signing for activity events.
type FieldEncryptor struct {
	keys           map[int][]byte
	currentVersion int
	hmacSecret     []byte
	mu             sync.RWMutex
}

// NewFieldEncryptor creates a new field encryptor with versioned keys
func NewFieldEncryptor(keysBase64 []string, currentVersion int, hmacSecretBase64 string) (*FieldEncryptor, error) {
	if len(keysBase64) == 0 {
		return nil, errors.New("at least one encryption key is required")
	}

	keys := make(map[int][]byte)
	for i, keyB64 := range keysBase64 {
		key, err := base64.StdEncoding.DecodeString(keyB64)
		if err != nil {
			return nil, fmt.Errorf("failed to decode key %d: %w", i+1, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("key %d must be 32 bytes for AES-256, got %d", i+1, len(key))
		}
		keys[i+1] = key
	}

	if _, exists := keys[currentVersion]; !exists {
		return nil, fmt.Errorf("current version %d not found in keys", currentVersion)
	}

	hmacSecret, err := base64.StdEncoding.DecodeString(hmacSecretBase64)
	if err != nil {
		return nil, fmt.Errorf("failed to decode HMAC secret: %w", err)
	}

	return &FieldEncryptor{
		keys:           keys,
		currentVersion: currentVersion,
		hmacSecret:     hmacSecret,
	}, nil
}

// Encrypt encrypts plaintext using AES-256-GCM with the current key version
func (e *FieldEncryptor) Encrypt(plaintext []byte) (string, int, error) {
	e.mu.RLock()
	key := e.keys[e.currentVersion]
	version := e.currentVersion
	e.mu.RUnlock()

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", 0, fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := aesGCM.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), version, nil
}

// Decrypt decrypts ciphertext using the specified key version
func (e *FieldEncryptor) Decrypt(ciphertext string, keyVersion int) ([]byte, error) {
	e.mu.RLock()
	key, exists := e.keys[keyVersion]
	e.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("key version %d not found", keyVersion)
	}

	decoded, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	nonceSize := aesGCM.NonceSize()
	if len(decoded) < nonceSize {
		return nil, errors.New("ciphertext too short")
	}

	nonce, ciphertextBytes := decoded[:nonceSize], decoded[nonceSize:]
	plaintext, err := aesGCM.Open(nil, nonce, ciphertextBytes, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt: %w", err)
	}

	return plaintext, nil
}

// HMAC creates an HMAC-SHA256 signature
func (e *FieldEncryptor) HMAC(data string) string {
	h := hmac.New(sha256.New, e.hmacSecret)
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyHMAC verifies an HMAC signature
func (e *FieldEncryptor) VerifyHMAC(data, signature string) bool {
	expected := e.HMAC(data)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// CurrentKeyVersion returns the current encryption key version
func (e *FieldEncryptor) CurrentKeyVersion() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.currentVersion
}

// SignActivity creates a signature binding the critical fields of an
// activity event for tamper detection.
func (e *FieldEncryptor) SignActivity(eventID, actorID, action, timestamp, result string) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", eventID, actorID, action, timestamp, result)
	return e.HMAC(data)
}

// VerifyActivity verifies an activity event signature.
func (e *FieldEncryptor) VerifyActivity(eventID, actorID, action, timestamp, result, signature string) bool {
	data := fmt.Sprintf("%s|%s|%s|%s|%s", eventID, actorID, action, timestamp, result)
	return e.VerifyHMAC(data, signature)
}
