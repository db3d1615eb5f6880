package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	pbkdf2Iterations = 100000
	saltSize         = 16
	nonceSize        = 12
	keySize          = 32
	gcmTagSize       = 16
)

// ErrCiphertextTooShort indicates the stored value is shorter than salt+nonce+tag
var ErrCiphertextTooShort = errors.New("ciphertext too short")

// TokenCipher encrypts and decrypts OAuth token material with AES-256-GCM.
// The key is derived per value with PBKDF2-SHA256 from the configured secret
// and a random salt; the stored form is base64(salt + nonce + ciphertext).
type TokenCipher struct {
	secret string
}

// NewTokenCipher creates a cipher bound to the configured encryption secret.
func NewTokenCipher(secret string) *TokenCipher {
	return &TokenCipher{secret: secret}
}

// Encrypt encrypts a plaintext token value for storage.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	key := pbkdf2.Key([]byte(c.secret), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(plaintext), nil)

	out := make([]byte, 0, saltSize+nonceSize+len(ciphertext))
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, ciphertext...)

	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt decrypts a stored value produced by Encrypt. It returns an error
// for values that are not valid ciphertext; callers that must tolerate legacy
// plaintext rows fall back to the raw stored value on error.
func (c *TokenCipher) Decrypt(stored string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(stored)
	if err != nil {
		return "", fmt.Errorf("not base64 encoded: %w", err)
	}

	if len(data) < saltSize+nonceSize+gcmTagSize {
		return "", ErrCiphertextTooShort
	}

	salt := data[:saltSize]
	nonce := data[saltSize : saltSize+nonceSize]
	ciphertext := data[saltSize+nonceSize:]

	key := pbkdf2.Key([]byte(c.secret), salt, pbkdf2Iterations, keySize, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to create GCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("decryption failed: %w", err)
	}

	return string(plaintext), nil
}
