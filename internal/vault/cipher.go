// Package vault encrypts stored subscription credentials and audits every
// access to them.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
)

// MinKeyLength is the minimum accepted vault key length. Shorter keys are a
// configuration error and fail at construction, not per call.
const MinKeyLength = 32

// ErrKeyTooShort indicates the configured vault key is under MinKeyLength.
var ErrKeyTooShort = fmt.Errorf("vault: key must be at least %d characters", MinKeyLength)

// ErrMalformedCiphertext indicates a ciphertext that cannot be decoded or
// authenticated.
var ErrMalformedCiphertext = errors.New("vault: malformed ciphertext")

// Cipher seals and opens credential secrets with AES-256-GCM. Ciphertexts are
// opaque strings: base64(nonce || sealed).
type Cipher struct {
	aead cipher.AEAD
}

// NewCipher derives the AES key from the configured vault key string.
func NewCipher(key string) (*Cipher, error) {
	if len(key) < MinKeyLength {
		return nil, ErrKeyTooShort
	}
	sum := sha256.Sum256([]byte(key))
	block, errBlock := aes.NewCipher(sum[:])
	if errBlock != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", errBlock)
	}
	aead, errGCM := cipher.NewGCM(block)
	if errGCM != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", errGCM)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt seals the plaintext with a fresh random nonce. Encrypting the same
// plaintext twice yields different ciphertexts.
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("vault: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt and authenticates the ciphertext.
func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	raw, errDecode := base64.StdEncoding.DecodeString(ciphertext)
	if errDecode != nil {
		return "", ErrMalformedCiphertext
	}
	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return "", ErrMalformedCiphertext
	}
	plain, errOpen := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if errOpen != nil {
		return "", ErrMalformedCiphertext
	}
	return string(plain), nil
}
