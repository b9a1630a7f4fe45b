// File: internal/infra/security/sealer.go
package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"
)

// sealedPrefix marks a value produced by Seal. Values without it are treated
// as plaintext written before a key was configured.
const sealedPrefix = "sealed:v1:"

var ErrUnseal = errors.New("security: cannot unseal value")

// Sealer encrypts short secrets with AES-GCM and a random nonce per value.
type Sealer struct {
	gcm cipher.AEAD
}

// NewSealer accepts a 16, 24 or 32 byte key (AES-128/192/256).
func NewSealer(key string) (*Sealer, error) {
	k := []byte(key)
	if n := len(k); n != 16 && n != 24 && n != 32 {
		return nil, fmt.Errorf("seal key must be 16, 24, or 32 bytes; got %d", n)
	}
	block, err := aes.NewCipher(k)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return &Sealer{gcm: gcm}, nil
}

// Seal returns "sealed:v1:" + base64(nonce || ciphertext). aad binds the value
// to its owner, e.g. the api key the secret belongs to.
func (s *Sealer) Seal(plaintext, aad string) (string, error) {
	nonce := make([]byte, s.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}
	ct := s.gcm.Seal(nonce, nonce, []byte(plaintext), []byte(aad))
	return sealedPrefix + base64.StdEncoding.EncodeToString(ct), nil
}

// Open reverses Seal. Unprefixed input is returned unchanged.
func (s *Sealer) Open(value, aad string) (string, error) {
	b64, ok := strings.CutPrefix(value, sealedPrefix)
	if !ok {
		return value, nil
	}
	data, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		return "", fmt.Errorf("%w: base64: %v", ErrUnseal, err)
	}
	ns := s.gcm.NonceSize()
	if len(data) < ns {
		return "", fmt.Errorf("%w: ciphertext too short", ErrUnseal)
	}
	pt, err := s.gcm.Open(nil, data[:ns], data[ns:], []byte(aad))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnseal, err)
	}
	return string(pt), nil
}

// IsSealed reports whether value came out of Seal.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, sealedPrefix)
}
