// Package signer turns bearer secrets into storable signatures.
//
// A signature is HMAC-SHA256 of the secret keyed by the process-wide signing key,
// hex encoded. Only signatures are persisted, equality of signatures grants a session.
package signer

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/nkiryanov/nihondrill/internal/apperrors"
)

// Minimum signing key length in bytes
const KeyLen = 32

type Signer struct {
	key []byte
}

// New returns signer keyed with key
// Fails with apperrors.ErrSigningKeyTooShort if key is shorter than KeyLen
func New(key []byte) (*Signer, error) {
	if len(key) < KeyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want at least %d", apperrors.ErrSigningKeyTooShort, len(key), KeyLen)
	}

	k := make([]byte, len(key))
	copy(k, key)

	return &Signer{key: k}, nil
}

// Sign returns hex encoded HMAC-SHA256 of the secret
func (s *Signer) Sign(secret string) string {
	m := hmac.New(sha256.New, s.key)
	_, _ = m.Write([]byte(secret))
	return hex.EncodeToString(m.Sum(nil))
}

// DeriveKey derives 32 bytes key bound to the purpose from the signing key
func (s *Signer) DeriveKey(purpose string) ([]byte, error) {
	r := hkdf.New(sha256.New, s.key, nil, []byte(purpose))

	key := make([]byte, KeyLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("error while deriving key. Err: %w", err)
	}

	return key, nil
}

// Hash returns SHA-256 of b, no key involved
func Hash(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}

// RandomBytes returns n bytes read from crypto/rand
func RandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("error while reading random bytes. Err: %w", err)
	}
	return b, nil
}
