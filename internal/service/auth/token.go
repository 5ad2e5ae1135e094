package auth

import (
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/nkiryanov/nihondrill/internal/service/auth/signer"
)

// Length of random part of the bearer secret
const secretRandomBytes = 16

// newBearerSecret mixes random bytes with random uuid and hashes the result
// Format: hex(sha256(hex(random) + ":" + uuid without dashes))
func newBearerSecret() (string, error) {
	b, err := signer.RandomBytes(secretRandomBytes)
	if err != nil {
		return "", err
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return "", fmt.Errorf("error while generating uuid. Err: %w", err)
	}

	raw := hex.EncodeToString(b) + ":" + hex.EncodeToString(id[:])
	return hex.EncodeToString(signer.Hash([]byte(raw))), nil
}
