package aggregate

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// signingKeyLength is the derived key size in bytes.
const signingKeyLength = 32

// ErrEmptyMasterSecret rejects key derivation from an empty secret.
var ErrEmptyMasterSecret = errors.New("aggregate: master secret is empty")

// DeriveSigningKey derives a per-scope signing key from a master secret via
// HKDF-SHA-256. Scopes (a tenant, a chain, an environment) get independent
// keys so the master secret itself is never handed to signers.
func DeriveSigningKey(master []byte, scope string) ([]byte, error) {
	if len(master) == 0 {
		return nil, ErrEmptyMasterSecret
	}

	r := hkdf.New(sha256.New, master, nil, []byte("aegis/aggregate/"+scope))
	key := make([]byte, signingKeyLength)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("aggregate: derive signing key: %w", err)
	}
	return key, nil
}
