// Package cryptox implements the symmetric primitives of the key-management
// core: the password KDF (Argon2id), the AEAD codec (AES-256-GCM) and small
// helpers for random material and secure wiping.
package cryptox

import (
	"crypto/sha256"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters. Fixed: the KDF never silently weakens them.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4

	// MasterKeySize is the derived master key length in bytes, which is
	// also the AEAD key size (AES-256).
	MasterKeySize = 32

	// SaltSize is the per-account salt length in bytes.
	SaltSize = 32
)

// DeriveMasterKey derives the symmetric master key from a password and a
// per-account salt. Deterministic: the same inputs always produce the same
// key, so login can reconstruct it without storing it anywhere.
func DeriveMasterKey(password []byte, salt []byte) ([]byte, error) {
	if len(password) == 0 || len(salt) == 0 {
		return nil, ErrMalformedInput
	}
	return argon2.IDKey(password, salt, argonTime, argonMemory, argonThreads, MasterKeySize), nil
}

// MakeVerifier computes the outer auth credential for a master key.
// The verifier may be stored server-side; it does not reveal the key.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}
