package cryptox

import "errors"

var (
	// ErrMalformedInput is returned by the KDF for empty password or salt.
	// It is fatal: the caller must not retry with the same inputs.
	ErrMalformedInput = errors.New("malformed kdf input")

	// ErrInvalidKeySize is returned when a key is not KeySize bytes long.
	ErrInvalidKeySize = errors.New("invalid key size")

	// ErrAuthFailed is returned when AEAD authentication fails. It is
	// deliberately uniform: wrong key and corrupt ciphertext are
	// indistinguishable to the caller.
	ErrAuthFailed = errors.New("authentication failed")
)
