package kem

import "errors"

var (
	// ErrInvalidPublicKeySize is returned when a public key is not
	// PublicKeySize bytes long.
	ErrInvalidPublicKeySize = errors.New("invalid public key size")

	// ErrInvalidPrivateKeySize is returned when a private key is not
	// PrivateKeySize bytes long.
	ErrInvalidPrivateKeySize = errors.New("invalid private key size")

	// ErrInvalidCiphertextSize is returned when a KEM ciphertext is not
	// CiphertextSize bytes long.
	ErrInvalidCiphertextSize = errors.New("invalid kem ciphertext size")
)
