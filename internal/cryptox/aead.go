package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

const (
	// NonceSize is the AES-GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the AES-GCM authentication tag length in bytes.
	TagSize = 16
)

// Ciphertext is the opaque AEAD output triple. It is safe to persist and
// relay; only the key holder can open it.
type Ciphertext struct {
	IV   []byte `json:"iv"`
	Tag  []byte `json:"tag"`
	Data []byte `json:"data"`
}

// Encrypt seals plaintext under key with AES-256-GCM. A fresh random nonce
// is generated on every call; callers cannot supply one, which is what keeps
// nonce reuse structurally impossible.
func Encrypt(key []byte, plaintext []byte) (*Ciphertext, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	iv := make([]byte, NonceSize)
	if _, err := rand.Read(iv); err != nil {
		return nil, fmt.Errorf("nonce generation error: %w", err)
	}

	sealed := aesgcm.Seal(nil, iv, plaintext, nil)

	return &Ciphertext{
		IV:   iv,
		Tag:  sealed[len(sealed)-TagSize:],
		Data: sealed[:len(sealed)-TagSize],
	}, nil
}

// Decrypt opens a ciphertext produced by Encrypt. It fails closed: any tag
// mismatch yields ErrAuthFailed and no partial plaintext.
func Decrypt(key []byte, ct *Ciphertext) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if ct == nil || len(ct.IV) != NonceSize || len(ct.Tag) != TagSize {
		return nil, ErrAuthFailed
	}

	sealed := make([]byte, 0, len(ct.Data)+len(ct.Tag))
	sealed = append(sealed, ct.Data...)
	sealed = append(sealed, ct.Tag...)

	plaintext, err := aesgcm.Open(nil, ct.IV, sealed, nil)
	if err != nil {
		return nil, ErrAuthFailed
	}

	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != MasterKeySize {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrInvalidKeySize, len(key), MasterKeySize)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
