// Package kem wraps the post-quantum key encapsulation mechanism used for
// conversation-key agreement: ML-KEM-768. Keys, ciphertexts and shared
// secrets are handled as raw byte slices so they can be stored inside the
// encrypted vault and relayed through the conversation record.
package kem

import (
	"crypto/sha512"
	"fmt"
	"io"

	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/hkdf"
)

const (
	// PublicKeySize is the size of an ML-KEM-768 public key in bytes.
	PublicKeySize = 1184
	// PrivateKeySize is the size of an ML-KEM-768 private key in bytes.
	PrivateKeySize = 2400
	// CiphertextSize is the size of an ML-KEM-768 ciphertext in bytes.
	CiphertextSize = 1088
	// SharedSecretSize is the size of the raw KEM shared secret in bytes.
	SharedSecretSize = 32

	// ConversationKeySize is the derived conversation key length, matching
	// the AEAD key size used for message encryption.
	ConversationKeySize = 32
)

// hkdfContext is the domain-separation prefix for conversation-key
// derivation.
const hkdfContext = "keyvault:conversation:v1"

// GenerateKeypair creates a fresh ML-KEM-768 keypair and returns the raw
// encoded public and private keys.
func GenerateKeypair() (publicKey, privateKey []byte, err error) {
	pub, priv, err := mlkem768.GenerateKeyPair(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("kem keypair generation error: %w", err)
	}

	// MarshalBinary never fails for keys produced by GenerateKeyPair.
	publicKey, _ = pub.MarshalBinary()
	privateKey, _ = priv.MarshalBinary()

	return publicKey, privateKey, nil
}

// Encapsulate produces a shared secret and the ciphertext that transports it
// to the holder of the matching private key. No private material is ever
// sent: the ciphertext alone is useless to third parties.
func Encapsulate(publicKey []byte) (sharedSecret, ciphertext []byte, err error) {
	if len(publicKey) != PublicKeySize {
		return nil, nil, ErrInvalidPublicKeySize
	}

	var pub mlkem768.PublicKey
	if err := pub.Unpack(publicKey); err != nil {
		return nil, nil, fmt.Errorf("public key unpack error: %w", err)
	}

	ciphertext = make([]byte, CiphertextSize)
	sharedSecret = make([]byte, SharedSecretSize)
	pub.EncapsulateTo(ciphertext, sharedSecret, nil)

	return sharedSecret, ciphertext, nil
}

// Decapsulate recovers the shared secret from a ciphertext. Deterministic:
// the same private key and ciphertext always yield the same secret, so a
// retried handshake is safe.
func Decapsulate(privateKey, ciphertext []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}
	if len(ciphertext) != CiphertextSize {
		return nil, ErrInvalidCiphertextSize
	}

	var priv mlkem768.PrivateKey
	if err := priv.Unpack(privateKey); err != nil {
		return nil, fmt.Errorf("private key unpack error: %w", err)
	}

	sharedSecret := make([]byte, SharedSecretSize)
	priv.DecapsulateTo(sharedSecret, ciphertext)

	return sharedSecret, nil
}

// PublicKeyFromPrivate extracts the embedded public key from an ML-KEM-768
// private key.
func PublicKeyFromPrivate(privateKey []byte) ([]byte, error) {
	if len(privateKey) != PrivateKeySize {
		return nil, ErrInvalidPrivateKeySize
	}

	// The public key is embedded at offset 1152 of circl's encoding.
	const offset = PrivateKeySize - PublicKeySize - 64
	publicKey := make([]byte, PublicKeySize)
	copy(publicKey, privateKey[offset:offset+PublicKeySize])
	return publicKey, nil
}

// DeriveConversationKey expands a raw KEM shared secret into the symmetric
// conversation key via HKDF-SHA-512, bound to the conversation id for domain
// separation. This is the explicit derivation step between the KEM output
// and the AEAD key size; both handshake roles derive the identical key.
func DeriveConversationKey(sharedSecret []byte, conversationID string) ([]byte, error) {
	info := append([]byte(hkdfContext+"|"), []byte(conversationID)...)

	reader := hkdf.New(sha512.New, sharedSecret, nil, info)
	key := make([]byte, ConversationKeySize)
	if _, err := io.ReadFull(reader, key); err != nil {
		return nil, fmt.Errorf("conversation key derivation error: %w", err)
	}

	return key, nil
}
