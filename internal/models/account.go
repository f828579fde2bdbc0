// Package models defines the durable document shapes persisted through the
// document store: accounts, encrypted vaults and conversation records.
package models

import (
	"time"

	"github.com/dmitrijs2005/keyvault/internal/cryptox"
)

// Account is the public, durable account document. Immutable after creation
// except Verifier (replaced on password change). The KEM public key is never
// rotated.
type Account struct {
	ID           string
	Email        string
	KEMPublicKey []byte
	Salt         []byte
	Verifier     []byte
	CreatedAt    time.Time
}

// EncryptedVault is the at-rest form of an account's vault. Both fields are
// AEAD ciphertexts under the account's master key; the document is opaque to
// any reader lacking that key.
//
// The private key and the secret map are sealed independently so a future
// partial-update scheme can touch the map without re-encrypting the key.
type EncryptedVault struct {
	AccountID  string
	PrivateKey cryptox.Ciphertext
	SecretMap  cryptox.Ciphertext
}

// Clone returns a deep copy, so a caller can hold a snapshot while the
// original is re-sealed.
func (ev *EncryptedVault) Clone() *EncryptedVault {
	if ev == nil {
		return nil
	}
	c := &EncryptedVault{AccountID: ev.AccountID}
	c.PrivateKey = cloneCiphertext(ev.PrivateKey)
	c.SecretMap = cloneCiphertext(ev.SecretMap)
	return c
}

func cloneCiphertext(ct cryptox.Ciphertext) cryptox.Ciphertext {
	return cryptox.Ciphertext{
		IV:   append([]byte(nil), ct.IV...),
		Tag:  append([]byte(nil), ct.Tag...),
		Data: append([]byte(nil), ct.Data...),
	}
}
