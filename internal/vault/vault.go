// Package vault defines the plaintext vault structure and the codec that
// seals it to, and opens it from, its encrypted at-rest form.
//
// A Vault only ever exists in memory. Everything that leaves this package
// for persistence goes through Seal.
package vault

import (
	"github.com/dmitrijs2005/keyvault/internal/cryptox"
)

// Vault holds an account's KEM private key and the per-conversation shared
// secrets, keyed by conversation id.
type Vault struct {
	KEMPrivateKey []byte
	Secrets       map[string][]byte
}

// NewEmpty returns a vault holding the given private key and no secrets.
func NewEmpty(kemPrivateKey []byte) *Vault {
	return &Vault{
		KEMPrivateKey: kemPrivateKey,
		Secrets:       make(map[string][]byte),
	}
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	c := &Vault{
		KEMPrivateKey: append([]byte(nil), v.KEMPrivateKey...),
		Secrets:       make(map[string][]byte, len(v.Secrets)),
	}
	for id, secret := range v.Secrets {
		c.Secrets[id] = append([]byte(nil), secret...)
	}
	return c
}

// Wipe zeroes all key material held by the vault. Best effort: copies made
// by the runtime may survive, but the primary buffers do not.
func (v *Vault) Wipe() {
	cryptox.WipeByteArray(v.KEMPrivateKey)
	v.KEMPrivateKey = nil
	for id, secret := range v.Secrets {
		cryptox.WipeByteArray(secret)
		delete(v.Secrets, id)
	}
}
