package vault

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/dmitrijs2005/keyvault/internal/models"
)

// Seal serializes and encrypts a vault under the master key. The KEM private
// key and the secret map become two independent ciphertexts.
func Seal(masterKey []byte, accountID string, v *Vault) (*models.EncryptedVault, error) {
	privCT, err := cryptox.Encrypt(masterKey, v.KEMPrivateKey)
	if err != nil {
		return nil, fmt.Errorf("private key seal error: %w", err)
	}

	serialized, err := json.Marshal(v.Secrets)
	if err != nil {
		return nil, fmt.Errorf("secret map serialization error: %w", err)
	}

	mapCT, err := cryptox.Encrypt(masterKey, serialized)
	if err != nil {
		return nil, fmt.Errorf("secret map seal error: %w", err)
	}

	return &models.EncryptedVault{
		AccountID:  accountID,
		PrivateKey: *privCT,
		SecretMap:  *mapCT,
	}, nil
}

// Open decrypts both vault fields with the master key. Any single failure
// yields ErrWrongPasswordOrCorrupt and no partially populated vault.
func Open(masterKey []byte, ev *models.EncryptedVault) (*Vault, error) {
	privateKey, err := cryptox.Decrypt(masterKey, &ev.PrivateKey)
	if err != nil {
		return nil, ErrWrongPasswordOrCorrupt
	}

	serialized, err := cryptox.Decrypt(masterKey, &ev.SecretMap)
	if err != nil {
		cryptox.WipeByteArray(privateKey)
		return nil, ErrWrongPasswordOrCorrupt
	}

	secrets := make(map[string][]byte)
	if err := json.Unmarshal(serialized, &secrets); err != nil {
		cryptox.WipeByteArray(privateKey)
		return nil, ErrWrongPasswordOrCorrupt
	}

	return &Vault{KEMPrivateKey: privateKey, Secrets: secrets}, nil
}
