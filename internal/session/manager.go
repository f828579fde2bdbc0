// Package session owns the unlocked vault for the lifetime of a session.
// The Manager is the single mutation surface for the secret map; every
// mutation is serialized behind one lock, which is what prevents two
// concurrent key exchanges from clobbering each other's write.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/dmitrijs2005/keyvault/internal/logging"
	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/store"
	"github.com/dmitrijs2005/keyvault/internal/vault"
)

// Manager holds the session vault: the master key and the open vault.
// Its existence in the unlocked state is equivalent to "logged in";
// Lock destroys it regardless of any outer auth token.
type Manager struct {
	store  store.VaultStore
	logger logging.Logger

	mu        sync.RWMutex
	accountID string
	masterKey []byte
	vlt       *vault.Vault
}

func NewManager(st store.VaultStore, logger logging.Logger) *Manager {
	return &Manager{
		store:  st,
		logger: logger.With("module", "session"),
	}
}

// Unlock opens the encrypted vault under the master key and installs it as
// the active session vault. On failure the manager is left locked, so the
// caller can never end up with an auth token but no usable session.
func (m *Manager) Unlock(accountID string, masterKey []byte, ev *models.EncryptedVault) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, err := vault.Open(masterKey, ev)
	if err != nil {
		m.lockLocked()
		return err
	}

	m.lockLocked()
	m.accountID = accountID
	m.masterKey = append([]byte(nil), masterKey...)
	m.vlt = v

	return nil
}

// Lock wipes the session vault. Idempotent.
func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockLocked()
}

// lockLocked destroys key material; callers must hold mu.
func (m *Manager) lockLocked() {
	cryptox.WipeByteArray(m.masterKey)
	m.masterKey = nil
	if m.vlt != nil {
		m.vlt.Wipe()
		m.vlt = nil
	}
	m.accountID = ""
}

// IsUnlocked reports whether a session vault exists.
func (m *Manager) IsUnlocked() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.vlt != nil
}

// AccountID returns the account owning the active session, or "" if locked.
func (m *Manager) AccountID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.accountID
}

// GetSecret returns a copy of the shared secret for a conversation. Reads
// interleave only between serialized mutations, never mid-mutation, so the
// observed map is always consistent.
func (m *Manager) GetSecret(conversationID string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.vlt == nil {
		return nil, false
	}

	secret, ok := m.vlt.Secrets[conversationID]
	if !ok {
		return nil, false
	}
	return append([]byte(nil), secret...), true
}

// KEMPrivateKey returns a copy of the session's KEM private key.
func (m *Manager) KEMPrivateKey() ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.vlt == nil {
		return nil, ErrVaultLocked
	}
	return append([]byte(nil), m.vlt.KEMPrivateKey...), nil
}

// MutateSecrets applies fn to the secret map, re-seals the whole vault
// under the current master key and persists it. Strictly serialized: a
// second mutation queues behind the lock instead of reading a stale
// snapshot.
//
// If persistence fails after the mutation was applied, the in-memory map
// keeps the update (the caller already needs the new secret) and the error
// wraps store.ErrPersistence so the caller can retry the write; the durable
// copy transiently lags the in-memory one.
func (m *Manager) MutateSecrets(ctx context.Context, fn func(secrets map[string][]byte)) (*models.EncryptedVault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vlt == nil {
		return nil, ErrVaultLocked
	}

	fn(m.vlt.Secrets)

	ev, err := vault.Seal(m.masterKey, m.accountID, m.vlt)
	if err != nil {
		return nil, fmt.Errorf("vault seal error: %w", err)
	}

	if err := m.store.PutEncryptedVault(ctx, ev); err != nil {
		m.logger.Warn(ctx, "vault persistence failed, in-memory copy is ahead", "account", m.accountID)
		return ev, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return ev, nil
}

// ChangeMasterKey re-seals the whole vault under a new master key, persists
// it, verifies the persisted copy decrypts, and only then swaps the key held
// in memory. Runs inside the same serialization point as MutateSecrets, so
// it cannot interleave with an in-flight secret-map update.
func (m *Manager) ChangeMasterKey(ctx context.Context, newMasterKey []byte) (*models.EncryptedVault, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.vlt == nil {
		return nil, ErrVaultLocked
	}

	ev, err := vault.Seal(newMasterKey, m.accountID, m.vlt)
	if err != nil {
		return nil, fmt.Errorf("vault seal error: %w", err)
	}

	if err := m.store.PutEncryptedVault(ctx, ev); err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	// Read back and prove the durable copy opens under the new key before
	// the old key is dropped.
	persisted, err := m.store.GetEncryptedVault(ctx, m.accountID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	check, err := vault.Open(newMasterKey, persisted)
	if err != nil {
		return nil, fmt.Errorf("persisted vault verification error: %w", err)
	}
	check.Wipe()

	cryptox.WipeByteArray(m.masterKey)
	m.masterKey = append([]byte(nil), newMasterKey...)

	m.logger.Info(ctx, "master key rotated", "account", m.accountID)
	return ev, nil
}
