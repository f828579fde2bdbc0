package store

import (
	"context"

	"github.com/dmitrijs2005/keyvault/internal/models"
)

// vaultBlobStore routes encrypted-vault reads and writes to a dedicated
// VaultStore while delegating every other document to the base store.
type vaultBlobStore struct {
	DocumentStore
	blobs VaultStore
}

// WithVaultBlobs composes a document store whose encrypted vaults live in a
// separate backend, typically object storage.
func WithVaultBlobs(base DocumentStore, blobs VaultStore) DocumentStore {
	return &vaultBlobStore{DocumentStore: base, blobs: blobs}
}

func (s *vaultBlobStore) PutEncryptedVault(ctx context.Context, ev *models.EncryptedVault) error {
	return s.blobs.PutEncryptedVault(ctx, ev)
}

func (s *vaultBlobStore) GetEncryptedVault(ctx context.Context, accountID string) (*models.EncryptedVault, error) {
	return s.blobs.GetEncryptedVault(ctx, accountID)
}
