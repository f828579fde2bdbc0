// Package store defines the abstract document store the key-management core
// persists through, plus an in-memory implementation. Each document type
// (account, encrypted vault, conversation record) is read and written as a
// unit; strong read-after-write consistency is assumed per document, and no
// cross-document transaction is required by the protocol.
package store

import (
	"context"

	"github.com/dmitrijs2005/keyvault/internal/models"
)

// VaultStore is the subset of the document store that persists encrypted
// vaults. Separated so vault blobs can be placed in a different backend
// (e.g. object storage) than the rest of the documents.
type VaultStore interface {
	PutEncryptedVault(ctx context.Context, ev *models.EncryptedVault) error
	GetEncryptedVault(ctx context.Context, accountID string) (*models.EncryptedVault, error)
}

// DocumentStore is the full persistence surface consumed by the core.
type DocumentStore interface {
	VaultStore

	PutAccount(ctx context.Context, account *models.Account) error
	GetAccount(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	UpdateAccountVerifier(ctx context.Context, accountID string, verifier []byte) error
	DeleteAccount(ctx context.Context, accountID string) error

	PutConversationRecord(ctx context.Context, rec *models.ConversationRecord) error
	GetConversationRecord(ctx context.Context, id string) (*models.ConversationRecord, error)
	SetPendingExchange(ctx context.Context, conversationID string, pe *models.PendingExchange) error

	// ClearPendingExchange removes the pending exchange addressed to the
	// given recipient. The removal is conditional and atomic: if no such
	// pending exchange exists the call returns ErrNotFound, which is what
	// enforces at-most-once consumption.
	ClearPendingExchange(ctx context.Context, conversationID, recipientAccountID string) error
}
