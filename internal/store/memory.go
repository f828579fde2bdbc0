package store

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/keyvault/internal/models"
)

// InMemoryStore is a DocumentStore backed by maps. Used in tests and by the
// CLI when no database is configured. All returned documents are copies, so
// callers can mutate them freely.
type InMemoryStore struct {
	mu            sync.RWMutex
	accounts      map[string]*models.Account
	vaults        map[string]*models.EncryptedVault
	conversations map[string]*models.ConversationRecord
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:      make(map[string]*models.Account),
		vaults:        make(map[string]*models.EncryptedVault),
		conversations: make(map[string]*models.ConversationRecord),
	}
}

func (s *InMemoryStore) PutAccount(ctx context.Context, account *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email && existing.ID != account.ID {
			return ErrAlreadyExists
		}
	}

	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *InMemoryStore) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAccount(account), nil
}

func (s *InMemoryStore) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.accounts {
		if account.Email == email {
			return copyAccount(account), nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) UpdateAccountVerifier(ctx context.Context, accountID string, verifier []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.accounts[accountID]
	if !ok {
		return ErrNotFound
	}
	account.Verifier = append([]byte(nil), verifier...)
	return nil
}

func (s *InMemoryStore) DeleteAccount(ctx context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accounts[accountID]; !ok {
		return ErrNotFound
	}
	delete(s.accounts, accountID)
	delete(s.vaults, accountID)
	return nil
}

func (s *InMemoryStore) PutEncryptedVault(ctx context.Context, ev *models.EncryptedVault) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.vaults[ev.AccountID] = ev.Clone()
	return nil
}

func (s *InMemoryStore) GetEncryptedVault(ctx context.Context, accountID string) (*models.EncryptedVault, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.vaults[accountID]
	if !ok {
		return nil, ErrNotFound
	}
	return ev.Clone(), nil
}

func (s *InMemoryStore) PutConversationRecord(ctx context.Context, rec *models.ConversationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[rec.ID]; ok {
		return ErrAlreadyExists
	}
	s.conversations[rec.ID] = copyConversation(rec)
	return nil
}

func (s *InMemoryStore) GetConversationRecord(ctx context.Context, id string) (*models.ConversationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.conversations[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyConversation(rec), nil
}

func (s *InMemoryStore) SetPendingExchange(ctx context.Context, conversationID string, pe *models.PendingExchange) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	rec.Pending = copyPending(pe)
	return nil
}

func (s *InMemoryStore) ClearPendingExchange(ctx context.Context, conversationID, recipientAccountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.conversations[conversationID]
	if !ok {
		return ErrNotFound
	}
	if rec.Pending == nil || rec.Pending.RecipientAccountID != recipientAccountID {
		return ErrNotFound
	}
	rec.Pending = nil
	return nil
}

func copyAccount(a *models.Account) *models.Account {
	c := *a
	c.KEMPublicKey = append([]byte(nil), a.KEMPublicKey...)
	c.Salt = append([]byte(nil), a.Salt...)
	c.Verifier = append([]byte(nil), a.Verifier...)
	return &c
}

func copyConversation(r *models.ConversationRecord) *models.ConversationRecord {
	c := *r
	c.Pending = copyPending(r.Pending)
	return &c
}

func copyPending(pe *models.PendingExchange) *models.PendingExchange {
	if pe == nil {
		return nil
	}
	return &models.PendingExchange{
		RecipientAccountID: pe.RecipientAccountID,
		KEMCiphertext:      append([]byte(nil), pe.KEMCiphertext...),
	}
}
