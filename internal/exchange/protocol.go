// Package exchange implements the two-sided KEM handshake that gives both
// conversation parties the same symmetric conversation key. The initiator
// encapsulates against the recipient's public key; the responder
// decapsulates the ciphertext relayed through the shared conversation
// record. No private material ever crosses the store.
package exchange

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/dmitrijs2005/keyvault/internal/kem"
	"github.com/dmitrijs2005/keyvault/internal/logging"
	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/session"
	"github.com/dmitrijs2005/keyvault/internal/store"
)

type Protocol struct {
	session *session.Manager
	store   store.DocumentStore
	logger  logging.Logger
}

func NewProtocol(sm *session.Manager, st store.DocumentStore, logger logging.Logger) *Protocol {
	return &Protocol{
		session: sm,
		store:   st,
		logger:  logger.With("module", "exchange"),
	}
}

// Initiate runs the initiator side of the handshake: encapsulate against
// the recipient's public key, store the derived conversation key in the
// session vault, then create the conversation record carrying the KEM
// ciphertext as a pending exchange. Returns the ciphertext that was
// attached.
//
// Refuses to run for an already-established conversation; a second
// handshake would produce a different key on each side.
func (p *Protocol) Initiate(ctx context.Context, conversationID, recipientAccountID string, recipientPublicKey []byte) ([]byte, error) {
	if !p.session.IsUnlocked() {
		return nil, session.ErrVaultLocked
	}

	_, err := p.store.GetConversationRecord(ctx, conversationID)
	if err == nil {
		return nil, ErrConversationExists
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("conversation lookup error: %w", err)
	}

	sharedSecret, kemCiphertext, err := kem.Encapsulate(recipientPublicKey)
	if err != nil {
		return nil, fmt.Errorf("encapsulation error: %w", err)
	}

	conversationKey, err := kem.DeriveConversationKey(sharedSecret, conversationID)
	cryptox.WipeByteArray(sharedSecret)
	if err != nil {
		return nil, err
	}

	// On a persistence failure the key is still usable in memory, but
	// nothing has been sent yet, so the retryable error surfaces before
	// the conversation record exists.
	if _, err := p.session.MutateSecrets(ctx, func(secrets map[string][]byte) {
		secrets[conversationID] = conversationKey
	}); err != nil {
		return nil, err
	}

	rec := &models.ConversationRecord{
		ID:        conversationID,
		Initiator: p.session.AccountID(),
		Recipient: recipientAccountID,
		Pending: &models.PendingExchange{
			RecipientAccountID: recipientAccountID,
			KEMCiphertext:      kemCiphertext,
		},
		CreatedAt: time.Now(),
	}

	if err := p.store.PutConversationRecord(ctx, rec); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrConversationExists
		}
		return nil, fmt.Errorf("conversation record error: %w", err)
	}

	p.logger.Info(ctx, "handshake initiated", "conversation", conversationID)
	return kemCiphertext, nil
}

// Respond runs the responder side when a pending exchange addressed to the
// active account is observed: decapsulate, store the derived conversation
// key, then consume the pending exchange.
//
// Decapsulation is deterministic, so the whole call is safe to retry after
// a persistence failure; only the final clear is enforced at-most-once by
// the store. A clear that finds the exchange already consumed (an earlier
// retry's clear landed) is treated as success: the derived key is
// identical.
func (p *Protocol) Respond(ctx context.Context, conversationID string) error {
	if !p.session.IsUnlocked() {
		return session.ErrVaultLocked
	}

	rec, err := p.store.GetConversationRecord(ctx, conversationID)
	if err != nil {
		return fmt.Errorf("conversation lookup error: %w", err)
	}

	self := p.session.AccountID()
	if rec.Pending == nil || rec.Pending.RecipientAccountID != self {
		return ErrNoPendingExchange
	}

	privateKey, err := p.session.KEMPrivateKey()
	if err != nil {
		return err
	}

	sharedSecret, err := kem.Decapsulate(privateKey, rec.Pending.KEMCiphertext)
	cryptox.WipeByteArray(privateKey)
	if err != nil {
		return fmt.Errorf("decapsulation error: %w", err)
	}

	conversationKey, err := kem.DeriveConversationKey(sharedSecret, conversationID)
	cryptox.WipeByteArray(sharedSecret)
	if err != nil {
		return err
	}

	if _, err := p.session.MutateSecrets(ctx, func(secrets map[string][]byte) {
		secrets[conversationID] = conversationKey
	}); err != nil {
		return err
	}

	if err := p.store.ClearPendingExchange(ctx, conversationID, self); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			p.logger.Warn(ctx, "pending exchange already consumed", "conversation", conversationID)
			return nil
		}
		return fmt.Errorf("pending exchange clear error: %w", err)
	}

	p.logger.Info(ctx, "handshake completed", "conversation", conversationID)
	return nil
}
