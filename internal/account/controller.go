// Package account orchestrates the account lifecycle: signup, login,
// logout and password change. It composes the KDF, the vault codec and the
// session manager, and keeps the outer auth token in lock-step with the
// vault lock state.
package account

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/keyvault/internal/auth"
	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/dmitrijs2005/keyvault/internal/kem"
	"github.com/dmitrijs2005/keyvault/internal/logging"
	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/session"
	"github.com/dmitrijs2005/keyvault/internal/store"
	"github.com/dmitrijs2005/keyvault/internal/vault"
)

// Session is the outer authentication state handed to the caller.
type Session struct {
	AccountID string
	Token     string
}

type Controller struct {
	store         store.DocumentStore
	session       *session.Manager
	jwtSecret     []byte
	tokenValidity time.Duration
	logger        logging.Logger

	mu      sync.Mutex
	current *Session
}

func NewController(st store.DocumentStore, sm *session.Manager, jwtSecret []byte, tokenValidity time.Duration, logger logging.Logger) *Controller {
	return &Controller{
		store:         st,
		session:       sm,
		jwtSecret:     jwtSecret,
		tokenValidity: tokenValidity,
		logger:        logger.With("module", "account"),
	}
}

// Signup creates the account and its empty vault, then unlocks a session.
// Either every step succeeds or the partially created documents are rolled
// back; a reachable account without a usable vault is never left behind.
func (c *Controller) Signup(ctx context.Context, email string, password []byte) (*Session, error) {
	salt := cryptox.GenerateRandByteArray(cryptox.SaltSize)

	masterKey, err := cryptox.DeriveMasterKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer cryptox.WipeByteArray(masterKey)

	publicKey, privateKey, err := kem.GenerateKeypair()
	if err != nil {
		return nil, err
	}

	accountID := uuid.NewString()
	v := vault.NewEmpty(privateKey)
	defer v.Wipe()

	ev, err := vault.Seal(masterKey, accountID, v)
	if err != nil {
		return nil, err
	}

	acc := &models.Account{
		ID:           accountID,
		Email:        email,
		KEMPublicKey: publicKey,
		Salt:         salt,
		Verifier:     cryptox.MakeVerifier(masterKey),
		CreatedAt:    time.Now(),
	}

	if err := c.store.PutAccount(ctx, acc); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return nil, ErrEmailAlreadyRegistered
		}
		return nil, fmt.Errorf("account creation error: %w", err)
	}

	if err := c.store.PutEncryptedVault(ctx, ev); err != nil {
		c.rollbackSignup(ctx, accountID)
		return nil, fmt.Errorf("vault creation error: %w", err)
	}

	if err := c.session.Unlock(accountID, masterKey, ev); err != nil {
		c.rollbackSignup(ctx, accountID)
		return nil, err
	}

	sess, err := c.mintSession(accountID)
	if err != nil {
		c.session.Lock()
		c.rollbackSignup(ctx, accountID)
		return nil, err
	}

	c.logger.Info(ctx, "account created", "account", accountID)
	return sess, nil
}

// rollbackSignup removes the partial account so it is never reachable
// without a usable vault. Best effort: a failed delete is logged, and the
// unique email constraint keeps the remnant from colliding silently.
func (c *Controller) rollbackSignup(ctx context.Context, accountID string) {
	if err := c.store.DeleteAccount(ctx, accountID); err != nil {
		c.logger.Error(ctx, "signup rollback failed", "account", accountID, "error", err.Error())
	}
}

// Login derives the master key and unlocks the vault. The vault itself is
// the authoritative credential check: the stored verifier is only a fast
// path, and a stale verifier (a password change whose credential swap never
// landed) is repaired here once the vault proves the password right.
//
// Any failure leaves the vault locked before the uniform ErrInvalidPassword
// surfaces, so outer auth and lock state cannot disagree.
func (c *Controller) Login(ctx context.Context, email string, password []byte) (*Session, error) {
	acc, err := c.store.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// burn the same KDF cost for unknown accounts so timing does
			// not reveal whether the email exists
			salt := cryptox.GenerateRandByteArray(cryptox.SaltSize)
			if derived, kdfErr := cryptox.DeriveMasterKey(password, salt); kdfErr == nil {
				cryptox.WipeByteArray(derived)
			}
			return nil, ErrInvalidPassword
		}
		return nil, fmt.Errorf("account lookup error: %w", err)
	}

	masterKey, err := cryptox.DeriveMasterKey(password, acc.Salt)
	if err != nil {
		return nil, err
	}
	defer cryptox.WipeByteArray(masterKey)

	verifierMatches := subtle.ConstantTimeCompare(acc.Verifier, cryptox.MakeVerifier(masterKey)) == 1

	ev, err := c.store.GetEncryptedVault(ctx, acc.ID)
	if err != nil {
		c.lockout()
		return nil, fmt.Errorf("vault fetch error: %w", err)
	}

	if err := c.session.Unlock(acc.ID, masterKey, ev); err != nil {
		c.lockout()
		return nil, ErrInvalidPassword
	}

	if !verifierMatches {
		// vault opened, so the password is right and the stored verifier
		// is stale; repair it in place
		if err := c.store.UpdateAccountVerifier(ctx, acc.ID, cryptox.MakeVerifier(masterKey)); err != nil {
			c.logger.Warn(ctx, "verifier repair failed", "account", acc.ID)
		}
	}

	sess, err := c.mintSession(acc.ID)
	if err != nil {
		c.lockout()
		return nil, err
	}

	c.logger.Info(ctx, "vault unlocked", "account", acc.ID)
	return sess, nil
}

// Logout locks the vault first, then drops the outer auth session.
// Idempotent.
func (c *Controller) Logout(ctx context.Context) {
	c.session.Lock()

	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()

	c.logger.Info(ctx, "vault locked")
}

// ChangePassword re-authenticates with the old password, re-seals the vault
// under the key derived from the new password and the existing salt, and
// swaps the stored verifier only after the persisted vault is proven to
// decrypt. If the verifier swap fails, the next login repairs it.
func (c *Controller) ChangePassword(ctx context.Context, oldPassword, newPassword []byte) error {
	accountID := c.session.AccountID()
	if accountID == "" {
		return session.ErrVaultLocked
	}

	acc, err := c.store.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("account lookup error: %w", err)
	}

	oldMasterKey, err := cryptox.DeriveMasterKey(oldPassword, acc.Salt)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(oldMasterKey)

	if subtle.ConstantTimeCompare(acc.Verifier, cryptox.MakeVerifier(oldMasterKey)) != 1 {
		return ErrInvalidPassword
	}

	// same salt as before; see the design notes on salt rotation
	newMasterKey, err := cryptox.DeriveMasterKey(newPassword, acc.Salt)
	if err != nil {
		return err
	}
	defer cryptox.WipeByteArray(newMasterKey)

	if _, err := c.session.ChangeMasterKey(ctx, newMasterKey); err != nil {
		return err
	}

	if err := c.store.UpdateAccountVerifier(ctx, accountID, cryptox.MakeVerifier(newMasterKey)); err != nil {
		return fmt.Errorf("%w: verifier swap failed, login will repair it: %v", store.ErrPersistence, err)
	}

	c.logger.Info(ctx, "password changed", "account", accountID)
	return nil
}

// GetSecret exposes a conversation key to the caller, which uses it only
// for message encryption and never persists it.
func (c *Controller) GetSecret(conversationID string) ([]byte, bool) {
	return c.session.GetSecret(conversationID)
}

// IsUnlocked reports the authoritative logged-in state.
func (c *Controller) IsUnlocked() bool {
	return c.session.IsUnlocked()
}

// CurrentSession returns the active outer session, or nil.
func (c *Controller) CurrentSession() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// lockout tears the whole session down after a failed login step so an
// outer token can never outlive a locked vault.
func (c *Controller) lockout() {
	c.session.Lock()
	c.mu.Lock()
	c.current = nil
	c.mu.Unlock()
}

func (c *Controller) mintSession(accountID string) (*Session, error) {
	token, err := auth.GenerateToken(accountID, c.jwtSecret, c.tokenValidity)
	if err != nil {
		return nil, fmt.Errorf("token error: %w", err)
	}

	sess := &Session{AccountID: accountID, Token: token}

	c.mu.Lock()
	c.current = sess
	c.mu.Unlock()

	return sess, nil
}
