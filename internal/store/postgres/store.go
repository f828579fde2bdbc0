// Package postgres implements the document store on PostgreSQL, with schema
// managed by embedded goose migrations.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/keyvault/internal/dbx"
	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/store"
	"github.com/dmitrijs2005/keyvault/internal/store/postgres/migrations"
)

const uniqueViolation = "23505"

type Store struct {
	db *sql.DB
}

// New wraps an existing database handle. Migrations are not run; use Open
// for the full open-and-migrate path.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open connects to the database and brings the schema up to date.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	s := New(db)
	if err := s.RunMigrations(context.Background()); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return s, nil
}

func (s *Store) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, s.db, "."); err != nil {
		return err
	}

	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) PutAccount(ctx context.Context, account *models.Account) error {
	query :=
		`INSERT INTO accounts (id, email, kem_public_key, salt, master_key_verifier)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	_, err := s.db.ExecContext(ctx, query,
		account.ID, account.Email, account.KEMPublicKey, account.Salt, account.Verifier)

	return mapWriteError(err)
}

func (s *Store) GetAccount(ctx context.Context, id string) (*models.Account, error) {
	query :=
		`SELECT id, email, kem_public_key, salt, master_key_verifier, created_at FROM accounts
		 WHERE id = $1
		 `

	return s.scanAccount(s.db.QueryRowContext(ctx, query, id))
}

func (s *Store) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	query :=
		`SELECT id, email, kem_public_key, salt, master_key_verifier, created_at FROM accounts
		 WHERE email = $1
		 `

	return s.scanAccount(s.db.QueryRowContext(ctx, query, email))
}

func (s *Store) scanAccount(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.KEMPublicKey,
		&account.Salt, &account.Verifier, &account.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return account, nil
}

func (s *Store) UpdateAccountVerifier(ctx context.Context, accountID string, verifier []byte) error {
	query := `UPDATE accounts SET master_key_verifier = $2 WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, accountID, verifier)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return requireAffected(res)
}

// DeleteAccount removes the account and its vault in one transaction.
// Used by signup rollback.
func (s *Store) DeleteAccount(ctx context.Context, accountID string) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM encrypted_vaults WHERE account_id = $1`, accountID); err != nil {
			return fmt.Errorf("%w: %v", store.ErrPersistence, err)
		}

		res, err := tx.ExecContext(ctx, `DELETE FROM accounts WHERE id = $1`, accountID)
		if err != nil {
			return fmt.Errorf("%w: %v", store.ErrPersistence, err)
		}

		return requireAffected(res)
	})
}

func (s *Store) PutEncryptedVault(ctx context.Context, ev *models.EncryptedVault) error {
	query :=
		`INSERT INTO encrypted_vaults
		   (account_id, private_key_iv, private_key_tag, private_key_data,
		    secret_map_iv, secret_map_tag, secret_map_data, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, now())
		 ON CONFLICT (account_id) DO UPDATE SET
		   private_key_iv = EXCLUDED.private_key_iv,
		   private_key_tag = EXCLUDED.private_key_tag,
		   private_key_data = EXCLUDED.private_key_data,
		   secret_map_iv = EXCLUDED.secret_map_iv,
		   secret_map_tag = EXCLUDED.secret_map_tag,
		   secret_map_data = EXCLUDED.secret_map_data,
		   updated_at = now()
		 `

	_, err := s.db.ExecContext(ctx, query, ev.AccountID,
		ev.PrivateKey.IV, ev.PrivateKey.Tag, ev.PrivateKey.Data,
		ev.SecretMap.IV, ev.SecretMap.Tag, ev.SecretMap.Data)

	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return nil
}

func (s *Store) GetEncryptedVault(ctx context.Context, accountID string) (*models.EncryptedVault, error) {
	query :=
		`SELECT private_key_iv, private_key_tag, private_key_data,
		        secret_map_iv, secret_map_tag, secret_map_data
		 FROM encrypted_vaults
		 WHERE account_id = $1
		 `

	ev := &models.EncryptedVault{AccountID: accountID}
	err := s.db.QueryRowContext(ctx, query, accountID).Scan(
		&ev.PrivateKey.IV, &ev.PrivateKey.Tag, &ev.PrivateKey.Data,
		&ev.SecretMap.IV, &ev.SecretMap.Tag, &ev.SecretMap.Data)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return ev, nil
}

func (s *Store) PutConversationRecord(ctx context.Context, rec *models.ConversationRecord) error {
	query :=
		`INSERT INTO conversations (id, initiator, recipient, pending_recipient, pending_ciphertext)
		 VALUES ($1, $2, $3, $4, $5)
		 `

	var pendingRecipient *string
	var pendingCiphertext []byte
	if rec.Pending != nil {
		pendingRecipient = &rec.Pending.RecipientAccountID
		pendingCiphertext = rec.Pending.KEMCiphertext
	}

	_, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.Initiator, rec.Recipient, pendingRecipient, pendingCiphertext)

	return mapWriteError(err)
}

func (s *Store) GetConversationRecord(ctx context.Context, id string) (*models.ConversationRecord, error) {
	query :=
		`SELECT id, initiator, recipient, pending_recipient, pending_ciphertext, created_at
		 FROM conversations
		 WHERE id = $1
		 `

	rec := &models.ConversationRecord{}
	var pendingRecipient sql.NullString
	var pendingCiphertext []byte

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Initiator, &rec.Recipient, &pendingRecipient, &pendingCiphertext, &rec.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	if pendingRecipient.Valid {
		rec.Pending = &models.PendingExchange{
			RecipientAccountID: pendingRecipient.String,
			KEMCiphertext:      pendingCiphertext,
		}
	}

	return rec, nil
}

func (s *Store) SetPendingExchange(ctx context.Context, conversationID string, pe *models.PendingExchange) error {
	query :=
		`UPDATE conversations SET pending_recipient = $2, pending_ciphertext = $3
		 WHERE id = $1
		 `

	res, err := s.db.ExecContext(ctx, query, conversationID, pe.RecipientAccountID, pe.KEMCiphertext)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return requireAffected(res)
}

// ClearPendingExchange is the at-most-once consumption point: the WHERE
// clause only matches a live pending exchange addressed to this recipient,
// so a second consumer observes zero affected rows.
func (s *Store) ClearPendingExchange(ctx context.Context, conversationID, recipientAccountID string) error {
	query :=
		`UPDATE conversations SET pending_recipient = NULL, pending_ciphertext = NULL
		 WHERE id = $1 AND pending_recipient = $2
		 `

	res, err := s.db.ExecContext(ctx, query, conversationID, recipientAccountID)
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}

	return requireAffected(res)
}

func requireAffected(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", store.ErrPersistence, err)
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return store.ErrAlreadyExists
	}

	return fmt.Errorf("%w: %v", store.ErrPersistence, err)
}
