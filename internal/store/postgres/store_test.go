package postgres

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/keyvault/internal/models"
	"github.com/dmitrijs2005/keyvault/internal/store"
)

func testTime() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

func TestPutAccount_Success(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WithArgs("a1", "a@x.com", []byte("pub"), []byte("salt"), []byte("verifier")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutAccount(context.Background(), &models.Account{
		ID: "a1", Email: "a@x.com", KEMPublicKey: []byte("pub"),
		Salt: []byte("salt"), Verifier: []byte("verifier"),
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutAccount_DuplicateEmail(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+accounts`).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	err := s.PutAccount(context.Background(), &models.Account{ID: "a1", Email: "a@x.com"})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
}

func TestGetAccountByEmail_NotFound(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs("a@x.com").
		WillReturnError(sql.ErrNoRows)

	_, err := s.GetAccountByEmail(context.Background(), "a@x.com")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestGetAccount_DBError(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM accounts`).
		WithArgs("a1").
		WillReturnError(errors.New("db down"))

	_, err := s.GetAccount(context.Background(), "a1")
	require.ErrorIs(t, err, store.ErrPersistence)
}

func TestUpdateAccountVerifier(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE accounts SET master_key_verifier`).
		WithArgs("a1", []byte("new")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.UpdateAccountVerifier(context.Background(), "a1", []byte("new")))

	mock.ExpectExec(`UPDATE accounts SET master_key_verifier`).
		WithArgs("missing", []byte("new")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateAccountVerifier(context.Background(), "missing", []byte("new"))
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteAccount_Transactional(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM encrypted_vaults`).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM accounts`).
		WithArgs("a1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, s.DeleteAccount(context.Background(), "a1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPutEncryptedVault_Upsert(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`INSERT\s+INTO\s+encrypted_vaults`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.PutEncryptedVault(context.Background(), &models.EncryptedVault{AccountID: "a1"})
	require.NoError(t, err)
}

func TestGetEncryptedVault(t *testing.T) {
	s, mock := newStoreWithMock(t)

	rows := sqlmock.NewRows([]string{
		"private_key_iv", "private_key_tag", "private_key_data",
		"secret_map_iv", "secret_map_tag", "secret_map_data",
	}).AddRow([]byte("iv1"), []byte("tag1"), []byte("data1"),
		[]byte("iv2"), []byte("tag2"), []byte("data2"))

	mock.ExpectQuery(`SELECT .* FROM encrypted_vaults`).
		WithArgs("a1").
		WillReturnRows(rows)

	ev, err := s.GetEncryptedVault(context.Background(), "a1")
	require.NoError(t, err)
	require.Equal(t, "a1", ev.AccountID)
	require.Equal(t, []byte("iv1"), ev.PrivateKey.IV)
	require.Equal(t, []byte("data2"), ev.SecretMap.Data)
}

func TestGetConversationRecord_WithPending(t *testing.T) {
	s, mock := newStoreWithMock(t)

	rows := sqlmock.NewRows([]string{
		"id", "initiator", "recipient", "pending_recipient", "pending_ciphertext", "created_at",
	}).AddRow("c1", "a1", "a2", "a2", []byte("ct"), testTime())

	mock.ExpectQuery(`SELECT .* FROM conversations`).
		WithArgs("c1").
		WillReturnRows(rows)

	rec, err := s.GetConversationRecord(context.Background(), "c1")
	require.NoError(t, err)
	require.NotNil(t, rec.Pending)
	require.Equal(t, "a2", rec.Pending.RecipientAccountID)
	require.Equal(t, []byte("ct"), rec.Pending.KEMCiphertext)
}

func TestClearPendingExchange_AtMostOnce(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE conversations SET pending_recipient = NULL`).
		WithArgs("c1", "a2").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.ClearPendingExchange(context.Background(), "c1", "a2"))

	// already consumed: zero rows affected
	mock.ExpectExec(`UPDATE conversations SET pending_recipient = NULL`).
		WithArgs("c1", "a2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.ClearPendingExchange(context.Background(), "c1", "a2")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSetPendingExchange_MissingConversation(t *testing.T) {
	s, mock := newStoreWithMock(t)

	mock.ExpectExec(`UPDATE conversations SET pending_recipient`).
		WithArgs("missing", "a2", []byte("ct")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.SetPendingExchange(context.Background(), "missing",
		&models.PendingExchange{RecipientAccountID: "a2", KEMCiphertext: []byte("ct")})
	require.ErrorIs(t, err, store.ErrNotFound)
}
