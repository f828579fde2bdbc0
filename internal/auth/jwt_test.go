package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("acc-1", secret, time.Minute)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	accountID, err := GetAccountIDFromToken(token, secret)
	require.NoError(t, err)
	require.Equal(t, "acc-1", accountID)
}

func TestGetAccountIDFromToken_WrongSecret(t *testing.T) {
	token, err := GenerateToken("acc-1", []byte("secret-a"), time.Minute)
	require.NoError(t, err)

	_, err = GetAccountIDFromToken(token, []byte("secret-b"))
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetAccountIDFromToken_Expired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := GenerateToken("acc-1", secret, -time.Minute)
	require.NoError(t, err)

	_, err = GetAccountIDFromToken(token, secret)
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestGetAccountIDFromToken_Garbage(t *testing.T) {
	_, err := GetAccountIDFromToken("not.a.token", []byte("secret"))
	require.ErrorIs(t, err, ErrInvalidToken)
}
