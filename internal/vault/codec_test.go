package vault

import (
	"testing"

	"github.com/dmitrijs2005/keyvault/internal/cryptox"
	"github.com/stretchr/testify/require"
)

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v := NewEmpty(cryptox.GenerateRandByteArray(64))
	v.Secrets["c1"] = cryptox.GenerateRandByteArray(32)
	v.Secrets["c2"] = cryptox.GenerateRandByteArray(32)
	return v
}

func TestSealOpen_RoundTrip(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := newTestVault(t)

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)
	require.Equal(t, "acc-1", ev.AccountID)

	got, err := Open(masterKey, ev)
	require.NoError(t, err)
	require.Equal(t, v.KEMPrivateKey, got.KEMPrivateKey)
	require.Equal(t, v.Secrets, got.Secrets)
}

func TestSealOpen_EmptyVault(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := NewEmpty(cryptox.GenerateRandByteArray(64))

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)

	got, err := Open(masterKey, ev)
	require.NoError(t, err)
	require.Empty(t, got.Secrets)
	require.NotNil(t, got.Secrets)
}

func TestSeal_IndependentCiphertexts(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := newTestVault(t)

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)

	// two seals, two distinct nonces per field
	require.NotEqual(t, ev.PrivateKey.IV, ev.SecretMap.IV)
}

func TestOpen_WrongKey(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	otherKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := newTestVault(t)

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)

	got, err := Open(otherKey, ev)
	require.ErrorIs(t, err, ErrWrongPasswordOrCorrupt)
	require.Nil(t, got)
}

func TestOpen_CorruptSecretMap(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := newTestVault(t)

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)

	ev.SecretMap.Data[0] ^= 0xff

	got, err := Open(masterKey, ev)
	require.ErrorIs(t, err, ErrWrongPasswordOrCorrupt)
	require.Nil(t, got)
}

func TestOpen_CorruptPrivateKey(t *testing.T) {
	masterKey := cryptox.GenerateRandByteArray(cryptox.MasterKeySize)
	v := newTestVault(t)

	ev, err := Seal(masterKey, "acc-1", v)
	require.NoError(t, err)

	ev.PrivateKey.Tag[0] ^= 0xff

	_, err = Open(masterKey, ev)
	require.ErrorIs(t, err, ErrWrongPasswordOrCorrupt)
}

func TestVault_Clone(t *testing.T) {
	v := newTestVault(t)
	c := v.Clone()

	require.Equal(t, v.KEMPrivateKey, c.KEMPrivateKey)
	require.Equal(t, v.Secrets, c.Secrets)

	c.Secrets["c1"][0] ^= 0xff
	require.NotEqual(t, v.Secrets["c1"], c.Secrets["c1"])
}

func TestVault_Wipe(t *testing.T) {
	v := newTestVault(t)
	priv := v.KEMPrivateKey

	v.Wipe()

	require.Nil(t, v.KEMPrivateKey)
	require.Empty(t, v.Secrets)
	for _, b := range priv {
		require.Zero(t, b)
	}
}
