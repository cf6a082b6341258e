package cryptox

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt")

	key1 := DeriveKey(password, salt)
	key2 := DeriveKey(password, salt)

	require.True(t, bytes.Equal(key1, key2))
	assert.Len(t, key1, 32)

	assert.NotEqual(t, key1, DeriveKey(password, []byte("other-salt")))
}

func TestSealOpen(t *testing.T) {
	key := bytes.Repeat([]byte{3}, 32)

	ct, nonce, err := Seal([]byte("seed"), key)
	require.NoError(t, err)
	assert.Len(t, nonce, 12)

	pt, err := Open(ct, nonce, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("seed"), pt)

	_, err = Open(ct, nonce, bytes.Repeat([]byte{4}, 32))
	require.Error(t, err)

	_, _, err = Seal([]byte("seed"), []byte("short"))
	require.Error(t, err)
}

func TestKeystore_RoundTripThroughFile(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, 32)

	ks, err := EncryptSeed(seed, []byte("pass"), "0xabc")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "custody.json")
	require.NoError(t, WriteKeystore(path, ks))

	loaded, err := ReadKeystore(path)
	require.NoError(t, err)
	assert.Equal(t, "0xabc", loaded.Address)
	assert.Equal(t, "argon2id", loaded.KDF)

	got, err := loaded.DecryptSeed([]byte("pass"))
	require.NoError(t, err)
	assert.Equal(t, seed, got)

	_, err = loaded.DecryptSeed([]byte("nope"))
	require.ErrorIs(t, err, ErrWrongPassphrase)
}

func TestReadKeystore_Errors(t *testing.T) {
	_, err := ReadKeystore(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)

	ks := &Keystore{Version: 99}
	_, err = ks.DecryptSeed([]byte("x"))
	require.Error(t, err)
}
