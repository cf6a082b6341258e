package signer

import (
	"bytes"
	"encoding/hex"
	"path/filepath"
	"testing"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_HexAndKeystore(t *testing.T) {
	seed := bytes.Repeat([]byte{5}, 32)
	want, err := FromSeed(seed)
	require.NoError(t, err)

	fromHex, err := Load(hex.EncodeToString(seed), "")
	require.NoError(t, err)
	assert.Equal(t, want.Address(), fromHex.Address())

	ks, err := cryptox.EncryptSeed(seed, []byte("pw"), want.Address())
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "k.json")
	require.NoError(t, cryptox.WriteKeystore(path, ks))

	fromFile, err := Load(KeystorePrefix+path, "pw")
	require.NoError(t, err)
	assert.Equal(t, want.Address(), fromFile.Address())

	_, err = Load(KeystorePrefix+path, "wrong")
	require.ErrorIs(t, err, common.ErrConfiguration)
}

func TestLoad_AddressMismatch(t *testing.T) {
	seed := bytes.Repeat([]byte{5}, 32)
	ks, err := cryptox.EncryptSeed(seed, []byte("pw"), "0xdeadbeef")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "k.json")
	require.NoError(t, cryptox.WriteKeystore(path, ks))

	_, err = Load(KeystorePrefix+path, "pw")
	require.ErrorIs(t, err, common.ErrConfiguration)
}
