// Package cryptox implements the encrypted keystore that holds stage
// authority seeds at rest: argon2id derives a key from the operator
// passphrase and AES-GCM seals the seed.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	keystoreVersion = 1
	saltSize        = 16
)

var ErrWrongPassphrase = errors.New("wrong passphrase or corrupted keystore")

// DeriveKey stretches a passphrase into a 32-byte AES key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// Seal encrypts plaintext with AES-GCM under key using a fresh random nonce.
func Seal(plaintext, key []byte) (ciphertext, nonce []byte, err error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = common.GenerateRandByteArray(aesgcm.NonceSize())
	if err != nil {
		return nil, nil, err
	}

	return aesgcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open reverses Seal.
func Open(ciphertext, nonce, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aesgcm.Open(nil, nonce, ciphertext, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Keystore is the on-disk form of one encrypted signer seed.
type Keystore struct {
	Version    int    `json:"version"`
	Address    string `json:"address"`
	KDF        string `json:"kdf"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// EncryptSeed seals seed under passphrase. address is stored in clear so
// operators can tell keystores apart without unlocking them.
func EncryptSeed(seed, passphrase []byte, address string) (*Keystore, error) {
	salt, err := common.GenerateRandByteArray(saltSize)
	if err != nil {
		return nil, err
	}

	key := DeriveKey(passphrase, salt)
	defer common.WipeByteArray(key)

	ct, nonce, err := Seal(seed, key)
	if err != nil {
		return nil, err
	}

	return &Keystore{
		Version:    keystoreVersion,
		Address:    address,
		KDF:        "argon2id",
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: ct,
	}, nil
}

// DecryptSeed returns the seed sealed in ks.
func (ks *Keystore) DecryptSeed(passphrase []byte) ([]byte, error) {
	if ks.Version != keystoreVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", ks.Version)
	}

	key := DeriveKey(passphrase, ks.Salt)
	defer common.WipeByteArray(key)

	seed, err := Open(ks.Ciphertext, ks.Nonce, key)
	if err != nil {
		return nil, ErrWrongPassphrase
	}
	return seed, nil
}

func WriteKeystore(path string, ks *Keystore) error {
	b, err := json.MarshalIndent(ks, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o600)
}

func ReadKeystore(path string) (*Keystore, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	ks := &Keystore{}
	if err := json.Unmarshal(b, ks); err != nil {
		return nil, fmt.Errorf("keystore %s: %w", path, err)
	}
	return ks, nil
}
