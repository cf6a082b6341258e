// Package signer is the boundary to the signing facility. Stage clients only
// see the Signer interface; the ed25519 implementation here backs the dev
// stack and the CLI keystore.
package signer

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"golang.org/x/crypto/hkdf"
)

// Signer signs payloads on behalf of one authority. Address identifies the
// authority on the ledger and is also the key used to verify its signatures.
type Signer interface {
	Address() string
	Sign(payload []byte) ([]byte, error)
}

var (
	ErrBadAddress   = errors.New("malformed address")
	ErrBadSignature = errors.New("malformed signature")
)

// KeySigner holds an ed25519 private key. Signing is deterministic, so the
// same payload always yields the same signature.
type KeySigner struct {
	priv ed25519.PrivateKey
	addr string
}

func FromSeed(seed []byte) (*KeySigner, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: seed must be %d bytes", common.ErrConfiguration, ed25519.SeedSize)
	}
	priv := ed25519.NewKeyFromSeed(seed)
	return &KeySigner{priv: priv, addr: Address(priv.Public().(ed25519.PublicKey))}, nil
}

// FromHex parses a hex-encoded seed, with or without a 0x prefix.
func FromHex(s string) (*KeySigner, error) {
	seed, err := hex.DecodeString(strings.TrimPrefix(strings.TrimSpace(s), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: signer seed: %v", common.ErrConfiguration, err)
	}
	return FromSeed(seed)
}

// Generate creates a new random key.
func Generate(rand io.Reader) (*KeySigner, error) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(rand, seed); err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

// Derive returns the signer for role derived from a root seed, so a single
// operator secret can back all stage authorities in development.
func Derive(root []byte, role string) (*KeySigner, error) {
	if len(root) != ed25519.SeedSize {
		return nil, fmt.Errorf("%w: root seed must be %d bytes", common.ErrConfiguration, ed25519.SeedSize)
	}
	seed := make([]byte, ed25519.SeedSize)
	r := hkdf.New(sha256.New, root, []byte("mintflow-signer-v1"), []byte("role:"+role))
	if _, err := io.ReadFull(r, seed); err != nil {
		return nil, err
	}
	return FromSeed(seed)
}

func (k *KeySigner) Address() string { return k.addr }

func (k *KeySigner) Sign(payload []byte) ([]byte, error) {
	return ed25519.Sign(k.priv, payload), nil
}

func (k *KeySigner) Seed() []byte { return k.priv.Seed() }

// Address renders a public key as a ledger address.
func Address(pub ed25519.PublicKey) string {
	return "0x" + hex.EncodeToString(pub)
}

// PublicKey recovers the verification key from an address.
func PublicKey(address string) (ed25519.PublicKey, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(address, "0x"))
	if err != nil || len(b) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: %q", ErrBadAddress, address)
	}
	return ed25519.PublicKey(b), nil
}

// Verify checks sig over payload against the key behind address.
func Verify(address string, payload, sig []byte) bool {
	pub, err := PublicKey(address)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(pub, payload, sig)
}

func EncodeSignature(sig []byte) string {
	return "0x" + hex.EncodeToString(sig)
}

func DecodeSignature(s string) ([]byte, error) {
	b, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil || len(b) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: %q", ErrBadSignature, s)
	}
	return b, nil
}
