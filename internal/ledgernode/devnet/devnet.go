// Package devnet wires a single-process development network: a node on
// in-memory state, fixed target identifiers and the four stage authorities
// derived from one root seed.
package devnet

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// Default target identifiers of the development network.
const (
	RegistryTarget  = "0x00000000000000000000000000000000000000000000000000000000000000a1"
	CustodyTarget   = "0x00000000000000000000000000000000000000000000000000000000000000a2"
	CertifierTarget = "0x00000000000000000000000000000000000000000000000000000000000000a3"
	TokenTarget     = "0x00000000000000000000000000000000000000000000000000000000000000a4"
	OracleTarget    = "0x00000000000000000000000000000000000000000000000000000000000000a5"
)

// Roles, in the order keys are derived.
const (
	RoleReporter  = "reporter"
	RoleRegistry  = "registry"
	RoleCustody   = "custody"
	RoleCertifier = "certifier"
)

// DefaultTargets returns the development target identifiers.
func DefaultTargets() abi.Targets {
	return abi.Targets{
		Registry:  RegistryTarget,
		Custody:   CustodyTarget,
		Certifier: CertifierTarget,
		Token:     TokenTarget,
		Oracle:    OracleTarget,
	}
}

// RootSeed is the well-known development root. Never use it outside
// development.
func RootSeed() []byte {
	sum := sha256.Sum256([]byte("mintflow-devnet"))
	return sum[:]
}

type Keys struct {
	Reporter  *signer.KeySigner
	Registry  *signer.KeySigner
	Custody   *signer.KeySigner
	Certifier *signer.KeySigner
}

func DeriveKeys(root []byte) (*Keys, error) {
	k := &Keys{}
	for role, dst := range map[string]**signer.KeySigner{
		RoleReporter:  &k.Reporter,
		RoleRegistry:  &k.Registry,
		RoleCustody:   &k.Custody,
		RoleCertifier: &k.Certifier,
	} {
		s, err := signer.Derive(root, role)
		if err != nil {
			return nil, err
		}
		*dst = s
	}
	return k, nil
}

// Seeds returns the hex seeds of k keyed by role, as printed by ledgerd.
func (k *Keys) Seeds() map[string]string {
	return map[string]string{
		RoleReporter:  hex.EncodeToString(k.Reporter.Seed()),
		RoleRegistry:  hex.EncodeToString(k.Registry.Seed()),
		RoleCustody:   hex.EncodeToString(k.Custody.Seed()),
		RoleCertifier: hex.EncodeToString(k.Certifier.Seed()),
	}
}

// Authorities restricts each action to its derived key.
func (k *Keys) Authorities() ledgernode.Authorities {
	return ledgernode.Authorities{
		Reporters: []string{k.Reporter.Address()},
		Registry:  []string{k.Registry.Address()},
		Custody:   []string{k.Custody.Address()},
		Certifier: []string{k.Certifier.Address()},
	}
}

// Network is a node plus the keys allowed to drive it.
type Network struct {
	Store   *store.MemoryStore
	Node    *ledgernode.Node
	Keys    *Keys
	Gateway ledger.Gateway
}

type Option func(*ledgernode.Options)

// WithClock fixes the node clock.
func WithClock(clock func() time.Time) Option {
	return func(o *ledgernode.Options) { o.Clock = clock }
}

// New starts an in-memory network. Gateway is the in-process gateway
// wrapped with per-signer serialization.
func New(l logging.Logger, opts ...Option) (*Network, error) {
	keys, err := DeriveKeys(RootSeed())
	if err != nil {
		return nil, err
	}
	o := ledgernode.Options{
		Targets:     DefaultTargets().Kinds(),
		Authorities: keys.Authorities(),
	}
	for _, fn := range opts {
		fn(&o)
	}

	st := store.NewMemoryStore()
	node := ledgernode.New(st, o, l)
	return &Network{
		Store:   st,
		Node:    node,
		Keys:    keys,
		Gateway: ledger.Serialize(ledgernode.NewLocalGateway(node)),
	}, nil
}
