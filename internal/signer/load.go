package signer

import (
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/cryptox"
)

// KeystorePrefix marks a key reference that points at an encrypted keystore
// file instead of an inline hex seed.
const KeystorePrefix = "keystore:"

// Load resolves a configured key reference: either "keystore:<path>",
// unlocked with passphrase, or a hex seed.
func Load(ref string, passphrase string) (*KeySigner, error) {
	path, ok := strings.CutPrefix(ref, KeystorePrefix)
	if !ok {
		return FromHex(ref)
	}

	ks, err := cryptox.ReadKeystore(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}

	seed, err := ks.DecryptSeed([]byte(passphrase))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrConfiguration, path, err)
	}
	defer common.WipeByteArray(seed)

	s, err := FromSeed(seed)
	if err != nil {
		return nil, err
	}
	if ks.Address != "" && ks.Address != s.Address() {
		return nil, fmt.Errorf("%w: keystore %s address mismatch", common.ErrConfiguration, path)
	}
	return s, nil
}
