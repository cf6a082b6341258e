package attest

import (
	"crypto/subtle"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// Sign signs digest with s and returns the hex-encoded signature.
func Sign(s signer.Signer, digest []byte) (string, error) {
	sig, err := s.Sign(digest)
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return signer.EncodeSignature(sig), nil
}

// Verify checks that sig is a signature by authority over digest.
func Verify(authority string, digest []byte, sig string) error {
	raw, err := signer.DecodeSignature(sig)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	if !signer.Verify(authority, digest, raw) {
		return fmt.Errorf("%w: signature does not verify for %s", common.ErrAuthorization, authority)
	}
	return nil
}

// Equal compares two encoded signatures or codes in constant time.
func Equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
