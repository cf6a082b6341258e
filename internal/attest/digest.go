// Package attest derives everything the three stages agree on without
// talking to each other: record identifiers, the digests each authority
// signs, the custody authorization code and the certificate publication
// code. All functions are pure, so any party can recompute them from the
// ledger records alone.
package attest

import (
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"golang.org/x/crypto/sha3"
)

const (
	domainInjectionID   = "mintflow/injection-id/v1"
	domainLockID        = "mintflow/lock-id/v1"
	domainCertificateID = "mintflow/certificate-id/v1"
	domainStage1        = "mintflow/stage1/v1"
	domainStage2        = "mintflow/stage2/v1"
	domainStage3        = "mintflow/stage3/v1"
	domainAuthorization = "mintflow/authorization/v1"
)

// keccak hashes the domain tag and every field, each prefixed with its
// length so that field boundaries cannot be shifted.
func keccak(domain string, fields ...string) []byte {
	h := sha3.NewLegacyKeccak256()
	var n [4]byte
	for _, f := range append([]string{domain}, fields...) {
		binary.BigEndian.PutUint32(n[:], uint32(len(f)))
		h.Write(n[:])
		h.Write([]byte(f))
	}
	return h.Sum(nil)
}

func shortID(prefix string, sum []byte) string {
	return prefix + strings.ToUpper(hex.EncodeToString(sum[:12]))
}

// InjectionID is derived from the external reference, which upstream
// guarantees to be unique per deposit.
func InjectionID(externalRef string) string {
	return shortID("INJ-", keccak(domainInjectionID, externalRef))
}

// LockID is derived from the injection, so one injection maps to at most one
// lock.
func LockID(injectionID string) string {
	return shortID("LOCK-", keccak(domainLockID, injectionID))
}

func CertificateID(lockID string) string {
	return shortID("CERT-", keccak(domainCertificateID, lockID))
}

func Stage1Digest(injectionID string, amt amount.Amount, beneficiary, externalRef, contentHash string) []byte {
	return keccak(domainStage1, injectionID, amt.String(), beneficiary, externalRef, contentHash)
}

func Stage2Digest(lockID, injectionID string, amt amount.Amount, beneficiary, stage1 string) []byte {
	return keccak(domainStage2, lockID, injectionID, amt.String(), beneficiary, stage1)
}

func Stage3Digest(lockID, stage1, stage2, settlementRef string, amt amount.Amount) []byte {
	return keccak(domainStage3, lockID, stage1, stage2, settlementRef, amt.String())
}

func InjectionDigest(inj *models.Injection) []byte {
	return Stage1Digest(inj.ID, inj.Amount, inj.Beneficiary, inj.ExternalRef, inj.ContentHash)
}

func LockDigest(l *models.Lock) []byte {
	return Stage2Digest(l.ID, l.InjectionID, l.Amount, l.Beneficiary, l.Stage1Signature)
}

func CertificateDigest(c *models.Certificate) []byte {
	return Stage3Digest(c.LockID, c.Stage1Signature, c.Stage2Signature, c.SettlementRef, c.Amount)
}

// AuthorizationCode is the human-auditable code issued with a stage-2
// signature, e.g. AUTH-1A2B3C4D-5E6F7A8B.
func AuthorizationCode(stage2 string) string {
	sum := strings.ToUpper(hex.EncodeToString(keccak(domainAuthorization, stage2)[:8]))
	return "AUTH-" + sum[:8] + "-" + sum[8:]
}
