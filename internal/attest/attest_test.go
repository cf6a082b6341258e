package attest

import (
	"bytes"
	"strings"
	"testing"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/ipfs/go-cid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDs_DeterministicAndPrefixed(t *testing.T) {
	inj := InjectionID("EXT-1")
	assert.Equal(t, inj, InjectionID("EXT-1"))
	assert.NotEqual(t, inj, InjectionID("EXT-2"))
	assert.True(t, strings.HasPrefix(inj, "INJ-"))
	assert.Len(t, inj, len("INJ-")+24)

	assert.True(t, strings.HasPrefix(LockID(inj), "LOCK-"))
	assert.True(t, strings.HasPrefix(CertificateID(LockID(inj)), "CERT-"))
}

func TestStageDigests_FieldSensitive(t *testing.T) {
	amt := amount.MustParse("1000")
	base := Stage1Digest("INJ-1", amt, "B", "EXT", "0xhash")

	assert.Equal(t, base, Stage1Digest("INJ-1", amt, "B", "EXT", "0xhash"))
	assert.NotEqual(t, base, Stage1Digest("INJ-1", amount.MustParse("1000.000001"), "B", "EXT", "0xhash"))
	assert.NotEqual(t, base, Stage1Digest("INJ-1", amt, "C", "EXT", "0xhash"))
	// shifting a boundary between fields must change the digest
	assert.NotEqual(t, Stage1Digest("INJ-1", amt, "BE", "XT", "0xhash"), Stage1Digest("INJ-1", amt, "B", "EXT", "0xhash"))
	assert.Len(t, base, 32)

	s2 := Stage2Digest("LOCK-1", "INJ-1", amt, "B", "0xs1")
	assert.NotEqual(t, s2, Stage2Digest("LOCK-1", "INJ-1", amt, "B", "0xs1x"))

	s3 := Stage3Digest("LOCK-1", "0xs1", "0xs2", "SETTLE-1", amt)
	assert.NotEqual(t, s3, Stage3Digest("LOCK-1", "0xs1", "0xs2", "SETTLE-2", amt))
}

func TestRecordDigestsMatchFieldDigests(t *testing.T) {
	amt := amount.MustParse("5")
	inj := &models.Injection{ID: "I", Amount: amt, Beneficiary: "B", ExternalRef: "E", ContentHash: "H"}
	assert.Equal(t, Stage1Digest("I", amt, "B", "E", "H"), InjectionDigest(inj))

	l := &models.Lock{ID: "L", InjectionID: "I", Amount: amt, Beneficiary: "B", Stage1Signature: "S1"}
	assert.Equal(t, Stage2Digest("L", "I", amt, "B", "S1"), LockDigest(l))

	c := &models.Certificate{LockID: "L", Stage1Signature: "S1", Stage2Signature: "S2", SettlementRef: "R", Amount: amt}
	assert.Equal(t, Stage3Digest("L", "S1", "S2", "R", amt), CertificateDigest(c))
}

func TestAuthorizationCode(t *testing.T) {
	code := AuthorizationCode("0xsig")
	assert.Equal(t, code, AuthorizationCode("0xsig"))
	assert.NotEqual(t, code, AuthorizationCode("0xsig2"))
	assert.Regexp(t, `^AUTH-[0-9A-F]{8}-[0-9A-F]{8}$`, code)
}

func TestSignVerify(t *testing.T) {
	s, err := signer.FromSeed(bytes.Repeat([]byte{2}, 32))
	require.NoError(t, err)
	other, err := signer.FromSeed(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)

	digest := Stage1Digest("I", amount.One, "B", "E", "H")
	sig, err := Sign(s, digest)
	require.NoError(t, err)

	again, err := Sign(s, digest)
	require.NoError(t, err)
	assert.Equal(t, sig, again)

	require.NoError(t, Verify(s.Address(), digest, sig))
	require.ErrorIs(t, Verify(other.Address(), digest, sig), common.ErrAuthorization)
	require.ErrorIs(t, Verify(s.Address(), digest, "0x00"), common.ErrValidation)

	assert.True(t, Equal(sig, again))
	assert.False(t, Equal(sig, sig+"0"))
}

func TestPublicationCode(t *testing.T) {
	c := &models.Certificate{
		ID:              "CERT-1",
		LockID:          "LOCK-1",
		Amount:          amount.MustParse("1000"),
		MintedAmount:    amount.MustParse("1000"),
		Beneficiary:     "B",
		SettlementRef:   "SETTLE-1",
		Stage3Signature: "0xs3",
	}

	code, err := PublicationCode(c)
	require.NoError(t, err)

	parsed, err := cid.Decode(code)
	require.NoError(t, err)
	assert.Equal(t, uint64(cid.Raw), parsed.Type())

	c2 := *c
	c2.SettlementRef = "SETTLE-2"
	code2, err := PublicationCode(&c2)
	require.NoError(t, err)
	assert.NotEqual(t, code, code2)

	// fields outside the publication document do not affect the code
	c3 := *c
	c3.TxHash = "0xabc"
	code3, err := PublicationCode(&c3)
	require.NoError(t, err)
	assert.Equal(t, code, code3)
}
