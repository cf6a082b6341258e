package certifier

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/custody"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/devnet"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/registry"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	net       *devnet.Network
	registry  *registry.Client
	custody   *custody.Client
	certifier *Client
}

func newFixture(t *testing.T, gw ledger.Gateway) *fixture {
	t.Helper()
	net, err := devnet.New(logging.Nop())
	require.NoError(t, err)
	if gw == nil {
		gw = net.Gateway
	}
	return buildFixture(t, net, gw)
}

func buildFixture(t *testing.T, net *devnet.Network, gw ledger.Gateway) *fixture {
	t.Helper()
	reg, err := registry.New(gw, registry.Options{
		Target: devnet.RegistryTarget, Reporter: net.Keys.Reporter, Authority: net.Keys.Registry,
	}, logging.Nop())
	require.NoError(t, err)
	cus, err := custody.New(gw, reg, custody.Options{
		Target: devnet.CustodyTarget, Authority: net.Keys.Custody, RegistryAuthority: reg.Authority(),
	}, logging.Nop())
	require.NoError(t, err)
	cert, err := New(gw, reg, cus, Options{
		Target:            devnet.CertifierTarget,
		TokenTarget:       devnet.TokenTarget,
		Authority:         net.Keys.Certifier,
		RegistryAuthority: reg.Authority(),
		CustodyAuthority:  cus.Authority(),
	}, logging.Nop())
	require.NoError(t, err)
	return &fixture{net: net, registry: reg, custody: cus, certifier: cert}
}

// reserved drives a deposit of amt through the first two stages and returns
// the request that certifies it.
func (f *fixture) reserved(t *testing.T, ref, amt string) BackingRequest {
	t.Helper()
	ctx := context.Background()
	a := amount.MustParse(amt)

	injID, err := f.registry.ReportInjection(ctx, registry.ReportInput{
		Amount: a, Beneficiary: "0xB", ExternalRef: ref, ContentHash: "0xfeed",
	})
	require.NoError(t, err)
	s1, err := f.registry.AcceptInjection(ctx, injID)
	require.NoError(t, err)
	lockID, err := f.custody.ReceiveLock(ctx, injID, a, "0xB", s1)
	require.NoError(t, err)
	s2, code, err := f.custody.AcceptLock(ctx, lockID)
	require.NoError(t, err)
	require.NoError(t, f.custody.MoveToReserve(ctx, lockID))

	return BackingRequest{
		LockID:            lockID,
		Amount:            a,
		Beneficiary:       "0xB",
		SettlementRef:     "SETTLE-" + ref,
		AuthorizationCode: code,
		Stage1Signature:   s1,
		Stage2Signature:   s2,
	}
}

func TestGenerateBackedSignature_MintsFullAmount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.reserved(t, "1", "1000.00")
	req.SettlementRef = "SETTLE-1"

	b, err := f.certifier.GenerateBackedSignature(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, attest.CertificateID(req.LockID), b.CertificateID)
	assert.Equal(t, amount.MustParse("1000"), b.MintedAmount)
	assert.Equal(t, amount.One, b.BackingRatio)
	assert.NotEmpty(t, b.PublicationCode)
	assert.NotZero(t, b.BlockNumber)

	proof, err := f.certifier.GetBackingProof(ctx, "SETTLE-1")
	require.NoError(t, err)
	assert.Equal(t, b.CertificateID, proof.ID)
	assert.Equal(t, b.TxHash, proof.TxHash)
	assert.Equal(t, f.certifier.Authority(), proof.CertifiedBy)

	byLock, err := f.certifier.FindByLock(ctx, req.LockID)
	require.NoError(t, err)
	assert.Equal(t, proof, byLock)

	l, err := f.custody.GetLock(ctx, req.LockID)
	require.NoError(t, err)
	assert.Equal(t, models.LockConsumed, l.State)
	assert.Equal(t, b.CertificateID, l.CertificateID)

	bal, err := f.certifier.BalanceOf(ctx, "0xB")
	require.NoError(t, err)
	assert.Equal(t, amount.MustParse("1000"), bal)
	supply, err := f.certifier.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, bal, supply)
}

func TestVerifyBackedSignature_RoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, err := f.certifier.GenerateBackedSignature(ctx, f.reserved(t, "1", "250.5"))
	require.NoError(t, err)

	v, err := f.certifier.VerifyBackedSignature(ctx, b.Stage3Signature)
	require.NoError(t, err)
	assert.Equal(t, &Verification{
		IsValid:       true,
		CertificateID: b.CertificateID,
		AmountBacked:  amount.MustParse("250.5"),
		AmountMinted:  amount.MustParse("250.5"),
	}, v)

	other, err := signer.FromSeed(make([]byte, 32))
	require.NoError(t, err)
	unknown, err := attest.Sign(other, []byte("unrelated"))
	require.NoError(t, err)
	v, err = f.certifier.VerifyBackedSignature(ctx, unknown)
	require.NoError(t, err)
	assert.False(t, v.IsValid)

	_, err = f.certifier.VerifyBackedSignature(ctx, "0xnot-hex")
	require.ErrorIs(t, err, common.ErrValidation)
}

func TestVerifyBackedSignature_AfterKeyRotation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, err := f.certifier.GenerateBackedSignature(ctx, f.reserved(t, "1", "40"))
	require.NoError(t, err)

	rotated, err := signer.FromSeed(bytes.Repeat([]byte{5}, 32))
	require.NoError(t, err)
	rotatedClient := func(trusted ...string) *Client {
		c, err := New(f.net.Gateway, f.registry, f.custody, Options{
			Target:            devnet.CertifierTarget,
			TokenTarget:       devnet.TokenTarget,
			Authority:         rotated,
			RegistryAuthority: f.registry.Authority(),
			CustodyAuthority:  f.custody.Authority(),
			TrustedCertifiers: trusted,
		}, logging.Nop())
		require.NoError(t, err)
		return c
	}

	v, err := rotatedClient().VerifyBackedSignature(ctx, b.Stage3Signature)
	require.NoError(t, err)
	assert.False(t, v.IsValid)

	v, err = rotatedClient(" "+f.certifier.Authority()+" ").VerifyBackedSignature(ctx, b.Stage3Signature)
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	assert.Equal(t, b.CertificateID, v.CertificateID)
}

func TestGenerateBackedSignature_SubstitutedSignatures(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.reserved(t, "1", "100")
	other := f.reserved(t, "2", "100")

	tests := []struct {
		name   string
		mutate func(r *BackingRequest)
		want   error
	}{
		{"stage-1 of another lock", func(r *BackingRequest) { r.Stage1Signature = other.Stage1Signature }, common.ErrAuthorization},
		{"stage-2 of another lock", func(r *BackingRequest) { r.Stage2Signature = other.Stage2Signature }, common.ErrAuthorization},
		{"authorization code of another lock", func(r *BackingRequest) { r.AuthorizationCode = other.AuthorizationCode }, common.ErrValidation},
		{"malformed stage-2", func(r *BackingRequest) { r.Stage2Signature = "0x00" }, common.ErrValidation},
		{"amount mismatch", func(r *BackingRequest) { r.Amount = amount.MustParse("99") }, common.ErrValidation},
		{"beneficiary mismatch", func(r *BackingRequest) { r.Beneficiary = "0xC" }, common.ErrValidation},
		{"missing settlement ref", func(r *BackingRequest) { r.SettlementRef = " " }, common.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := req
			tt.mutate(&r)
			_, err := f.certifier.GenerateBackedSignature(ctx, r)
			require.ErrorIs(t, err, tt.want)
		})
	}

	l, err := f.custody.GetLock(ctx, req.LockID)
	require.NoError(t, err)
	assert.Equal(t, models.LockReserved, l.State)
}

func TestGenerateBackedSignature_UntrustedAuthorities(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.reserved(t, "1", "100")

	c, err := New(f.net.Gateway, f.registry, f.custody, Options{
		Target:            devnet.CertifierTarget,
		TokenTarget:       devnet.TokenTarget,
		Authority:         f.net.Keys.Certifier,
		RegistryAuthority: f.registry.Authority(),
		CustodyAuthority:  f.net.Keys.Reporter.Address(),
	}, logging.Nop())
	require.NoError(t, err)

	_, err = c.GenerateBackedSignature(ctx, req)
	require.ErrorIs(t, err, common.ErrAuthorization)
}

func TestGenerateBackedSignature_LockNotReserved(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.reserved(t, "1", "100")

	_, err := f.certifier.GenerateBackedSignature(ctx, req)
	require.NoError(t, err)

	_, err = f.certifier.GenerateBackedSignature(ctx, req)
	require.ErrorIs(t, err, common.ErrStateConflict)

	req.LockID = "LCK-MISSING"
	_, err = f.certifier.GenerateBackedSignature(ctx, req)
	require.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGenerateBackedSignature_SettlementRefReuse(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	first := f.reserved(t, "1", "100")
	second := f.reserved(t, "2", "100")
	second.SettlementRef = first.SettlementRef

	_, err := f.certifier.GenerateBackedSignature(ctx, first)
	require.NoError(t, err)
	_, err = f.certifier.GenerateBackedSignature(ctx, second)
	require.ErrorIs(t, err, common.ErrLedgerRejected)

	l, err := f.custody.GetLock(ctx, second.LockID)
	require.NoError(t, err)
	assert.Equal(t, models.LockReserved, l.State)
}

func TestGenerateBackedSignature_ConcurrentCallsCertifyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := f.reserved(t, "1", "100")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i := range errs {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.certifier.GenerateBackedSignature(ctx, req)
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, common.ErrStateConflict):
			conflicts++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)

	bal, err := f.certifier.BalanceOf(ctx, "0xB")
	require.NoError(t, err)
	assert.Equal(t, amount.MustParse("100"), bal)
}

// dropMint removes the token's Minted log from certification receipts.
type dropMint struct {
	ledger.Gateway
}

func (d dropMint) Submit(ctx context.Context, s signer.Signer, target, method string, args any) (*ledger.Receipt, error) {
	r, err := d.Gateway.Submit(ctx, s, target, method, args)
	if err != nil || method != abi.MethodGenerateBackedSignature {
		return r, err
	}
	kept := r.Logs[:0]
	for _, l := range r.Logs {
		if l.Name != abi.EventMinted {
			kept = append(kept, l)
		}
	}
	r.Logs = kept
	return r, nil
}

func TestGenerateBackedSignature_ReceiptWithoutMint(t *testing.T) {
	net, err := devnet.New(logging.Nop())
	require.NoError(t, err)
	f := buildFixture(t, net, dropMint{net.Gateway})
	ctx := context.Background()

	_, err = f.certifier.GenerateBackedSignature(ctx, f.reserved(t, "1", "100"))
	require.ErrorIs(t, err, ErrMintMissing)
	require.ErrorIs(t, err, common.ErrLedgerRejected)
}

func TestNew_RequiresConfiguration(t *testing.T) {
	_, err := New(nil, nil, nil, Options{Target: devnet.CertifierTarget}, logging.Nop())
	require.ErrorIs(t, err, common.ErrConfiguration)
}
