package workflow

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/custody"
	"github.com/dmitrijs2005/mintflow/internal/ledger/ledgertest"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/devnet"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/registry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stack struct {
	gw        *ledgertest.Gateway
	net       *devnet.Network
	certifier *certifier.Client
	orch      *Orchestrator
}

func testConfig() Config {
	return Config{MaxAttempts: 3, BaseBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond, Parallelism: 3}
}

func newStack(t *testing.T, cfg Config, opts ...Option) *stack {
	t.Helper()
	net, err := devnet.New(logging.Nop())
	require.NoError(t, err)
	gw := ledgertest.New(net.Gateway)

	reg, err := registry.New(gw, registry.Options{
		Target: devnet.RegistryTarget, Reporter: net.Keys.Reporter, Authority: net.Keys.Registry,
	}, logging.Nop())
	require.NoError(t, err)
	cus, err := custody.New(gw, reg, custody.Options{
		Target: devnet.CustodyTarget, Authority: net.Keys.Custody, RegistryAuthority: reg.Authority(),
	}, logging.Nop())
	require.NoError(t, err)
	cert, err := certifier.New(gw, reg, cus, certifier.Options{
		Target:            devnet.CertifierTarget,
		TokenTarget:       devnet.TokenTarget,
		Authority:         net.Keys.Certifier,
		RegistryAuthority: reg.Authority(),
		CustodyAuthority:  cus.Authority(),
	}, logging.Nop())
	require.NoError(t, err)

	orch, err := New(reg, cus, cert, cfg, logging.Nop(), opts...)
	require.NoError(t, err)
	return &stack{gw: gw, net: net, certifier: cert, orch: orch}
}

func transfer(ref, amt, settlement string) Transfer {
	return Transfer{
		ExternalRef:   ref,
		Amount:        amount.MustParse(amt),
		Beneficiary:   "0xB",
		ContentHash:   "0xfeed",
		SettlementRef: settlement,
	}
}

var mutatingStages = []string{
	abi.MethodReportInjection,
	abi.MethodAcceptInjection,
	abi.MethodReceiveLock,
	abi.MethodAcceptLock,
	abi.MethodMoveToReserve,
	abi.MethodGenerateBackedSignature,
}

func TestRun_HappyPath(t *testing.T) {
	s := newStack(t, testConfig())
	ctx := context.Background()

	res, err := s.orch.Run(ctx, transfer("wire-1", "1000.00", "SETTLE-1"))
	require.NoError(t, err)

	assert.Equal(t, amount.MustParse("1000.00"), res.MintedAmount)
	assert.Equal(t, "1.000000", res.BackingRatio.String())
	assert.Equal(t, attest.InjectionID("wire-1"), res.InjectionID)
	assert.Equal(t, attest.LockID(res.InjectionID), res.LockID)
	assert.Equal(t, attest.CertificateID(res.LockID), res.CertificateID)
	assert.Equal(t, attest.AuthorizationCode(res.Stage2Signature), res.AuthorizationCode)
	assert.NotEmpty(t, res.TxHash)
	assert.NotEmpty(t, res.PublicationCode)
	for _, m := range mutatingStages {
		assert.Equal(t, 1, s.gw.Submits(m), m)
	}

	v, err := s.certifier.VerifyBackedSignature(ctx, res.Stage3Signature)
	require.NoError(t, err)
	assert.True(t, v.IsValid)
	assert.Equal(t, v.AmountBacked, v.AmountMinted)

	bal, err := s.certifier.BalanceOf(ctx, "0xB")
	require.NoError(t, err)
	assert.Equal(t, res.MintedAmount, bal)
}

func TestRun_AcceptLockTimeoutThenRetry(t *testing.T) {
	s := newStack(t, testConfig())
	s.gw.Script(abi.MethodAcceptLock, ledgertest.LoseResponse)

	res, err := s.orch.Run(context.Background(), transfer("wire-1", "1000", "SETTLE-1"))
	require.NoError(t, err)

	// the lock was already accepted, so the retry re-reads and moves on
	assert.Equal(t, 1, s.gw.Submits(abi.MethodAcceptLock))
	assert.Equal(t, 1, s.gw.Submits(abi.MethodMoveToReserve))
	assert.Equal(t, attest.AuthorizationCode(res.Stage2Signature), res.AuthorizationCode)
}

func TestRun_LostRequestIsResubmitted(t *testing.T) {
	s := newStack(t, testConfig())
	s.gw.Script(abi.MethodReceiveLock, ledgertest.LoseRequest)
	s.gw.Script(abi.MethodGenerateBackedSignature, ledgertest.LoseRequest, ledgertest.LoseResponse)

	res, err := s.orch.Run(context.Background(), transfer("wire-1", "1000", "SETTLE-1"))
	require.NoError(t, err)
	assert.Equal(t, 2, s.gw.Submits(abi.MethodReceiveLock))
	assert.Equal(t, 2, s.gw.Submits(abi.MethodGenerateBackedSignature))
	assert.Equal(t, amount.MustParse("1000"), res.MintedAmount)
}

func TestRun_ExhaustedAttemptsThenResume(t *testing.T) {
	cfg := testConfig()
	cfg.MaxAttempts = 2
	s := newStack(t, cfg)
	ctx := context.Background()
	tr := transfer("wire-1", "1000", "SETTLE-1")

	s.gw.Script(abi.MethodMoveToReserve, ledgertest.LoseRequest, ledgertest.LoseRequest)
	_, err := s.orch.Run(ctx, tr)
	require.ErrorIs(t, err, common.ErrUnknownOutcome)

	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StageMoveToReserve, se.Stage)
	assert.Equal(t, OutcomeUnknown, se.Outcome)
	assert.Equal(t, StateLocked, se.LastConfirmed)
	assert.Equal(t, attest.LockID(attest.InjectionID("wire-1")), se.EntityID)

	res, err := s.orch.Run(ctx, tr)
	require.NoError(t, err)
	assert.Equal(t, amount.MustParse("1000"), res.MintedAmount)
	assert.Equal(t, 3, s.gw.Submits(abi.MethodMoveToReserve))
	for _, m := range []string{abi.MethodReportInjection, abi.MethodAcceptInjection, abi.MethodReceiveLock, abi.MethodAcceptLock} {
		assert.Equal(t, 1, s.gw.Submits(m), m)
	}
}

func TestRun_RepeatAfterSuccessSubmitsNothing(t *testing.T) {
	s := newStack(t, testConfig())
	ctx := context.Background()
	tr := transfer("wire-1", "1000", "SETTLE-1")

	first, err := s.orch.Run(ctx, tr)
	require.NoError(t, err)
	second, err := s.orch.Run(ctx, tr)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	for _, m := range mutatingStages {
		assert.Equal(t, 1, s.gw.Submits(m), m)
	}
}

func TestRun_Failures(t *testing.T) {
	ctx := context.Background()

	t.Run("invalid transfer", func(t *testing.T) {
		s := newStack(t, testConfig())
		_, err := s.orch.Run(ctx, transfer("wire-1", "0", "SETTLE-1"))
		require.ErrorIs(t, err, common.ErrValidation)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StateNew, se.LastConfirmed)
		assert.Zero(t, s.gw.Submits(abi.MethodReportInjection))
	})

	t.Run("external ref reused with other details", func(t *testing.T) {
		s := newStack(t, testConfig())
		_, err := s.orch.Run(ctx, transfer("wire-1", "1000", "SETTLE-1"))
		require.NoError(t, err)

		_, err = s.orch.Run(ctx, transfer("wire-1", "999", "SETTLE-2"))
		require.ErrorIs(t, err, common.ErrValidation)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageReport, se.Stage)
		assert.Equal(t, "wire-1", se.EntityID)
		assert.Equal(t, OutcomeUnconfirmed, se.Outcome)
	})

	t.Run("settlement already certified", func(t *testing.T) {
		s := newStack(t, testConfig())
		_, err := s.orch.Run(ctx, transfer("wire-1", "1000", "SETTLE-1"))
		require.NoError(t, err)

		_, err = s.orch.Run(ctx, transfer("wire-2", "1000", "SETTLE-1"))
		require.ErrorIs(t, err, common.ErrLedgerRejected)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageCertify, se.Stage)
		assert.Equal(t, OutcomeUnconfirmed, se.Outcome)
		assert.Equal(t, StateReserved, se.LastConfirmed)
		assert.Equal(t, 2, s.gw.Submits(abi.MethodGenerateBackedSignature))
	})

	t.Run("resumed with another settlement", func(t *testing.T) {
		s := newStack(t, testConfig())
		_, err := s.orch.Run(ctx, transfer("wire-1", "1000", "SETTLE-1"))
		require.NoError(t, err)

		_, err = s.orch.Run(ctx, transfer("wire-1", "1000", "SETTLE-9"))
		require.ErrorIs(t, err, common.ErrValidation)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageCertify, se.Stage)
	})
}

func TestClassify(t *testing.T) {
	unknown := fmt.Errorf("%w: timed out", common.ErrUnknownOutcome)
	tests := []struct {
		name        string
		err         error
		lastUnknown bool
		want        Outcome
	}{
		{"unknown outcome", unknown, false, OutcomeUnknown},
		{"cancelled while unknown", context.Canceled, true, OutcomeUnknown},
		{"cancelled before submitting", context.Canceled, false, OutcomeUnconfirmed},
		{"receipt without mint", fmt.Errorf("x: %w", certifier.ErrMintMissing), false, OutcomeConfirmed},
		{"revert", common.ErrLedgerRejected, false, OutcomeUnconfirmed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.err, tt.lastUnknown))
		})
	}
}

type recordingArchive struct {
	mu    sync.Mutex
	certs []*models.Certificate
	err   error
}

func (a *recordingArchive) Publish(_ context.Context, c *models.Certificate) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return "", a.err
	}
	a.certs = append(a.certs, c)
	return "certificates/" + c.PublicationCode + ".json", nil
}

func TestRun_ArchivesCertificate(t *testing.T) {
	a := &recordingArchive{}
	s := newStack(t, testConfig(), WithArchive(a))

	res, err := s.orch.Run(context.Background(), transfer("wire-1", "1000", "SETTLE-1"))
	require.NoError(t, err)
	require.Len(t, a.certs, 1)
	assert.Equal(t, res.CertificateID, a.certs[0].ID)
	assert.Equal(t, "certificates/"+res.PublicationCode+".json", res.ArchiveKey)
}

func TestRun_ArchiveFailureIsNotFatal(t *testing.T) {
	s := newStack(t, testConfig(), WithArchive(&recordingArchive{err: errors.New("bucket unavailable")}))

	res, err := s.orch.Run(context.Background(), transfer("wire-1", "1000", "SETTLE-1"))
	require.NoError(t, err)
	assert.Empty(t, res.ArchiveKey)
}

func TestRun_CancelledContext(t *testing.T) {
	s := newStack(t, testConfig())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.orch.Run(ctx, transfer("wire-1", "1000", "SETTLE-1"))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, s.gw.Submits(abi.MethodReportInjection))
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, nil, nil, DefaultConfig(), logging.Nop())
	require.ErrorIs(t, err, common.ErrConfiguration)

	for name, cfg := range map[string]Config{
		"no attempts":     {MaxAttempts: 0, BaseBackoff: time.Second, MaxBackoff: time.Second, Parallelism: 1},
		"no backoff":      {MaxAttempts: 1, MaxBackoff: time.Second, Parallelism: 1},
		"inverted bounds": {MaxAttempts: 1, BaseBackoff: time.Second, MaxBackoff: time.Millisecond, Parallelism: 1},
		"no parallelism":  {MaxAttempts: 1, BaseBackoff: time.Second, MaxBackoff: time.Second},
	} {
		assert.ErrorIs(t, cfg.Validate(), common.ErrConfiguration, name)
	}
	require.NoError(t, DefaultConfig().Validate())
}
