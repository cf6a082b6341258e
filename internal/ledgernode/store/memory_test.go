package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleInjection() *models.Injection {
	return &models.Injection{
		ID:          "INJ-1",
		Amount:      amount.MustParse("10"),
		Beneficiary: "0xabc",
		ExternalRef: "wire-1",
		ContentHash: "0xfeed",
		State:       models.InjectionPending,
		CreatedAt:   time.Unix(1700000000, 0).UTC(),
	}
}

func TestMemoryStore_UpdateCommitsOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	err := s.Update(ctx, func(ctx context.Context, st State) error {
		return st.PutInjection(ctx, sampleInjection())
	})
	require.NoError(t, err)

	err = s.View(ctx, func(ctx context.Context, st State) error {
		got, err := st.InjectionByExternalRef(ctx, "wire-1")
		require.NoError(t, err)
		assert.Equal(t, "INJ-1", got.ID)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryStore_UpdateDiscardsOnError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.Update(ctx, func(ctx context.Context, st State) error {
		require.NoError(t, st.PutInjection(ctx, sampleInjection()))
		require.NoError(t, st.PutNonce(ctx, "0xabc", 3))
		require.NoError(t, st.PutHeight(ctx, 7))
		return boom
	})
	require.ErrorIs(t, err, boom)

	_ = s.View(ctx, func(ctx context.Context, st State) error {
		_, err := st.Injection(ctx, "INJ-1")
		assert.ErrorIs(t, err, common.ErrorNotFound)
		n, _ := st.Nonce(ctx, "0xabc")
		assert.Zero(t, n)
		h, _ := st.Height(ctx)
		assert.Zero(t, h)
		return nil
	})
}

func TestMemoryStore_ReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.Update(ctx, func(ctx context.Context, st State) error {
		return st.PutInjection(ctx, sampleInjection())
	}))

	_ = s.View(ctx, func(ctx context.Context, st State) error {
		got, _ := st.Injection(ctx, "INJ-1")
		got.State = models.InjectionLocked
		again, _ := st.Injection(ctx, "INJ-1")
		assert.Equal(t, models.InjectionPending, again.State)
		return nil
	})
}

func TestMemoryStore_Indexes(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	lock := &models.Lock{ID: "LOCK-1", InjectionID: "INJ-1", Amount: amount.MustParse("10"), State: models.LockReceived}
	cert := &models.Certificate{
		ID: "CERT-1", LockID: "LOCK-1", SettlementRef: "settle-1", Stage3Signature: "0xsig",
		MintedAmount: amount.MustParse("10"),
	}
	rcpt := &ledger.Receipt{TxHash: "0xtx", BlockNumber: 1, Status: ledger.StatusSuccess}

	require.NoError(t, s.Update(ctx, func(ctx context.Context, st State) error {
		require.NoError(t, st.PutInjection(ctx, sampleInjection()))
		require.NoError(t, st.PutLock(ctx, lock))
		require.NoError(t, st.PutCertificate(ctx, cert))
		require.NoError(t, st.PutBalance(ctx, "0xabc", amount.MustParse("10")))
		return st.PutReceipt(ctx, rcpt)
	}))

	_ = s.View(ctx, func(ctx context.Context, st State) error {
		l, err := st.LockByInjection(ctx, "INJ-1")
		require.NoError(t, err)
		assert.Equal(t, "LOCK-1", l.ID)

		for _, get := range []func() (*models.Certificate, error){
			func() (*models.Certificate, error) { return st.CertificateByLock(ctx, "LOCK-1") },
			func() (*models.Certificate, error) { return st.CertificateBySettlementRef(ctx, "settle-1") },
			func() (*models.Certificate, error) { return st.CertificateBySignature(ctx, "0xsig") },
		} {
			c, err := get()
			require.NoError(t, err)
			assert.Equal(t, "CERT-1", c.ID)
		}

		_, err = st.CertificateBySignature(ctx, "0xother")
		assert.ErrorIs(t, err, common.ErrorNotFound)

		b, _ := st.Balance(ctx, "0xabc")
		assert.Equal(t, amount.MustParse("10"), b)
		b, _ = st.Balance(ctx, "0xnobody")
		assert.Equal(t, amount.Zero, b)

		r, err := st.Receipt(ctx, "0xtx")
		require.NoError(t, err)
		assert.Equal(t, ledger.StatusSuccess, r.Status)

		stats, err := st.Statistics(ctx)
		require.NoError(t, err)
		assert.Equal(t, &models.Statistics{
			Injections: 1, Locks: 1, Certificates: 1,
			TotalInjected: amount.MustParse("10"),
			TotalLocked:   amount.MustParse("10"),
			TotalMinted:   amount.MustParse("10"),
		}, stats)
		return nil
	})
}
