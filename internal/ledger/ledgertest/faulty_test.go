package ledgertest

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct{ submits int }

func (r *recorder) Call(context.Context, string, string, any, any) error { return nil }

func (r *recorder) Submit(context.Context, signer.Signer, string, string, any) (*ledger.Receipt, error) {
	r.submits++
	return &ledger.Receipt{Status: ledger.StatusSuccess}, nil
}

func TestGateway_Faults(t *testing.T) {
	ctx := context.Background()
	next := &recorder{}
	g := New(next)
	g.Script("m", LoseRequest, LoseResponse)

	s, err := signer.FromSeed(make([]byte, 32))
	require.NoError(t, err)

	_, err = g.Submit(ctx, s, "t", "m", nil)
	require.ErrorIs(t, err, common.ErrUnknownOutcome)
	assert.Equal(t, 0, next.submits)

	_, err = g.Submit(ctx, s, "t", "m", nil)
	require.ErrorIs(t, err, common.ErrUnknownOutcome)
	assert.Equal(t, 1, next.submits)

	_, err = g.Submit(ctx, s, "t", "m", nil)
	require.NoError(t, err)
	assert.Equal(t, 2, next.submits)
	assert.Equal(t, 3, g.Submits("m"))

	require.NoError(t, g.Call(ctx, "t", "get", nil, nil))
	assert.Equal(t, 1, g.Calls("get"))
}
