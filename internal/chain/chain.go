// Package chain reads ledger-wide values that belong to no single contract.
package chain

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

type Reader struct {
	gw ledger.Gateway
}

func New(gw ledger.Gateway) *Reader {
	return &Reader{gw: gw}
}

// Statistics returns the injection, lock and mint totals.
func (r *Reader) Statistics(ctx context.Context) (*models.Statistics, error) {
	var st models.Statistics
	if err := r.gw.Call(ctx, abi.TargetLedger, abi.MethodStatistics, nil, &st); err != nil {
		return nil, fmt.Errorf("read statistics: %w", err)
	}
	return &st, nil
}

func (r *Reader) BlockNumber(ctx context.Context) (uint64, error) {
	var res abi.BlockNumberResult
	if err := r.gw.Call(ctx, abi.TargetLedger, abi.MethodBlockNumber, nil, &res); err != nil {
		return 0, fmt.Errorf("read block number: %w", err)
	}
	return res.BlockNumber, nil
}
