package workflow

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a transfer with how its run ended.
type BatchResult struct {
	Transfer Transfer
	Result   *Result
	Err      error
}

// RunBatch runs independent transfers concurrently, at most Parallelism at a
// time. A failed transfer does not stop the others. Results are in input
// order.
func (o *Orchestrator) RunBatch(ctx context.Context, transfers []Transfer) []BatchResult {
	out := make([]BatchResult, len(transfers))

	var g errgroup.Group
	g.SetLimit(o.cfg.Parallelism)
	for i, t := range transfers {
		g.Go(func() error {
			res, err := o.Run(ctx, t)
			out[i] = BatchResult{Transfer: t, Result: res, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
