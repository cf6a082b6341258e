package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/observability"
)

func (o *Orchestrator) backoff() retry.Backoff {
	b := retry.NewExponential(o.cfg.BaseBackoff)
	b = retry.WithCappedDuration(o.cfg.MaxBackoff, b)
	return retry.WithMaxRetries(uint64(o.cfg.MaxAttempts-1), b)
}

// execute runs one stage. probe reports whether the stage's effect is
// already on the ledger; it runs before the first attempt and again before
// every retry, so a mutating call is only repeated once a read has shown it
// did not apply. Only unknown outcomes are retried. A state conflict counts
// as success when a fresh probe shows the stage complete.
func (r *run) execute(ctx context.Context, stage Stage, entity string,
	probe func(context.Context) (bool, error), act func(context.Context) error) error {
	start := time.Now()
	logger := r.logger.With("stage", stage, "entity_id", entity)

	var (
		attempts    int
		skipped     bool
		lastUnknown bool
	)
	err := retry.Do(ctx, r.o.backoff(), func(ctx context.Context) error {
		attempts++
		done, err := probe(ctx)
		if err != nil {
			if errors.Is(err, common.ErrUnknownOutcome) {
				lastUnknown = true
				return retry.RetryableError(err)
			}
			return err
		}
		if done {
			skipped = attempts == 1
			return nil
		}

		err = act(ctx)
		switch {
		case err == nil:
			lastUnknown = false
			return nil
		case errors.Is(err, common.ErrUnknownOutcome):
			lastUnknown = true
			logger.Warn(ctx, "stage outcome unknown", "attempt", attempts, "error", err)
			return retry.RetryableError(err)
		case errors.Is(err, common.ErrStateConflict):
			if done, perr := probe(ctx); perr == nil && done {
				logger.Info(ctx, "stage completed concurrently")
				return nil
			}
			return err
		default:
			return err
		}
	})

	elapsed := time.Since(start)
	if err != nil {
		observability.RecordStage(string(stage), "failed", elapsed)
		outcome := classify(err, lastUnknown)
		logger.Warn(ctx, "stage failed", "attempts", attempts, "outcome", outcome, "error", err)
		return r.fail(stage, entity, outcome, err)
	}
	if skipped {
		observability.RecordStage(string(stage), "skipped", elapsed)
		logger.Debug(ctx, "stage already on ledger")
		return nil
	}
	observability.RecordStage(string(stage), "done", elapsed)
	logger.Info(ctx, "stage done", "attempts", attempts, "elapsed", elapsed)
	return nil
}
