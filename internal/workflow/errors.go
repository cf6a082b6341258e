package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/common"
)

// Outcome says whether a failed stage's side effect is on the ledger.
type Outcome string

const (
	// OutcomeConfirmed: the ledger applied the stage, the run failed after.
	OutcomeConfirmed Outcome = "confirmed"
	// OutcomeUnconfirmed: the ledger refused the stage or never saw it.
	OutcomeUnconfirmed Outcome = "unconfirmed"
	// OutcomeUnknown: attempts ran out while the outcome was unknown.
	OutcomeUnknown Outcome = "unknown"
)

// StageError is returned by Run for every failure. EntityID is the
// correlation ID the stage was working on and LastConfirmed is the state the
// transfer is known to have reached, so the run can be reconciled by hand or
// resumed.
type StageError struct {
	Stage         Stage
	EntityID      string
	Outcome       Outcome
	LastConfirmed State
	Err           error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s %s: %s (last confirmed %s): %v", e.Stage, e.EntityID, e.Outcome, e.LastConfirmed, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func classify(err error, lastUnknown bool) Outcome {
	switch {
	case errors.Is(err, common.ErrUnknownOutcome):
		return OutcomeUnknown
	case lastUnknown && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)):
		return OutcomeUnknown
	case errors.Is(err, certifier.ErrMintMissing):
		return OutcomeConfirmed
	default:
		return OutcomeUnconfirmed
	}
}
