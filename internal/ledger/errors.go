package ledger

import (
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
)

// Revert codes understood on both sides of the ledger boundary.
const (
	CodeInvalidArgument = "invalid_argument"
	CodeStateConflict   = "state_conflict"
	CodeUnauthorized    = "unauthorized"
	CodeNotFound        = "not_found"
	CodeDuplicate       = "duplicate"
	CodeBadNonce        = "bad_nonce"
	CodeBadSignature    = "bad_signature"
	CodeUnknownTarget   = "unknown_target"
	CodeInternal        = "internal"
)

// RevertError is an explicit rejection by the ledger, either a reverted
// transaction or a refused call.
type RevertError struct {
	Code   string
	Reason string
	TxHash string
	Target string
	Method string
}

// Reject builds a RevertError; contracts on the dev node use it to abort a
// transaction.
func Reject(code, format string, args ...any) *RevertError {
	return &RevertError{Code: code, Reason: fmt.Sprintf(format, args...)}
}

func (e *RevertError) Error() string {
	where := e.Method
	if e.Target != "" {
		where = e.Target + "." + e.Method
	}
	if where == "" {
		return fmt.Sprintf("ledger revert %s: %s", e.Code, e.Reason)
	}
	return fmt.Sprintf("%s reverted %s: %s", where, e.Code, e.Reason)
}

// Unwrap exposes the taxonomy category so callers can use errors.Is with
// the common sentinels.
func (e *RevertError) Unwrap() error {
	return Category(e.Code)
}

// Category maps a revert code onto the error taxonomy.
func Category(code string) error {
	switch code {
	case CodeInvalidArgument:
		return common.ErrValidation
	case CodeStateConflict:
		return common.ErrStateConflict
	case CodeUnauthorized:
		return common.ErrAuthorization
	case CodeNotFound:
		return common.ErrorNotFound
	default:
		return common.ErrLedgerRejected
	}
}
