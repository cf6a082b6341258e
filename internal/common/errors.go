// Package common defines shared constants and sentinel errors used across
// the mintflow components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Access token errors.
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Workflow taxonomy. Every failure surfaced by a stage client or the
	// orchestrator matches exactly one of these.
	ErrValidation     = errors.New("validation error")
	ErrStateConflict  = errors.New("state conflict")
	ErrAuthorization  = errors.New("authorization error")
	ErrUnknownOutcome = errors.New("unknown outcome")
	ErrLedgerRejected = errors.New("ledger rejected")

	// Configuration errors.
	ErrConfiguration = errors.New("invalid configuration")
)
