// Package models holds the ledger-resident records of the minting workflow.
// Each record is owned by exactly one contract target; everything else only
// reads it.
package models

import (
	"time"

	"github.com/dmitrijs2005/mintflow/internal/amount"
)

type InjectionState string

const (
	InjectionPending  InjectionState = "PENDING"
	InjectionAccepted InjectionState = "ACCEPTED"
	InjectionLocked   InjectionState = "LOCKED"
)

// Injection is a reported fiat deposit. Stage1Signature is set iff the state
// is past Pending.
type Injection struct {
	ID              string         `json:"injectionId"`
	Amount          amount.Amount  `json:"amount"`
	Beneficiary     string         `json:"beneficiary"`
	ExternalRef     string         `json:"externalRef"`
	ContentHash     string         `json:"contentHash"`
	Stage1Signature string         `json:"stage1Signature,omitempty"`
	AcceptedBy      string         `json:"acceptedBy,omitempty"`
	LockID          string         `json:"lockId,omitempty"`
	State           InjectionState `json:"state"`
	CreatedAt       time.Time      `json:"createdAt"`
	AcceptedAt      *time.Time     `json:"acceptedAt,omitempty"`
	LockedAt        *time.Time     `json:"lockedAt,omitempty"`
}

func (i *Injection) IsAccepted() bool {
	return i.State == InjectionAccepted || i.State == InjectionLocked
}
