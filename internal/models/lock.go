package models

import (
	"time"

	"github.com/dmitrijs2005/mintflow/internal/amount"
)

type LockState string

const (
	LockReceived LockState = "RECEIVED"
	LockAccepted LockState = "ACCEPTED"
	LockReserved LockState = "RESERVED"
	LockConsumed LockState = "CONSUMED"
)

var lockOrder = map[LockState]int{
	LockReceived: 1,
	LockAccepted: 2,
	LockReserved: 3,
	LockConsumed: 4,
}

// AtLeast reports whether s has reached other in the custody lifecycle.
func (s LockState) AtLeast(other LockState) bool {
	return lockOrder[s] >= lockOrder[other]
}

// Lock is a custody claim derived from exactly one accepted injection.
type Lock struct {
	ID                string        `json:"lockId"`
	InjectionID       string        `json:"injectionId"`
	Amount            amount.Amount `json:"amount"`
	Beneficiary       string        `json:"beneficiary"`
	Stage1Signature   string        `json:"stage1Signature"`
	Stage2Signature   string        `json:"stage2Signature,omitempty"`
	AuthorizationCode string        `json:"authorizationCode,omitempty"`
	AcceptedBy        string        `json:"acceptedBy,omitempty"`
	CertificateID     string        `json:"certificateId,omitempty"`
	State             LockState     `json:"state"`
	CreatedAt         time.Time     `json:"createdAt"`
	AcceptedAt        *time.Time    `json:"acceptedAt,omitempty"`
	ReservedAt        *time.Time    `json:"reservedAt,omitempty"`
	ConsumedAt        *time.Time    `json:"consumedAt,omitempty"`
}
