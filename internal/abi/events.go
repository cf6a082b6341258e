package abi

import "github.com/dmitrijs2005/mintflow/internal/amount"

const (
	EventInjectionReported    = "InjectionReported"
	EventInjectionAccepted    = "InjectionAccepted"
	EventLockReceived         = "LockReceived"
	EventLockAccepted         = "LockAccepted"
	EventLockReserved         = "LockReserved"
	EventCertificatePublished = "CertificatePublished"
	EventMinted               = "Minted"
)

type InjectionReported struct {
	InjectionID string        `json:"injectionId"`
	Amount      amount.Amount `json:"amount"`
	Beneficiary string        `json:"beneficiary"`
	ExternalRef string        `json:"externalRef"`
	ContentHash string        `json:"contentHash"`
}

type InjectionAccepted struct {
	InjectionID     string `json:"injectionId"`
	Stage1Signature string `json:"stage1Signature"`
	AcceptedBy      string `json:"acceptedBy"`
}

type LockReceived struct {
	LockID      string        `json:"lockId"`
	InjectionID string        `json:"injectionId"`
	Amount      amount.Amount `json:"amount"`
	Beneficiary string        `json:"beneficiary"`
}

type LockAccepted struct {
	LockID            string `json:"lockId"`
	Stage2Signature   string `json:"stage2Signature"`
	AuthorizationCode string `json:"authorizationCode"`
}

type LockReserved struct {
	LockID string        `json:"lockId"`
	Amount amount.Amount `json:"amount"`
}

type CertificatePublished struct {
	CertificateID   string        `json:"certificateId"`
	LockID          string        `json:"lockId"`
	SettlementRef   string        `json:"settlementRef"`
	Stage3Signature string        `json:"stage3Signature"`
	PublicationCode string        `json:"publicationCode"`
	BackingRatio    amount.Amount `json:"backingRatio"`
	Amount          amount.Amount `json:"amount"`
}

type Minted struct {
	To            string        `json:"to"`
	Amount        amount.Amount `json:"amount"`
	CertificateID string        `json:"certificateId"`
}

func (InjectionReported) EventName() string    { return EventInjectionReported }
func (InjectionAccepted) EventName() string    { return EventInjectionAccepted }
func (LockReceived) EventName() string         { return EventLockReceived }
func (LockAccepted) EventName() string         { return EventLockAccepted }
func (LockReserved) EventName() string         { return EventLockReserved }
func (CertificatePublished) EventName() string { return EventCertificatePublished }
func (Minted) EventName() string               { return EventMinted }
