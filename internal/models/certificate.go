package models

import (
	"time"

	"github.com/dmitrijs2005/mintflow/internal/amount"
)

// Certificate is the final proof that a lock was consumed into minted supply.
type Certificate struct {
	ID                string        `json:"certificateId"`
	LockID            string        `json:"lockId"`
	InjectionID       string        `json:"injectionId"`
	Amount            amount.Amount `json:"amount"`
	Beneficiary       string        `json:"beneficiary"`
	SettlementRef     string        `json:"settlementRef"`
	AuthorizationCode string        `json:"authorizationCode"`
	Stage1Signature   string        `json:"stage1Signature"`
	Stage2Signature   string        `json:"stage2Signature"`
	Stage3Signature   string        `json:"stage3Signature"`
	BackingRatio      amount.Amount `json:"backingRatio"`
	MintedAmount      amount.Amount `json:"mintedAmount"`
	CertifiedBy       string        `json:"certifiedBy"`
	PublicationCode   string        `json:"publicationCode"`
	TxHash            string        `json:"txHash"`
	BlockNumber       uint64        `json:"blockNumber"`
	CreatedAt         time.Time     `json:"createdAt"`
}

// Statistics aggregates the registry, custody and certifier counters.
type Statistics struct {
	Injections    int64         `json:"injections"`
	Locks         int64         `json:"locks"`
	Certificates  int64         `json:"certificates"`
	TotalInjected amount.Amount `json:"totalInjected"`
	TotalLocked   amount.Amount `json:"totalLocked"`
	TotalMinted   amount.Amount `json:"totalMinted"`
}

// Price is a single stablecoin quote from the price feed.
type Price struct {
	Symbol    string        `json:"symbol"`
	Price     amount.Amount `json:"price"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
