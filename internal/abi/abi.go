// Package abi names the ledger targets, methods and events of the minting
// workflow and fixes the JSON shape of their arguments and results. Stage
// clients encode against it and the dev ledger node executes against it.
package abi

import (
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// Contract kinds hosted by the ledger.
const (
	KindRegistry  = "registry"
	KindCustody   = "custody"
	KindCertifier = "certifier"
	KindToken     = "token"
	KindOracle    = "oracle"
)

// TargetLedger is the built-in target for account and chain reads.
const TargetLedger = "ledger"

// Ledger built-ins.
const (
	MethodNonce       = "nonce"
	MethodBlockNumber = "blockNumber"
	MethodStatistics  = "getStatistics"
)

// Registry.
const (
	MethodReportInjection        = "reportInjection"
	MethodAcceptInjection        = "acceptInjection"
	MethodGetInjection           = "getInjection"
	MethodInjectionByExternalRef = "getInjectionByExternalRef"
)

// Custody.
const (
	MethodReceiveLock     = "receiveLock"
	MethodAcceptLock      = "acceptLock"
	MethodMoveToReserve   = "moveToReserve"
	MethodGetLock         = "getLock"
	MethodLockByInjection = "getLockByInjection"
)

// Certifier.
const (
	MethodGenerateBackedSignature = "generateBackedSignature"
	MethodVerifyBackedSignature   = "verifyBackedSignature"
	MethodGetBackingProof         = "getBackingProof"
	MethodGetCertificate          = "getCertificate"
	MethodCertificateByLock       = "getCertificateByLock"
)

// Token and oracle.
const (
	MethodBalanceOf   = "balanceOf"
	MethodTotalSupply = "totalSupply"
	MethodPrices      = "getAllStablecoinPrices"
)

type IDArgs struct {
	ID string `json:"id"`
}

type RefArgs struct {
	Ref string `json:"ref"`
}

type AddressArgs struct {
	Address string `json:"address"`
}

type SignatureArgs struct {
	Signature string `json:"signature"`
}

type ReportInjectionArgs struct {
	Amount      amount.Amount `json:"amount"`
	Beneficiary string        `json:"beneficiary"`
	ExternalRef string        `json:"externalRef"`
	ContentHash string        `json:"contentHash"`
}

type AcceptInjectionArgs struct {
	InjectionID     string `json:"injectionId"`
	Stage1Signature string `json:"stage1Signature"`
}

type ReceiveLockArgs struct {
	InjectionID     string        `json:"injectionId"`
	Amount          amount.Amount `json:"amount"`
	Beneficiary     string        `json:"beneficiary"`
	Stage1Signature string        `json:"stage1Signature"`
}

type AcceptLockArgs struct {
	LockID            string `json:"lockId"`
	Stage2Signature   string `json:"stage2Signature"`
	AuthorizationCode string `json:"authorizationCode"`
}

type GenerateBackedSignatureArgs struct {
	LockID            string        `json:"lockId"`
	Amount            amount.Amount `json:"amount"`
	Beneficiary       string        `json:"beneficiary"`
	SettlementRef     string        `json:"settlementRef"`
	AuthorizationCode string        `json:"authorizationCode"`
	Stage1Signature   string        `json:"stage1Signature"`
	Stage2Signature   string        `json:"stage2Signature"`
	Stage3Signature   string        `json:"stage3Signature"`
	MintedAmount      amount.Amount `json:"mintedAmount"`
}

type NonceResult struct {
	Nonce uint64 `json:"nonce"`
}

type BlockNumberResult struct {
	BlockNumber uint64 `json:"blockNumber"`
}

type BalanceResult struct {
	Balance amount.Amount `json:"balance"`
}

type PricesResult struct {
	Prices []models.Price `json:"prices"`
}
