package ledgernode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/store"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// env is the execution context of one transaction. Handlers validate
// everything first and only then write, so a revert never leaves partial
// writes behind.
type env struct {
	ctx   context.Context
	node  *Node
	st    store.State
	tx    *ledger.Transaction
	hash  string
	block uint64
	now   time.Time
	logs  []ledger.Log
}

type txHandler func(e *env) error

func transactionHandlers() map[string]map[string]txHandler {
	return map[string]map[string]txHandler{
		abi.KindRegistry: {
			abi.MethodReportInjection: reportInjection,
			abi.MethodAcceptInjection: acceptInjection,
		},
		abi.KindCustody: {
			abi.MethodReceiveLock:   receiveLock,
			abi.MethodAcceptLock:    acceptLock,
			abi.MethodMoveToReserve: moveToReserve,
		},
		abi.KindCertifier: {
			abi.MethodGenerateBackedSignature: generateBackedSignature,
		},
	}
}

// emit appends an event log. target defaults to the transaction target.
func (e *env) emit(target string, ev ledger.Event) error {
	if target == "" {
		target = e.tx.Target
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.EventName(), err)
	}
	e.logs = append(e.logs, ledger.Log{Index: len(e.logs), Target: target, Name: ev.EventName(), Data: data})
	return nil
}

func (e *env) require(allowed []string, action string) error {
	if len(allowed) == 0 || slices.Contains(allowed, e.tx.From) {
		return nil
	}
	return ledger.Reject(ledger.CodeUnauthorized, "%s may not %s", e.tx.From, action)
}

func (e *env) injection(id string) (*models.Injection, error) {
	inj, err := e.st.Injection(e.ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ledger.Reject(ledger.CodeNotFound, "injection %s not found", id)
	}
	return inj, err
}

func (e *env) lock(id string) (*models.Lock, error) {
	l, err := e.st.Lock(e.ctx, id)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ledger.Reject(ledger.CodeNotFound, "lock %s not found", id)
	}
	return l, err
}

func decodeArgs[T any](raw json.RawMessage) (T, error) {
	var v T
	if len(raw) == 0 {
		return v, ledger.Reject(ledger.CodeInvalidArgument, "missing arguments")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		return v, ledger.Reject(ledger.CodeInvalidArgument, "decode arguments: %v", err)
	}
	return v, nil
}

// signatureRevert turns an attest.Verify failure into a revert.
func signatureRevert(what string, err error) error {
	if errors.Is(err, common.ErrAuthorization) {
		return ledger.Reject(ledger.CodeUnauthorized, "%s: %v", what, err)
	}
	return ledger.Reject(ledger.CodeInvalidArgument, "%s: %v", what, err)
}

func reportInjection(e *env) error {
	if err := e.require(e.node.authorities.Reporters, "report injections"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.ReportInjectionArgs](e.tx.Args)
	if err != nil {
		return err
	}
	switch {
	case !a.Amount.IsPositive():
		return ledger.Reject(ledger.CodeInvalidArgument, "amount must be positive")
	case strings.TrimSpace(a.ExternalRef) == "":
		return ledger.Reject(ledger.CodeInvalidArgument, "external reference is required")
	case a.Beneficiary == "":
		return ledger.Reject(ledger.CodeInvalidArgument, "beneficiary is required")
	case a.ContentHash == "":
		return ledger.Reject(ledger.CodeInvalidArgument, "content hash is required")
	}

	if _, err := e.st.InjectionByExternalRef(e.ctx, a.ExternalRef); err == nil {
		return ledger.Reject(ledger.CodeDuplicate, "external reference %q already reported", a.ExternalRef)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	inj := &models.Injection{
		ID:          attest.InjectionID(a.ExternalRef),
		Amount:      a.Amount,
		Beneficiary: a.Beneficiary,
		ExternalRef: a.ExternalRef,
		ContentHash: a.ContentHash,
		State:       models.InjectionPending,
		CreatedAt:   e.now,
	}
	if err := e.st.PutInjection(e.ctx, inj); err != nil {
		return err
	}
	return e.emit("", abi.InjectionReported{
		InjectionID: inj.ID,
		Amount:      inj.Amount,
		Beneficiary: inj.Beneficiary,
		ExternalRef: inj.ExternalRef,
		ContentHash: inj.ContentHash,
	})
}

func acceptInjection(e *env) error {
	if err := e.require(e.node.authorities.Registry, "accept injections"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.AcceptInjectionArgs](e.tx.Args)
	if err != nil {
		return err
	}
	inj, err := e.injection(a.InjectionID)
	if err != nil {
		return err
	}
	if inj.State != models.InjectionPending {
		return ledger.Reject(ledger.CodeStateConflict, "injection %s is %s", inj.ID, inj.State)
	}
	if err := attest.Verify(e.tx.From, attest.InjectionDigest(inj), a.Stage1Signature); err != nil {
		return signatureRevert("stage-1 signature", err)
	}

	now := e.now
	inj.Stage1Signature = a.Stage1Signature
	inj.AcceptedBy = e.tx.From
	inj.State = models.InjectionAccepted
	inj.AcceptedAt = &now
	if err := e.st.PutInjection(e.ctx, inj); err != nil {
		return err
	}
	return e.emit("", abi.InjectionAccepted{
		InjectionID:     inj.ID,
		Stage1Signature: inj.Stage1Signature,
		AcceptedBy:      inj.AcceptedBy,
	})
}

func receiveLock(e *env) error {
	if err := e.require(e.node.authorities.Custody, "receive locks"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.ReceiveLockArgs](e.tx.Args)
	if err != nil {
		return err
	}
	inj, err := e.injection(a.InjectionID)
	if err != nil {
		return err
	}
	switch inj.State {
	case models.InjectionPending:
		return ledger.Reject(ledger.CodeStateConflict, "injection %s is not accepted", inj.ID)
	case models.InjectionLocked:
		return ledger.Reject(ledger.CodeStateConflict, "injection %s is already locked by %s", inj.ID, inj.LockID)
	}
	switch {
	case a.Amount != inj.Amount:
		return ledger.Reject(ledger.CodeInvalidArgument, "amount %s does not match injection amount %s", a.Amount, inj.Amount)
	case a.Beneficiary != inj.Beneficiary:
		return ledger.Reject(ledger.CodeInvalidArgument, "beneficiary does not match injection %s", inj.ID)
	case !attest.Equal(a.Stage1Signature, inj.Stage1Signature):
		return ledger.Reject(ledger.CodeInvalidArgument, "stage-1 signature does not match injection %s", inj.ID)
	}
	if err := attest.Verify(inj.AcceptedBy, attest.InjectionDigest(inj), inj.Stage1Signature); err != nil {
		return signatureRevert("stage-1 signature", err)
	}

	now := e.now
	l := &models.Lock{
		ID:              attest.LockID(inj.ID),
		InjectionID:     inj.ID,
		Amount:          inj.Amount,
		Beneficiary:     inj.Beneficiary,
		Stage1Signature: inj.Stage1Signature,
		State:           models.LockReceived,
		CreatedAt:       now,
	}
	inj.State = models.InjectionLocked
	inj.LockID = l.ID
	inj.LockedAt = &now

	if err := e.st.PutLock(e.ctx, l); err != nil {
		return err
	}
	if err := e.st.PutInjection(e.ctx, inj); err != nil {
		return err
	}
	return e.emit("", abi.LockReceived{
		LockID:      l.ID,
		InjectionID: l.InjectionID,
		Amount:      l.Amount,
		Beneficiary: l.Beneficiary,
	})
}

func acceptLock(e *env) error {
	if err := e.require(e.node.authorities.Custody, "accept locks"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.AcceptLockArgs](e.tx.Args)
	if err != nil {
		return err
	}
	l, err := e.lock(a.LockID)
	if err != nil {
		return err
	}
	if l.State != models.LockReceived {
		return ledger.Reject(ledger.CodeStateConflict, "lock %s is %s", l.ID, l.State)
	}
	if err := attest.Verify(e.tx.From, attest.LockDigest(l), a.Stage2Signature); err != nil {
		return signatureRevert("stage-2 signature", err)
	}
	if a.AuthorizationCode != attest.AuthorizationCode(a.Stage2Signature) {
		return ledger.Reject(ledger.CodeInvalidArgument, "authorization code does not match stage-2 signature")
	}

	now := e.now
	l.Stage2Signature = a.Stage2Signature
	l.AuthorizationCode = a.AuthorizationCode
	l.AcceptedBy = e.tx.From
	l.State = models.LockAccepted
	l.AcceptedAt = &now
	if err := e.st.PutLock(e.ctx, l); err != nil {
		return err
	}
	return e.emit("", abi.LockAccepted{
		LockID:            l.ID,
		Stage2Signature:   l.Stage2Signature,
		AuthorizationCode: l.AuthorizationCode,
	})
}

func moveToReserve(e *env) error {
	if err := e.require(e.node.authorities.Custody, "reserve locks"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.IDArgs](e.tx.Args)
	if err != nil {
		return err
	}
	l, err := e.lock(a.ID)
	if err != nil {
		return err
	}
	if l.State != models.LockAccepted {
		return ledger.Reject(ledger.CodeStateConflict, "lock %s is %s", l.ID, l.State)
	}

	now := e.now
	l.State = models.LockReserved
	l.ReservedAt = &now
	if err := e.st.PutLock(e.ctx, l); err != nil {
		return err
	}
	return e.emit("", abi.LockReserved{LockID: l.ID, Amount: l.Amount})
}

// generateBackedSignature consumes a reserved lock, publishes its
// certificate and mints to the beneficiary in one transaction.
func generateBackedSignature(e *env) error {
	if err := e.require(e.node.authorities.Certifier, "certify locks"); err != nil {
		return err
	}
	a, err := decodeArgs[abi.GenerateBackedSignatureArgs](e.tx.Args)
	if err != nil {
		return err
	}
	l, err := e.lock(a.LockID)
	if err != nil {
		return err
	}
	if l.State != models.LockReserved {
		return ledger.Reject(ledger.CodeStateConflict, "lock %s is %s", l.ID, l.State)
	}
	switch {
	case strings.TrimSpace(a.SettlementRef) == "":
		return ledger.Reject(ledger.CodeInvalidArgument, "settlement reference is required")
	case a.Amount != l.Amount:
		return ledger.Reject(ledger.CodeInvalidArgument, "amount %s does not match lock amount %s", a.Amount, l.Amount)
	case a.Beneficiary != l.Beneficiary:
		return ledger.Reject(ledger.CodeInvalidArgument, "beneficiary does not match lock %s", l.ID)
	case !attest.Equal(a.Stage1Signature, l.Stage1Signature):
		return ledger.Reject(ledger.CodeInvalidArgument, "stage-1 signature does not match lock %s", l.ID)
	case !attest.Equal(a.Stage2Signature, l.Stage2Signature):
		return ledger.Reject(ledger.CodeInvalidArgument, "stage-2 signature does not match lock %s", l.ID)
	case !attest.Equal(a.AuthorizationCode, l.AuthorizationCode):
		return ledger.Reject(ledger.CodeInvalidArgument, "authorization code does not match lock %s", l.ID)
	case a.MintedAmount != l.Amount:
		return ledger.Reject(ledger.CodeInvalidArgument, "minted amount %s must equal backed amount %s", a.MintedAmount, l.Amount)
	}

	inj, err := e.injection(l.InjectionID)
	if err != nil {
		return err
	}
	if err := attest.Verify(inj.AcceptedBy, attest.InjectionDigest(inj), l.Stage1Signature); err != nil {
		return signatureRevert("stage-1 signature", err)
	}
	if err := attest.Verify(l.AcceptedBy, attest.LockDigest(l), l.Stage2Signature); err != nil {
		return signatureRevert("stage-2 signature", err)
	}
	digest := attest.Stage3Digest(l.ID, l.Stage1Signature, l.Stage2Signature, a.SettlementRef, l.Amount)
	if err := attest.Verify(e.tx.From, digest, a.Stage3Signature); err != nil {
		return signatureRevert("stage-3 signature", err)
	}

	if _, err := e.st.CertificateBySettlementRef(e.ctx, a.SettlementRef); err == nil {
		return ledger.Reject(ledger.CodeDuplicate, "settlement reference %q already certified", a.SettlementRef)
	} else if !errors.Is(err, common.ErrorNotFound) {
		return err
	}

	ratio, err := amount.Ratio(a.MintedAmount, l.Amount)
	if err != nil {
		return ledger.Reject(ledger.CodeInvalidArgument, "backing ratio: %v", err)
	}
	balance, err := e.st.Balance(e.ctx, l.Beneficiary)
	if err != nil {
		return err
	}
	newBalance, err := balance.Add(a.MintedAmount)
	if err != nil {
		return ledger.Reject(ledger.CodeInvalidArgument, "balance of %s: %v", l.Beneficiary, err)
	}

	cert := &models.Certificate{
		ID:                attest.CertificateID(l.ID),
		LockID:            l.ID,
		InjectionID:       l.InjectionID,
		Amount:            l.Amount,
		Beneficiary:       l.Beneficiary,
		SettlementRef:     a.SettlementRef,
		AuthorizationCode: l.AuthorizationCode,
		Stage1Signature:   l.Stage1Signature,
		Stage2Signature:   l.Stage2Signature,
		Stage3Signature:   a.Stage3Signature,
		BackingRatio:      ratio,
		MintedAmount:      a.MintedAmount,
		CertifiedBy:       e.tx.From,
		TxHash:            e.hash,
		BlockNumber:       e.block,
		CreatedAt:         e.now,
	}
	if cert.PublicationCode, err = attest.PublicationCode(cert); err != nil {
		return fmt.Errorf("publication code: %w", err)
	}

	now := e.now
	l.State = models.LockConsumed
	l.CertificateID = cert.ID
	l.ConsumedAt = &now

	if err := e.st.PutLock(e.ctx, l); err != nil {
		return err
	}
	if err := e.st.PutCertificate(e.ctx, cert); err != nil {
		return err
	}
	if err := e.st.PutBalance(e.ctx, cert.Beneficiary, newBalance); err != nil {
		return err
	}

	if err := e.emit("", abi.CertificatePublished{
		CertificateID:   cert.ID,
		LockID:          cert.LockID,
		SettlementRef:   cert.SettlementRef,
		Stage3Signature: cert.Stage3Signature,
		PublicationCode: cert.PublicationCode,
		BackingRatio:    cert.BackingRatio,
		Amount:          cert.Amount,
	}); err != nil {
		return err
	}
	return e.emit(e.node.targetOf(abi.KindToken), abi.Minted{
		To:            cert.Beneficiary,
		Amount:        cert.MintedAmount,
		CertificateID: cert.ID,
	})
}
