// Package custody is the CustodyLock client. It turns an accepted injection
// into a lock, accepts the lock with the stage-2 signature and an
// authorization code, and moves it into the reserve.
package custody

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// InjectionReader reads the registry's records.
type InjectionReader interface {
	GetInjection(ctx context.Context, id string) (*models.Injection, error)
}

// Options configures a Client. RegistryAuthority is the address stage-1
// signatures must verify against.
type Options struct {
	Target            string
	Authority         signer.Signer
	RegistryAuthority string
}

type Client struct {
	gw                ledger.Gateway
	injections        InjectionReader
	target            string
	authority         signer.Signer
	registryAuthority string
	decoder           *ledger.Decoder
	logger            logging.Logger
}

func New(gw ledger.Gateway, injections InjectionReader, opts Options, l logging.Logger) (*Client, error) {
	if opts.Target == "" || opts.Authority == nil || opts.RegistryAuthority == "" || injections == nil {
		return nil, fmt.Errorf("%w: custody needs a target, an authority, the registry authority and an injection reader", common.ErrConfiguration)
	}
	d := ledger.NewDecoder()
	ledger.Register[abi.LockReceived](d, opts.Target, abi.EventLockReceived)
	ledger.Register[abi.LockAccepted](d, opts.Target, abi.EventLockAccepted)
	ledger.Register[abi.LockReserved](d, opts.Target, abi.EventLockReserved)

	return &Client{
		gw:                gw,
		injections:        injections,
		target:            opts.Target,
		authority:         opts.Authority,
		registryAuthority: opts.RegistryAuthority,
		decoder:           d,
		logger:            l.With("module", "custody"),
	}, nil
}

// Authority is the address stage-2 signatures are verified against.
func (c *Client) Authority() string { return c.authority.Address() }

// ReceiveLock creates a Received lock for an accepted injection. The
// arguments must match the injection record and stage1 must verify against
// the registry authority. When the injection is already locked the existing
// lock ID is returned.
func (c *Client) ReceiveLock(ctx context.Context, injectionID string, amt amount.Amount, beneficiary, stage1 string) (string, error) {
	inj, err := c.injections.GetInjection(ctx, injectionID)
	if err != nil {
		return "", err
	}
	switch {
	case amt != inj.Amount:
		return "", fmt.Errorf("%w: amount %s does not match injection %s amount %s", common.ErrValidation, amt, inj.ID, inj.Amount)
	case beneficiary != inj.Beneficiary:
		return "", fmt.Errorf("%w: beneficiary does not match injection %s", common.ErrValidation, inj.ID)
	case !inj.IsAccepted():
		return "", fmt.Errorf("%w: injection %s is %s", common.ErrStateConflict, inj.ID, inj.State)
	case !attest.Equal(stage1, inj.Stage1Signature):
		return "", fmt.Errorf("%w: stage-1 signature does not match injection %s", common.ErrValidation, inj.ID)
	}
	if err := attest.Verify(c.registryAuthority, attest.InjectionDigest(inj), stage1); err != nil {
		return "", fmt.Errorf("stage-1 signature of %s: %w", inj.ID, err)
	}

	if inj.State == models.InjectionLocked {
		return inj.LockID, nil
	}

	r, err := c.gw.Submit(ctx, c.authority, c.target, abi.MethodReceiveLock, abi.ReceiveLockArgs{
		InjectionID:     inj.ID,
		Amount:          amt,
		Beneficiary:     beneficiary,
		Stage1Signature: stage1,
	})
	if errors.Is(err, common.ErrStateConflict) {
		if l, ferr := c.FindByInjection(ctx, inj.ID); ferr == nil {
			return l.ID, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("receive lock for %s: %w", inj.ID, err)
	}

	events, err := c.decoder.Decode(r.Logs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrLedgerRejected, err)
	}
	ev, ok := ledger.Find[abi.LockReceived](events)
	if !ok {
		return "", fmt.Errorf("%w: receipt %s has no %s event", common.ErrLedgerRejected, r.TxHash, abi.EventLockReceived)
	}

	c.logger.Info(ctx, "lock received", "lock_id", ev.LockID, "injection_id", inj.ID, "tx", r.TxHash)
	return ev.LockID, nil
}

// AcceptLock moves a Received lock to Accepted and returns the stage-2
// signature and authorization code. Once accepted, the persisted pair is
// returned on every call.
func (c *Client) AcceptLock(ctx context.Context, lockID string) (string, string, error) {
	l, err := c.GetLock(ctx, lockID)
	if err != nil {
		return "", "", err
	}
	if l.State.AtLeast(models.LockAccepted) {
		return l.Stage2Signature, l.AuthorizationCode, nil
	}

	stage2, err := attest.Sign(c.authority, attest.LockDigest(l))
	if err != nil {
		return "", "", err
	}
	code := attest.AuthorizationCode(stage2)

	r, err := c.gw.Submit(ctx, c.authority, c.target, abi.MethodAcceptLock, abi.AcceptLockArgs{
		LockID:            l.ID,
		Stage2Signature:   stage2,
		AuthorizationCode: code,
	})
	if errors.Is(err, common.ErrStateConflict) {
		if again, gerr := c.GetLock(ctx, lockID); gerr == nil && again.State.AtLeast(models.LockAccepted) {
			return again.Stage2Signature, again.AuthorizationCode, nil
		}
	}
	if err != nil {
		return "", "", fmt.Errorf("accept lock %s: %w", lockID, err)
	}

	events, err := c.decoder.Decode(r.Logs)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", common.ErrLedgerRejected, err)
	}
	if ev, ok := ledger.Find[abi.LockAccepted](events); ok && (ev.Stage2Signature != stage2 || ev.AuthorizationCode != code) {
		return "", "", fmt.Errorf("%w: ledger recorded a different acceptance for %s", common.ErrLedgerRejected, lockID)
	}

	c.logger.Info(ctx, "lock accepted", "lock_id", lockID, "authorization_code", code, "tx", r.TxHash)
	return stage2, code, nil
}

// MoveToReserve commits an Accepted lock to the reserve. A lock that is
// already reserved or consumed is left as is.
func (c *Client) MoveToReserve(ctx context.Context, lockID string) error {
	l, err := c.GetLock(ctx, lockID)
	if err != nil {
		return err
	}
	if l.State.AtLeast(models.LockReserved) {
		return nil
	}
	if l.State != models.LockAccepted {
		return fmt.Errorf("%w: lock %s is %s", common.ErrStateConflict, lockID, l.State)
	}

	r, err := c.gw.Submit(ctx, c.authority, c.target, abi.MethodMoveToReserve, abi.IDArgs{ID: lockID})
	if errors.Is(err, common.ErrStateConflict) {
		if again, gerr := c.GetLock(ctx, lockID); gerr == nil && again.State.AtLeast(models.LockReserved) {
			return nil
		}
	}
	if err != nil {
		return fmt.Errorf("move lock %s to reserve: %w", lockID, err)
	}

	c.logger.Info(ctx, "lock reserved", "lock_id", lockID, "tx", r.TxHash)
	return nil
}

// GetLock returns common.ErrorNotFound when id is unknown.
func (c *Client) GetLock(ctx context.Context, id string) (*models.Lock, error) {
	l := &models.Lock{}
	if err := c.gw.Call(ctx, c.target, abi.MethodGetLock, abi.IDArgs{ID: id}, l); err != nil {
		return nil, fmt.Errorf("get lock %s: %w", id, err)
	}
	return l, nil
}

func (c *Client) FindByInjection(ctx context.Context, injectionID string) (*models.Lock, error) {
	l := &models.Lock{}
	if err := c.gw.Call(ctx, c.target, abi.MethodLockByInjection, abi.IDArgs{ID: injectionID}, l); err != nil {
		return nil, fmt.Errorf("find lock for %s: %w", injectionID, err)
	}
	return l, nil
}
