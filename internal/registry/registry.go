// Package registry is the InjectionRegistry client: it reports fiat
// deposits to the ledger and accepts them with the stage-1 signature.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/attest"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/signer"
)

// Options configures a Client. Reporter submits new injections; Authority
// accepts them and produces the stage-1 signature.
type Options struct {
	Target    string
	Reporter  signer.Signer
	Authority signer.Signer
}

type Client struct {
	gw        ledger.Gateway
	target    string
	reporter  signer.Signer
	authority signer.Signer
	decoder   *ledger.Decoder
	logger    logging.Logger
}

type ReportInput struct {
	Amount      amount.Amount
	Beneficiary string
	ExternalRef string
	ContentHash string
}

func (in ReportInput) Validate() error {
	switch {
	case !in.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	case strings.TrimSpace(in.ExternalRef) == "":
		return fmt.Errorf("%w: external reference is required", common.ErrValidation)
	case in.Beneficiary == "":
		return fmt.Errorf("%w: beneficiary is required", common.ErrValidation)
	case in.ContentHash == "":
		return fmt.Errorf("%w: content hash is required", common.ErrValidation)
	}
	return nil
}

func New(gw ledger.Gateway, opts Options, l logging.Logger) (*Client, error) {
	if opts.Target == "" || opts.Reporter == nil || opts.Authority == nil {
		return nil, fmt.Errorf("%w: registry needs a target, a reporter and an authority", common.ErrConfiguration)
	}
	d := ledger.NewDecoder()
	ledger.Register[abi.InjectionReported](d, opts.Target, abi.EventInjectionReported)
	ledger.Register[abi.InjectionAccepted](d, opts.Target, abi.EventInjectionAccepted)

	return &Client{
		gw:        gw,
		target:    opts.Target,
		reporter:  opts.Reporter,
		authority: opts.Authority,
		decoder:   d,
		logger:    l.With("module", "registry"),
	}, nil
}

// Authority is the address stage-1 signatures are verified against.
func (c *Client) Authority() string { return c.authority.Address() }

// ReportInjection records a Pending injection and returns its ID. A
// duplicate external reference is refused by the ledger.
func (c *Client) ReportInjection(ctx context.Context, in ReportInput) (string, error) {
	if err := in.Validate(); err != nil {
		return "", err
	}

	r, err := c.gw.Submit(ctx, c.reporter, c.target, abi.MethodReportInjection, abi.ReportInjectionArgs{
		Amount:      in.Amount,
		Beneficiary: in.Beneficiary,
		ExternalRef: in.ExternalRef,
		ContentHash: in.ContentHash,
	})
	if err != nil {
		return "", fmt.Errorf("report injection %q: %w", in.ExternalRef, err)
	}

	events, err := c.decoder.Decode(r.Logs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrLedgerRejected, err)
	}
	ev, ok := ledger.Find[abi.InjectionReported](events)
	if !ok {
		return "", fmt.Errorf("%w: receipt %s has no %s event", common.ErrLedgerRejected, r.TxHash, abi.EventInjectionReported)
	}

	c.logger.Info(ctx, "injection reported", "injection_id", ev.InjectionID, "external_ref", in.ExternalRef, "tx", r.TxHash)
	return ev.InjectionID, nil
}

// AcceptInjection moves a Pending injection to Accepted and returns its
// stage-1 signature. For an injection that is already accepted it returns
// the stored signature.
func (c *Client) AcceptInjection(ctx context.Context, id string) (string, error) {
	inj, err := c.GetInjection(ctx, id)
	if err != nil {
		return "", err
	}
	if inj.IsAccepted() {
		return inj.Stage1Signature, nil
	}

	sig, err := attest.Sign(c.authority, attest.InjectionDigest(inj))
	if err != nil {
		return "", err
	}

	r, err := c.gw.Submit(ctx, c.authority, c.target, abi.MethodAcceptInjection, abi.AcceptInjectionArgs{
		InjectionID:     id,
		Stage1Signature: sig,
	})
	if errors.Is(err, common.ErrStateConflict) {
		// accepted concurrently
		if again, gerr := c.GetInjection(ctx, id); gerr == nil && again.IsAccepted() {
			return again.Stage1Signature, nil
		}
	}
	if err != nil {
		return "", fmt.Errorf("accept injection %s: %w", id, err)
	}

	events, err := c.decoder.Decode(r.Logs)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrLedgerRejected, err)
	}
	if ev, ok := ledger.Find[abi.InjectionAccepted](events); ok && ev.Stage1Signature != sig {
		return "", fmt.Errorf("%w: ledger recorded a different stage-1 signature for %s", common.ErrLedgerRejected, id)
	}

	c.logger.Info(ctx, "injection accepted", "injection_id", id, "tx", r.TxHash)
	return sig, nil
}

// GetInjection returns common.ErrorNotFound when id is unknown.
func (c *Client) GetInjection(ctx context.Context, id string) (*models.Injection, error) {
	inj := &models.Injection{}
	if err := c.gw.Call(ctx, c.target, abi.MethodGetInjection, abi.IDArgs{ID: id}, inj); err != nil {
		return nil, fmt.Errorf("get injection %s: %w", id, err)
	}
	return inj, nil
}

func (c *Client) FindByExternalRef(ctx context.Context, ref string) (*models.Injection, error) {
	inj := &models.Injection{}
	if err := c.gw.Call(ctx, c.target, abi.MethodInjectionByExternalRef, abi.RefArgs{Ref: ref}, inj); err != nil {
		return nil, fmt.Errorf("find injection %q: %w", ref, err)
	}
	return inj, nil
}
