// Package certifier is the MintCertifier client. It checks the two earlier
// stage signatures of a reserved lock, signs stage 3 and has the ledger
// publish the certificate and mint in a single transaction.
package certifier

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

// ErrMintMissing is returned when a certification receipt lacks the
// certificate or the mint event. The certificate may still exist.
var ErrMintMissing = fmt.Errorf("%w: certification receipt is incomplete", common.ErrLedgerRejected)

type InjectionReader interface {
	GetInjection(ctx context.Context, id string) (*models.Injection, error)
}

type LockReader interface {
	GetLock(ctx context.Context, id string) (*models.Lock, error)
}

// Options configures a Client. The two authority addresses are the ones
// stage-1 and stage-2 signatures must verify against. TrustedCertifiers lists
// earlier certifier addresses whose certificates still verify after a key
// rotation; the current Authority is always trusted.
type Options struct {
	Target            string
	TokenTarget       string
	Authority         signer.Signer
	RegistryAuthority string
	CustodyAuthority  string
	TrustedCertifiers []string
}

type Client struct {
	gw                ledger.Gateway
	injections        InjectionReader
	locks             LockReader
	target            string
	tokenTarget       string
	authority         signer.Signer
	registryAuthority string
	custodyAuthority  string
	trusted           map[string]struct{}
	decoder           *ledger.Decoder
	logger            logging.Logger
}

// BackingRequest carries everything the certifier needs to consume a lock.
type BackingRequest struct {
	LockID            string
	Amount            amount.Amount
	Beneficiary       string
	SettlementRef     string
	AuthorizationCode string
	Stage1Signature   string
	Stage2Signature   string
}

func (r BackingRequest) Validate() error {
	switch {
	case r.LockID == "":
		return fmt.Errorf("%w: lock id is required", common.ErrValidation)
	case !r.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	case r.Beneficiary == "":
		return fmt.Errorf("%w: beneficiary is required", common.ErrValidation)
	case strings.TrimSpace(r.SettlementRef) == "":
		return fmt.Errorf("%w: settlement reference is required", common.ErrValidation)
	case r.AuthorizationCode == "" || r.Stage1Signature == "" || r.Stage2Signature == "":
		return fmt.Errorf("%w: authorization code and both prior signatures are required", common.ErrValidation)
	}
	return nil
}

// Backing is the outcome of a successful certification.
type Backing struct {
	CertificateID   string
	Stage3Signature string
	MintedAmount    amount.Amount
	BackingRatio    amount.Amount
	PublicationCode string
	TxHash          string
	BlockNumber     uint64
}

type Verification struct {
	IsValid       bool
	CertificateID string
	AmountBacked  amount.Amount
	AmountMinted  amount.Amount
}

func New(gw ledger.Gateway, injections InjectionReader, locks LockReader, opts Options, l logging.Logger) (*Client, error) {
	if opts.Target == "" || opts.TokenTarget == "" || opts.Authority == nil {
		return nil, fmt.Errorf("%w: certifier needs a target, a token target and an authority", common.ErrConfiguration)
	}
	if opts.RegistryAuthority == "" || opts.CustodyAuthority == "" || injections == nil || locks == nil {
		return nil, fmt.Errorf("%w: certifier needs the registry and custody authorities and readers", common.ErrConfiguration)
	}
	trusted := map[string]struct{}{opts.Authority.Address(): {}}
	for _, a := range opts.TrustedCertifiers {
		if a = strings.TrimSpace(a); a != "" {
			trusted[a] = struct{}{}
		}
	}
	d := ledger.NewDecoder()
	ledger.Register[abi.CertificatePublished](d, opts.Target, abi.EventCertificatePublished)
	ledger.Register[abi.Minted](d, opts.TokenTarget, abi.EventMinted)

	return &Client{
		gw:                gw,
		injections:        injections,
		locks:             locks,
		target:            opts.Target,
		tokenTarget:       opts.TokenTarget,
		authority:         opts.Authority,
		registryAuthority: opts.RegistryAuthority,
		custodyAuthority:  opts.CustodyAuthority,
		trusted:           trusted,
		decoder:           d,
		logger:            l.With("module", "certifier"),
	}, nil
}

// Authority is the address stage-3 signatures are verified against.
func (c *Client) Authority() string { return c.authority.Address() }

// GenerateBackedSignature consumes a reserved lock. A lock that is not
// Reserved, including one that was already consumed, is a state conflict;
// callers that want read-repair look the certificate up with FindByLock.
func (c *Client) GenerateBackedSignature(ctx context.Context, req BackingRequest) (*Backing, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	l, err := c.locks.GetLock(ctx, req.LockID)
	if err != nil {
		return nil, err
	}
	if l.State != models.LockReserved {
		return nil, fmt.Errorf("%w: lock %s is %s", common.ErrStateConflict, l.ID, l.State)
	}
	if req.Amount != l.Amount {
		return nil, fmt.Errorf("%w: amount %s does not match lock %s amount %s", common.ErrValidation, req.Amount, l.ID, l.Amount)
	}
	if req.Beneficiary != l.Beneficiary {
		return nil, fmt.Errorf("%w: beneficiary does not match lock %s", common.ErrValidation, l.ID)
	}

	inj, err := c.injections.GetInjection(ctx, l.InjectionID)
	if err != nil {
		return nil, err
	}
	if err := attest.Verify(c.registryAuthority, attest.InjectionDigest(inj), req.Stage1Signature); err != nil {
		return nil, fmt.Errorf("stage-1 signature of %s: %w", inj.ID, err)
	}
	if err := attest.Verify(c.custodyAuthority, attest.LockDigest(l), req.Stage2Signature); err != nil {
		return nil, fmt.Errorf("stage-2 signature of %s: %w", l.ID, err)
	}
	switch {
	case !attest.Equal(req.Stage1Signature, l.Stage1Signature):
		return nil, fmt.Errorf("%w: stage-1 signature does not match lock %s", common.ErrValidation, l.ID)
	case !attest.Equal(req.Stage2Signature, l.Stage2Signature):
		return nil, fmt.Errorf("%w: stage-2 signature does not match lock %s", common.ErrValidation, l.ID)
	case !attest.Equal(req.AuthorizationCode, l.AuthorizationCode):
		return nil, fmt.Errorf("%w: authorization code does not match lock %s", common.ErrValidation, l.ID)
	}

	stage3, err := attest.Sign(c.authority, attest.Stage3Digest(l.ID, l.Stage1Signature, l.Stage2Signature, req.SettlementRef, l.Amount))
	if err != nil {
		return nil, err
	}

	r, err := c.gw.Submit(ctx, c.authority, c.target, abi.MethodGenerateBackedSignature, abi.GenerateBackedSignatureArgs{
		LockID:            l.ID,
		Amount:            l.Amount,
		Beneficiary:       l.Beneficiary,
		SettlementRef:     req.SettlementRef,
		AuthorizationCode: l.AuthorizationCode,
		Stage1Signature:   l.Stage1Signature,
		Stage2Signature:   l.Stage2Signature,
		Stage3Signature:   stage3,
		MintedAmount:      l.Amount,
	})
	if err != nil {
		return nil, fmt.Errorf("certify lock %s: %w", l.ID, err)
	}

	events, err := c.decoder.Decode(r.Logs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrLedgerRejected, err)
	}
	cert, okCert := ledger.Find[abi.CertificatePublished](events)
	mint, okMint := ledger.Find[abi.Minted](events)
	if !okCert || !okMint {
		return nil, fmt.Errorf("%w: tx %s", ErrMintMissing, r.TxHash)
	}
	if mint.CertificateID != cert.CertificateID || mint.Amount != cert.Amount {
		return nil, fmt.Errorf("%w: mint event does not match certificate %s", ErrMintMissing, cert.CertificateID)
	}

	c.logger.Info(ctx, "certificate published",
		"certificate_id", cert.CertificateID, "lock_id", l.ID, "settlement_ref", req.SettlementRef,
		"minted", mint.Amount, "tx", r.TxHash, "block", r.BlockNumber)

	return &Backing{
		CertificateID:   cert.CertificateID,
		Stage3Signature: cert.Stage3Signature,
		MintedAmount:    mint.Amount,
		BackingRatio:    cert.BackingRatio,
		PublicationCode: cert.PublicationCode,
		TxHash:          r.TxHash,
		BlockNumber:     r.BlockNumber,
	}, nil
}

// VerifyBackedSignature looks up the certificate carrying stage3 and checks
// the signature locally. An unknown signature is reported as invalid, not as
// an error.
func (c *Client) VerifyBackedSignature(ctx context.Context, stage3 string) (*Verification, error) {
	if _, err := signer.DecodeSignature(stage3); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}

	cert := &models.Certificate{}
	err := c.gw.Call(ctx, c.target, abi.MethodVerifyBackedSignature, abi.SignatureArgs{Signature: stage3}, cert)
	if errors.Is(err, common.ErrorNotFound) {
		return &Verification{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("verify backed signature: %w", err)
	}

	v := &Verification{
		CertificateID: cert.ID,
		AmountBacked:  cert.Amount,
		AmountMinted:  cert.MintedAmount,
	}
	digest := attest.Stage3Digest(cert.LockID, cert.Stage1Signature, cert.Stage2Signature, cert.SettlementRef, cert.Amount)
	_, trusted := c.trusted[cert.CertifiedBy]
	v.IsValid = trusted &&
		attest.Equal(cert.Stage3Signature, stage3) &&
		attest.Verify(cert.CertifiedBy, digest, stage3) == nil
	return v, nil
}

// GetBackingProof returns the certificate issued for settlementRef.
func (c *Client) GetBackingProof(ctx context.Context, settlementRef string) (*models.Certificate, error) {
	return c.certificate(ctx, abi.MethodGetBackingProof, abi.RefArgs{Ref: settlementRef}, settlementRef)
}

func (c *Client) GetCertificate(ctx context.Context, id string) (*models.Certificate, error) {
	return c.certificate(ctx, abi.MethodGetCertificate, abi.IDArgs{ID: id}, id)
}

func (c *Client) FindByLock(ctx context.Context, lockID string) (*models.Certificate, error) {
	return c.certificate(ctx, abi.MethodCertificateByLock, abi.IDArgs{ID: lockID}, lockID)
}

func (c *Client) certificate(ctx context.Context, method string, args any, key string) (*models.Certificate, error) {
	cert := &models.Certificate{}
	if err := c.gw.Call(ctx, c.target, method, args, cert); err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, key, err)
	}
	return cert, nil
}

// BalanceOf reads the minted balance of address from the token target.
func (c *Client) BalanceOf(ctx context.Context, address string) (amount.Amount, error) {
	var res abi.BalanceResult
	if err := c.gw.Call(ctx, c.tokenTarget, abi.MethodBalanceOf, abi.AddressArgs{Address: address}, &res); err != nil {
		return 0, fmt.Errorf("balance of %s: %w", address, err)
	}
	return res.Balance, nil
}

func (c *Client) TotalSupply(ctx context.Context) (amount.Amount, error) {
	var res abi.BalanceResult
	if err := c.gw.Call(ctx, c.tokenTarget, abi.MethodTotalSupply, nil, &res); err != nil {
		return 0, fmt.Errorf("total supply: %w", err)
	}
	return res.Balance, nil
}
