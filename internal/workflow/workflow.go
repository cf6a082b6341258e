// Package workflow drives one logical transfer through the registry, custody
// and certifier stages. Each stage first reads the ledger and is skipped when
// its effect is already there, so a run that was abandoned or failed can be
// started again with the same transfer and resumes where it stopped.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/certifier"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/logging"
	"github.com/dmitrijs2005/mintflow/internal/models"
	"github.com/dmitrijs2005/mintflow/internal/observability"
	"github.com/dmitrijs2005/mintflow/internal/registry"
)

// State is how far a transfer has got on the ledger.
type State string

const (
	StateNew       State = "NEW"
	StateReported  State = "REPORTED"
	StateInjected  State = "INJECTED"
	StateLocked    State = "LOCKED"
	StateReserved  State = "RESERVED"
	StateCertified State = "CERTIFIED"
	StateMinted    State = "MINTED"
)

type Stage string

const (
	StageReport        Stage = "reportInjection"
	StageAccept        Stage = "acceptInjection"
	StageReceiveLock   Stage = "receiveLock"
	StageAcceptLock    Stage = "acceptLock"
	StageMoveToReserve Stage = "moveToReserve"
	StageCertify       Stage = "generateBackedSignature"
)

type Registry interface {
	ReportInjection(ctx context.Context, in registry.ReportInput) (string, error)
	AcceptInjection(ctx context.Context, id string) (string, error)
	GetInjection(ctx context.Context, id string) (*models.Injection, error)
	FindByExternalRef(ctx context.Context, ref string) (*models.Injection, error)
}

type Custody interface {
	ReceiveLock(ctx context.Context, injectionID string, amt amount.Amount, beneficiary, stage1 string) (string, error)
	AcceptLock(ctx context.Context, lockID string) (string, string, error)
	MoveToReserve(ctx context.Context, lockID string) error
	GetLock(ctx context.Context, id string) (*models.Lock, error)
	FindByInjection(ctx context.Context, injectionID string) (*models.Lock, error)
}

type Certifier interface {
	GenerateBackedSignature(ctx context.Context, req certifier.BackingRequest) (*certifier.Backing, error)
	FindByLock(ctx context.Context, lockID string) (*models.Certificate, error)
}

// Archive receives every certificate of a successful run.
type Archive interface {
	Publish(ctx context.Context, c *models.Certificate) (string, error)
}

type Config struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Parallelism int
}

func DefaultConfig() Config {
	return Config{
		MaxAttempts: 5,
		BaseBackoff: 200 * time.Millisecond,
		MaxBackoff:  5 * time.Second,
		Parallelism: 4,
	}
}

func (c Config) Validate() error {
	switch {
	case c.MaxAttempts < 1:
		return fmt.Errorf("%w: max attempts must be at least 1", common.ErrConfiguration)
	case c.BaseBackoff <= 0:
		return fmt.Errorf("%w: base backoff must be positive", common.ErrConfiguration)
	case c.MaxBackoff < c.BaseBackoff:
		return fmt.Errorf("%w: max backoff is below base backoff", common.ErrConfiguration)
	case c.Parallelism < 1:
		return fmt.Errorf("%w: parallelism must be at least 1", common.ErrConfiguration)
	}
	return nil
}

// Transfer is one deposit to be minted. ExternalRef is the idempotency key
// of the whole run.
type Transfer struct {
	ExternalRef   string        `json:"externalRef"`
	Amount        amount.Amount `json:"amount"`
	Beneficiary   string        `json:"beneficiary"`
	ContentHash   string        `json:"contentHash"`
	SettlementRef string        `json:"settlementRef"`
}

func (t Transfer) Validate() error {
	switch {
	case strings.TrimSpace(t.ExternalRef) == "":
		return fmt.Errorf("%w: external reference is required", common.ErrValidation)
	case !t.Amount.IsPositive():
		return fmt.Errorf("%w: amount must be positive", common.ErrValidation)
	case t.Beneficiary == "":
		return fmt.Errorf("%w: beneficiary is required", common.ErrValidation)
	case t.ContentHash == "":
		return fmt.Errorf("%w: content hash is required", common.ErrValidation)
	case strings.TrimSpace(t.SettlementRef) == "":
		return fmt.Errorf("%w: settlement reference is required", common.ErrValidation)
	}
	return nil
}

type Result struct {
	InjectionID       string        `json:"injectionId"`
	LockID            string        `json:"lockId"`
	CertificateID     string        `json:"certificateId"`
	Stage1Signature   string        `json:"stage1Signature"`
	Stage2Signature   string        `json:"stage2Signature"`
	AuthorizationCode string        `json:"authorizationCode"`
	Stage3Signature   string        `json:"stage3Signature"`
	MintedAmount      amount.Amount `json:"mintedAmount"`
	BackingRatio      amount.Amount `json:"backingRatio"`
	PublicationCode   string        `json:"publicationCode"`
	TxHash            string        `json:"txHash"`
	BlockNumber       uint64        `json:"blockNumber"`
	ArchiveKey        string        `json:"archiveKey,omitempty"`
}

type Orchestrator struct {
	registry  Registry
	custody   Custody
	certifier Certifier
	archive   Archive
	cfg       Config
	logger    logging.Logger
}

type Option func(*Orchestrator)

func WithArchive(a Archive) Option {
	return func(o *Orchestrator) { o.archive = a }
}

func New(reg Registry, cus Custody, cert Certifier, cfg Config, l logging.Logger, opts ...Option) (*Orchestrator, error) {
	if reg == nil || cus == nil || cert == nil {
		return nil, fmt.Errorf("%w: orchestrator needs all three stage clients", common.ErrConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Orchestrator{
		registry:  reg,
		custody:   cus,
		certifier: cert,
		cfg:       cfg,
		logger:    l.With("module", "workflow"),
	}
	for _, fn := range opts {
		fn(o)
	}
	return o, nil
}

// run is the state of one Run call.
type run struct {
	o      *Orchestrator
	t      Transfer
	logger logging.Logger
	last   State
	res    Result
	cert   *models.Certificate
}

// Run takes t to Minted. Every failure is a *StageError.
func (o *Orchestrator) Run(ctx context.Context, t Transfer) (*Result, error) {
	r := &run{
		o:      o,
		t:      t,
		logger: o.logger.With("run_id", uuid.NewString(), "external_ref", t.ExternalRef),
		last:   StateNew,
	}
	if err := t.Validate(); err != nil {
		observability.RecordRun("invalid")
		return nil, r.fail(StageReport, t.ExternalRef, OutcomeUnconfirmed, err)
	}

	r.logger.Info(ctx, "transfer started", "amount", t.Amount, "beneficiary", t.Beneficiary)
	for _, step := range []func(context.Context) error{
		r.report,
		r.acceptInjection,
		r.receiveLock,
		r.acceptLock,
		r.moveToReserve,
		r.certify,
		r.confirmMint,
	} {
		if err := step(ctx); err != nil {
			observability.RecordRun("failed")
			r.logger.Error(ctx, "transfer failed", "error", err)
			return nil, err
		}
	}
	observability.RecordRun("minted")

	r.publish(ctx)
	r.logger.Info(ctx, "transfer minted",
		"certificate_id", r.res.CertificateID, "minted", r.res.MintedAmount, "tx", r.res.TxHash)
	res := r.res
	return &res, nil
}

func (r *run) fail(stage Stage, entity string, outcome Outcome, err error) *StageError {
	return &StageError{Stage: stage, EntityID: entity, Outcome: outcome, LastConfirmed: r.last, Err: err}
}

// absent turns a not-found read into "stage not done yet".
func absent(err error) (bool, error) {
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	return false, err
}

func (r *run) report(ctx context.Context) error {
	t := r.t
	probe := func(ctx context.Context) (bool, error) {
		inj, err := r.o.registry.FindByExternalRef(ctx, t.ExternalRef)
		if err != nil {
			return absent(err)
		}
		if inj.Amount != t.Amount || inj.Beneficiary != t.Beneficiary || inj.ContentHash != t.ContentHash {
			return false, fmt.Errorf("%w: external reference %q was reported with different details", common.ErrValidation, t.ExternalRef)
		}
		r.res.InjectionID = inj.ID
		return true, nil
	}
	act := func(ctx context.Context) error {
		id, err := r.o.registry.ReportInjection(ctx, registry.ReportInput{
			Amount:      t.Amount,
			Beneficiary: t.Beneficiary,
			ExternalRef: t.ExternalRef,
			ContentHash: t.ContentHash,
		})
		r.res.InjectionID = id
		return err
	}
	if err := r.execute(ctx, StageReport, t.ExternalRef, probe, act); err != nil {
		return err
	}
	r.last = StateReported
	return nil
}

func (r *run) acceptInjection(ctx context.Context) error {
	id := r.res.InjectionID
	probe := func(ctx context.Context) (bool, error) {
		inj, err := r.o.registry.GetInjection(ctx, id)
		if err != nil {
			return false, err
		}
		if !inj.IsAccepted() {
			return false, nil
		}
		r.res.Stage1Signature = inj.Stage1Signature
		return true, nil
	}
	act := func(ctx context.Context) error {
		sig, err := r.o.registry.AcceptInjection(ctx, id)
		r.res.Stage1Signature = sig
		return err
	}
	if err := r.execute(ctx, StageAccept, id, probe, act); err != nil {
		return err
	}
	r.last = StateInjected
	return nil
}

func (r *run) receiveLock(ctx context.Context) error {
	id := r.res.InjectionID
	probe := func(ctx context.Context) (bool, error) {
		l, err := r.o.custody.FindByInjection(ctx, id)
		if err != nil {
			return absent(err)
		}
		r.res.LockID = l.ID
		return true, nil
	}
	act := func(ctx context.Context) error {
		lockID, err := r.o.custody.ReceiveLock(ctx, id, r.t.Amount, r.t.Beneficiary, r.res.Stage1Signature)
		r.res.LockID = lockID
		return err
	}
	return r.execute(ctx, StageReceiveLock, id, probe, act)
}

func (r *run) lockAtLeast(state models.LockState) func(context.Context) (bool, error) {
	return func(ctx context.Context) (bool, error) {
		l, err := r.o.custody.GetLock(ctx, r.res.LockID)
		if err != nil {
			return false, err
		}
		if !l.State.AtLeast(state) {
			return false, nil
		}
		r.res.Stage2Signature = l.Stage2Signature
		r.res.AuthorizationCode = l.AuthorizationCode
		return true, nil
	}
}

func (r *run) acceptLock(ctx context.Context) error {
	act := func(ctx context.Context) error {
		s2, code, err := r.o.custody.AcceptLock(ctx, r.res.LockID)
		r.res.Stage2Signature, r.res.AuthorizationCode = s2, code
		return err
	}
	if err := r.execute(ctx, StageAcceptLock, r.res.LockID, r.lockAtLeast(models.LockAccepted), act); err != nil {
		return err
	}
	r.last = StateLocked
	return nil
}

func (r *run) moveToReserve(ctx context.Context) error {
	act := func(ctx context.Context) error {
		return r.o.custody.MoveToReserve(ctx, r.res.LockID)
	}
	if err := r.execute(ctx, StageMoveToReserve, r.res.LockID, r.lockAtLeast(models.LockReserved), act); err != nil {
		return err
	}
	r.last = StateReserved
	return nil
}

// certificate reads the lock's certificate and checks it was issued for
// this transfer's settlement.
func (r *run) certificate(ctx context.Context) (*models.Certificate, error) {
	c, err := r.o.certifier.FindByLock(ctx, r.res.LockID)
	if err != nil {
		return nil, err
	}
	if c.SettlementRef != r.t.SettlementRef {
		return nil, fmt.Errorf("%w: lock %s was certified for settlement %q", common.ErrValidation, r.res.LockID, c.SettlementRef)
	}
	return c, nil
}

func (r *run) certify(ctx context.Context) error {
	probe := func(ctx context.Context) (bool, error) {
		if _, err := r.certificate(ctx); err != nil {
			return absent(err)
		}
		return true, nil
	}
	act := func(ctx context.Context) error {
		_, err := r.o.certifier.GenerateBackedSignature(ctx, certifier.BackingRequest{
			LockID:            r.res.LockID,
			Amount:            r.t.Amount,
			Beneficiary:       r.t.Beneficiary,
			SettlementRef:     r.t.SettlementRef,
			AuthorizationCode: r.res.AuthorizationCode,
			Stage1Signature:   r.res.Stage1Signature,
			Stage2Signature:   r.res.Stage2Signature,
		})
		return err
	}
	if err := r.execute(ctx, StageCertify, r.res.LockID, probe, act); err != nil {
		return err
	}
	r.last = StateCertified
	return nil
}

// confirmMint reads the certificate back and requires a full mint. Partial
// backing is not something the ledger issues, so seeing one is a rejection.
func (r *run) confirmMint(ctx context.Context) error {
	c, err := r.certificate(ctx)
	if err != nil {
		return r.fail(StageCertify, r.res.LockID, OutcomeConfirmed, err)
	}
	if c.MintedAmount != r.t.Amount || c.BackingRatio != amount.One {
		return r.fail(StageCertify, c.ID, OutcomeConfirmed, fmt.Errorf(
			"%w: certificate %s minted %s at ratio %s for %s", common.ErrLedgerRejected, c.ID, c.MintedAmount, c.BackingRatio, r.t.Amount))
	}

	r.res.CertificateID = c.ID
	r.res.Stage3Signature = c.Stage3Signature
	r.res.MintedAmount = c.MintedAmount
	r.res.BackingRatio = c.BackingRatio
	r.res.PublicationCode = c.PublicationCode
	r.res.TxHash = c.TxHash
	r.res.BlockNumber = c.BlockNumber
	r.last = StateMinted
	r.cert = c
	return nil
}

func (r *run) publish(ctx context.Context) {
	if r.o.archive == nil || r.cert == nil {
		return
	}
	key, err := r.o.archive.Publish(ctx, r.cert)
	if err != nil {
		r.logger.Warn(ctx, "certificate not archived", "certificate_id", r.cert.ID, "error", err)
		return
	}
	r.res.ArchiveKey = key
	r.logger.Debug(ctx, "certificate archived", "certificate_id", r.cert.ID, "key", key)
}
