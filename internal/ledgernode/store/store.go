// Package store persists the dev ledger's world state. Every transaction
// runs inside a single Update so that a stage transition and everything it
// implies (nonce, receipt, mint) commit together or not at all.
package store

import (
	"context"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// State is the view of the world a contract executes against. Getters
// return common.ErrorNotFound for missing records.
type State interface {
	Injection(ctx context.Context, id string) (*models.Injection, error)
	InjectionByExternalRef(ctx context.Context, ref string) (*models.Injection, error)
	PutInjection(ctx context.Context, inj *models.Injection) error

	Lock(ctx context.Context, id string) (*models.Lock, error)
	LockByInjection(ctx context.Context, injectionID string) (*models.Lock, error)
	PutLock(ctx context.Context, l *models.Lock) error

	Certificate(ctx context.Context, id string) (*models.Certificate, error)
	CertificateByLock(ctx context.Context, lockID string) (*models.Certificate, error)
	CertificateBySettlementRef(ctx context.Context, ref string) (*models.Certificate, error)
	CertificateBySignature(ctx context.Context, stage3 string) (*models.Certificate, error)
	PutCertificate(ctx context.Context, c *models.Certificate) error

	// Balance returns zero for unknown accounts.
	Balance(ctx context.Context, account string) (amount.Amount, error)
	PutBalance(ctx context.Context, account string, balance amount.Amount) error

	// Nonce returns zero for unknown senders.
	Nonce(ctx context.Context, address string) (uint64, error)
	PutNonce(ctx context.Context, address string, nonce uint64) error

	Receipt(ctx context.Context, txHash string) (*ledger.Receipt, error)
	PutReceipt(ctx context.Context, r *ledger.Receipt) error

	Height(ctx context.Context) (uint64, error)
	PutHeight(ctx context.Context, height uint64) error

	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Store hands out State views. Update calls are serialized and atomic: if fn
// returns an error nothing it wrote is kept.
type Store interface {
	View(ctx context.Context, fn func(ctx context.Context, st State) error) error
	Update(ctx context.Context, fn func(ctx context.Context, st State) error) error
	Close() error
}
