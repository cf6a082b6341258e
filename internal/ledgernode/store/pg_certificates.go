package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

const certificateColumns = `id, lock_id, injection_id, amount, beneficiary, settlement_ref, authorization_code,
		stage1_signature, stage2_signature, stage3_signature, backing_ratio, minted_amount, certified_by,
		publication_code, tx_hash, block_number, created_at`

func (s *pgState) scanCertificate(row *sql.Row) (*models.Certificate, error) {
	var c models.Certificate
	err := row.Scan(&c.ID, &c.LockID, &c.InjectionID, &c.Amount, &c.Beneficiary, &c.SettlementRef, &c.AuthorizationCode,
		&c.Stage1Signature, &c.Stage2Signature, &c.Stage3Signature, &c.BackingRatio, &c.MintedAmount, &c.CertifiedBy,
		&c.PublicationCode, &c.TxHash, &c.BlockNumber, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return &c, nil
}

func (s *pgState) certificateWhere(ctx context.Context, column, value string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE ` + column + ` = $1`
	return s.scanCertificate(s.db.QueryRowContext(ctx, query, value))
}

func (s *pgState) Certificate(ctx context.Context, id string) (*models.Certificate, error) {
	return s.certificateWhere(ctx, "id", id)
}

func (s *pgState) CertificateByLock(ctx context.Context, lockID string) (*models.Certificate, error) {
	return s.certificateWhere(ctx, "lock_id", lockID)
}

func (s *pgState) CertificateBySettlementRef(ctx context.Context, ref string) (*models.Certificate, error) {
	return s.certificateWhere(ctx, "settlement_ref", ref)
}

func (s *pgState) CertificateBySignature(ctx context.Context, stage3 string) (*models.Certificate, error) {
	return s.certificateWhere(ctx, "stage3_signature", stage3)
}

// PutCertificate inserts only: a certificate is immutable once published.
func (s *pgState) PutCertificate(ctx context.Context, c *models.Certificate) error {
	query :=
		`INSERT INTO certificates (` + certificateColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := s.db.ExecContext(ctx, query,
		c.ID, c.LockID, c.InjectionID, int64(c.Amount), c.Beneficiary, c.SettlementRef, c.AuthorizationCode,
		c.Stage1Signature, c.Stage2Signature, c.Stage3Signature, int64(c.BackingRatio), int64(c.MintedAmount), c.CertifiedBy,
		c.PublicationCode, c.TxHash, int64(c.BlockNumber), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
