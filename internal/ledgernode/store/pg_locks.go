package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

const lockColumns = `id, injection_id, amount, beneficiary, stage1_signature, stage2_signature,
		authorization_code, accepted_by, certificate_id, state, created_at, accepted_at, reserved_at, consumed_at`

func (s *pgState) scanLock(row *sql.Row) (*models.Lock, error) {
	var (
		l                                  models.Lock
		acceptedAt, reservedAt, consumedAt sql.NullTime
	)
	err := row.Scan(&l.ID, &l.InjectionID, &l.Amount, &l.Beneficiary, &l.Stage1Signature, &l.Stage2Signature,
		&l.AuthorizationCode, &l.AcceptedBy, &l.CertificateID, &l.State, &l.CreatedAt, &acceptedAt, &reservedAt, &consumedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	l.AcceptedAt = timePtr(acceptedAt)
	l.ReservedAt = timePtr(reservedAt)
	l.ConsumedAt = timePtr(consumedAt)
	return &l, nil
}

func (s *pgState) Lock(ctx context.Context, id string) (*models.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks WHERE id = $1`
	return s.scanLock(s.db.QueryRowContext(ctx, query, id))
}

func (s *pgState) LockByInjection(ctx context.Context, injectionID string) (*models.Lock, error) {
	query := `SELECT ` + lockColumns + ` FROM locks WHERE injection_id = $1`
	return s.scanLock(s.db.QueryRowContext(ctx, query, injectionID))
}

func (s *pgState) PutLock(ctx context.Context, l *models.Lock) error {
	query :=
		`INSERT INTO locks (` + lockColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 ON CONFLICT (id) DO UPDATE SET
		   stage2_signature = EXCLUDED.stage2_signature,
		   authorization_code = EXCLUDED.authorization_code,
		   accepted_by = EXCLUDED.accepted_by,
		   certificate_id = EXCLUDED.certificate_id,
		   state = EXCLUDED.state,
		   accepted_at = EXCLUDED.accepted_at,
		   reserved_at = EXCLUDED.reserved_at,
		   consumed_at = EXCLUDED.consumed_at`

	_, err := s.db.ExecContext(ctx, query,
		l.ID, l.InjectionID, int64(l.Amount), l.Beneficiary, l.Stage1Signature, l.Stage2Signature,
		l.AuthorizationCode, l.AcceptedBy, l.CertificateID, string(l.State), l.CreatedAt,
		nullTime(l.AcceptedAt), nullTime(l.ReservedAt), nullTime(l.ConsumedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
