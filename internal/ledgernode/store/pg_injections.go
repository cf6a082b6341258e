package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

const injectionColumns = `id, amount, beneficiary, external_ref, content_hash, stage1_signature,
		accepted_by, lock_id, state, created_at, accepted_at, locked_at`

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func (s *pgState) scanInjection(row *sql.Row) (*models.Injection, error) {
	var (
		inj                  models.Injection
		acceptedAt, lockedAt sql.NullTime
	)
	err := row.Scan(&inj.ID, &inj.Amount, &inj.Beneficiary, &inj.ExternalRef, &inj.ContentHash, &inj.Stage1Signature,
		&inj.AcceptedBy, &inj.LockID, &inj.State, &inj.CreatedAt, &acceptedAt, &lockedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	inj.AcceptedAt = timePtr(acceptedAt)
	inj.LockedAt = timePtr(lockedAt)
	return &inj, nil
}

func (s *pgState) Injection(ctx context.Context, id string) (*models.Injection, error) {
	query := `SELECT ` + injectionColumns + ` FROM injections WHERE id = $1`
	return s.scanInjection(s.db.QueryRowContext(ctx, query, id))
}

func (s *pgState) InjectionByExternalRef(ctx context.Context, ref string) (*models.Injection, error) {
	query := `SELECT ` + injectionColumns + ` FROM injections WHERE external_ref = $1`
	return s.scanInjection(s.db.QueryRowContext(ctx, query, ref))
}

func (s *pgState) PutInjection(ctx context.Context, inj *models.Injection) error {
	query :=
		`INSERT INTO injections (` + injectionColumns + `)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 ON CONFLICT (id) DO UPDATE SET
		   stage1_signature = EXCLUDED.stage1_signature,
		   accepted_by = EXCLUDED.accepted_by,
		   lock_id = EXCLUDED.lock_id,
		   state = EXCLUDED.state,
		   accepted_at = EXCLUDED.accepted_at,
		   locked_at = EXCLUDED.locked_at`

	_, err := s.db.ExecContext(ctx, query,
		inj.ID, int64(inj.Amount), inj.Beneficiary, inj.ExternalRef, inj.ContentHash, inj.Stage1Signature,
		inj.AcceptedBy, inj.LockID, string(inj.State), inj.CreatedAt, nullTime(inj.AcceptedAt), nullTime(inj.LockedAt))
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
