package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/amount"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledger"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

func (s *pgState) Balance(ctx context.Context, account string) (amount.Amount, error) {
	var b int64
	err := s.db.QueryRowContext(ctx, `SELECT balance FROM balances WHERE account = $1`, account).Scan(&b)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return amount.Zero, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return amount.Amount(b), nil
}

func (s *pgState) PutBalance(ctx context.Context, account string, balance amount.Amount) error {
	query :=
		`INSERT INTO balances (account, balance) VALUES ($1, $2)
		 ON CONFLICT (account) DO UPDATE SET balance = EXCLUDED.balance`
	if _, err := s.db.ExecContext(ctx, query, account, int64(balance)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *pgState) Nonce(ctx context.Context, address string) (uint64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT nonce FROM accounts WHERE address = $1`, address).Scan(&n)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("db error: %w", err)
	}
	return uint64(n), nil
}

func (s *pgState) PutNonce(ctx context.Context, address string, nonce uint64) error {
	query :=
		`INSERT INTO accounts (address, nonce) VALUES ($1, $2)
		 ON CONFLICT (address) DO UPDATE SET nonce = EXCLUDED.nonce`
	if _, err := s.db.ExecContext(ctx, query, address, int64(nonce)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *pgState) Receipt(ctx context.Context, txHash string) (*ledger.Receipt, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx, `SELECT body FROM receipts WHERE tx_hash = $1`, txHash).Scan(&body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	r := &ledger.Receipt{}
	if err := json.Unmarshal(body, r); err != nil {
		return nil, fmt.Errorf("receipt %s: %w", txHash, err)
	}
	return r, nil
}

func (s *pgState) PutReceipt(ctx context.Context, r *ledger.Receipt) error {
	body, err := json.Marshal(r)
	if err != nil {
		return err
	}
	query := `INSERT INTO receipts (tx_hash, block_number, body) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, r.TxHash, int64(r.BlockNumber), body); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *pgState) Height(ctx context.Context) (uint64, error) {
	var h int64
	if err := s.db.QueryRowContext(ctx, `SELECT height FROM chain WHERE id = 1`).Scan(&h); err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return uint64(h), nil
}

func (s *pgState) PutHeight(ctx context.Context, height uint64) error {
	if _, err := s.db.ExecContext(ctx, `UPDATE chain SET height = $1 WHERE id = 1`, int64(height)); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (s *pgState) Statistics(ctx context.Context) (*models.Statistics, error) {
	query :=
		`SELECT
		   (SELECT COUNT(*) FROM injections),
		   (SELECT COALESCE(SUM(amount), 0) FROM injections),
		   (SELECT COUNT(*) FROM locks),
		   (SELECT COALESCE(SUM(amount), 0) FROM locks),
		   (SELECT COUNT(*) FROM certificates),
		   (SELECT COALESCE(SUM(minted_amount), 0) FROM certificates)`

	st := &models.Statistics{}
	var injected, locked, minted int64
	err := s.db.QueryRowContext(ctx, query).Scan(&st.Injections, &injected, &st.Locks, &locked, &st.Certificates, &minted)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	st.TotalInjected = amount.Amount(injected)
	st.TotalLocked = amount.Amount(locked)
	st.TotalMinted = amount.Amount(minted)
	return st, nil
}
