package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/hashing-heroes/heroes/internal/domain"
)

var _ domain.TransactionStore = (*Store)(nil)

const txColumns = `hash, from_addr, to_addr, value::text, type, status, confirmations,
	created_at, dag_timestamp, updated_at`

// SaveTransaction inserts tx or replaces the row with the same hash.
func (s *Store) SaveTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.Hash == "" {
		return fmt.Errorf("%w: empty hash", domain.ErrInvalidTransaction)
	}
	if tx.Status == "" {
		tx.Status = domain.TxPending
	}
	updated := tx.UpdatedAt
	if updated.IsZero() {
		updated = s.now()
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO transactions (hash, from_addr, to_addr, value, type, status, confirmations,
			created_at, dag_timestamp, updated_at)
		VALUES ($1, $2, $3, $4::numeric, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (hash) DO UPDATE SET
			from_addr     = EXCLUDED.from_addr,
			to_addr       = EXCLUDED.to_addr,
			value         = EXCLUDED.value,
			type          = EXCLUDED.type,
			status        = EXCLUDED.status,
			confirmations = EXCLUDED.confirmations,
			created_at    = EXCLUDED.created_at,
			dag_timestamp = EXCLUDED.dag_timestamp,
			updated_at    = EXCLUDED.updated_at
	`, tx.Hash, tx.From, tx.To, tx.Value.String(), string(tx.Type), string(tx.Status),
		tx.Confirmations, tx.Timestamp, tx.DAGTimestamp, updated)
	if err != nil {
		return fmt.Errorf("save transaction: %w", err)
	}
	return nil
}

// GetTransaction returns domain.ErrTransactionNotFound for unknown hashes.
func (s *Store) GetTransaction(ctx context.Context, hash string) (*domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+txColumns+` FROM transactions WHERE hash = $1`, hash)
	tx, err := scanTx(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	if err != nil {
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

// ListTransactions returns the newest limit transactions. limit <= 0 returns all.
func (s *Store) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		ORDER BY created_at DESC, hash
		LIMIT $1
	`, nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return collect(rows)
}

// ListByAddress matches address against sender or recipient, ignoring case.
func (s *Store) ListByAddress(ctx context.Context, address string, limit int) ([]domain.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE lower(from_addr) = lower($1) OR lower(to_addr) = lower($1)
		ORDER BY created_at DESC, hash
		LIMIT $2
	`, address, nullLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list by address: %w", err)
	}
	return collect(rows)
}

// UpdateTransactionStatus sets status and confirmations. The first
// confirmation stamps the DAG timestamp.
func (s *Store) UpdateTransactionStatus(ctx context.Context, hash string, status domain.TxStatus, confirmations int) error {
	now := s.now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE transactions SET
			status        = $1,
			confirmations = $2,
			dag_timestamp = CASE WHEN $1 = 'confirmed' AND dag_timestamp IS NULL
			                     THEN $3 ELSE dag_timestamp END,
			updated_at    = $3
		WHERE hash = $4
	`, string(status), confirmations, now, hash)
	if err != nil {
		return fmt.Errorf("update status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	return nil
}

// DeleteTransaction removes one transaction.
func (s *Store) DeleteTransaction(ctx context.Context, hash string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	return nil
}

// ClearTransactions removes every transaction.
func (s *Store) ClearTransactions(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("clear transactions: %w", err)
	}
	return nil
}

// TransactionStats counts transactions by status.
func (s *Store) TransactionStats(ctx context.Context) (domain.TxStats, error) {
	var stats domain.TxStats
	err := s.pool.QueryRow(ctx, `
		SELECT COUNT(*),
			COUNT(*) FILTER (WHERE status = 'confirmed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'failed'),
			MIN(created_at), MAX(created_at)
		FROM transactions
	`).Scan(&stats.Total, &stats.Confirmed, &stats.Pending, &stats.Failed, &stats.Oldest, &stats.Newest)
	if err != nil {
		return domain.TxStats{}, fmt.Errorf("transaction stats: %w", err)
	}
	return stats, nil
}

// PruneTransactions keeps the newest keep transactions. keep <= 0 is a no-op.
func (s *Store) PruneTransactions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx, `
		DELETE FROM transactions WHERE hash NOT IN (
			SELECT hash FROM transactions ORDER BY created_at DESC, hash LIMIT $1
		)
	`, keep)
	if err != nil {
		return 0, fmt.Errorf("prune transactions: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ─── Scanning ───────────────────────────────────────────────────────────────

func scanTx(row pgx.Row) (domain.Transaction, error) {
	var (
		tx         domain.Transaction
		value      string
		typ, state string
	)
	if err := row.Scan(&tx.Hash, &tx.From, &tx.To, &value, &typ, &state,
		&tx.Confirmations, &tx.Timestamp, &tx.DAGTimestamp, &tx.UpdatedAt); err != nil {
		return domain.Transaction{}, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse value of %s: %w", tx.Hash, err)
	}
	tx.Value = v
	tx.Type = domain.TxType(typ)
	tx.Status = domain.TxStatus(state)
	return tx, nil
}

func collect(rows pgx.Rows) ([]domain.Transaction, error) {
	defer rows.Close()
	out := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTx(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// nullLimit maps a non-positive limit to SQL NULL, which Postgres treats as no limit.
func nullLimit(limit int) *int {
	if limit <= 0 {
		return nil
	}
	return &limit
}
