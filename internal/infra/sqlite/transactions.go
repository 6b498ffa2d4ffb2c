package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hashing-heroes/heroes/internal/domain"
)

// Compile-time check.
var _ domain.TransactionStore = (*DB)(nil)

const txColumns = `hash, from_addr, to_addr, value, type, status, confirmations,
	timestamp_ns, dag_timestamp_ns, updated_at_ns`

// SaveTransaction inserts tx or replaces the row with the same hash.
func (db *DB) SaveTransaction(ctx context.Context, tx domain.Transaction) error {
	if tx.Hash == "" {
		return fmt.Errorf("%w: empty hash", domain.ErrInvalidTransaction)
	}
	if tx.Status == "" {
		tx.Status = domain.TxPending
	}
	updated := tx.UpdatedAt
	if updated.IsZero() {
		updated = db.now()
	}
	var dag *int64
	if tx.DAGTimestamp != nil {
		n := tx.DAGTimestamp.UnixNano()
		dag = &n
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO UPDATE SET
			from_addr        = excluded.from_addr,
			to_addr          = excluded.to_addr,
			value            = excluded.value,
			type             = excluded.type,
			status           = excluded.status,
			confirmations    = excluded.confirmations,
			timestamp_ns     = excluded.timestamp_ns,
			dag_timestamp_ns = excluded.dag_timestamp_ns,
			updated_at_ns    = excluded.updated_at_ns
	`, tx.Hash, tx.From, tx.To, tx.Value.String(), string(tx.Type), string(tx.Status),
		tx.Confirmations, tx.Timestamp.UnixNano(), dag, updated.UnixNano())
	return err
}

// GetTransaction returns domain.ErrTransactionNotFound for unknown hashes.
func (db *DB) GetTransaction(ctx context.Context, hash string) (*domain.Transaction, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+txColumns+` FROM transactions WHERE hash = ?`, hash)
	tx, err := scanTx(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

// ListTransactions returns the newest limit transactions. limit <= 0 returns all.
func (db *DB) ListTransactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		ORDER BY timestamp_ns DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	return scanTxRows(rows)
}

// ListByAddress matches address against sender or recipient, ignoring case.
func (db *DB) ListByAddress(ctx context.Context, address string, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := db.db.QueryContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE lower(from_addr) = lower(?1) OR lower(to_addr) = lower(?1)
		ORDER BY timestamp_ns DESC, rowid DESC
		LIMIT ?2
	`, address, limit)
	if err != nil {
		return nil, err
	}
	return scanTxRows(rows)
}

// UpdateTransactionStatus sets status and confirmations. The first
// confirmation stamps the DAG timestamp.
func (db *DB) UpdateTransactionStatus(ctx context.Context, hash string, status domain.TxStatus, confirmations int) error {
	now := db.now().UnixNano()
	res, err := db.db.ExecContext(ctx, `
		UPDATE transactions SET
			status           = ?,
			confirmations    = ?,
			dag_timestamp_ns = CASE WHEN ? = 'confirmed' AND dag_timestamp_ns IS NULL
			                        THEN ? ELSE dag_timestamp_ns END,
			updated_at_ns    = ?
		WHERE hash = ?
	`, string(status), confirmations, string(status), now, now, hash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	return nil
}

// DeleteTransaction removes one transaction.
func (db *DB) DeleteTransaction(ctx context.Context, hash string) error {
	res, err := db.db.ExecContext(ctx, `DELETE FROM transactions WHERE hash = ?`, hash)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrTransactionNotFound, hash)
	}
	return nil
}

// ClearTransactions removes every transaction.
func (db *DB) ClearTransactions(ctx context.Context) error {
	_, err := db.db.ExecContext(ctx, `DELETE FROM transactions`)
	return err
}

// TransactionStats counts transactions by status.
func (db *DB) TransactionStats(ctx context.Context) (domain.TxStats, error) {
	var (
		stats          domain.TxStats
		oldest, newest sql.NullInt64
	)
	err := db.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0),
			MIN(timestamp_ns), MAX(timestamp_ns)
		FROM transactions
	`).Scan(&stats.Total, &stats.Confirmed, &stats.Pending, &stats.Failed, &oldest, &newest)
	if err != nil {
		return domain.TxStats{}, err
	}
	stats.Oldest = nsPtr(oldest)
	stats.Newest = nsPtr(newest)
	return stats, nil
}

// PruneTransactions keeps the newest keep transactions and deletes the rest.
// keep <= 0 is a no-op.
func (db *DB) PruneTransactions(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		return 0, nil
	}
	res, err := db.db.ExecContext(ctx, `
		DELETE FROM transactions WHERE hash NOT IN (
			SELECT hash FROM transactions ORDER BY timestamp_ns DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ─── Scanning ───────────────────────────────────────────────────────────────

type scanner interface {
	Scan(dest ...any) error
}

func scanTx(s scanner) (domain.Transaction, error) {
	var (
		tx                domain.Transaction
		value, typ, state string
		ts, updated       int64
		dag               sql.NullInt64
	)
	if err := s.Scan(&tx.Hash, &tx.From, &tx.To, &value, &typ, &state,
		&tx.Confirmations, &ts, &dag, &updated); err != nil {
		return domain.Transaction{}, err
	}
	v, err := decimal.NewFromString(value)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("parse value of %s: %w", tx.Hash, err)
	}
	tx.Value = v
	tx.Type = domain.TxType(typ)
	tx.Status = domain.TxStatus(state)
	tx.Timestamp = time.Unix(0, ts).UTC()
	tx.DAGTimestamp = nsPtr(dag)
	tx.UpdatedAt = time.Unix(0, updated).UTC()
	return tx, nil
}

func scanTxRows(rows *sql.Rows) ([]domain.Transaction, error) {
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

func nsPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(0, n.Int64).UTC()
	return &t
}
