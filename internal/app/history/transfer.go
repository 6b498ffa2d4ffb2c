package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hashing-heroes/heroes/internal/domain"
)

// Export writes every stored transaction as an indented JSON array, newest first.
func Export(ctx context.Context, store domain.TransactionStore, w io.Writer) (int, error) {
	txs, err := store.ListTransactions(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("list transactions: %w", err)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(txs); err != nil {
		return 0, fmt.Errorf("encode transactions: %w", err)
	}
	return len(txs), nil
}

// Import replaces the stored history with a JSON array produced by Export.
// The input is validated in full before anything is cleared.
func Import(ctx context.Context, store domain.TransactionStore, r io.Reader) (int, error) {
	var txs []domain.Transaction
	if err := json.NewDecoder(r).Decode(&txs); err != nil {
		return 0, fmt.Errorf("%w: expected a JSON array: %v", domain.ErrInvalidTransaction, err)
	}
	for i, tx := range txs {
		if tx.Hash == "" {
			return 0, fmt.Errorf("%w: entry %d has no hash", domain.ErrInvalidTransaction, i)
		}
	}

	if err := store.ClearTransactions(ctx); err != nil {
		return 0, fmt.Errorf("clear transactions: %w", err)
	}
	for _, tx := range txs {
		if tx.Status == "" {
			tx.Status = domain.TxPending
		}
		if tx.UpdatedAt.IsZero() {
			tx.UpdatedAt = tx.Timestamp
		}
		if err := store.SaveTransaction(ctx, tx); err != nil {
			return 0, fmt.Errorf("save %s: %w", tx.Hash, err)
		}
	}
	return len(txs), nil
}
