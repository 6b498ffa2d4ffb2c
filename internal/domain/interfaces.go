package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// IDGenerator produces synthetic transaction identifiers for claim receipts.
// Production uses random 32-byte hashes; tests inject deterministic ids.
type IDGenerator interface {
	NewID() string
}

// LedgerObserver is notified after a ledger mutation has been committed.
// Implementations must not call back into the ledger for the same address
// synchronously with a lock held by the caller; the ledger releases its locks
// before notifying.
type LedgerObserver interface {
	EarningRecorded(address string, rec EarningRecord)
	TokensClaimed(receipt ClaimReceipt)
}

// TransactionStore abstracts persistent simulated-transaction history.
type TransactionStore interface {
	SaveTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, hash string) (*Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]Transaction, error)
	ListByAddress(ctx context.Context, address string, limit int) ([]Transaction, error)
	UpdateTransactionStatus(ctx context.Context, hash string, status TxStatus, confirmations int) error
	DeleteTransaction(ctx context.Context, hash string) error
	ClearTransactions(ctx context.Context) error
	TransactionStats(ctx context.Context) (TxStats, error)
	PruneTransactions(ctx context.Context, keep int) (int64, error)
	Close() error
}
