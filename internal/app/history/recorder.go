// Package history keeps the simulated on-chain record of claims.
//
// A Recorder watches the earnings ledger. Every successful claim becomes a
// token_claim transaction that starts pending and is confirmed after a short
// simulated network delay.
package history

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/domain"
)

const (
	// DefaultConfirmDelay approximates one BlockDAG confirmation.
	DefaultConfirmDelay = 1500 * time.Millisecond
	// DefaultMaxStored is the retention cap applied by pruning.
	DefaultMaxStored = 100

	storeTimeout = 5 * time.Second
)

// Recorder writes claim transactions to a TransactionStore.
// It implements domain.LedgerObserver.
type Recorder struct {
	store        domain.TransactionStore
	confirmDelay time.Duration
	now          func() time.Time

	mu      sync.Mutex
	timers  map[string]*time.Timer
	pending sync.WaitGroup
}

// NewRecorder creates a recorder. A non-positive confirmDelay confirms immediately.
func NewRecorder(store domain.TransactionStore, confirmDelay time.Duration) *Recorder {
	return &Recorder{
		store:        store,
		confirmDelay: confirmDelay,
		now:          time.Now,
		timers:       make(map[string]*time.Timer),
	}
}

// EarningRecorded is a no-op; only claims reach the chain.
func (r *Recorder) EarningRecorded(string, domain.EarningRecord) {}

// TokensClaimed saves a pending token_claim transaction and schedules its confirmation.
func (r *Recorder) TokensClaimed(receipt domain.ClaimReceipt) {
	tx := domain.Transaction{
		Hash:      receipt.TxHash,
		From:      domain.RewardsAccount,
		To:        receipt.Address,
		Value:     receipt.Amount,
		Type:      domain.TxTokenClaim,
		Status:    domain.TxPending,
		Timestamp: receipt.Timestamp,
		UpdatedAt: r.now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.SaveTransaction(ctx, tx); err != nil {
		log.WithError(err).WithField("tx_hash", tx.Hash).Error("save claim transaction")
		return
	}

	if r.confirmDelay <= 0 {
		r.confirm(tx.Hash)
		return
	}

	r.pending.Add(1)
	r.mu.Lock()
	r.timers[tx.Hash] = time.AfterFunc(r.confirmDelay, func() {
		defer r.pending.Done()
		r.mu.Lock()
		delete(r.timers, tx.Hash)
		r.mu.Unlock()
		r.confirm(tx.Hash)
	})
	r.mu.Unlock()
}

func (r *Recorder) confirm(hash string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := r.store.UpdateTransactionStatus(ctx, hash, domain.TxConfirmed, 1); err != nil {
		log.WithError(err).WithField("tx_hash", hash).Warn("confirm claim transaction")
		return
	}
	log.WithField("tx_hash", hash).Debug("claim transaction confirmed")
}

// Wait blocks until every scheduled confirmation has run.
func (r *Recorder) Wait() {
	r.pending.Wait()
}

// Stop cancels outstanding confirmations. Their transactions stay pending.
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, t := range r.timers {
		if t.Stop() {
			r.pending.Done()
		}
		delete(r.timers, hash)
	}
}
