// Package earnings implements the per-address token earnings ledger.
//
// Every address owns an append-only log of reward records plus pending and
// claimed balances. A claim moves the whole pending balance to claimed and
// flips every pending record in one step, under the address lock.
//
// Invariant, after every operation: totalEarned == pending + claimed.
package earnings

import (
	"crypto/rand"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/domain"
)

// DefaultHistoryLimit is used when History is called with a non-positive limit.
const DefaultHistoryLimit = 50

// ─── Account ────────────────────────────────────────────────────────────────

// account is one address's ledger. Guarded by its own mutex.
type account struct {
	mu            sync.Mutex
	address       string
	totalEarned   decimal.Decimal
	pending       decimal.Decimal
	claimed       decimal.Decimal
	records       []domain.EarningRecord
	lastClaimTime *time.Time
}

func (a *account) snapshot() domain.AccountSnapshot {
	s := domain.AccountSnapshot{
		Address:        a.address,
		TotalEarned:    a.totalEarned,
		PendingBalance: a.pending,
		ClaimedBalance: a.claimed,
		RecordCount:    len(a.records),
	}
	if a.lastClaimTime != nil {
		t := *a.lastClaimTime
		s.LastClaimTime = &t
	}
	return s
}

// ─── Options ────────────────────────────────────────────────────────────────

// Option configures a Ledger.
type Option func(*Ledger)

// WithIDGenerator sets the claim transaction id strategy.
func WithIDGenerator(g domain.IDGenerator) Option {
	return func(l *Ledger) { l.txIDs = g }
}

// WithClock sets the time source for record and claim timestamps.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithRecordIDs sets the record id generator.
func WithRecordIDs(next func() string) Option {
	return func(l *Ledger) { l.recordID = next }
}

// WithObserver registers observers notified after each committed mutation.
func WithObserver(obs ...domain.LedgerObserver) Option {
	return func(l *Ledger) { l.observers = append(l.observers, obs...) }
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

// Ledger owns every address's account. Safe for concurrent use.
type Ledger struct {
	mu        sync.RWMutex
	accounts  map[string]*account
	txIDs     domain.IDGenerator
	recordID  func() string
	now       func() time.Time
	observers []domain.LedgerObserver
}

// NewLedger creates an empty ledger.
func NewLedger(opts ...Option) *Ledger {
	l := &Ledger{
		accounts: make(map[string]*account),
		txIDs:    HashGenerator{},
		recordID: newRecordID,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddObserver registers an observer after construction.
func (l *Ledger) AddObserver(obs domain.LedgerObserver) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.observers = append(l.observers, obs)
}

// getOrCreate returns the account for a normalised address, creating it lazily.
func (l *Ledger) getOrCreate(address string) *account {
	l.mu.RLock()
	a, ok := l.accounts[address]
	l.mu.RUnlock()
	if ok {
		return a
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if a, ok := l.accounts[address]; ok {
		return a
	}
	a = &account{address: address}
	l.accounts[address] = a
	return a
}

// lookup returns the account or nil. Never creates.
func (l *Ledger) lookup(address string) *account {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return nil
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.accounts[addr]
}

func (l *Ledger) observersSnapshot() []domain.LedgerObserver {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.LedgerObserver, len(l.observers))
	copy(out, l.observers)
	return out
}

// AddEarning appends a pending record and credits total and pending balances.
// The ledger for address is created on first use.
func (l *Ledger) AddEarning(address string, amount decimal.Decimal, source domain.Source, description string) (domain.EarningRecord, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.EarningRecord{}, err
	}
	if !source.Valid() {
		return domain.EarningRecord{}, fmt.Errorf("%w: %q", domain.ErrInvalidSource, source)
	}
	if err := domain.ValidateAmount(amount); err != nil {
		return domain.EarningRecord{}, err
	}

	a := l.getOrCreate(addr)

	a.mu.Lock()
	rec := domain.EarningRecord{
		ID:          l.recordID(),
		Amount:      amount,
		Source:      source,
		Description: description,
		Timestamp:   l.now(),
		Status:      domain.StatusPending,
	}
	a.records = append(a.records, rec)
	a.totalEarned = a.totalEarned.Add(amount)
	a.pending = a.pending.Add(amount)
	a.mu.Unlock()

	log.WithFields(log.Fields{
		"address": addr,
		"source":  source,
		"amount":  amount.String(),
	}).Debug("earning recorded")

	for _, obs := range l.observersSnapshot() {
		obs.EarningRecorded(addr, rec)
	}
	return rec, nil
}

// Claim moves the entire pending balance to claimed and flips every record
// pending at that moment. Records added afterwards stay pending.
func (l *Ledger) Claim(address string) (domain.ClaimReceipt, error) {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return domain.ClaimReceipt{}, err
	}

	a := l.getOrCreate(addr)

	a.mu.Lock()
	amount := a.pending
	if !amount.IsPositive() {
		a.mu.Unlock()
		return domain.ClaimReceipt{}, domain.ErrNoPendingBalance
	}

	now := l.now()
	a.pending = decimal.Zero
	a.claimed = a.claimed.Add(amount)
	a.lastClaimTime = &now

	flipped := 0
	for i := range a.records {
		if a.records[i].Status == domain.StatusPending {
			a.records[i].Status = domain.StatusClaimed
			flipped++
		}
	}
	a.mu.Unlock()

	receipt := domain.ClaimReceipt{
		Address:     addr,
		Amount:      amount,
		Timestamp:   now,
		TxHash:      l.txIDs.NewID(),
		RecordCount: flipped,
	}

	log.WithFields(log.Fields{
		"address": addr,
		"amount":  amount.String(),
		"records": flipped,
		"tx_hash": receipt.TxHash,
	}).Info("tokens claimed")

	for _, obs := range l.observersSnapshot() {
		obs.TokensClaimed(receipt)
	}
	return receipt, nil
}

// ─── Reads ──────────────────────────────────────────────────────────────────
// Reads never create a ledger; unknown addresses read as zero.

// PendingBalance returns the unclaimed total.
func (l *Ledger) PendingBalance(address string) decimal.Decimal {
	return l.Snapshot(address).PendingBalance
}

// ClaimedBalance returns the claimed total.
func (l *Ledger) ClaimedBalance(address string) decimal.Decimal {
	return l.Snapshot(address).ClaimedBalance
}

// TotalEarned returns everything ever added.
func (l *Ledger) TotalEarned(address string) decimal.Decimal {
	return l.Snapshot(address).TotalEarned
}

// Snapshot returns a copy of the address's balances.
func (l *Ledger) Snapshot(address string) domain.AccountSnapshot {
	a := l.lookup(address)
	if a == nil {
		addr, _ := domain.NormalizeAddress(address)
		return domain.AccountSnapshot{
			Address:        addr,
			TotalEarned:    decimal.Zero,
			PendingBalance: decimal.Zero,
			ClaimedBalance: decimal.Zero,
		}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshot()
}

// Breakdown groups all records, pending and claimed, by source.
func (l *Ledger) Breakdown(address string) domain.Breakdown {
	out := make(domain.Breakdown)
	a := l.lookup(address)
	if a == nil {
		return out
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		st := out[r.Source]
		st.Count++
		st.Total = st.Total.Add(r.Amount)
		out[r.Source] = st
	}
	return out
}

// History returns up to limit records, most recent first.
func (l *Ledger) History(address string, limit int) []domain.EarningRecord {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	a := l.lookup(address)
	if a == nil {
		return []domain.EarningRecord{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	n := len(a.records)
	if limit > n {
		limit = n
	}
	out := make([]domain.EarningRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, a.records[i])
	}
	return out
}

// Addresses lists every address with a ledger, sorted.
func (l *Ledger) Addresses() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.accounts))
	for addr := range l.accounts {
		out = append(out, addr)
	}
	sort.Strings(out)
	return out
}

// Totals sums balances across every ledger.
func (l *Ledger) Totals() (accounts int, pending, claimed decimal.Decimal) {
	l.mu.RLock()
	list := make([]*account, 0, len(l.accounts))
	for _, a := range l.accounts {
		list = append(list, a)
	}
	l.mu.RUnlock()

	pending, claimed = decimal.Zero, decimal.Zero
	for _, a := range list {
		a.mu.Lock()
		pending = pending.Add(a.pending)
		claimed = claimed.Add(a.claimed)
		a.mu.Unlock()
	}
	return len(list), pending, claimed
}

// Reset discards the address's ledger entirely (demo/test only).
// Returns whether a ledger existed.
func (l *Ledger) Reset(address string) bool {
	addr, err := domain.NormalizeAddress(address)
	if err != nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[addr]
	delete(l.accounts, addr)
	if ok {
		log.WithField("address", addr).Warn("earnings ledger reset")
	}
	return ok
}

// ─── ID Generation ──────────────────────────────────────────────────────────

// HashGenerator produces random 32-byte hex hashes ("0x" + 64 hex chars).
type HashGenerator struct{}

// NewID returns a fresh synthetic transaction hash.
func (HashGenerator) NewID() string {
	var b [common.HashLength]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand only fails if the OS entropy source is broken.
		panic(fmt.Sprintf("earnings: read random bytes: %v", err))
	}
	return common.BytesToHash(b[:]).Hex()
}

// newRecordID returns a time-ordered UUIDv7.
func newRecordID() string {
	return uuid.Must(uuid.NewV7()).String()
}
