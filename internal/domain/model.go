// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture: it depends only on value
// libraries (decimal amounts, hex hash/address shapes).
package domain

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Denomination is the simulated reward token.
const Denomination = "BDAG"

// ─── Source Types ───────────────────────────────────────────────────────────

// Source identifies which game activity produced a reward.
type Source string

const (
	SourceTap             Source = "tap"
	SourceNFTEvolution    Source = "nft_evolution"
	SourceInstantTransfer Source = "instant_transfer"
	SourceReputation      Source = "reputation"
	SourceMission         Source = "mission"
	SourceDailyLogin      Source = "daily_login"
	SourceNFTSale         Source = "nft_sale"
	SourceReferral        Source = "referral"
	SourceGovernance      Source = "governance"
	SourceCommunity       Source = "community"
)

var allSources = []Source{
	SourceTap,
	SourceNFTEvolution,
	SourceInstantTransfer,
	SourceReputation,
	SourceMission,
	SourceDailyLogin,
	SourceNFTSale,
	SourceReferral,
	SourceGovernance,
	SourceCommunity,
}

// Sources returns every valid source in reward-table order.
func Sources() []Source {
	out := make([]Source, len(allSources))
	copy(out, allSources)
	return out
}

// Valid reports whether s is one of the fixed sources.
func (s Source) Valid() bool {
	for _, v := range allSources {
		if s == v {
			return true
		}
	}
	return false
}

// ParseSource converts a wire name into a Source.
func ParseSource(name string) (Source, error) {
	s := Source(strings.ToLower(strings.TrimSpace(name)))
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidSource, name)
	}
	return s, nil
}

// ─── Earning Types ──────────────────────────────────────────────────────────

// RecordStatus is the claim state of an earning record.
// Transitions only pending → claimed.
type RecordStatus string

const (
	StatusPending RecordStatus = "pending"
	StatusClaimed RecordStatus = "claimed"
)

// EarningRecord is one recorded reward event.
type EarningRecord struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Source      Source          `json:"source"`
	Description string          `json:"description,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
	Status      RecordStatus    `json:"status"`
}

// ClaimReceipt is returned from a successful claim. TxHash stands in for a
// chain transaction hash.
type ClaimReceipt struct {
	Address     string          `json:"address"`
	Amount      decimal.Decimal `json:"amount"`
	Timestamp   time.Time       `json:"timestamp"`
	TxHash      string          `json:"tx_hash"`
	RecordCount int             `json:"record_count"`
}

// SourceTotal aggregates records of one source.
type SourceTotal struct {
	Count int             `json:"count"`
	Total decimal.Decimal `json:"total"`
}

// Breakdown maps each source seen on a ledger to its aggregate.
type Breakdown map[Source]SourceTotal

// AccountSnapshot is a point-in-time copy of a ledger's balances.
type AccountSnapshot struct {
	Address        string          `json:"address"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	PendingBalance decimal.Decimal `json:"pending_balance"`
	ClaimedBalance decimal.Decimal `json:"claimed_balance"`
	LastClaimTime  *time.Time      `json:"last_claim_time,omitempty"`
	RecordCount    int             `json:"record_count"`
}

// ─── Validation ─────────────────────────────────────────────────────────────

// NormalizeAddress trims an address and canonicalises 20-byte hex addresses
// to their checksummed form so case variants share one ledger. Any other
// non-empty identity string is returned unchanged.
func NormalizeAddress(address string) (string, error) {
	a := strings.TrimSpace(address)
	if a == "" {
		return "", ErrInvalidAddress
	}
	if common.IsHexAddress(a) {
		return common.HexToAddress(a).Hex(), nil
	}
	return a, nil
}

// ValidateAmount rejects zero and negative reward amounts.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", ErrInvalidAmount, amount.String())
	}
	return nil
}

// AmountFromFloat converts a float input into a decimal amount, rejecting
// NaN and infinities.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, fmt.Errorf("%w: non-finite value", ErrInvalidAmount)
	}
	return decimal.NewFromFloat(f), nil
}

// TokenToUSD converts a token amount to its display value in USD, rounded to cents.
func TokenToUSD(amount decimal.Decimal, priceUSD float64) decimal.Decimal {
	return amount.Mul(decimal.NewFromFloat(priceUSD)).Round(2)
}
