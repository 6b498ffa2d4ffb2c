package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Simulated Transaction Types ────────────────────────────────────────────
// Transactions are the persisted history of simulated on-chain activity.
// They are keyed by hash and live outside the in-memory ledger.

// ExplorerBaseURL is the block explorer used for display links.
const ExplorerBaseURL = "https://awakening.bdagscan.com"

// RewardsAccount is the sender shown on claim transactions.
const RewardsAccount = "BDAG-Rewards"

// TxStatus is the confirmation state of a simulated transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxType is the business reason for a simulated transaction.
type TxType string

const (
	TxTokenClaim     TxType = "token_claim"
	TxNFTTransfer    TxType = "nft_transfer"
	TxNFTMint        TxType = "nft_mint"
	TxMetadataUpdate TxType = "metadata_update"
	TxMicropayment   TxType = "micropayment"
)

// Transaction is one entry in the simulated transaction history.
type Transaction struct {
	Hash          string          `json:"hash"`
	From          string          `json:"from"`
	To            string          `json:"to"`
	Value         decimal.Decimal `json:"value"`
	Type          TxType          `json:"type"`
	Status        TxStatus        `json:"status"`
	Confirmations int             `json:"confirmations"`
	Timestamp     time.Time       `json:"timestamp"`
	DAGTimestamp  *time.Time      `json:"dag_timestamp,omitempty"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// ExplorerURL returns the explorer link for the transaction.
func (t Transaction) ExplorerURL() string {
	return ExplorerBaseURL + "/tx/" + t.Hash
}

// TxStats summarises the stored history.
type TxStats struct {
	Total     int        `json:"total"`
	Confirmed int        `json:"confirmed"`
	Pending   int        `json:"pending"`
	Failed    int        `json:"failed"`
	Oldest    *time.Time `json:"oldest_timestamp,omitempty"`
	Newest    *time.Time `json:"newest_timestamp,omitempty"`
}
