// Package observability holds the Prometheus metrics for the earnings service.
//
// Metrics are registered on the default registry via promauto and exposed by
// the API server at /metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"

	"github.com/hashing-heroes/heroes/internal/domain"
)

const namespace = "heroes"

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// EarningsRecorded counts reward records by source.
var EarningsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "earnings_total",
	Help:      "Total reward records added, by source.",
}, []string{"source"})

// EarnedBDAG sums rewarded tokens by source.
var EarnedBDAG = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "earned_bdag_total",
	Help:      "Total BDAG rewarded, by source.",
}, []string{"source"})

// Claims counts successful claims.
var Claims = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "claims_total",
	Help:      "Total successful token claims.",
})

// ClaimAmount tracks the size of each claim.
var ClaimAmount = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: namespace,
	Name:      "claim_amount_bdag",
	Help:      "BDAG moved to claimed per claim.",
	Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10, 50, 100},
})

// ClaimFailures counts claims rejected for having nothing pending.
var ClaimFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Name:      "claim_failures_total",
	Help:      "Total claims rejected with no pending balance.",
})

// PendingBDAG is the pending balance summed over every ledger.
var PendingBDAG = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "pending_bdag",
	Help:      "Unclaimed BDAG across all addresses.",
})

// ClaimedBDAG is the claimed balance summed over every ledger.
var ClaimedBDAG = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "claimed_bdag",
	Help:      "Claimed BDAG across all addresses.",
})

// Accounts is the number of addresses with a ledger.
var Accounts = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Name:      "accounts",
	Help:      "Number of addresses with an earnings ledger.",
})

// ─── Transaction Metrics ────────────────────────────────────────────────────

// TransactionsPruned counts history rows removed by retention.
var TransactionsPruned = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "transactions",
	Name:      "pruned_total",
	Help:      "Total stored transactions removed by pruning.",
})

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPRequests counts API requests by route pattern, method and status code.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "Total HTTP requests.",
}, []string{"route", "method", "code"})

// HTTPDuration tracks API latency by route pattern.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency.",
	Buckets:   prometheus.DefBuckets,
}, []string{"route"})

// LiveClients is the number of connected SSE subscribers.
var LiveClients = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "live",
	Name:      "clients",
	Help:      "Connected earnings feed subscribers.",
})

// ─── Ledger Observer ────────────────────────────────────────────────────────

// LedgerMetrics feeds ledger events into the counters above.
// It implements domain.LedgerObserver.
type LedgerMetrics struct{}

// EarningRecorded counts the record and its amount.
func (LedgerMetrics) EarningRecorded(_ string, rec domain.EarningRecord) {
	src := string(rec.Source)
	EarningsRecorded.WithLabelValues(src).Inc()
	EarnedBDAG.WithLabelValues(src).Add(rec.Amount.InexactFloat64())
}

// TokensClaimed counts the claim and observes its size.
func (LedgerMetrics) TokensClaimed(r domain.ClaimReceipt) {
	Claims.Inc()
	ClaimAmount.Observe(r.Amount.InexactFloat64())
}

// SetLedgerTotals publishes aggregate balances.
func SetLedgerTotals(accounts int, pending, claimed decimal.Decimal) {
	Accounts.Set(float64(accounts))
	PendingBDAG.Set(pending.InexactFloat64())
	ClaimedBDAG.Set(claimed.InexactFloat64())
}
