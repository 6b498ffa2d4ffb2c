package earnings

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hashing-heroes/heroes/internal/domain"
)

// ─── Helpers ────────────────────────────────────────────────────────────────

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("0xclaim-%d", s.n)
}

type recordingObserver struct {
	mu       sync.Mutex
	earnings []domain.EarningRecord
	claims   []domain.ClaimReceipt
}

func (o *recordingObserver) EarningRecorded(_ string, rec domain.EarningRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.earnings = append(o.earnings, rec)
}

func (o *recordingObserver) TokensClaimed(r domain.ClaimReceipt) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.claims = append(o.claims, r)
}

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	n := 0
	base := []Option{
		WithIDGenerator(&seqIDs{}),
		WithClock(func() time.Time { return testNow }),
		WithRecordIDs(func() string { n++; return fmt.Sprintf("rec-%d", n) }),
	}
	return NewLedger(append(base, opts...)...)
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertInvariant(t *testing.T, l *Ledger, addr string) {
	t.Helper()
	s := l.Snapshot(addr)
	if !s.TotalEarned.Equal(s.PendingBalance.Add(s.ClaimedBalance)) {
		t.Fatalf("invariant broken: total=%s pending=%s claimed=%s",
			s.TotalEarned, s.PendingBalance, s.ClaimedBalance)
	}
}

// ─── AddEarning ─────────────────────────────────────────────────────────────

func TestAddEarning_PendingBalance(t *testing.T) {
	l := newTestLedger(t)

	rec, err := l.AddEarning("0xA", dec("0.001"), domain.SourceTap, "")
	if err != nil {
		t.Fatalf("AddEarning() error: %v", err)
	}
	if rec.Status != domain.StatusPending {
		t.Errorf("status = %q, want pending", rec.Status)
	}
	if rec.ID != "rec-1" {
		t.Errorf("id = %q, want rec-1", rec.ID)
	}
	if !rec.Timestamp.Equal(testNow) {
		t.Errorf("timestamp = %v, want %v", rec.Timestamp, testNow)
	}
	if got := l.PendingBalance("0xA"); !got.Equal(dec("0.001")) {
		t.Errorf("PendingBalance = %s, want 0.001", got)
	}
	if got := l.TotalEarned("0xA"); !got.Equal(dec("0.001")) {
		t.Errorf("TotalEarned = %s, want 0.001", got)
	}
	assertInvariant(t, l, "0xA")
}

func TestAddEarning_Rejects(t *testing.T) {
	l := newTestLedger(t)

	tests := []struct {
		name    string
		addr    string
		amount  decimal.Decimal
		source  domain.Source
		wantErr error
	}{
		{"zero amount", "0xA", decimal.Zero, domain.SourceTap, domain.ErrInvalidAmount},
		{"negative amount", "0xA", dec("-1"), domain.SourceTap, domain.ErrInvalidAmount},
		{"unknown source", "0xA", dec("1"), domain.Source("tap_to_earn"), domain.ErrInvalidSource},
		{"empty address", "", dec("1"), domain.SourceTap, domain.ErrInvalidAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.AddEarning(tt.addr, tt.amount, tt.source, "")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if len(l.Addresses()) != 0 {
		t.Errorf("rejected earnings must not create ledgers, got %v", l.Addresses())
	}
}

func TestAddEarning_CaseVariantsShareLedger(t *testing.T) {
	l := newTestLedger(t)
	lower := "0x5aaeb6053f3e94c9b9a09f33669435e7ef1beaed"
	upper := "0x5AAEB6053F3E94C9B9A09F33669435E7EF1BEAED"

	l.AddEarning(lower, dec("1"), domain.SourceGovernance, "")
	l.AddEarning(upper, dec("2"), domain.SourceGovernance, "")

	if got := l.TotalEarned(lower); !got.Equal(dec("3")) {
		t.Errorf("TotalEarned = %s, want 3", got)
	}
	if n := len(l.Addresses()); n != 1 {
		t.Errorf("expected 1 ledger, got %d", n)
	}
}

// ─── Claim ──────────────────────────────────────────────────────────────────

func TestClaim_MovesPendingToClaimed(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("0.2"), domain.SourceMission, "")
	l.AddEarning("0xA", dec("0.3"), domain.SourceMission, "")

	receipt, err := l.Claim("0xA")
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if !receipt.Amount.Equal(dec("0.5")) {
		t.Errorf("receipt amount = %s, want 0.5", receipt.Amount)
	}
	if receipt.TxHash != "0xclaim-1" {
		t.Errorf("tx hash = %q, want 0xclaim-1", receipt.TxHash)
	}
	if receipt.RecordCount != 2 {
		t.Errorf("record count = %d, want 2", receipt.RecordCount)
	}
	if !l.PendingBalance("0xA").IsZero() {
		t.Errorf("pending = %s, want 0", l.PendingBalance("0xA"))
	}
	if got := l.ClaimedBalance("0xA"); !got.Equal(dec("0.5")) {
		t.Errorf("claimed = %s, want 0.5", got)
	}
	snap := l.Snapshot("0xA")
	if snap.LastClaimTime == nil || !snap.LastClaimTime.Equal(testNow) {
		t.Errorf("last claim time = %v, want %v", snap.LastClaimTime, testNow)
	}
	for _, r := range l.History("0xA", 10) {
		if r.Status != domain.StatusClaimed {
			t.Errorf("record %s status = %q, want claimed", r.ID, r.Status)
		}
	}
	assertInvariant(t, l, "0xA")
}

func TestClaim_TwiceFails(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("1"), domain.SourceGovernance, "")

	if _, err := l.Claim("0xA"); err != nil {
		t.Fatalf("first Claim() error: %v", err)
	}
	if _, err := l.Claim("0xA"); !errors.Is(err, domain.ErrNoPendingBalance) {
		t.Errorf("second Claim() err = %v, want ErrNoPendingBalance", err)
	}
	if got := l.ClaimedBalance("0xA"); !got.Equal(dec("1")) {
		t.Errorf("claimed = %s, want 1 (no double claim)", got)
	}
}

func TestClaim_UnknownAddress(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.Claim("0xNEW"); !errors.Is(err, domain.ErrNoPendingBalance) {
		t.Errorf("err = %v, want ErrNoPendingBalance", err)
	}
}

func TestClaim_LaterRecordsStayPending(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("1"), domain.SourceGovernance, "")
	l.Claim("0xA")
	late, _ := l.AddEarning("0xA", dec("0.05"), domain.SourceInstantTransfer, "")

	hist := l.History("0xA", 10)
	if hist[0].ID != late.ID || hist[0].Status != domain.StatusPending {
		t.Errorf("latest record = %+v, want pending %s", hist[0], late.ID)
	}
	if hist[1].Status != domain.StatusClaimed {
		t.Errorf("earlier record status = %q, want claimed", hist[1].Status)
	}
	if got := l.PendingBalance("0xA"); !got.Equal(dec("0.05")) {
		t.Errorf("pending = %s, want 0.05", got)
	}
	assertInvariant(t, l, "0xA")
}

func TestClaim_ConcurrentWithEarnings(t *testing.T) {
	l := newTestLedger(t)
	const workers = 8
	const perWorker = 50

	var wg sync.WaitGroup
	var claimedMu sync.Mutex
	claimedSum := decimal.Zero

	for w := 0; w < workers; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := l.AddEarning("0xA", dec("0.01"), domain.SourceTap, ""); err != nil {
					t.Errorf("AddEarning() error: %v", err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker/5; i++ {
				r, err := l.Claim("0xA")
				if err == nil {
					claimedMu.Lock()
					claimedSum = claimedSum.Add(r.Amount)
					claimedMu.Unlock()
				} else if !errors.Is(err, domain.ErrNoPendingBalance) {
					t.Errorf("Claim() error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	assertInvariant(t, l, "0xA")
	want := dec("0.01").Mul(decimal.NewFromInt(workers * perWorker))
	if got := l.TotalEarned("0xA"); !got.Equal(want) {
		t.Errorf("total = %s, want %s", got, want)
	}
	if got := l.ClaimedBalance("0xA"); !got.Equal(claimedSum) {
		t.Errorf("claimed balance = %s, receipts sum = %s", got, claimedSum)
	}

	// Every claimed record was counted in exactly one receipt.
	claimedRecords := decimal.Zero
	for _, r := range l.History("0xA", workers*perWorker) {
		if r.Status == domain.StatusClaimed {
			claimedRecords = claimedRecords.Add(r.Amount)
		}
	}
	if !claimedRecords.Equal(claimedSum) {
		t.Errorf("claimed records sum = %s, receipts sum = %s", claimedRecords, claimedSum)
	}
}

func TestInvariant_InterleavedSequence(t *testing.T) {
	l := newTestLedger(t)
	steps := []string{"add", "add", "claim", "add", "claim", "claim", "add", "add", "add", "claim"}
	for i, step := range steps {
		switch step {
		case "add":
			if _, err := l.AddEarning("0xA", decimal.NewFromInt(int64(i+1)).Div(decimal.NewFromInt(7)), domain.SourceCommunity, ""); err != nil {
				t.Fatal(err)
			}
		case "claim":
			l.Claim("0xA")
		}
		assertInvariant(t, l, "0xA")
	}
}

// ─── Reads ──────────────────────────────────────────────────────────────────

func TestReads_UnknownAddressIsZero(t *testing.T) {
	l := newTestLedger(t)
	if !l.PendingBalance("0xNEVER").IsZero() {
		t.Error("pending for unseen address should be 0")
	}
	if !l.ClaimedBalance("0xNEVER").IsZero() {
		t.Error("claimed for unseen address should be 0")
	}
	if !l.TotalEarned("0xNEVER").IsZero() {
		t.Error("total for unseen address should be 0")
	}
	if len(l.Breakdown("0xNEVER")) != 0 {
		t.Error("breakdown for unseen address should be empty")
	}
	if len(l.History("0xNEVER", 10)) != 0 {
		t.Error("history for unseen address should be empty")
	}
	if len(l.Addresses()) != 0 {
		t.Error("reads must not create ledgers")
	}
}

func TestReads_Idempotent(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("0.7"), domain.SourceMission, "")
	first := l.PendingBalance("0xA")
	second := l.PendingBalance("0xA")
	if !first.Equal(second) {
		t.Errorf("reads differ: %s vs %s", first, second)
	}
}

func TestBreakdown(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("0.001"), domain.SourceTap, "")
	l.AddEarning("0xA", dec("0.002"), domain.SourceTap, "")
	l.Claim("0xA")
	l.AddEarning("0xA", dec("0.5"), domain.SourceGovernance, "")

	b := l.Breakdown("0xA")
	if b[domain.SourceTap].Count != 2 || !b[domain.SourceTap].Total.Equal(dec("0.003")) {
		t.Errorf("tap breakdown = %+v, want {2 0.003}", b[domain.SourceTap])
	}
	if b[domain.SourceGovernance].Count != 1 {
		t.Errorf("governance count = %d, want 1", b[domain.SourceGovernance].Count)
	}
	if _, ok := b[domain.SourceMission]; ok {
		t.Error("unused source should not appear in breakdown")
	}
}

func TestHistory_MostRecentFirst(t *testing.T) {
	l := newTestLedger(t)
	for i := 0; i < 5; i++ {
		l.AddEarning("0xA", dec("1"), domain.SourceCommunity, fmt.Sprintf("c%d", i))
	}

	hist := l.History("0xA", 3)
	if len(hist) != 3 {
		t.Fatalf("len = %d, want 3", len(hist))
	}
	want := []string{"c4", "c3", "c2"}
	for i, r := range hist {
		if r.Description != want[i] {
			t.Errorf("hist[%d] = %q, want %q", i, r.Description, want[i])
		}
	}

	again := l.History("0xA", 3)
	for i := range hist {
		if hist[i].ID != again[i].ID {
			t.Error("History should be restartable with identical results")
		}
	}

	if all := l.History("0xA", 0); len(all) != 5 {
		t.Errorf("History(0) len = %d, want 5 (default limit)", len(all))
	}
}

func TestHistory_ReturnsCopies(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	hist := l.History("0xA", 1)
	hist[0].Status = domain.StatusClaimed
	if l.History("0xA", 1)[0].Status != domain.StatusPending {
		t.Error("mutating History output must not change the ledger")
	}
}

// ─── Reset / Observers ──────────────────────────────────────────────────────

func TestReset(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	if !l.Reset("0xA") {
		t.Error("Reset should report an existing ledger")
	}
	if !l.TotalEarned("0xA").IsZero() {
		t.Error("ledger should be discarded after reset")
	}
	if l.Reset("0xA") {
		t.Error("second Reset should report no ledger")
	}
}

func TestObservers_Notified(t *testing.T) {
	obs := &recordingObserver{}
	l := newTestLedger(t, WithObserver(obs))

	l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	l.Claim("0xA")
	l.Claim("0xA") // fails, no notification

	if len(obs.earnings) != 1 {
		t.Errorf("earnings notifications = %d, want 1", len(obs.earnings))
	}
	if len(obs.claims) != 1 {
		t.Errorf("claim notifications = %d, want 1", len(obs.claims))
	}
}

func TestTotals(t *testing.T) {
	l := newTestLedger(t)
	l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	l.AddEarning("0xB", dec("2"), domain.SourceCommunity, "")
	l.Claim("0xB")

	n, pending, claimed := l.Totals()
	if n != 2 {
		t.Errorf("accounts = %d, want 2", n)
	}
	if !pending.Equal(dec("1")) || !claimed.Equal(dec("2")) {
		t.Errorf("pending=%s claimed=%s, want 1 and 2", pending, claimed)
	}
}

// ─── ID Generation ──────────────────────────────────────────────────────────

func TestHashGenerator_Unique(t *testing.T) {
	g := HashGenerator{}
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := g.NewID()
		if len(id) != 66 || id[:2] != "0x" {
			t.Fatalf("id %q is not a 0x-prefixed 32-byte hex hash", id)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}

func TestDefaultRecordIDs_Unique(t *testing.T) {
	l := NewLedger()
	a, _ := l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	b, _ := l.AddEarning("0xA", dec("1"), domain.SourceCommunity, "")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("record ids must be unique and non-empty: %q, %q", a.ID, b.ID)
	}
}

// ─── Activities ─────────────────────────────────────────────────────────────

func TestEarnFromTapping_LevelBonus(t *testing.T) {
	l := newTestLedger(t)
	rec, err := l.EarnFromTapping("0xA", 2, 10)
	if err != nil {
		t.Fatalf("EarnFromTapping() error: %v", err)
	}
	if !rec.Amount.Equal(dec("0.011")) {
		t.Errorf("amount = %s, want 0.011", rec.Amount)
	}
	if rec.Description != "Earned from 10 taps at level 2" {
		t.Errorf("description = %q", rec.Description)
	}
}

func TestClaim_AfterHalfToken(t *testing.T) {
	l := newTestLedger(t)
	if _, err := l.EarnFromMission("0xA", "m1", ""); err != nil {
		t.Fatal(err)
	}
	r, err := l.Claim("0xA")
	if err != nil {
		t.Fatalf("Claim() error: %v", err)
	}
	if !r.Amount.Equal(dec("0.5")) {
		t.Errorf("claimed = %s, want 0.5", r.Amount)
	}
	if !l.PendingBalance("0xA").IsZero() || !l.ClaimedBalance("0xA").Equal(dec("0.5")) {
		t.Errorf("balances after claim: pending=%s claimed=%s",
			l.PendingBalance("0xA"), l.ClaimedBalance("0xA"))
	}
}

func TestEarn_Dispatch(t *testing.T) {
	tests := []struct {
		name   string
		act    Activity
		want   string
		source domain.Source
	}{
		{"tap defaults", Activity{Source: domain.SourceTap}, "0.001", domain.SourceTap},
		{"evolution", Activity{Source: domain.SourceNFTEvolution, NFTLevel: 4}, "0.3", domain.SourceNFTEvolution},
		{"transfer", Activity{Source: domain.SourceInstantTransfer, NFTID: 7}, "0.05", domain.SourceInstantTransfer},
		{"reputation", Activity{Source: domain.SourceReputation, RepPoints: 5}, "0.1", domain.SourceReputation},
		{"mission hard", Activity{Source: domain.SourceMission, Difficulty: domain.DifficultyHard}, "1", domain.SourceMission},
		{"login", Activity{Source: domain.SourceDailyLogin, ConsecutiveDays: 3}, "0.25", domain.SourceDailyLogin},
		{"sale", Activity{Source: domain.SourceNFTSale, SaleValue: dec("200")}, "1", domain.SourceNFTSale},
		{"referral", Activity{Source: domain.SourceReferral, ReferralAmount: dec("12.5")}, "1.25", domain.SourceReferral},
		{"governance", Activity{Source: domain.SourceGovernance, ProposalID: "p1"}, "0.5", domain.SourceGovernance},
		{"community default", Activity{Source: domain.SourceCommunity}, "0.5", domain.SourceCommunity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := newTestLedger(t)
			rec, err := l.Earn("0xA", tt.act)
			if err != nil {
				t.Fatalf("Earn() error: %v", err)
			}
			if !rec.Amount.Equal(dec(tt.want)) {
				t.Errorf("amount = %s, want %s", rec.Amount, tt.want)
			}
			if rec.Source != tt.source {
				t.Errorf("source = %q, want %q", rec.Source, tt.source)
			}
		})
	}
}

func TestEarn_TransferKeepsLargeNFTID(t *testing.T) {
	l := newTestLedger(t)
	rec, err := l.Earn("0xA", Activity{Source: domain.SourceInstantTransfer, NFTID: 1 << 40})
	if err != nil {
		t.Fatalf("Earn() error: %v", err)
	}
	if !strings.Contains(rec.Description, "#1099511627776") {
		t.Errorf("description = %q, want full NFT id", rec.Description)
	}

	rec, err = l.Earn("0xA", Activity{Source: domain.SourceInstantTransfer})
	if err != nil {
		t.Fatalf("Earn() error: %v", err)
	}
	if !strings.Contains(rec.Description, "#1 ") {
		t.Errorf("description = %q, want default NFT #1", rec.Description)
	}
}

func TestEarn_ReferralWithoutAmountRejected(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Earn("0xA", Activity{Source: domain.SourceReferral})
	if !errors.Is(err, domain.ErrInvalidAmount) {
		t.Errorf("err = %v, want ErrInvalidAmount", err)
	}
}

func TestEarn_UnknownSource(t *testing.T) {
	l := newTestLedger(t)
	_, err := l.Earn("0xA", Activity{Source: "staking"})
	if !errors.Is(err, domain.ErrInvalidSource) {
		t.Errorf("err = %v, want ErrInvalidSource", err)
	}
}
