package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/app/earnings"
	"github.com/hashing-heroes/heroes/internal/domain"
	"github.com/hashing-heroes/heroes/internal/infra/auth"
	"github.com/hashing-heroes/heroes/internal/infra/observability"
)

const adminHeader = "X-Admin-Password"

// ─── Responses ──────────────────────────────────────────────────────────────

type usdValues struct {
	TotalEarned decimal.Decimal `json:"total_earned"`
	Pending     decimal.Decimal `json:"pending"`
	Claimed     decimal.Decimal `json:"claimed"`
}

type accountResponse struct {
	domain.AccountSnapshot
	Breakdown domain.Breakdown `json:"breakdown"`
	USD       usdValues        `json:"usd"`
}

type claimResponse struct {
	domain.ClaimReceipt
	ExplorerURL string `json:"explorer_url"`
}

type potentialResponse struct {
	domain.DailyPotential
	DailyUSD   decimal.Decimal `json:"dailyUSD"`
	MonthlyUSD decimal.Decimal `json:"monthlyUSD"`
}

type transactionResponse struct {
	domain.Transaction
	ExplorerURL string `json:"explorer_url"`
}

// ─── Ledger Handlers ────────────────────────────────────────────────────────

// handleAccount serves GET /api/earnings/{address}.
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if _, err := domain.NormalizeAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}
	snap := s.ledger.Snapshot(addr)
	writeJSON(w, http.StatusOK, accountResponse{
		AccountSnapshot: snap,
		Breakdown:       s.ledger.Breakdown(addr),
		USD: usdValues{
			TotalEarned: domain.TokenToUSD(snap.TotalEarned, s.tokenPriceUSD),
			Pending:     domain.TokenToUSD(snap.PendingBalance, s.tokenPriceUSD),
			Claimed:     domain.TokenToUSD(snap.ClaimedBalance, s.tokenPriceUSD),
		},
	})
}

type entryRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Source      string          `json:"source"`
	Description string          `json:"description"`
}

// handleAddEntry serves POST /api/earnings/{address}/entries.
func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	source, err := domain.ParseSource(req.Source)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	rec, err := s.ledger.AddEarning(chi.URLParam(r, "address"), req.Amount, source, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleActivity serves POST /api/earnings/{address}/activities.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var act earnings.Activity
	if err := json.NewDecoder(r.Body).Decode(&act); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	source, err := domain.ParseSource(string(act.Source))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	act.Source = source
	rec, err := s.ledger.Earn(chi.URLParam(r, "address"), act)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// handleClaim serves POST /api/earnings/{address}/claim.
func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	receipt, err := s.ledger.Claim(chi.URLParam(r, "address"))
	if err != nil {
		if errors.Is(err, domain.ErrNoPendingBalance) {
			observability.ClaimFailures.Inc()
		}
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		ClaimReceipt: receipt,
		ExplorerURL:  domain.Transaction{Hash: receipt.TxHash}.ExplorerURL(),
	})
}

// handleHistory serves GET /api/earnings/{address}/history?limit=N.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, earnings.DefaultHistoryLimit)
	if !ok {
		return
	}
	addr := chi.URLParam(r, "address")
	if _, err := domain.NormalizeAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"records": s.ledger.History(addr, limit),
	})
}

// handleBreakdown serves GET /api/earnings/{address}/breakdown.
func (s *Server) handleBreakdown(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	if _, err := domain.NormalizeAddress(addr); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.ledger.Breakdown(addr))
}

// handleReset serves DELETE /api/earnings/{address}.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	addr := chi.URLParam(r, "address")
	existed := s.ledger.Reset(addr)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address": addr,
		"reset":   existed,
	})
}

// handlePotential serves POST /api/potential.
func (s *Server) handlePotential(w http.ResponseWriter, r *http.Request) {
	var in domain.PotentialInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	p := domain.CalculateDailyEarningPotential(in.Stats())
	writeJSON(w, http.StatusOK, potentialResponse{
		DailyPotential: p,
		DailyUSD:       domain.TokenToUSD(decimal.NewFromFloat(p.TotalDaily), s.tokenPriceUSD),
		MonthlyUSD:     domain.TokenToUSD(decimal.NewFromFloat(p.TotalMonthly), s.tokenPriceUSD),
	})
}

// ─── Transaction Handlers ───────────────────────────────────────────────────

// handleListTransactions serves GET /api/transactions?address=&limit=.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, earnings.DefaultHistoryLimit)
	if !ok {
		return
	}
	var (
		txs []domain.Transaction
		err error
	)
	if addr := r.URL.Query().Get("address"); addr != "" {
		txs, err = s.store.ListByAddress(r.Context(), addr, limit)
	} else {
		txs, err = s.store.ListTransactions(r.Context(), limit)
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionResponse{Transaction: tx, ExplorerURL: tx.ExplorerURL()})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": out,
	})
}

// handleTransactionStats serves GET /api/transactions/stats.
func (s *Server) handleTransactionStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.TransactionStats(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleGetTransaction serves GET /api/transactions/{hash}.
func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, transactionResponse{Transaction: *tx, ExplorerURL: tx.ExplorerURL()})
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// requireAdmin checks the admin password header against the configured hash.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.adminHash == "" {
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		ok, err := auth.VerifyPassword(r.Header.Get(adminHeader), s.adminHash)
		if err != nil {
			log.WithError(err).Error("admin password hash is misconfigured")
			writeError(w, http.StatusForbidden, "admin endpoints are disabled")
			return
		}
		if !ok {
			log.WithField("remote", r.RemoteAddr).Warn("rejected admin request")
			writeDomainError(w, domain.ErrUnauthorized)
			return
		}
		next(w, r)
	}
}

// parseLimit reads ?limit=, writing a 400 when it is not a non-negative integer.
func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
		return 0, false
	}
	if n == 0 {
		n = def
	}
	return n, true
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrInvalidAmount),
		errors.Is(err, domain.ErrInvalidAddress),
		errors.Is(err, domain.ErrInvalidTransaction):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNoPendingBalance):
		writeError(w, http.StatusConflict, "No pending tokens to claim")
	case errors.Is(err, domain.ErrTransactionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
