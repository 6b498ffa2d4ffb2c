package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/domain"
	"github.com/hashing-heroes/heroes/internal/infra/observability"
)

// ─── Live Earnings Feed ─────────────────────────────────────────────────────
// Ledger events are pushed to connected game clients over Server-Sent Events.

// Event types sent on the live feed.
const (
	EventEarningRecorded = "earning_recorded"
	EventTokensClaimed   = "tokens_claimed"
)

// EarningsEvent is one message on the live feed.
type EarningsEvent struct {
	Type      string          `json:"type"`
	Address   string          `json:"address"`
	Amount    decimal.Decimal `json:"amount"`
	Source    domain.Source   `json:"source,omitempty"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Timestamp int64           `json:"timestamp"` // Unix epoch
}

// EarningsHub fans ledger events out to SSE subscribers.
// It implements domain.LedgerObserver.
type EarningsHub struct {
	mu      sync.RWMutex
	clients map[chan []byte]string // channel → address filter ("" = all)
}

// NewEarningsHub creates a new earnings broadcast hub.
func NewEarningsHub() *EarningsHub {
	return &EarningsHub{
		clients: make(map[chan []byte]string),
	}
}

// Broadcast sends an event to every subscriber whose filter matches.
// Slow subscribers miss events rather than block the ledger.
func (h *EarningsHub) Broadcast(event EarningsEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.WithError(err).Warn("marshal earnings event")
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for ch, filter := range h.clients {
		if filter != "" && filter != event.Address {
			continue
		}
		select {
		case ch <- data:
		default:
		}
	}
}

// Subscribe registers a client for all addresses.
func (h *EarningsHub) Subscribe() (chan []byte, func()) {
	return h.SubscribeAddress("")
}

// SubscribeAddress registers a client for one address ("" for all).
// Returns the channel and an unsubscribe func.
func (h *EarningsHub) SubscribeAddress(address string) (chan []byte, func()) {
	ch := make(chan []byte, 32)
	h.mu.Lock()
	h.clients[ch] = address
	n := len(h.clients)
	h.mu.Unlock()
	observability.LiveClients.Set(float64(n))

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.clients, ch)
			n := len(h.clients)
			close(ch)
			h.mu.Unlock()
			observability.LiveClients.Set(float64(n))
		})
	}
}

// ClientCount returns the number of connected clients.
func (h *EarningsHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// EarningRecorded broadcasts a new reward record.
func (h *EarningsHub) EarningRecorded(address string, rec domain.EarningRecord) {
	h.Broadcast(EarningsEvent{
		Type:      EventEarningRecorded,
		Address:   address,
		Amount:    rec.Amount,
		Source:    rec.Source,
		Timestamp: rec.Timestamp.Unix(),
	})
}

// TokensClaimed broadcasts a completed claim.
func (h *EarningsHub) TokensClaimed(r domain.ClaimReceipt) {
	h.Broadcast(EarningsEvent{
		Type:      EventTokensClaimed,
		Address:   r.Address,
		Amount:    r.Amount,
		TxHash:    r.TxHash,
		Timestamp: r.Timestamp.Unix(),
	})
}

// HandleEarningsSSE serves the live earnings feed via Server-Sent Events.
// GET /api/earnings/live[?address=0x…]
func (h *EarningsHub) HandleEarningsSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	filter := ""
	if addr := r.URL.Query().Get("address"); addr != "" {
		norm, err := domain.NormalizeAddress(addr)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		filter = norm
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	flusher.Flush()

	ch, unsub := h.SubscribeAddress(filter)
	defer unsub()

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			w.Write([]byte(": ping\n\n"))
			flusher.Flush()
		case data, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: "))
			w.Write(data)
			w.Write([]byte("\n\n"))
			flusher.Flush()
		}
	}
}
