// Package api provides the HTTP server for the earnings service.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/app/earnings"
	"github.com/hashing-heroes/heroes/internal/domain"
	"github.com/hashing-heroes/heroes/internal/infra/observability"
)

// DefaultTokenPriceUSD is the display price used for USD conversions.
const DefaultTokenPriceUSD = 0.15

// Server is the earnings HTTP API server.
type Server struct {
	ledger         *earnings.Ledger
	store          domain.TransactionStore // nil disables /api/transactions
	earningsHub    *EarningsHub
	metricsEnabled bool
	adminHash      string
	tokenPriceUSD  float64
	requestTimeout time.Duration
	version        string
}

// NewServer creates a new API server. store may be nil.
func NewServer(ledger *earnings.Ledger, store domain.TransactionStore) *Server {
	return &Server{
		ledger:         ledger,
		store:          store,
		tokenPriceUSD:  DefaultTokenPriceUSD,
		requestTimeout: time.Minute,
		version:        "dev",
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// SetEarningsHub sets the live earnings SSE hub.
func (s *Server) SetEarningsHub(h *EarningsHub) { s.earningsHub = h }

// EarningsHub returns the live earnings hub.
func (s *Server) EarningsHub() *EarningsHub { return s.earningsHub }

// SetAdminPasswordHash sets the Argon2id hash guarding admin routes.
// An empty hash disables them.
func (s *Server) SetAdminPasswordHash(hash string) { s.adminHash = hash }

// SetTokenPrice sets the USD display price of one token.
func (s *Server) SetTokenPrice(usd float64) { s.tokenPriceUSD = usd }

// SetRequestTimeout bounds non-streaming request handling.
func (s *Server) SetRequestTimeout(d time.Duration) {
	if d > 0 {
		s.requestTimeout = d
	}
}

// SetVersion sets the version reported by /api/version.
func (s *Server) SetVersion(v string) { s.version = v }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		// Live feed is long-lived; everything else gets the request timeout.
		if s.earningsHub != nil {
			r.Get("/earnings/live", s.earningsHub.HandleEarningsSSE)
		}

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(s.requestTimeout))

			r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, map[string]string{
					"version": s.version,
				})
			})

			r.Post("/potential", s.handlePotential)

			r.Route("/earnings/{address}", func(r chi.Router) {
				r.Get("/", s.handleAccount)
				r.Delete("/", s.requireAdmin(s.handleReset))
				r.Post("/entries", s.handleAddEntry)
				r.Post("/activities", s.handleActivity)
				r.Post("/claim", s.handleClaim)
				r.Get("/history", s.handleHistory)
				r.Get("/breakdown", s.handleBreakdown)
			})

			if s.store != nil {
				r.Route("/transactions", func(r chi.Router) {
					r.Get("/", s.handleListTransactions)
					r.Get("/stats", s.handleTransactionStats)
					r.Get("/{hash}", s.handleGetTransaction)
				})
			}
		})
	})

	return r
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the browser game client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, "+adminHeader)
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request and records HTTP metrics by route pattern.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		observability.HTTPRequests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		observability.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())

		log.WithFields(log.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     status,
			"duration":   elapsed.String(),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("http request")
	})
}
