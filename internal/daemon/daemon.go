package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/api"
	"github.com/hashing-heroes/heroes/internal/app/earnings"
	"github.com/hashing-heroes/heroes/internal/app/history"
	"github.com/hashing-heroes/heroes/internal/domain"
	"github.com/hashing-heroes/heroes/internal/infra/observability"
	"github.com/hashing-heroes/heroes/internal/infra/postgres"
	"github.com/hashing-heroes/heroes/internal/infra/sqlite"
	"github.com/hashing-heroes/heroes/internal/jobs"
)

// Daemon is the assembled service: ledger, history store, API and jobs.
type Daemon struct {
	Config    Config
	Ledger    *earnings.Ledger
	Store     domain.TransactionStore // nil with the memory driver
	Recorder  *history.Recorder
	Hub       *api.EarningsHub
	Server    *api.Server
	Scheduler *jobs.Scheduler
}

// OpenStore opens the transaction store selected by cfg.Storage.
// The memory driver returns a nil store.
func OpenStore(ctx context.Context, cfg Config) (domain.TransactionStore, error) {
	switch strings.ToLower(cfg.Storage.Driver) {
	case "sqlite", "":
		db, err := sqlite.Open(cfg.Storage.DataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return db, nil
	case "postgres":
		st, err := postgres.Open(ctx, postgres.PoolConfig{
			DSN:      cfg.Storage.PostgresDSN,
			MaxConns: cfg.Storage.MaxConns,
		})
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return st, nil
	case "memory":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

// New wires every component from cfg.
func New(ctx context.Context, cfg Config, version string) (*Daemon, error) {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	d := &Daemon{Config: cfg, Store: store, Hub: api.NewEarningsHub()}

	observers := []domain.LedgerObserver{observability.LedgerMetrics{}, d.Hub}
	if store != nil {
		d.Recorder = history.NewRecorder(store, cfg.ConfirmDelay())
		observers = append(observers, d.Recorder)
	}
	d.Ledger = earnings.NewLedger(earnings.WithObserver(observers...))

	d.Server = api.NewServer(d.Ledger, store)
	d.Server.SetEarningsHub(d.Hub)
	d.Server.SetAdminPasswordHash(cfg.Admin.PasswordHash)
	d.Server.SetTokenPrice(cfg.Pricing.TokenPriceUSD)
	d.Server.SetRequestTimeout(cfg.RequestTimeout())
	d.Server.SetVersion(version)
	if cfg.Metrics.Enabled {
		d.Server.EnableMetrics()
	}

	if cfg.Jobs.Enabled {
		d.Scheduler = jobs.NewScheduler(jobs.Config{
			PruneInterval:  cfg.PruneInterval(),
			ReportInterval: cfg.ReportInterval(),
			MaxStored:      cfg.Transactions.MaxStored,
		}, d.Ledger, store)
	}
	return d, nil
}

// Run serves the API until ctx is cancelled, then shuts down gracefully.
func (d *Daemon) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", d.Config.API.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", d.Config.API.Addr(), err)
	}
	return d.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (d *Daemon) Serve(ctx context.Context, ln net.Listener) error {
	if d.Scheduler != nil {
		if err := d.Scheduler.Start(ctx); err != nil {
			ln.Close()
			return err
		}
	}

	srv := &http.Server{
		Handler:           d.Server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", ln.Addr().String()).Info("earnings API listening")
		errCh <- srv.Serve(ln)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http shutdown")
	}
	d.Close()

	if serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		return serveErr
	}
	return nil
}

// Close stops background work and releases the store.
func (d *Daemon) Close() {
	if d.Scheduler != nil {
		d.Scheduler.Stop()
	}
	if d.Recorder != nil {
		d.Recorder.Stop()
	}
	if d.Store != nil {
		if err := d.Store.Close(); err != nil {
			log.WithError(err).Warn("close store")
		}
	}
	log.Info("earnings service stopped")
}
