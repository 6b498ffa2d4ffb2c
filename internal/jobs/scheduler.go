// Package jobs runs the background maintenance tasks on a cron schedule:
// transaction history retention and periodic ledger reports.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/hashing-heroes/heroes/internal/app/earnings"
	"github.com/hashing-heroes/heroes/internal/domain"
	"github.com/hashing-heroes/heroes/internal/infra/observability"
)

// Config controls the schedule. A zero interval disables that job.
type Config struct {
	PruneInterval  time.Duration
	ReportInterval time.Duration
	MaxStored      int
}

// Scheduler owns the cron runner.
type Scheduler struct {
	cron   *cron.Cron
	cfg    Config
	ledger *earnings.Ledger
	store  domain.TransactionStore // nil skips pruning
}

// NewScheduler creates a scheduler in UTC. store may be nil.
func NewScheduler(cfg Config, ledger *earnings.Ledger, store domain.TransactionStore) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		cfg:    cfg,
		ledger: ledger,
		store:  store,
	}
}

// Start registers the jobs and starts the runner. Jobs use ctx for store calls.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.store != nil && s.cfg.PruneInterval > 0 && s.cfg.MaxStored > 0 {
		spec := fmt.Sprintf("@every %s", s.cfg.PruneInterval)
		if _, err := s.cron.AddFunc(spec, func() { s.RunPrune(ctx) }); err != nil {
			return fmt.Errorf("schedule prune: %w", err)
		}
	}
	if s.cfg.ReportInterval > 0 {
		spec := fmt.Sprintf("@every %s", s.cfg.ReportInterval)
		if _, err := s.cron.AddFunc(spec, s.RunReport); err != nil {
			return fmt.Errorf("schedule report: %w", err)
		}
	}

	s.cron.Start()
	log.WithField("jobs", len(s.cron.Entries())).Info("job scheduler started")
	return nil
}

// Stop stops the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("job scheduler stopped")
}

// RunPrune trims the transaction history to MaxStored entries.
func (s *Scheduler) RunPrune(ctx context.Context) {
	if s.store == nil || s.cfg.MaxStored <= 0 {
		return
	}
	n, err := s.store.PruneTransactions(ctx, s.cfg.MaxStored)
	if err != nil {
		log.WithError(err).Error("[CRON] prune transactions")
		return
	}
	if n > 0 {
		observability.TransactionsPruned.Add(float64(n))
		log.WithFields(log.Fields{"removed": n, "kept": s.cfg.MaxStored}).Info("[CRON] pruned transaction history")
	}
}

// RunReport publishes ledger totals as gauges and logs them.
func (s *Scheduler) RunReport() {
	accounts, pending, claimed := s.ledger.Totals()
	observability.SetLedgerTotals(accounts, pending, claimed)
	log.WithFields(log.Fields{
		"accounts": accounts,
		"pending":  pending.String(),
		"claimed":  claimed.String(),
	}).Info("[CRON] ledger report")
}
