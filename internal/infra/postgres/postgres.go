// Package postgres is the PostgreSQL transaction history store, for
// deployments that share history between several API instances.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	DSN      string
	MaxConns int32
	MinConns int32
}

// Store implements domain.TransactionStore on a pgx pool.
type Store struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPool connects and pings the database.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, errors.New("postgres: empty DSN")
	}
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database unreachable: %w", err)
	}
	log.Info("connected to PostgreSQL")
	return pool, nil
}

// Open connects, migrates and returns a ready store.
func Open(ctx context.Context, cfg PoolConfig) (*Store, error) {
	pool, err := NewPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := RunMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return New(pool), nil
}

// New wraps an existing pool. The caller is responsible for migrations.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool, now: time.Now}
}

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// ─── Migrations ─────────────────────────────────────────────────────────────

// Migration is one numbered schema step.
type Migration struct {
	Version    int
	Statements []string
}

// Migrations returns the schema history in ascending version order.
func Migrations() []Migration {
	return []Migration{
		{Version: 1, Statements: []string{
			`CREATE TABLE IF NOT EXISTS transactions (
				hash          TEXT PRIMARY KEY,
				from_addr     TEXT NOT NULL,
				to_addr       TEXT NOT NULL,
				value         NUMERIC(38, 18) NOT NULL,
				type          TEXT NOT NULL,
				status        TEXT NOT NULL DEFAULT 'pending',
				confirmations INTEGER NOT NULL DEFAULT 0,
				created_at    TIMESTAMPTZ NOT NULL,
				dag_timestamp TIMESTAMPTZ,
				updated_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
			)`,
			`CREATE INDEX IF NOT EXISTS idx_tx_created ON transactions(created_at DESC)`,
		}},
		{Version: 2, Statements: []string{
			`CREATE INDEX IF NOT EXISTS idx_tx_from_lower ON transactions(lower(from_addr))`,
			`CREATE INDEX IF NOT EXISTS idx_tx_to_lower ON transactions(lower(to_addr))`,
		}},
	}
}

// RunMigrations applies every migration not yet recorded in schema_migrations.
// Each version runs in its own transaction.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	for _, m := range Migrations() {
		var exists bool
		err := pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check migration %d: %w", m.Version, err)
		}
		if exists {
			continue
		}
		if err := applyMigration(ctx, pool, m); err != nil {
			return err
		}
		log.WithField("version", m.Version).Info("migration applied")
	}
	return nil
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %d: %w", m.Version, err)
	}
	defer tx.Rollback(ctx)

	for _, stmt := range m.Statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", m.Version, err)
		}
	}
	if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, m.Version); err != nil {
		return fmt.Errorf("record migration %d: %w", m.Version, err)
	}
	return tx.Commit(ctx)
}
