// Package sqlite is the default transaction history store, backed by the pure
// Go modernc.org/sqlite driver.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// FileName is the database file created inside the data directory.
const FileName = "heroes.db"

// DB wraps the SQLite handle.
type DB struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

// Open creates dir if needed and opens <dir>/heroes.db, applying migrations.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	path := filepath.Join(dir, FileName)

	sqlDB, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps SQLite from returning SQLITE_BUSY under load.
	sqlDB.SetMaxOpenConns(1)

	db := &DB{db: sqlDB, path: path, now: time.Now}
	if err := db.migrate(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	log.WithField("path", path).Debug("sqlite store opened")
	return db, nil
}

// Path returns the database file location.
func (db *DB) Path() string { return db.path }

// Close releases the database handle.
func (db *DB) Close() error {
	return db.db.Close()
}

func (db *DB) migrate() error {
	for _, stmt := range Migrations() {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema statements, one per string.
// Timestamps are unix nanoseconds so ordering is numeric.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS transactions (
			hash             TEXT PRIMARY KEY,
			from_addr        TEXT NOT NULL,
			to_addr          TEXT NOT NULL,
			value            TEXT NOT NULL,
			type             TEXT NOT NULL,
			status           TEXT NOT NULL DEFAULT 'pending',
			confirmations    INTEGER NOT NULL DEFAULT 0,
			timestamp_ns     INTEGER NOT NULL,
			dag_timestamp_ns INTEGER,
			updated_at_ns    INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_timestamp ON transactions(timestamp_ns)`,
		`CREATE INDEX IF NOT EXISTS idx_tx_from ON transactions(lower(from_addr))`,
		`CREATE INDEX IF NOT EXISTS idx_tx_to ON transactions(lower(to_addr))`,
	}
}
