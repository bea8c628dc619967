// Package storage provides the exchange's persisted stores: wallets
// (balances with optimistic-concurrency versioning), orders (keyed by id and
// secondarily by idempotency key), trades (an append-only execution log),
// and the deposit idempotency log. All four stores share one SQLite
// connection, modeled directly on the prepared-statement/transaction
// pattern in manangoyal18-GOLANG-ORDER-MATCHING-SYSTEM's engine package and
// the WAL pragma dial string in Klingon-tech-klingdex's storage package.
package storage

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Store wraps a single SQLite database holding the wallets, orders, trades
// and deposit_log tables.
type Store struct {
	db *sql.DB
}

// Open opens (and, if needed, creates) the database at dataSourceName.
// Use ":memory:" for an ephemeral store (tests, the demo CLI's default).
func Open(dataSourceName string) (*Store, error) {
	dsn := dataSourceName
	if dsn != ":memory:" {
		dsn = dsn + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if dsn == ":memory:" {
		// SQLite's :memory: database is per-connection; a pool would hand
		// out separate empty databases. Pin to a single connection.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(1) // SQLite allows exactly one writer at a time.
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
			user_id  INTEGER NOT NULL,
			currency TEXT    NOT NULL,
			available TEXT   NOT NULL,
			version  INTEGER NOT NULL,
			PRIMARY KEY (user_id, currency)
		)`,
		`CREATE TABLE IF NOT EXISTS orders (
			id              TEXT PRIMARY KEY,
			user_id         INTEGER NOT NULL,
			kind            TEXT NOT NULL,
			side            TEXT NOT NULL,
			base            TEXT NOT NULL,
			quote           TEXT NOT NULL,
			limit_price     TEXT,
			original_qty    TEXT NOT NULL,
			filled_qty      TEXT NOT NULL,
			status          TEXT NOT NULL,
			idempotency_key TEXT UNIQUE,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_user ON orders(user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_status ON orders(status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_symbol_status ON orders(base, quote, status)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id            TEXT PRIMARY KEY,
			buy_order_id  TEXT NOT NULL,
			sell_order_id TEXT NOT NULL,
			base          TEXT NOT NULL,
			quote         TEXT NOT NULL,
			price         TEXT NOT NULL,
			qty           TEXT NOT NULL,
			timestamp     TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_buy ON trades(buy_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_sell ON trades(sell_order_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_symbol_ts ON trades(base, quote, timestamp)`,
		`CREATE TABLE IF NOT EXISTS deposit_log (
			idempotency_key TEXT PRIMARY KEY,
			user_id         INTEGER NOT NULL,
			currency        TEXT NOT NULL,
			amount          TEXT NOT NULL,
			created_at      TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt, err)
		}
	}
	return nil
}
