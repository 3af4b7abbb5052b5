// Package db opens the PostgreSQL database and keeps its schema in place.
package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    email TEXT NOT NULL UNIQUE,
    phone_number TEXT,
    password_hash BYTEA NOT NULL,
    is_admin BOOLEAN NOT NULL DEFAULT FALSE,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS sessions (
    access_token TEXT PRIMARY KEY,
    refresh_token TEXT NOT NULL,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    access_expires_at TIMESTAMPTZ NOT NULL,
    refresh_expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS sessions_refresh_token_idx ON sessions (refresh_token);

CREATE TABLE IF NOT EXISTS tickers (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    exchange TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    last_price DOUBLE PRECISION NOT NULL DEFAULT 0,
    last_updated TIMESTAMPTZ NOT NULL DEFAULT now(),
    UNIQUE (symbol, exchange)
);

CREATE TABLE IF NOT EXISTS tags (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS trades (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    ticker_id TEXT NOT NULL REFERENCES tickers(id),
    status TEXT NOT NULL DEFAULT 'Active',
    side TEXT NOT NULL,
    type TEXT,
    notes TEXT,
    entry DOUBLE PRECISION NOT NULL,
    stoploss DOUBLE PRECISION,
    target DOUBLE PRECISION,
    timeframe TEXT,
    score INTEGER,
    entry_x TIMESTAMPTZ,
    stoploss_x TIMESTAMPTZ,
    target_x TIMESTAMPTZ,
    entry_at TIMESTAMPTZ,
    stoploss_at TIMESTAMPTZ,
    target_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    edited_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    status_updated_at TIMESTAMPTZ,
    risk_per_unit DOUBLE PRECISION,
    reward_per_unit DOUBLE PRECISION,
    risk_reward_ratio DOUBLE PRECISION,
    tags TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS trades_user_created_idx ON trades (user_id, created_at DESC);

CREATE TABLE IF NOT EXISTS telegram_links (
    user_id TEXT PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    verification_code TEXT UNIQUE,
    code_expires_at TIMESTAMPTZ,
    username TEXT,
    connected_at TIMESTAMPTZ
);
`

// InitPostgres connects to dsn, checks the connection and creates missing tables.
func InitPostgres(dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// Migrate creates the tables and indexes that do not exist yet.
func Migrate(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}
