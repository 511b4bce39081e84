// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Open connects to the configured database and verifies the connection.
// dbType is "postgres" or "sqlite".
func Open(dbType, url string) (*sql.DB, error) {
	driver := dbType
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported database type %q", dbType)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer; a single connection keeps
		// transactions from failing with SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
		if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
		}
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	return conn, nil
}

// CreateSchema creates all tables needed for the application.
// Safe to call multiple times - uses IF NOT EXISTS.
func CreateSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Timestamps are Unix milliseconds so window comparisons behave the same
// on PostgreSQL and SQLite.
const schema = `
-- Polls
CREATE TABLE IF NOT EXISTS poll (
    id TEXT PRIMARY KEY,
    question TEXT NOT NULL,
    total_votes INTEGER NOT NULL DEFAULT 0 CHECK (total_votes >= 0),
    created_at BIGINT NOT NULL
);

-- Options, ordered by position
CREATE TABLE IF NOT EXISTS poll_option (
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    position INTEGER NOT NULL,
    text TEXT NOT NULL,
    votes INTEGER NOT NULL DEFAULT 0 CHECK (votes >= 0),
    PRIMARY KEY (poll_id, position)
);

-- Vote ledger (append-only)
CREATE TABLE IF NOT EXISTS vote (
    id TEXT PRIMARY KEY,
    poll_id TEXT NOT NULL REFERENCES poll(id) ON DELETE CASCADE,
    option_index INTEGER NOT NULL,
    voter_token TEXT NOT NULL,
    fingerprint TEXT NOT NULL DEFAULT '',
    address TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_vote_poll_voter_token ON vote(poll_id, voter_token);
CREATE INDEX IF NOT EXISTS idx_vote_poll_fingerprint ON vote(poll_id, fingerprint);
CREATE INDEX IF NOT EXISTS idx_vote_poll_address ON vote(poll_id, address);
CREATE INDEX IF NOT EXISTS idx_vote_address_created_at ON vote(address, created_at);
`
