// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db opens the database and creates the schema.

# Drivers

Open selects the driver from the configured database type:

  - postgres: github.com/lib/pq
  - sqlite: modernc.org/sqlite (pure Go, single connection)

	conn, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.

# Tables

  - poll: question and total vote counter
  - poll_option: per-option text and counter, keyed by (poll_id, position)
  - vote: append-only ledger of admitted votes

# Relationships

	poll 1──* poll_option
	poll 1──* vote

All foreign keys use ON DELETE CASCADE.

# Indexes

The vote table is indexed for each admission lookup:

  - (poll_id, voter_token)
  - (poll_id, fingerprint)
  - (poll_id, address)
  - (address, created_at) for the rate window
*/
package db
