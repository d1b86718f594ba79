// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package db handles database connections, schema creation and demo content.

# Connections

Open selects the driver from the configured database type:

	conn, err := db.Open("sqlite", "file:livepolls.db")
	conn, err := db.Open("postgres", "postgres://...")

# Schema Creation

CreateSchema initializes all required tables:

	if err := db.CreateSchema(conn); err != nil {
		log.Fatal(err)
	}

Safe to call multiple times - uses IF NOT EXISTS for all tables and indexes.
The SQL is portable between PostgreSQL and SQLite.

# Tables

  - poll_category: Category slugs and display names
  - poll: Questions, optional location, view counter
  - poll_option: Options with a denormalized vote_count
  - poll_vote: Timestamped vote log, one row per voter per poll
  - lead: Quote requests

# Relationships

	poll_category 1──* poll
	poll 1──* poll_option
	poll 1──* poll_vote
	poll_option 1──* poll_vote

# Errors

IsUniqueViolation recognises constraint failures from lib/pq and
modernc.org/sqlite so callers can map them to 409 responses.
*/
package db
