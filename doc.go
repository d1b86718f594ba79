// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the Bus2Ride live polls server.

The server backs the community polls on the party bus, limousine and coach
bus rental site: poll listings, one-tap voting with results returned for
optimistic clients, embeddable iframe widgets, and an analytics layer that
ranks trending, rising and hidden-gem polls with fallback figures when
data is thin.

# Starting the Server

The server requires environment variables or CLI flags for configuration:

	DATABASE_URL=file:livepolls.db ADMIN_KEY=... VOTER_SALT=... go run .

Or with flags:

	go run . -p 3318 -t postgres -d "postgres://..." -admin-key ... -voter-salt ...

A .env file in the working directory is loaded first, and a TOML file may
be given with -c or CONFIG_FILE.

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file URL or PostgreSQL connection string
  - ADMIN_KEY (-admin-key): Key for content management endpoints
  - VOTER_SALT (-voter-salt): Secret for voter fingerprints

Optional settings:

  - PORT (-p): Server port (default: 3318)
  - DATABASE_TYPE (-t): sqlite (default) or postgres
  - SITE_ORIGIN (-origin): Origin used in embed codes
  - ANALYTICS_TTL (-analytics-ttl): Analytics cache lifetime (default: 60s)
  - REDIS_URL (-redis): Shared analytics cache
  - TOMTOM_API_KEY (-traffic-key): Live traffic reports
  - SEED (-seed): Load demo polls into an empty database

# Architecture

The server uses a handler-based architecture with dependency injection:

  - handlers: HTTP request handlers (polls, voting, results, analytics, embeds)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, framing, JSON helpers
  - analytics: Aggregates, rankings and stat cards over a poll snapshot
  - cache: TTL cache in memory or Redis
  - live: Websocket fan-out of fresh results
  - locations: Served cities and display names
  - traffic: Road conditions with 511 fallback
  - models: Request/response types
  - auth: Admin key and voter fingerprints
  - db: Schema, drivers and seed data
  - cliparse: Configuration parsing

See package documentation for each component.
*/
package main
