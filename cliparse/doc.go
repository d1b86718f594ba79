// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

# Config Fields

  - Port: Server listen port (default: 3318)
  - DatabaseURL: Database connection string (required)
  - DatabaseType: sqlite (default) or postgres
  - AdminKey: Shared secret for content management (required)
  - VoterSalt: HMAC salt for voter fingerprints (required)
  - SiteOrigin: Origin used in embed codes (default: https://bus2ride.com)
  - AnalyticsTTL: Analytics cache lifetime (default: 60s)
  - RedisURL: Optional shared analytics cache
  - TrafficAPIKey: Optional TomTom key for live road conditions
  - Seed: Load demo content into an empty database

# Sources

Values are resolved in order: CLI flag, environment variable, TOML file
(-c or CONFIG_FILE), default. LoadEnv reads a .env file into the
environment first:

	_ = cliparse.LoadEnv(".env")

# Environment Variables

	PORT           → -p
	DATABASE_URL   → -d
	DATABASE_TYPE  → -t
	ADMIN_KEY      → -admin-key
	VOTER_SALT     → -voter-salt
	SITE_ORIGIN    → -origin
	ANALYTICS_TTL  → -analytics-ttl
	REDIS_URL      → -redis
	TOMTOM_API_KEY → -traffic-key
	SEED=true      → -seed

# Validation

ParseFlags returns an error if DATABASE_URL, ADMIN_KEY or VOTER_SALT is
missing, or if the database type is not sqlite or postgres.
*/
package cliparse
