// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the live polls API.

# Handler Types

Each handler is a struct with database and config dependencies:

  - PollHandler: Listings, columns, hot polls, city pages, content management
  - VotingHandler: Votes and views, including the RPC style endpoints
  - ResultsHandler: Percentages and the live results websocket
  - AnalyticsHandler: Aggregates, stat cards, facts and ranked listings
  - EmbedHandler: iframe widgets and embed codes
  - TrafficHandler: Road conditions near an event
  - LeadHandler: Quote requests

Handlers are created via constructor functions that accept *sql.DB and Config:

	pollHandler := handlers.NewPollHandler(db, cfg)

# Content Management

Categories, polls and options are created by staff:

	POST /categories         → CreateCategory
	POST /polls              → CreatePoll (question plus at least two options)
	POST /polls/{id}/options → AddOption (optionally the correct trivia answer)

These require the X-Admin-Key header.

# Voting Flow

Anyone may vote once per poll:

	POST /voter-tokens     → IssueVoterToken (one per browser)
	POST /polls/{id}/votes → CastVote (returns fresh results)
	POST /polls/{id}/views → RecordView

A vote is logged and counted in one transaction. Voters are told apart by
the X-Voter-Token header when present, otherwise by client address and
user agent. A second vote on the same poll is 409 Conflict. After commit
the results go to the Publisher, which fans them out to websocket
watchers.

# Results

Options are sorted by votes with ties in display order. Percentages are
rounded and the leading option is flagged as top once it has votes.

# Analytics

Analytics and ranked listings share one snapshot of polls and the vote
log. The snapshot and the values derived from it are cached for the
configured TTL, and fall back to fixed figures when a value comes
out zero or the database is unavailable.
*/
package handlers
