// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

  - CreateCategoryRequest: slug, name
  - CreatePollRequest: question, category_slug, location, options
  - AddOptionRequest: label, correct
  - CastVoteRequest: option_id
  - IncrementVoteRPC / IncrementViewRPC: p_option_id / p_poll_id
  - CreateLeadRequest: source, page, contact details, event details

# Response Types

  - CreatePollResponse, AddOptionResponse, CreateLeadResponse
  - CastVoteResponse: the updated results after a vote
  - PollListResponse, PollColumnsResponse, LocationPollsResponse
  - FilteredPollsResponse: polls ranked by an analytics filter
  - EmbedCodeResponse: iframe snippet for a live poll or results widget
  - ErrorResponse: error, message

# Domain Types

  - Poll: question, category, optional location, view counter
  - Option: label, display order and denormalized vote counter
  - PollWithOptions: poll plus ordered options and total votes
  - PollResults: options sorted by votes with integer percentages
  - Category, Lead

Analytics payloads live in the analytics package.
*/
package models
