// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the live polls API.

# Route Registration

NewRouter creates a configured http.ServeMux with all endpoints:

	mux := router.NewRouter(db, cfg, router.Services{Cache: c, Live: hub})

# Endpoints

Health:

	GET /health

Browsing (public):

	GET /polls                   - Polls by votes (category, limit, hide_cities)
	GET /polls/columns           - Up to three category columns
	GET /polls/hot               - Top 8 of the 100 newest polls
	GET /polls/analytics         - Ranked polls (filter, limit)
	GET /polls/{id}              - Poll with options
	GET /categories              - Categories with display titles
	GET /locations/{city}/polls  - City polls, general polls as fallback

Content management (admin, requires X-Admin-Key):

	POST /categories         - Create category
	POST /polls              - Create poll with options
	POST /polls/{id}/options - Add option

Voting (public):

	POST /voter-tokens              - Issue a browser voter token
	POST /polls/{id}/votes          - Record a vote, returns fresh results
	POST /polls/{id}/views          - Count a view
	POST /rpc/increment_poll_vote1  - Vote by option ID
	POST /rpc/increment_poll_view   - View by poll ID

Results and embeds:

	GET /polls/{id}/results          - Percentages, top option flagged
	GET /polls/{id}/live             - Websocket pushing results after votes
	GET /polls/{id}/embed-code       - iframe snippet (type=live|results)
	GET /embed/polls/{id}            - Live poll widget
	GET /embed/polls/{id}/results    - Results widget

Analytics:

	GET /analytics        - Aggregates with fallbacks
	GET /analytics/stats  - Stat cards
	GET /analytics/live   - Live stat strip
	GET /analytics/facts  - Headline facts

Site helpers:

	GET  /traffic - Road conditions near an event
	POST /leads   - Quote request

Embed pages are served with frame-ancestors * so any site can iframe them.
*/
package router
