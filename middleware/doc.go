// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

One line per request with method, path, status, client and duration_ms.
Server errors log at error level. The wrapped writer still hijacks, so the
live results websocket can sit behind it.

# CORS Middleware

	server := http.Server{
		Handler: middleware.CORS(cfg.SiteOrigin, mux),
	}

The site origin is echoed back with credentials and may send X-Admin-Key.
Any other origin, such as a venue page hosting a widget, gets * without
credentials and only Content-Type and X-Voter-Token.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies (capped at 64 KiB):

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Client IP Extraction

Get the original client IP (handles X-Forwarded-For, X-Real-IP):

	ip := middleware.GetClientIP(r)

Used for voter fingerprints when no X-Voter-Token is sent.

# Embeddable Responses

Embed pages must render inside iframes on other sites:

	mux.HandleFunc("GET /embed/polls/{id}", middleware.AllowFraming(handler))

Sets Content-Security-Policy: frame-ancestors * and drops X-Frame-Options.
*/
package middleware
