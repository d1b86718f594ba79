// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides admin key checks and voter fingerprinting.

# Admin Key

Content management endpoints (creating categories, polls and options)
require the X-Admin-Key header to match the configured key:

	err := auth.ValidateAdminKey(r.Header.Get("X-Admin-Key"), cfg.AdminKey)

The comparison is constant time.

# Voter Tokens

POST /voter-tokens mints a random 24-byte token. Embed widgets fetch one
per browser, keep it in local storage and send it with every vote:

	token, err := auth.GenerateVoterToken()

ValidateVoterToken rejects malformed tokens from the header.

# Voter Hashing

VoterHash produces the fingerprint stored with each vote. The
(poll_id, voter_hash) pair is unique, which stops double submission:

	hash := auth.VoterHash(token, clientIP, userAgent, cfg.VoterSalt)

With a token the hash depends on the token only. Without one it is an
HMAC of the client IP and user agent. Returns a two-character prefix plus
the first 8 bytes (16 hex chars) of HMAC-SHA256.
*/
package auth
