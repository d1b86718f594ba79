// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidAdminKey = errors.New("invalid admin key")
	ErrInvalidToken    = errors.New("invalid token format")
)

// ValidateAdminKey checks the provided key against the configured one
// in constant time.
func ValidateAdminKey(provided, expected string) error {
	if provided == "" || expected == "" {
		return ErrInvalidAdminKey
	}
	if !hmac.Equal([]byte(provided), []byte(expected)) {
		return ErrInvalidAdminKey
	}
	return nil
}

// GenerateVoterToken creates a random secure token for a browser.
// Widgets keep it in local storage and send it as X-Voter-Token.
func GenerateVoterToken() (string, error) {
	b := make([]byte, 24) // 24 bytes = 192 bits of entropy
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate voter token: %w", err)
	}
	// URL-safe base64 without padding
	return strings.TrimRight(base64.URLEncoding.EncodeToString(b), "="), nil
}

// ValidateVoterToken rejects tokens that could not have come from
// GenerateVoterToken or a similar client-side generator.
func ValidateVoterToken(token string) error {
	if len(token) < 16 || len(token) > 128 {
		return ErrInvalidToken
	}
	for _, c := range token {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return ErrInvalidToken
		}
	}
	return nil
}

// VoterHash derives the fingerprint used to stop a browser voting twice
// on the same poll. An explicit voter token wins; otherwise the client IP
// and user agent are combined.
func VoterHash(token, ip, userAgent, salt string) string {
	if token != "" {
		return "t:" + hmacHex("token|"+token, salt)
	}
	return "a:" + hmacHex("addr|"+ip+"|"+userAgent, salt)
}

// Return first 16 hex chars (64 bits) - enough for deduplication
func hmacHex(value, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(value))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:8])
}
