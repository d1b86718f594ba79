// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"errors"
	"strings"
	"testing"
)

func TestValidateAdminKey(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		expected string
		wantErr  bool
	}{
		{"matching key", "secret-admin", "secret-admin", false},
		{"wrong key", "guess", "secret-admin", true},
		{"empty provided", "", "secret-admin", true},
		{"empty expected", "secret-admin", "", true},
		{"both empty", "", "", true},
		{"prefix only", "secret", "secret-admin", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateAdminKey(tt.provided, tt.expected)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAdminKey) {
					t.Errorf("ValidateAdminKey() error = %v, want ErrInvalidAdminKey", err)
				}
				return
			}
			if err != nil {
				t.Errorf("ValidateAdminKey() unexpected error = %v", err)
			}
		})
	}
}

func TestGenerateVoterToken(t *testing.T) {
	token, err := GenerateVoterToken()
	if err != nil {
		t.Fatalf("GenerateVoterToken() error = %v", err)
	}

	// 24 bytes base64 encoded = 32 characters (without padding)
	if len(token) != 32 {
		t.Errorf("GenerateVoterToken() length = %d, want 32", len(token))
	}

	if strings.Contains(token, "=") {
		t.Error("GenerateVoterToken() contains padding")
	}

	if err := ValidateVoterToken(token); err != nil {
		t.Errorf("generated token failed validation: %v", err)
	}

	// Test randomness
	token2, _ := GenerateVoterToken()
	if token == token2 {
		t.Error("GenerateVoterToken() produced duplicate tokens (extremely unlikely)")
	}
}

func TestValidateVoterToken(t *testing.T) {
	tests := []struct {
		name    string
		token   string
		wantErr bool
	}{
		{"uuid-like", "3f2b9c1e-8d4a-4b7e-9f10-2c3d4e5f6a7b", false},
		{"base64url", "abcDEF123_-abcDEF123_-", false},
		{"too short", "abc", true},
		{"too long", strings.Repeat("a", 129), true},
		{"bad characters", "abc def ghi jkl mno", true},
		{"html", "<script>alert(1)</script>", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateVoterToken(tt.token)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateVoterToken(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
		})
	}
}

func TestVoterHash(t *testing.T) {
	salt := "test-salt"

	byToken := VoterHash("token-abc", "10.0.0.1", "Mozilla", salt)
	if !strings.HasPrefix(byToken, "t:") {
		t.Errorf("token hash should be prefixed t:, got %s", byToken)
	}

	// Token wins regardless of address
	if VoterHash("token-abc", "10.0.0.2", "Safari", salt) != byToken {
		t.Error("token hash should not depend on ip or user agent")
	}

	byAddr := VoterHash("", "10.0.0.1", "Mozilla", salt)
	if !strings.HasPrefix(byAddr, "a:") {
		t.Errorf("address hash should be prefixed a:, got %s", byAddr)
	}
	if VoterHash("", "10.0.0.1", "Mozilla", salt) != byAddr {
		t.Error("VoterHash() is not deterministic")
	}
	if VoterHash("", "10.0.0.2", "Mozilla", salt) == byAddr {
		t.Error("different IPs should hash differently")
	}
	if VoterHash("", "10.0.0.1", "Safari", salt) == byAddr {
		t.Error("different user agents should hash differently")
	}
	if VoterHash("", "10.0.0.1", "Mozilla", "other-salt") == byAddr {
		t.Error("different salts should hash differently")
	}

	// prefix + 16 hex chars
	if len(byAddr) != 18 {
		t.Errorf("VoterHash() length = %d, want 18", len(byAddr))
	}
}
