// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/bus2ride/livepolls/auth"
	"github.com/bus2ride/livepolls/cliparse"
	"github.com/bus2ride/livepolls/db"
	"github.com/google/uuid"
)

// TestAdminKey is the admin key in GetTestConfig
const TestAdminKey = "test-admin-key"

// SetupTestDB creates a fresh file-backed SQLite database with the full schema.
// The file lives in t.TempDir and is removed with it.
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "livepolls.db")
	conn, err := db.Open("sqlite", "file:"+path+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	if err := db.CreateSchema(conn); err != nil {
		conn.Close()
		t.Fatalf("Failed to create schema: %v", err)
	}

	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "file::memory:",
		DatabaseType: "sqlite",
		AdminKey:     TestAdminKey,
		VoterSalt:    "test-voter-salt",
		SiteOrigin:   "https://example.test",
		AnalyticsTTL: time.Minute,
	}
}

// CreateTestCategory inserts a category
func CreateTestCategory(t *testing.T, conn *sql.DB, slug, name string) {
	t.Helper()

	_, err := conn.Exec(`INSERT INTO poll_category (slug, name) VALUES ($1, $2)`, slug, name)
	if err != nil {
		t.Fatalf("Failed to create test category: %v", err)
	}
}

// CreateTestPoll creates a poll and returns its ID.
// category may be empty for an uncategorized poll.
func CreateTestPoll(t *testing.T, conn *sql.DB, question, category string) string {
	t.Helper()
	return CreateTestPollAt(t, conn, question, category, time.Now().UTC())
}

// CreateTestPollAt creates a poll with an explicit creation time
func CreateTestPollAt(t *testing.T, conn *sql.DB, question, category string, createdAt time.Time) string {
	t.Helper()

	var slug *string
	if category != "" {
		slug = &category
	}

	pollID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll (id, question, category_slug, view_count, created_at)
		VALUES ($1, $2, $3, 0, $4)
	`, pollID, question, slug, createdAt.UTC())
	if err != nil {
		t.Fatalf("Failed to create test poll: %v", err)
	}

	return pollID
}

// AddTestOption adds an option with a starting vote count and returns the option ID
func AddTestOption(t *testing.T, conn *sql.DB, pollID, label string, votes int) string {
	t.Helper()

	var ord int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM poll_option WHERE poll_id = $1`, pollID).Scan(&ord); err != nil {
		t.Fatalf("Failed to count options: %v", err)
	}

	optionID := uuid.NewString()
	_, err := conn.Exec(`
		INSERT INTO poll_option (id, poll_id, label, ord, vote_count, is_correct)
		VALUES ($1, $2, $3, $4, $5, FALSE)
	`, optionID, pollID, label, ord, votes)
	if err != nil {
		t.Fatalf("Failed to create test option: %v", err)
	}

	return optionID
}

// MarkTestCorrect flags an option as the right trivia answer
func MarkTestCorrect(t *testing.T, conn *sql.DB, optionID string) {
	t.Helper()

	if _, err := conn.Exec(`UPDATE poll_option SET is_correct = TRUE WHERE id = $1`, optionID); err != nil {
		t.Fatalf("Failed to mark option correct: %v", err)
	}
}

// CastTestVote records a vote the way the vote endpoint does: one log row
// plus a counter increment. voter distinguishes fingerprints.
func CastTestVote(t *testing.T, conn *sql.DB, pollID, optionID, voter string, at time.Time) {
	t.Helper()

	hash := auth.VoterHash(voter, "", "", "test-voter-salt")
	if _, err := conn.Exec(`
		INSERT INTO poll_vote (id, poll_id, option_id, voter_hash, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), pollID, optionID, hash, at.UTC()); err != nil {
		t.Fatalf("Failed to insert test vote: %v", err)
	}
	if _, err := conn.Exec(`UPDATE poll_option SET vote_count = vote_count + 1 WHERE id = $1`, optionID); err != nil {
		t.Fatalf("Failed to increment test vote: %v", err)
	}
}

// VoteCount reads an option's counter
func VoteCount(t *testing.T, conn *sql.DB, optionID string) int64 {
	t.Helper()

	var n int64
	if err := conn.QueryRow(`SELECT vote_count FROM poll_option WHERE id = $1`, optionID).Scan(&n); err != nil {
		t.Fatalf("Failed to read vote count: %v", err)
	}
	return n
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AdminHeaders returns headers carrying the test admin key
func AdminHeaders() map[string]string {
	return map[string]string{"X-Admin-Key": TestAdminKey}
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
