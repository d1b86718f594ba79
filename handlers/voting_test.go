// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/bus2ride/livepolls/auth"
	"github.com/bus2ride/livepolls/models"
	"github.com/bus2ride/livepolls/testutil"
)

// recorder collects published results
type recorder struct {
	mu        sync.Mutex
	published []models.PollResults
	err       error
}

func (r *recorder) Publish(results models.PollResults) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, results)
	return r.err
}

func TestCastVote(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Party bus or limo for prom?", "")
	busID := testutil.AddTestOption(t, db, pollID, "Party bus", 3)
	limoID := testutil.AddTestOption(t, db, pollID, "Limo", 1)

	otherPoll := testutil.CreateTestPoll(t, db, "Best snack on board?", "")
	foreignID := testutil.AddTestOption(t, db, otherPoll, "Chips", 0)

	pub := &recorder{}
	handler := NewVotingHandler(db, testutil.GetTestConfig(), pub)

	tests := []struct {
		name           string
		pollID         string
		body           interface{}
		headers        map[string]string
		expectedStatus int
	}{
		{"valid vote", pollID, models.CastVoteRequest{OptionID: limoID}, voter(1), http.StatusCreated},
		{"same voter again", pollID, models.CastVoteRequest{OptionID: busID}, voter(1), http.StatusConflict},
		{"second voter", pollID, models.CastVoteRequest{OptionID: limoID}, voter(2), http.StatusCreated},
		{"option from another poll", pollID, models.CastVoteRequest{OptionID: foreignID}, voter(3), http.StatusBadRequest},
		{"unknown option", pollID, models.CastVoteRequest{OptionID: "nope"}, voter(3), http.StatusNotFound},
		{"unknown poll", "nope", models.CastVoteRequest{OptionID: limoID}, voter(3), http.StatusNotFound},
		{"missing option", pollID, models.CastVoteRequest{}, voter(3), http.StatusBadRequest},
		{"invalid token", pollID, models.CastVoteRequest{OptionID: limoID}, map[string]string{"X-Voter-Token": "short"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.CastVote(w, request("POST", "/polls/"+tt.pollID+"/votes", tt.body, tt.headers, map[string]string{"id": tt.pollID}))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	if got := testutil.VoteCount(t, db, limoID); got != 3 {
		t.Errorf("Expected limo count 3, got %d", got)
	}
	if got := testutil.VoteCount(t, db, busID); got != 3 {
		t.Errorf("Expected party bus count 3, got %d", got)
	}
	if got := testutil.VoteCount(t, db, foreignID); got != 0 {
		t.Errorf("Expected foreign option untouched, got %d", got)
	}

	var logged int
	if err := db.QueryRow(`SELECT COUNT(*) FROM poll_vote WHERE poll_id = $1`, pollID).Scan(&logged); err != nil {
		t.Fatalf("Failed to count votes: %v", err)
	}
	if logged != 2 {
		t.Errorf("Expected 2 logged votes, got %d", logged)
	}

	if len(pub.published) != 2 {
		t.Fatalf("Expected 2 published results, got %d", len(pub.published))
	}
	if pub.published[1].TotalVotes != 6 {
		t.Errorf("Expected published total 6, got %d", pub.published[1].TotalVotes)
	}
}

func TestCastVote_ReturnsResults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Window seat or aisle?", "")
	testutil.AddTestOption(t, db, pollID, "Window", 2)
	aisle := testutil.AddTestOption(t, db, pollID, "Aisle", 1)

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	w := httptest.NewRecorder()
	handler.CastVote(w, request("POST", "/polls/"+pollID+"/votes",
		models.CastVoteRequest{OptionID: aisle}, voter(1), map[string]string{"id": pollID}))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var resp models.CastVoteResponse
	testutil.AssertJSON(t, w, &resp)

	if resp.PollID != pollID || resp.OptionID != aisle {
		t.Errorf("Unexpected response ids: %+v", resp)
	}
	if resp.Results.TotalVotes != 4 {
		t.Errorf("Expected 4 total votes, got %d", resp.Results.TotalVotes)
	}
	// Window and Aisle tie at 2, display order breaks the tie
	if len(resp.Results.Options) != 2 || resp.Results.Options[0].Label != "Window" {
		t.Fatalf("Unexpected results: %+v", resp.Results.Options)
	}
	if resp.Results.Options[1].Votes != 2 || resp.Results.Options[1].Percent != 50 {
		t.Errorf("Expected aisle 2 votes at 50%%, got %+v", resp.Results.Options[1])
	}
}

func TestCastVote_PublishFailureStillRecords(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Pickup time?", "")
	optID := testutil.AddTestOption(t, db, pollID, "Early", 0)
	testutil.AddTestOption(t, db, pollID, "Late", 0)

	pub := &recorder{err: errors.New("hub closed")}
	handler := NewVotingHandler(db, testutil.GetTestConfig(), pub)

	w := httptest.NewRecorder()
	handler.CastVote(w, request("POST", "/polls/"+pollID+"/votes",
		models.CastVoteRequest{OptionID: optID}, voter(1), map[string]string{"id": pollID}))
	testutil.AssertStatus(t, w, http.StatusCreated)

	if got := testutil.VoteCount(t, db, optID); got != 1 {
		t.Errorf("Expected 1 vote, got %d", got)
	}
}

func TestCastVote_FallsBackToClientAddress(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Glow lights?", "")
	optID := testutil.AddTestOption(t, db, pollID, "Yes", 0)

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	vote := func(ip string) int {
		req := request("POST", "/polls/"+pollID+"/votes",
			models.CastVoteRequest{OptionID: optID}, map[string]string{"X-Forwarded-For": ip}, map[string]string{"id": pollID})
		w := httptest.NewRecorder()
		handler.CastVote(w, req)
		return w.Code
	}

	if code := vote("203.0.113.7"); code != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", code)
	}
	if code := vote("203.0.113.7"); code != http.StatusConflict {
		t.Errorf("Expected 409 for the same address, got %d", code)
	}
	if code := vote("203.0.113.8"); code != http.StatusCreated {
		t.Errorf("Expected 201 for another address, got %d", code)
	}
}

func TestIncrementVoteRPC(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Best music genre on a party bus?", "")
	optID := testutil.AddTestOption(t, db, pollID, "Hip hop", 4)

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	tests := []struct {
		name           string
		body           interface{}
		headers        map[string]string
		expectedStatus int
	}{
		{"valid", models.IncrementVoteRPC{OptionID: optID}, voter(1), http.StatusCreated},
		{"duplicate", models.IncrementVoteRPC{OptionID: optID}, voter(1), http.StatusConflict},
		{"unknown option", models.IncrementVoteRPC{OptionID: "nope"}, voter(2), http.StatusNotFound},
		{"missing option", models.IncrementVoteRPC{}, voter(2), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.IncrementVoteRPC(w, request("POST", "/rpc/increment_poll_vote1", tt.body, tt.headers, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)
		})
	}

	if got := testutil.VoteCount(t, db, optID); got != 5 {
		t.Errorf("Expected 5 votes, got %d", got)
	}
}

func TestRecordView(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Favorite limo interior?", "")
	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	for i := 1; i <= 2; i++ {
		w := httptest.NewRecorder()
		handler.RecordView(w, request("POST", "/polls/"+pollID+"/views", nil, nil, map[string]string{"id": pollID}))
		testutil.AssertStatus(t, w, http.StatusOK)

		var resp models.ViewResponse
		testutil.AssertJSON(t, w, &resp)
		if resp.ViewCount != int64(i) {
			t.Errorf("Expected view count %d, got %d", i, resp.ViewCount)
		}
	}

	w := httptest.NewRecorder()
	handler.IncrementViewRPC(w, request("POST", "/rpc/increment_poll_view", models.IncrementViewRPC{PollID: pollID}, nil, nil))
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.ViewResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.ViewCount != 3 {
		t.Errorf("Expected view count 3, got %d", resp.ViewCount)
	}

	t.Run("unknown poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.RecordView(w, request("POST", "/polls/nope/views", nil, nil, map[string]string{"id": "nope"}))
		testutil.AssertStatus(t, w, http.StatusNotFound)

		w = httptest.NewRecorder()
		handler.IncrementViewRPC(w, request("POST", "/rpc/increment_poll_view", models.IncrementViewRPC{PollID: "nope"}, nil, nil))
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})

	t.Run("missing poll id", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.IncrementViewRPC(w, request("POST", "/rpc/increment_poll_view", models.IncrementViewRPC{}, nil, nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}

// TestConcurrentVotes verifies that simultaneous votes from different
// voters are all counted exactly once
func TestConcurrentVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Sunset cruise or city tour?", "")
	optA := testutil.AddTestOption(t, db, pollID, "Cruise", 0)
	optB := testutil.AddTestOption(t, db, pollID, "Tour", 0)

	pub := &recorder{}
	handler := NewVotingHandler(db, testutil.GetTestConfig(), pub)

	numVoters := 20
	var successCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numVoters; i++ {
		wg.Add(1)
		go func(voterIdx int) {
			defer wg.Done()

			opt := optA
			if voterIdx%2 == 1 {
				opt = optB
			}
			w := httptest.NewRecorder()
			handler.CastVote(w, request("POST", "/polls/"+pollID+"/votes",
				models.CastVoteRequest{OptionID: opt}, voter(voterIdx), map[string]string{"id": pollID}))

			if w.Code == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}

	wg.Wait()

	if int(successCount.Load()) != numVoters {
		t.Errorf("Expected %d successful votes, got %d", numVoters, successCount.Load())
	}
	if got := testutil.VoteCount(t, db, optA) + testutil.VoteCount(t, db, optB); got != int64(numVoters) {
		t.Errorf("Expected %d counted votes, got %d", numVoters, got)
	}
	if len(pub.published) != numVoters {
		t.Errorf("Expected %d publishes, got %d", numVoters, len(pub.published))
	}
}

// TestConcurrentDuplicateVotes verifies that one voter racing the same
// vote is only counted once
func TestConcurrentDuplicateVotes(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Red carpet rollout?", "")
	optID := testutil.AddTestOption(t, db, pollID, "Yes", 0)

	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	numAttempts := 5
	var successCount, conflictCount atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < numAttempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			w := httptest.NewRecorder()
			handler.CastVote(w, request("POST", "/polls/"+pollID+"/votes",
				models.CastVoteRequest{OptionID: optID}, voter(42), map[string]string{"id": pollID}))

			switch w.Code {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusConflict:
				conflictCount.Add(1)
			}
		}()
	}

	wg.Wait()

	if successCount.Load() != 1 {
		t.Errorf("Expected exactly 1 success, got %d", successCount.Load())
	}
	if conflictCount.Load() != int32(numAttempts-1) {
		t.Errorf("Expected %d conflicts, got %d", numAttempts-1, conflictCount.Load())
	}
	if got := testutil.VoteCount(t, db, optID); got != 1 {
		t.Errorf("Expected 1 counted vote, got %d", got)
	}
}

func TestIssueVoterToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Red carpet on arrival?", "")
	yes := testutil.AddTestOption(t, db, pollID, "Yes", 0)
	handler := NewVotingHandler(db, testutil.GetTestConfig(), nil)

	issue := func(t *testing.T) string {
		t.Helper()
		w := httptest.NewRecorder()
		handler.IssueVoterToken(w, request("POST", "/voter-tokens", nil, nil, nil))
		testutil.AssertStatus(t, w, http.StatusCreated)
		if cc := w.Header().Get("Cache-Control"); cc != "no-store" {
			t.Errorf("Expected no-store, got %q", cc)
		}
		var resp models.VoterTokenResponse
		testutil.AssertJSON(t, w, &resp)
		if err := auth.ValidateVoterToken(resp.VoterToken); err != nil {
			t.Fatalf("Issued token %q failed validation: %v", resp.VoterToken, err)
		}
		return resp.VoterToken
	}

	first, second := issue(t), issue(t)
	if first == second {
		t.Fatal("Expected distinct tokens")
	}

	vote := func(token string) int {
		w := httptest.NewRecorder()
		handler.CastVote(w, request("POST", "/polls/"+pollID+"/votes", models.CastVoteRequest{OptionID: yes},
			map[string]string{"X-Voter-Token": token}, map[string]string{"id": pollID}))
		return w.Code
	}

	// Each issued token votes once, and both count
	if got := vote(first); got != http.StatusCreated {
		t.Errorf("Expected first token to vote, got %d", got)
	}
	if got := vote(first); got != http.StatusConflict {
		t.Errorf("Expected repeat vote to conflict, got %d", got)
	}
	if got := vote(second); got != http.StatusCreated {
		t.Errorf("Expected second token to vote, got %d", got)
	}
	if n := testutil.VoteCount(t, db, yes); n != 2 {
		t.Errorf("Expected 2 votes, got %d", n)
	}
}
