// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bus2ride/livepolls/live"
	"github.com/bus2ride/livepolls/models"
	"github.com/bus2ride/livepolls/testutil"
	"github.com/gorilla/websocket"
)

func TestComputeResults(t *testing.T) {
	tests := []struct {
		name         string
		votes        []int64
		wantOrder    []string
		wantPercents []int
		wantTop      bool
	}{
		{
			name:         "sorted by votes",
			votes:        []int64{1, 6, 3},
			wantOrder:    []string{"o1", "o0", "o2"},
			wantPercents: []int{60, 10, 30},
			wantTop:      true,
		},
		{
			name:         "thirds round",
			votes:        []int64{1, 1, 1},
			wantOrder:    []string{"o0", "o1", "o2"},
			wantPercents: []int{33, 33, 33},
			wantTop:      true,
		},
		{
			name:         "no votes",
			votes:        []int64{0, 0},
			wantOrder:    []string{"o0", "o1"},
			wantPercents: []int{0, 0},
			wantTop:      false,
		},
		{
			name:         "two thirds",
			votes:        []int64{1, 2},
			wantOrder:    []string{"o1", "o0"},
			wantPercents: []int{67, 33},
			wantTop:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := models.PollWithOptions{Poll: models.Poll{ID: "p", Question: "Q?"}}
			for i, v := range tt.votes {
				id := "o" + string(rune('0'+i))
				p.Options = append(p.Options, models.Option{ID: id, Label: id, Ord: i, VoteCount: v})
			}

			res := computeResults(p)

			for i, o := range res.Options {
				if o.OptionID != tt.wantOrder[i] {
					t.Errorf("Position %d: expected %s, got %s", i, tt.wantOrder[i], o.OptionID)
				}
				if o.Percent != tt.wantPercents[i] {
					t.Errorf("Position %d: expected %d%%, got %d%%", i, tt.wantPercents[i], o.Percent)
				}
				if i > 0 && o.Top {
					t.Errorf("Only the leading option may be top, got %s", o.OptionID)
				}
			}
			if res.Options[0].Top != tt.wantTop {
				t.Errorf("Expected top %v, got %v", tt.wantTop, res.Options[0].Top)
			}
		})
	}
}

func TestGetResults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "How many passengers?", "")
	testutil.AddTestOption(t, db, pollID, "Under 10", 5)
	testutil.AddTestOption(t, db, pollID, "10 to 20", 15)
	empty := testutil.CreateTestPoll(t, db, "Brand new question?", "")
	testutil.AddTestOption(t, db, empty, "Yes", 0)

	handler := NewResultsHandler(db, testutil.GetTestConfig(), nil)

	t.Run("with votes", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetResults(w, request("GET", "/polls/"+pollID+"/results", nil, nil, map[string]string{"id": pollID}))
		testutil.AssertStatus(t, w, http.StatusOK)

		var res models.PollResults
		testutil.AssertJSON(t, w, &res)

		if res.TotalVotes != 20 || res.Question != "How many passengers?" {
			t.Errorf("Unexpected results: %+v", res)
		}
		if res.Options[0].Label != "10 to 20" || res.Options[0].Percent != 75 || !res.Options[0].Top {
			t.Errorf("Unexpected leader: %+v", res.Options[0])
		}
		if res.Options[1].Percent != 25 {
			t.Errorf("Expected 25%%, got %d%%", res.Options[1].Percent)
		}
	})

	t.Run("no votes yet", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetResults(w, request("GET", "/polls/"+empty+"/results", nil, nil, map[string]string{"id": empty}))
		testutil.AssertStatus(t, w, http.StatusOK)

		var res models.PollResults
		testutil.AssertJSON(t, w, &res)
		if res.TotalVotes != 0 || res.Options[0].Top || res.Options[0].Percent != 0 {
			t.Errorf("Unexpected results: %+v", res)
		}
	})

	t.Run("unknown poll", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.GetResults(w, request("GET", "/polls/nope/results", nil, nil, map[string]string{"id": "nope"}))
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestLiveResults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	t.Run("disabled", func(t *testing.T) {
		handler := NewResultsHandler(db, testutil.GetTestConfig(), nil)
		w := httptest.NewRecorder()
		handler.Live(w, request("GET", "/polls/x/live", nil, nil, map[string]string{"id": "x"}))
		testutil.AssertStatus(t, w, http.StatusServiceUnavailable)
	})

	t.Run("unknown poll", func(t *testing.T) {
		hub := live.NewHub()
		defer hub.Close()

		handler := NewResultsHandler(db, testutil.GetTestConfig(), hub)
		w := httptest.NewRecorder()
		handler.Live(w, request("GET", "/polls/nope/live", nil, nil, map[string]string{"id": "nope"}))
		testutil.AssertStatus(t, w, http.StatusNotFound)
	})
}

func TestLiveResults_VoteReachesWatcher(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	pollID := testutil.CreateTestPoll(t, db, "Limo or party bus?", "")
	limo := testutil.AddTestOption(t, db, pollID, "Limo", 0)
	testutil.AddTestOption(t, db, pollID, "Party bus", 0)
	other := testutil.CreateTestPoll(t, db, "Pickup time?", "")
	early := testutil.AddTestOption(t, db, other, "Early", 0)

	hub := live.NewHub()
	defer hub.Close()

	cfg := testutil.GetTestConfig()
	results := NewResultsHandler(db, cfg, hub)
	voting := NewVotingHandler(db, cfg, hub)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /polls/{id}/live", results.Live)
	server := httptest.NewServer(mux)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/polls/" + pollID + "/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()

	// The watcher registers after the upgrade, so keep voting until it hears
	// something. Votes on the other poll must never reach it.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(30 * time.Millisecond)
		defer ticker.Stop()
		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ticker.C:
			}
			w := httptest.NewRecorder()
			voting.CastVote(w, request("POST", "/polls/"+other+"/votes",
				models.CastVoteRequest{OptionID: early}, voter(2*i), map[string]string{"id": other}))
			w = httptest.NewRecorder()
			voting.CastVote(w, request("POST", "/polls/"+pollID+"/votes",
				models.CastVoteRequest{OptionID: limo}, voter(2*i+1), map[string]string{"id": pollID}))
		}
	}()
	defer wg.Wait()
	defer close(done)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}

	var got models.PollResults
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("invalid message: %v", err)
	}
	if got.PollID != pollID {
		t.Fatalf("Expected results for %s, got %s", pollID, got.PollID)
	}
	if got.TotalVotes < 1 || len(got.Options) != 2 {
		t.Fatalf("Unexpected results: %+v", got)
	}
	if got.Options[0].OptionID != limo || !got.Options[0].Top {
		t.Errorf("Expected Limo on top, got %+v", got.Options[0])
	}
}
