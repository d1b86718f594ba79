// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bus2ride/livepolls/models"
	"github.com/bus2ride/livepolls/testutil"
)

func TestCreateLead(t *testing.T) {
	db := testutil.SetupTestDB(t)
	defer db.Close()

	handler := NewLeadHandler(db, testutil.GetTestConfig())

	tests := []struct {
		name           string
		body           interface{}
		headers        map[string]string
		expectedStatus int
		expectedSource string
		expectedPage   string
	}{
		{
			name:           "email with referer",
			body:           models.CreateLeadRequest{Name: "Sam", Email: "sam@example.com", Passengers: 18},
			headers:        map[string]string{"Referer": "https://bus2ride.com/polls/chicago?x=1"},
			expectedStatus: http.StatusCreated,
			expectedSource: "Website",
			expectedPage:   "/polls/chicago",
		},
		{
			name:           "phone only with source",
			body:           models.CreateLeadRequest{Source: "Poll Widget", Page: "/embed", Phone: "(312) 555-0199"},
			expectedStatus: http.StatusCreated,
			expectedSource: "Poll Widget",
			expectedPage:   "/embed",
		},
		{
			name:           "no referer",
			body:           models.CreateLeadRequest{Email: "kim@example.com"},
			expectedStatus: http.StatusCreated,
			expectedSource: "Website",
			expectedPage:   "/",
		},
		{name: "no contact", body: models.CreateLeadRequest{Name: "Sam"}, expectedStatus: http.StatusBadRequest},
		{name: "bad email", body: models.CreateLeadRequest{Email: "not-an-email"}, expectedStatus: http.StatusBadRequest},
		{name: "short phone", body: models.CreateLeadRequest{Phone: "555"}, expectedStatus: http.StatusBadRequest},
		{name: "negative passengers", body: models.CreateLeadRequest{Email: "a@example.com", Passengers: -1}, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.CreateLead(w, request("POST", "/leads", tt.body, tt.headers, nil))
			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedStatus != http.StatusCreated {
				return
			}

			var resp models.CreateLeadResponse
			testutil.AssertJSON(t, w, &resp)

			var source, page string
			var email sql.NullString
			if err := db.QueryRow(`SELECT source, page, email FROM lead WHERE id = $1`, resp.LeadID).Scan(&source, &page, &email); err != nil {
				t.Fatalf("Failed to query lead: %v", err)
			}
			if source != tt.expectedSource || page != tt.expectedPage {
				t.Errorf("Expected %s %s, got %s %s", tt.expectedSource, tt.expectedPage, source, page)
			}

			req := tt.body.(models.CreateLeadRequest)
			if email.Valid != (req.Email != "") {
				t.Errorf("Expected empty email to be stored as NULL, got %+v", email)
			}
		})
	}

	t.Run("invalid JSON", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.CreateLead(w, rawRequest("POST", "/leads", "{", nil))
		testutil.AssertStatus(t, w, http.StatusBadRequest)
	})
}
