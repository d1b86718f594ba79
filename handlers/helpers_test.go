// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/bus2ride/livepolls/models"
	"github.com/bus2ride/livepolls/testutil"
)

// request builds a JSON request with path values set, for calling handlers
// directly without the router.
func request(method, target string, body interface{}, headers map[string]string, params map[string]string) *http.Request {
	req := testutil.MakeRequest(method, target, body, headers)
	for k, v := range params {
		req.SetPathValue(k, v)
	}
	return req
}

// rawRequest sends body as-is, for malformed JSON cases.
func rawRequest(method, target, body string, headers map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return req
}

// voter returns headers identifying a distinct browser.
func voter(n int) map[string]string {
	return map[string]string{"X-Voter-Token": fmt.Sprintf("test-voter-%08d", n)}
}

func questions(polls []models.PollWithOptions) []string {
	out := make([]string, len(polls))
	for i, p := range polls {
		out[i] = p.Question
	}
	return out
}
