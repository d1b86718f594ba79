// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/bus2ride/livepolls/locations"
	"github.com/bus2ride/livepolls/middleware"
	"github.com/bus2ride/livepolls/traffic"
)

type TrafficHandler struct {
	client *traffic.Client
}

func NewTrafficHandler(client *traffic.Client) *TrafficHandler {
	return &TrafficHandler{client: client}
}

// Conditions handles GET /traffic
func (h *TrafficHandler) Conditions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "lat must be a latitude")
		return
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "lon must be a longitude")
		return
	}

	// The slug ends up in a 511 link, so only known states are accepted
	stateSlug := q.Get("state")
	stateName := q.Get("state_name")
	if stateSlug != "" {
		known := ""
		for _, s := range locations.All() {
			if s.Slug == stateSlug {
				known = s.State
				break
			}
		}
		if known == "" {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Unknown state")
			return
		}
		if stateName == "" {
			stateName = known
		}
	}

	report, err := h.client.Conditions(r.Context(), lat, lon, stateSlug, stateName)
	if err != nil && !errors.Is(err, traffic.ErrNoAPIKey) {
		slog.Warn("live traffic unavailable, serving fallback", "error", err, "state", stateSlug)
	}

	middleware.JSONResponse(w, http.StatusOK, report)
}
