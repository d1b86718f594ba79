// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package traffic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

var (
	ErrNoAPIKey   = errors.New("traffic API key not configured")
	ErrNoFlowData = errors.New("no flow data for location")
)

const DefaultBaseURL = "https://api.tomtom.com/traffic/services/4/flowSegmentData/absolute/10/json"

// Labels
const (
	LabelLight    = "Light"
	LabelModerate = "Moderate"
	LabelHeavy    = "Heavy"
)

// Report describes road conditions near a point. Live is false for the
// fallback report, which only carries links and tips.
type Report struct {
	Live          bool     `json:"live"`
	Label         string   `json:"label,omitempty"`
	CurrentSpeed  float64  `json:"current_speed,omitempty"`
	FreeFlowSpeed float64  `json:"free_flow_speed,omitempty"`
	Efficiency    int      `json:"efficiency,omitempty"`
	Advisory      string   `json:"advisory"`
	Region        string   `json:"region"`
	Link          string   `json:"link,omitempty"`
	LinkLabel     string   `json:"link_label,omitempty"`
	Tips          []string `json:"tips,omitempty"`
}

// Client queries the TomTom flow segment API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:  apiKey,
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// WithBaseURL points the client at another endpoint.
func (c *Client) WithBaseURL(u string) *Client {
	c.baseURL = u
	return c
}

type flowResponse struct {
	FlowSegmentData struct {
		CurrentSpeed  float64 `json:"currentSpeed"`
		FreeFlowSpeed float64 `json:"freeFlowSpeed"`
		RoadClosure   bool    `json:"roadClosure"`
	} `json:"flowSegmentData"`
}

// Flow fetches current and free-flow speeds (mph) for the road segment
// closest to lat,lon.
func (c *Client) Flow(ctx context.Context, lat, lon float64) (current, freeFlow float64, err error) {
	if c.apiKey == "" {
		return 0, 0, ErrNoAPIKey
	}

	q := url.Values{}
	q.Set("point", strconv.FormatFloat(lat, 'f', -1, 64)+","+strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("unit", "MPH")
	q.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build traffic request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("traffic request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("traffic API returned %s", resp.Status)
	}

	var body flowResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, 0, fmt.Errorf("failed to decode traffic response: %w", err)
	}

	seg := body.FlowSegmentData
	if seg.CurrentSpeed <= 0 || seg.FreeFlowSpeed <= 0 {
		return 0, 0, ErrNoFlowData
	}
	return seg.CurrentSpeed, seg.FreeFlowSpeed, nil
}

// Efficiency is current speed as a percentage of free-flow speed, capped at 100.
func Efficiency(current, freeFlow float64) int {
	if freeFlow <= 0 {
		return 0
	}
	return int(math.Min(math.Round(current/freeFlow*100), 100))
}

func Label(efficiency int) string {
	switch {
	case efficiency >= 75:
		return LabelLight
	case efficiency >= 50:
		return LabelModerate
	default:
		return LabelHeavy
	}
}

func Advisory(efficiency int) string {
	switch {
	case efficiency >= 90:
		return "Roads are clear. Great time to drive."
	case efficiency >= 60:
		return "Expect minor delays on major routes."
	default:
		return "Significant congestion detected."
	}
}

// LiveReport builds a report from measured speeds.
func LiveReport(current, freeFlow float64, stateName string) Report {
	eff := Efficiency(current, freeFlow)
	return Report{
		Live:          true,
		Label:         Label(eff),
		CurrentSpeed:  math.Round(current),
		FreeFlowSpeed: math.Round(freeFlow),
		Efficiency:    eff,
		Advisory:      Advisory(eff),
		Region:        region(stateName),
	}
}

// Fallback is shown when live data is unavailable. It points at the
// state's 511 traveler information system.
func Fallback(stateSlug, stateName string) Report {
	r := Report{
		Advisory: "For real-time road conditions, construction updates, and traffic alerts, check your state's 511 system.",
		Region:   region(stateName),
		Tips: []string{
			"Allow extra time during peak hours (7-9 AM, 4-6 PM) and check weather forecasts before your event.",
		},
	}
	if validStateSlug(stateSlug) {
		r.Link = "https://511." + stateSlug + ".gov"
		r.LinkLabel = "Check live " + stateName + " 511"
	}
	return r
}

// validStateSlug accepts lowercase words joined by single dashes, the shape
// of every 511 host name.
func validStateSlug(s string) bool {
	if s == "" || s[0] == '-' || s[len(s)-1] == '-' || strings.Contains(s, "--") {
		return false
	}
	for _, c := range s {
		if (c < 'a' || c > 'z') && c != '-' {
			return false
		}
	}
	return true
}

func region(stateName string) string {
	if stateName == "" {
		return "Local roads and highways"
	}
	return stateName + " highways and major routes"
}

// Conditions returns a live report when possible and the fallback otherwise.
// The error explains why the fallback was used; the report is always usable.
func (c *Client) Conditions(ctx context.Context, lat, lon float64, stateSlug, stateName string) (Report, error) {
	current, freeFlow, err := c.Flow(ctx, lat, lon)
	if err != nil {
		return Fallback(stateSlug, stateName), err
	}
	return LiveReport(current, freeFlow, stateName), nil
}
