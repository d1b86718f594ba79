// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package locations

import (
	_ "embed"
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

//go:embed locations.json
var locationsJSON []byte

type State struct {
	State  string   `json:"state"`
	Slug   string   `json:"slug"`
	Cities []string `json:"cities"`
}

// City is a served city with its state.
type City struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	StateSlug string `json:"state_slug"`
}

var (
	states []State
	cities []string // lowercased
)

func init() {
	if err := json.Unmarshal(locationsJSON, &states); err != nil {
		panic("locations: invalid embedded locations.json: " + err.Error())
	}
	for _, s := range states {
		for _, c := range s.Cities {
			cities = append(cities, strings.ToLower(c))
		}
	}
}

// All returns every served state with its cities.
func All() []State {
	out := make([]State, len(states))
	copy(out, states)
	return out
}

// Count is the number of served cities.
func Count() int {
	return len(cities)
}

// MentionsCity reports whether text names any served city.
func MentionsCity(text string) bool {
	lower := strings.ToLower(text)
	for _, c := range cities {
		if strings.Contains(lower, c) {
			return true
		}
	}
	return false
}

// Find looks a city up by name or slug ("san-antonio"), case-insensitively.
func Find(name string) (City, bool) {
	want := normalize(name)
	for _, s := range states {
		for _, c := range s.Cities {
			if normalize(c) == want {
				return City{Name: c, State: s.State, StateSlug: s.Slug}, true
			}
		}
	}
	return City{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", " "))
}

var categoryTitles = map[string]string{
	"party-bus":                "Party Buses",
	"coach-bus":                "Coach Buses",
	"limo":                     "Limousines",
	"party-van":                "Party Vans",
	"events":                   "Events",
	"pricing":                  "Pricing",
	"booking-experience":       "Booking Experience",
	"booking-lead-times":       "Booking Lead Times",
	"alcohol-policy":           "Alcohol Policy",
	"airport-procedures":       "Airport Procedures",
	"weddings":                 "Weddings",
	"concerts":                 "Concerts",
	"prom":                     "Prom",
	"sporting-events":          "Sporting Events",
	"bachelor-parties":         "Bachelor Parties",
	"bachelorette-parties":     "Bachelorette Parties",
	"birthday-parties":         "Birthday Parties",
	"accessibility-experience": "Accessibility",
	"audio":                    "Audio",
	"bar-area":                 "Bar Area",
	"wrap-around-seating":      "Wrap-Around Seating",
}

var acronyms = map[string]string{
	"suv":  "SUV",
	"ada":  "ADA",
	"byob": "BYOB",
}

// Humanize turns a category slug into a display title.
func Humanize(slug string) string {
	raw := strings.TrimSpace(slug)
	if raw == "" {
		return ""
	}
	if title, ok := categoryTitles[raw]; ok {
		return title
	}

	var parts []string
	for _, part := range strings.Split(raw, "-") {
		if part == "" {
			continue
		}
		lower := strings.ToLower(part)
		if a, ok := acronyms[lower]; ok {
			parts = append(parts, a)
			continue
		}
		first, size := utf8.DecodeRuneInString(lower)
		parts = append(parts, string(unicode.ToUpper(first))+lower[size:])
	}
	return strings.Join(parts, " ")
}
