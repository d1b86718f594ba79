// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/bus2ride/livepolls/locations"
	"github.com/dustin/go-humanize"
)

// Stat is a dashboard card.
type Stat struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	Value       string `json:"value"`
	Icon        string `json:"icon"`
	Description string `json:"description"`
	Explanation string `json:"explanation"`
	Href        string `json:"href,omitempty"`
}

// LiveStat is a ticker item in the live stats bar.
type LiveStat struct {
	ID           string `json:"id"`
	Label        string `json:"label"`
	Value        string `json:"value"`
	Icon         string `json:"icon"`
	Color        string `json:"color"`
	Href         string `json:"href,omitempty"`
	Pulse        bool   `json:"pulse,omitempty"`
	PollID       string `json:"poll_id,omitempty"`
	PollQuestion string `json:"poll_question,omitempty"`
	Description  string `json:"description,omitempty"`
}

// Fact is a headline number with a short blurb.
type Fact struct {
	ID          string `json:"id"`
	Stat        string `json:"stat"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Category    string `json:"category"`
}

// DefaultLEDPreference is shown when no lighting poll has votes yet.
const DefaultLEDPreference = 89

// Millions formats n as "2.4M+".
func Millions(n int64) string {
	return fmt.Sprintf("%.1fM+", float64(n)/1e6)
}

// Thousands formats n as "51.2K".
func Thousands(n int64) string {
	return fmt.Sprintf("%.1fK", float64(n)/1e3)
}

// CompactVotes picks the shortest of "2.4M+", "12.5K+" or "950".
func CompactVotes(n int64) string {
	switch {
	case n >= 1_000_000:
		return Millions(n)
	case n >= 1_000:
		return Thousands(n) + "+"
	}
	return strconv.FormatInt(n, 10)
}

func categoryHref(slug string) string {
	return "/polls?category=" + url.QueryEscape(strings.ToLower(slug))
}

func highlightHref(ref PollRef, fallback string) string {
	if ref.ID == "" {
		return fallback
	}
	return "/polls?highlight=" + url.QueryEscape(ref.ID)
}

// teaser shortens a question to its first 30 characters.
func teaser(question string) string {
	r := []rune(question)
	if len(r) > 30 {
		r = r[:30]
	}
	return string(r) + "..."
}

// ToStats renders the dashboard cards.
func ToStats(a PollAnalytics) []Stat {
	trending := locations.Humanize(a.TrendingCategory)
	top := locations.Humanize(a.TopCategory)
	totalPolls := humanize.Comma(a.TotalPolls)

	return []Stat{
		{
			ID:          "live-votes-5m",
			Label:       "Votes (5 min)",
			Value:       humanize.Comma(a.VotesLast5Min),
			Icon:        "zap",
			Description: "Live voting activity",
			Explanation: fmt.Sprintf("%s votes cast in the last 5 minutes. The community is actively participating right now!", humanize.Comma(a.VotesLast5Min)),
			Href:        "/polls/results",
		},
		{
			ID:          "live-votes-60m",
			Label:       "Votes (1 hour)",
			Value:       humanize.Comma(a.VotesLast60Min),
			Icon:        "trending",
			Description: "Recent engagement",
			Explanation: fmt.Sprintf("%s votes in the past hour shows strong community engagement.", humanize.Comma(a.VotesLast60Min)),
			Href:        "/polls/results",
		},
		{
			ID:          "votes-today",
			Label:       "Votes Today",
			Value:       humanize.Comma(a.VotesToday),
			Icon:        "users",
			Description: "Today's participation",
			Explanation: fmt.Sprintf("%s community members have voted today across all polls.", humanize.Comma(a.VotesToday)),
			Href:        "/polls/results",
		},
		{
			ID:          "total-polls",
			Label:       "Total Polls",
			Value:       totalPolls,
			Icon:        "vote",
			Description: "Active community polls",
			Explanation: fmt.Sprintf("Our community has created over %s polls covering every aspect of party bus, limousine, and coach bus rentals.", totalPolls),
			Href:        "/polls",
		},
		{
			ID:          "total-votes",
			Label:       "Total Votes",
			Value:       Millions(a.TotalVotes),
			Icon:        "chart",
			Description: "All-time votes cast",
			Explanation: fmt.Sprintf("Over %.1f million votes have been cast, creating a massive dataset of customer insights.", float64(a.TotalVotes)/1e6),
			Href:        "/polls/results",
		},
		{
			ID:          "trending-category",
			Label:       "Trending Now",
			Value:       trending,
			Icon:        "trending",
			Description: "Hot category right now",
			Explanation: fmt.Sprintf("%s polls are seeing the most activity right now. Click to explore!", trending),
			Href:        categoryHref(a.TrendingCategory),
		},
		{
			ID:          "top-category",
			Label:       "Top Category",
			Value:       top,
			Icon:        "trophy",
			Description: "Most active all-time",
			Explanation: fmt.Sprintf("%s is our most popular category with thousands of polls about transportation for this event type.", top),
			Href:        categoryHref(a.TopCategory),
		},
		{
			ID:          "avg-votes",
			Label:       "Avg Votes/Poll",
			Value:       humanize.Comma(a.AvgVotesPerPoll),
			Icon:        "chart",
			Description: "Community engagement",
			Explanation: fmt.Sprintf("On average, each poll receives %d votes, ensuring statistically meaningful results.", a.AvgVotesPerPoll),
		},
		{
			ID:          "most-popular",
			Label:       "Most Popular",
			Value:       humanize.Comma(a.MostPopularPoll.Votes),
			Icon:        "zap",
			Description: teaser(a.MostPopularPoll.Question),
			Explanation: fmt.Sprintf("Our most popular poll %q has received %s votes!", a.MostPopularPoll.Question, humanize.Comma(a.MostPopularPoll.Votes)),
			Href:        highlightHref(a.MostPopularPoll, "/polls/results"),
		},
		{
			ID:          "fastest-rising",
			Label:       "Rising Fast",
			Value:       "🔥",
			Icon:        "trending",
			Description: teaser(a.FastestRisingPoll.Question),
			Explanation: fmt.Sprintf("%q is gaining votes rapidly in the last 15 minutes.", a.FastestRisingPoll.Question),
			Href:        highlightHref(a.FastestRisingPoll, "/polls"),
		},
		{
			ID:          "newest-poll",
			Label:       "Just Added",
			Value:       "New",
			Icon:        "clock",
			Description: teaser(a.NewestPoll.Question),
			Explanation: fmt.Sprintf("Be among the first to vote on %q", a.NewestPoll.Question),
			Href:        highlightHref(a.NewestPoll, "/polls"),
		},
		{
			ID:          "random-poll",
			Label:       "Poll of the Hour",
			Value:       "🎲",
			Icon:        "target",
			Description: teaser(a.RandomPollOfHour.Question),
			Explanation: fmt.Sprintf("Discover something new: %q", a.RandomPollOfHour.Question),
			Href:        highlightHref(a.RandomPollOfHour, "/polls"),
		},
		{
			ID:          "hidden-gem",
			Label:       "Hidden Gem",
			Value:       "💎",
			Icon:        "target",
			Description: teaser(a.HiddenGemPoll.Question),
			Explanation: fmt.Sprintf("This poll deserves more attention: %q (only %d votes so far)", a.HiddenGemPoll.Question, a.HiddenGemPoll.Votes),
			Href:        highlightHref(a.HiddenGemPoll, "/polls"),
		},
		{
			ID:          "categories",
			Label:       "Categories",
			Value:       fmt.Sprintf("%d+", a.CategoriesCount),
			Icon:        "target",
			Description: "Topics covered",
			Explanation: fmt.Sprintf("We cover %d+ distinct categories including event types, vehicle types, pricing questions, and location-specific polls.", a.CategoriesCount),
			Href:        "/polls",
		},
		{
			ID:          "response-rate",
			Label:       "Response Rate",
			Value:       fmt.Sprintf("%d%%", a.ResponseRate),
			Icon:        "chart",
			Description: fmt.Sprintf("Polls with %d+ votes", ResponseThreshold),
			Explanation: fmt.Sprintf("%d%% of our polls have received %d or more votes, ensuring statistically meaningful results.", a.ResponseRate, ResponseThreshold),
		},
		{
			ID:          "updated",
			Label:       "Updated",
			Value:       "Live",
			Icon:        "clock",
			Description: "Real-time results",
			Explanation: "Poll results update instantly when you vote. Cast your vote and watch the percentages shift in real time.",
		},
	}
}

// ToLiveStats renders the ticker items.
func ToLiveStats(a PollAnalytics) []LiveStat {
	return []LiveStat{
		{ID: "votes-5min", Label: "Votes (5 min)", Value: humanize.Comma(a.VotesLast5Min), Icon: "zap", Color: "yellow", Href: "/polls/results", Pulse: true, Description: "Live voting now"},
		{ID: "votes-1hr", Label: "Votes (1 hour)", Value: humanize.Comma(a.VotesLast60Min), Icon: "trending", Color: "green", Href: "/polls/results", Description: "Recent activity"},
		{ID: "votes-today", Label: "Votes Today", Value: humanize.Comma(a.VotesToday), Icon: "users", Color: "blue", Href: "/polls/results", Description: "Today's engagement"},
		{ID: "trending-cat", Label: "Trending Now", Value: locations.Humanize(a.TrendingCategory), Icon: "flame", Color: "orange", Href: categoryHref(a.TrendingCategory), Description: "Hot category"},
		{ID: "rising-fast", Label: "Rising Fast", Value: humanize.Comma(a.FastestRisingPoll.Votes), Icon: "trending", Color: "red", PollID: a.FastestRisingPoll.ID, PollQuestion: a.FastestRisingPoll.Question, Pulse: true, Description: "Gaining votes fast"},
		{ID: "most-popular", Label: "Most Popular", Value: humanize.Comma(a.MostPopularPoll.Votes), Icon: "star", Color: "amber", PollID: a.MostPopularPoll.ID, PollQuestion: a.MostPopularPoll.Question, Description: "Top voted poll"},
		{ID: "poll-of-hour", Label: "Poll of Hour", Value: "🎲", Icon: "sparkles", Color: "violet", PollID: a.RandomPollOfHour.ID, PollQuestion: a.RandomPollOfHour.Question, Description: "Random discovery"},
		{ID: "hidden-gem", Label: "Hidden Gem", Value: fmt.Sprintf("💎 %d votes", a.HiddenGemPoll.Votes), Icon: "lightbulb", Color: "cyan", PollID: a.HiddenGemPoll.ID, PollQuestion: a.HiddenGemPoll.Question, Description: "Needs your vote"},
		{ID: "hardest", Label: "Hardest Poll", Value: fmt.Sprintf("%d%%", a.HardestPoll.CorrectPercent), Icon: "target", Color: "red", PollID: a.HardestPoll.ID, PollQuestion: a.HardestPoll.Question, Description: "Trickiest question"},
		{ID: "easiest", Label: "Easiest Poll", Value: fmt.Sprintf("%d%%", a.EasiestPoll.CorrectPercent), Icon: "trophy", Color: "emerald", PollID: a.EasiestPoll.ID, PollQuestion: a.EasiestPoll.Question, Description: "Most agreed"},
		{ID: "new-poll", Label: "Just Added", Value: "New!", Icon: "sparkles", Color: "pink", PollID: a.NewestPoll.ID, PollQuestion: a.NewestPoll.Question, Description: "Be first to vote"},
		{ID: "top-category", Label: "Top Category", Value: locations.Humanize(a.TopCategory), Icon: "trophy", Color: "amber", Href: categoryHref(a.TopCategory), Description: "Most active all-time"},
		{ID: "total-polls", Label: "Total Polls", Value: Thousands(a.TotalPolls), Icon: "vote", Color: "indigo", Href: "/polls", Description: "Browse all"},
		{ID: "total-votes", Label: "All-Time Votes", Value: Millions(a.TotalVotes), Icon: "chart", Color: "purple", Href: "/polls/results", Description: "Community insights"},
	}
}

// LEDPreference finds the first lighting poll with votes and returns the
// share of its LED option. ok is false when no such poll exists.
func LEDPreference(polls []PollSample) (percent int, ok bool) {
	for _, p := range polls {
		q := strings.ToLower(p.Question)
		if !strings.Contains(q, "led") && !strings.Contains(q, "light") {
			continue
		}
		total := p.Votes()
		if total == 0 {
			continue
		}
		for _, o := range p.Options {
			label := strings.ToLower(o.Label)
			if strings.Contains(label, "led") || strings.Contains(label, "lighting") {
				return int(math.Round(float64(o.Votes) / float64(total) * 100)), true
			}
		}
	}
	return 0, false
}

// Facts renders the headline facts strip. With an empty dataset it
// returns the default facts.
func Facts(ds Dataset) []Fact {
	var total int64
	for _, p := range ds.Polls {
		total += p.Votes()
	}
	votes := Millions(Defaults.TotalVotes)
	if total > 0 {
		votes = CompactVotes(total)
	}

	led := DefaultLEDPreference
	if pct, ok := LEDPreference(ds.Polls); ok {
		led = pct
	}

	return []Fact{
		{ID: "1", Stat: votes, Label: "Votes Cast", Description: "Real opinions from riders nationwide", Icon: "trending", Category: "stat"},
		{ID: "2", Stat: fmt.Sprintf("%d%%", led), Label: "Prefer LED Lighting", Description: "The most-requested party bus feature", Icon: "zap", Category: "insight"},
		{ID: "3", Stat: "6 Weeks", Label: "Ideal Booking Lead", Description: "Sweet spot for availability and pricing", Icon: "clock", Category: "tip"},
		{ID: "4", Stat: "18-22", Label: "Optimal Group Size", Description: "Best energy without overcrowding", Icon: "users", Category: "insight"},
		{ID: "5", Stat: "$45-65", Label: "Per Person Average", Description: "Typical cost when splitting 4-hour rental", Icon: "star", Category: "stat"},
		{ID: "6", Stat: "Saturday 7PM", Label: "Peak Booking Time", Description: "Most popular departure for events", Icon: "clock", Category: "tip"},
	}
}

// DefaultFacts is what Facts returns for an empty dataset.
func DefaultFacts() []Fact {
	return Facts(Dataset{})
}
