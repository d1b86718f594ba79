// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

// OptionSample is one option of a sampled poll.
type OptionSample struct {
	Label   string
	Votes   int64
	Correct bool
}

// PollSample is everything the aggregations need to know about one poll.
// Window counts come from the vote log and are zero for votes recorded
// only on the option counters.
type PollSample struct {
	ID        string
	Question  string
	Category  string
	Location  string
	Views     int64
	CreatedAt time.Time
	Options   []OptionSample

	VotesLast15Min int64
	VotesLastHour  int64
	VotesToday     int64
	VotesThisWeek  int64
}

// Votes is the sum of the option counters.
func (p PollSample) Votes() int64 {
	var total int64
	for _, o := range p.Options {
		total += o.Votes
	}
	return total
}

// CorrectPercent returns the share of votes on correct answers. ok is
// false for polls without a marked answer or without votes.
func (p PollSample) CorrectPercent() (percent int, ok bool) {
	var correct, total int64
	hasCorrect := false
	for _, o := range p.Options {
		total += o.Votes
		if o.Correct {
			hasCorrect = true
			correct += o.Votes
		}
	}
	if !hasCorrect || total == 0 {
		return 0, false
	}
	return int(math.Round(float64(correct) / float64(total) * 100)), true
}

// Dataset is a snapshot of polls plus vote log totals taken at Now.
type Dataset struct {
	Now   time.Time
	Polls []PollSample

	// LoggedVotes is the number of rows in the vote log. When zero the
	// windowed vote counts are estimated from the counters.
	LoggedVotes    int64
	VotesLast5Min  int64
	VotesLast60Min int64
	VotesToday     int64
}

// PollRef points at a poll highlighted by the analytics.
type PollRef struct {
	ID             string `json:"id"`
	Question       string `json:"question"`
	Votes          int64  `json:"votes,omitempty"`
	CorrectPercent int    `json:"correct_percent,omitempty"`
}

type PollAnalytics struct {
	TotalPolls        int64   `json:"total_polls"`
	TotalVotes        int64   `json:"total_votes"`
	PollsToday        int64   `json:"polls_today"`
	PollsThisWeek     int64   `json:"polls_this_week"`
	VotesLast5Min     int64   `json:"votes_last_5_min"`
	VotesLast60Min    int64   `json:"votes_last_60_min"`
	VotesToday        int64   `json:"votes_today"`
	AvgVotesPerPoll   int64   `json:"avg_votes_per_poll"`
	TopCategory       string  `json:"top_category"`
	TrendingCategory  string  `json:"trending_category"`
	MostPopularPoll   PollRef `json:"most_popular_poll"`
	FastestRisingPoll PollRef `json:"fastest_rising_poll"`
	HardestPoll       PollRef `json:"hardest_poll"`
	EasiestPoll       PollRef `json:"easiest_poll"`
	NewestPoll        PollRef `json:"newest_poll"`
	RandomPollOfHour  PollRef `json:"random_poll_of_hour"`
	HiddenGemPoll     PollRef `json:"hidden_gem_poll"`
	CategoriesCount   int64   `json:"categories_count"`
	LocationsCount    int64   `json:"locations_count"`
	ResponseRate      int64   `json:"response_rate"`
}

// Defaults are shown whenever a live value is zero or cannot be computed.
var Defaults = PollAnalytics{
	TotalPolls:        51247,
	TotalVotes:        2400000,
	PollsToday:        47,
	PollsThisWeek:     312,
	VotesLast5Min:     23,
	VotesLast60Min:    847,
	VotesToday:        12450,
	AvgVotesPerPoll:   47,
	TopCategory:       "Prom",
	TrendingCategory:  "Wedding",
	MostPopularPoll:   PollRef{ID: "1", Question: "What's the most important party bus feature?", Votes: 8742},
	FastestRisingPoll: PollRef{ID: "2", Question: "How early should you book for prom?", Votes: 156},
	HardestPoll:       PollRef{ID: "3", Question: "Best day of week to book?", CorrectPercent: 12},
	EasiestPoll:       PollRef{ID: "4", Question: "Do party buses have bathrooms?", CorrectPercent: 94},
	NewestPoll:        PollRef{ID: "5", Question: "Preferred payment method for booking?"},
	RandomPollOfHour:  PollRef{ID: "6", Question: "LED lights or disco ball?"},
	HiddenGemPoll:     PollRef{ID: "7", Question: "Best music genre for a party bus?", Votes: 23},
	CategoriesCount:   150,
	LocationsCount:    312,
	ResponseRate:      94,
}

// Estimate factors applied to total votes while the vote log is empty.
const (
	estimate5Min  = 0.00001
	estimate60Min = 0.0001
	estimateToday = 0.005
)

// ResponseThreshold is the vote count at which a poll counts as answered.
const ResponseThreshold = 10

// randomPoolSize bounds the candidates for the poll of the hour.
const randomPoolSize = 100

// Compute aggregates ds into PollAnalytics. Every field that comes out
// zero or empty is replaced by its value from Defaults.
func Compute(ds Dataset) PollAnalytics {
	out := PollAnalytics{}
	now := ds.Now.UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.AddDate(0, 0, -7)

	categoryPolls := map[string]int64{}
	categoryWeekVotes := map[string]int64{}
	locationSet := map[string]struct{}{}
	var answered int64

	for _, p := range ds.Polls {
		votes := p.Votes()
		out.TotalPolls++
		out.TotalVotes += votes

		if !p.CreatedAt.Before(midnight) {
			out.PollsToday++
		}
		if !p.CreatedAt.Before(weekStart) {
			out.PollsThisWeek++
		}
		if p.Category != "" {
			categoryPolls[p.Category]++
			categoryWeekVotes[p.Category] += p.VotesThisWeek
		}
		if p.Location != "" {
			locationSet[p.Location] = struct{}{}
		}
		if votes >= ResponseThreshold {
			answered++
		}
	}

	if ds.LoggedVotes > 0 {
		out.VotesLast5Min = ds.VotesLast5Min
		out.VotesLast60Min = ds.VotesLast60Min
		out.VotesToday = ds.VotesToday
	} else {
		out.VotesLast5Min = int64(math.Floor(float64(out.TotalVotes) * estimate5Min))
		out.VotesLast60Min = int64(math.Floor(float64(out.TotalVotes) * estimate60Min))
		out.VotesToday = int64(math.Floor(float64(out.TotalVotes) * estimateToday))
	}

	var average float64
	if out.TotalPolls > 0 {
		average = float64(out.TotalVotes) / float64(out.TotalPolls)
		out.AvgVotesPerPoll = int64(math.Round(average))
		out.ResponseRate = int64(math.Round(float64(answered) / float64(out.TotalPolls) * 100))
	}

	ranked := rankCategories(categoryPolls)
	if len(ranked) > 0 {
		out.TopCategory = ranked[0]
	}
	out.TrendingCategory = trendingCategory(categoryWeekVotes, ranked)
	out.CategoriesCount = int64(len(categoryPolls))
	out.LocationsCount = int64(len(locationSet))

	out.MostPopularPoll = mostPopular(ds.Polls)
	out.FastestRisingPoll = fastestRising(ds.Polls)
	out.HardestPoll, out.EasiestPoll = hardestAndEasiest(ds.Polls)
	out.NewestPoll = newest(ds.Polls)
	out.RandomPollOfHour = pollOfHour(ds.Polls, now)
	out.HiddenGemPoll = hiddenGem(ds.Polls, average)

	return withDefaults(out)
}

// rankCategories orders categories by poll count, most first. Ties are
// broken by slug so the result is deterministic.
func rankCategories(counts map[string]int64) []string {
	slugs := make([]string, 0, len(counts))
	for slug := range counts {
		slugs = append(slugs, slug)
	}
	sort.Slice(slugs, func(i, j int) bool {
		if counts[slugs[i]] != counts[slugs[j]] {
			return counts[slugs[i]] > counts[slugs[j]]
		}
		return slugs[i] < slugs[j]
	})
	return slugs
}

// trendingCategory is the category with the most votes this week. Without
// weekly activity it falls back to the runner-up by poll count, then to the
// top category.
func trendingCategory(weekVotes map[string]int64, ranked []string) string {
	best := ""
	var bestVotes int64
	for _, slug := range ranked {
		if weekVotes[slug] > bestVotes {
			best, bestVotes = slug, weekVotes[slug]
		}
	}
	if best != "" {
		return best
	}
	if len(ranked) > 1 {
		return ranked[1]
	}
	if len(ranked) == 1 {
		return ranked[0]
	}
	return ""
}

func mostPopular(polls []PollSample) PollRef {
	var ref PollRef
	for _, p := range polls {
		if v := p.Votes(); v > ref.Votes {
			ref = PollRef{ID: p.ID, Question: p.Question, Votes: v}
		}
	}
	return ref
}

func fastestRising(polls []PollSample) PollRef {
	var ref PollRef
	for _, p := range polls {
		if p.VotesLast15Min > ref.Votes {
			ref = PollRef{ID: p.ID, Question: p.Question, Votes: p.VotesLast15Min}
		}
	}
	return ref
}

func hardestAndEasiest(polls []PollSample) (hardest, easiest PollRef) {
	found := false
	for _, p := range polls {
		pct, ok := p.CorrectPercent()
		if !ok {
			continue
		}
		if !found || pct < hardest.CorrectPercent {
			hardest = PollRef{ID: p.ID, Question: p.Question, CorrectPercent: pct}
		}
		if !found || pct > easiest.CorrectPercent {
			easiest = PollRef{ID: p.ID, Question: p.Question, CorrectPercent: pct}
		}
		found = true
	}
	return hardest, easiest
}

func newest(polls []PollSample) PollRef {
	var ref PollRef
	var at time.Time
	for _, p := range polls {
		if ref.ID == "" || p.CreatedAt.After(at) {
			ref = PollRef{ID: p.ID, Question: p.Question}
			at = p.CreatedAt
		}
	}
	return ref
}

// pollOfHour picks a poll with a generator seeded by the clock hour, so
// every request within the same hour sees the same poll.
func pollOfHour(polls []PollSample, now time.Time) PollRef {
	if len(polls) == 0 {
		return PollRef{}
	}
	pool := make([]PollSample, len(polls))
	copy(pool, polls)
	sort.Slice(pool, func(i, j int) bool { return pool[i].ID < pool[j].ID })
	if len(pool) > randomPoolSize {
		pool = pool[:randomPoolSize]
	}

	rng := HourlyRand(now)
	p := pool[rng.IntN(len(pool))]
	return PollRef{ID: p.ID, Question: p.Question}
}

// HourlyRand returns a generator whose sequence only changes when the
// UTC clock hour does.
func HourlyRand(now time.Time) *rand.Rand {
	hour := now.UTC().Truncate(time.Hour).Unix()
	return rand.New(rand.NewPCG(uint64(hour), 0x6c697665706f6c6c))
}

// hiddenGem is the most viewed poll that has votes but fewer than average.
func hiddenGem(polls []PollSample, average float64) PollRef {
	var ref PollRef
	var bestViews int64 = -1
	for _, p := range polls {
		v := p.Votes()
		if v == 0 || float64(v) >= average {
			continue
		}
		if p.Views > bestViews || (p.Views == bestViews && v < ref.Votes) {
			ref = PollRef{ID: p.ID, Question: p.Question, Votes: v}
			bestViews = p.Views
		}
	}
	return ref
}

func withDefaults(a PollAnalytics) PollAnalytics {
	d := Defaults
	orInt(&a.TotalPolls, d.TotalPolls)
	orInt(&a.TotalVotes, d.TotalVotes)
	orInt(&a.PollsToday, d.PollsToday)
	orInt(&a.PollsThisWeek, d.PollsThisWeek)
	orInt(&a.VotesLast5Min, d.VotesLast5Min)
	orInt(&a.VotesLast60Min, d.VotesLast60Min)
	orInt(&a.VotesToday, d.VotesToday)
	orInt(&a.AvgVotesPerPoll, d.AvgVotesPerPoll)
	orInt(&a.CategoriesCount, d.CategoriesCount)
	orInt(&a.LocationsCount, d.LocationsCount)
	orInt(&a.ResponseRate, d.ResponseRate)

	if a.TopCategory == "" {
		a.TopCategory = d.TopCategory
	}
	if a.TrendingCategory == "" {
		a.TrendingCategory = d.TrendingCategory
	}

	orRef(&a.MostPopularPoll, d.MostPopularPoll)
	orRef(&a.FastestRisingPoll, d.FastestRisingPoll)
	orRef(&a.HardestPoll, d.HardestPoll)
	orRef(&a.EasiestPoll, d.EasiestPoll)
	orRef(&a.NewestPoll, d.NewestPoll)
	orRef(&a.RandomPollOfHour, d.RandomPollOfHour)
	orRef(&a.HiddenGemPoll, d.HiddenGemPoll)
	return a
}

func orInt(v *int64, fallback int64) {
	if *v == 0 {
		*v = fallback
	}
}

func orRef(ref *PollRef, fallback PollRef) {
	if ref.ID == "" {
		*ref = fallback
	}
}
