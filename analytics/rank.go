// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package analytics

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
)

var ErrUnknownFilter = errors.New("unknown filter")

// Filter selects how Rank orders polls.
type Filter string

const (
	FilterAll        Filter = "all"
	FilterPopular    Filter = "popular"
	FilterTrending   Filter = "trending"
	FilterRising     Filter = "rising"
	FilterNew        Filter = "new"
	FilterToday      Filter = "today"
	FilterHiddenGems Filter = "hidden-gems"
	FilterRandom     Filter = "random"
	FilterHardest    Filter = "hardest"
	FilterEasiest    Filter = "easiest"
)

// Filters lists every accepted filter in display order.
var Filters = []Filter{
	FilterAll, FilterPopular, FilterTrending, FilterRising, FilterNew,
	FilterToday, FilterHiddenGems, FilterRandom, FilterHardest, FilterEasiest,
}

// ParseFilter accepts a filter name. Empty means FilterAll and
// "most-voted-today" is an alias for FilterToday.
func ParseFilter(s string) (Filter, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	switch name {
	case "":
		return FilterAll, nil
	case "most-voted-today":
		return FilterToday, nil
	}
	for _, f := range Filters {
		if Filter(name) == f {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFilter, s)
}

// Rank orders the polls of ds for filter f and returns at most limit of
// them. rng is only used by FilterRandom. ds.Polls is not modified.
func Rank(ds Dataset, f Filter, limit int, rng *rand.Rand) []PollSample {
	polls := make([]PollSample, 0, len(ds.Polls))
	votes := make(map[string]int64, len(ds.Polls))
	var total int64
	for _, p := range ds.Polls {
		v := p.Votes()
		votes[p.ID] = v
		total += v
	}

	switch f {
	case FilterHiddenGems:
		// Below-average polls only
		var average float64
		if len(ds.Polls) > 0 {
			average = float64(total) / float64(len(ds.Polls))
		}
		for _, p := range ds.Polls {
			if float64(votes[p.ID]) < average {
				polls = append(polls, p)
			}
		}
	case FilterHardest, FilterEasiest:
		for _, p := range ds.Polls {
			if _, ok := p.CorrectPercent(); ok {
				polls = append(polls, p)
			}
		}
	default:
		polls = append(polls, ds.Polls...)
	}

	byVotes := func(a, b PollSample) int {
		return compareDesc(votes[a.ID], votes[b.ID])
	}

	var cmp func(a, b PollSample) int
	switch f {
	case FilterPopular:
		cmp = byVotes
	case FilterTrending:
		cmp = func(a, b PollSample) int {
			if c := compareDesc(a.VotesThisWeek, b.VotesThisWeek); c != 0 {
				return c
			}
			return byVotes(a, b)
		}
	case FilterRising:
		cmp = func(a, b PollSample) int {
			if c := compareDesc(a.VotesLastHour, b.VotesLastHour); c != 0 {
				return c
			}
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	case FilterNew:
		cmp = func(a, b PollSample) int {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
	case FilterToday:
		cmp = func(a, b PollSample) int {
			if c := compareDesc(a.VotesToday, b.VotesToday); c != 0 {
				return c
			}
			return byVotes(a, b)
		}
	case FilterHiddenGems:
		cmp = func(a, b PollSample) int {
			if c := compareDesc(a.Views, b.Views); c != 0 {
				return c
			}
			return -byVotes(a, b)
		}
	case FilterHardest, FilterEasiest:
		cmp = func(a, b PollSample) int {
			pa, _ := a.CorrectPercent()
			pb, _ := b.CorrectPercent()
			if f == FilterHardest {
				return compareAsc(int64(pa), int64(pb))
			}
			return compareDesc(int64(pa), int64(pb))
		}
	case FilterRandom:
		sort.Slice(polls, func(i, j int) bool { return polls[i].ID < polls[j].ID })
		if rng == nil {
			rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		rng.Shuffle(len(polls), func(i, j int) { polls[i], polls[j] = polls[j], polls[i] })
		return truncate(polls, limit)
	default:
		// FilterAll: most voted first, then alphabetical
		cmp = func(a, b PollSample) int {
			if c := byVotes(a, b); c != 0 {
				return c
			}
			return strings.Compare(a.Question, b.Question)
		}
	}

	sort.SliceStable(polls, func(i, j int) bool {
		if c := cmp(polls[i], polls[j]); c != 0 {
			return c < 0
		}
		return polls[i].ID < polls[j].ID
	})
	return truncate(polls, limit)
}

func compareDesc(a, b int64) int {
	return compareAsc(b, a)
}

func compareAsc(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func truncate(polls []PollSample, limit int) []PollSample {
	if limit > 0 && len(polls) > limit {
		return polls[:limit]
	}
	return polls
}
