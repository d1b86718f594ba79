// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package analytics aggregates poll activity into headline numbers and rankings.

Everything here is pure: callers load a Dataset (polls, option counters and
vote log windows) and the package never touches the database.

# Aggregates

	a := analytics.Compute(ds)

Compute fills PollAnalytics. Any field that comes out zero or empty is
replaced by the matching value from Defaults, so pages always show a
number. When the vote log is empty the 5 minute, 60 minute and daily vote
counts are estimated from total votes.

The poll of the hour is chosen with a generator seeded from the UTC clock
hour (HourlyRand), so it only changes on the hour.

# Rankings

	f, err := analytics.ParseFilter("hidden-gems")
	polls := analytics.Rank(ds, f, 30, nil)

Filters:
  - all: most votes, then question
  - popular: most votes all-time
  - trending: most votes this week
  - rising: most votes in the last hour, then newest
  - new: newest first
  - today (alias most-voted-today): most votes since midnight UTC
  - hidden-gems: below-average polls, most viewed first
  - random: shuffled with the given generator
  - hardest / easiest: trivia polls by correct-answer share

# Presentation

ToStats, ToLiveStats and Facts turn aggregates into display cards with
formatted values ("12,450", "2.4M+", "51.2K") and links.
*/
package analytics
