// Package timerange resolves symbolic range tokens ("6h", "last week",
// "this month", ...) to concrete time intervals.
//
// All boundaries derive from the reference time's local calendar date:
// days start at 00:00:00, weeks start on Monday, and closed upper
// bounds sit one microsecond before the next range's start, so
// adjacent ranges are contiguous and non-overlapping.
package timerange

import (
	"regexp"
	"strconv"
	"time"

	"codeberg.org/mutker/sensorbot/internal/errors"
)

// ErrUnknownToken is reported for tokens outside the supported set.
const ErrUnknownToken = errors.ErrorCode("unknown_range_token")

// Range is a closed interval. A nil bound is unbounded on that side;
// a nil End effectively means "now", since no future data exists.
type Range struct {
	Start *time.Time
	End   *time.Time
}

var (
	hoursPattern = regexp.MustCompile(`^([0-9]+)h$`)
	daysPattern  = regexp.MustCompile(`^last ([0-9]+)d$`)
)

// Resolve maps a range token to a concrete interval relative to now.
func Resolve(token string, now time.Time) (Range, error) {
	if token == "all" {
		return Range{}, nil
	}

	// 1h, 3h, 6h, ...: rolling window ending now
	if m := hoursPattern.FindStringSubmatch(token); m != nil {
		hours, _ := strconv.Atoi(m[1])
		start := now.Add(-time.Duration(hours) * time.Hour)
		return Range{Start: &start}, nil
	}

	todayStart := dayStart(now)

	// last 3d, last 7d, ...: N calendar days including today
	if m := daysPattern.FindStringSubmatch(token); m != nil {
		days, _ := strconv.Atoi(m[1])
		start := todayStart.AddDate(0, 0, -(days - 1))
		return Range{Start: &start}, nil
	}

	switch token {
	case "today":
		return Range{Start: &todayStart}, nil

	case "yesterday":
		start := todayStart.AddDate(0, 0, -1)
		end := todayStart.Add(-time.Microsecond)
		return Range{Start: &start, End: &end}, nil

	case "this week":
		start := todayStart.AddDate(0, 0, -weekday(now))
		return Range{Start: &start}, nil

	case "last week":
		start := todayStart.AddDate(0, 0, -(weekday(now) + 7))
		end := todayStart.AddDate(0, 0, -weekday(now)).Add(-time.Microsecond)
		return Range{Start: &start, End: &end}, nil

	case "this month":
		start := todayStart.AddDate(0, 0, -(now.Day() - 1))
		return Range{Start: &start}, nil

	case "last month":
		prevMonthEnd := todayStart.AddDate(0, 0, -now.Day())
		start := prevMonthEnd.AddDate(0, 0, -(prevMonthEnd.Day() - 1))
		end := todayStart.AddDate(0, 0, -(now.Day() - 1)).Add(-time.Microsecond)
		return Range{Start: &start, End: &end}, nil

	case "this year":
		start := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Range{Start: &start}, nil

	case "last year":
		start := time.Date(now.Year()-1, time.January, 1, 0, 0, 0, 0, now.Location())
		end := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location()).Add(-time.Microsecond)
		return Range{Start: &start, End: &end}, nil
	}

	return Range{}, errors.New().WithData(ErrUnknownToken, token)
}

func dayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// weekday returns the Monday-based weekday index (Monday = 0).
func weekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}
