package timeutil

import (
	"fmt"
	"time"
)

// RelativeTime describes due relative to now, e.g. "in 3 hours",
// "tomorrow", "in 2 weeks, 1 day" or "2 days overdue".
func RelativeTime(due, now time.Time) string {
	diff := due.Sub(now)
	if diff < 0 {
		late := -diff
		switch {
		case late >= Day:
			return plural(int(late/Day), "day") + " overdue"
		case late >= time.Hour:
			return plural(int(late/time.Hour), "hour") + " overdue"
		default:
			return plural(max(1, int(late/time.Minute)), "minute") + " overdue"
		}
	}

	if diff < Day {
		switch {
		case diff <= 30*time.Minute:
			return "in less than 30 minutes"
		case diff < time.Hour:
			return "in " + plural(ceilDiv(diff, time.Minute), "minute")
		default:
			return "in " + plural(ceilDiv(diff, time.Hour), "hour")
		}
	}

	days := int(diff / Day)
	switch {
	case days == 1:
		return "tomorrow"
	case days < 7:
		return fmt.Sprintf("in %d days", days)
	case days < 30:
		return "in " + withRemainder(days/7, "week", days%7)
	default:
		return "in " + withRemainder(days/30, "month", days%30)
	}
}

// DueNote is the one-line summary under a reminder's due date.
func DueNote(due, now time.Time) string {
	switch {
	case IsToday(due, now):
		return "This reminder is due today"
	case IsTomorrow(due, now):
		return "This reminder is due tomorrow"
	case IsThisWeek(due, now):
		return "This reminder is due this week"
	default:
		return "Due " + RelativeTime(due, now)
	}
}

// NotificationPhrase is the shorter wording used in notification bodies.
func NotificationPhrase(due, now time.Time) string {
	diff := due.Sub(now)
	if diff < 0 {
		return "overdue"
	}
	if diff < Day {
		hours := ceilDiv(diff, time.Hour)
		if hours <= 1 {
			return "in less than an hour"
		}
		return fmt.Sprintf("in %d hours", hours)
	}
	days := int(diff / Day)
	switch {
	case days == 1:
		return "tomorrow"
	case days < 7:
		return fmt.Sprintf("in %d days", days)
	default:
		return "in " + plural((days+6)/7, "week")
	}
}

func withRemainder(n int, unit string, rest int) string {
	if rest == 0 {
		return plural(n, unit)
	}
	return plural(n, unit) + ", " + plural(rest, "day")
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

func ceilDiv(d, unit time.Duration) int {
	n := int(d / unit)
	if d%unit != 0 {
		n++
	}
	return n
}
