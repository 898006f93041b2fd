package timeutil

import (
	"errors"
	"fmt"
	"strings"
	"time"

)

var ErrInvalidDate = errors.New("timeutil: invalid date")

const (
	dateLayout     = "Mon, Jan 2, 2006"
	dateTimeLayout = "Mon, Jan 2, 2006, 03:04 PM"
	timeLayout     = "03:04 PM"
	isoDayLayout   = "2006-01-02"
	clockLayout    = "15:04"
)

func FormatDate(t time.Time) string     { return t.Format(dateLayout) }
func FormatDateTime(t time.Time) string { return t.Format(dateTimeLayout) }
func FormatTime(t time.Time) string     { return t.Format(timeLayout) }

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func SameDay(a, b time.Time, loc *time.Location) bool {
	return StartOfDay(a, loc).Equal(StartOfDay(b, loc))
}

func IsToday(t, now time.Time) bool {
	return SameDay(t, now, now.Location())
}

func IsTomorrow(t, now time.Time) bool {
	return SameDay(t, StartOfDay(now, now.Location()).AddDate(0, 0, 1), now.Location())
}

// IsThisWeek reports whether t falls in now's Sunday-to-Saturday week.
func IsThisWeek(t, now time.Time) bool {
	start := StartOfDay(now, now.Location())
	start = start.AddDate(0, 0, -int(start.Weekday()))
	end := start.AddDate(0, 0, 7)
	return !t.Before(start) && t.Before(end)
}

// CombineDateAndTime places the "HH:MM" clock on date's calendar day in loc.
// An empty clock means the last millisecond of that day.
func CombineDateAndTime(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	d := date.In(loc)
	clock = strings.TrimSpace(clock)
	if clock == "" {
		return time.Date(d.Year(), d.Month(), d.Day(), 23, 59, 59, int(999*time.Millisecond), loc), nil
	}
	hm, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: time %q, want HH:MM", ErrInvalidDate, clock)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hm.Hour(), hm.Minute(), 0, 0, loc), nil
}

// ParseDay understands "today", "tomorrow", weekday names (the next such
// day, never today) and YYYY-MM-DD.
func ParseDay(raw string, now time.Time) (time.Time, error) {
	loc := now.Location()
	s := strings.ToLower(strings.TrimSpace(raw))
	today := StartOfDay(now, loc)
	switch s {
	case "":
		return time.Time{}, fmt.Errorf("%w: empty", ErrInvalidDate)
	case "today":
		return today, nil
	case "tomorrow":
		return today.AddDate(0, 0, 1), nil
	}
	for wd := time.Sunday; wd <= time.Saturday; wd++ {
		name := strings.ToLower(wd.String())
		if s == name || s == name[:3] {
			delta := (int(wd) - int(today.Weekday()) + 7) % 7
			if delta == 0 {
				delta = 7
			}
			return today.AddDate(0, 0, delta), nil
		}
	}
	day, err := time.ParseInLocation(isoDayLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q, want YYYY-MM-DD", ErrInvalidDate, raw)
	}
	return day, nil
}
