package update

import (
	"fmt"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
	"github.com/sandeepkv93/studyd/internal/timeutil"
)

const shortIDLength = 8

func shortID(id string) string {
	if len(id) <= shortIDLength {
		return id
	}
	return id[:shortIDLength]
}

func describeTrigger(tr model.Trigger, loc *time.Location) string {
	lead := ""
	switch {
	case tr.DaysBefore != nil:
		lead = plural(*tr.DaysBefore, "day")
	case tr.HoursBefore != nil:
		lead = plural(*tr.HoursBefore, "hour")
	}
	state := "pending"
	if tr.Sent {
		state = "sent"
	}
	return fmt.Sprintf("%s before, %s (%s)", lead, timeutil.FormatDateTime(tr.ScheduledFor.In(loc)), state)
}

func formatUsage(u storage.Usage, loc *time.Location) string {
	out := fmt.Sprintf("%s of %s (%.1f%%)", formatBytes(u.UsedBytes), formatBytes(u.QuotaBytes), u.Percent())
	if u.QuotaBytes <= 0 {
		out = fmt.Sprintf("%s in %d key(s)", formatBytes(u.UsedBytes), u.Items)
	}
	if !u.LastWrite.IsZero() {
		out += ", saved " + timeutil.FormatDateTime(u.LastWrite.In(loc))
	}
	return out
}

func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MiB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KiB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
