package reminders

import (
	"math"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
)

const UpcomingWindow = 24 * time.Hour

type Stats struct {
	Total          int
	Completed      int
	Active         int
	Overdue        int
	Upcoming       int
	Homework       int
	Tests          int
	CompletionRate int
}

func (s *Store) Statistics() Stats {
	return ComputeStats(s.All(), s.now())
}

// ComputeStats counts upcoming as open reminders due in the next 24 hours.
// CompletionRate is a rounded percentage, 0 for an empty collection.
func ComputeStats(items []model.Reminder, now time.Time) Stats {
	var st Stats
	st.Total = len(items)
	for _, r := range items {
		if r.Completed {
			st.Completed++
		} else {
			st.Active++
		}
		if r.IsOverdue(now) {
			st.Overdue++
		}
		if r.IsUpcoming(now, UpcomingWindow) {
			st.Upcoming++
		}
		switch r.Type {
		case model.ReminderTypeHomework:
			st.Homework++
		case model.ReminderTypeTest:
			st.Tests++
		}
	}
	if st.Total > 0 {
		st.CompletionRate = int(math.Round(float64(st.Completed) / float64(st.Total) * 100))
	}
	return st
}
