package reminders

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/timeutil"
)

var ErrInvalidFilter = errors.New("reminders: invalid filter")

type FilterKind string

const (
	FilterAll       FilterKind = "all"
	FilterHomework  FilterKind = "homework"
	FilterTest      FilterKind = "test"
	FilterActive    FilterKind = "active"
	FilterCompleted FilterKind = "completed"
)

// FilterKinds lists the kinds in the order the UI cycles through them.
var FilterKinds = []FilterKind{FilterAll, FilterActive, FilterHomework, FilterTest, FilterCompleted}

func (k FilterKind) IsValid() bool {
	return slices.Contains(FilterKinds, k)
}

func ParseFilterKind(raw string) (FilterKind, error) {
	k := FilterKind(strings.ToLower(strings.TrimSpace(raw)))
	if k == "" {
		return FilterAll, nil
	}
	if !k.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidFilter, raw)
	}
	return k, nil
}

// Next returns the kind after k in FilterKinds, wrapping around.
func (k FilterKind) Next() FilterKind {
	i := slices.Index(FilterKinds, k)
	return FilterKinds[(i+1)%len(FilterKinds)]
}

// Criteria selects reminders by kind and a case-insensitive substring of
// title, description or subject.
type Criteria struct {
	Kind  FilterKind
	Query string
}

func (c Criteria) Match(r model.Reminder) bool {
	switch c.Kind {
	case FilterHomework:
		if r.Type != model.ReminderTypeHomework {
			return false
		}
	case FilterTest:
		if r.Type != model.ReminderTypeTest {
			return false
		}
	case FilterActive:
		if r.Completed {
			return false
		}
	case FilterCompleted:
		if !r.Completed {
			return false
		}
	}
	q := strings.ToLower(strings.TrimSpace(c.Query))
	if q == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.Title), q) ||
		strings.Contains(strings.ToLower(r.Description), q) ||
		strings.Contains(strings.ToLower(r.Subject), q)
}

// Filter returns the matching reminders sorted by due date, earliest first.
// Reminders due at the same instant keep insertion order.
func (s *Store) Filter(c Criteria) []model.Reminder {
	all := s.All()
	out := make([]model.Reminder, 0, len(all))
	for _, r := range all {
		if c.Match(r) {
			out = append(out, r)
		}
	}
	sortByDue(out)
	return out
}

// Annotated pairs a reminder with its urgency as of a given instant.
type Annotated struct {
	model.Reminder
	Urgency   timeutil.Urgency
	Countdown timeutil.Countdown
	Relative  string
}

func (s *Store) WithUrgency(c Criteria, now time.Time) []Annotated {
	items := s.Filter(c)
	out := make([]Annotated, 0, len(items))
	for _, r := range items {
		out = append(out, Annotate(r, now))
	}
	return out
}

func Annotate(r model.Reminder, now time.Time) Annotated {
	return Annotated{
		Reminder:  r,
		Urgency:   timeutil.UrgencyLevel(r.DueDate, now),
		Countdown: timeutil.CountdownTo(r.DueDate, now),
		Relative:  timeutil.RelativeTime(r.DueDate, now),
	}
}

type DateGroup struct {
	Day       time.Time
	Reminders []model.Reminder
}

// GroupByDate buckets the filter result by calendar day in the store's
// location, days ascending.
func (s *Store) GroupByDate(c Criteria) []DateGroup {
	var groups []DateGroup
	for _, r := range s.Filter(c) {
		day := timeutil.StartOfDay(r.DueDate, s.loc)
		if n := len(groups); n > 0 && groups[n-1].Day.Equal(day) {
			groups[n-1].Reminders = append(groups[n-1].Reminders, r)
			continue
		}
		groups = append(groups, DateGroup{Day: day, Reminders: []model.Reminder{r}})
	}
	return groups
}

// Upcoming lists open reminders due within [now, now+window].
func (s *Store) Upcoming(window time.Duration) []model.Reminder {
	now := s.now()
	var out []model.Reminder
	for _, r := range s.All() {
		if r.IsUpcoming(now, window) {
			out = append(out, r)
		}
	}
	sortByDue(out)
	return out
}

func (s *Store) Overdue() []model.Reminder {
	now := s.now()
	var out []model.Reminder
	for _, r := range s.All() {
		if r.IsOverdue(now) {
			out = append(out, r)
		}
	}
	sortByDue(out)
	return out
}

func sortByDue(items []model.Reminder) {
	slices.SortStableFunc(items, func(a, b model.Reminder) int {
		return a.DueDate.Compare(b.DueDate)
	})
}
