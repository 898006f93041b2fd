package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReminderType = errors.New("model: invalid reminder type")

type ReminderType string

const (
	ReminderTypeHomework ReminderType = "homework"
	ReminderTypeTest     ReminderType = "test"
)

func (r ReminderType) IsValid() bool {
	switch r {
	case ReminderTypeHomework, ReminderTypeTest:
		return true
	default:
		return false
	}
}

const (
	MaxTitleLength       = 100
	MaxDescriptionLength = 500
)

type Reminder struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Type          ReminderType `json:"type"`
	Description   string       `json:"description"`
	Subject       string       `json:"subject"`
	DueDate       time.Time    `json:"dueDate"`
	Completed     bool         `json:"completed"`
	ReminderTimes []Trigger    `json:"reminderTimes"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// Clone returns a copy that shares no memory with r.
func (r Reminder) Clone() Reminder {
	out := r
	if r.ReminderTimes != nil {
		out.ReminderTimes = make([]Trigger, len(r.ReminderTimes))
		for i, tr := range r.ReminderTimes {
			tr.Offset = tr.Offset.clone()
			out.ReminderTimes[i] = tr
		}
	}
	return out
}

func (r Reminder) Offsets() []Offset {
	out := make([]Offset, 0, len(r.ReminderTimes))
	for _, tr := range r.ReminderTimes {
		out = append(out, tr.Offset.clone())
	}
	return out
}

func (r Reminder) IsOverdue(now time.Time) bool {
	return !r.Completed && r.DueDate.Before(now)
}

// IsUpcoming reports whether an open reminder falls due within [now, now+window].
func (r Reminder) IsUpcoming(now time.Time, window time.Duration) bool {
	if r.Completed || r.DueDate.Before(now) {
		return false
	}
	return !r.DueDate.After(now.Add(window))
}

// NewReminder carries the user supplied fields of a reminder to create. A nil
// Offsets means "use the preference defaults"; an empty non-nil slice means
// no notifications at all.
type NewReminder struct {
	Title       string       `json:"title" validate:"required,max=100"`
	Type        ReminderType `json:"type" validate:"required,oneof=homework test"`
	Description string       `json:"description" validate:"max=500"`
	Subject     string       `json:"subject"`
	DueDate     time.Time    `json:"dueDate"`
	Offsets     []Offset     `json:"reminderTimes"`
}

// Patch lists the fields of an update; nil pointers are left unchanged.
// Setting Offsets replaces the whole trigger schedule.
type Patch struct {
	Title       *string
	Type        *ReminderType
	Description *string
	Subject     *string
	DueDate     *time.Time
	Offsets     []Offset
}

func (p Patch) IsEmpty() bool {
	return p.Title == nil && p.Type == nil && p.Description == nil &&
		p.Subject == nil && p.DueDate == nil && p.Offsets == nil
}

// Validate checks a stored record. It does not look at the due date: a
// reminder is allowed to fall overdue after it was saved.
func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return errors.New("model: reminder title is required")
	}
	if !r.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidReminderType, r.Type)
	}
	if r.DueDate.IsZero() {
		return errors.New("model: reminder due date is required")
	}
	for i, tr := range r.ReminderTimes {
		if err := tr.Offset.Validate(); err != nil {
			return fmt.Errorf("model: reminder time %d: %w", i, err)
		}
	}
	return nil
}
