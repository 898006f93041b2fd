package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidOffset = errors.New("model: invalid reminder offset")

// Offset is a lead time ahead of a due date. Exactly one of DaysBefore and
// HoursBefore is set.
type Offset struct {
	DaysBefore  *int `json:"daysBefore,omitempty"`
	HoursBefore *int `json:"hoursBefore,omitempty"`
}

func DaysBefore(n int) Offset {
	return Offset{DaysBefore: &n}
}

func HoursBefore(n int) Offset {
	return Offset{HoursBefore: &n}
}

func (o Offset) Validate() error {
	switch {
	case o.DaysBefore != nil && o.HoursBefore != nil:
		return fmt.Errorf("%w: both daysBefore and hoursBefore set", ErrInvalidOffset)
	case o.DaysBefore == nil && o.HoursBefore == nil:
		return fmt.Errorf("%w: neither daysBefore nor hoursBefore set", ErrInvalidOffset)
	case o.DaysBefore != nil && *o.DaysBefore < 0:
		return fmt.Errorf("%w: daysBefore %d", ErrInvalidOffset, *o.DaysBefore)
	case o.HoursBefore != nil && *o.HoursBefore < 0:
		return fmt.Errorf("%w: hoursBefore %d", ErrInvalidOffset, *o.HoursBefore)
	}
	return nil
}

// Apply returns the instant the offset points at for the given due date. Day
// offsets move by calendar days in due's location.
func (o Offset) Apply(due time.Time) time.Time {
	if o.DaysBefore != nil {
		return due.AddDate(0, 0, -*o.DaysBefore)
	}
	if o.HoursBefore != nil {
		return due.Add(-time.Duration(*o.HoursBefore) * time.Hour)
	}
	return due
}

func (o Offset) String() string {
	if o.DaysBefore != nil {
		return strconv.Itoa(*o.DaysBefore) + "d"
	}
	if o.HoursBefore != nil {
		return strconv.Itoa(*o.HoursBefore) + "h"
	}
	return ""
}

func (o Offset) clone() Offset {
	out := Offset{}
	if o.DaysBefore != nil {
		v := *o.DaysBefore
		out.DaysBefore = &v
	}
	if o.HoursBefore != nil {
		v := *o.HoursBefore
		out.HoursBefore = &v
	}
	return out
}

// ParseOffset accepts "7d" or "1h".
func ParseOffset(raw string) (Offset, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) < 2 {
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	n, err := strconv.Atoi(s[:len(s)-1])
	if err != nil || n < 0 {
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
	switch s[len(s)-1] {
	case 'd':
		return DaysBefore(n), nil
	case 'h':
		return HoursBefore(n), nil
	default:
		return Offset{}, fmt.Errorf("%w: %q", ErrInvalidOffset, raw)
	}
}

// ParseOffsets splits comma separated offsets; each element of raw may itself
// hold a comma separated list.
func ParseOffsets(raw ...string) ([]Offset, error) {
	out := make([]Offset, 0, len(raw))
	for _, chunk := range raw {
		for _, token := range strings.Split(chunk, ",") {
			if strings.TrimSpace(token) == "" {
				continue
			}
			o, err := ParseOffset(token)
			if err != nil {
				return nil, err
			}
			out = append(out, o)
		}
	}
	return out, nil
}

// Trigger is one scheduled notification of a reminder.
type Trigger struct {
	Offset
	ScheduledFor time.Time `json:"scheduledFor"`
	Sent         bool      `json:"sent"`
}

// ComputeTriggers derives a fresh, unsent trigger per offset, keeping the
// offsets' order.
func ComputeTriggers(due time.Time, offsets []Offset) []Trigger {
	out := make([]Trigger, 0, len(offsets))
	for _, o := range offsets {
		out = append(out, Trigger{
			Offset:       o.clone(),
			ScheduledFor: o.Apply(due).UTC(),
		})
	}
	return out
}
