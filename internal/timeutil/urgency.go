// Package timeutil holds the pure date arithmetic behind urgency badges,
// countdowns and relative due-date phrases. Every function takes the current
// instant as an argument.
package timeutil

import (
	"fmt"
	"time"
)

const Day = 24 * time.Hour

type Urgency string

const (
	UrgencyOverdue Urgency = "overdue"
	UrgencyHigh    Urgency = "high"
	UrgencyMedium  Urgency = "medium"
	UrgencyLow     Urgency = "low"
)

// Severity orders urgencies: overdue > high > medium > low.
func (u Urgency) Severity() int {
	switch u {
	case UrgencyOverdue:
		return 3
	case UrgencyHigh:
		return 2
	case UrgencyMedium:
		return 1
	default:
		return 0
	}
}

func UrgencyLevel(due, now time.Time) Urgency {
	diff := due.Sub(now)
	switch {
	case diff < 0:
		return UrgencyOverdue
	case diff < Day:
		return UrgencyHigh
	case diff < 3*Day:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

type Tone string

const (
	ToneDanger  Tone = "danger"
	ToneWarning Tone = "warning"
	ToneOK      Tone = "ok"
)

type Countdown struct {
	Overdue bool
	Days    int
	Hours   int
	Minutes int
	Text    string
	Tone    Tone
}

func CountdownTo(due, now time.Time) Countdown {
	diff := due.Sub(now)
	if diff < 0 {
		return Countdown{Overdue: true, Text: "Overdue", Tone: ToneDanger}
	}
	c := Countdown{
		Days:    int(diff / Day),
		Hours:   int(diff % Day / time.Hour),
		Minutes: int(diff % time.Hour / time.Minute),
		Tone:    ToneDanger,
	}
	switch {
	case c.Days > 0:
		c.Text = fmt.Sprintf("%dd %dh %dm", c.Days, c.Hours, c.Minutes)
		switch {
		case c.Days <= 1:
			c.Tone = ToneDanger
		case c.Days <= 3:
			c.Tone = ToneWarning
		default:
			c.Tone = ToneOK
		}
	case c.Hours > 0:
		c.Text = fmt.Sprintf("%dh %dm", c.Hours, c.Minutes)
	default:
		c.Text = fmt.Sprintf("%dm", c.Minutes)
	}
	return c
}
