package model

import "strings"

const DefaultTheme = "dark"

type Preferences struct {
	Notifications        bool     `json:"notifications"`
	DefaultReminderTimes []Offset `json:"defaultReminderTimes"`
	Theme                string   `json:"theme"`
}

// DefaultPreferences is a week, three days, one day and one hour ahead.
func DefaultPreferences() Preferences {
	return Preferences{
		Notifications: true,
		DefaultReminderTimes: []Offset{
			DaysBefore(7),
			DaysBefore(3),
			DaysBefore(1),
			HoursBefore(1),
		},
		Theme: DefaultTheme,
	}
}

func (p Preferences) Clone() Preferences {
	out := p
	if p.DefaultReminderTimes != nil {
		out.DefaultReminderTimes = make([]Offset, len(p.DefaultReminderTimes))
		for i, o := range p.DefaultReminderTimes {
			out.DefaultReminderTimes[i] = o.clone()
		}
	}
	return out
}

// Normalize fills empty fields from the defaults and drops invalid offsets.
func (p Preferences) Normalize() Preferences {
	def := DefaultPreferences()
	out := p.Clone()
	if strings.TrimSpace(out.Theme) == "" {
		out.Theme = def.Theme
	}
	if out.DefaultReminderTimes == nil {
		out.DefaultReminderTimes = def.DefaultReminderTimes
		return out
	}
	kept := out.DefaultReminderTimes[:0]
	for _, o := range out.DefaultReminderTimes {
		if o.Validate() == nil {
			kept = append(kept, o)
		}
	}
	out.DefaultReminderTimes = kept
	return out
}
