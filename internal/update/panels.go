package update

import (
	"fmt"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/timeutil"
	"github.com/sandeepkv93/studyd/internal/views"
)

func (m Model) renderListPane() string {
	days := m.dayLabels()
	rows := make([]views.ReminderRow, 0, len(m.Visible))
	for i, a := range m.Visible {
		rows = append(rows, views.ReminderRow{
			Position:  i + 1,
			ShortID:   shortID(a.ID),
			Title:     a.Title,
			Type:      string(a.Type),
			Subject:   a.Subject,
			Due:       timeutil.FormatDateTime(a.DueDate.In(m.location())),
			Countdown: a.Countdown.Text,
			Urgency:   string(a.Urgency),
			Completed: a.Completed,
			Day:       days[a.ID],
		})
	}
	empty := "(no reminders yet, press n to add one)"
	if m.store != nil && m.store.Len() > 0 {
		empty = "(no reminders match)"
	}
	search := ""
	if m.Search.Active {
		search = m.searchInput.View()
	}
	return views.RenderListPanel(views.ListPanelData{
		Filter:    string(m.Criteria.Kind),
		Query:     m.Criteria.Query,
		Rows:      rows,
		Cursor:    m.Cursor,
		Empty:     empty,
		Searching: m.Search.Active,
		Search:    search,
	})
}

// dayLabels names the calendar day group of every reminder matching the
// current criteria.
func (m Model) dayLabels() map[string]string {
	labels := make(map[string]string)
	if m.store == nil {
		return labels
	}
	now := m.now().In(m.location())
	for _, g := range m.store.GroupByDate(m.Criteria) {
		label := timeutil.FormatDate(g.Day)
		switch {
		case timeutil.IsToday(g.Day, now):
			label = "Today, " + label
		case timeutil.IsTomorrow(g.Day, now):
			label = "Tomorrow, " + label
		}
		for _, r := range g.Reminders {
			labels[r.ID] = label
		}
	}
	return labels
}

func (m Model) renderDetailPane() string {
	sel, ok := m.selected()
	if !ok {
		return views.RenderDetailPanel(views.DetailData{})
	}
	triggers := make([]string, 0, len(sel.ReminderTimes))
	for _, tr := range sel.ReminderTimes {
		triggers = append(triggers, describeTrigger(tr, m.location()))
	}
	return views.RenderDetailPanel(views.DetailData{
		Title:           sel.Title,
		Type:            string(sel.Type),
		Subject:         sel.Subject,
		Due:             timeutil.FormatDateTime(sel.DueDate.In(m.location())),
		Relative:        sel.Relative,
		Countdown:       sel.Countdown.Text,
		Urgency:         string(sel.Urgency),
		Completed:       sel.Completed,
		DueNote:         timeutil.DueNote(sel.DueDate.In(m.location()), m.now().In(m.location())),
		Triggers:        triggers,
		DescriptionView: m.detail.View(),
	})
}

func (m Model) renderDescription(md string) string {
	return views.RenderMarkdown(md, m.theme(), m.detail.Width)
}

func (m Model) renderStatsPane() string {
	if m.store == nil {
		return views.RenderStatsPanel(views.StatsData{})
	}
	st := m.store.Statistics()
	data := views.StatsData{
		Total:          st.Total,
		Completed:      st.Completed,
		Active:         st.Active,
		Overdue:        st.Overdue,
		Upcoming:       st.Upcoming,
		Homework:       st.Homework,
		Tests:          st.Tests,
		CompletionRate: st.CompletionRate,
	}
	for _, r := range m.store.Overdue() {
		data.OverdueItems = append(data.OverdueItems, m.summaryLine(r))
	}
	for _, r := range m.store.Upcoming(reminders.UpcomingWindow) {
		data.UpcomingItems = append(data.UpcomingItems, m.summaryLine(r))
	}
	if m.engine != nil {
		ns := m.engine.Status()
		data.Notifications = fmt.Sprintf("supported=%t permitted=%t enabled=%t", ns.Supported, ns.Permitted, ns.Enabled)
	}
	if usage, err := m.store.Usage(m.ctx); err == nil {
		data.Storage = formatUsage(usage, m.location())
	}
	return views.RenderStatsPanel(data)
}

func (m Model) summaryLine(r model.Reminder) string {
	return fmt.Sprintf("%s (%s, %s)", r.Title, r.Type, timeutil.RelativeTime(r.DueDate, m.now()))
}

func (m Model) renderToasts() string {
	toasts := make([]views.ToastData, 0, len(m.Toasts))
	for _, t := range m.Toasts {
		toasts = append(toasts, views.ToastData{Title: t.Title, Body: t.Body, Level: t.Level})
	}
	return views.RenderToasts(toasts)
}
