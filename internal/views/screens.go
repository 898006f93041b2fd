package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type ReminderRow struct {
	Position  int
	ShortID   string
	Title     string
	Type      string
	Subject   string
	Due       string
	Countdown string
	Urgency   string
	Completed bool
	// Day heads a group of rows; consecutive rows share it.
	Day string
}

type ListPanelData struct {
	Filter    string
	Query     string
	Rows      []ReminderRow
	Cursor    int
	Empty     string
	Searching bool
	Search    string
}

type DetailData struct {
	Title           string
	Type            string
	Subject         string
	Due             string
	Relative        string
	Countdown       string
	Urgency         string
	Completed       bool
	DueNote         string
	Triggers        []string
	DescriptionView string
}

type StatsData struct {
	Total          int
	Completed      int
	Active         int
	Overdue        int
	Upcoming       int
	Homework       int
	Tests          int
	CompletionRate int
	UpcomingItems  []string
	OverdueItems   []string
	Notifications  string
	Storage        string
}

type ToastData struct {
	Title string
	Body  string
	Level string
}

type HelpPanelData struct {
	Bindings []string
	HelpView string
}

var (
	urgencyStyles = map[string]lipgloss.Style{
		"overdue": lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		"high":    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		"medium":  lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		"low":     lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
	}
	completedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	cursorStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	labelStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	headingStyle   = lipgloss.NewStyle().Bold(true).Underline(true)
	toastStyles    = map[string]lipgloss.Style{
		"reminder": lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("208")).Padding(0, 1),
		"error":    lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("9")).Padding(0, 1),
		"info":     lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("12")).Padding(0, 1),
	}
)

// UrgencyBadge is the coloured marker in front of each row.
func UrgencyBadge(urgency string, completed bool) string {
	if completed {
		return completedStyle.Render("[done]")
	}
	style, ok := urgencyStyles[urgency]
	if !ok {
		return "[" + urgency + "]"
	}
	return style.Render("[" + strings.ToUpper(urgency) + "]")
}

func RenderListPanel(data ListPanelData) string {
	var b strings.Builder
	header := fmt.Sprintf("reminders (%s)", data.Filter)
	if data.Query != "" {
		header += fmt.Sprintf(" matching %q", data.Query)
	}
	b.WriteString(header + ":\n")
	if data.Searching {
		b.WriteString(data.Search + "\n")
	}
	if len(data.Rows) == 0 {
		empty := data.Empty
		if empty == "" {
			empty = "(nothing here)"
		}
		b.WriteString(labelStyle.Render(empty))
		return b.String()
	}
	day := ""
	for i, row := range data.Rows {
		if row.Day != "" && row.Day != day {
			day = row.Day
			b.WriteString(headingStyle.Render(day+":") + "\n")
		}
		cursor := " "
		if i == data.Cursor {
			cursor = cursorStyle.Render(">")
		}
		title := row.Title
		if row.Completed {
			title = completedStyle.Render(title)
		}
		line := fmt.Sprintf("%s #%d %s %s [%s]", cursor, row.Position, UrgencyBadge(row.Urgency, row.Completed), title, row.Type)
		if row.Subject != "" {
			line += " " + labelStyle.Render(row.Subject)
		}
		b.WriteString(line + "\n")
		b.WriteString(fmt.Sprintf("     %s  %s  %s\n", labelStyle.Render(row.ShortID), row.Due, row.Countdown))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderDetailPanel(data DetailData) string {
	if data.Title == "" {
		return "details:\n(no selection)"
	}
	var b strings.Builder
	b.WriteString("details:\n")
	b.WriteString(lipgloss.NewStyle().Bold(true).Render(data.Title) + "\n")
	b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("type:"), data.Type))
	if data.Subject != "" {
		b.WriteString(fmt.Sprintf("%s %s\n", labelStyle.Render("subject:"), data.Subject))
	}
	b.WriteString(fmt.Sprintf("%s %s (%s)\n", labelStyle.Render("due:"), data.Due, data.Relative))
	b.WriteString(fmt.Sprintf("%s %s %s\n", labelStyle.Render("countdown:"), data.Countdown, UrgencyBadge(data.Urgency, data.Completed)))
	if data.DueNote != "" {
		b.WriteString(labelStyle.Render(data.DueNote) + "\n")
	}
	if len(data.Triggers) > 0 {
		b.WriteString(labelStyle.Render("reminders:") + "\n")
		for _, tr := range data.Triggers {
			b.WriteString("  - " + tr + "\n")
		}
	}
	if data.DescriptionView != "" {
		b.WriteString("\n" + data.DescriptionView)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderStatsPanel(data StatsData) string {
	var b strings.Builder
	b.WriteString("statistics:\n")
	b.WriteString(fmt.Sprintf("total: %d  active: %d  completed: %d (%d%%)\n", data.Total, data.Active, data.Completed, data.CompletionRate))
	b.WriteString(fmt.Sprintf("overdue: %s  due in 24h: %s\n",
		urgencyStyles["overdue"].Render(fmt.Sprint(data.Overdue)),
		urgencyStyles["high"].Render(fmt.Sprint(data.Upcoming))))
	b.WriteString(fmt.Sprintf("homework: %d  tests: %d\n", data.Homework, data.Tests))
	writeList(&b, "overdue now:", data.OverdueItems)
	writeList(&b, "due in the next 24h:", data.UpcomingItems)
	if data.Notifications != "" {
		b.WriteString("notifications: " + data.Notifications + "\n")
	}
	if data.Storage != "" {
		b.WriteString("storage: " + data.Storage + "\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString(labelStyle.Render(label) + "\n")
	for _, item := range items {
		b.WriteString("  - " + item + "\n")
	}
}

func RenderToasts(toasts []ToastData) string {
	if len(toasts) == 0 {
		return ""
	}
	out := make([]string, 0, len(toasts))
	for _, t := range toasts {
		style, ok := toastStyles[t.Level]
		if !ok {
			style = toastStyles["info"]
		}
		out = append(out, style.Render(lipgloss.NewStyle().Bold(true).Render(t.Title)+"\n"+t.Body))
	}
	return strings.Join(out, "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: %s", input)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\n%s\n%s\n\ncommands:\n%s",
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
		strings.Join(CommandHelp, "\n"),
	)
}

// CommandHelp lists the palette verbs.
var CommandHelp = []string{
	"add <title> due:<day> [at:HH:MM] [type:test] [subject:x] [remind:7d,1h] [note: text]",
	"edit <#n|id> [title words] [due:] [at:] [type:] [subject:] [remind:] [note:]",
	"done <#n|id>   rm <#n|id>   clear",
	"filter <all|active|homework|test|completed>   search <text>",
	"stats   notify   test",
}
