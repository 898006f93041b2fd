package update

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/views"
)

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForAlertCmd(m.alerts), refreshTickCmd())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = typed.Width
		m.detail.Width = views.PaneWidth(typed.Width) - 2
		m.refresh()
		return m, nil
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help && m.Palette.Input == "" {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			return m.handlePaletteKey(typed)
		}
		if m.Search.Active {
			return m.handleSearchKey(typed), nil
		}
		return m.handleKey(typed)
	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil
	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil
	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil
	case AlertMsg:
		id := m.pushToast(typed.Alert.Title, typed.Alert.Body, "reminder")
		m.refresh()
		return m, tea.Batch(waitForAlertCmd(m.alerts), expireToastCmd(id))
	case toastExpiredMsg:
		m.dropToast(typed.ID)
		return m, nil
	case refreshTickMsg:
		m.dropExpiredToasts(typed.At)
		m.refresh()
		return m, refreshTickCmd()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", m.Keys.Quit:
		m.Quitting = true
		return m, tea.Quit
	case m.Keys.Down, "down":
		if m.Cursor < len(m.Visible)-1 {
			m.Cursor++
			m.refreshDetail()
		}
	case m.Keys.Up, "up":
		if m.Cursor > 0 {
			m.Cursor--
			m.refreshDetail()
		}
	case m.Keys.Toggle, " ":
		m.toggleSelected()
	case m.Keys.Delete:
		m.removeSelected()
	case m.Keys.Clear:
		m.clearCompleted()
	case m.Keys.Filter:
		m.Criteria.Kind = m.Criteria.Kind.Next()
		m.Cursor = 0
		m.refresh()
		m.Status = StatusBar{Text: fmt.Sprintf("filter: %s", m.Criteria.Kind)}
	case m.Keys.Search:
		m.Search = SearchState{Active: true, Input: m.Criteria.Query}
		m.searchInput.SetValue(m.Criteria.Query)
		m.searchInput.Focus()
	case m.Keys.Palette:
		m.openPalette("")
	case m.Keys.New:
		m.openPalette("add ")
	case m.Keys.Stats:
		m.ShowStats = !m.ShowStats
	case m.Keys.Notify:
		m.toggleNotifications()
	case m.Keys.TestSend:
		m.sendTest()
	case m.Keys.Help:
		m.HelpVisible = !m.HelpVisible
	}
	return m, nil
}

func (m *Model) openPalette(prefill string) {
	m.Palette = CommandPaletteState{Active: true, Input: prefill}
	m.commandInput.SetValue(prefill)
	m.commandInput.CursorEnd()
	m.commandInput.Focus()
	m.Status = StatusBar{Text: "command palette active"}
}

func (m Model) handleSearchKey(msg tea.KeyMsg) Model {
	switch msg.String() {
	case "esc":
		m.Search = SearchState{}
		m.searchInput.Blur()
		m.Criteria.Query = ""
	case "enter":
		m.Search.Active = false
		m.searchInput.Blur()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.searchInput.SetValue(m.searchInput.Value() + string(msg.Runes))
		} else {
			m.searchInput, _ = m.searchInput.Update(msg)
		}
		m.Search.Input = m.searchInput.Value()
		m.Criteria.Query = strings.TrimSpace(m.Search.Input)
	}
	m.Cursor = 0
	m.refresh()
	return m
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	right := m.renderDetailPane()
	if m.ShowStats {
		right = m.renderStatsPane()
	}
	if m.HelpVisible {
		right = m.renderHelpView()
	}
	left := m.renderListPane()
	if m.Palette.Active {
		left = views.RenderCommandPalette(true, m.commandInput.View()) + "\n\n" + left
	}

	return views.RenderApp(views.AppData{
		Header:       m.header(),
		LeftPane:     left,
		RightPane:    right,
		StatusLine:   status,
		StatusError:  m.Status.IsError,
		Notification: m.renderToasts(),
		Footer: fmt.Sprintf("keys: %s/%s move | %s done | %s delete | %s clear | %s filter | %s search | %s new | %s cmd | %s help | %s quit",
			m.Keys.Down, m.Keys.Up, m.Keys.Toggle, m.Keys.Delete, m.Keys.Clear, m.Keys.Filter, m.Keys.Search, m.Keys.New, m.Keys.Palette, m.Keys.Help, m.Keys.Quit),
		Width: m.Width,
	})
}

func (m Model) header() string {
	h := fmt.Sprintf("studyd | filter: %s | %d shown", m.Criteria.Kind, len(m.Visible))
	if m.engine != nil {
		st := m.engine.Status()
		switch {
		case st.CanShow:
			h += " | notifications on"
		case !st.Enabled:
			h += " | notifications off"
		default:
			h += " | in-app alerts only"
		}
	}
	return h
}

func waitForAlertCmd(ch <-chan scheduler.Alert) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		a, ok := <-ch
		if !ok {
			return nil
		}
		return AlertMsg{Alert: a}
	}
}

func expireToastCmd(id int) tea.Cmd {
	return tea.Tick(toastLifetime, func(time.Time) tea.Msg { return toastExpiredMsg{ID: id} })
}

func refreshTickCmd() tea.Cmd {
	return tea.Tick(refreshInterval, func(at time.Time) tea.Msg { return refreshTickMsg{At: at} })
}
