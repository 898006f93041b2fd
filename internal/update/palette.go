package update

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/studyd/internal/commands"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.closePalette()
		m.Status = StatusBar{Text: "command palette closed"}
	case "enter":
		m.Palette.Input = m.commandInput.Value()
		m = m.executePaletteCommand()
	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.commandInput.SetValue(m.commandInput.Value() + string(msg.Runes))
			m.commandInput.CursorEnd()
			m.Palette.Input = m.commandInput.Value()
			return m, nil
		}
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
	return m, nil
}

func (m *Model) closePalette() {
	m.Palette = CommandPaletteState{}
	m.commandInput.SetValue("")
	m.commandInput.Blur()
}

func (m Model) executePaletteCommand() Model {
	raw := strings.TrimSpace(m.Palette.Input)
	cmd, err := commands.Parse(raw)
	if err != nil {
		m.report("", err)
		m.closePalette()
		return m
	}

	res, err := commands.Execute(cmd, m.handlers())
	if err != nil {
		m.report("", err)
	} else {
		m.report(res.Message, nil)
	}
	m.closePalette()
	return m
}

// handlers binds palette verbs to the store and scheduler. Closures write
// through the pointer so filter and search changes stick.
func (m *Model) handlers() commands.Handlers {
	result := func(text string, err error) (commands.Result, error) {
		return commands.Result{Message: text}, err
	}
	return commands.Handlers{
		Add: func(a commands.AddArgs) (commands.Result, error) {
			in, err := a.NewReminder(m.now())
			if err != nil {
				return commands.Result{}, err
			}
			r, err := m.store.Add(m.ctx, in)
			if err != nil {
				return commands.Result{}, err
			}
			m.refresh()
			m.selectID(r.ID)
			return commands.Result{Message: fmt.Sprintf("added %s: %s", r.Type, r.Title)}, nil
		},
		Edit: func(e commands.EditArgs) (commands.Result, error) {
			target, err := m.resolveTarget(e.Target)
			if err != nil {
				return commands.Result{}, err
			}
			patch, err := e.Patch(m.now())
			if err != nil {
				return commands.Result{}, err
			}
			r, err := m.store.Update(m.ctx, target.ID, patch)
			if err != nil {
				return commands.Result{}, err
			}
			m.refresh()
			m.selectID(r.ID)
			return commands.Result{Message: fmt.Sprintf("updated: %s", r.Title)}, nil
		},
		Done: func(t commands.Target) (commands.Result, error) {
			target, err := m.resolveTarget(t)
			if err != nil {
				return commands.Result{}, err
			}
			return result(m.toggle(target.ID))
		},
		Remove: func(t commands.Target) (commands.Result, error) {
			target, err := m.resolveTarget(t)
			if err != nil {
				return commands.Result{}, err
			}
			return result(m.remove(target))
		},
		Clear: func() (commands.Result, error) {
			return result(m.clear())
		},
		Filter: func(f commands.FilterArgs) (commands.Result, error) {
			m.Criteria.Kind = f.Kind
			m.Cursor = 0
			m.refresh()
			return commands.Result{Message: fmt.Sprintf("filter: %s", f.Kind)}, nil
		},
		Search: func(s commands.SearchArgs) (commands.Result, error) {
			m.Criteria.Query = strings.TrimSpace(s.Query)
			m.Cursor = 0
			m.refresh()
			if m.Criteria.Query == "" {
				return commands.Result{Message: "search cleared"}, nil
			}
			return commands.Result{Message: fmt.Sprintf("%d match(es) for %q", len(m.Visible), m.Criteria.Query)}, nil
		},
		Stats: func() (commands.Result, error) {
			m.ShowStats = true
			st := m.store.Statistics()
			return commands.Result{Message: fmt.Sprintf("%d total, %d active, %d overdue, %d%% complete", st.Total, st.Active, st.Overdue, st.CompletionRate)}, nil
		},
		Notify: func() (commands.Result, error) {
			return result(m.notifyToggle())
		},
		Test: func() (commands.Result, error) {
			return result(m.test())
		},
	}
}

func (m *Model) selectID(id string) {
	for i, a := range m.Visible {
		if a.ID == id {
			m.Cursor = i
			m.refreshDetail()
			return
		}
	}
}
