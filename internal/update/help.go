package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/sandeepkv93/studyd/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.globalBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	return views.RenderHelpPanel(views.HelpPanelData{
		Bindings: plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
}

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Down + "/" + m.Keys.Up, Action: "move selection"},
		{Key: m.Keys.Toggle + "/space", Action: "toggle complete"},
		{Key: m.Keys.Delete, Action: "delete reminder"},
		{Key: m.Keys.Clear, Action: "clear completed"},
		{Key: m.Keys.Filter, Action: "cycle filter"},
		{Key: m.Keys.Search, Action: "search"},
		{Key: m.Keys.New, Action: "new reminder"},
		{Key: m.Keys.Palette, Action: "command palette"},
		{Key: m.Keys.Stats, Action: "toggle statistics"},
		{Key: m.Keys.Notify, Action: "toggle notifications"},
		{Key: m.Keys.TestSend, Action: "send test notification"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
