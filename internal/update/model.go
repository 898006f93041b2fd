package update

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/scheduler"
)

const (
	refreshInterval = 30 * time.Second
	toastLifetime   = 5 * time.Second
	maxToasts       = 4
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Up       string
	Down     string
	Toggle   string
	Delete   string
	Clear    string
	Filter   string
	Search   string
	Palette  string
	New      string
	Stats    string
	Notify   string
	TestSend string
	Help     string
	Quit     string
}

type Toast struct {
	ID      int
	Title   string
	Body    string
	Level   string
	Expires time.Time
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type SearchState struct {
	Active bool
	Input  string
}

// Deps are the collaborators the TUI drives. Only Store is required.
type Deps struct {
	Store  *reminders.Store
	Prefs  *reminders.PreferencesStore
	Engine *scheduler.Engine
	Alerts <-chan scheduler.Alert
	Now    func() time.Time
	Loc    *time.Location
	Log    logrus.FieldLogger
}

type Model struct {
	Criteria    reminders.Criteria
	Cursor      int
	Visible     []reminders.Annotated
	Palette     CommandPaletteState
	Search      SearchState
	HelpVisible bool
	ShowStats   bool
	Toasts      []Toast
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error
	Width       int

	ctx       context.Context
	store     *reminders.Store
	prefs     *reminders.PreferencesStore
	engine    *scheduler.Engine
	alerts    <-chan scheduler.Alert
	now       func() time.Time
	loc       *time.Location
	log       logrus.FieldLogger
	nextToast int

	commandInput textinput.Model
	searchInput  textinput.Model
	helpModel    help.Model
	detail       viewport.Model
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

// AlertMsg carries an in-app reminder from the scheduler fallback.
type AlertMsg struct {
	Alert scheduler.Alert
}

type toastExpiredMsg struct {
	ID int
}

type refreshTickMsg struct {
	At time.Time
}

func DefaultKeys() GlobalKeyMap {
	return GlobalKeyMap{
		Up:       "k",
		Down:     "j",
		Toggle:   "x",
		Delete:   "d",
		Clear:    "c",
		Filter:   "f",
		Search:   "/",
		Palette:  ":",
		New:      "n",
		Stats:    "s",
		Notify:   "N",
		TestSend: "t",
		Help:     "?",
		Quit:     "q",
	}
}

func NewModel(deps Deps) Model {
	m := Model{
		Criteria: reminders.Criteria{Kind: reminders.FilterAll},
		Keys:     DefaultKeys(),
		ctx:      context.Background(),
		store:    deps.Store,
		prefs:    deps.Prefs,
		engine:   deps.Engine,
		alerts:   deps.Alerts,
		now:      deps.Now,
		loc:      deps.Loc,
		log:      deps.Log,
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.loc == nil {
		m.loc = time.Local
	}
	if m.log == nil {
		m.log = logging.Discard()
	}
	m.initBubbleComponents()
	m.refresh()
	return m
}

func (m *Model) initBubbleComponents() {
	m.commandInput = textinput.New()
	m.commandInput.Prompt = ":"
	m.commandInput.CharLimit = 700
	m.commandInput.Width = 52

	m.searchInput = textinput.New()
	m.searchInput.Prompt = "search> "
	m.searchInput.CharLimit = 100
	m.searchInput.Width = 40

	m.helpModel = help.New()
	m.detail = viewport.New(54, 14)
}

func (m Model) theme() string {
	if m.prefs == nil {
		return ""
	}
	return m.prefs.Get().Theme
}

func (m Model) location() *time.Location {
	return m.loc
}
