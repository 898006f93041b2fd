package update

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/scheduler"
	"github.com/sandeepkv93/studyd/internal/storage"
)

var testNow = time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *reminders.Store {
	t.Helper()
	seq := 0
	return reminders.NewStore(storage.NewMemoryKV(0),
		reminders.WithClock(func() time.Time { return testNow }),
		reminders.WithLocation(time.UTC),
		reminders.WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("rem-%04d", seq)
		}),
	)
}

func seedStore(t *testing.T) *reminders.Store {
	t.Helper()
	store := newTestStore(t)
	inputs := []model.NewReminder{
		{Title: "Essay draft", Type: model.ReminderTypeHomework, Subject: "English", DueDate: testNow.Add(72 * time.Hour)},
		{Title: "Chem quiz", Type: model.ReminderTypeTest, Subject: "Chemistry", DueDate: testNow.Add(20 * time.Hour)},
	}
	for _, in := range inputs {
		if _, err := store.Add(t.Context(), in); err != nil {
			t.Fatalf("seed add: %v", err)
		}
	}
	return store
}

func newTestModel(t *testing.T, store *reminders.Store) Model {
	t.Helper()
	return NewModel(Deps{
		Store: store,
		Now:   func() time.Time { return testNow },
		Loc:   time.UTC,
	})
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		case " ":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = press(t, m, string(r))
	}
	return m
}

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	if m.Criteria.Kind != reminders.FilterAll {
		t.Fatalf("expected filter all, got %q", m.Criteria.Kind)
	}
	if m.Keys.Quit != "q" {
		t.Fatalf("expected quit key q, got %q", m.Keys.Quit)
	}
	if len(m.Visible) != 2 {
		t.Fatalf("expected 2 visible reminders, got %d", len(m.Visible))
	}
	if m.Visible[0].Title != "Chem quiz" {
		t.Fatalf("expected earliest due first, got %q", m.Visible[0].Title)
	}
}

func TestPaletteAddCreatesReminder(t *testing.T) {
	store := newTestStore(t)
	m := newTestModel(t, store)

	m = press(t, m, "n")
	if !m.Palette.Active || m.Palette.Input != "add " {
		t.Fatalf("expected palette prefilled with add, got %#v", m.Palette)
	}
	m = typeText(t, m, "Lab report type:test due:2026-02-13 at:09:30 subject:AP_Bio")
	m = press(t, m, "enter")

	if m.Palette.Active {
		t.Fatal("expected palette closed after execute")
	}
	if m.Status.IsError {
		t.Fatalf("unexpected error status: %q", m.Status.Text)
	}
	all := store.All()
	if len(all) != 1 {
		t.Fatalf("expected 1 reminder, got %d", len(all))
	}
	r := all[0]
	if r.Title != "Lab report" || r.Type != model.ReminderTypeTest || r.Subject != "AP Bio" {
		t.Fatalf("unexpected reminder: %#v", r)
	}
	want := time.Date(2026, 2, 13, 9, 30, 0, 0, time.UTC)
	if !r.DueDate.Equal(want) {
		t.Fatalf("expected due %s, got %s", want, r.DueDate)
	}
	if !strings.Contains(m.Status.Text, "added test: Lab report") {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
}

func TestPaletteValidationErrorIsShown(t *testing.T) {
	store := newTestStore(t)
	m := newTestModel(t, store)

	m = press(t, m, ":")
	m = typeText(t, m, "add Old essay due:2026-02-01")
	m = press(t, m, "enter")

	if !m.Status.IsError {
		t.Fatalf("expected error status, got %#v", m.Status)
	}
	var verr *model.ValidationError
	if !errors.As(m.LastError, &verr) {
		t.Fatalf("expected validation error, got %v", m.LastError)
	}
	if store.Len() != 0 {
		t.Fatalf("expected nothing stored, got %d", store.Len())
	}
}

func TestPaletteEscCloses(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	m = press(t, m, ":")
	m = typeText(t, m, "stats")
	m = press(t, m, "esc")
	if m.Palette.Active || m.Palette.Input != "" {
		t.Fatalf("expected palette reset, got %#v", m.Palette)
	}
}

func TestPaletteTargetsByPosition(t *testing.T) {
	store := seedStore(t)
	m := newTestModel(t, store)

	m = press(t, m, ":")
	m = typeText(t, m, "done #2")
	m = press(t, m, "enter")

	r, err := store.Get("rem-0001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !r.Completed {
		t.Fatal("expected second visible reminder completed")
	}

	m = press(t, m, ":")
	m = typeText(t, m, "rm #9")
	m = press(t, m, "enter")
	if !m.Status.IsError || !strings.Contains(m.Status.Text, "#9") {
		t.Fatalf("expected out of range error, got %#v", m.Status)
	}
}

func TestPaletteEditByIDPrefix(t *testing.T) {
	store := seedStore(t)
	m := newTestModel(t, store)

	m = press(t, m, ":")
	m = typeText(t, m, "edit rem-0002 Chem unit test")
	m = press(t, m, "enter")

	r, err := store.Get("rem-0002")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if r.Title != "Chem unit test" {
		t.Fatalf("expected renamed reminder, got %q", r.Title)
	}
	if m.Visible[m.Cursor].ID != "rem-0002" {
		t.Fatalf("expected edited reminder selected, got %q", m.Visible[m.Cursor].ID)
	}
}

func TestToggleDeleteAndClearKeys(t *testing.T) {
	store := seedStore(t)
	m := newTestModel(t, store)

	m = press(t, m, "x")
	first, _ := store.Get(m.Visible[0].ID)
	if !first.Completed {
		t.Fatal("expected selected reminder completed")
	}
	m = press(t, m, " ")
	first, _ = store.Get(m.Visible[0].ID)
	if first.Completed {
		t.Fatal("expected space to reopen reminder")
	}

	m = press(t, m, "j", "x", "c")
	if store.Len() != 1 {
		t.Fatalf("expected clear to remove one completed reminder, got %d left", store.Len())
	}
	if !strings.Contains(m.Status.Text, "cleared 1") {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}

	m = press(t, m, "d")
	if store.Len() != 0 {
		t.Fatalf("expected delete to empty store, got %d", store.Len())
	}
	if len(m.Visible) != 0 || m.Cursor != 0 {
		t.Fatalf("expected empty list and cursor 0, got %d/%d", len(m.Visible), m.Cursor)
	}
}

func TestCursorStaysInRange(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	m = press(t, m, "j", "j", "j")
	if m.Cursor != 1 {
		t.Fatalf("expected cursor clamped at 1, got %d", m.Cursor)
	}
	m = press(t, m, "k", "k")
	if m.Cursor != 0 {
		t.Fatalf("expected cursor at 0, got %d", m.Cursor)
	}
}

func TestFilterKeyCycles(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	want := []reminders.FilterKind{
		reminders.FilterActive,
		reminders.FilterHomework,
		reminders.FilterTest,
		reminders.FilterCompleted,
		reminders.FilterAll,
	}
	counts := []int{2, 1, 1, 0, 2}
	for i, kind := range want {
		m = press(t, m, "f")
		if m.Criteria.Kind != kind {
			t.Fatalf("step %d: expected %q, got %q", i, kind, m.Criteria.Kind)
		}
		if len(m.Visible) != counts[i] {
			t.Fatalf("step %d: expected %d visible, got %d", i, counts[i], len(m.Visible))
		}
	}
}

func TestLiveSearch(t *testing.T) {
	m := newTestModel(t, seedStore(t))

	m = press(t, m, "/")
	if !m.Search.Active {
		t.Fatal("expected search active")
	}
	m = typeText(t, m, "chem")
	if len(m.Visible) != 1 || m.Visible[0].Title != "Chem quiz" {
		t.Fatalf("expected chem match only, got %#v", m.Visible)
	}
	m = press(t, m, "enter")
	if m.Search.Active || m.Criteria.Query != "chem" {
		t.Fatalf("expected committed query, got %#v / %q", m.Search, m.Criteria.Query)
	}

	m = press(t, m, "/", "esc")
	if m.Criteria.Query != "" || len(m.Visible) != 2 {
		t.Fatalf("expected cleared search, got %q with %d visible", m.Criteria.Query, len(m.Visible))
	}
}

func TestAlertMsgShowsToastUntilExpired(t *testing.T) {
	ch := make(chan scheduler.Alert, 1)
	m := NewModel(Deps{Store: newTestStore(t), Alerts: ch, Now: func() time.Time { return testNow }})

	updated, cmd := m.Update(AlertMsg{Alert: scheduler.Alert{Title: "Reminder: Essay", Body: "Your homework is due tomorrow."}})
	next := updated.(Model)
	if cmd == nil {
		t.Fatal("expected listener and expiry commands")
	}
	if len(next.Toasts) != 1 || next.Toasts[0].Title != "Reminder: Essay" {
		t.Fatalf("unexpected toasts: %#v", next.Toasts)
	}
	if !strings.Contains(next.View(), "Your homework is due tomorrow.") {
		t.Fatal("expected toast body in view")
	}

	updated, _ = next.Update(toastExpiredMsg{ID: next.Toasts[0].ID})
	next = updated.(Model)
	if len(next.Toasts) != 0 {
		t.Fatalf("expected toast removed, got %#v", next.Toasts)
	}
}

func TestToastsAreCapped(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	for i := 0; i < maxToasts+2; i++ {
		updated, _ := m.Update(AlertMsg{Alert: scheduler.Alert{Title: fmt.Sprintf("alert %d", i)}})
		m = updated.(Model)
	}
	if len(m.Toasts) != maxToasts {
		t.Fatalf("expected %d toasts, got %d", maxToasts, len(m.Toasts))
	}
	if m.Toasts[0].Title != "alert 2" {
		t.Fatalf("expected oldest toasts dropped, got %q", m.Toasts[0].Title)
	}
}

func TestRefreshTickDropsExpiredToasts(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	m.pushToast("old", "", "reminder")
	updated, cmd := m.Update(refreshTickMsg{At: testNow.Add(toastLifetime + time.Second)})
	next := updated.(Model)
	if len(next.Toasts) != 0 {
		t.Fatalf("expected expired toast dropped, got %#v", next.Toasts)
	}
	if cmd == nil {
		t.Fatal("expected next refresh tick")
	}
}

func TestInitWaitsForAlerts(t *testing.T) {
	ch := make(chan scheduler.Alert, 1)
	m := NewModel(Deps{Store: newTestStore(t), Alerts: ch})
	if cmd := m.Init(); cmd == nil {
		t.Fatal("expected init commands")
	}
	ch <- scheduler.Alert{Title: "hi"}
	msg := waitForAlertCmd(ch)()
	alert, ok := msg.(AlertMsg)
	if !ok || alert.Alert.Title != "hi" {
		t.Fatalf("unexpected msg: %#v", msg)
	}
	if waitForAlertCmd(nil) != nil {
		t.Fatal("expected nil command without a channel")
	}
}

func TestUpdateStatusAndError(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	updated, _ := m.Update(SetStatusMsg{Text: "ready"})
	next := updated.(Model)
	if next.Status.Text != "ready" || next.Status.IsError {
		t.Fatalf("unexpected status: %#v", next.Status)
	}

	updated, _ = next.Update(AppErrorMsg{Err: errors.New("boom")})
	next = updated.(Model)
	if !next.Status.IsError || next.Status.Text != "boom" {
		t.Fatalf("unexpected error status: %#v", next.Status)
	}

	updated, _ = next.Update(ClearStatusMsg{})
	next = updated.(Model)
	if next.Status.Text != "" {
		t.Fatalf("expected cleared status, got %q", next.Status.Text)
	}
}

func TestNotificationKeysWithoutEngine(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	m = press(t, m, "N")
	if !m.Status.IsError {
		t.Fatalf("expected error without engine, got %#v", m.Status)
	}
}

func TestSendTestFallsBackInApp(t *testing.T) {
	alerts := scheduler.NewChannelAlerter(1)
	engine := scheduler.NewEngine(scheduler.NoopNotifier{}, scheduler.WithAlerter(alerts))
	m := NewModel(Deps{Store: newTestStore(t), Engine: engine, Alerts: alerts.C()})

	m = press(t, m, "t")
	if !strings.Contains(m.Status.Text, "shown in the app") {
		t.Fatalf("unexpected status: %q", m.Status.Text)
	}
	select {
	case a := <-alerts.C():
		if a.Title != "Test Notification" {
			t.Fatalf("unexpected alert: %#v", a)
		}
	default:
		t.Fatal("expected in-app alert")
	}
}

func TestStatsAndHelpPanels(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	m = press(t, m, "s")
	if !m.ShowStats {
		t.Fatal("expected stats panel")
	}
	if out := m.View(); !strings.Contains(out, "total") {
		t.Fatalf("expected stats in view: %q", out)
	}
	m = press(t, m, "?")
	if !m.HelpVisible {
		t.Fatal("expected help panel")
	}
	if out := m.View(); !strings.Contains(out, "toggle complete") {
		t.Fatalf("expected bindings in help: %q", out)
	}
}

func TestViewShowsHeaderListAndStatus(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	m.Status = StatusBar{Text: "ready"}
	out := m.View()
	for _, want := range []string{"studyd", "filter: all", "Chem quiz", "Essay draft", "status: ready"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in view: %q", want, out)
		}
	}
}

func TestEmptyListMessage(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	if out := m.View(); !strings.Contains(out, "press n to add one") {
		t.Fatalf("expected empty hint: %q", out)
	}
}

func TestQuitKey(t *testing.T) {
	m := newTestModel(t, newTestStore(t))
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	next := updated.(Model)
	if !next.Quitting {
		t.Fatal("expected quitting state")
	}
	if cmd == nil {
		t.Fatal("expected quit command")
	}
}

func TestListGroupsByDueDay(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	out := m.View()
	tomorrow := strings.Index(out, "Tomorrow, Tue, Feb 10, 2026:")
	later := strings.Index(out, "Thu, Feb 12, 2026:")
	if tomorrow < 0 || later < 0 || tomorrow > later {
		t.Fatalf("expected day headings in due order: %q", out)
	}
}

func TestDetailShowsDueNote(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	if out := m.View(); !strings.Contains(out, "This reminder is due tomorrow") {
		t.Fatalf("expected due note for selected reminder: %q", out)
	}
}

func TestStatsListUpcomingReminders(t *testing.T) {
	m := newTestModel(t, seedStore(t))
	m = press(t, m, "s")
	out := m.View()
	if !strings.Contains(out, "due in the next 24h:") || !strings.Contains(out, "Chem quiz (test, in 20 hours)") {
		t.Fatalf("expected upcoming list in stats: %q", out)
	}
	if strings.Contains(out, "overdue now:") {
		t.Fatalf("expected no overdue list: %q", out)
	}
}
