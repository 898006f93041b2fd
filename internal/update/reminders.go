package update

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/studyd/internal/commands"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/reminders"
	"github.com/sandeepkv93/studyd/internal/scheduler"
)

// refresh recomputes the visible list and keeps the cursor in range.
func (m *Model) refresh() {
	if m.store == nil {
		m.Visible = nil
		m.Cursor = 0
		return
	}
	m.Visible = m.store.WithUrgency(m.Criteria, m.now())
	if m.Cursor >= len(m.Visible) {
		m.Cursor = len(m.Visible) - 1
	}
	if m.Cursor < 0 {
		m.Cursor = 0
	}
	m.refreshDetail()
}

func (m *Model) refreshDetail() {
	sel, ok := m.selected()
	if !ok {
		m.detail.SetContent("")
		return
	}
	m.detail.SetContent(m.renderDescription(sel.Description))
}

func (m Model) selected() (reminders.Annotated, bool) {
	if m.Cursor < 0 || m.Cursor >= len(m.Visible) {
		return reminders.Annotated{}, false
	}
	return m.Visible[m.Cursor], true
}

// resolveTarget maps #n onto the visible list and anything else onto an id
// prefix.
func (m Model) resolveTarget(t commands.Target) (model.Reminder, error) {
	if t.Index > 0 {
		if t.Index > len(m.Visible) {
			return model.Reminder{}, &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: fmt.Sprintf("no reminder at %s", t)}
		}
		return m.Visible[t.Index-1].Reminder, nil
	}
	return m.store.Resolve(t.Ref)
}

func (m *Model) toggleSelected() {
	sel, ok := m.selected()
	if !ok {
		return
	}
	m.report(m.toggle(sel.ID))
}

func (m *Model) toggle(id string) (string, error) {
	r, err := m.store.ToggleComplete(m.ctx, id)
	if err != nil {
		return "", err
	}
	m.refresh()
	if r.Completed {
		return fmt.Sprintf("completed: %s", r.Title), nil
	}
	return fmt.Sprintf("reopened: %s", r.Title), nil
}

func (m *Model) removeSelected() {
	sel, ok := m.selected()
	if !ok {
		return
	}
	m.report(m.remove(sel.Reminder))
}

func (m *Model) remove(r model.Reminder) (string, error) {
	if err := m.store.Remove(m.ctx, r.ID); err != nil {
		return "", err
	}
	m.refresh()
	return fmt.Sprintf("deleted: %s", r.Title), nil
}

func (m *Model) clearCompleted() {
	m.report(m.clear())
}

func (m *Model) clear() (string, error) {
	n, err := m.store.ClearCompleted(m.ctx)
	if err != nil {
		return "", err
	}
	m.refresh()
	return fmt.Sprintf("cleared %d completed reminder(s)", n), nil
}

func (m *Model) toggleNotifications() {
	m.report(m.notifyToggle())
}

func (m *Model) notifyToggle() (string, error) {
	if m.engine == nil {
		return "", errors.New("notifications are not available")
	}
	st, err := m.engine.ToggleNotifications(m.ctx)
	if err != nil {
		var perr *model.PermissionError
		if errors.As(err, &perr) {
			return "", fmt.Errorf("desktop notifications %s, reminders will show in the app", perr.Permission)
		}
		return "", err
	}
	switch {
	case st.CanShow:
		return "notifications enabled", nil
	case !st.Enabled:
		return "notifications disabled", nil
	default:
		return "notifications enabled, in-app alerts only", nil
	}
}

func (m *Model) sendTest() {
	m.report(m.test())
}

func (m *Model) test() (string, error) {
	if m.engine == nil {
		return "", errors.New("notifications are not available")
	}
	if m.engine.SendTest() == scheduler.DeliveredPlatform {
		return "test notification sent", nil
	}
	return "test notification shown in the app", nil
}

func (m *Model) report(text string, err error) {
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		m.log.WithError(err).Warn("action failed")
		return
	}
	m.Status = StatusBar{Text: text}
}

func (m *Model) pushToast(title, body, level string) int {
	m.nextToast++
	m.Toasts = append(m.Toasts, Toast{
		ID:      m.nextToast,
		Title:   title,
		Body:    body,
		Level:   level,
		Expires: m.now().Add(toastLifetime),
	})
	if len(m.Toasts) > maxToasts {
		m.Toasts = m.Toasts[len(m.Toasts)-maxToasts:]
	}
	return m.nextToast
}

func (m *Model) dropToast(id int) {
	kept := make([]Toast, 0, len(m.Toasts))
	for _, t := range m.Toasts {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	m.Toasts = kept
}

func (m *Model) dropExpiredToasts(now time.Time) {
	kept := make([]Toast, 0, len(m.Toasts))
	for _, t := range m.Toasts {
		if now.Before(t.Expires) {
			kept = append(kept, t)
		}
	}
	m.Toasts = kept
}
