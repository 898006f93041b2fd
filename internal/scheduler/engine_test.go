package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/mock/gomock"

	"github.com/sandeepkv93/studyd/internal/model"
)

var base = time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)

type markCall struct {
	id    string
	index int
}

type fakeMarker struct {
	mu    sync.Mutex
	calls []markCall
	ch    chan markCall
	err   error
}

func newFakeMarker() *fakeMarker {
	return &fakeMarker{ch: make(chan markCall, 64)}
}

func (m *fakeMarker) MarkTriggerSent(_ context.Context, id string, index int) (bool, error) {
	m.mu.Lock()
	m.calls = append(m.calls, markCall{id: id, index: index})
	m.mu.Unlock()
	m.ch <- markCall{id: id, index: index}
	return true, m.err
}

func (m *fakeMarker) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

type fakeGate struct {
	enabled atomic.Bool
}

func newFakeGate(enabled bool) *fakeGate {
	g := &fakeGate{}
	g.enabled.Store(enabled)
	return g
}

func (g *fakeGate) NotificationsEnabled() bool { return g.enabled.Load() }

func (g *fakeGate) SetNotifications(_ context.Context, enabled bool) error {
	g.enabled.Store(enabled)
	return nil
}

func reminderDue(id string, due time.Time, offsets ...model.Offset) model.Reminder {
	return model.Reminder{
		ID:            id,
		Title:         "Essay " + id,
		Type:          model.ReminderTypeHomework,
		DueDate:       due,
		CreatedAt:     base,
		UpdatedAt:     base,
		ReminderTimes: model.ComputeTriggers(due, offsets),
	}
}

func waitMark(t *testing.T, ch <-chan markCall) markCall {
	t.Helper()
	select {
	case call := <-ch:
		return call
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for trigger to fire")
		return markCall{}
	}
}

func waitTimer(t *testing.T, clock *clockwork.FakeClock) {
	t.Helper()
	ctx, cancel := context.WithTimeout(t.Context(), 2*time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("scheduler never armed a timer: %v", err)
	}
}

func TestEngineFiresTriggerOnceAtDeadline(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	clock := clockwork.NewFakeClockAt(base)
	marker := newFakeMarker()
	alerts := NewChannelAlerter(4)

	notifier.EXPECT().Permitted().Return(true).Times(1)
	notifier.EXPECT().Deliver(Notification{
		Title: "Reminder: Essay r1",
		Body:  "Your homework is due in less than an hour.",
		Tag:   "r1",
	}).Return("r1#1", nil).Times(1)

	engine := NewEngine(notifier, WithClock(clock), WithMarker(marker), WithGate(newFakeGate(true)), WithAlerter(alerts))
	engine.Start()
	defer engine.Stop()

	r := reminderDue("r1", base.Add(2*time.Hour), model.HoursBefore(1))
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	armed := engine.Armed()
	if len(armed) != 1 || !armed[0].FireAt.Equal(base.Add(time.Hour)) {
		t.Fatalf("unexpected armed set: %+v", armed)
	}
	if st := engine.State("r1", 0); st != StateArmed {
		t.Fatalf("expected armed, got %s", st)
	}

	waitTimer(t, clock)
	clock.Advance(59 * time.Minute)
	select {
	case <-marker.ch:
		t.Fatal("trigger fired before its deadline")
	case <-time.After(20 * time.Millisecond):
	}

	clock.Advance(time.Minute)
	call := waitMark(t, marker.ch)
	if call.id != "r1" || call.index != 0 {
		t.Fatalf("unexpected mark call: %+v", call)
	}
	if engine.State("r1", 0) != StateFired || engine.Fired() != 1 {
		t.Fatalf("expected fired state, got %s fired=%d", engine.State("r1", 0), engine.Fired())
	}

	// The stored copy may still read unsent; the ledger keeps it from firing again.
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile again: %v", err)
	}
	if len(engine.Armed()) != 0 {
		t.Fatalf("fired trigger must not be re-armed: %+v", engine.Armed())
	}
	clock.Advance(2 * time.Hour)
	if marker.count() != 1 {
		t.Fatalf("expected one mark call, got %d", marker.count())
	}
	if len(alerts.C()) != 0 {
		t.Fatal("platform delivery must not also raise an in-app alert")
	}
}

func TestEngineFiresPastTriggersImmediately(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	marker := newFakeMarker()
	alerts := NewChannelAlerter(4)
	engine := NewEngine(NoopNotifier{}, WithClock(clock), WithMarker(marker), WithAlerter(alerts))
	engine.Start()
	defer engine.Stop()

	r := reminderDue("late", base.Add(30*time.Minute), model.DaysBefore(1), model.HoursBefore(2))
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	first := waitMark(t, marker.ch)
	second := waitMark(t, marker.ch)
	if first.id != "late" || second.id != "late" || first.index == second.index {
		t.Fatalf("expected both triggers to fire, got %+v %+v", first, second)
	}

	alert := <-alerts.C()
	if alert.Title != "Reminder: Essay late" || alert.Tag != "late" {
		t.Fatalf("unexpected alert: %+v", alert)
	}
	if !alert.At.Equal(base) {
		t.Fatalf("expected alert at %v, got %v", base, alert.At)
	}
}

func TestEngineSkipsCompletedAndSentTriggers(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(NoopNotifier{}, WithClock(clock))

	done := reminderDue("done", base.Add(48*time.Hour), model.DaysBefore(1))
	done.Completed = true
	sent := reminderDue("sent", base.Add(48*time.Hour), model.DaysBefore(1), model.HoursBefore(1))
	sent.ReminderTimes[0].Sent = true

	if err := engine.Reconcile([]model.Reminder{done, sent}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	armed := engine.Armed()
	if len(armed) != 1 || armed[0].ReminderID != "sent" || armed[0].Index != 1 {
		t.Fatalf("expected only the unsent trigger armed, got %+v", armed)
	}
	if engine.State("done", 0) != StatePending {
		t.Fatalf("completed reminder trigger should stay pending, got %s", engine.State("done", 0))
	}
	if engine.State("sent", 0) != StateFired {
		t.Fatalf("sent trigger should read as fired, got %s", engine.State("sent", 0))
	}
}

func TestEngineReconcileCancelsPreviousSet(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(NoopNotifier{}, WithClock(clock))

	r := reminderDue("r1", base.Add(72*time.Hour), model.DaysBefore(1))
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	r.Completed = true
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(engine.Armed()) != 0 {
		t.Fatalf("completing must cancel the trigger: %+v", engine.Armed())
	}
	if engine.State("r1", 0) != StateStale {
		t.Fatalf("expected stale, got %s", engine.State("r1", 0))
	}

	moved := reminderDue("r1", base.Add(96*time.Hour), model.DaysBefore(1))
	if err := engine.Reconcile([]model.Reminder{moved}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	armed := engine.Armed()
	if len(armed) != 1 || !armed[0].FireAt.Equal(base.Add(72*time.Hour)) {
		t.Fatalf("expected re-armed trigger at new time, got %+v", armed)
	}

	if err := engine.Reconcile(nil); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(engine.Armed()) != 0 || engine.State("r1", 0) != StatePending {
		t.Fatal("removed reminder must leave nothing behind")
	}
}

func TestEngineArmedIsOrderedByFireTime(t *testing.T) {
	engine := NewEngine(NoopNotifier{}, WithClock(clockwork.NewFakeClockAt(base)))
	if err := engine.Reconcile([]model.Reminder{
		reminderDue("b", base.Add(10*24*time.Hour), model.DaysBefore(3), model.DaysBefore(7)),
		reminderDue("a", base.Add(5*24*time.Hour), model.HoursBefore(1)),
	}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	armed := engine.Armed()
	if len(armed) != 3 {
		t.Fatalf("expected 3 armed triggers, got %d", len(armed))
	}
	for i := 1; i < len(armed); i++ {
		if armed[i].FireAt.Before(armed[i-1].FireAt) {
			t.Fatalf("armed triggers out of order: %+v", armed)
		}
	}
	if armed[0].ReminderID != "b" || armed[0].Index != 1 {
		t.Fatalf("expected 7d trigger first, got %+v", armed[0])
	}
}

func TestDeliverFallsBackToInAppAlert(t *testing.T) {
	cases := []struct {
		name     string
		enabled  bool
		setup    func(n *MockNotifier)
		failures uint64
	}{
		{
			name:    "notifications disabled",
			enabled: false,
			setup:   func(*MockNotifier) {},
		},
		{
			name:    "permission missing",
			enabled: true,
			setup: func(n *MockNotifier) {
				n.EXPECT().Permitted().Return(false)
			},
		},
		{
			name:    "platform error",
			enabled: true,
			setup: func(n *MockNotifier) {
				n.EXPECT().Permitted().Return(true)
				n.EXPECT().Deliver(gomock.Any()).Return("", errors.New("dbus unavailable"))
			},
			failures: 1,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			notifier := NewMockNotifier(ctrl)
			tc.setup(notifier)
			alerts := NewChannelAlerter(1)
			engine := NewEngine(notifier,
				WithClock(clockwork.NewFakeClockAt(base)),
				WithGate(newFakeGate(tc.enabled)),
				WithAlerter(alerts),
			)

			if got := engine.SendTest(); got != DeliveredInApp {
				t.Fatalf("expected in-app delivery, got %s", got)
			}
			alert := <-alerts.C()
			if alert.Title != "Test Notification" || alert.Tag != "test" {
				t.Fatalf("unexpected alert: %+v", alert)
			}
			if engine.Failures() != tc.failures {
				t.Fatalf("expected %d failures, got %d", tc.failures, engine.Failures())
			}
		})
	}
}

func TestSendTestUsesPlatformWhenAllowed(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().Permitted().Return(true)
	notifier.EXPECT().Deliver(Notification{
		Title: "Test Notification",
		Body:  "This is a test notification from Homework & Test Reminders.",
		Tag:   "test",
	}).Return("test#1", nil)

	alerts := NewChannelAlerter(1)
	engine := NewEngine(notifier, WithGate(newFakeGate(true)), WithAlerter(alerts))
	if got := engine.SendTest(); got != DeliveredPlatform {
		t.Fatalf("expected platform delivery, got %s", got)
	}
	if len(alerts.C()) != 0 {
		t.Fatal("no in-app alert expected")
	}
}

func TestFireRecoversFromNotifierPanic(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().Permitted().Return(true)
	notifier.EXPECT().Deliver(gomock.Any()).DoAndReturn(func(Notification) (string, error) {
		panic("notifier exploded")
	})
	marker := newFakeMarker()
	engine := NewEngine(notifier, WithClock(clockwork.NewFakeClockAt(base)), WithMarker(marker))

	engine.fire(ArmedTrigger{ReminderID: "r1", Title: "Essay", Type: model.ReminderTypeHomework, DueDate: base.Add(time.Hour)})

	if engine.Failures() != 1 {
		t.Fatalf("expected panic counted as failure, got %d", engine.Failures())
	}
	if marker.count() != 0 {
		t.Fatal("a panicking delivery must not be recorded as sent")
	}
}

func TestFireCountsMarkerFailure(t *testing.T) {
	marker := newFakeMarker()
	marker.err = errors.New("disk full")
	engine := NewEngine(NoopNotifier{}, WithClock(clockwork.NewFakeClockAt(base)), WithMarker(marker))

	engine.fire(ArmedTrigger{ReminderID: "r1", Title: "Essay", Type: model.ReminderTypeTest, DueDate: base.Add(3 * 24 * time.Hour)})
	if engine.Fired() != 1 || engine.Failures() != 1 {
		t.Fatalf("expected fired=1 failures=1, got fired=%d failures=%d", engine.Fired(), engine.Failures())
	}
}

func TestStopCancelsAndRejectsReconcile(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	engine := NewEngine(NoopNotifier{}, WithClock(clock))
	engine.Start()
	if err := engine.Reconcile([]model.Reminder{reminderDue("r1", base.Add(48*time.Hour), model.DaysBefore(1))}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	engine.Stop()
	engine.Stop()

	if len(engine.Armed()) != 0 {
		t.Fatal("stop must cancel armed triggers")
	}
	if engine.State("r1", 0) != StateStale {
		t.Fatalf("expected stale after stop, got %s", engine.State("r1", 0))
	}
	if err := engine.Reconcile(nil); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
}

func TestToggleNotifications(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	var permitted atomic.Bool
	notifier.EXPECT().Permitted().DoAndReturn(permitted.Load).AnyTimes()
	notifier.EXPECT().RequestPermission().DoAndReturn(func() (Permission, error) {
		permitted.Store(true)
		return PermissionGranted, nil
	}).Times(1)

	gate := newFakeGate(false)
	engine := NewEngine(notifier, WithGate(gate))

	status, err := engine.ToggleNotifications(t.Context())
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if !status.CanShow || !gate.NotificationsEnabled() {
		t.Fatalf("granting permission should enable notifications: %+v", status)
	}

	status, err = engine.ToggleNotifications(t.Context())
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if status.Enabled || status.CanShow || gate.NotificationsEnabled() {
		t.Fatalf("second toggle should disable: %+v", status)
	}
}

func TestToggleNotificationsDenied(t *testing.T) {
	ctrl := gomock.NewController(t)
	notifier := NewMockNotifier(ctrl)
	notifier.EXPECT().Permitted().Return(false).AnyTimes()
	notifier.EXPECT().RequestPermission().Return(PermissionDenied, &model.PermissionError{Permission: "denied"})

	gate := newFakeGate(true)
	engine := NewEngine(notifier, WithGate(gate))
	status, err := engine.ToggleNotifications(t.Context())
	if !errors.Is(err, model.ErrPermission) {
		t.Fatalf("expected permission error, got %v", err)
	}
	if status.CanShow {
		t.Fatalf("denied permission cannot show: %+v", status)
	}
}

func TestEngineRearmsTriggerWhenSentIsReset(t *testing.T) {
	clock := clockwork.NewFakeClockAt(base)
	marker := newFakeMarker()
	engine := NewEngine(NoopNotifier{}, WithClock(clock), WithMarker(marker))
	engine.Start()
	defer engine.Stop()

	r := reminderDue("r1", base.Add(time.Hour), model.HoursBefore(1))
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	waitMark(t, marker.ch)

	sent := r.Clone()
	sent.ReminderTimes[0].Sent = true
	if err := engine.Reconcile([]model.Reminder{sent}); err != nil {
		t.Fatalf("reconcile sent: %v", err)
	}
	if engine.State("r1", 0) != StateFired {
		t.Fatalf("expected fired, got %s", engine.State("r1", 0))
	}

	// Re-saving the same offsets resets Sent while ScheduledFor is unchanged.
	if err := engine.Reconcile([]model.Reminder{r}); err != nil {
		t.Fatalf("reconcile reset: %v", err)
	}
	call := waitMark(t, marker.ch)
	if call.id != "r1" || call.index != 0 {
		t.Fatalf("unexpected mark call: %+v", call)
	}
	if engine.Fired() != 2 {
		t.Fatalf("expected the reset trigger to fire again, fired=%d", engine.Fired())
	}
}

type blockingMarker struct {
	entered chan struct{}
	release chan struct{}
	ctxErr  chan error
}

func (m *blockingMarker) MarkTriggerSent(ctx context.Context, _ string, _ int) (bool, error) {
	close(m.entered)
	<-m.release
	m.ctxErr <- ctx.Err()
	return true, nil
}

func TestStopLetsInFlightFireMarkSent(t *testing.T) {
	marker := &blockingMarker{
		entered: make(chan struct{}),
		release: make(chan struct{}),
		ctxErr:  make(chan error, 1),
	}
	engine := NewEngine(NoopNotifier{}, WithClock(clockwork.NewFakeClockAt(base)), WithMarker(marker))
	engine.Start()

	if err := engine.Reconcile([]model.Reminder{reminderDue("r1", base.Add(30*time.Minute), model.HoursBefore(1))}); err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	select {
	case <-marker.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("trigger never fired")
	}

	stopped := make(chan struct{})
	go func() {
		engine.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
		t.Fatal("Stop returned while a delivery was in flight")
	case <-time.After(20 * time.Millisecond):
	}
	close(marker.release)
	if err := <-marker.ctxErr; err != nil {
		t.Fatalf("in-flight mark saw a cancelled context: %v", err)
	}
	<-stopped
}
