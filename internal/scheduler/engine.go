package scheduler

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/timeutil"
)

var (
	ErrStopped     = errors.New("scheduler: engine stopped")
	ErrUnsupported = errors.New("scheduler: notifications are not supported on this system")
)

type TriggerState string

const (
	StatePending TriggerState = "pending"
	StateArmed   TriggerState = "armed"
	StateFired   TriggerState = "fired"
	StateStale   TriggerState = "stale"
)

// SentMarker records a delivered trigger so it is not armed again after a
// restart.
type SentMarker interface {
	MarkTriggerSent(ctx context.Context, id string, index int) (bool, error)
}

// Gate is the user's notification preference.
type Gate interface {
	NotificationsEnabled() bool
	SetNotifications(ctx context.Context, enabled bool) error
}

type Delivery string

const (
	DeliveredPlatform Delivery = "platform"
	DeliveredInApp    Delivery = "in-app"
)

// ArmedTrigger is a trigger waiting for its deadline.
type ArmedTrigger struct {
	ReminderID   string
	Index        int
	Title        string
	Type         model.ReminderType
	DueDate      time.Time
	ScheduledFor time.Time
	FireAt       time.Time
}

type triggerKey struct {
	id    string
	index int
}

// firedKey marks a delivery the store has not confirmed yet. Entries live
// from popDue until a reconciled snapshot shows the trigger as sent.
type firedKey struct {
	id    string
	index int
	at    int64
}

type queueItem struct {
	trigger ArmedTrigger
}

type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].trigger.FireAt.Before(pq[j].trigger.FireAt)
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[0 : n-1]
	return item
}

type Option func(*Engine)

func WithClock(clock clockwork.Clock) Option {
	return func(e *Engine) { e.clock = clock }
}

func WithAlerter(a Alerter) Option {
	return func(e *Engine) { e.alerter = a }
}

func WithMarker(m SentMarker) Option {
	return func(e *Engine) { e.marker = m }
}

func WithGate(g Gate) Option {
	return func(e *Engine) { e.gate = g }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(e *Engine) { e.log = log }
}

// Engine arms one deadline per unsent trigger and fires it once. A single
// loop goroutine waits on the earliest deadline.
type Engine struct {
	clock    clockwork.Clock
	notifier Notifier
	alerter  Alerter
	marker   SentMarker
	gate     Gate
	log      logrus.FieldLogger
	ctx      context.Context
	cancel   context.CancelFunc

	mu      sync.Mutex
	queue   priorityQueue
	states  map[triggerKey]TriggerState
	fired   map[firedKey]struct{}
	wakeup  chan struct{}
	stopCh  chan struct{}
	doneCh  chan struct{}
	started bool
	stopped bool

	firedCount uint64
	failures   uint64
}

func NewEngine(notifier Notifier, opts ...Option) *Engine {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		clock:    clockwork.NewRealClock(),
		notifier: notifier,
		alerter:  NewChannelAlerter(64),
		log:      logging.Discard(),
		ctx:      ctx,
		cancel:   cancel,
		queue:    make(priorityQueue, 0),
		states:   make(map[triggerKey]TriggerState),
		fired:    make(map[firedKey]struct{}),
		wakeup:   make(chan struct{}, 1),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started || e.stopped {
		return
	}
	e.started = true
	heap.Init(&e.queue)
	go e.loop()
}

// Stop cancels every armed trigger and waits for the loop to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.cancelAllLocked()
	started := e.started
	if started {
		close(e.stopCh)
	}
	e.mu.Unlock()
	// a delivery already in flight still gets to mark its trigger sent
	if started {
		<-e.doneCh
	}
	e.cancel()
}

// Reconcile replaces the whole armed set with the unsent triggers of the
// open reminders given. Triggers already past fire on the next loop turn.
func (e *Engine) Reconcile(reminders []model.Reminder) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrStopped
	}
	now := e.clock.Now()
	e.cancelAllLocked()

	live := make(map[triggerKey]bool)
	armed, immediate := 0, 0
	for _, r := range reminders {
		for i, tr := range r.ReminderTimes {
			key := triggerKey{id: r.ID, index: i}
			live[key] = true
			if tr.Sent {
				// The store has recorded the delivery, so the ledger entry
				// is no longer needed. A later reset of Sent re-arms.
				delete(e.fired, firedKey{id: r.ID, index: i, at: tr.ScheduledFor.UnixNano()})
				e.states[key] = StateFired
				continue
			}
			if e.hasFiredLocked(r.ID, i, tr.ScheduledFor) {
				e.states[key] = StateFired
				continue
			}
			if r.Completed {
				if _, seen := e.states[key]; !seen {
					e.states[key] = StatePending
				}
				continue
			}
			fireAt := tr.ScheduledFor
			if !fireAt.After(now) {
				fireAt = now
				immediate++
			}
			heap.Push(&e.queue, queueItem{trigger: ArmedTrigger{
				ReminderID:   r.ID,
				Index:        i,
				Title:        r.Title,
				Type:         r.Type,
				DueDate:      r.DueDate,
				ScheduledFor: tr.ScheduledFor,
				FireAt:       fireAt,
			}})
			e.states[key] = StateArmed
			armed++
		}
	}
	for key := range e.states {
		if !live[key] {
			delete(e.states, key)
		}
	}
	for key := range e.fired {
		if !live[triggerKey{id: key.id, index: key.index}] {
			delete(e.fired, key)
		}
	}
	e.mu.Unlock()

	e.log.WithFields(logrus.Fields{"armed": armed, "immediate": immediate}).Debug("scheduler reconciled")
	e.signalWakeup()
	return nil
}

// cancelAllLocked marks every armed trigger stale and empties the queue.
func (e *Engine) cancelAllLocked() {
	for key, st := range e.states {
		if st == StateArmed {
			e.states[key] = StateStale
		}
	}
	e.queue = e.queue[:0]
}

func (e *Engine) hasFiredLocked(id string, index int, at time.Time) bool {
	_, ok := e.fired[firedKey{id: id, index: index, at: at.UnixNano()}]
	return ok
}

// Armed returns the armed triggers, earliest first.
func (e *Engine) Armed() []ArmedTrigger {
	e.mu.Lock()
	out := make([]ArmedTrigger, 0, len(e.queue))
	for _, item := range e.queue {
		out = append(out, item.trigger)
	}
	e.mu.Unlock()
	slices.SortStableFunc(out, func(a, b ArmedTrigger) int {
		return a.FireAt.Compare(b.FireAt)
	})
	return out
}

// State reports a trigger's state. Unknown triggers are pending.
func (e *Engine) State(reminderID string, index int) TriggerState {
	e.mu.Lock()
	defer e.mu.Unlock()
	if st, ok := e.states[triggerKey{id: reminderID, index: index}]; ok {
		return st
	}
	return StatePending
}

func (e *Engine) Fired() uint64 {
	return atomic.LoadUint64(&e.firedCount)
}

func (e *Engine) Failures() uint64 {
	return atomic.LoadUint64(&e.failures)
}

// SendTest shows a sample notification through the same path as reminders.
func (e *Engine) SendTest() Delivery {
	return e.deliver(Notification{
		Title: "Test Notification",
		Body:  "This is a test notification from Homework & Test Reminders.",
		Tag:   "test",
	}, logrus.Fields{"tag": "test"})
}

type NotificationStatus struct {
	Supported bool
	Permitted bool
	Enabled   bool
	CanShow   bool
}

func (e *Engine) Status() NotificationStatus {
	st := NotificationStatus{
		Supported: true,
		Permitted: e.notifier.Permitted(),
		Enabled:   e.gate == nil || e.gate.NotificationsEnabled(),
	}
	if s, ok := e.notifier.(interface{ Supported() bool }); ok {
		st.Supported = s.Supported()
	}
	st.CanShow = st.Supported && st.Permitted && st.Enabled
	return st
}

// ToggleNotifications asks for permission when it is missing and otherwise
// flips the user preference.
func (e *Engine) ToggleNotifications(ctx context.Context) (NotificationStatus, error) {
	status := e.Status()
	if !status.Supported {
		return status, ErrUnsupported
	}
	if !status.Permitted {
		perm, err := e.notifier.RequestPermission()
		if err != nil {
			return e.Status(), err
		}
		if perm == PermissionGranted && e.gate != nil {
			if err := e.gate.SetNotifications(ctx, true); err != nil {
				return e.Status(), err
			}
		}
		return e.Status(), nil
	}
	if e.gate != nil {
		if err := e.gate.SetNotifications(ctx, !status.Enabled); err != nil {
			return status, err
		}
	}
	return e.Status(), nil
}

func (e *Engine) loop() {
	defer close(e.doneCh)

	var timer clockwork.Timer
	for {
		next, hasNext := e.peek()
		if !hasNext {
			select {
			case <-e.wakeup:
				continue
			case <-e.stopCh:
				stopTimer(timer)
				return
			}
		}

		wait := next.FireAt.Sub(e.clock.Now())
		if wait < 0 {
			wait = 0
		}
		timer = e.resetTimer(timer, wait)

		select {
		case <-timer.Chan():
			for _, tr := range e.popDue(e.clock.Now()) {
				e.fire(tr)
			}
		case <-e.wakeup:
			continue
		case <-e.stopCh:
			stopTimer(timer)
			return
		}
	}
}

func (e *Engine) signalWakeup() {
	select {
	case e.wakeup <- struct{}{}:
	default:
	}
}

func (e *Engine) peek() (ArmedTrigger, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.queue) == 0 {
		return ArmedTrigger{}, false
	}
	return e.queue[0].trigger, true
}

// popDue removes the triggers whose deadline has passed and records them as
// fired before any delivery happens.
func (e *Engine) popDue(now time.Time) []ArmedTrigger {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]ArmedTrigger, 0)
	for len(e.queue) > 0 {
		next := e.queue[0].trigger
		if next.FireAt.After(now) {
			break
		}
		item := heap.Pop(&e.queue).(queueItem)
		tr := item.trigger
		if e.hasFiredLocked(tr.ReminderID, tr.Index, tr.ScheduledFor) {
			continue
		}
		e.fired[firedKey{id: tr.ReminderID, index: tr.Index, at: tr.ScheduledFor.UnixNano()}] = struct{}{}
		e.states[triggerKey{id: tr.ReminderID, index: tr.Index}] = StateFired
		out = append(out, tr)
	}
	return out
}

func (e *Engine) fire(tr ArmedTrigger) {
	fields := logrus.Fields{"reminder_id": tr.ReminderID, "trigger_index": tr.Index}
	defer func() {
		if r := recover(); r != nil {
			atomic.AddUint64(&e.failures, 1)
			e.log.WithFields(fields).Errorf("reminder delivery panicked: %v", r)
		}
	}()

	now := e.clock.Now()
	e.deliver(Notification{
		Title: "Reminder: " + tr.Title,
		Body:  fmt.Sprintf("Your %s is due %s.", tr.Type, timeutil.NotificationPhrase(tr.DueDate, now)),
		Tag:   tr.ReminderID,
	}, fields)
	atomic.AddUint64(&e.firedCount, 1)

	if e.marker == nil {
		return
	}
	ok, err := e.marker.MarkTriggerSent(e.ctx, tr.ReminderID, tr.Index)
	switch {
	case err != nil:
		atomic.AddUint64(&e.failures, 1)
		e.log.WithFields(fields).WithError(err).Error("recording sent trigger failed")
	case !ok:
		e.log.WithFields(fields).Debug("fired trigger no longer exists")
	}
}

// deliver prefers the platform notifier and falls back to an in-app alert
// when notifications are off, not permitted or the platform call fails.
func (e *Engine) deliver(n Notification, fields logrus.Fields) Delivery {
	enabled := e.gate == nil || e.gate.NotificationsEnabled()
	if enabled && e.notifier.Permitted() {
		handle, err := e.notifier.Deliver(n)
		if err == nil {
			e.log.WithFields(fields).WithField("handle", handle).Info("notification delivered")
			return DeliveredPlatform
		}
		atomic.AddUint64(&e.failures, 1)
		e.log.WithFields(fields).WithError(err).Warn("platform notification failed, showing in-app alert")
	}
	if e.alerter != nil {
		e.alerter.Alert(Alert{Title: n.Title, Body: n.Body, Tag: n.Tag, At: e.clock.Now()})
	}
	return DeliveredInApp
}

func (e *Engine) resetTimer(timer clockwork.Timer, d time.Duration) clockwork.Timer {
	if timer == nil {
		return e.clock.NewTimer(d)
	}
	stopTimer(timer)
	timer.Reset(d)
	return timer
}

func stopTimer(timer clockwork.Timer) {
	if timer == nil {
		return
	}
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
