// Package reminders owns the in-memory reminder collection and writes it
// through to a storage.KV after every change.
package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

// OffsetSource supplies the offsets used when a new reminder names none.
type OffsetSource interface {
	DefaultOffsets() []model.Offset
}

type staticOffsets []model.Offset

func (s staticOffsets) DefaultOffsets() []model.Offset { return s }

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

func WithDefaults(src OffsetSource) Option {
	return func(s *Store) { s.defaults = src }
}

// WithLocation sets the zone used to group reminders by calendar day.
func WithLocation(loc *time.Location) Option {
	return func(s *Store) { s.loc = loc }
}

type Store struct {
	kv       storage.KV
	defaults OffsetSource
	now      func() time.Time
	newID    func() string
	loc      *time.Location
	log      logrus.FieldLogger

	mu      sync.Mutex
	items   []model.Reminder
	version uint64

	subMu       sync.Mutex
	subscribers []func([]model.Reminder)

	// pubMu orders deliveries; published is the newest version handed out.
	pubMu     sync.Mutex
	published uint64
}

func NewStore(kv storage.KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		defaults: staticOffsets(model.DefaultPreferences().DefaultReminderTimes),
		now:      time.Now,
		newID:    uuid.NewString,
		loc:      time.Local,
		log:      logging.Discard(),
		items:    []model.Reminder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the collection with the persisted one. A missing key is an
// empty collection. A blob that cannot be decoded is logged and ignored.
func (s *Store) Load(ctx context.Context) error {
	blob, err := s.kv.Load(ctx, storage.KeyReminders)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		blob = nil
	case err != nil:
		return &model.StorageError{Op: "load", Err: err}
	}

	items := []model.Reminder{}
	if len(blob) > 0 {
		var decoded []model.Reminder
		if err := json.Unmarshal(blob, &decoded); err != nil {
			s.log.WithError(err).Warn("stored reminders are unreadable, starting empty")
		} else {
			for _, r := range decoded {
				if err := r.Validate(); err != nil {
					s.log.WithError(err).WithField("reminder_id", r.ID).Warn("dropping invalid stored reminder")
					continue
				}
				items = append(items, r)
			}
		}
	}

	s.mu.Lock()
	s.items = items
	s.version++
	version := s.version
	snapshot := cloneAll(items)
	s.mu.Unlock()

	s.log.WithField("count", len(items)).Info("reminders loaded")
	s.notify(snapshot, version)
	return nil
}

// OnChange registers fn to receive a copy of the collection after every
// successful change. Snapshots arrive one at a time in mutation order; one
// superseded before delivery is skipped. fn must not mutate the store.
func (s *Store) OnChange(fn func([]model.Reminder)) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *Store) Add(ctx context.Context, in model.NewReminder) (model.Reminder, error) {
	in = in.Normalized()
	now := s.now()
	if in.Offsets == nil {
		in.Offsets = s.defaults.DefaultOffsets()
	}
	if err := model.ValidateNewReminder(in, now); err != nil {
		return model.Reminder{}, err
	}

	due := in.DueDate.UTC()
	stamp := now.UTC()
	rem := model.Reminder{
		ID:            s.newID(),
		Title:         in.Title,
		Type:          in.Type,
		Description:   in.Description,
		Subject:       in.Subject,
		DueDate:       due,
		ReminderTimes: model.ComputeTriggers(due, in.Offsets),
		CreatedAt:     stamp,
		UpdatedAt:     stamp,
	}
	err := s.mutate(ctx, "add", func(items []model.Reminder) ([]model.Reminder, error) {
		return append(items, rem), nil
	})
	if err != nil {
		return model.Reminder{}, err
	}
	s.log.WithFields(logrus.Fields{"reminder_id": rem.ID, "type": rem.Type}).Info("reminder added")
	return rem.Clone(), nil
}

func (s *Store) Update(ctx context.Context, id string, patch model.Patch) (model.Reminder, error) {
	now := s.now()
	var out model.Reminder
	err := s.mutate(ctx, "update", func(items []model.Reminder) ([]model.Reminder, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, &model.NotFoundError{ID: id}
		}
		next, err := applyPatch(items[i], patch, now)
		if err != nil {
			return nil, err
		}
		items[i] = next
		out = next
		return items, nil
	})
	if err != nil {
		return model.Reminder{}, err
	}
	s.log.WithField("reminder_id", id).Info("reminder updated")
	return out.Clone(), nil
}

func applyPatch(cur model.Reminder, patch model.Patch, now time.Time) (model.Reminder, error) {
	merged := model.NewReminder{
		Title:       cur.Title,
		Type:        cur.Type,
		Description: cur.Description,
		Subject:     cur.Subject,
		DueDate:     cur.DueDate,
		Offsets:     cur.Offsets(),
	}
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.Subject != nil {
		merged.Subject = *patch.Subject
	}
	if patch.DueDate != nil {
		merged.DueDate = *patch.DueDate
	}
	if patch.Offsets != nil {
		merged.Offsets = patch.Offsets
	}
	merged = merged.Normalized()

	// An unchanged due date is allowed to be in the past already.
	check := merged
	if patch.DueDate == nil {
		check.DueDate = now.Add(time.Minute)
	}
	if err := model.ValidateNewReminder(check, now); err != nil {
		return model.Reminder{}, err
	}

	next := cur.Clone()
	next.Title = merged.Title
	next.Type = merged.Type
	next.Description = merged.Description
	next.Subject = merged.Subject

	dueChanged := patch.DueDate != nil && !patch.DueDate.Equal(cur.DueDate)
	if dueChanged {
		next.DueDate = patch.DueDate.UTC()
	}
	if dueChanged || patch.Offsets != nil {
		next.ReminderTimes = model.ComputeTriggers(next.DueDate, merged.Offsets)
	}
	next.UpdatedAt = laterOf(now.UTC(), cur.CreatedAt)
	return next, nil
}

// Remove deletes id. Removing an unknown id is a no-op and does not write.
func (s *Store) Remove(ctx context.Context, id string) error {
	err := s.mutate(ctx, "remove", func(items []model.Reminder) ([]model.Reminder, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, errUnchanged
		}
		return append(items[:i], items[i+1:]...), nil
	})
	if err == nil {
		s.log.WithField("reminder_id", id).Info("reminder removed")
	}
	return err
}

func (s *Store) ToggleComplete(ctx context.Context, id string) (model.Reminder, error) {
	now := s.now()
	var out model.Reminder
	err := s.mutate(ctx, "toggle", func(items []model.Reminder) ([]model.Reminder, error) {
		i := indexOf(items, id)
		if i < 0 {
			return nil, &model.NotFoundError{ID: id}
		}
		items[i].Completed = !items[i].Completed
		items[i].UpdatedAt = laterOf(now.UTC(), items[i].CreatedAt)
		out = items[i]
		return items, nil
	})
	if err != nil {
		return model.Reminder{}, err
	}
	s.log.WithFields(logrus.Fields{"reminder_id": id, "completed": out.Completed}).Info("reminder toggled")
	return out.Clone(), nil
}

// ClearCompleted removes every completed reminder and reports how many went.
func (s *Store) ClearCompleted(ctx context.Context) (int, error) {
	removed := 0
	err := s.mutate(ctx, "clear_completed", func(items []model.Reminder) ([]model.Reminder, error) {
		kept := items[:0]
		for _, r := range items {
			if r.Completed {
				removed++
				continue
			}
			kept = append(kept, r)
		}
		if removed == 0 {
			return nil, errUnchanged
		}
		return kept, nil
	})
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.log.WithField("count", removed).Info("completed reminders cleared")
	}
	return removed, nil
}

// MarkTriggerSent records that trigger index of reminder id was delivered.
// It reports false when the reminder or trigger no longer exists.
func (s *Store) MarkTriggerSent(ctx context.Context, id string, index int) (bool, error) {
	found := false
	err := s.mutate(ctx, "mark_sent", func(items []model.Reminder) ([]model.Reminder, error) {
		i := indexOf(items, id)
		if i < 0 || index < 0 || index >= len(items[i].ReminderTimes) {
			return nil, errUnchanged
		}
		found = true
		if items[i].ReminderTimes[index].Sent {
			return nil, errUnchanged
		}
		items[i].ReminderTimes[index].Sent = true
		return items, nil
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

func (s *Store) Get(id string) (model.Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := indexOf(s.items, id)
	if i < 0 {
		return model.Reminder{}, &model.NotFoundError{ID: id}
	}
	return s.items[i].Clone(), nil
}

// Resolve finds a reminder by full id or unique id prefix.
func (s *Store) Resolve(ref string) (model.Reminder, error) {
	ref = strings.TrimSpace(ref)
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, ref); i >= 0 {
		return s.items[i].Clone(), nil
	}
	match := -1
	if ref != "" {
		for i, r := range s.items {
			if strings.HasPrefix(r.ID, ref) {
				if match >= 0 {
					return model.Reminder{}, &model.ValidationError{Field: "id", Message: "Ambiguous id prefix " + ref}
				}
				match = i
			}
		}
	}
	if match < 0 {
		return model.Reminder{}, &model.NotFoundError{ID: ref}
	}
	return s.items[match].Clone(), nil
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []model.Reminder {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneAll(s.items)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Usage(ctx context.Context) (storage.Usage, error) {
	return s.kv.Info(ctx)
}

var errUnchanged = errors.New("reminders: unchanged")

// mutate runs fn on a private copy of the collection, persists the result
// and only then publishes it. On any failure the collection is untouched.
func (s *Store) mutate(ctx context.Context, op string, fn func([]model.Reminder) ([]model.Reminder, error)) error {
	s.mu.Lock()
	next, err := fn(cloneAll(s.items))
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.persist(ctx, next); err != nil {
		s.mu.Unlock()
		s.log.WithError(err).WithField("op", op).Error("persisting reminders failed, change rolled back")
		return &model.StorageError{Op: op, Err: err}
	}
	s.items = next
	s.version++
	version := s.version
	snapshot := cloneAll(next)
	s.mu.Unlock()

	s.notify(snapshot, version)
	return nil
}

func (s *Store) persist(ctx context.Context, items []model.Reminder) error {
	if items == nil {
		items = []model.Reminder{}
	}
	blob, err := json.Marshal(items)
	if err != nil {
		return err
	}
	return s.kv.Save(ctx, storage.KeyReminders, blob)
}

func (s *Store) notify(snapshot []model.Reminder, version uint64) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	if version <= s.published {
		s.log.WithField("version", version).Debug("skipping superseded snapshot")
		return
	}
	s.published = version

	s.subMu.Lock()
	subs := append([]func([]model.Reminder){}, s.subscribers...)
	s.subMu.Unlock()
	for _, fn := range subs {
		fn(cloneAll(snapshot))
	}
}

func indexOf(items []model.Reminder, id string) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(items []model.Reminder) []model.Reminder {
	out := make([]model.Reminder, len(items))
	for i, r := range items {
		out[i] = r.Clone()
	}
	return out
}

func laterOf(a, b time.Time) time.Time {
	if a.Before(b) {
		return b
	}
	return a
}
