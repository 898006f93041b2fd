package reminders

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/sandeepkv93/studyd/internal/logging"
	"github.com/sandeepkv93/studyd/internal/model"
	"github.com/sandeepkv93/studyd/internal/storage"
)

// PreferencesStore persists user preferences under storage.KeyPreferences.
type PreferencesStore struct {
	kv       storage.KV
	log      logrus.FieldLogger
	defaults model.Preferences

	mu    sync.RWMutex
	prefs model.Preferences
}

// NewPreferencesStore starts from defaults until Load is called. A zero
// defaults value means model.DefaultPreferences.
func NewPreferencesStore(kv storage.KV, defaults model.Preferences, log logrus.FieldLogger) *PreferencesStore {
	if defaults.Theme == "" && defaults.DefaultReminderTimes == nil {
		defaults = model.DefaultPreferences()
	}
	if log == nil {
		log = logging.Discard()
	}
	defaults = defaults.Normalize()
	return &PreferencesStore{kv: kv, log: log, defaults: defaults, prefs: defaults.Clone()}
}

// Load reads stored preferences and merges them over the defaults, so a
// partial blob keeps the default for every field it does not name.
func (p *PreferencesStore) Load(ctx context.Context) error {
	blob, err := p.kv.Load(ctx, storage.KeyPreferences)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return &model.StorageError{Op: "load_preferences", Err: err}
	}

	merged := p.defaults.Clone()
	if len(blob) > 0 {
		var stored storedPreferences
		if err := json.Unmarshal(blob, &stored); err != nil {
			p.log.WithError(err).Warn("stored preferences are unreadable, using defaults")
		} else {
			merged = stored.over(merged)
		}
	}

	p.mu.Lock()
	p.prefs = merged.Normalize()
	p.mu.Unlock()
	return nil
}

// storedPreferences tells absent fields apart from zero values.
type storedPreferences struct {
	Notifications        *bool          `json:"notifications"`
	DefaultReminderTimes []model.Offset `json:"defaultReminderTimes"`
	Theme                *string        `json:"theme"`
}

func (s storedPreferences) over(base model.Preferences) model.Preferences {
	out := base
	if s.Notifications != nil {
		out.Notifications = *s.Notifications
	}
	if s.DefaultReminderTimes != nil {
		out.DefaultReminderTimes = s.DefaultReminderTimes
	}
	if s.Theme != nil {
		out.Theme = *s.Theme
	}
	return out
}

func (p *PreferencesStore) Get() model.Preferences {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs.Clone()
}

// Save replaces the preferences. On a write failure the previous value is
// kept.
func (p *PreferencesStore) Save(ctx context.Context, prefs model.Preferences) error {
	next := prefs.Normalize()
	blob, err := json.Marshal(next)
	if err != nil {
		return &model.StorageError{Op: "save_preferences", Err: err}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.kv.Save(ctx, storage.KeyPreferences, blob); err != nil {
		p.log.WithError(err).Error("persisting preferences failed")
		return &model.StorageError{Op: "save_preferences", Err: err}
	}
	p.prefs = next
	return nil
}

func (p *PreferencesStore) SetNotifications(ctx context.Context, enabled bool) error {
	prefs := p.Get()
	prefs.Notifications = enabled
	return p.Save(ctx, prefs)
}

func (p *PreferencesStore) NotificationsEnabled() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.prefs.Notifications
}

func (p *PreferencesStore) DefaultOffsets() []model.Offset {
	return p.Get().DefaultReminderTimes
}
