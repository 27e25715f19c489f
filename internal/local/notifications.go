package local

import (
	"log/slog"
	"path/filepath"
	"sync"
	"time"
)

// Notification announces a feature for a limited period after its release.
type Notification struct {
	ID      string
	Title   string
	Message string
	Icon    string
	// ReleaseDate is a calendar date (YYYY-MM-DD), read as UTC midnight.
	ReleaseDate  string
	DurationDays int
}

// FeatureNotifications lists the announcements the app knows about.
var FeatureNotifications = []Notification{
	{
		ID:           "recepies-feature-2025-09",
		Title:        "Novo: Recepti! 📝",
		Message:      "Sada možete spremati svoje omiljene recepte. Mljac!",
		Icon:         "📝",
		ReleaseDate:  "2025-09-02",
		DurationDays: 10,
	},
}

// Window returns when n starts and stops being shown. ok is false when the
// release date cannot be parsed.
func (n Notification) Window() (start, end time.Time, ok bool) {
	start, err := time.Parse(time.DateOnly, n.ReleaseDate)
	if err != nil {
		return time.Time{}, time.Time{}, false
	}
	return start, start.Add(time.Duration(n.DurationDays) * 24 * time.Hour), true
}

// NotificationStore records which notifications the user dismissed, as a
// map of notification ID to dismissal time in Unix milliseconds.
type NotificationStore struct {
	mu   sync.Mutex
	path string
}

// NewNotificationStore creates a NotificationStore in dir.
func NewNotificationStore(dir string) *NotificationStore {
	return &NotificationStore{path: filepath.Join(dir, NotificationsFile)}
}

// Dismissed returns the dismissal records.
func (s *NotificationStore) Dismissed() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *NotificationStore) load() map[string]int64 {
	dismissed := map[string]int64{}
	if err := readJSON(s.path, &dismissed); err != nil {
		slog.Error("Error reading dismissed notifications", "error", err)
		return map[string]int64{}
	}
	if dismissed == nil {
		dismissed = map[string]int64{}
	}
	return dismissed
}

// Dismiss records that the user closed notification id.
func (s *NotificationStore) Dismiss(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	dismissed := s.load()
	dismissed[id] = now.UnixMilli()
	if err := writeJSON(s.path, dismissed); err != nil {
		slog.Error("Error saving dismissed notification", "id", id, "error", err)
		return false
	}
	return true
}

// ShouldShow reports whether n is inside its window and not dismissed.
func (s *NotificationStore) ShouldShow(n Notification, now time.Time) bool {
	if _, ok := s.Dismissed()[n.ID]; ok {
		return false
	}
	start, end, ok := n.Window()
	if !ok {
		return false
	}
	return !now.Before(start) && !now.After(end)
}

// Active filters all down to the notifications to display at now.
func (s *NotificationStore) Active(all []Notification, now time.Time) []Notification {
	var active []Notification
	for _, n := range all {
		if s.ShouldShow(n, now) {
			active = append(active, n)
		}
	}
	return active
}

// Cleanup forgets dismissals of notifications that have expired or are no
// longer known.
func (s *NotificationStore) Cleanup(all []Notification, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	valid := make(map[string]bool, len(all))
	for _, n := range all {
		if _, end, ok := n.Window(); ok && !end.Before(now) {
			valid[n.ID] = true
		}
	}
	dismissed := s.load()
	for id := range dismissed {
		if !valid[id] {
			delete(dismissed, id)
		}
	}
	if err := writeJSON(s.path, dismissed); err != nil {
		slog.Error("Error cleaning up dismissed notifications", "error", err)
		return false
	}
	return true
}
