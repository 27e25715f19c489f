package local

import (
	"log/slog"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gosimple/slug"

	"github.com/mmynk/grouporder/internal/menu"
	"github.com/mmynk/grouporder/internal/models"
)

// PresetStore keeps saved order presets in presets.json.
type PresetStore struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewPresetStore creates a PresetStore in dir.
func NewPresetStore(dir string) *PresetStore {
	return &PresetStore{path: filepath.Join(dir, PresetsFile), now: time.Now}
}

// List returns the saved presets in the order they were saved.
func (s *PresetStore) List() []models.Preset {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *PresetStore) load() []models.Preset {
	presets := []models.Preset{}
	if err := readJSON(s.path, &presets); err != nil {
		slog.Error("Error loading presets", "path", s.path, "error", err)
		return []models.Preset{}
	}
	return presets
}

// Save appends p with a fresh ID and creation time.
func (s *PresetStore) Save(p models.Preset) (models.Preset, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets := s.load()
	now := s.now()
	id := now.UnixMilli()
	for taken := true; taken; {
		taken = false
		for _, existing := range presets {
			if existing.ID == strconv.FormatInt(id, 10) {
				taken = true
				id++
				break
			}
		}
	}
	p.ID = strconv.FormatInt(id, 10)
	p.CreatedAt = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	if p.Adds == nil {
		p.Adds = []string{}
	}

	presets = append(presets, p)
	if err := writeJSON(s.path, presets); err != nil {
		slog.Error("Error saving preset", "name", p.Name, "error", err)
		return models.Preset{}, false
	}
	return p, true
}

// Delete removes the preset with id. Deleting an unknown id succeeds.
func (s *PresetStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	presets := s.load()
	kept := presets[:0]
	for _, p := range presets {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if err := writeJSON(s.path, kept); err != nil {
		slog.Error("Error deleting preset", "id", id, "error", err)
		return false
	}
	return true
}

// Get returns the preset with id.
func (s *PresetStore) Get(id string) (models.Preset, bool) {
	for _, p := range s.List() {
		if p.ID == id {
			return p, true
		}
	}
	return models.Preset{}, false
}

// Find looks a preset up by id, or by name compared as slugs, so
// "Moj Kebab" and "moj-kebab" both match.
func (s *PresetStore) Find(ref string) (models.Preset, bool) {
	if p, ok := s.Get(ref); ok {
		return p, true
	}
	want := slug.Make(ref)
	for _, p := range s.List() {
		if slug.Make(p.Name) == want {
			return p, true
		}
	}
	return models.Preset{}, false
}

// Clear removes all presets.
func (s *PresetStore) Clear() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := removeFile(s.path); err != nil {
		slog.Error("Error clearing presets", "error", err)
		return false
	}
	return true
}

// NewPreset captures a draft as a named preset.
func NewPreset(name string, d menu.Draft) models.Preset {
	d.Normalize()
	p := models.Preset{
		Name:      name,
		UserName:  d.Name,
		KebabType: d.Category,
		KebabSize: d.Size,
		Adds:      append([]string{}, d.Adds...),
		Sauce:     d.Sauce,
	}
	if menu.AllowsCheese(d.Category) {
		cheese := d.HasCheese
		p.HasCheese = &cheese
	}
	return p
}

// PresetDraft fills the order form from a preset.
func PresetDraft(p models.Preset) menu.Draft {
	return menu.DraftFromOrder(models.Order{
		Name:      p.UserName,
		Category:  p.KebabType,
		Size:      p.KebabSize,
		HasCheese: p.HasCheese,
		Sauce:     p.Sauce,
		Adds:      p.Adds,
	})
}
