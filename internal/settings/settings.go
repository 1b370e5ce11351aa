package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

const (
	CategoryUI     = "ui_settings"
	CarrierColors  = "carrier_colors"
	BoundariesYear = "boundaries_year"
)

var (
	ErrNotFound  = errors.New("settings: not found")
	ErrWrongType = errors.New("settings: wrong type")
)

type document struct {
	System map[string]map[string]any `yaml:"system"`
	Users  map[string]map[string]any `yaml:"users"`
}

func defaultSystem() map[string]map[string]any {
	return map[string]map[string]any{
		CategoryUI: {CarrierColors: map[string]any{}},
	}
}

// Store holds the map editor system settings and per user settings. With a
// path every change is written back as YAML.
type Store struct {
	mu   sync.Mutex
	path string
	doc  document
}

// Open loads settings from path. A missing file starts from defaults; an
// empty path keeps settings in memory only.
func Open(path string) (*Store, error) {
	s := &Store{path: path, doc: document{System: defaultSystem(), Users: map[string]map[string]any{}}}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse settings %s: %w", path, err)
	}
	if len(doc.System) > 0 {
		s.doc.System = doc.System
	}
	if doc.Users != nil {
		s.doc.Users = doc.Users
	}
	return s, nil
}

func NewMemory() *Store {
	s, _ := Open("")
	return s
}

// System returns one named system setting of a category.
func (s *Store) System(category, name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.doc.System[category]
	if !ok {
		return nil, fmt.Errorf("%w: category %q", ErrNotFound, category)
	}
	v, ok := cat[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrNotFound, category, name)
	}
	return clone(v), nil
}

// SetSystem replaces a system setting, creating the category when needed.
func (s *Store) SetSystem(category, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.doc.System[category]
	if !ok {
		cat = map[string]any{}
		s.doc.System[category] = cat
	}
	cat[name] = clone(value)
	return s.saveLocked()
}

// AppendToList appends value to a list valued system setting.
func (s *Store) AppendToList(category, name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.doc.System[category]
	if !ok {
		return fmt.Errorf("%w: category %q", ErrNotFound, category)
	}
	var list []any
	switch cur := cat[name].(type) {
	case nil:
	case []any:
		list = cur
	default:
		return fmt.Errorf("%w: %s.%s is not a list", ErrWrongType, category, name)
	}
	cat[name] = append(list, clone(value))
	return s.saveLocked()
}

// SetDictValue sets key in a map valued system setting.
func (s *Store) SetDictValue(category, name, key string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cat, ok := s.doc.System[category]
	if !ok {
		return fmt.Errorf("%w: category %q", ErrNotFound, category)
	}
	var dict map[string]any
	switch cur := cat[name].(type) {
	case nil:
		dict = map[string]any{}
	case map[string]any:
		dict = cur
	default:
		return fmt.Errorf("%w: %s.%s is not a dictionary", ErrWrongType, category, name)
	}
	dict[key] = clone(value)
	cat[name] = dict
	return s.saveLocked()
}

// User returns the settings of user. Unknown users get empty settings.
func (s *Store) User(user string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := map[string]any{}
	for k, v := range s.doc.Users[user] {
		out[k] = clone(v)
	}
	return out
}

// SetUser merges values into the settings of user.
func (s *Store) SetUser(user string, values map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.doc.Users[user]
	if !ok {
		cur = map[string]any{}
		s.doc.Users[user] = cur
	}
	for k, v := range values {
		cur[k] = clone(v)
	}
	return s.saveLocked()
}

// BoundariesYear returns the boundary year chosen by user, or fallback.
func (s *Store) BoundariesYear(user string, fallback int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch v := s.doc.Users[user][BoundariesYear].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return fallback
}

func (s *Store) saveLocked() error {
	if s.path == "" {
		return nil
	}
	raw, err := yaml.Marshal(s.doc)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return os.Rename(tmp, s.path)
}

func clone(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = clone(e)
		}
		return out
	default:
		return v
	}
}
