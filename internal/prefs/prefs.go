// Package prefs holds process-wide user preferences: loaded once at
// startup, saved on every change.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

type Theme string

const (
	ThemeSystem Theme = "system"
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
)

var ErrUnknownTheme = errors.New("unknown theme")

// Store is the preference surface the rest of the app sees.
type Store interface {
	Theme() Theme
	SetTheme(Theme) error
}

type fileFormat struct {
	Theme Theme `json:"theme"`
}

// FileStore persists preferences as a small JSON file.
type FileStore struct {
	path string

	mu    sync.Mutex
	theme Theme
}

// NewFileStore loads preferences from path. A missing file or an
// unrecognized stored theme falls back to ThemeSystem.
func NewFileStore(path string) (*FileStore, error) {
	s := &FileStore{
		path:  path,
		theme: ThemeSystem,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("read preferences: %w", err)
	}

	var f fileFormat
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse preferences: %w", err)
	}
	if validTheme(f.Theme) {
		s.theme = f.Theme
	}

	return s, nil
}

func (s *FileStore) Theme() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.theme
}

func (s *FileStore) SetTheme(t Theme) error {
	if !validTheme(t) {
		return fmt.Errorf("%w: %q", ErrUnknownTheme, t)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.theme = t
	return s.saveLocked()
}

func (s *FileStore) saveLocked() error {
	if dir := filepath.Dir(s.path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create preferences directory: %w", err)
		}
	}

	data, err := json.Marshal(fileFormat{Theme: s.theme})
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

func validTheme(t Theme) bool {
	switch t {
	case ThemeSystem, ThemeLight, ThemeDark:
		return true
	}
	return false
}
