package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Afefmejri25/crm/models"
	"gopkg.in/yaml.v3"
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

// Preferences are the UI settings kept between runs.
type Preferences struct {
	Theme Theme  `yaml:"theme,omitempty"`
	Lang  string `yaml:"lang,omitempty"`
}

// SessionStorage persists the session and preferences between runs.
type SessionStorage interface {
	LoadSession() (*models.Session, error)
	SaveSession(s *models.Session) error
	LoadPreferences() (Preferences, error)
	SavePreferences(p Preferences) error
}

type sessionFile struct {
	Session     *models.Session `yaml:"session,omitempty"`
	Preferences `yaml:",inline"`
}

// FileSessionStorage keeps everything in one YAML file readable only by the owner.
type FileSessionStorage struct {
	path string
	mu   sync.Mutex
}

func NewFileSessionStorage(path string) *FileSessionStorage {
	return &FileSessionStorage{path: path}
}

func (f *FileSessionStorage) Path() string { return f.path }

func (f *FileSessionStorage) LoadSession() (*models.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return nil, err
	}
	return data.Session, nil
}

func (f *FileSessionStorage) SaveSession(s *models.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return err
	}
	data.Session = s
	return f.write(data)
}

func (f *FileSessionStorage) LoadPreferences() (Preferences, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return Preferences{}, err
	}
	return data.Preferences, nil
}

func (f *FileSessionStorage) SavePreferences(p Preferences) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := f.read()
	if err != nil {
		return err
	}
	data.Preferences = p
	return f.write(data)
}

func (f *FileSessionStorage) read() (sessionFile, error) {
	var data sessionFile
	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return data, nil
	}
	if err != nil {
		return data, fmt.Errorf("failed to read session file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return sessionFile{}, fmt.Errorf("failed to parse session file %s: %w", f.path, err)
	}
	return data, nil
}

// write replaces the file atomically.
func (f *FileSessionStorage) write(data sessionFile) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode session file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}
