package client

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// SessionData is the persisted form of a session.
type SessionData struct {
	Token string `yaml:"token"`
	User  *User  `yaml:"user,omitempty"`
}

// SessionStore persists session data between runs.
type SessionStore interface {
	Load() (*SessionData, error)
	Save(data *SessionData) error
	Clear() error
}

// Session holds the bearer token and the signed-in user. It is created once,
// loaded from its store at startup and handed to every component that needs
// it. Every change is written back to the store.
type Session struct {
	mu    sync.RWMutex
	store SessionStore
	data  SessionData
}

// NewSession creates an empty session backed by store.
func NewSession(store SessionStore) *Session {
	return &Session{store: store}
}

// Load replaces the in-memory state with what the store holds. A missing
// session is not an error.
func (s *Session) Load() error {
	data, err := s.store.Load()
	if err != nil {
		return fmt.Errorf("loading session: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = SessionData{}
	if data != nil {
		s.data = *data
	}

	return nil
}

// Set records a new token and user and persists them.
func (s *Session) Set(token string, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = SessionData{Token: token, User: &user}

	if err := s.store.Save(&s.data); err != nil {
		return fmt.Errorf("saving session: %w", err)
	}

	return nil
}

// Clear forgets the token and user in memory and in the store.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = SessionData{}

	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("clearing session: %w", err)
	}

	return nil
}

// Token returns the bearer token, or "" when signed out.
func (s *Session) Token() string {
	if s == nil {
		return ""
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.data.Token
}

// User returns a copy of the signed-in user, or nil.
func (s *Session) User() *User {
	if s == nil {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.data.User == nil {
		return nil
	}

	u := *s.data.User

	return &u
}

// FileStore keeps the session in a YAML file readable only by its owner.
type FileStore struct {
	Path string
}

// DefaultSessionPath returns ~/.qms/session.yaml.
func DefaultSessionPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}

	return filepath.Join(home, ".qms", "session.yaml"), nil
}

// Load reads the session file. A missing file yields nil data.
func (f FileStore) Load() (*SessionData, error) {
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var data SessionData
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}

	return &data, nil
}

// Save writes the session file with mode 0600.
func (f FileStore) Save(data *SessionData) error {
	raw, err := yaml.Marshal(data)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(f.Path), 0o700); err != nil {
		return err
	}

	return os.WriteFile(f.Path, raw, 0o600)
}

// Clear removes the session file.
func (f FileStore) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	return nil
}

// MemoryStore keeps the session in memory only.
type MemoryStore struct {
	mu   sync.Mutex
	data *SessionData
}

// Load returns a copy of the stored data.
func (m *MemoryStore) Load() (*SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data == nil {
		return nil, nil
	}

	cp := *m.data

	return &cp, nil
}

// Save stores a copy of data.
func (m *MemoryStore) Save(data *SessionData) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *data
	m.data = &cp

	return nil
}

// Clear drops the stored data.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil

	return nil
}
