package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// User is the logged-in account as returned by POST /login.
type User struct {
	ID    uint   `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

type sessionData struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// Session holds the bearer token and user between runs. It is persisted as a
// JSON file readable only by its owner. The zero path keeps it in memory.
type Session struct {
	mu   sync.Mutex
	path string
	data sessionData
}

// DefaultSessionPath returns the session file under the user config dir.
func DefaultSessionPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "todo", "session.json"), nil
}

// LoadSession reads the session stored at path. A missing file yields an
// empty session; a corrupt one is discarded.
func LoadSession(path string) (*Session, error) {
	s := &Session{path: path}
	if path == "" {
		return s, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil || s.data.Token == "" || s.data.User == nil {
		s.data = sessionData{}
	}
	return s, nil
}

// Set records a successful login and persists it.
func (s *Session) Set(token string, user User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = sessionData{Token: token, User: &user}
	return s.saveLocked()
}

// Clear forgets the token and user and removes the session file.
func (s *Session) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = sessionData{}
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

func (s *Session) saveLocked() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token != "" && s.data.User != nil
}

// User returns the logged-in user, or false when there is none.
func (s *Session) User() (User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data.User == nil {
		return User{}, false
	}
	return *s.data.User, true
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.Token
}
