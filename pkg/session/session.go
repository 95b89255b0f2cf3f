// Package session tracks who is logged in and keeps the username across
// restarts
package session

import (
	"errors"
	"fmt"
)

// UserKey is the storage key holding the logged-in username
const UserKey = "user"

var ErrEmptyUsername = errors.New("empty username")

// Session is an authenticated user. A nil *Session means nobody is logged in.
type Session struct {
	Username string
}

// Owns reports whether username belongs to the session's user. It is false
// for a nil session.
func (s *Session) Owns(username string) bool {
	return s != nil && s.Username == username
}

// Store is a string key/value store that survives process restarts
type Store interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Delete(key string) error
}

// Manager persists the session through a Store
type Manager struct {
	store Store
}

// NewManager creates a manager on top of store
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Restore reads the persisted session, returning nil when nobody is logged in
func (m *Manager) Restore() (*Session, error) {
	username, ok, err := m.store.Get(UserKey)
	if err != nil {
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}
	if !ok || username == "" {
		return nil, nil
	}
	return &Session{Username: username}, nil
}

// Login persists username and returns the new session
func (m *Manager) Login(username string) (*Session, error) {
	if username == "" {
		return nil, ErrEmptyUsername
	}
	if err := m.store.Set(UserKey, username); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}
	return &Session{Username: username}, nil
}

// Logout removes the persisted session
func (m *Manager) Logout() error {
	if err := m.store.Delete(UserKey); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
