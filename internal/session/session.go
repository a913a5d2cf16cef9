// Package session persists the logged-in identity and restores it at
// startup.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
)

// Storage keys. They are always written and read as a pair.
const (
	TokenKey = "auth_token"
	UserKey  = "auth_user"
)

// ErrNoSession is returned when no complete session is persisted.
var ErrNoSession = errors.New("not logged in - run 'sl login' first")

// User is the profile returned by the backend at login.
type User struct {
	ID        int    `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role,omitempty"`
	CompanyID int    `json:"companyId,omitempty"`
}

// Session is the persisted token and user.
type Session struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Manager reads and writes the session through a Storage.
type Manager struct {
	storage Storage
}

// NewManager creates a Manager over storage.
func NewManager(storage Storage) *Manager {
	return &Manager{storage: storage}
}

// Storage returns the backing storage.
func (m *Manager) Storage() Storage {
	return m.storage
}

// Save writes the user first and the token last, so a reader never sees a
// token without its user.
func (m *Manager) Save(ctx context.Context, s Session) error {
	if s.Token == "" {
		return errors.New("session token is empty")
	}
	data, err := json.Marshal(s.User)
	if err != nil {
		return fmt.Errorf("failed to marshal user: %w", err)
	}
	if err := m.storage.Set(ctx, UserKey, string(data)); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	if err := m.storage.Set(ctx, TokenKey, s.Token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// Load reads the pair. A lone token or lone user is left over from an
// interrupted Save or Clear; it is removed and reported as ErrNoSession.
func (m *Manager) Load(ctx context.Context) (*Session, error) {
	token, tokenOK, err := m.get(ctx, TokenKey)
	if err != nil {
		return nil, err
	}
	rawUser, userOK, err := m.get(ctx, UserKey)
	if err != nil {
		return nil, err
	}

	switch {
	case !tokenOK && !userOK:
		return nil, ErrNoSession
	case tokenOK != userOK:
		slog.Warn("discarding incomplete session", "has_token", tokenOK, "has_user", userOK)
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}

	var user User
	if err := json.Unmarshal([]byte(rawUser), &user); err != nil {
		slog.Warn("discarding session with unreadable user", "error", err)
		if err := m.Clear(ctx); err != nil {
			return nil, err
		}
		return nil, ErrNoSession
	}
	return &Session{Token: token, User: user}, nil
}

// Clear removes the token first, then the user.
func (m *Manager) Clear(ctx context.Context) error {
	if err := m.storage.Remove(ctx, TokenKey); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	if err := m.storage.Remove(ctx, UserKey); err != nil {
		return fmt.Errorf("failed to remove user: %w", err)
	}
	return nil
}

// Token returns the persisted token, or "" when there is no complete
// session. It satisfies config.TokenSource.
func (m *Manager) Token(ctx context.Context) (string, error) {
	s, err := m.Load(ctx)
	if errors.Is(err, ErrNoSession) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// User returns the persisted user.
func (m *Manager) User(ctx context.Context) (*User, error) {
	s, err := m.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &s.User, nil
}

func (m *Manager) get(ctx context.Context, key string) (string, bool, error) {
	v, err := m.storage.Get(ctx, key)
	if errors.Is(err, ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}
