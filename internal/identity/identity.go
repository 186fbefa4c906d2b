// Package identity tracks the signed-in user for the session. Tokens are
// issued and verified server-side; the client only decodes claims to know
// who is signed in and when the token lapses.
package identity

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNotAuthenticated is returned when an operation requires a signed-in
// user and there is none.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider is the read surface the rest of the app sees. *Manager
// implements it.
type Provider interface {
	Current() (Session, bool)
	UserID() (string, error)
	Clear()
}

// Session describes a signed-in user.
type Session struct {
	UserID      string
	Email       string
	DisplayName string
	AvatarURL   string
	Token       string
	ExpiresAt   time.Time
}

// Valid reports whether the session identifies a user and has not lapsed.
func (s Session) Valid() bool {
	if s.UserID == "" {
		return false
	}
	return s.ExpiresAt.IsZero() || time.Now().Before(s.ExpiresAt)
}

// FromToken decodes a server-issued JWT into a Session without verifying
// the signature. Verification happens server-side on every request; the
// client reads claims for display and expiry only.
func FromToken(token string) (Session, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return Session{}, fmt.Errorf("parse token: %w", err)
	}

	s := Session{Token: token}
	if v, ok := claims["user_id"].(string); ok {
		s.UserID = v
	} else if v, err := claims.GetSubject(); err == nil {
		s.UserID = v
	}
	if v, ok := claims["email"].(string); ok {
		s.Email = v
	}
	if v, ok := claims["name"].(string); ok {
		s.DisplayName = v
	}
	if v, ok := claims["picture"].(string); ok {
		s.AvatarURL = v
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		s.ExpiresAt = exp.Time
	}

	if s.UserID == "" {
		return Session{}, errors.New("token carries no user identity")
	}
	return s, nil
}

// Manager holds the current session. Safe for concurrent use.
type Manager struct {
	mu      sync.RWMutex
	session *Session
}

func NewManager() *Manager {
	return &Manager{}
}

// Set installs the session.
func (m *Manager) Set(s Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = &s
}

// Clear signs the user out.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session = nil
}

// Current returns the active session, if any.
func (m *Manager) Current() (Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return Session{}, false
	}
	return *m.session, true
}

// UserID returns the signed-in user's ID, or ErrNotAuthenticated.
func (m *Manager) UserID() (string, error) {
	s, ok := m.Current()
	if !ok || !s.Valid() {
		return "", ErrNotAuthenticated
	}
	return s.UserID, nil
}

// Update applies fn to the current session, if any. Used for optimistic
// profile edits.
func (m *Manager) Update(fn func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session != nil {
		fn(m.session)
	}
}

// Verify Manager implements Provider at compile time.
var _ Provider = (*Manager)(nil)
