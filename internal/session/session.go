// Package session keeps authenticated browser sessions in memory. A
// session carries the signed-in username, an optional history filter
// and a one-shot flash message. Tokens are random UUIDs handed to the
// browser as a cookie; state is lost on restart, which signs every
// user out.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// CookieName is the session cookie shared by server and tests.
const CookieName = "fintrack_session"

type state struct {
	username  string
	expiresAt time.Time
	filter    *core.Filter
	flash     string
}

// Manager owns the session table. It implements cache.Cleaner so the
// cache manager's sweep also drops expired sessions.
type Manager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]*state
}

func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		ttl:      ttl,
		sessions: make(map[string]*state),
	}
}

// Create opens a session for username and returns the new token.
func (m *Manager) Create(username string) string {
	token := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[token] = &state{
		username:  username,
		expiresAt: time.Now().Add(m.ttl),
	}
	return token
}

// Lookup resolves a token to its username. Expired sessions are
// removed on sight and report a miss.
func (m *Manager) Lookup(token string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return "", false
	}
	if time.Now().After(s.expiresAt) {
		delete(m.sessions, token)
		return "", false
	}
	return s.username, true
}

// Destroy ends the session. Unknown tokens are ignored.
func (m *Manager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// SetFilter stores the history filter on the session.
func (m *Manager) SetFilter(token string, f core.Filter) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.filter = &f
	}
}

// TakeFilter returns the active filter and clears it, so a stored
// filter applies to exactly one history view. Sessions without a
// stored filter fall back to the current-month default.
func (m *Manager) TakeFilter(token string, now time.Time) core.Filter {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || s.filter == nil {
		return core.DefaultFilter(now)
	}
	f := *s.filter
	s.filter = nil
	return f
}

// SetFlash stores a one-shot notice on the session.
func (m *Manager) SetFlash(token, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[token]; ok {
		s.flash = msg
	}
}

// TakeFlash returns the pending notice and clears it.
func (m *Manager) TakeFlash(token string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok || s.flash == "" {
		return ""
	}
	msg := s.flash
	s.flash = ""
	return msg
}

// CleanExpired drops every expired session and returns how many were
// removed.
func (m *Manager) CleanExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	removed := 0
	for token, s := range m.sessions {
		if now.After(s.expiresAt) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Size returns the number of live sessions, expired ones included
// until the next sweep.
func (m *Manager) Size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
