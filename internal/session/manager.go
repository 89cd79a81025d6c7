package session

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

const sessionIDBytes = 32

// Session is one server-side login session.
type Session struct {
	ID        string    // Opaque random identifier carried by the signed cookie.
	UserID    uint64    // Authenticated principal.
	CreatedAt time.Time // When the session was established.
	ExpiresAt time.Time // When the session stops being honored.
}

// Manager holds login sessions in process memory. Sessions do not survive a
// process restart.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewManager constructs a Manager issuing sessions with the given lifetime.
func NewManager(ttl time.Duration) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		ttl:      ttl,
	}
}

// Create establishes a new session for the user.
func (m *Manager) Create(userID uint64) (*Session, error) {
	raw := make([]byte, sessionIDBytes)
	if _, errRead := rand.Read(raw); errRead != nil {
		return nil, fmt.Errorf("generate session id: %w", errRead)
	}

	now := time.Now()
	sess := &Session{
		ID:        hex.EncodeToString(raw),
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.mu.Lock()
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	copied := *sess
	return &copied, nil
}

// Get returns the session for the id if it exists and has not expired.
// Expired entries found here are dropped eagerly; the sweep catches the rest.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(sess.ExpiresAt) {
		delete(m.sessions, id)
		return nil, false
	}
	copied := *sess
	return &copied, true
}

// Delete invalidates the session.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Sweep evicts all sessions expired at now and returns how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, sess := range m.sessions {
		if now.After(sess.ExpiresAt) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live entries, including not-yet-swept expired ones.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
