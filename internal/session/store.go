// Package session persists the authenticated session (token pair plus a
// snapshot of the account) across CLI invocations, keyed by API host.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the client-side login state for one API host. It is created
// on login, rotated on token refresh, and destroyed on logout or when a
// refresh becomes impossible.
type Session struct {
	ID           string    `json:"id"`
	Host         string    `json:"host"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Email        string    `json:"email,omitempty"`
	Username     string    `json:"username,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Store persists and retrieves sessions.
type Store interface {
	// Save upserts a session. A session with an empty ID is assigned one.
	Save(ctx context.Context, s *Session) error

	// Load retrieves the session for the given host.
	// Returns (nil, nil) if no session is stored.
	Load(ctx context.Context, host string) (*Session, error)

	// Delete removes the session for the given host.
	Delete(ctx context.Context, host string) error

	Close() error
}

// stamp assigns an ID and timestamps ahead of persistence.
func stamp(s *Session) {
	if s.ID == "" {
		s.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	s.UpdatedAt = now
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
}

// MemoryStore is an in-process Store for tests and ephemeral use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// Compile-time check that MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]Session)}
}

// Save upserts a session by host.
func (m *MemoryStore) Save(_ context.Context, s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stamp(s)
	m.sessions[s.Host] = *s
	return nil
}

// Load retrieves the session for host, or (nil, nil) when absent.
func (m *MemoryStore) Load(_ context.Context, host string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[host]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// Delete removes the session for host.
func (m *MemoryStore) Delete(_ context.Context, host string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.sessions, host)
	return nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error { return nil }
