package session

import (
	"context"
	"sync"
)

// HostTokens binds a Store to one API host and exposes the token lifecycle
// the API client drives: read before send, rotate after refresh, clear on
// logout or irrecoverable refresh failure. It satisfies the client's
// TokenStore interface.
type HostTokens struct {
	store Store
	host  string

	mu  sync.Mutex
	cur *Session
}

// BindHost loads any stored session for host and returns a handle bound
// to it.
func BindHost(ctx context.Context, store Store, host string) (*HostTokens, error) {
	sess, err := store.Load(ctx, host)
	if err != nil {
		return nil, err
	}
	return &HostTokens{store: store, host: host, cur: sess}, nil
}

// Tokens returns the current access and refresh tokens, or empty strings
// when no session is held.
func (h *HostTokens) Tokens() (string, string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cur == nil {
		return "", ""
	}
	return h.cur.AccessToken, h.cur.RefreshToken
}

// SetTokens replaces the credential pair and persists the session.
func (h *HostTokens) SetTokens(access, refresh string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cur == nil {
		h.cur = &Session{Host: h.host}
	}
	h.cur.AccessToken = access
	h.cur.RefreshToken = refresh
	return h.store.Save(context.Background(), h.cur)
}

// SetUser records the account snapshot shown by whoami-style commands.
func (h *HostTokens) SetUser(email, username string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cur == nil {
		h.cur = &Session{Host: h.host}
	}
	h.cur.Email = email
	h.cur.Username = username
	return h.store.Save(context.Background(), h.cur)
}

// Clear destroys the session both in memory and in the store.
func (h *HostTokens) Clear() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.cur = nil
	return h.store.Delete(context.Background(), h.host)
}

// Session returns a copy of the bound session, or nil when logged out.
func (h *HostTokens) Session() *Session {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.cur == nil {
		return nil
	}
	cp := *h.cur
	return &cp
}
