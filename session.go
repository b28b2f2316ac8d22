package bankclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// UserInfo is the display-facing slice of a session, shown by the
// hosting application while logged in.
type UserInfo struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name,omitempty"`
	Email       string `json:"email,omitempty"`
}

// Session is the application-level composite persisted as one JSON blob
// under its own storage key. The HTTP client core never reads it; only
// the credential matters there.
type Session struct {
	User      UserInfo  `json:"user"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionManager owns session lifetime: created at login, restored
// across restarts, destroyed at logout or on unrecoverable auth
// failure. Domain facades are built on the Client it carries.
type SessionManager struct {
	client *Client
	tokens *TokenManager
	store  SessionStore
	logger *slog.Logger

	mu      sync.Mutex
	current *Session
	expired []func()
}

// NewSessionManager wires a session manager to the client core. It
// subscribes to the client's session-expired signal so teardown clears
// the persisted session too.
func NewSessionManager(client *Client, store SessionStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	m := &SessionManager{
		client: client,
		tokens: client.Tokens(),
		store:  store,
		logger: logger,
	}
	client.OnSessionExpired(m.handleExpired)
	return m
}

// Login obtains a fresh credential through the token manager and
// persists the session. The token fetch itself runs unauthenticated.
func (m *SessionManager) Login(ctx context.Context, user UserInfo) (*Session, error) {
	if _, err := m.tokens.Refresh(WithoutAuth(ctx)); err != nil {
		return nil, err
	}

	s := &Session{User: user, CreatedAt: time.Now().UTC()}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize session: %w", err)
	}
	if err := m.store.WriteSession(data); err != nil {
		return nil, fmt.Errorf("failed to persist session: %w", err)
	}

	m.mu.Lock()
	m.current = s
	m.mu.Unlock()

	m.logger.Info("session created", "user", user.Username)
	return s, nil
}

// Current returns the active session, restoring it from storage after a
// restart. A corrupt blob reads as logged out.
func (m *SessionManager) Current() (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current != nil {
		return m.current, true
	}

	data, err := m.store.ReadSession()
	if err != nil || len(data) == 0 {
		return nil, false
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		m.logger.Warn("discarding corrupt session blob", "err", err)
		_ = m.store.ClearSession()
		return nil, false
	}

	m.current = &s
	return m.current, true
}

// Logout destroys the session and the stored credential.
func (m *SessionManager) Logout(ctx context.Context) error {
	m.mu.Lock()
	m.current = nil
	m.mu.Unlock()

	if err := m.tokens.Clear(); err != nil {
		return err
	}
	return m.store.ClearSession()
}

// OnExpired registers a callback fired when the session is torn down by
// an unrecoverable auth failure. The hosting application typically
// routes to its unauthenticated entry point here.
func (m *SessionManager) OnExpired(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expired = append(m.expired, fn)
}

func (m *SessionManager) handleExpired() {
	m.mu.Lock()
	m.current = nil
	subs := make([]func(), len(m.expired))
	copy(subs, m.expired)
	m.mu.Unlock()

	if err := m.store.ClearSession(); err != nil {
		m.logger.Warn("clearing session failed", "err", err)
	}
	m.logger.Info("session expired")

	for _, fn := range subs {
		fn()
	}
}
