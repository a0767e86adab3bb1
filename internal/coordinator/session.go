package coordinator

import "sync"

// Session is a live authenticated connection for one user.
type Session struct {
	UserID   string
	Username string
	Avatar   string
	Conn     Conn
}

// SessionRegistry tracks live connections keyed by user ID. At most one
// session exists per user; registering again replaces the prior entry. The
// registry does not close the replaced connection handle, the transport
// layer is expected to have done that already.
type SessionRegistry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{sessions: make(map[string]*Session)}
}

// Register records the session for userID, replacing any prior one.
func (r *SessionRegistry) Register(userID string, conn Conn, username, avatar string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[userID] = &Session{
		UserID:   userID,
		Username: username,
		Avatar:   avatar,
		Conn:     conn,
	}
}

// Unregister removes the session for userID. Idempotent.
func (r *SessionRegistry) Unregister(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, userID)
}

// Lookup returns the session for userID, or nil when absent.
func (r *SessionRegistry) Lookup(userID string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[userID]
}

// Count returns the number of live sessions.
func (r *SessionRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
