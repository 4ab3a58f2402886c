package identity

import (
	"sync"
	"time"
)

// SessionRegistry tracks which issued session tokens are still live, so a
// sign-out can revoke a token before it expires.
type SessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]sessionEntry
}

type sessionEntry struct {
	uid       string
	expiresAt time.Time
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		sessions: make(map[string]sessionEntry),
	}
}

// Start records a session. Returns false if the id is already in use.
func (s *SessionRegistry) Start(id, uid string, expiresAt time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return false
	}
	s.sessions[id] = sessionEntry{uid: uid, expiresAt: expiresAt}
	return true
}

// IsActive reports whether id is live at now.
func (s *SessionRegistry) IsActive(id string, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.sessions[id]
	if !exists {
		return false
	}
	if now.After(e.expiresAt) {
		delete(s.sessions, id)
		return false
	}
	return true
}

// End deletes the session.
func (s *SessionRegistry) End(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
}

// EndAll deletes every session belonging to uid and returns how many ended.
func (s *SessionRegistry) EndAll(uid string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.sessions {
		if e.uid == uid {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}
