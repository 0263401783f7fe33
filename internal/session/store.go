package session

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Store holds sessions in memory. Sessions idle for longer than the TTL
// are removed by Sweep.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a store. A non-positive ttl disables expiry.
func NewStore(ttl time.Duration) *Store {
	return &Store{ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// Create starts a new empty session.
func (st *Store) Create() *Session {
	s := newSession(st.now)
	st.mu.Lock()
	st.sessions[s.ID] = s
	st.mu.Unlock()
	return s
}

// Get returns the session with id.
func (st *Store) Get(id string) (*Session, error) {
	st.mu.RLock()
	s, ok := st.sessions[id]
	st.mu.RUnlock()
	if !ok || st.expired(s) {
		return nil, ErrNotFound
	}
	return s, nil
}

// Delete removes the session with id.
func (st *Store) Delete(id string) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(st.sessions, id)
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (st *Store) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}

// Sweep removes expired sessions and returns how many were removed.
func (st *Store) Sweep() int {
	if st.ttl <= 0 {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	removed := 0
	for id, s := range st.sessions {
		if st.expired(s) {
			delete(st.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		zap.L().Debug("expired sessions removed", zap.Int("count", removed))
	}
	return removed
}

func (st *Store) expired(s *Session) bool {
	return st.ttl > 0 && st.now().Sub(s.UpdatedAt()) > st.ttl
}
